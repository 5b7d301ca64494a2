// Package catalog registers a small control hierarchy against a registry. The
// command line tool inspects it, and tests use it as a realistic fixture.
//
//	Object
//	└── Control      FontSize*, Foreground*, IsEnabled*, Opacity, Tag, Name (direct), ActualWidth (read-only)
//	    ├── Panel    Background, Orientation
//	    │   └── Grid Row, Column (attached to Control)
//	    ├── TextBlock Text, FontSize default 14
//	    └── Button   IsPressed (read-only), Content
//
// Properties marked * inherit down the element tree. DockPanel.Dock is an
// inheriting attached property owned by Panel.
package catalog

import (
	"fmt"
	"math"
	"slices"

	"github.com/mesh-intelligence/depprop/pkg/property"
)

// Orientations accepted by Panel.Orientation.
const (
	Vertical   = "vertical"
	Horizontal = "horizontal"
)

// Dock positions accepted by Panel.Dock.
var DockPositions = []string{"none", "left", "top", "right", "bottom"}

// Catalog holds the registered types and properties.
type Catalog struct {
	Registry *property.Registry

	Control   *property.Type
	Panel     *property.Type
	Grid      *property.Type
	TextBlock *property.Type
	Button    *property.Type

	FontSize    *property.Property
	Foreground  *property.Property
	IsEnabled   *property.Property
	Opacity     *property.Property
	Tag         *property.Property
	Name        *property.Property
	ActualWidth *property.Property

	Background  *property.Property
	Orientation *property.Property
	Dock        *property.Property

	Row    *property.Property
	Column *property.Property

	Text *property.Property

	IsPressed *property.Property
	Content   *property.Property

	actualWidthKey *property.Key
	isPressedKey   *property.Key
}

// New registers the catalog types and properties on r.
func New(r *property.Registry) (*Catalog, error) {
	c := &Catalog{Registry: r}
	steps := []func() error{
		c.registerTypes,
		c.registerControl,
		c.registerPanel,
		c.registerTextBlock,
		c.registerButton,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("registering catalog: %w", err)
		}
	}
	return c, nil
}

func (c *Catalog) registerTypes() error {
	var err error
	if c.Control, err = c.Registry.NewType("Control", nil); err != nil {
		return err
	}
	if c.Panel, err = c.Registry.NewType("Panel", c.Control); err != nil {
		return err
	}
	if c.Grid, err = c.Registry.NewType("Grid", c.Panel); err != nil {
		return err
	}
	if c.TextBlock, err = c.Registry.NewType("TextBlock", c.Control); err != nil {
		return err
	}
	c.Button, err = c.Registry.NewType("Button", c.Control)
	return err
}

func (c *Catalog) registerControl() error {
	r := c.Registry
	var err error

	c.FontSize, err = r.RegisterStyled("FontSize", c.Control, property.TypeOf[float64](),
		property.NewMetadata(
			property.WithDefault(12.0),
			property.WithValidate(func(v any) bool {
				f := v.(float64)
				return f > 0 && !math.IsInf(f, 0)
			}),
			property.WithFlags(property.AffectsMeasure),
		),
		property.Inherits())
	if err != nil {
		return err
	}

	c.Foreground, err = r.RegisterStyled("Foreground", c.Control, property.TypeOf[string](),
		property.NewMetadata(property.WithDefault("black")),
		property.Inherits())
	if err != nil {
		return err
	}

	c.IsEnabled, err = r.RegisterStyled("IsEnabled", c.Control, property.TypeOf[bool](),
		property.NewMetadata(property.WithDefault(true)),
		property.Inherits())
	if err != nil {
		return err
	}

	c.Opacity, err = r.RegisterStyled("Opacity", c.Control, property.TypeOf[float64](),
		property.NewMetadata(
			property.WithDefault(1.0),
			property.WithValidate(func(v any) bool { return !math.IsNaN(v.(float64)) }),
			property.WithCoerce(clampUnit),
		))
	if err != nil {
		return err
	}

	c.Tag, err = r.RegisterStyled("Tag", c.Control, property.TypeOf[any](), nil)
	if err != nil {
		return err
	}

	get, set := property.DirectAccessors(
		func(e *Element) string { return e.name },
		func(e *Element, v string) { e.name = v },
	)
	c.Name, err = r.RegisterDirect("Name", c.Control, property.TypeOf[string](), get, set)
	if err != nil {
		return err
	}

	c.ActualWidth, c.actualWidthKey, err = r.RegisterReadOnly("ActualWidth", c.Control, property.TypeOf[float64](),
		property.NewMetadata(property.WithFlags(property.AffectsParentArrange)))
	return err
}

func (c *Catalog) registerPanel() error {
	r := c.Registry
	var err error

	c.Background, err = r.RegisterStyled("Background", c.Panel, property.TypeOf[string](),
		property.NewMetadata(property.WithDefault("transparent")))
	if err != nil {
		return err
	}

	c.Orientation, err = r.RegisterStyled("Orientation", c.Panel, property.TypeOf[string](),
		property.NewMetadata(
			property.WithDefault(Vertical),
			property.WithValidate(func(v any) bool { return v == Vertical || v == Horizontal }),
			property.WithFlags(property.AffectsMeasure),
		))
	if err != nil {
		return err
	}

	c.Dock, err = r.RegisterAttached("Dock", c.Panel, c.Control, property.TypeOf[string](),
		property.NewMetadata(
			property.WithDefault("none"),
			property.WithValidate(func(v any) bool { return slices.Contains(DockPositions, v.(string)) }),
			property.WithFlags(property.AffectsParentArrange),
		),
		property.Inherits())
	if err != nil {
		return err
	}

	nonNegative := func(v any) bool { return v.(int) >= 0 }
	c.Row, err = r.RegisterAttached("Row", c.Grid, c.Control, property.TypeOf[int](),
		property.NewMetadata(
			property.WithValidate(nonNegative),
			property.WithFlags(property.AffectsParentMeasure|property.AffectsParentArrange),
		))
	if err != nil {
		return err
	}
	c.Column, err = r.RegisterAttached("Column", c.Grid, c.Control, property.TypeOf[int](),
		property.NewMetadata(
			property.WithValidate(nonNegative),
			property.WithFlags(property.AffectsParentMeasure|property.AffectsParentArrange),
		))
	return err
}

func (c *Catalog) registerTextBlock() error {
	var err error
	c.Text, err = c.Registry.RegisterStyled("Text", c.TextBlock, property.TypeOf[string](),
		property.NewMetadata(
			property.WithFlags(property.AffectsMeasure|property.BindsTwoWayByDefault),
			property.WithDataValidation(true),
		))
	if err != nil {
		return err
	}
	return c.Registry.OverrideMetadata(c.FontSize, c.TextBlock, property.NewMetadata(property.WithDefault(14.0)))
}

func (c *Catalog) registerButton() error {
	r := c.Registry
	var err error

	c.IsPressed, c.isPressedKey, err = r.RegisterReadOnly("IsPressed", c.Button, property.TypeOf[bool](), nil)
	if err != nil {
		return err
	}

	// Buttons reuse TextBlock.Text as their content.
	c.Content, err = r.AddOwner(c.Text, c.Button, property.NewMetadata(property.WithDefault("Button")))
	return err
}

// SetActualWidth records the laid-out width of e.
func (c *Catalog) SetActualWidth(e *Element, width float64) error {
	return e.SetValueWithKey(c.actualWidthKey, width, property.PriorityLocalValue)
}

// SetPressed records whether the button e is pressed.
func (c *Catalog) SetPressed(e *Element, pressed bool) error {
	return e.SetValueWithKey(c.isPressedKey, pressed, property.PriorityLocalValue)
}

func clampUnit(_ *property.Object, v any) any {
	return math.Min(1, math.Max(0, v.(float64)))
}
