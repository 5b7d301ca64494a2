package catalog

import "github.com/mesh-intelligence/depprop/pkg/property"

// SampleTree builds a small window:
//
//	window (Panel, FontSize 16, Foreground navy)
//	├── layout (Grid, Orientation horizontal, Dock left)
//	│   ├── title (TextBlock, Row 0, Text "Properties")
//	│   └── status (TextBlock, Row 1, Opacity animated to 0.5, Text bound)
//	└── ok (Button, IsEnabled false, ActualWidth 80)
//
// The status text is bound at Style priority to a fixed source, and the
// status opacity is held by an Animation priority value over a local one.
func (c *Catalog) SampleTree() (*Element, error) {
	window, err := c.NewElement(c.Panel, "window")
	if err != nil {
		return nil, err
	}
	layout, err := c.NewElement(c.Grid, "layout")
	if err != nil {
		return nil, err
	}
	title, err := c.NewElement(c.TextBlock, "title")
	if err != nil {
		return nil, err
	}
	status, err := c.NewElement(c.TextBlock, "status")
	if err != nil {
		return nil, err
	}
	ok, err := c.NewElement(c.Button, "ok")
	if err != nil {
		return nil, err
	}

	for _, edge := range []struct{ parent, child *Element }{
		{window, layout},
		{layout, title},
		{layout, status},
		{window, ok},
	} {
		if err := edge.parent.AddChild(edge.child); err != nil {
			return nil, err
		}
	}

	sets := []struct {
		e        *Element
		p        *property.Property
		v        any
		priority property.BindingPriority
	}{
		{window, c.FontSize, 16.0, property.PriorityLocalValue},
		{window, c.Foreground, "navy", property.PriorityStyle},
		{layout, c.Orientation, Horizontal, property.PriorityLocalValue},
		{layout, c.Dock, "left", property.PriorityLocalValue},
		{title, c.Text, "Properties", property.PriorityLocalValue},
		{status, c.Row, 1, property.PriorityLocalValue},
		{status, c.Opacity, 0.8, property.PriorityLocalValue},
		{status, c.Opacity, 0.5, property.PriorityAnimation},
		{ok, c.IsEnabled, false, property.PriorityLocalValue},
	}
	for _, s := range sets {
		if err := s.e.SetValueWithPriority(s.p, s.v, s.priority); err != nil {
			return nil, err
		}
	}
	if _, err := status.Bind(c.Text, property.Just[any]("Ready"), property.PriorityStyle); err != nil {
		return nil, err
	}
	if err := c.SetActualWidth(ok, 80); err != nil {
		return nil, err
	}
	return window, nil
}
