package catalog

import (
	"fmt"

	"github.com/mesh-intelligence/depprop/pkg/property"
)

// Element is a node of the sample element tree. It counts layout
// invalidations so callers can see which property changes affect layout.
type Element struct {
	property.Object
	name     string
	measures int
	arranges int
}

// NewElement creates an element of type t. t must be Control or derive from it.
func (c *Catalog) NewElement(t *property.Type, name string) (*Element, error) {
	if t == nil || !t.IsSubtypeOf(c.Control) {
		return nil, fmt.Errorf("%w: %v is not a control type", property.ErrInvalidArgument, t)
	}
	e := &Element{name: name}
	if err := e.Init(t, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AddChild makes child inherit from e.
func (e *Element) AddChild(child *Element) error {
	return child.SetInheritanceParent(&e.Object)
}

// ElementName returns the value of the Name property.
func (e *Element) ElementName() string { return e.name }

func (e *Element) InvalidateMeasure() { e.measures++ }

func (e *Element) InvalidateArrange() { e.arranges++ }

// LayoutInvalidations returns how many times measure and arrange have been
// invalidated since the element was created.
func (e *Element) LayoutInvalidations() (measure, arrange int) {
	return e.measures, e.arranges
}

// Children returns the elements that inherit from e.
func (e *Element) Children() []*Element {
	var out []*Element
	for _, o := range e.InheritanceChildren() {
		if child, ok := o.Self().(*Element); ok {
			out = append(out, child)
		}
	}
	return out
}

// Walk calls fn for e and every descendant, parents first.
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, child := range e.Children() {
		child.Walk(fn)
	}
}
