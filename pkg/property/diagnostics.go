package property

import (
	"fmt"
	"slices"
)

// Diagnostic describes where a property's value on an object comes from.
type Diagnostic struct {
	Property    *Property
	Value       any
	Priority    BindingPriority
	Description string
}

// GetDiagnostic returns the diagnostic for p on o.
func (o *Object) GetDiagnostic(p *Property) Diagnostic {
	value, priority := o.effective(p)
	d := Diagnostic{Property: p, Value: value, Priority: priority}

	if p.direct {
		d.Description = "Direct"
		return d
	}
	e := o.values[p.index]
	if e == nil {
		if priority == PriorityInherited {
			d.Description = "Inherited"
		} else {
			d.Description = "Unset"
		}
		return d
	}

	active := e.active()
	n := e.bindingCount()
	switch {
	case n == 0 && active != nil && active.priority == PriorityLocalValue:
		d.Description = "Local value"
	case n == 0 && active != nil:
		d.Description = active.priority.String() + " value"
	case active == nil:
		d.Description = fmt.Sprintf("%d binding(s), none active", n)
	case active.binding != nil:
		d.Description = fmt.Sprintf("%d binding(s), active: %s binding", n, active.priority)
	default:
		d.Description = fmt.Sprintf("%d binding(s), active: %s value", n, active.priority)
	}
	return d
}

// Diagnostics returns a diagnostic for every property with stored values or
// bindings on o, in property index order.
func (o *Object) Diagnostics() []Diagnostic {
	if o.typ == nil {
		return nil
	}
	indexes := make([]int, 0, len(o.values))
	for i := range o.values {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	out := make([]Diagnostic, 0, len(indexes))
	for _, i := range indexes {
		if p, ok := o.typ.registry.FindRegisteredByIndex(i); ok {
			out = append(out, o.GetDiagnostic(p))
		}
	}
	return out
}
