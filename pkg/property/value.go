package property

import (
	"reflect"
	"slices"
)

// valueSource is one contributor to a property's value on an object: either
// the plain SetValue slot of a priority, or a binding.
type valueSource struct {
	priority BindingPriority
	binding  *Binding
	value    any
	hasValue bool
	seq      uint64
}

// valueEntry holds every active source of one property on one object.
type valueEntry struct {
	sources []*valueSource
}

// active returns the winning source: the lowest priority holding a value and,
// within it, the most recent write.
func (e *valueEntry) active() *valueSource {
	var best *valueSource
	for _, s := range e.sources {
		if !s.hasValue {
			continue
		}
		if best == nil || s.priority < best.priority ||
			(s.priority == best.priority && s.seq > best.seq) {
			best = s
		}
	}
	return best
}

func (e *valueEntry) slot(priority BindingPriority) *valueSource {
	for _, s := range e.sources {
		if s.binding == nil && s.priority == priority {
			return s
		}
	}
	return nil
}

func (e *valueEntry) add(s *valueSource) {
	e.sources = append(e.sources, s)
}

func (e *valueEntry) remove(s *valueSource) {
	e.sources = slices.DeleteFunc(e.sources, func(x *valueSource) bool { return x == s })
}

func (e *valueEntry) hasValue() bool {
	return e.active() != nil
}

func (e *valueEntry) bindingCount() int {
	n := 0
	for _, s := range e.sources {
		if s.binding != nil {
			n++
		}
	}
	return n
}

func (e *valueEntry) empty() bool {
	return len(e.sources) == 0
}

// valuesEqual compares effective values. Values of different dynamic types
// are never equal; comparable values use ==, everything else DeepEqual.
func valuesEqual(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		defer func() {
			// interface fields holding uncomparable values panic on ==
			if recover() != nil {
				eq = reflect.DeepEqual(a, b)
			}
		}()
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
