package property

// Type describes one level of an object type hierarchy. Types are created by
// a Registry and never change afterwards; the ancestor chain is computed once.
type Type struct {
	index     int
	name      string
	base      *Type
	ancestors []*Type // self first, root last
	registry  *Registry
}

func newType(r *Registry, index int, name string, base *Type) *Type {
	t := &Type{index: index, name: name, base: base, registry: r}
	t.ancestors = append(t.ancestors, t)
	if base != nil {
		t.ancestors = append(t.ancestors, base.ancestors...)
	}
	return t
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Base returns the direct base type, or nil for the root.
func (t *Type) Base() *Type { return t.base }

// Registry returns the registry the type belongs to.
func (t *Type) Registry() *Registry { return t.registry }

// Ancestors returns the type followed by its bases, ending at the root.
func (t *Type) Ancestors() []*Type {
	out := make([]*Type, len(t.ancestors))
	copy(out, t.ancestors)
	return out
}

// IsSubtypeOf reports whether t is other or derives from it.
func (t *Type) IsSubtypeOf(other *Type) bool {
	if other == nil {
		return false
	}
	// Depth check first: other can only be an ancestor at a fixed offset.
	offset := len(t.ancestors) - len(other.ancestors)
	return offset >= 0 && t.ancestors[offset] == other
}

func (t *Type) String() string { return t.name }
