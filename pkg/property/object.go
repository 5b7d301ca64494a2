package property

import (
	"slices"
	"weak"

	"github.com/google/uuid"
)

// maxReentrancy bounds nested sets of one property on one object, as happens
// when a change callback or a synchronous binding writes the property again.
const maxReentrancy = 16

// ChangedEvent describes an effective value change.
type ChangedEvent struct {
	Sender   *Object
	Property *Property
	OldValue any
	NewValue any
	Priority BindingPriority
}

// LayoutInvalidator is implemented by owner values that react to metadata
// flagged AffectsMeasure or AffectsArrange.
type LayoutInvalidator interface {
	InvalidateMeasure()
	InvalidateArrange()
}

// Object holds property values for one instance. Embed it in an owner struct
// and call Init before use.
type Object struct {
	id       uuid.UUID
	typ      *Type
	self     any
	values   map[int]*valueEntry
	seq      uint64
	depth    map[int]int
	parent   *Object
	children []*Object
	changed  *Subject[ChangedEvent]
}

// NewObject returns an initialized Object of type t that is its own owner.
func NewObject(t *Type) (*Object, error) {
	o := &Object{}
	if err := o.Init(t, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Init binds the object to t and to its owner value, which receives layout
// invalidations and is passed to direct property accessors. A nil self makes
// the Object its own owner. Init fires the Initialized observables.
func (o *Object) Init(t *Type, self any) error {
	const op = "Init"
	if t == nil {
		return newError(op, nil, nil, ErrInvalidArgument, "nil type")
	}
	if o.typ != nil {
		return newError(op, nil, o.typ, ErrInvalidOperation, "object already initialized")
	}
	if self == nil {
		self = o
	}
	o.id = newObjectID()
	o.typ = t
	o.self = self
	o.values = make(map[int]*valueEntry)
	o.depth = make(map[int]int)
	o.changed = NewSubject[ChangedEvent]()
	t.registry.NotifyObjectInitialized(o)
	return nil
}

func newObjectID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ID returns the identifier assigned by Init.
func (o *Object) ID() uuid.UUID { return o.id }

// Type returns the object's type.
func (o *Object) Type() *Type { return o.typ }

// Self returns the owner value passed to Init.
func (o *Object) Self() any { return o.self }

// Registry returns the registry of the object's type.
func (o *Object) Registry() *Registry {
	if o.typ == nil {
		return nil
	}
	return o.typ.registry
}

// GetValue returns the effective value of p: the winning stored value, the
// inherited value for inheriting properties, or the default for the type.
func (o *Object) GetValue(p *Property) any {
	v, _ := o.effective(p)
	return v
}

// effective resolves the value of p and the priority it comes from.
func (o *Object) effective(p *Property) (any, BindingPriority) {
	if p == nil {
		return nil, PriorityUnset
	}
	if p.direct {
		return p.getter(o.self), PriorityLocalValue
	}
	if e := o.values[p.index]; e != nil {
		if s := e.active(); s != nil {
			return s.value, s.priority
		}
	}
	if p.inherits {
		for a := o.parent; a != nil; a = a.parent {
			if e := a.values[p.index]; e != nil {
				if s := e.active(); s != nil {
					return s.value, PriorityInherited
				}
			}
		}
	}
	return p.DefaultValue(o.typ), PriorityUnset
}

// SetValue sets p as a local value.
func (o *Object) SetValue(p *Property, v any) error {
	return o.SetValueWithPriority(p, v, PriorityLocalValue)
}

// SetValueWithPriority sets p at the given priority. Setting UnsetValue
// clears the value stored at that priority.
func (o *Object) SetValueWithPriority(p *Property, v any, priority BindingPriority) error {
	const op = "SetValue"
	if p != nil && p.readOnly {
		return newError(op, p, o.typ, ErrUnauthorized, "")
	}
	return o.setValue(op, p, v, priority, nil)
}

// SetValueWithKey sets the read-only property unlocked by key.
func (o *Object) SetValueWithKey(key *Key, v any, priority BindingPriority) error {
	const op = "SetValueWithKey"
	if key == nil || !key.unlocks(key.property) {
		return newError(op, nil, o.typ, ErrUnauthorized, "invalid key")
	}
	return o.setValue(op, key.property, v, priority, nil)
}

// ClearValue removes the value stored at priority.
func (o *Object) ClearValue(p *Property, priority BindingPriority) error {
	return o.SetValueWithPriority(p, UnsetValue, priority)
}

// IsSet reports whether any source holds a value for p. Direct properties
// are never set.
func (o *Object) IsSet(p *Property) bool {
	if p == nil || p.direct {
		return false
	}
	e := o.values[p.index]
	return e != nil && e.hasValue()
}

// IsAnimating reports whether p's effective value comes from an animation.
func (o *Object) IsAnimating(p *Property) bool {
	_, priority := o.effective(p)
	return priority == PriorityAnimation
}

// OnPropertyChanged subscribes handler to every change on this object.
func (o *Object) OnPropertyChanged(handler func(ChangedEvent)) Subscription {
	return o.changed.Subscribe(handler)
}

// Observe returns the changes of p on this object. Subscriptions hold only a
// weak reference to the object and cancel themselves once it is collected.
func (o *Object) Observe(p *Property) Observable[ChangedEvent] {
	target := weak.Make(o)
	return ObservableFunc[ChangedEvent](func(fn func(ChangedEvent)) Subscription {
		var sub Subscription
		sub = p.changed.Subscribe(func(e ChangedEvent) {
			obj := target.Value()
			if obj == nil {
				if sub != nil {
					sub.Cancel()
				}
				return
			}
			if e.Sender == obj {
				fn(e)
			}
		})
		return sub
	})
}

// InheritanceParent returns the object inheriting properties resolve against.
func (o *Object) InheritanceParent() *Object { return o.parent }

// InheritanceChildren returns the objects whose inheritance parent is o.
func (o *Object) InheritanceChildren() []*Object { return slices.Clone(o.children) }

// SetInheritanceParent reparents o and raises changes for every inheriting
// property whose effective value moves with it, on o and its descendants.
func (o *Object) SetInheritanceParent(parent *Object) error {
	const op = "SetInheritanceParent"
	if parent == o.parent {
		return nil
	}
	for a := parent; a != nil; a = a.parent {
		if a == o {
			return newError(op, nil, o.typ, ErrInvalidOperation, "inheritance cycle")
		}
	}

	var snapshot []inheritedValue
	if o.typ != nil {
		for _, p := range o.typ.registry.Properties() {
			if p.inherits {
				snapshot = append(snapshot, o.inheritanceSnapshot(p, true)...)
			}
		}
	}

	if o.parent != nil {
		o.parent.children = slices.DeleteFunc(o.parent.children, func(c *Object) bool { return c == o })
	}
	o.parent = parent
	if parent != nil {
		parent.children = append(parent.children, o)
	}

	raiseInherited(snapshot)
	return nil
}

// NotifyDirectChanged raises a change for direct property p after the owner
// updated the backing field itself. old is the value before the update.
func (o *Object) NotifyDirectChanged(p *Property, old any) error {
	if p == nil || !p.direct {
		return newError("NotifyDirectChanged", p, o.typ, ErrInvalidArgument, "not a direct property")
	}
	if v := p.getter(o.self); !valuesEqual(old, v) {
		o.raise(p, old, v, PriorityLocalValue)
	}
	return nil
}

func (o *Object) checkSettable(op string, p *Property, priority BindingPriority) error {
	switch {
	case o.typ == nil:
		return newError(op, p, nil, ErrInvalidOperation, "object not initialized")
	case p == nil:
		return newError(op, nil, o.typ, ErrInvalidArgument, "nil property")
	case !priority.settable():
		return newError(op, p, o.typ, ErrInvalidArgument, "cannot set at priority %s", priority)
	case !o.typ.registry.IsRegistered(o.typ, p):
		return newError(op, p, o.typ, ErrInvalidOperation, "property not registered on type")
	}
	return nil
}

// setValue runs the set pipeline: type check, validation, coercion, storage,
// then change notification when the effective value moved. b is the binding
// the value comes from, nil for plain sets.
func (o *Object) setValue(op string, p *Property, v any, priority BindingPriority, b *Binding) error {
	if err := o.checkSettable(op, p, priority); err != nil {
		return err
	}
	if o.depth[p.index] >= maxReentrancy {
		return newError(op, p, o.typ, ErrInvalidOperation, "reentrant set exceeded depth %d", maxReentrancy)
	}
	o.depth[p.index]++
	defer func() { o.depth[p.index]-- }()

	if p.direct {
		return o.setDirect(op, p, v)
	}
	if IsUnset(v) {
		o.clearSource(p, priority, b)
		return nil
	}

	md := p.GetMetadata(o.typ)
	if err := p.checkType(op, o.typ, v); err != nil {
		return err
	}
	if md.validate != nil && !md.validate(v) {
		return newError(op, p, o.typ, ErrValidationFailed, "value %v rejected", v)
	}
	if md.coerce != nil {
		v = md.coerce(o, v)
	}

	old, _ := o.effective(p)
	snapshot := o.inheritanceSnapshot(p, false)

	s := o.source(p, priority, b)
	s.value = v
	s.hasValue = true
	o.seq++
	s.seq = o.seq

	o.raiseIfChanged(p, old, snapshot)
	return nil
}

func (o *Object) setDirect(op string, p *Property, v any) error {
	if p.setter == nil {
		return newError(op, p, o.typ, ErrUnauthorized, "direct property has no setter")
	}
	if IsUnset(v) {
		v = p.unsetValue
	} else {
		if err := p.checkType(op, o.typ, v); err != nil {
			return err
		}
		md := p.GetMetadata(o.typ)
		if md.validate != nil && !md.validate(v) {
			return newError(op, p, o.typ, ErrValidationFailed, "value %v rejected", v)
		}
		if md.coerce != nil {
			v = md.coerce(o, v)
		}
	}

	old := p.getter(o.self)
	p.setter(o.self, v)
	if current := p.getter(o.self); !valuesEqual(old, current) {
		o.raise(p, old, current, PriorityLocalValue)
	}
	return nil
}

// source returns the storage slot a write goes to, creating it if needed.
func (o *Object) source(p *Property, priority BindingPriority, b *Binding) *valueSource {
	if b != nil {
		return b.source
	}
	e := o.entry(p)
	s := e.slot(priority)
	if s == nil {
		s = &valueSource{priority: priority}
		e.add(s)
	}
	return s
}

func (o *Object) entry(p *Property) *valueEntry {
	e := o.values[p.index]
	if e == nil {
		e = &valueEntry{}
		o.values[p.index] = e
	}
	return e
}

// clearSource drops the value contributed by b, or by the plain slot at
// priority, and re-resolves.
func (o *Object) clearSource(p *Property, priority BindingPriority, b *Binding) {
	e := o.values[p.index]
	if e == nil {
		return
	}
	old, _ := o.effective(p)
	snapshot := o.inheritanceSnapshot(p, false)

	if b != nil {
		b.source.hasValue = false
		b.source.value = nil
	} else if s := e.slot(priority); s != nil {
		e.remove(s)
	}
	if e.empty() {
		delete(o.values, p.index)
	}

	o.raiseIfChanged(p, old, snapshot)
}

func (o *Object) raiseIfChanged(p *Property, old any, snapshot []inheritedValue) {
	current, priority := o.effective(p)
	if valuesEqual(old, current) {
		return
	}
	o.raise(p, old, current, priority)
	raiseInherited(snapshot)
}

// raise announces a change: notifying(true), the property observable, the
// object's handlers, metadata callbacks in merge order, notifying(false),
// then layout invalidation.
func (o *Object) raise(p *Property, old, current any, priority BindingPriority) {
	md := p.GetMetadata(o.typ)
	e := ChangedEvent{
		Sender:   o,
		Property: p,
		OldValue: old,
		NewValue: current,
		Priority: priority,
	}

	if p.notifying != nil {
		p.notifying(o, true)
	}
	p.changed.Publish(e)
	o.changed.Publish(e)
	for _, cb := range md.changed {
		cb(o, e)
	}
	if p.notifying != nil {
		p.notifying(o, false)
	}

	o.invalidateLayout(md)
}

func (o *Object) invalidateLayout(md *Metadata) {
	if li, ok := o.self.(LayoutInvalidator); ok {
		if md.Has(AffectsMeasure) {
			li.InvalidateMeasure()
		}
		if md.Has(AffectsArrange) {
			li.InvalidateArrange()
		}
	}
	if o.parent == nil {
		return
	}
	if li, ok := o.parent.self.(LayoutInvalidator); ok {
		if md.Has(AffectsParentMeasure) {
			li.InvalidateMeasure()
		}
		if md.Has(AffectsParentArrange) {
			li.InvalidateArrange()
		}
	}
}

type inheritedValue struct {
	object   *Object
	property *Property
	old      any
}

// inheritanceSnapshot records the current value of p on every descendant
// that takes it from o, so changes can be raised after o's value moves.
// Descendants holding their own value shield their subtree.
func (o *Object) inheritanceSnapshot(p *Property, includeSelf bool) []inheritedValue {
	if !p.inherits {
		return nil
	}
	var out []inheritedValue
	var walk func(*Object)
	walk = func(n *Object) {
		if n.typ != nil && n.typ.registry.IsRegistered(n.typ, p) {
			out = append(out, inheritedValue{object: n, property: p, old: n.GetValue(p)})
		}
		for _, c := range n.children {
			if !c.IsSet(p) {
				walk(c)
			}
		}
	}
	if includeSelf {
		if !o.IsSet(p) {
			walk(o)
		}
		return out
	}
	for _, c := range o.children {
		if !c.IsSet(p) {
			walk(c)
		}
	}
	return out
}

func raiseInherited(snapshot []inheritedValue) {
	for _, iv := range snapshot {
		current, priority := iv.object.effective(iv.property)
		if !valuesEqual(iv.old, current) {
			iv.object.raise(iv.property, iv.old, current, priority)
		}
	}
}
