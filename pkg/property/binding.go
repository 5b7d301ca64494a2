package property

import (
	"weak"

	"go.uber.org/zap"
)

// Binding feeds values from an Observable into a property at one priority.
// It references its object weakly: once the object is collected the next
// emission cancels the subscription.
type Binding struct {
	target   weak.Pointer[Object]
	property *Property
	priority BindingPriority
	source   *valueSource // nil for direct properties
	sub      Subscription
	disposed bool
	logger   *zap.Logger
}

// Bind subscribes p to source at priority. Every emitted value runs the set
// pipeline; rejected values are logged and ignored, and UnsetValue withdraws
// the binding's contribution until the next value.
func (o *Object) Bind(p *Property, source Observable[any], priority BindingPriority) (*Binding, error) {
	if p != nil && p.readOnly {
		return nil, newError("Bind", p, o.typ, ErrUnauthorized, "")
	}
	return o.bind("Bind", p, source, priority)
}

// BindWithKey binds the read-only property unlocked by key.
func (o *Object) BindWithKey(key *Key, source Observable[any], priority BindingPriority) (*Binding, error) {
	if key == nil || !key.unlocks(key.property) {
		return nil, newError("BindWithKey", nil, o.typ, ErrUnauthorized, "invalid key")
	}
	return o.bind("BindWithKey", key.property, source, priority)
}

func (o *Object) bind(op string, p *Property, source Observable[any], priority BindingPriority) (*Binding, error) {
	if source == nil {
		return nil, newError(op, p, o.typ, ErrInvalidArgument, "nil source")
	}
	if err := o.checkSettable(op, p, priority); err != nil {
		return nil, err
	}

	b := &Binding{
		target:   weak.Make(o),
		property: p,
		priority: priority,
		logger:   o.typ.registry.logger,
	}
	if !p.direct {
		b.source = &valueSource{priority: priority, binding: b}
		o.entry(p).add(b.source)
	}

	// Sources may emit, and the binding may be disposed, inside Subscribe.
	sub := source.Subscribe(b.onNext)
	if b.disposed {
		sub.Cancel()
	} else {
		b.sub = sub
	}
	return b, nil
}

func (b *Binding) onNext(v any) {
	if b.disposed {
		return
	}
	o := b.target.Value()
	if o == nil {
		b.disposed = true
		if b.sub != nil {
			b.sub.Cancel()
		}
		return
	}
	if err := o.setValue("Bind", b.property, v, b.priority, b); err != nil {
		b.logger.Warn("binding value rejected",
			zap.String("property", b.property.String()),
			zap.Stringer("priority", b.priority),
			zap.Any("value", v),
			zap.Error(err),
		)
	}
}

// Property returns the bound property.
func (b *Binding) Property() *Property { return b.property }

// Priority returns the priority values are applied at.
func (b *Binding) Priority() BindingPriority { return b.priority }

// Disposed reports whether Dispose has run or the object was collected.
func (b *Binding) Disposed() bool { return b.disposed }

// Dispose cancels the subscription and withdraws the binding's value. The
// next active source takes over with a single change notification. Dispose
// is idempotent and may be called from a change callback.
func (b *Binding) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	if b.sub != nil {
		b.sub.Cancel()
	}

	o := b.target.Value()
	if o == nil || b.source == nil {
		return
	}
	p := b.property
	e := o.values[p.index]
	if e == nil {
		return
	}

	old, _ := o.effective(p)
	snapshot := o.inheritanceSnapshot(p, false)
	e.remove(b.source)
	if e.empty() {
		delete(o.values, p.index)
	}
	o.raiseIfChanged(p, old, snapshot)
}
