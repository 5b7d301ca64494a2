package property

import (
	"cmp"
	"reflect"
	"slices"
	"sync"
)

// NotifyingFunc is called with before=true just before a change is announced
// and with before=false after the metadata callbacks have run.
type NotifyingFunc func(o *Object, before bool)

// Getter reads a direct property from the owner value passed to Object.Init.
type Getter func(owner any) any

// Setter writes a direct property on the owner value passed to Object.Init.
type Setter func(owner any, v any)

// Property is the identity of a registered property. Two properties are the
// same only if they are the same pointer; Index is the hash key.
type Property struct {
	index     int
	name      string
	valueType reflect.Type
	owner     *Type
	registry  *Registry

	inherits bool
	readOnly bool
	attached bool
	direct   bool

	notifying  NotifyingFunc
	getter     Getter
	setter     Setter
	unsetValue any
	key        *Key

	changed     *Subject[ChangedEvent]
	initialized *Subject[ChangedEvent]

	mu              sync.RWMutex
	own             map[*Type]*Metadata // records as passed in, unmerged
	metadata        map[int]*Metadata   // merged, by type index, explicit registrations only
	defaultMetadata *Metadata
	metadataCache   map[int]*Metadata
	generation      int
}

// Key is the capability that authorizes writes to a read-only property. It is
// only returned by the registering call and is compared by identity.
type Key struct {
	property *Property
}

// Property returns the property the key unlocks.
func (k *Key) Property() *Property { return k.property }

func (k *Key) unlocks(p *Property) bool {
	return k != nil && p != nil && p.key == k
}

// Option configures a property at registration.
type Option func(*propertyOptions)

type propertyOptions struct {
	inherits       bool
	notifying      NotifyingFunc
	unsetValue     any
	hasUnsetValue  bool
	bindingMode    BindingMode
	dataValidation bool
	validate       ValidateFunc
	coerce         CoerceFunc
}

// Inherits makes a styled or attached property take its value from the
// inheritance parent when it has no value of its own.
func Inherits() Option {
	return func(o *propertyOptions) { o.inherits = true }
}

// WithNotifying installs the before/after notifying callback.
func WithNotifying(fn NotifyingFunc) Option {
	return func(o *propertyOptions) { o.notifying = fn }
}

// WithUnsetValue sets the value a direct property's setter receives when the
// property is set to UnsetValue.
func WithUnsetValue(v any) Option {
	return func(o *propertyOptions) {
		o.unsetValue = v
		o.hasUnsetValue = true
	}
}

// WithDefaultBindingMode sets a direct property's default binding mode.
func WithDefaultBindingMode(mode BindingMode) Option {
	return func(o *propertyOptions) { o.bindingMode = mode }
}

// WithDirectDataValidation enables data validation for a direct property.
func WithDirectDataValidation() Option {
	return func(o *propertyOptions) { o.dataValidation = true }
}

// WithDirectValidate sets the predicate a direct property's values must pass
// before they reach the setter.
func WithDirectValidate(fn ValidateFunc) Option {
	return func(o *propertyOptions) { o.validate = fn }
}

// WithDirectCoerce sets the coercion applied to a direct property's values
// after validation.
func WithDirectCoerce(fn CoerceFunc) Option {
	return func(o *propertyOptions) { o.coerce = fn }
}

func newProperty(r *Registry, index int, name string, owner *Type, valueType reflect.Type, md *Metadata, po propertyOptions) *Property {
	return &Property{
		index:           index,
		name:            name,
		valueType:       valueType,
		owner:           owner,
		registry:        r,
		inherits:        po.inherits || md.Has(InheritsFlag),
		notifying:       po.notifying,
		changed:         NewSubject[ChangedEvent](),
		initialized:     NewSubject[ChangedEvent](),
		own:             map[*Type]*Metadata{owner: md},
		metadata:        map[int]*Metadata{owner.index: md},
		defaultMetadata: md,
		metadataCache:   make(map[int]*Metadata),
	}
}

// Index returns the registry-unique index of the property.
func (p *Property) Index() int { return p.index }

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// ValueType returns the declared value type.
func (p *Property) ValueType() reflect.Type { return p.valueType }

// Owner returns the declaring type.
func (p *Property) Owner() *Type { return p.owner }

// Inherits reports whether the property participates in value inheritance.
func (p *Property) Inherits() bool { return p.inherits }

// IsReadOnly reports whether writes require the property's Key.
func (p *Property) IsReadOnly() bool { return p.readOnly }

// IsAttached reports whether the property may be set on host types other than its owner.
func (p *Property) IsAttached() bool { return p.attached }

// IsDirect reports whether the value lives behind a getter/setter pair.
func (p *Property) IsDirect() bool { return p.direct }

// Changed returns the observable of effective value changes on every object.
func (p *Property) Changed() Observable[ChangedEvent] { return p.changed }

// Initialized returns the observable fired once per property when an object
// is initialized, with OldValue set to UnsetValue.
func (p *Property) Initialized() Observable[ChangedEvent] { return p.initialized }

func (p *Property) String() string {
	return p.owner.name + "." + p.name
}

// GetMetadata returns the metadata in effect for t: the explicit record of
// the nearest ancestor, or the property's default metadata.
func (p *Property) GetMetadata(t *Type) *Metadata {
	if t == nil {
		return p.defaultMetadata
	}

	p.mu.RLock()
	md, ok := p.metadataCache[t.index]
	p.mu.RUnlock()
	if ok {
		return md
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	md = p.lookupMetadataLocked(t)
	p.metadataCache[t.index] = md
	return md
}

func (p *Property) lookupMetadataLocked(t *Type) *Metadata {
	for _, a := range t.ancestors {
		if md, ok := p.metadata[a.index]; ok {
			return md
		}
	}
	return p.defaultMetadata
}

// HasOwnMetadata reports whether metadata was registered for exactly t.
func (p *Property) HasOwnMetadata(t *Type) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.own[t]
	return ok
}

// DefaultValue returns the default value for t, falling back to the zero
// value of the value type when no metadata along the chain assigns one.
func (p *Property) DefaultValue(t *Type) any {
	if p.direct {
		return p.unsetValue
	}
	if v, ok := p.GetMetadata(t).DefaultValue(); ok {
		return v
	}
	return zeroValue(p.valueType)
}

// planOverride returns the record md would merge to for t, along with the
// metadata generation it was computed against.
func (p *Property) planOverride(op string, t *Type, md *Metadata) (*Metadata, int, error) {
	if md == nil {
		return nil, 0, newError(op, p, t, ErrInvalidArgument, "nil metadata")
	}
	if md.frozen {
		return nil, 0, newError(op, p, t, ErrInvalidOperation, "metadata is already in use")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.own[t]; ok {
		return nil, 0, newError(op, p, t, ErrAlreadyRegistered, "metadata already registered for type")
	}
	merged := *md
	merged.merge(p.mergeBaseLocked(t))
	return &merged, p.generation, nil
}

// commitOverride stores md for t and re-merges the records of t and every
// type below it, bases before subtypes. It reports false, storing nothing,
// when the metadata changed since generation was read.
func (p *Property) commitOverride(op string, t *Type, md *Metadata, generation int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != generation {
		return false, nil
	}
	if md.frozen {
		return false, newError(op, p, t, ErrInvalidOperation, "metadata is already in use")
	}
	md.frozen = true
	p.own[t] = md

	var affected []*Type
	for typ := range p.own {
		if typ != p.owner && typ.IsSubtypeOf(t) {
			affected = append(affected, typ)
		}
	}
	slices.SortFunc(affected, func(a, b *Type) int {
		return cmp.Compare(len(a.ancestors), len(b.ancestors))
	})
	for _, typ := range affected {
		merged := *p.own[typ]
		merged.merge(p.mergeBaseLocked(typ))
		merged.frozen = true
		p.metadata[typ.index] = &merged
	}

	p.generation++
	clear(p.metadataCache)
	return true, nil
}

// mergeBaseLocked returns the record t's own metadata merges against: the
// merged record of its nearest strict ancestor that has one, or the
// registration metadata. The registration record itself has no base.
func (p *Property) mergeBaseLocked(t *Type) *Metadata {
	if t == p.owner {
		return nil
	}
	for _, a := range t.ancestors[1:] {
		if md, ok := p.metadata[a.index]; ok {
			return md
		}
	}
	return p.defaultMetadata
}

func (p *Property) checkDefault(op string, t *Type, md *Metadata, v any) error {
	if err := p.checkType(op, t, v); err != nil {
		return err
	}
	if md.validate != nil && !md.validate(v) {
		return newError(op, p, t, ErrValidationFailed, "default value %v rejected", v)
	}
	return nil
}

// checkType reports ErrTypeMismatch unless v can be stored in the property.
// nil is accepted only for value types that can hold nil.
func (p *Property) checkType(op string, t *Type, v any) error {
	if v == nil {
		if nullable(p.valueType) {
			return nil
		}
		return newError(op, p, t, ErrTypeMismatch, "nil is not a valid %s", p.valueType)
	}
	if vt := reflect.TypeOf(v); !vt.AssignableTo(p.valueType) {
		return newError(op, p, t, ErrTypeMismatch, "%s is not assignable to %s", vt, p.valueType)
	}
	return nil
}

// IsValidValue reports whether v passes the type check and the validation
// predicate in effect for t.
func (p *Property) IsValidValue(t *Type, v any) bool {
	if IsUnset(v) {
		return true
	}
	if p.checkType("IsValidValue", t, v) != nil {
		return false
	}
	validate := p.GetMetadata(t).validate
	return validate == nil || validate(v)
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

func zeroValue(t reflect.Type) any {
	if t.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(t).Interface()
}

// Must panics if err is non-nil. It is meant for package-level registrations.
func Must(p *Property, err error) *Property {
	if err != nil {
		panic(err)
	}
	return p
}

// MustKey is Must for read-only registrations.
func MustKey(p *Property, k *Key, err error) (*Property, *Key) {
	if err != nil {
		panic(err)
	}
	return p, k
}

// MustType panics if err is non-nil.
func MustType(t *Type, err error) *Type {
	if err != nil {
		panic(err)
	}
	return t
}
