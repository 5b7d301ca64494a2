package property

// ChangedCallback runs after a property's effective value changes on an object.
type ChangedCallback func(o *Object, e ChangedEvent)

// CoerceFunc maps an accepted value to the value that is stored. Its result is
// not validated again.
type CoerceFunc func(o *Object, v any) any

// ValidateFunc rejects a value by returning false.
type ValidateFunc func(v any) bool

// Flags are boolean behaviors carried by metadata. They merge by logical OR:
// a descendant cannot clear a flag set by an ancestor.
type Flags uint8

const (
	AffectsMeasure Flags = 1 << iota
	AffectsArrange
	AffectsParentMeasure
	AffectsParentArrange
	InheritsFlag
	BindsTwoWayByDefault
)

// Metadata is the per-(property, type) bag of behavior. Each mergeable field
// remembers whether it was assigned, so an explicit nil default or an explicit
// nil coercion survives a merge. A record is frozen once it is stored and may
// not be reused.
//
// Merge semantics, applied when the record is stored and again whenever a
// record above it in the type chain is stored:
//   - default value, coercion, validation, data validation, binding mode:
//     own value if assigned, otherwise the ancestor's
//   - change callbacks: ancestor callbacks first, then own
//   - flags: OR of own and ancestor
type Metadata struct {
	defaultValue   any
	hasDefault     bool
	changed        []ChangedCallback
	coerce         CoerceFunc
	hasCoerce      bool
	validate       ValidateFunc
	hasValidate    bool
	bindingMode    BindingMode
	hasBindingMode bool
	dataValidation bool
	hasDataValid   bool
	flags          Flags
	frozen         bool
}

// MetadataOption assigns one field of a Metadata record.
type MetadataOption func(*Metadata)

// NewMetadata builds a record from options. Fields without an option stay
// unassigned and are filled from the ancestor record on merge.
func NewMetadata(opts ...MetadataOption) *Metadata {
	m := &Metadata{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithDefault assigns the default value. nil is a valid explicit default.
func WithDefault(v any) MetadataOption {
	return func(m *Metadata) {
		m.defaultValue = v
		m.hasDefault = true
	}
}

// WithChanged appends a change callback. May be given more than once.
func WithChanged(cb ChangedCallback) MetadataOption {
	return func(m *Metadata) {
		if cb != nil {
			m.changed = append(m.changed, cb)
		}
	}
}

// WithCoerce assigns the coercion callback. nil explicitly disables an
// inherited coercion.
func WithCoerce(fn CoerceFunc) MetadataOption {
	return func(m *Metadata) {
		m.coerce = fn
		m.hasCoerce = true
	}
}

// WithValidate assigns the validation predicate.
func WithValidate(fn ValidateFunc) MetadataOption {
	return func(m *Metadata) {
		m.validate = fn
		m.hasValidate = true
	}
}

// WithBindingMode assigns the default binding mode. BindingModeDefault
// explicitly resets an ancestor's mode.
func WithBindingMode(mode BindingMode) MetadataOption {
	return func(m *Metadata) {
		m.bindingMode = mode
		m.hasBindingMode = true
	}
}

// WithDataValidation marks the property as interested in data validation.
func WithDataValidation(enabled bool) MetadataOption {
	return func(m *Metadata) {
		m.dataValidation = enabled
		m.hasDataValid = true
	}
}

// WithFlags sets behavior flags.
func WithFlags(f Flags) MetadataOption {
	return func(m *Metadata) {
		m.flags |= f
	}
}

// DefaultValue returns the default value and whether one was assigned.
func (m *Metadata) DefaultValue() (any, bool) {
	return m.defaultValue, m.hasDefault
}

// ChangedCallbacks returns the change callbacks in invocation order.
func (m *Metadata) ChangedCallbacks() []ChangedCallback {
	out := make([]ChangedCallback, len(m.changed))
	copy(out, m.changed)
	return out
}

// Coerce returns the coercion callback, or nil.
func (m *Metadata) Coerce() CoerceFunc { return m.coerce }

// Validate returns the validation predicate, or nil.
func (m *Metadata) Validate() ValidateFunc { return m.validate }

// Flags returns the merged flags.
func (m *Metadata) Flags() Flags { return m.flags }

// Has reports whether all bits of f are set.
func (m *Metadata) Has(f Flags) bool { return m.flags&f == f }

// AffectsMeasure reports whether a change invalidates the object's measure.
func (m *Metadata) AffectsMeasure() bool { return m.Has(AffectsMeasure) }

// AffectsArrange reports whether a change invalidates the object's arrange.
func (m *Metadata) AffectsArrange() bool { return m.Has(AffectsArrange) }

// EnableDataValidation reports whether the property wants data validation.
func (m *Metadata) EnableDataValidation() bool { return m.dataValidation }

// DefaultBindingMode resolves the default binding mode. An unassigned mode is
// TwoWay when BindsTwoWayByDefault is set and OneWay otherwise.
func (m *Metadata) DefaultBindingMode() BindingMode {
	switch {
	case m.bindingMode != BindingModeDefault:
		return m.bindingMode
	case m.Has(BindsTwoWayByDefault):
		return BindingModeTwoWay
	default:
		return BindingModeOneWay
	}
}

// Frozen reports whether the record has been stored for a property.
func (m *Metadata) Frozen() bool { return m.frozen }

// merge fills unassigned fields from base. base is nil for root metadata.
func (m *Metadata) merge(base *Metadata) {
	if base == nil {
		return
	}
	if !m.hasDefault && base.hasDefault {
		m.defaultValue = base.defaultValue
		m.hasDefault = true
	}
	if !m.hasCoerce && base.hasCoerce {
		m.coerce = base.coerce
		m.hasCoerce = true
	}
	if !m.hasValidate && base.hasValidate {
		m.validate = base.validate
		m.hasValidate = true
	}
	if !m.hasDataValid && base.hasDataValid {
		m.dataValidation = base.dataValidation
		m.hasDataValid = true
	}
	if !m.hasBindingMode && base.hasBindingMode {
		m.bindingMode = base.bindingMode
		m.hasBindingMode = true
	}
	if len(base.changed) > 0 {
		merged := make([]ChangedCallback, 0, len(base.changed)+len(m.changed))
		merged = append(merged, base.changed...)
		m.changed = append(merged, m.changed...)
	}
	m.flags |= base.flags
}
