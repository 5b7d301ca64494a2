package property

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// RootTypeName is the name of the root type every registry starts with.
const RootTypeName = "Object"

// Registry tracks types and the properties registered on them.
//
// Mutations (type creation, registration, owner and metadata changes) hold
// the write lock and flush every derived cache before returning. Lookups hold
// the read lock and may run concurrently. Derived per-type lists are built on
// first lookup and kept until the next mutation.
type Registry struct {
	mu     sync.RWMutex
	logger *zap.Logger

	root        *Type
	types       []*Type
	typesByName map[string]*Type

	nextIndex  int
	properties map[int]*Property
	registered map[int][]*Property // declared per type index, in declaration order
	attached   map[int][]*Property // attachable per host type index

	cache *gocache.Cache
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration and binding diagnostics.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns an empty registry holding only the root type.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:      zap.NewNop(),
		typesByName: make(map[string]*Type),
		properties:  make(map[int]*Property),
		registered:  make(map[int][]*Property),
		attached:    make(map[int][]*Property),
		cache:       gocache.New(gocache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.root = newType(r, 0, RootTypeName, nil)
	r.types = append(r.types, r.root)
	r.typesByName[RootTypeName] = r.root
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, creating it on first call.
// Package-level registration functions operate on it.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *zap.Logger { return r.logger }

// ObjectType returns the root type.
func (r *Registry) ObjectType() *Type { return r.root }

// NewType creates a type deriving from base, or from the root type when base
// is nil. Type names are unique within a registry.
func (r *Registry) NewType(name string, base *Type) (*Type, error) {
	const op = "NewType"
	if name == "" {
		return nil, newError(op, nil, nil, ErrInvalidArgument, "empty type name")
	}
	if base == nil {
		base = r.root
	}
	if base.registry != r {
		return nil, newError(op, nil, base, ErrInvalidArgument, "base type belongs to another registry")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.typesByName[name]; ok {
		return nil, newError(op, nil, nil, ErrAlreadyRegistered, "type %q", name)
	}
	t := newType(r, len(r.types), name, base)
	r.types = append(r.types, t)
	r.typesByName[name] = t
	r.cache.Flush()
	return t, nil
}

// FindType returns the type with the given name.
func (r *Registry) FindType(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.typesByName[name]
	if !ok {
		return nil, newError("FindType", nil, nil, ErrNotFound, "type %q", name)
	}
	return t, nil
}

// Types returns every type in creation order, root first.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.types)
}

// RegisterStyled registers a storage-backed property declared by owner.
func (r *Registry) RegisterStyled(name string, owner *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, error) {
	return r.register("RegisterStyled", name, owner, valueType, md, opts, nil)
}

// RegisterReadOnly registers a styled property whose writes require the
// returned Key.
func (r *Registry) RegisterReadOnly(name string, owner *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, *Key, error) {
	var key *Key
	p, err := r.register("RegisterReadOnly", name, owner, valueType, md, opts, func(p *Property) error {
		p.readOnly = true
		key = &Key{property: p}
		p.key = key
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return p, key, nil
}

// RegisterAttached registers a property declared by owner that can be set on
// host and its subtypes. The property is also findable by name on owner.
func (r *Registry) RegisterAttached(name string, owner, host *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, error) {
	return r.register("RegisterAttached", name, owner, valueType, md, opts, r.attachTo(host))
}

// RegisterAttachedReadOnly is RegisterAttached for a read-only property.
func (r *Registry) RegisterAttachedReadOnly(name string, owner, host *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, *Key, error) {
	var key *Key
	attach := r.attachTo(host)
	p, err := r.register("RegisterAttachedReadOnly", name, owner, valueType, md, opts, func(p *Property) error {
		if err := attach(p); err != nil {
			return err
		}
		p.readOnly = true
		key = &Key{property: p}
		p.key = key
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return p, key, nil
}

func (r *Registry) attachTo(host *Type) func(*Property) error {
	return func(p *Property) error {
		if host == nil || host.registry != r {
			return newError("RegisterAttached", p, host, ErrInvalidArgument, "invalid host type")
		}
		p.attached = true
		r.attached[host.index] = append(r.attached[host.index], p)
		return nil
	}
}

// RegisterDirect registers a property backed by getter and setter. A nil
// setter makes the property read-only. Direct properties never inherit.
func (r *Registry) RegisterDirect(name string, owner *Type, valueType reflect.Type, getter Getter, setter Setter, opts ...Option) (*Property, error) {
	const op = "RegisterDirect"
	if getter == nil {
		return nil, newError(op, nil, owner, ErrInvalidArgument, "direct property %q needs a getter", name)
	}
	var po propertyOptions
	for _, opt := range opts {
		opt(&po)
	}
	if po.inherits {
		return nil, newError(op, nil, owner, ErrInvalidArgument, "direct property %q cannot inherit", name)
	}
	mdOpts := []MetadataOption{WithBindingMode(po.bindingMode)}
	if po.dataValidation {
		mdOpts = append(mdOpts, WithDataValidation(true))
	}
	if po.validate != nil {
		mdOpts = append(mdOpts, WithValidate(po.validate))
	}
	if po.coerce != nil {
		mdOpts = append(mdOpts, WithCoerce(po.coerce))
	}
	return r.register(op, name, owner, valueType, NewMetadata(mdOpts...), opts, func(p *Property) error {
		p.direct = true
		p.getter = getter
		p.setter = setter
		p.readOnly = setter == nil
		if po.hasUnsetValue {
			p.unsetValue = po.unsetValue
		} else if valueType != nil {
			p.unsetValue = zeroValue(valueType)
		}
		return nil
	})
}

func (r *Registry) register(op, name string, owner *Type, valueType reflect.Type, md *Metadata, opts []Option, configure func(*Property) error) (*Property, error) {
	switch {
	case name == "":
		return nil, newError(op, nil, owner, ErrInvalidArgument, "empty property name")
	case strings.Contains(name, "."):
		return nil, newError(op, nil, owner, ErrInvalidArgument, "property name %q contains '.'", name)
	case owner == nil:
		return nil, newError(op, nil, nil, ErrInvalidArgument, "nil owner type for %q", name)
	case owner.registry != r:
		return nil, newError(op, nil, owner, ErrInvalidArgument, "owner type belongs to another registry")
	case valueType == nil:
		return nil, newError(op, nil, owner, ErrInvalidArgument, "nil value type for %q", name)
	}
	if md == nil {
		md = NewMetadata()
	}
	if md.frozen {
		return nil, newError(op, nil, owner, ErrInvalidOperation, "metadata for %q is already in use", name)
	}

	var po propertyOptions
	for _, opt := range opts {
		opt(&po)
	}

	// User validation runs unlocked so it may read the registry.
	p := newProperty(r, -1, name, owner, valueType, md, po)
	if v, ok := md.DefaultValue(); ok {
		if err := p.checkDefault(op, owner, md, v); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if md.frozen {
		return nil, newError(op, nil, owner, ErrInvalidOperation, "metadata for %q is already in use", name)
	}
	for _, existing := range r.registered[owner.index] {
		if existing.owner == owner && existing.name == name {
			return nil, newError(op, existing, owner, ErrAlreadyRegistered, "")
		}
	}

	p.index = r.nextIndex
	if configure != nil {
		if err := configure(p); err != nil {
			return nil, err
		}
	}

	md.frozen = true
	r.nextIndex++
	r.properties[p.index] = p
	r.registered[owner.index] = append(r.registered[owner.index], p)
	r.cache.Flush()

	r.logger.Debug("property registered",
		zap.String("property", p.String()),
		zap.Int("index", p.index),
		zap.Stringer("value_type", valueType),
		zap.Bool("attached", p.attached),
		zap.Bool("direct", p.direct),
		zap.Bool("read_only", p.readOnly),
	)
	return p, nil
}

// AddOwner registers p on owner, overriding its metadata for owner first when
// md is non-nil. Direct properties cannot be re-owned and read-only
// properties need AddOwnerWithKey.
func (r *Registry) AddOwner(p *Property, owner *Type, md *Metadata) (*Property, error) {
	const op = "AddOwner"
	if p == nil {
		return nil, newError(op, nil, owner, ErrInvalidArgument, "nil property")
	}
	if p.readOnly {
		return nil, newError(op, p, owner, ErrInvalidOperation, "read-only property needs its key")
	}
	return r.addOwner(op, p, owner, md)
}

// AddOwnerWithKey is AddOwner for a read-only property.
func (r *Registry) AddOwnerWithKey(key *Key, owner *Type, md *Metadata) (*Property, error) {
	const op = "AddOwnerWithKey"
	if key == nil || key.property == nil {
		return nil, newError(op, nil, owner, ErrInvalidArgument, "nil key")
	}
	return r.addOwner(op, key.property, owner, md)
}

func (r *Registry) addOwner(op string, p *Property, owner *Type, md *Metadata) (*Property, error) {
	if p.direct {
		return nil, newError(op, p, owner, ErrInvalidOperation, "direct properties cannot be re-owned")
	}
	if owner == nil || owner.registry != r || p.registry != r {
		return nil, newError(op, p, owner, ErrInvalidArgument, "invalid owner type")
	}

	if md != nil {
		if err := r.applyOverride(op, p, owner, md); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.registered[owner.index], p) {
		r.registered[owner.index] = append(r.registered[owner.index], p)
	}
	r.cache.Flush()

	r.logger.Debug("property owner added",
		zap.String("property", p.String()),
		zap.String("owner", owner.name),
		zap.Bool("metadata", md != nil),
	)
	return p, nil
}

// OverrideMetadata registers md for forType and freezes it. md is merged
// against the nearest ancestor record; records already stored for subtypes of
// forType are merged again, so the result does not depend on override order.
func (r *Registry) OverrideMetadata(p *Property, forType *Type, md *Metadata) error {
	const op = "OverrideMetadata"
	if p == nil {
		return newError(op, nil, forType, ErrInvalidArgument, "nil property")
	}
	if p.readOnly {
		return newError(op, p, forType, ErrInvalidOperation, "read-only property needs its key")
	}
	return r.overrideMetadata(p, forType, md)
}

// OverrideMetadataWithKey is OverrideMetadata for a read-only property.
func (r *Registry) OverrideMetadataWithKey(key *Key, forType *Type, md *Metadata) error {
	if key == nil || key.property == nil {
		return newError("OverrideMetadataWithKey", nil, forType, ErrInvalidArgument, "nil key")
	}
	return r.overrideMetadata(key.property, forType, md)
}

func (r *Registry) overrideMetadata(p *Property, forType *Type, md *Metadata) error {
	if p.direct {
		return newError("OverrideMetadata", p, forType, ErrInvalidOperation, "direct properties have no metadata overrides")
	}
	if forType == nil || forType.registry != r {
		return newError("OverrideMetadata", p, forType, ErrInvalidArgument, "invalid type")
	}

	if err := r.applyOverride("OverrideMetadata", p, forType, md); err != nil {
		return err
	}
	r.logger.Debug("metadata overridden",
		zap.String("property", p.String()),
		zap.String("type", forType.name),
	)
	return nil
}

// applyOverride merges md for t and checks the resulting default without
// holding any lock, since validation is user code, then commits under the
// write lock. A concurrent override of the same property forces a retry.
func (r *Registry) applyOverride(op string, p *Property, t *Type, md *Metadata) error {
	for {
		merged, generation, err := p.planOverride(op, t, md)
		if err != nil {
			return err
		}
		if v, ok := merged.DefaultValue(); ok {
			if err := p.checkDefault(op, t, merged, v); err != nil {
				return err
			}
		}

		r.mu.Lock()
		committed, err := p.commitOverride(op, t, md, generation)
		if committed {
			r.cache.Flush()
		}
		r.mu.Unlock()
		if err != nil || committed {
			return err
		}
	}
}

// GetRegistered returns the properties declared on t and its bases, derived
// level first, each level in declaration order, without duplicates.
func (r *Registry) GetRegistered(t *Type) []*Property {
	return r.collect("registered:", t, r.registered)
}

// GetRegisteredAttached returns the attached properties usable on t and its
// bases, in the same order as GetRegistered.
func (r *Registry) GetRegisteredAttached(t *Type) []*Property {
	return r.collect("attached:", t, r.attached)
}

func (r *Registry) collect(prefix string, t *Type, index map[int][]*Property) []*Property {
	if t == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.collectLocked(prefix, t, index))
}

// collectLocked returns the cached list for t, building it on a miss. The
// returned slice is shared with the cache. Callers hold at least the read lock.
func (r *Registry) collectLocked(prefix string, t *Type, index map[int][]*Property) []*Property {
	key := prefix + strconv.Itoa(t.index)
	if v, found := r.cache.Get(key); found {
		if list, ok := v.([]*Property); ok {
			return list
		}
	}

	var list []*Property
	seen := make(map[int]bool)
	for _, level := range t.ancestors {
		for _, p := range index[level.index] {
			if seen[p.index] {
				continue
			}
			seen[p.index] = true
			list = append(list, p)
		}
	}
	r.cache.Set(key, list, gocache.NoExpiration)
	return list
}

// FindRegistered returns the property named name among GetRegistered(t).
// Dotted names are rejected; attached properties are only found on types
// they were registered or re-owned on.
func (r *Registry) FindRegistered(t *Type, name string) (*Property, error) {
	const op = "FindRegistered"
	if t == nil {
		return nil, newError(op, nil, nil, ErrInvalidArgument, "nil type")
	}
	if strings.Contains(name, ".") {
		return nil, newError(op, nil, t, ErrInvalidArgument, "qualified name %q is not supported", name)
	}
	for _, p := range r.GetRegistered(t) {
		if p.name == name {
			return p, nil
		}
	}
	return nil, newError(op, nil, t, ErrNotFound, "property %q", name)
}

// FindRegisteredByIndex returns the property with the given index.
func (r *Registry) FindRegisteredByIndex(index int) (*Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.properties[index]
	return p, ok
}

// IsRegistered reports whether p is registered or attachable on t.
func (r *Registry) IsRegistered(t *Type, p *Property) bool {
	if t == nil || p == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.collectLocked("registered:", t, r.registered), p) ||
		slices.Contains(r.collectLocked("attached:", t, r.attached), p)
}

// Properties returns every registered property in index order.
func (r *Registry) Properties() []*Property {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Property, 0, len(r.properties))
	for _, p := range r.properties {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Property) int { return a.index - b.index })
	return out
}

type initialValue struct {
	property *Property
	value    any
}

// initializedSnapshot returns the default value of every property usable on
// t, registered first and attached after.
func (r *Registry) initializedSnapshot(t *Type) []initialValue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := "initialized:" + strconv.Itoa(t.index)
	if v, found := r.cache.Get(key); found {
		if items, ok := v.([]initialValue); ok {
			return items
		}
	}

	registered := r.collectLocked("registered:", t, r.registered)
	attached := r.collectLocked("attached:", t, r.attached)
	items := make([]initialValue, 0, len(registered)+len(attached))
	seen := make(map[int]bool, cap(items))
	for _, p := range slices.Concat(registered, attached) {
		if seen[p.index] {
			continue
		}
		seen[p.index] = true
		var v any
		if !p.direct {
			v = p.DefaultValue(t)
		}
		items = append(items, initialValue{property: p, value: v})
	}
	r.cache.Set(key, items, gocache.NoExpiration)
	return items
}

// NotifyObjectInitialized fires each property's Initialized observable for o
// with the property's default. Direct properties report the live getter value.
func (r *Registry) NotifyObjectInitialized(o *Object) {
	if o == nil || o.typ == nil {
		return
	}
	for _, item := range r.initializedSnapshot(o.typ) {
		v := item.value
		if item.property.direct {
			v = o.GetValue(item.property)
		}
		item.property.initialized.Publish(ChangedEvent{
			Sender:   o,
			Property: item.property,
			OldValue: UnsetValue,
			NewValue: v,
			Priority: PriorityUnset,
		})
	}
}
