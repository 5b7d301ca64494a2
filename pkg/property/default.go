package property

import "reflect"

// Package-level functions operate on the Default registry.

func NewType(name string, base *Type) (*Type, error) {
	return Default().NewType(name, base)
}

func FindType(name string) (*Type, error) {
	return Default().FindType(name)
}

func RegisterStyled(name string, owner *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, error) {
	return Default().RegisterStyled(name, owner, valueType, md, opts...)
}

func RegisterReadOnly(name string, owner *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, *Key, error) {
	return Default().RegisterReadOnly(name, owner, valueType, md, opts...)
}

func RegisterAttached(name string, owner, host *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, error) {
	return Default().RegisterAttached(name, owner, host, valueType, md, opts...)
}

func RegisterAttachedReadOnly(name string, owner, host *Type, valueType reflect.Type, md *Metadata, opts ...Option) (*Property, *Key, error) {
	return Default().RegisterAttachedReadOnly(name, owner, host, valueType, md, opts...)
}

func RegisterDirect(name string, owner *Type, valueType reflect.Type, getter Getter, setter Setter, opts ...Option) (*Property, error) {
	return Default().RegisterDirect(name, owner, valueType, getter, setter, opts...)
}

func AddOwner(p *Property, owner *Type, md *Metadata) (*Property, error) {
	return Default().AddOwner(p, owner, md)
}

func AddOwnerWithKey(key *Key, owner *Type, md *Metadata) (*Property, error) {
	return Default().AddOwnerWithKey(key, owner, md)
}

func OverrideMetadata(p *Property, forType *Type, md *Metadata) error {
	return Default().OverrideMetadata(p, forType, md)
}

func OverrideMetadataWithKey(key *Key, forType *Type, md *Metadata) error {
	return Default().OverrideMetadataWithKey(key, forType, md)
}

func GetRegistered(t *Type) []*Property {
	return Default().GetRegistered(t)
}

func GetRegisteredAttached(t *Type) []*Property {
	return Default().GetRegisteredAttached(t)
}

func FindRegistered(t *Type, name string) (*Property, error) {
	return Default().FindRegistered(t, name)
}

func IsRegistered(t *Type, p *Property) bool {
	return Default().IsRegistered(t, p)
}
