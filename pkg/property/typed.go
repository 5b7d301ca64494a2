package property

import "reflect"

// TypeOf returns the reflect.Type used to declare a property of type T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Get returns the value of p on o as T, or the zero T when the value has a
// different type.
func Get[T any](o *Object, p *Property) T {
	v, _ := o.GetValue(p).(T)
	return v
}

// Set sets p on o as a local value.
func Set[T any](o *Object, p *Property, v T) error {
	return o.SetValue(p, v)
}

// DirectAccessors adapts typed accessors on owner type O to the untyped
// Getter and Setter RegisterDirect takes. A nil set yields a nil Setter.
func DirectAccessors[O any, T any](get func(O) T, set func(O, T)) (Getter, Setter) {
	getter := func(owner any) any {
		o, ok := owner.(O)
		if !ok {
			var zero T
			return zero
		}
		return get(o)
	}
	if set == nil {
		return getter, nil
	}
	setter := func(owner any, v any) {
		o, ok := owner.(O)
		if !ok {
			return
		}
		t, _ := v.(T)
		set(o, t)
	}
	return getter, setter
}
