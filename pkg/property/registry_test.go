// Tests for type creation, property registration and registry lookups.
package property

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture mirrors a small hierarchy: Class2 and Class3 derive Class1,
// AttachedOwner declares an attached property hosted on Class1.
type fixture struct {
	r *Registry

	class1, class2, class3, attachedOwner *Type

	foo, baz, qux   *Property
	bar, flob, fred *Property
	attached        *Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := NewRegistry()
	f := &fixture{r: r}

	f.class1 = MustType(r.NewType("Class1", nil))
	f.class2 = MustType(r.NewType("Class2", f.class1))
	f.class3 = MustType(r.NewType("Class3", f.class1))
	f.attachedOwner = MustType(r.NewType("AttachedOwner", f.class1))

	f.foo = Must(r.RegisterStyled("Foo", f.class1, TypeOf[string](), nil))
	f.baz = Must(r.RegisterStyled("Baz", f.class1, TypeOf[string](), nil))
	f.qux = Must(r.RegisterStyled("Qux", f.class1, TypeOf[int](), nil))

	f.bar = Must(r.RegisterStyled("Bar", f.class2, TypeOf[string](), nil))
	f.flob = Must(r.RegisterStyled("Flob", f.class2, TypeOf[float64](), nil))
	f.fred = Must(r.RegisterStyled("Fred", f.class2, TypeOf[*float64](), nil))

	f.attached = Must(r.RegisterAttached("Attached", f.attachedOwner, f.class1, TypeOf[string](), nil))
	_, err := r.AddOwner(f.attached, f.class3, nil)
	require.NoError(t, err)
	return f
}

func names(ps []*Property) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

func TestNewRegistry_RootType(t *testing.T) {
	r := NewRegistry()

	root := r.ObjectType()
	require.NotNil(t, root)
	assert.Equal(t, RootTypeName, root.Name())
	assert.Nil(t, root.Base())
	assert.Equal(t, []*Type{root}, r.Types())
}

func TestRegistry_NewType(t *testing.T) {
	r := NewRegistry()

	a := MustType(r.NewType("A", nil))
	b := MustType(r.NewType("B", a))

	assert.Same(t, r.ObjectType(), a.Base())
	assert.Equal(t, []*Type{b, a, r.ObjectType()}, b.Ancestors())
	assert.True(t, b.IsSubtypeOf(a))
	assert.True(t, b.IsSubtypeOf(b))
	assert.True(t, b.IsSubtypeOf(r.ObjectType()))
	assert.False(t, a.IsSubtypeOf(b))

	_, err := r.NewType("A", nil)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = r.NewType("", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	other := NewRegistry()
	_, err = other.NewType("C", a)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	found, err := r.FindType("B")
	require.NoError(t, err)
	assert.Same(t, b, found)

	_, err = r.FindType("Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_GetRegistered(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		typ  *Type
		want []string
	}{
		{"declared properties", f.class1, []string{"Foo", "Baz", "Qux"}},
		{"derived first then base", f.class2, []string{"Bar", "Flob", "Fred", "Foo", "Baz", "Qux"}},
		{"re-owned attached", f.class3, []string{"Attached", "Foo", "Baz", "Qux"}},
		{"attached on declaring type", f.attachedOwner, []string{"Attached", "Foo", "Baz", "Qux"}},
		{"root", f.r.ObjectType(), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(f.r.GetRegistered(tt.typ)))
		})
	}
}

func TestRegistry_GetRegistered_NoDuplicates(t *testing.T) {
	f := newFixture(t)

	// Re-owning a property on a type that already declares it is a no-op.
	_, err := f.r.AddOwner(f.foo, f.class1, nil)
	require.NoError(t, err)
	// Re-owning a base property on a derived type lists it once.
	_, err = f.r.AddOwner(f.foo, f.class2, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Foo", "Baz", "Qux"}, names(f.r.GetRegistered(f.class1)))
	assert.Equal(t, []string{"Bar", "Flob", "Fred", "Foo", "Baz", "Qux"}, names(f.r.GetRegistered(f.class2)))
}

func TestRegistry_GetRegisteredAttached(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{"Attached"}, names(f.r.GetRegisteredAttached(f.class1)))
	assert.Equal(t, []string{"Attached"}, names(f.r.GetRegisteredAttached(f.class2)))
	assert.Empty(t, f.r.GetRegisteredAttached(f.r.ObjectType()))
}

func TestRegistry_GetRegistered_ReturnsCopy(t *testing.T) {
	f := newFixture(t)

	list := f.r.GetRegistered(f.class1)
	list[0] = nil

	assert.Equal(t, []string{"Foo", "Baz", "Qux"}, names(f.r.GetRegistered(f.class1)))
}

func TestRegistry_CacheInvalidatedByRegistration(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, []string{"Bar", "Flob", "Fred", "Foo", "Baz", "Qux"}, names(f.r.GetRegistered(f.class2)))

	Must(f.r.RegisterStyled("Late", f.class1, TypeOf[bool](), nil))

	assert.Equal(t, []string{"Bar", "Flob", "Fred", "Foo", "Baz", "Qux", "Late"}, names(f.r.GetRegistered(f.class2)))
}

func TestRegistry_FindRegistered(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		typ     *Type
		prop    string
		want    *Property
		wantErr error
	}{
		{"declared", f.class1, "Foo", f.foo, nil},
		{"inherited", f.class2, "Qux", f.qux, nil},
		{"not on base", f.class1, "Bar", nil, ErrNotFound},
		{"attached on declaring type", f.attachedOwner, "Attached", f.attached, nil},
		{"attached re-owned", f.class3, "Attached", f.attached, nil},
		{"attached not re-owned", f.class2, "Attached", nil, ErrNotFound},
		{"qualified name", f.class1, "AttachedOwner.Attached", nil, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.r.FindRegistered(tt.typ, tt.prop)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestRegistry_FindRegisteredByIndex(t *testing.T) {
	f := newFixture(t)

	p, ok := f.r.FindRegisteredByIndex(f.bar.Index())
	require.True(t, ok)
	assert.Same(t, f.bar, p)

	_, ok = f.r.FindRegisteredByIndex(10_000)
	assert.False(t, ok)
	_, ok = f.r.FindRegisteredByIndex(-1)
	assert.False(t, ok)
}

func TestRegistry_IsRegistered(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.r.IsRegistered(f.class2, f.bar))
	assert.True(t, f.r.IsRegistered(f.class2, f.foo))
	assert.True(t, f.r.IsRegistered(f.class2, f.attached), "attached via host Class1")
	assert.False(t, f.r.IsRegistered(f.class1, f.bar))
	assert.False(t, f.r.IsRegistered(f.r.ObjectType(), f.foo))
	assert.False(t, f.r.IsRegistered(nil, f.foo))
}

func TestRegistry_Properties(t *testing.T) {
	f := newFixture(t)

	props := f.r.Properties()
	assert.Equal(t, []string{"Foo", "Baz", "Qux", "Bar", "Flob", "Fred", "Attached"}, names(props))
	for i := 1; i < len(props); i++ {
		assert.Greater(t, props[i].Index(), props[i-1].Index())
	}
}

func TestRegistry_SameNameOnUnrelatedTypes(t *testing.T) {
	r := NewRegistry()
	a := MustType(r.NewType("A", nil))
	b := MustType(r.NewType("B", nil))

	pa := Must(r.RegisterStyled("Value", a, TypeOf[int](), nil))
	pb := Must(r.RegisterStyled("Value", b, TypeOf[int](), nil))

	assert.NotSame(t, pa, pb)
	assert.NotEqual(t, pa.Index(), pb.Index())
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))
	foreign := MustType(NewRegistry().NewType("Foreign", nil))
	Must(r.RegisterStyled("Taken", owner, TypeOf[int](), nil))
	used := NewMetadata()
	Must(r.RegisterStyled("UsesMetadata", owner, TypeOf[int](), used))

	tests := []struct {
		name     string
		propName string
		owner    *Type
		md       *Metadata
		wantErr  error
	}{
		{"empty name", "", owner, nil, ErrInvalidArgument},
		{"dotted name", "A.B", owner, nil, ErrInvalidArgument},
		{"nil owner", "X", nil, nil, ErrInvalidArgument},
		{"foreign owner", "X", foreign, nil, ErrInvalidArgument},
		{"default of wrong type", "X", owner, NewMetadata(WithDefault("nope")), ErrTypeMismatch},
		{"nil default for value type", "X", owner, NewMetadata(WithDefault(nil)), ErrTypeMismatch},
		{"default rejected by validation", "X", owner,
			NewMetadata(WithDefault(-1), WithValidate(func(v any) bool { return v.(int) >= 0 })), ErrValidationFailed},
		{"duplicate name on owner", "Taken", owner, nil, ErrAlreadyRegistered},
		{"frozen metadata", "X", owner, used, ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(r.Properties())
			_, err := r.RegisterStyled(tt.propName, tt.owner, TypeOf[int](), tt.md)
			assert.ErrorIs(t, err, tt.wantErr)
			var pe *PropertyError
			assert.True(t, errors.As(err, &pe))
			assert.Len(t, r.Properties(), before, "failed registration must not commit")
		})
	}

	_, err := r.RegisterStyled("X", owner, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistry_AlreadyRegisteredIsInvalidOperation(t *testing.T) {
	assert.ErrorIs(t, ErrAlreadyRegistered, ErrInvalidOperation)
}

func TestRegistry_RegisterReadOnly(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))

	p, key, err := r.RegisterReadOnly("Count", owner, TypeOf[int](), nil)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.True(t, p.IsReadOnly())
	assert.Same(t, p, key.Property())
}

func TestRegistry_RegisterAttachedReadOnly(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))
	host := MustType(r.NewType("Host", nil))

	p, key, err := r.RegisterAttachedReadOnly("Row", owner, host, TypeOf[int](), nil)
	require.NoError(t, err)
	assert.True(t, p.IsAttached())
	assert.True(t, p.IsReadOnly())
	assert.True(t, r.IsRegistered(host, p))
	assert.Same(t, p, key.Property())

	_, _, err = r.RegisterAttachedReadOnly("Column", owner, nil, TypeOf[int](), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistry_AddOwner(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))
	other := MustType(r.NewType("Other", nil))

	t.Run("styled with metadata", func(t *testing.T) {
		p := Must(r.RegisterStyled("Width", owner, TypeOf[float64](), NewMetadata(WithDefault(1.0), WithFlags(AffectsMeasure))))

		got, err := r.AddOwner(p, other, NewMetadata(WithDefault(2.0)))
		require.NoError(t, err)
		assert.Same(t, p, got)

		md := p.GetMetadata(other)
		def, ok := md.DefaultValue()
		assert.True(t, ok)
		assert.Equal(t, 2.0, def)
		assert.True(t, md.AffectsMeasure(), "flags merged from owner metadata")
		assert.True(t, r.IsRegistered(other, p))
	})

	t.Run("direct", func(t *testing.T) {
		get, set := DirectAccessors(func(o *Object) int { return 0 }, func(o *Object, v int) {})
		p := Must(r.RegisterDirect("Direct", owner, TypeOf[int](), get, set))

		_, err := r.AddOwner(p, other, nil)
		assert.ErrorIs(t, err, ErrInvalidOperation)
		assert.False(t, r.IsRegistered(other, p))
	})

	t.Run("read-only needs key", func(t *testing.T) {
		p, key, err := r.RegisterReadOnly("Locked", owner, TypeOf[int](), nil)
		require.NoError(t, err)

		_, err = r.AddOwner(p, other, nil)
		assert.ErrorIs(t, err, ErrInvalidOperation)

		_, err = r.AddOwnerWithKey(key, other, nil)
		require.NoError(t, err)
		assert.True(t, r.IsRegistered(other, p))
	})

	t.Run("duplicate metadata is rejected", func(t *testing.T) {
		p := Must(r.RegisterStyled("Height", owner, TypeOf[float64](), nil))
		_, err := r.AddOwner(p, other, NewMetadata(WithDefault(3.0)))
		require.NoError(t, err)

		_, err = r.AddOwner(p, other, NewMetadata(WithDefault(4.0)))
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
	})
}

func TestRegistry_RegisterDirect(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))

	get, _ := DirectAccessors[*Object, int](func(o *Object) int { return 0 }, nil)

	p, err := r.RegisterDirect("ReadOnly", owner, TypeOf[int](), get, nil)
	require.NoError(t, err)
	assert.True(t, p.IsDirect())
	assert.True(t, p.IsReadOnly())
	assert.False(t, p.Inherits())

	_, err = r.RegisterDirect("NoGetter", owner, TypeOf[int](), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.RegisterDirect("Inheriting", owner, TypeOf[int](), get, nil, Inherits())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	withMode := Must(r.RegisterDirect("Mode", owner, TypeOf[int](), get, nil,
		WithDefaultBindingMode(BindingModeTwoWay), WithDirectDataValidation()))
	md := withMode.GetMetadata(owner)
	assert.Equal(t, BindingModeTwoWay, md.DefaultBindingMode())
	assert.True(t, md.EnableDataValidation())
}

func TestRegistry_NotifyObjectInitialized(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.OverrideMetadata(f.qux, f.class2, NewMetadata(WithDefault(7))))

	got := map[string]any{}
	for _, p := range []*Property{f.foo, f.qux, f.bar, f.attached} {
		p.Initialized().Subscribe(func(e ChangedEvent) {
			assert.True(t, IsUnset(e.OldValue))
			assert.Equal(t, PriorityUnset, e.Priority)
			got[e.Property.Name()] = e.NewValue
		})
	}

	_, err := NewObject(f.class2)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"Foo":      "",
		"Qux":      7,
		"Bar":      "",
		"Attached": "",
	}, got)
}

func TestRegistry_ConcurrentRegistrationAndLookup(t *testing.T) {
	r := NewRegistry()
	base := MustType(r.NewType("Base", nil))
	Must(r.RegisterStyled("Shared", base, TypeOf[int](), nil))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			typ := MustType(r.NewType(fmt.Sprintf("T%d", i), base))
			for j := range 10 {
				Must(r.RegisterStyled(fmt.Sprintf("P%d", j), typ, TypeOf[int](), nil))
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_ = r.GetRegistered(base)
				_, _ = r.FindRegistered(base, "Shared")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.Properties(), 81)
	for i := range 8 {
		typ, err := r.FindType(fmt.Sprintf("T%d", i))
		require.NoError(t, err)
		assert.Len(t, r.GetRegistered(typ), 11)
	}
}

func TestRegistry_ValidatorMayReadRegistry(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))
	derived := MustType(r.NewType("Derived", owner))

	readsRegistry := func(v any) bool {
		_ = r.GetRegistered(owner)
		_, _ = r.FindRegistered(owner, "Other")
		return v.(int) >= 0
	}

	done := make(chan error, 1)
	go func() {
		p, err := r.RegisterStyled("Value", owner, TypeOf[int](), NewMetadata(
			WithDefault(1),
			WithValidate(readsRegistry),
		))
		if err != nil {
			done <- err
			return
		}
		if err := r.OverrideMetadata(p, derived, NewMetadata(WithDefault(2))); err != nil {
			done <- err
			return
		}
		_, err = r.AddOwner(p, MustType(r.NewType("Other", nil)), NewMetadata(WithDefault(3)))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("registration blocked while the validator read the registry")
	}

	p, err := r.FindRegistered(derived, "Value")
	require.NoError(t, err)
	assert.Equal(t, 2, p.DefaultValue(derived))
}

func TestRegistry_DuplicateCheckedAfterValidation(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))

	var nested *Property
	_, err := r.RegisterStyled("Value", owner, TypeOf[int](), NewMetadata(
		WithDefault(1),
		WithValidate(func(v any) bool {
			if nested == nil {
				nested = Must(r.RegisterStyled("Value", owner, TypeOf[int](), nil))
			}
			return true
		}),
	))

	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	require.NotNil(t, nested)
	assert.Equal(t, []*Property{nested}, r.GetRegistered(owner))
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, Default(), Default())

	typ, err := NewType("DefaultRegistrySample", nil)
	require.NoError(t, err)
	p, err := RegisterStyled("Sample", typ, TypeOf[string](), nil)
	require.NoError(t, err)

	found, err := FindRegistered(typ, "Sample")
	require.NoError(t, err)
	assert.Same(t, p, found)
	assert.True(t, IsRegistered(typ, p))
	assert.Equal(t, []*Property{p}, GetRegistered(typ))
}
