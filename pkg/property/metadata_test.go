// Tests for metadata merging, overrides and lookup.
package property

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMetadata_Merge(t *testing.T) {
	var calls []string
	record := func(name string) ChangedCallback {
		return func(o *Object, e ChangedEvent) { calls = append(calls, name) }
	}
	baseCoerce := func(o *Object, v any) any { return v }
	baseValidate := func(v any) bool { return true }

	base := NewMetadata(
		WithDefault(1),
		WithChanged(record("base")),
		WithCoerce(baseCoerce),
		WithValidate(baseValidate),
		WithBindingMode(BindingModeTwoWay),
		WithDataValidation(true),
		WithFlags(AffectsMeasure),
	)

	t.Run("unassigned fields come from base", func(t *testing.T) {
		md := NewMetadata()
		md.merge(base)

		v, ok := md.DefaultValue()
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		assert.NotNil(t, md.Coerce())
		assert.NotNil(t, md.Validate())
		assert.Equal(t, BindingModeTwoWay, md.DefaultBindingMode())
		assert.True(t, md.EnableDataValidation())
		assert.True(t, md.AffectsMeasure())
	})

	t.Run("assigned fields win", func(t *testing.T) {
		md := NewMetadata(
			WithDefault(2),
			WithBindingMode(BindingModeOneTime),
			WithDataValidation(false),
		)
		md.merge(base)

		v, _ := md.DefaultValue()
		assert.Equal(t, 2, v)
		assert.Equal(t, BindingModeOneTime, md.DefaultBindingMode())
		assert.False(t, md.EnableDataValidation())
	})

	t.Run("explicit nil survives", func(t *testing.T) {
		md := NewMetadata(WithDefault(nil), WithCoerce(nil), WithValidate(nil))
		md.merge(base)

		v, ok := md.DefaultValue()
		assert.True(t, ok)
		assert.Nil(t, v)
		assert.Nil(t, md.Coerce())
		assert.Nil(t, md.Validate())
	})

	t.Run("callbacks run base first", func(t *testing.T) {
		calls = nil
		md := NewMetadata(WithChanged(record("derived")))
		md.merge(base)

		for _, cb := range md.ChangedCallbacks() {
			cb(nil, ChangedEvent{})
		}
		assert.Equal(t, []string{"base", "derived"}, calls)
	})

	t.Run("flags are OR-merged", func(t *testing.T) {
		md := NewMetadata(WithFlags(AffectsArrange))
		md.merge(base)

		assert.True(t, md.AffectsMeasure())
		assert.True(t, md.AffectsArrange())
		assert.Equal(t, AffectsMeasure|AffectsArrange, md.Flags())
	})

	t.Run("explicit default binding mode resets the base", func(t *testing.T) {
		md := NewMetadata(WithBindingMode(BindingModeDefault))
		md.merge(NewMetadata(WithBindingMode(BindingModeOneTime)))

		assert.Equal(t, BindingModeOneWay, md.DefaultBindingMode())
	})

	t.Run("nil base is a no-op", func(t *testing.T) {
		md := NewMetadata()
		md.merge(nil)

		_, ok := md.DefaultValue()
		assert.False(t, ok)
	})
}

func TestMetadata_DefaultBindingMode(t *testing.T) {
	tests := []struct {
		name string
		md   *Metadata
		want BindingMode
	}{
		{"unassigned", NewMetadata(), BindingModeOneWay},
		{"two-way flag", NewMetadata(WithFlags(BindsTwoWayByDefault)), BindingModeTwoWay},
		{"explicit wins over flag", NewMetadata(WithFlags(BindsTwoWayByDefault), WithBindingMode(BindingModeOneTime)), BindingModeOneTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.md.DefaultBindingMode())
		})
	}
}

func TestOverrideMetadata(t *testing.T) {
	r := NewRegistry()
	class1 := MustType(r.NewType("Class1", nil))
	class2 := MustType(r.NewType("Class2", class1))
	class4 := MustType(r.NewType("Class4", class2))

	var calls []string
	p := Must(r.RegisterStyled("Value", class1, TypeOf[int](), NewMetadata(
		WithDefault(1),
		WithChanged(func(o *Object, e ChangedEvent) { calls = append(calls, "class1") }),
	)))

	// Populate the lookup cache for class4 before the override.
	require.Same(t, p.GetMetadata(class1), p.GetMetadata(class4))

	require.NoError(t, r.OverrideMetadata(p, class2, NewMetadata(
		WithDefault(2),
		WithChanged(func(o *Object, e ChangedEvent) { calls = append(calls, "class2") }),
	)))

	assert.Same(t, p.GetMetadata(class2), p.GetMetadata(class4), "cache invalidated by override")
	assert.Equal(t, 1, p.DefaultValue(class1))
	assert.Equal(t, 2, p.DefaultValue(class2))
	assert.Equal(t, 2, p.DefaultValue(class4))
	assert.True(t, p.HasOwnMetadata(class2))
	assert.False(t, p.HasOwnMetadata(class4))

	o, err := NewObject(class4)
	require.NoError(t, err)
	require.NoError(t, o.SetValue(p, 5))
	assert.Equal(t, []string{"class1", "class2"}, calls)
}

func TestOverrideMetadata_Errors(t *testing.T) {
	r := NewRegistry()
	base := MustType(r.NewType("Base", nil))
	derived := MustType(r.NewType("Derived", base))

	t.Run("already registered", func(t *testing.T) {
		p := Must(r.RegisterStyled("Twice", base, TypeOf[int](), nil))
		require.NoError(t, r.OverrideMetadata(p, derived, NewMetadata()))

		err := r.OverrideMetadata(p, derived, NewMetadata())
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})

	t.Run("owner already has metadata", func(t *testing.T) {
		p := Must(r.RegisterStyled("Owned", base, TypeOf[int](), nil))
		assert.ErrorIs(t, r.OverrideMetadata(p, base, NewMetadata()), ErrAlreadyRegistered)
	})

	t.Run("frozen metadata", func(t *testing.T) {
		p := Must(r.RegisterStyled("Frozen", base, TypeOf[int](), nil))
		other := MustType(r.NewType("Other", base))
		md := NewMetadata()
		require.NoError(t, r.OverrideMetadata(p, derived, md))
		assert.True(t, md.Frozen())

		assert.ErrorIs(t, r.OverrideMetadata(p, other, md), ErrInvalidOperation)
	})

	t.Run("invalid default", func(t *testing.T) {
		p := Must(r.RegisterStyled("Checked", base, TypeOf[int](), NewMetadata(
			WithValidate(func(v any) bool { return v.(int) >= 0 }),
		)))

		assert.ErrorIs(t, r.OverrideMetadata(p, derived, NewMetadata(WithDefault("x"))), ErrTypeMismatch)
		assert.ErrorIs(t, r.OverrideMetadata(p, derived, NewMetadata(WithDefault(-5))), ErrValidationFailed)
		assert.False(t, p.HasOwnMetadata(derived), "failed override must not commit")
	})

	t.Run("read-only needs key", func(t *testing.T) {
		p, key, err := r.RegisterReadOnly("Locked", base, TypeOf[int](), nil)
		require.NoError(t, err)

		assert.ErrorIs(t, r.OverrideMetadata(p, derived, NewMetadata(WithDefault(3))), ErrInvalidOperation)
		require.NoError(t, r.OverrideMetadataWithKey(key, derived, NewMetadata(WithDefault(3))))
		assert.Equal(t, 3, p.DefaultValue(derived))
	})

	t.Run("direct", func(t *testing.T) {
		get, set := DirectAccessors(func(o *Object) int { return 0 }, func(o *Object, v int) {})
		p := Must(r.RegisterDirect("Direct", base, TypeOf[int](), get, set))

		assert.ErrorIs(t, r.OverrideMetadata(p, derived, NewMetadata()), ErrInvalidOperation)
	})

	t.Run("nil metadata", func(t *testing.T) {
		p := Must(r.RegisterStyled("NilMetadata", base, TypeOf[int](), nil))
		assert.ErrorIs(t, r.OverrideMetadata(p, derived, nil), ErrInvalidArgument)
	})
}

func TestProperty_DefaultValueFallsBackToZero(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))

	tests := []struct {
		name string
		p    *Property
		want any
	}{
		{"int", Must(r.RegisterStyled("Int", owner, TypeOf[int](), nil)), 0},
		{"string", Must(r.RegisterStyled("String", owner, TypeOf[string](), nil)), ""},
		{"pointer", Must(r.RegisterStyled("Pointer", owner, TypeOf[*int](), nil)), (*int)(nil)},
		{"interface", Must(r.RegisterStyled("Any", owner, TypeOf[any](), nil)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.DefaultValue(owner))
		})
	}
}

func TestProperty_IsValidValue(t *testing.T) {
	r := NewRegistry()
	owner := MustType(r.NewType("Owner", nil))
	p := Must(r.RegisterStyled("Positive", owner, TypeOf[float64](), NewMetadata(
		WithValidate(func(v any) bool { return v.(float64) >= 0 }),
	)))

	assert.True(t, p.IsValidValue(owner, 1.5))
	assert.True(t, p.IsValidValue(owner, UnsetValue))
	assert.False(t, p.IsValidValue(owner, -1.0))
	assert.False(t, p.IsValidValue(owner, 1), "int is not a float64")
	assert.False(t, p.IsValidValue(owner, nil))
}

// TestOverrideMetadata_MergeDownChain checks that along any inheritance
// chain a level that leaves a field unassigned sees the value of the nearest
// level above it that assigned one, and that flags accumulate.
func TestOverrideMetadata_MergeDownChain(t *testing.T) {
	allFlags := []Flags{AffectsMeasure, AffectsArrange, AffectsParentMeasure, AffectsParentArrange}

	rapid.Check(t, func(rt *rapid.T) {
		r := NewRegistry()
		depth := rapid.IntRange(1, 8).Draw(rt, "depth")

		types := make([]*Type, depth)
		var base *Type
		for i := range types {
			types[i] = MustType(r.NewType(fmt.Sprintf("Level%d", i), base))
			base = types[i]
		}

		var p *Property
		lastDefault := -1
		var flags Flags
		for i, typ := range types {
			var opts []MetadataOption
			if rapid.Bool().Draw(rt, fmt.Sprintf("setDefault%d", i)) {
				opts = append(opts, WithDefault(i))
				lastDefault = i
			}
			f := rapid.SampledFrom(append(allFlags, 0)).Draw(rt, fmt.Sprintf("flag%d", i))
			opts = append(opts, WithFlags(f))
			flags |= f

			md := NewMetadata(opts...)
			if i == 0 {
				p = Must(r.RegisterStyled("Value", typ, TypeOf[int](), md))
			} else if err := r.OverrideMetadata(p, typ, md); err != nil {
				rt.Fatalf("override level %d: %v", i, err)
			}

			got, ok := p.GetMetadata(typ).DefaultValue()
			if lastDefault < 0 {
				if ok {
					rt.Fatalf("level %d: default %v assigned without any setter", i, got)
				}
			} else if !ok || got != lastDefault {
				rt.Fatalf("level %d: default = %v (%v), want %d", i, got, ok, lastDefault)
			}
			if p.GetMetadata(typ).Flags() != flags {
				rt.Fatalf("level %d: flags = %b, want %b", i, p.GetMetadata(typ).Flags(), flags)
			}
		}
	})
}

func TestOverrideMetadata_BaseAfterDerived(t *testing.T) {
	r := NewRegistry()
	root := MustType(r.NewType("Root", nil))
	base := MustType(r.NewType("Base", root))
	derived := MustType(r.NewType("Derived", base))

	var calls []string
	p := Must(r.RegisterStyled("Value", root, TypeOf[int](), NewMetadata(WithDefault(1))))

	require.NoError(t, r.OverrideMetadata(p, derived, NewMetadata(
		WithFlags(AffectsArrange),
		WithChanged(func(o *Object, e ChangedEvent) { calls = append(calls, "derived") }),
	)))
	before := p.GetMetadata(derived)
	require.NoError(t, r.OverrideMetadata(p, base, NewMetadata(
		WithDefault(5),
		WithFlags(AffectsMeasure),
		WithChanged(func(o *Object, e ChangedEvent) { calls = append(calls, "base") }),
	)))

	assert.Equal(t, 5, p.DefaultValue(base))
	assert.Equal(t, 5, p.DefaultValue(derived))
	assert.Equal(t, AffectsMeasure|AffectsArrange, p.GetMetadata(derived).Flags())
	assert.NotSame(t, before, p.GetMetadata(derived), "derived record merged again")
	assert.Equal(t, 1, p.DefaultValue(root))

	o, err := NewObject(derived)
	require.NoError(t, err)
	require.NoError(t, o.SetValue(p, 7))
	assert.Equal(t, []string{"base", "derived"}, calls)
}

// TestOverrideMetadata_AnyOrder applies overrides along a chain in a random
// order and checks every level against the nearest level at or above it that
// assigned a default, with flags accumulated from the whole chain above.
func TestOverrideMetadata_AnyOrder(t *testing.T) {
	allFlags := []Flags{0, AffectsMeasure, AffectsArrange, AffectsParentMeasure, AffectsParentArrange}

	rapid.Check(t, func(rt *rapid.T) {
		r := NewRegistry()
		depth := rapid.IntRange(2, 8).Draw(rt, "depth")

		types := make([]*Type, depth)
		var base *Type
		for i := range types {
			types[i] = MustType(r.NewType(fmt.Sprintf("Level%d", i), base))
			base = types[i]
		}

		defaults := make([]bool, depth)
		flags := make([]Flags, depth)
		mds := make([]*Metadata, depth)
		for i := range types {
			var opts []MetadataOption
			defaults[i] = rapid.Bool().Draw(rt, fmt.Sprintf("setDefault%d", i))
			if defaults[i] {
				opts = append(opts, WithDefault(i))
			}
			flags[i] = rapid.SampledFrom(allFlags).Draw(rt, fmt.Sprintf("flag%d", i))
			mds[i] = NewMetadata(append(opts, WithFlags(flags[i]))...)
		}

		p := Must(r.RegisterStyled("Value", types[0], TypeOf[int](), mds[0]))
		order := make([]int, 0, depth-1)
		for i := 1; i < depth; i++ {
			order = append(order, i)
		}
		for _, i := range rapid.Permutation(order).Draw(rt, "order") {
			if err := r.OverrideMetadata(p, types[i], mds[i]); err != nil {
				rt.Fatalf("override level %d: %v", i, err)
			}
		}

		want := -1
		var wantFlags Flags
		for i, typ := range types {
			if defaults[i] {
				want = i
			}
			wantFlags |= flags[i]

			md := p.GetMetadata(typ)
			got, ok := md.DefaultValue()
			if want < 0 {
				if ok {
					rt.Fatalf("level %d: default %v assigned without any setter", i, got)
				}
			} else if !ok || got != want {
				rt.Fatalf("level %d: default = %v (%v), want %d", i, got, ok, want)
			}
			if md.Flags() != wantFlags {
				rt.Fatalf("level %d: flags = %b, want %b", i, md.Flags(), wantFlags)
			}
		}
	})
}
