package jsval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wippyai/wasm-jsapi/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDefineProperty(t *testing.T) {
	o := NewObject(ObjectPrototype)
	require.NoError(t, o.DefineProperty("a", Property{Value: Number(1), Enumerable: true}))

	// Identical redefinition of a non-configurable property is allowed.
	require.NoError(t, o.DefineProperty("a", Property{Value: Number(1), Enumerable: true}))

	err := o.DefineProperty("a", Property{Value: Number(2), Enumerable: true})
	require.True(t, errors.IsClass(err, errors.ClassTypeError))

	require.False(t, o.Delete("a"))
	require.Equal(t, []string{"a"}, o.OwnKeys())

	o.PreventExtensions()
	err = o.DefineProperty("b", DataProperty(Null))
	require.True(t, errors.IsClass(err, errors.ClassTypeError))
}

func TestSet_Strict(t *testing.T) {
	o := NewObject(ObjectPrototype)
	require.NoError(t, o.Set("x", Number(1)))
	p, ok := o.GetOwnProperty("x")
	require.True(t, ok)
	require.Equal(t, DataProperty(Number(1)), p)

	require.NoError(t, o.DefineProperty("ro", Property{Value: Number(1)}))
	require.True(t, errors.IsClass(o.Set("ro", Number(2)), errors.ClassTypeError))

	require.True(t, errors.IsClass(Set(Number(1), "x", Null), errors.ClassTypeError))
}

func TestGet_PrototypeChainAndGetters(t *testing.T) {
	base := NewObject(ObjectPrototype)
	require.NoError(t, DefineGetter(base, "who", func(this Value) (Value, error) {
		return this, nil
	}))
	derived := NewObject(base)

	v, err := Get(derived, "who")
	require.NoError(t, err)
	require.Same(t, derived, v)

	v, err = Get(String("héllo"), "length")
	require.NoError(t, err)
	require.Equal(t, Number(5), v)

	v, err = Get(String("😀"), "length")
	require.NoError(t, err)
	require.Equal(t, Number(2), v)

	_, err = Get(Undefined, "x")
	require.True(t, errors.IsClass(err, errors.ClassTypeError))

	require.True(t, derived.Has("toString"))
	require.False(t, derived.HasOwnProperty("toString"))
}

func TestCallAndConstruct(t *testing.T) {
	f := NewFunction("add", 2, func(_ Value, args []Value) (Value, error) {
		a, _ := ToNumber(args[0])
		b, _ := ToNumber(args[1])
		return Number(a + b), nil
	})
	require.Equal(t, "function", TypeOf(f))
	v, err := Call(f, Undefined, []Value{Number(1), Number(2)})
	require.NoError(t, err)
	require.Equal(t, Number(3), v)

	_, err = Construct(f, nil)
	require.True(t, errors.IsClass(err, errors.ClassTypeError))

	_, err = Call(NewObject(ObjectPrototype), Undefined, nil)
	require.True(t, errors.IsClass(err, errors.ClassTypeError))

	ctor := NewConstructor("Thing", 1, nil, func(args []Value, newTarget *Object) (Value, error) {
		return NewRecord(Prop("n", Number(len(args)))), nil
	})
	_, err = Call(ctor, Undefined, nil)
	require.True(t, errors.IsClass(err, errors.ClassTypeError))

	v, err = Construct(ctor, []Value{Null})
	require.NoError(t, err)
	n, err := Get(v, "n")
	require.NoError(t, err)
	require.Equal(t, Number(1), n)

	length, _ := f.GetOwnProperty("length")
	require.Equal(t, Property{Value: Number(2), Configurable: true}, length)
}

func TestProxy(t *testing.T) {
	target := NewFunction("f", 0, func(Value, []Value) (Value, error) { return String("called"), nil })
	var seen []string
	p := NewProxy(target, func(tgt *Object, key string, receiver Value) (Value, error) {
		seen = append(seen, key)
		return ReflectGet(tgt, key, receiver)
	})
	require.True(t, p.IsProxy())
	require.True(t, IsCallable(p))

	v, err := Get(p, "name")
	require.NoError(t, err)
	require.Equal(t, String("f"), v)

	v, err = Call(p, Undefined, nil)
	require.NoError(t, err)
	require.Equal(t, String("called"), v)
	require.Equal(t, []string{"name"}, seen)
	require.Equal(t, []string{"length", "name"}, p.OwnKeys())
}

func TestSameValue(t *testing.T) {
	negZero := Number(math.Copysign(0, -1))
	require.True(t, SameValue(Number(0), Number(0)))
	require.False(t, SameValue(Number(0), negZero))
	require.True(t, SameValue(Number(math.NaN()), Number(math.NaN())))
	require.True(t, SameValue(NewBigInt(3), NewBigInt(3)))
	require.True(t, SameValue(nil, Undefined))
	require.False(t, SameValue(Null, Undefined))
	require.False(t, SameValue(NewObject(nil), NewObject(nil)))
	require.True(t, SameValueZero(Number(0), negZero))
}

func TestArrays(t *testing.T) {
	a := NewStringArray("a", "b")
	require.True(t, IsArray(a))
	require.False(t, IsArray(NewRecord()))
	require.Same(t, ArrayPrototype, a.Proto())

	length, ok := a.GetOwnProperty("length")
	require.True(t, ok)
	require.Equal(t, Property{Value: Number(2), Writable: true}, length)

	s, err := ToString(a)
	require.NoError(t, err)
	require.Equal(t, "a,b", s)
}
