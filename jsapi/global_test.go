package jsapi_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
)

func globalDesc(value string, mutable bool) *jsval.Object {
	return jsval.NewRecord(jsval.Prop("value", jsval.String(value)), jsval.Prop("mutable", jsval.Bool(mutable)))
}

func TestNewGlobal_Defaults(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	tests := []struct {
		value string
		want  jsval.Value
	}{
		{"i32", jsval.Number(0)},
		{"f32", jsval.Number(0)},
		{"f64", jsval.Number(0)},
		{"anyfunc", jsval.Null},
		{"externref", jsval.Undefined},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			g, err := rt.NewGlobal(ctx, globalDesc(tt.value, false), nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, g.Value())
		})
	}

	g, err := rt.NewGlobal(ctx, globalDesc("i64", false), nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), g.Value().(*jsval.BigInt).Int().Int64())
}

func TestNewGlobal_Coercion(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	g, err := rt.NewGlobal(ctx, globalDesc("i32", false), jsval.Number(2.9))
	require.NoError(t, err)
	require.Equal(t, jsval.Number(2), g.Value())

	g, err = rt.NewGlobal(ctx, globalDesc("i32", false), jsval.Number(math.Pow(2, 32)+1))
	require.NoError(t, err)
	require.Equal(t, jsval.Number(1), g.Value())

	g, err = rt.NewGlobal(ctx, globalDesc("f32", false), jsval.Number(0.1))
	require.NoError(t, err)
	require.Equal(t, jsval.Number(float32(0.1)), g.Value())

	g, err = rt.NewGlobal(ctx, globalDesc("i64", false), jsval.String("-3"))
	require.NoError(t, err)
	require.Equal(t, int64(-3), g.Value().(*jsval.BigInt).Int().Int64())

	_, err = rt.NewGlobal(ctx, globalDesc("i64", false), jsval.Number(1))
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)

	_, err = rt.NewGlobal(ctx, globalDesc("anyfunc", false), jsval.Number(1))
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)
}

func TestNewGlobal_InvalidDescriptors(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	for _, desc := range []jsval.Value{
		jsval.Undefined,
		jsval.NewRecord(),
		jsval.NewRecord(jsval.Prop("value", jsval.String("v128"))),
		jsval.NewRecord(jsval.Prop("value", jsval.String("i16"))),
	} {
		_, err := rt.NewGlobal(ctx, desc, nil)
		require.True(t, errors.IsClass(err, errors.ClassTypeError), "%s: %v", jsval.Format(desc), err)
	}
}

func TestNewGlobal_DescriptorReadOrder(t *testing.T) {
	rt := newRuntime(t)
	var log []string
	target := globalDesc("f64", true)
	desc := jsval.NewProxy(target, func(target *jsval.Object, key string, receiver jsval.Value) (jsval.Value, error) {
		log = append(log, key)
		return jsval.ReflectGet(target, key, receiver)
	})

	_, err := rt.NewGlobal(context.Background(), desc, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"mutable", "value"}, log)
}

func TestGlobal_SetValue(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	g, err := rt.NewGlobal(ctx, globalDesc("f64", true), jsval.Number(1))
	require.NoError(t, err)
	require.NoError(t, g.SetValue(jsval.String("2.5")))
	require.Equal(t, jsval.Number(2.5), g.Value())

	immutable, err := rt.NewGlobal(ctx, globalDesc("f64", false), jsval.Number(1))
	require.NoError(t, err)
	err = immutable.SetValue(jsval.Number(2))
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)
	require.Equal(t, jsval.Number(1), immutable.Value())
}

func TestGlobal_Type(t *testing.T) {
	rt := newRuntime(t)
	g, err := rt.NewGlobal(context.Background(), globalDesc("anyfunc", true), nil)
	require.NoError(t, err)

	typ := g.Type()
	require.Equal(t, []string{"value", "mutable"}, typ.OwnKeys())
	require.Equal(t, jsval.String("funcref"), get(t, typ, "value"))
	require.Equal(t, jsval.Bool(true), get(t, typ, "mutable"))
}

func TestGlobal_References(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	fn := newFunction(t, rt, nil, nil, constant(jsval.Undefined))
	g, err := rt.NewGlobal(ctx, globalDesc("anyfunc", true), fn.Object())
	require.NoError(t, err)
	require.Same(t, fn.Object(), g.Value())
	require.NoError(t, g.SetValue(jsval.Null))
	require.Equal(t, jsval.Null, g.Value())

	held := jsval.NewRecord()
	ext, err := rt.NewGlobal(ctx, globalDesc("externref", false), held)
	require.NoError(t, err)
	require.Same(t, held, ext.Value())

	mut, err := rt.NewGlobal(ctx, globalDesc("externref", true), jsval.String("x"))
	require.NoError(t, err)
	require.Equal(t, jsval.String("x"), mut.Value())
	require.NoError(t, mut.SetValue(held))
	require.Same(t, held, mut.Value())
}
