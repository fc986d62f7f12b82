package jsapi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-jsapi/builder"
	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

func TestNewMemory(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	mem, err := rt.NewMemory(ctx, jsval.NewRecord(jsval.Prop("initial", jsval.Number(1)), jsval.Prop("maximum", jsval.Number(3))))
	require.NoError(t, err)
	require.Equal(t, uint32(1), mem.Pages())
	require.False(t, mem.Shared())

	typ := mem.Type()
	require.Equal(t, []string{"minimum", "maximum", "shared"}, typ.OwnKeys())
	require.Equal(t, jsval.Number(1), get(t, typ, "minimum"))
	require.Equal(t, jsval.Number(3), get(t, typ, "maximum"))

	buf, ok := mem.Read(0, 16)
	require.True(t, ok)
	require.Equal(t, make([]byte, 16), buf)
	_, ok = mem.Read(65536, 1)
	require.False(t, ok)
}

func TestNewMemory_InvalidDescriptors(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		desc  jsval.Value
		class string
	}{
		{"not an object", jsval.String("1"), errors.ClassTypeError},
		{"missing initial", jsval.NewRecord(), errors.ClassTypeError},
		{"negative initial", jsval.NewRecord(jsval.Prop("initial", jsval.Number(-1))), errors.ClassTypeError},
		{"initial too large", jsval.NewRecord(jsval.Prop("initial", jsval.Number(65537))), errors.ClassRangeError},
		{"maximum too large", jsval.NewRecord(jsval.Prop("initial", jsval.Number(1)), jsval.Prop("maximum", jsval.Number(65537))), errors.ClassRangeError},
		{"maximum below initial", jsval.NewRecord(jsval.Prop("initial", jsval.Number(2)), jsval.Prop("maximum", jsval.Number(1))), errors.ClassRangeError},
		{"shared without maximum", jsval.NewRecord(jsval.Prop("initial", jsval.Number(1)), jsval.Prop("shared", jsval.Bool(true))), errors.ClassTypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.NewMemory(ctx, tt.desc)
			require.True(t, errors.IsClass(err, tt.class), "got %v", err)
		})
	}
}

func TestMemory_Grow(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	mem, err := rt.NewMemory(ctx, jsval.NewRecord(jsval.Prop("initial", jsval.Number(0)), jsval.Prop("maximum", jsval.Number(2))))
	require.NoError(t, err)

	prev, err := mem.Grow(1)
	require.NoError(t, err)
	require.Equal(t, uint32(0), prev)
	require.Equal(t, uint32(1), mem.Pages())
	require.Equal(t, jsval.Number(1), get(t, mem.Type(), "minimum"))

	_, err = mem.Grow(2)
	require.True(t, errors.IsClass(err, errors.ClassRangeError), "got %v", err)
	require.Equal(t, uint32(1), mem.Pages())
}

func TestMemory_SharedWithInstance(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	mem, err := rt.NewMemory(ctx, jsval.NewRecord(jsval.Prop("initial", jsval.Number(1))))
	require.NoError(t, err)

	b := builder.New()
	b.AddImportedMemory("m", "memory", 1)
	b.AddFunction("store", builder.Sig(i32s(2), nil)).
		AddBody(wasm.OpLocalGet, 0, wasm.OpLocalGet, 1, wasm.OpI32Store, 0, 0).
		ExportFunc()
	inst, err := b.Instantiate(ctx, rt, imports("m", jsval.Prop("memory", mem.Object())))
	require.NoError(t, err)

	_, err = inst.ExportedFunction("store").Call(jsval.Number(8), jsval.Number(0x01020304))
	require.NoError(t, err)

	buf, ok := mem.Read(8, 4)
	require.True(t, ok)
	require.Equal(t, []byte{4, 3, 2, 1}, buf)

	bytes, ok := jsapi.BytesOf(get(t, mem.Object(), "buffer"))
	require.True(t, ok)
	require.Len(t, bytes, 65536)
	require.Equal(t, byte(4), bytes[8])
}

func TestMemory_SharedRequiresThreads(t *testing.T) {
	ctx := context.Background()
	cfg := jsapi.DefaultConfig()
	cfg.EnableThreads = false
	rt, err := jsapi.New(ctx, cfg)
	require.NoError(t, err)
	defer rt.Close(ctx)

	desc := jsval.NewRecord(jsval.Prop("initial", jsval.Number(1)), jsval.Prop("maximum", jsval.Number(1)), jsval.Prop("shared", jsval.Bool(true)))
	_, err = rt.NewMemory(ctx, desc)
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)
}
