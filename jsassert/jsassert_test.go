package jsassert_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/builder"
	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsassert"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

type recorder struct {
	failures []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func newRuntime(t *testing.T) *jsapi.Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := jsapi.New(ctx, jsapi.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close(ctx)) })
	return rt
}

func exportsModule(t *testing.T, rt *jsapi.Runtime) *jsapi.Module {
	t.Helper()
	b := builder.New()
	b.AddFunction("fn", builder.SigVV).AddBody().ExportFunc()
	b.AddFunction("fn2", builder.SigVV).AddBody().ExportFunc()
	b.SetTableBounds(1)
	b.AddExportOfKind("table", wasm.KindTable, 0)
	b.AddGlobal(wasm.ValI32, true).InitI32(7).ExportAs("global")
	b.AddGlobal(wasm.ValF64, true).InitF64(1.2).ExportAs("global2")
	b.AddMemory(0, 256).ExportAs("memory")
	mod, err := b.Compile(context.Background(), rt)
	require.NoError(t, err)
	return mod
}

func TestCheckExports(t *testing.T) {
	rt := newRuntime(t)
	mod := exportsModule(t, rt)

	expected := []jsassert.Descriptor{
		{Kind: "function", Name: "fn", Type: jsassert.FuncType(nil, nil)},
		{Kind: "function", Name: "fn2", Type: jsassert.FuncType(nil, nil)},
		{Kind: "table", Name: "table", Type: jsassert.TableType("funcref", 1)},
		{Kind: "global", Name: "global", Type: jsassert.GlobalType("i32", true)},
		{Kind: "global", Name: "global2"},
		{Kind: "memory", Name: "memory", Type: jsassert.MemoryType(0, 256)},
	}
	require.NoError(t, jsassert.CheckExports(mod.Exports(), expected))
	require.True(t, jsassert.Exports(t, mod.Exports(), expected))
}

func TestCheckExports_Failures(t *testing.T) {
	rt := newRuntime(t)
	mod := exportsModule(t, rt)

	err := jsassert.CheckExports(mod.Exports(), []jsassert.Descriptor{{Kind: "function", Name: "fn"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exports.length")

	expected := []jsassert.Descriptor{
		{Kind: "function", Name: "fn", Type: jsassert.FuncType([]string{"i32"}, nil)},
		{Kind: "function", Name: "other"},
		{Kind: "table", Name: "table"},
		{Kind: "global", Name: "global", Type: jsassert.GlobalType("i32", false)},
		{Kind: "global", Name: "global2"},
		{Kind: "table", Name: "memory"},
	}
	err = jsassert.CheckExports(mod.Exports(), expected)
	failures := multierr.Errors(err)
	require.Len(t, failures, 4)

	var paths []string
	for _, f := range failures {
		var e *errors.Error
		require.True(t, errors.As(f, &e))
		require.Equal(t, errors.KindAssertion, e.Kind)
		paths = append(paths, strings.Join(e.Path, "."))
	}
	require.Equal(t, []string{
		"exports.0.type.parameters",
		"exports.1.name",
		"exports.3.type.mutable",
		"exports.5.kind",
	}, paths)
	require.Contains(t, failures[0].Error(), `["i32"]`)

	rec := &recorder{}
	require.False(t, jsassert.Exports(rec, mod.Exports(), expected, "module %d", 1))
	require.Len(t, rec.failures, 4)
	require.True(t, strings.HasPrefix(rec.failures[0], "module 1: "))
}

func TestCheckExports_Shape(t *testing.T) {
	err := jsassert.CheckExports(jsval.NewRecord(), nil)
	require.Error(t, err)

	frozen := jsval.NewArray()
	frozen.PreventExtensions()
	err = jsassert.CheckExports(frozen, nil)
	require.ErrorContains(t, err, "not extensible")

	desc := jsval.NewObject(nil)
	require.NoError(t, desc.DefineProperty("name", jsval.DataProperty(jsval.String("x"))))
	require.NoError(t, desc.DefineProperty("kind", jsval.Property{Value: jsval.String("function"), Enumerable: true}))
	err = jsassert.CheckExportDescriptor(desc, jsassert.Descriptor{Name: "x", Kind: "function"})
	paths := map[string]bool{}
	for _, f := range multierr.Errors(err) {
		var e *errors.Error
		require.True(t, errors.As(f, &e))
		paths[strings.Join(e.Path, ".")] = true
	}
	require.Equal(t, map[string]bool{
		"prototype":         true,
		"kind.writable":     true,
		"kind.configurable": true,
	}, paths)
}

func TestCheckImports(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	b.AddImport("m", "f", builder.SigIL)
	b.AddImportedGlobal("m", "g", wasm.ValI64, false)
	b.AddImportedTable("t", "table", 1, 2)
	mod, err := b.Compile(context.Background(), rt)
	require.NoError(t, err)

	require.NoError(t, jsassert.CheckImports(mod.Imports(), []jsassert.Descriptor{
		{Module: "m", Name: "f", Kind: "function", Type: jsassert.FuncType([]string{"i64"}, []string{"i32"})},
		{Module: "m", Name: "g", Kind: "global", Type: jsassert.GlobalType("i64", false)},
		{Module: "t", Name: "table", Kind: "table", Type: jsassert.TableType("funcref", 1, 2)},
	}))

	err = jsassert.CheckImports(mod.Imports(), []jsassert.Descriptor{
		{Module: "x", Name: "f", Kind: "function"},
		{Module: "m", Name: "g", Kind: "global"},
		{Module: "t", Name: "table", Kind: "table"},
	})
	require.ErrorContains(t, err, "imports.0.module")
}

func TestCheckFunctionShapeAndType(t *testing.T) {
	rt := newRuntime(t)
	fn, err := rt.NewFunction(context.Background(),
		jsval.NewRecord(
			jsval.Prop("parameters", jsval.NewStringArray("i32", "f32")),
			jsval.Prop("results", jsval.NewStringArray("f64")),
		),
		jsval.NewFunction("", 0, func(jsval.Value, []jsval.Value) (jsval.Value, error) { return jsval.Number(0), nil }),
	)
	require.NoError(t, err)

	require.NoError(t, jsassert.CheckFunctionShape(rt, fn.Object()))
	require.NoError(t, jsassert.CheckFunctionType(rt, fn.Object(), []string{"i32", "f32"}, []string{"f64"}))
	require.True(t, jsassert.FunctionShape(t, rt, fn.Object()))
	require.True(t, jsassert.FunctionType(t, rt, fn.Object(), []string{"i32", "f32"}, []string{"f64"}))

	err = jsassert.CheckFunctionType(rt, fn.Object(), []string{"f32", "i32"}, []string{"f64"})
	require.ErrorContains(t, err, "type.parameters")

	plain := jsval.NewFunction("plain", 0, func(jsval.Value, []jsval.Value) (jsval.Value, error) { return nil, nil })
	err = jsassert.CheckFunctionShape(rt, plain)
	require.ErrorContains(t, err, "__proto__")

	err = jsassert.CheckFunctionType(rt, plain, nil, nil)
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)
}

func TestCheckFunctionNameAndLength(t *testing.T) {
	rt := newRuntime(t)
	ctor, err := jsval.Get(rt.Namespace(), "Function")
	require.NoError(t, err)

	require.NoError(t, jsassert.CheckFunctionName(ctor, "Function"))
	require.NoError(t, jsassert.CheckFunctionLength(ctor, 2))
	require.Error(t, jsassert.CheckFunctionName(ctor, "Module"))
	require.Error(t, jsassert.CheckFunctionLength(ctor, 1))
	require.Error(t, jsassert.CheckFunctionName(jsval.NewRecord(), "x"))
}

func TestCheckThrows(t *testing.T) {
	typeErr := errors.TypeError(errors.PhaseCall, "boom")

	require.NoError(t, jsassert.CheckThrows(errors.ClassTypeError, typeErr))
	require.Error(t, jsassert.CheckThrows(errors.ClassRangeError, typeErr))
	require.Error(t, jsassert.CheckThrows(errors.ClassTypeError, nil))
	require.Error(t, jsassert.CheckThrows(errors.ClassTypeError, jsval.Throw(jsval.String("x"))))
	require.NoError(t, jsassert.CheckThrows(errors.ClassError, jsval.Throw(jsval.String("x"))))

	rec := &recorder{}
	require.False(t, jsassert.Throws(rec, errors.ClassLinkError, typeErr))
	require.Len(t, rec.failures, 1)
	require.Contains(t, rec.failures[0], "expected LinkError, got TypeError")
}

func TestCheckArrayEquals(t *testing.T) {
	arr := jsval.NewStringArray("a", "b")
	require.NoError(t, jsassert.CheckArrayEquals(arr, []jsval.Value{jsval.String("a"), jsval.String("b")}))

	err := jsassert.CheckArrayEquals(arr, []jsval.Value{jsval.String("a"), jsval.String("c")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "[1]")

	require.Error(t, jsassert.CheckArrayEquals(arr, nil))
}

func TestCheck_PropagatesGetterErrors(t *testing.T) {
	thrown := jsval.Throw(jsval.String("getter"))
	typ := jsval.NewRecord(jsval.Prop("results", jsval.NewStringArray()))
	require.NoError(t, jsval.DefineGetter(typ, "parameters", func(jsval.Value) (jsval.Value, error) {
		return nil, thrown
	}))

	err := jsassert.CheckType(typ, jsassert.FuncType(nil, nil))
	require.Same(t, thrown, err)
}

func TestCheckDataPropertyAndProperty(t *testing.T) {
	obj := jsval.NewRecord(jsval.Prop("minimum", jsval.Number(5)))
	require.NoError(t, jsassert.CheckDataProperty(obj, "minimum", jsval.Number(5)))
	require.NoError(t, jsassert.CheckProperty(obj, "maximum", jsval.Undefined))
	require.Error(t, jsassert.CheckProperty(obj, "minimum", jsval.Number(6)))
	require.Error(t, jsassert.CheckDataProperty(obj, "maximum", jsval.Undefined))
}

func TestCheckImportDescriptor(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	b.AddImport("env", "log", builder.SigVI)
	mod, err := b.Compile(context.Background(), rt)
	require.NoError(t, err)

	descs, err := jsval.ReadArrayLike(mod.Imports(), 10)
	require.NoError(t, err)
	require.Len(t, descs, 1)

	want := jsassert.Descriptor{Module: "env", Name: "log", Kind: "function", Type: jsassert.FuncType([]string{"i32"}, nil)}
	require.NoError(t, jsassert.CheckImportDescriptor(descs[0], want))

	wrong := want
	wrong.Module = "other"
	require.ErrorContains(t, jsassert.CheckImportDescriptor(descs[0], wrong), "module")

	exports := jsval.NewRecord(
		jsval.Prop("name", jsval.String("log")),
		jsval.Prop("kind", jsval.String("function")),
	)
	require.NoError(t, jsassert.CheckExportDescriptor(exports, jsassert.Descriptor{Name: "log", Kind: "function"}))
	require.ErrorContains(t, jsassert.CheckImportDescriptor(exports, jsassert.Descriptor{Name: "log", Kind: "function"}), "module")
}
