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

func callMain(b *builder.ModuleBuilder, fun uint32) {
	b.AddFunction("main", builder.SigIV).
		AddBody(wasm.OpCall, byte(fun)).
		ExportFunc()
}

func TestInstantiate_ImportMatchingSignature(t *testing.T) {
	rt := newRuntime(t)
	fun := newFunction(t, rt, nil, strs("i32"), constant(jsval.Number(7)))

	b := builder.New()
	callMain(b, b.AddImport("m", "fun", builder.SigIV))
	inst, err := b.Instantiate(context.Background(), rt, imports("m", jsval.Prop("fun", fun.Object())))
	require.NoError(t, err)

	got, err := inst.ExportedFunction("main").Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(7), got)
}

func TestInstantiate_PlainCallableImport(t *testing.T) {
	rt := newRuntime(t)
	var calls int
	plain := callable(func([]jsval.Value) (jsval.Value, error) {
		calls++
		return jsval.String("12"), nil
	})

	b := builder.New()
	callMain(b, b.AddImport("m", "fun", builder.SigIV))
	inst, err := b.Instantiate(context.Background(), rt, imports("m", jsval.Prop("fun", plain)))
	require.NoError(t, err)

	got, err := inst.ExportedFunction("main").Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(12), got)
	require.Equal(t, 1, calls)
}

func TestInstantiate_ImportMismatchingSignature(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	b := builder.New()
	callMain(b, b.AddImport("m", "fun", builder.SigIV))
	mod, err := b.Compile(ctx, rt)
	require.NoError(t, err)

	candidates := []*jsapi.Function{
		newFunction(t, rt, nil, nil, constant(jsval.Number(7))),
		newFunction(t, rt, strs("i32"), nil, constant(jsval.Number(8))),
		newFunction(t, rt, nil, strs("f32"), constant(jsval.Number(9))),
	}
	for _, fun := range candidates {
		_, err := rt.Instantiate(ctx, mod, imports("m", jsval.Prop("fun", fun.Object())))
		require.True(t, errors.IsClass(err, errors.ClassLinkError), "got %v", err)
	}

	_, err = rt.Instantiate(ctx, mod, imports("m", jsval.Prop("fun", jsval.Number(1))))
	require.True(t, errors.IsClass(err, errors.ClassLinkError), "got %v", err)
}

func TestInstantiate_ImportObjectShape(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	b := builder.New()
	callMain(b, b.AddImport("m", "fun", builder.SigIV))
	mod, err := b.Compile(ctx, rt)
	require.NoError(t, err)

	_, err = rt.Instantiate(ctx, mod, jsval.Undefined)
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)

	_, err = rt.Instantiate(ctx, mod, jsval.NewRecord(jsval.Prop("m", jsval.Number(1))))
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)

	_, err = rt.Instantiate(ctx, mod, jsval.NewRecord())
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)
}

func TestInstantiate_EmptyImportModuleName(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()
	fun := newFunction(t, rt, nil, strs("i32"), constant(jsval.Number(7)))

	b := builder.New()
	callMain(b, b.AddImport("", "fn", builder.SigIV))
	b.AddImport("m", "", builder.SigVV)
	mod, err := b.Compile(ctx, rt)
	require.NoError(t, err)

	descs, err := jsval.ReadArrayLike(mod.Imports(), 10)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	for i, want := range [][2]string{{"", "fn"}, {"m", ""}} {
		module, err := jsval.Get(descs[i], "module")
		require.NoError(t, err)
		require.Equal(t, jsval.String(want[0]), module)
		name, err := jsval.Get(descs[i], "name")
		require.NoError(t, err)
		require.Equal(t, jsval.String(want[1]), name)
	}

	importObject := jsval.NewRecord(
		jsval.Prop("", jsval.NewRecord(jsval.Prop("fn", fun.Object()))),
		jsval.Prop("m", jsval.NewRecord(jsval.Prop("", constant(jsval.Undefined)))),
	)
	inst, err := rt.Instantiate(ctx, mod, importObject)
	require.NoError(t, err)

	got, err := inst.ExportedFunction("main").Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(7), got)
}

func TestInstantiate_ReExportIdentity(t *testing.T) {
	rt := newRuntime(t)
	fun := newFunction(t, rt, nil, strs("i32"), constant(jsval.Number(7)))

	b := builder.New()
	idx := b.AddImport("m", "fun", builder.SigIV)
	b.AddExport("fun1", idx)
	b.AddExport("fun2", idx)
	inst, err := b.Instantiate(context.Background(), rt, imports("m", jsval.Prop("fun", fun.Object())))
	require.NoError(t, err)

	require.Same(t, fun.Object(), inst.Export("fun1"))
	require.Same(t, fun.Object(), inst.Export("fun2"))
}

func TestInstantiate_ExportedFunctionIdentity(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	f := b.AddFunction("a", builder.SigVV).ExportFunc()
	b.AddExport("b", f.Index())
	inst, err := b.Instantiate(context.Background(), rt, nil)
	require.NoError(t, err)

	require.Same(t, inst.Export("a"), inst.Export("b"))
	fn := jsapi.FunctionOf(inst.Export("a"))
	require.NotNil(t, fn)
	require.Equal(t, jsval.String("0"), get(t, fn.Object(), "name"))
	require.Equal(t, jsval.Number(0), get(t, fn.Object(), "length"))
}

func TestInstantiate_ExportsObject(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	b.AddFunction("fn", builder.SigVV).ExportFunc()
	b.AddTable(wasm.ValFuncRef, 10, 100).ExportAs("table")
	b.AddGlobal(wasm.ValI32, true).InitI32(7).ExportAs("global")
	b.AddGlobal(wasm.ValF64, false).InitF64(1.2).ExportAs("global2")
	b.AddMemory(0, 256).ExportAs("memory")
	inst, err := b.Instantiate(context.Background(), rt, nil)
	require.NoError(t, err)

	exports := inst.Exports()
	require.Same(t, exports, inst.Exports())
	require.Nil(t, exports.Proto())
	require.False(t, exports.Extensible())
	require.Equal(t, []string{"fn", "table", "global", "global2", "memory"}, exports.OwnKeys())

	for _, key := range exports.OwnKeys() {
		p, ok := exports.GetOwnProperty(key)
		require.True(t, ok)
		require.False(t, p.Writable, key)
		require.True(t, p.Enumerable, key)
		require.False(t, p.Configurable, key)
	}
	require.Error(t, exports.Set("fn", jsval.Null))

	g := jsapi.GlobalOf(inst.Export("global"))
	require.NotNil(t, g)
	require.Equal(t, jsval.Number(7), g.Value())
	require.NoError(t, g.SetValue(jsval.Number(9)))
	require.Equal(t, jsval.Number(9), g.Value())

	g2 := jsapi.GlobalOf(inst.Export("global2"))
	require.Equal(t, jsval.Number(1.2), g2.Value())

	tbl := jsapi.TableOf(inst.Export("table"))
	require.NotNil(t, tbl)
	require.Equal(t, uint32(10), tbl.Length())

	mem := jsapi.MemoryOf(inst.Export("memory"))
	require.NotNil(t, mem)
	require.Equal(t, uint32(0), mem.Pages())
	max, ok := mem.Maximum()
	require.True(t, ok)
	require.Equal(t, uint32(256), max)

	instObj := inst.Object()
	require.Equal(t, "Instance", instObj.Class())
	require.Same(t, exports, get(t, instObj, "exports"))
}

func TestInstantiate_CallIndirectHostFunction(t *testing.T) {
	rt := newRuntime(t)
	imp := newFunction(t, rt, strs("i32", "i32", "i32"), strs("i32"), callable(func(args []jsval.Value) (jsval.Value, error) {
		if jsval.ToBoolean(args[2]) {
			return args[0], nil
		}
		return args[1], nil
	}))

	b := builder.New()
	sigIndex := b.AddType(builder.SigIIII)
	funIndex := b.AddImport("m", "imp", builder.SigIIII)
	b.AddTable(wasm.ValFuncRef, 1, 1)
	b.AddActiveElementSegment(0, builder.I32Const(0), [][]byte{builder.RefFunc(funIndex)}, wasm.ValFuncRef)
	body := append(builder.I32Const(-2), wasm.OpI32Const, 3, wasm.OpLocalGet, 0,
		wasm.OpI32Const, 0, wasm.OpCallIndirect, byte(sigIndex), 0)
	b.AddFunction("rc", builder.SigII).AddBody(body...).ExportFunc()

	inst, err := b.Instantiate(context.Background(), rt, imports("m", jsval.Prop("imp", imp.Object())))
	require.NoError(t, err)

	rc := inst.ExportedFunction("rc")
	got, err := rc.Call(jsval.Number(1))
	require.NoError(t, err)
	require.Equal(t, jsval.Number(-2), got)

	got, err = rc.Call(jsval.Number(0))
	require.NoError(t, err)
	require.Equal(t, jsval.Number(3), got)
}

func TestInstantiate_TableSetObservedByCallIndirect(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	fun := newFunction(t, rt, nil, strs("i64"), constant(jsval.NewBigInt(0)))
	table, err := rt.NewTable(ctx, jsval.NewRecord(jsval.Prop("element", jsval.String("anyfunc")), jsval.Prop("initial", jsval.Number(2))), nil)
	require.NoError(t, err)

	b := builder.New()
	tableIndex := b.AddImportedTable("m", "table", 2)
	sigIndex := b.AddType(builder.SigLV)
	require.NoError(t, table.Set(0, fun.Object()))
	b.AddFunction("main", builder.SigVI).
		AddBody(wasm.OpLocalGet, 0, wasm.OpCallIndirect, byte(sigIndex), byte(tableIndex), wasm.OpDrop).
		ExportFunc()
	inst, err := b.Instantiate(ctx, rt, imports("m", jsval.Prop("table", table.Object())))
	require.NoError(t, err)

	main := inst.ExportedFunction("main")
	got, err := main.Call(jsval.Number(0))
	require.NoError(t, err)
	require.Equal(t, jsval.Undefined, got)

	_, err = main.Call(jsval.Number(1))
	require.True(t, errors.IsClass(err, errors.ClassRangeError), "got %v", err)

	_, err = main.Call(jsval.Number(5))
	require.True(t, errors.IsClass(err, errors.ClassRangeError), "got %v", err)

	require.NoError(t, table.Set(1, fun.Object()))
	_, err = main.Call(jsval.Number(1))
	require.NoError(t, err)

	v, err := table.Get(1)
	require.NoError(t, err)
	require.Same(t, fun.Object(), v)
}

func TestInstantiate_CallIndirectSignatureMismatch(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	wrong := newFunction(t, rt, nil, strs("i32"), constant(jsval.Number(1)))
	table, err := rt.NewTable(ctx, jsval.NewRecord(jsval.Prop("element", jsval.String("funcref")), jsval.Prop("initial", jsval.Number(1))), wrong.Object())
	require.NoError(t, err)

	b := builder.New()
	b.AddImportedTable("m", "table", 1)
	sigIndex := b.AddType(builder.SigLV)
	b.AddFunction("main", builder.SigVI).
		AddBody(wasm.OpLocalGet, 0, wasm.OpCallIndirect, byte(sigIndex), 0, wasm.OpDrop).
		ExportFunc()
	inst, err := b.Instantiate(ctx, rt, imports("m", jsval.Prop("table", table.Object())))
	require.NoError(t, err)

	_, err = inst.ExportedFunction("main").Call(jsval.Number(0))
	require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)
}

func TestInstantiate_ElementsVisibleThroughTable(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	f := b.AddFunction("f", builder.SigIV).AddBody(wasm.OpI32Const, 5).ExportFunc()
	b.AddTable(wasm.ValFuncRef, 2).ExportAs("table")
	b.AddActiveFunctionSegment(0, 1, f.Index())
	inst, err := b.Instantiate(context.Background(), rt, nil)
	require.NoError(t, err)

	table := jsapi.TableOf(inst.Export("table"))
	v, err := table.Get(1)
	require.NoError(t, err)
	require.Same(t, inst.Export("f"), v)

	v, err = table.Get(0)
	require.NoError(t, err)
	require.Equal(t, jsval.Null, v)
}

func TestInstantiate_ElementSegmentOutOfBounds(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	f := b.AddFunction("f", builder.SigVV)
	b.AddTable(wasm.ValFuncRef, 1)
	b.AddActiveFunctionSegment(0, 1, f.Index())

	_, err := b.Instantiate(context.Background(), rt, nil)
	require.True(t, errors.IsClass(err, errors.ClassRuntimeError), "got %v", err)
}

func TestInstantiate_StartTrap(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	start := b.AddFunction("start", builder.SigVV).AddBody(wasm.OpUnreachable)
	b.AddStart(start.Index())

	_, err := b.Instantiate(context.Background(), rt, nil)
	require.True(t, errors.IsClass(err, errors.ClassRuntimeError), "got %v", err)
}

func TestInstantiate_HostErrorPropagates(t *testing.T) {
	rt := newRuntime(t)
	thrown := jsval.Throw(jsval.NewError("from host"))
	fun := newFunction(t, rt, nil, strs("i32"), callable(func([]jsval.Value) (jsval.Value, error) {
		return nil, thrown
	}))

	b := builder.New()
	callMain(b, b.AddImport("m", "fun", builder.SigIV))
	inst, err := b.Instantiate(context.Background(), rt, imports("m", jsval.Prop("fun", fun.Object())))
	require.NoError(t, err)

	_, err = inst.ExportedFunction("main").Call()
	require.Same(t, thrown, err)
}

func TestInstantiate_GlobalImports(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	b := builder.New()
	g := b.AddImportedGlobal("m", "g", wasm.ValI32, false)
	b.AddFunction("read", builder.SigIV).AddBody(wasm.OpGlobalGet, byte(g)).ExportFunc()
	mod, err := b.Compile(ctx, rt)
	require.NoError(t, err)

	inst, err := rt.Instantiate(ctx, mod, imports("m", jsval.Prop("g", jsval.Number(42))))
	require.NoError(t, err)
	got, err := inst.ExportedFunction("read").Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(42), got)

	global, err := rt.NewGlobal(ctx, jsval.NewRecord(jsval.Prop("value", jsval.String("i32"))), jsval.Number(11))
	require.NoError(t, err)
	inst, err = rt.Instantiate(ctx, mod, imports("m", jsval.Prop("g", global.Object())))
	require.NoError(t, err)
	got, err = inst.ExportedFunction("read").Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(11), got)

	bad := []jsval.Value{
		jsval.NewBigInt(1),
		jsval.String("1"),
	}
	for _, v := range bad {
		_, err := rt.Instantiate(ctx, mod, imports("m", jsval.Prop("g", v)))
		require.True(t, errors.IsClass(err, errors.ClassLinkError), "%s: %v", jsval.Format(v), err)
	}

	mutable, err := rt.NewGlobal(ctx, jsval.NewRecord(jsval.Prop("value", jsval.String("i32")), jsval.Prop("mutable", jsval.Bool(true))), jsval.Number(1))
	require.NoError(t, err)
	_, err = rt.Instantiate(ctx, mod, imports("m", jsval.Prop("g", mutable.Object())))
	require.True(t, errors.IsClass(err, errors.ClassLinkError), "got %v", err)
}

func TestInstantiate_MutableGlobalImportIsShared(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	global, err := rt.NewGlobal(ctx, jsval.NewRecord(jsval.Prop("value", jsval.String("i64")), jsval.Prop("mutable", jsval.Bool(true))), jsval.NewBigInt(3))
	require.NoError(t, err)

	b := builder.New()
	g := b.AddImportedGlobal("m", "g", wasm.ValI64, true)
	b.AddFunction("bump", builder.SigVV).
		AddBody(wasm.OpGlobalGet, byte(g), wasm.OpI64Const, 1, wasm.OpI64Add, wasm.OpGlobalSet, byte(g)).
		ExportFunc()
	inst, err := b.Instantiate(ctx, rt, imports("m", jsval.Prop("g", global.Object())))
	require.NoError(t, err)

	_, err = inst.ExportedFunction("bump").Call()
	require.NoError(t, err)
	require.Equal(t, int64(4), global.Value().(*jsval.BigInt).Int().Int64())
}

func TestInstantiate_MemoryImports(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	b := builder.New()
	b.AddImportedMemory("m", "memory", 1, 4)
	b.AddFunction("size", builder.SigIV).AddBody(wasm.OpMemorySize, 0).ExportFunc()
	mod, err := b.Compile(ctx, rt)
	require.NoError(t, err)

	newMem := func(initial, maximum int) *jsapi.Memory {
		desc := jsval.NewRecord(jsval.Prop("initial", jsval.Number(initial)))
		if maximum >= 0 {
			require.NoError(t, desc.Set("maximum", jsval.Number(maximum)))
		}
		m, err := rt.NewMemory(ctx, desc)
		require.NoError(t, err)
		return m
	}

	inst, err := rt.Instantiate(ctx, mod, imports("m", jsval.Prop("memory", newMem(2, 3).Object())))
	require.NoError(t, err)
	got, err := inst.ExportedFunction("size").Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(2), got)

	for _, m := range []*jsapi.Memory{newMem(0, 4), newMem(1, -1), newMem(1, 5)} {
		_, err := rt.Instantiate(ctx, mod, imports("m", jsval.Prop("memory", m.Object())))
		require.True(t, errors.IsClass(err, errors.ClassLinkError), "got %v", err)
	}
}

func TestInstantiate_TableImportLimits(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	b := builder.New()
	b.AddImportedTable("m", "table", 2, 10)
	mod, err := b.Compile(ctx, rt)
	require.NoError(t, err)

	newTable := func(elem string, initial, maximum int) *jsapi.Table {
		desc := jsval.NewRecord(jsval.Prop("element", jsval.String(elem)), jsval.Prop("initial", jsval.Number(initial)))
		if maximum >= 0 {
			require.NoError(t, desc.Set("maximum", jsval.Number(maximum)))
		}
		tbl, err := rt.NewTable(ctx, desc, nil)
		require.NoError(t, err)
		return tbl
	}

	_, err = rt.Instantiate(ctx, mod, imports("m", jsval.Prop("table", newTable("anyfunc", 3, 10).Object())))
	require.NoError(t, err)

	for _, tbl := range []*jsapi.Table{
		newTable("anyfunc", 1, 10),
		newTable("anyfunc", 2, -1),
		newTable("anyfunc", 2, 11),
		newTable("externref", 2, 10),
	} {
		_, err := rt.Instantiate(ctx, mod, imports("m", jsval.Prop("table", tbl.Object())))
		require.True(t, errors.IsClass(err, errors.ClassLinkError), "got %v", err)
	}
}

func TestInstantiate_FuncrefGlobalExport(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	fn := b.AddFunction("fn", builder.SigAA).AddBody(wasm.OpLocalGet, 0).ExportFunc()
	b.AddGlobal(wasm.ValFuncRef, true).InitFunc(fn.Index()).ExportAs("global")
	inst, err := b.Instantiate(context.Background(), rt, nil)
	require.NoError(t, err)

	g := jsapi.GlobalOf(inst.Export("global"))
	require.NotNil(t, g)
	require.Same(t, inst.Export("fn"), g.Value())

	// A funcref crosses into the engine and comes back as the same object.
	f := inst.ExportedFunction("fn")
	got, err := f.Call(f.Object())
	require.NoError(t, err)
	require.Same(t, f.Object(), got)

	got, err = f.Call(jsval.Null)
	require.NoError(t, err)
	require.Equal(t, jsval.Null, got)

	_, err = f.Call(jsval.Number(1))
	require.True(t, errors.IsClass(err, errors.ClassTypeError))
}

func TestInstantiate_FuncrefGlobalOfUnexportedFunction(t *testing.T) {
	rt := newRuntime(t)
	b := builder.New()
	hidden := b.AddFunction("hidden", builder.SigIV).AddBody(builder.I32Const(9)...)
	b.AddGlobal(wasm.ValFuncRef, false).InitFunc(hidden.Index()).ExportAs("global")
	inst, err := b.Instantiate(context.Background(), rt, nil)
	require.NoError(t, err)

	g := jsapi.GlobalOf(inst.Export("global"))
	require.NotNil(t, g)
	v := g.Value()
	fn := jsapi.FunctionOf(v)
	require.NotNil(t, fn)
	require.Same(t, v, g.Value())

	got, err := fn.Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(9), got)
}

func TestInstantiate_MultipleInstancesAreIndependent(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()
	b := builder.New()
	b.AddGlobal(wasm.ValI32, true).InitI32(1).ExportAs("g")
	mod, err := b.Compile(ctx, rt)
	require.NoError(t, err)

	a, err := rt.Instantiate(ctx, mod, jsval.Undefined)
	require.NoError(t, err)
	c, err := rt.Instantiate(ctx, mod, jsval.Undefined)
	require.NoError(t, err)

	require.NoError(t, jsapi.GlobalOf(a.Export("g")).SetValue(jsval.Number(5)))
	require.Equal(t, jsval.Number(1), jsapi.GlobalOf(c.Export("g")).Value())
	require.NotSame(t, a.Export("g"), c.Export("g"))
}
