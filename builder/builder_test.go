package builder

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

func TestAddType_Dedup(t *testing.T) {
	b := New()
	i0 := b.AddType(SigVI)
	i1 := b.AddType(SigIV)
	i2 := b.AddType(Sig([]wasm.ValType{wasm.ValI32}, nil))

	if i0 != 0 || i1 != 1 {
		t.Fatalf("indices = %d, %d, want 0, 1", i0, i1)
	}
	if i2 != i0 {
		t.Errorf("equal signature got index %d, want %d", i2, i0)
	}
}

func TestAddType_InvalidTypeFailsAtToBuffer(t *testing.T) {
	b := New()
	b.AddType(Sig([]wasm.ValType{wasm.ValType(0x01)}, nil))

	_, err := b.ToBuffer()
	require.Error(t, err)
	require.True(t, errors.IsClass(err, errors.ClassCompileError), "got %v", err)
}

func TestImportAfterLocalFunction(t *testing.T) {
	b := New()
	b.AddFunction("f", SigVV).AddBody()
	b.AddImport("m", "late", SigVV)

	_, err := b.ToBuffer()
	require.Error(t, err)
	require.True(t, errors.IsClass(err, errors.ClassCompileError))
	require.Contains(t, err.Error(), "m.late")
}

func TestExportOutOfRange(t *testing.T) {
	b := New()
	b.AddExport("missing", 3)

	_, err := b.ToBuffer()
	require.Error(t, err)
	require.True(t, errors.IsClass(err, errors.ClassCompileError))
}

func TestIndexSpaces(t *testing.T) {
	b := New()
	f0 := b.AddImport("m", "a", SigVV)
	f1 := b.AddImport("m", "b", SigVI)
	local := b.AddFunction("local", SigVV)
	t0 := b.AddImportedTable("m", "table", 1)
	t1 := b.AddTable(wasm.ValFuncRef, 2)
	g0 := b.AddImportedGlobal("m", "g", wasm.ValI32, false)
	g1 := b.AddGlobal(wasm.ValI32, true)

	require.Equal(t, uint32(0), f0)
	require.Equal(t, uint32(1), f1)
	require.Equal(t, uint32(2), local.Index())
	require.Equal(t, uint32(0), t0)
	require.Equal(t, uint32(1), t1.Index())
	require.Equal(t, uint32(0), g0)
	require.Equal(t, uint32(1), g1.Index())
}

func TestToBuffer_FreshSlices(t *testing.T) {
	b := New()
	b.AddFunction("fn", SigVV).AddBody().ExportFunc()

	first, err := b.ToBuffer()
	require.NoError(t, err)
	second, err := b.ToBuffer()
	require.NoError(t, err)

	require.True(t, bytes.Equal(first, second))
	first[0] = 0xff
	require.Equal(t, byte(0x00), second[0])
}

func TestToBuffer_RoundTrip(t *testing.T) {
	b := New()
	b.AddImport("env", "log", SigVI)
	b.AddFunction("fn", SigVV).AddBody().ExportFunc()
	b.AddFunction("", SigIL).AddBody(wasm.OpI32Const, 0).ExportFunc()
	b.AddTable(wasm.ValFuncRef, 10, 100).ExportAs("table")
	b.AddGlobal(wasm.ValI32, true).InitI32(7).ExportAs("global")
	b.AddGlobal(wasm.ValF64, false).InitF64(1.2).ExportAs("global2")
	b.AddMemory(0, 256).ExportAs("memory")

	buf, err := b.ToBuffer()
	require.NoError(t, err)

	m, err := wasm.ParseModule(buf)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	var names []string
	for _, exp := range m.Exports {
		names = append(names, exp.Name)
	}
	require.Equal(t, []string{"fn", "", "table", "global", "global2", "memory"}, names)
	require.Equal(t, uint32(1), m.Exports[0].Idx)
	require.Equal(t, uint32(2), m.Exports[1].Idx)

	require.Len(t, m.Imports, 1)
	require.Equal(t, "env", m.Imports[0].Module)

	gt := m.GlobalTypeAt(0)
	require.NotNil(t, gt)
	require.True(t, gt.Mutable)
	v, ok := wasm.ConstI32(m.Globals[0].Init)
	require.True(t, ok)
	require.Equal(t, int32(7), v)

	require.Len(t, m.Memories, 1)
	require.NotNil(t, m.Memories[0].Limits.Max)
	require.Equal(t, uint64(256), *m.Memories[0].Limits.Max)
}

func TestActiveElementSegment(t *testing.T) {
	b := New()
	imp := b.AddImport("m", "imp", SigIIII)
	b.AddTable(wasm.ValFuncRef, 1, 1)
	b.AddActiveElementSegment(0, I32Const(0), [][]byte{RefFunc(imp)}, wasm.ValFuncRef)

	m := b.ToModule()
	require.Len(t, m.Elements, 1)
	elem := m.Elements[0]
	require.Equal(t, uint32(4), elem.Flags)
	require.True(t, elem.IsActive())

	idxs, ok := elem.FuncIndices()
	require.Equal(t, []uint32{imp}, idxs)
	require.Equal(t, []bool{true}, ok)

	off, isConst := elem.ConstOffset()
	require.True(t, isConst)
	require.Equal(t, int32(0), off)

	_, err := b.ToBuffer()
	require.NoError(t, err)
}

func TestNameSection(t *testing.T) {
	b := New()
	b.AddFunction("alpha", SigVV).AddBody()
	b.AddFunction("", SigVV).AddBody()

	m := b.ToModule()
	require.Len(t, m.CustomSections, 1)
	require.Equal(t, "name", m.CustomSections[0].Name)

	data := m.CustomSections[0].Data
	require.Equal(t, wasm.NameSectionFunctions, data[0])
	require.True(t, bytes.Contains(data, []byte("alpha")))
}

func TestInstantiate(t *testing.T) {
	ctx := context.Background()
	rt, err := jsapi.New(ctx, jsapi.DefaultConfig())
	require.NoError(t, err)
	defer rt.Close(ctx)

	b := New()
	fun := b.AddImport("m", "fun", SigIV)
	b.AddFunction("main", SigIV).
		AddBody(wasm.OpCall, byte(fun), wasm.OpI32Const, 1, wasm.OpI32Add).
		ExportFunc()

	callable := jsval.NewFunction("fun", 0, func(jsval.Value, []jsval.Value) (jsval.Value, error) {
		return jsval.Number(41), nil
	})
	imports := jsval.NewRecord(jsval.Prop("m", jsval.NewRecord(jsval.Prop("fun", callable))))

	inst, err := b.Instantiate(ctx, rt, imports)
	require.NoError(t, err)

	main := inst.ExportedFunction("main")
	require.NotNil(t, main)
	got, err := main.Call()
	require.NoError(t, err)
	require.Equal(t, jsval.Number(42), got)
}

func TestReadBack(t *testing.T) {
	tests := []struct {
		name    string
		build   func(b *ModuleBuilder)
		imports func(t *testing.T, rt *jsapi.Runtime) jsval.Value
		check   func(t *testing.T, inst *jsapi.Instance)
	}{
		{
			name: "InitI64",
			build: func(b *ModuleBuilder) {
				b.AddGlobal(wasm.ValI64, false).InitI64(-5).ExportAs("g")
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				v, ok := globalValue(t, inst, "g").(*jsval.BigInt)
				require.True(t, ok)
				require.Equal(t, int64(-5), v.Int().Int64())
			},
		},
		{
			name: "InitF32",
			build: func(b *ModuleBuilder) {
				b.AddGlobal(wasm.ValF32, false).InitF32(1.5).ExportAs("g")
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				require.Equal(t, jsval.Number(1.5), globalValue(t, inst, "g"))
			},
		},
		{
			name: "InitNull externref",
			build: func(b *ModuleBuilder) {
				b.AddGlobal(wasm.ValExtern, true).InitNull().ExportAs("g")
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				require.Equal(t, jsval.Null, globalValue(t, inst, "g"))
			},
		},
		{
			name: "InitNull funcref",
			build: func(b *ModuleBuilder) {
				b.AddGlobal(wasm.ValFuncRef, true).InitNull().ExportAs("g")
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				require.Equal(t, jsval.Null, globalValue(t, inst, "g"))
			},
		},
		{
			name: "InitGlobal",
			build: func(b *ModuleBuilder) {
				g := b.AddImportedGlobal("m", "g", wasm.ValI32, false)
				b.AddGlobal(wasm.ValI32, false).InitGlobal(g).ExportAs("copy")
			},
			imports: func(*testing.T, *jsapi.Runtime) jsval.Value {
				return jsval.NewRecord(jsval.Prop("m", jsval.NewRecord(jsval.Prop("g", jsval.Number(9)))))
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				require.Equal(t, jsval.Number(9), globalValue(t, inst, "copy"))
			},
		},
		{
			name: "AddDataSegment",
			build: func(b *ModuleBuilder) {
				b.AddMemory(1).ExportAs("mem")
				b.AddDataSegment(8, []byte("hello"))
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				mem := jsapi.MemoryOf(inst.Export("mem"))
				require.NotNil(t, mem)
				got, ok := mem.Read(8, 5)
				require.True(t, ok)
				require.Equal(t, []byte("hello"), got)
			},
		},
		{
			name: "AddImportedSharedMemory",
			build: func(b *ModuleBuilder) {
				idx := b.AddImportedSharedMemory("m", "mem", 1, 2)
				b.AddExportOfKind("mem", wasm.KindMemory, idx)
			},
			imports: func(t *testing.T, rt *jsapi.Runtime) jsval.Value {
				mem, err := rt.NewMemory(context.Background(), jsval.NewRecord(
					jsval.Prop("initial", jsval.Number(1)),
					jsval.Prop("maximum", jsval.Number(2)),
					jsval.Prop("shared", jsval.Bool(true)),
				))
				require.NoError(t, err)
				return jsval.NewRecord(jsval.Prop("m", jsval.NewRecord(jsval.Prop("mem", mem.Object()))))
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				mem := jsapi.MemoryOf(inst.Export("mem"))
				require.NotNil(t, mem)
				require.True(t, mem.Shared())
				require.Equal(t, uint32(1), mem.Pages())
			},
		},
		{
			name: "AddDeclarativeElementSegment",
			build: func(b *ModuleBuilder) {
				target := b.AddFunction("target", SigIV).AddBody(I32Const(3)...)
				b.AddDeclarativeElementSegment(target.Index())
				b.AddFunction("get", Sig(nil, []wasm.ValType{wasm.ValFuncRef})).
					AddBody(RefFunc(target.Index())...).
					ExportFunc()
			},
			check: func(t *testing.T, inst *jsapi.Instance) {
				get := inst.ExportedFunction("get")
				first, err := get.Call()
				require.NoError(t, err)
				require.NotEqual(t, jsval.Null, first)
				second, err := get.Call()
				require.NoError(t, err)
				require.True(t, jsval.SameValue(first, second))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			rt, err := jsapi.New(ctx, jsapi.DefaultConfig())
			require.NoError(t, err)
			defer rt.Close(ctx)

			b := New()
			tt.build(b)
			buf, err := b.ToBuffer()
			require.NoError(t, err)
			_, err = wasm.ParseModule(buf)
			require.NoError(t, err)

			var imports jsval.Value = jsval.NewRecord()
			if tt.imports != nil {
				imports = tt.imports(t, rt)
			}
			inst, err := b.Instantiate(ctx, rt, imports)
			require.NoError(t, err)
			tt.check(t, inst)
		})
	}
}

func TestAddDeclarativeElementSegment_Encoding(t *testing.T) {
	b := New()
	f := b.AddFunction("f", SigVV).AddBody()
	b.AddDeclarativeElementSegment(f.Index())

	buf, err := b.ToBuffer()
	require.NoError(t, err)
	m, err := wasm.ParseModule(buf)
	require.NoError(t, err)
	require.Len(t, m.Elements, 1)
	require.True(t, m.Elements[0].IsDeclarative())
	idxs, ok := m.Elements[0].FuncIndices()
	require.Equal(t, []uint32{f.Index()}, idxs)
	require.Equal(t, []bool{true}, ok)
}

func globalValue(t *testing.T, inst *jsapi.Instance, name string) jsval.Value {
	t.Helper()
	g := jsapi.GlobalOf(inst.Export(name))
	require.NotNil(t, g)
	return g.Value()
}
