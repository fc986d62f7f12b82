package jsapi

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-jsapi/wasm"
)

// Provider modules are small synthesized modules that own the tables,
// globals and memories created from JS. Instances import from them, so a
// single engine object can be shared by JS and any number of instances.

// location names an export of an engine module.
type location struct {
	module string
	name   string
}

// Export names used by provider modules.
const (
	providerTable  = "table"
	providerGlobal = "global"
	providerMemory = "memory"
	providerSize   = "size"
	providerGrow   = "grow"
	providerGet    = "get"
	providerSet    = "set"
	providerRef    = "ref"
)

// tableProvider exports a table plus size, grow, get and set accessors,
// since the engine exposes no host API for tables.
func tableProvider(tt wasm.TableType) *wasm.Module {
	ref := tt.ElemType
	m := &wasm.Module{Tables: []wasm.TableType{tt}}

	sizeType := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	growType := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, ref}, Results: []wasm.ValType{wasm.ValI32}})
	getType := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{ref}})
	setType := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, ref}})

	funcs := []struct {
		name    string
		typeIdx uint32
		code    []byte
	}{
		{providerSize, sizeType, miscOp(wasm.MiscTableSize, 0)},
		{providerGrow, growType, concatBytes(
			[]byte{wasm.OpLocalGet, 1, wasm.OpLocalGet, 0},
			miscOp(wasm.MiscTableGrow, 0),
		)},
		{providerGet, getType, []byte{wasm.OpLocalGet, 0, wasm.OpTableGet, 0}},
		{providerSet, setType, []byte{wasm.OpLocalGet, 0, wasm.OpLocalGet, 1, wasm.OpTableSet, 0}},
	}

	m.Exports = append(m.Exports, wasm.Export{Name: providerTable, Kind: wasm.KindTable, Idx: 0})
	for i, f := range funcs {
		m.Funcs = append(m.Funcs, f.typeIdx)
		m.Code = append(m.Code, wasm.FuncBody{Code: append(f.code, wasm.OpEnd)})
		m.Exports = append(m.Exports, wasm.Export{Name: f.name, Kind: wasm.KindFunc, Idx: uint32(i)})
	}
	return m
}

// globalProvider exports one global initialized by init. When fn is set the
// function is imported first so init may be a ref.func of index 0.
func globalProvider(gt wasm.GlobalType, init []byte, fn *location, sig wasm.FuncType) *wasm.Module {
	m := &wasm.Module{}
	if fn != nil {
		typeIdx := m.AddType(sig)
		m.Imports = append(m.Imports, wasm.Import{
			Module: fn.module,
			Name:   fn.name,
			Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx},
		})
	}
	m.Globals = []wasm.Global{{Type: gt, Init: init}}
	m.Exports = []wasm.Export{{Name: providerGlobal, Kind: wasm.KindGlobal, Idx: 0}}
	return m
}

// memoryProvider exports one memory.
func memoryProvider(mt wasm.MemoryType) *wasm.Module {
	return &wasm.Module{
		Memories: []wasm.MemoryType{mt},
		Exports:  []wasm.Export{{Name: providerMemory, Kind: wasm.KindMemory, Idx: 0}},
	}
}

// refProvider imports the function at fn and exports "ref", which returns a
// reference to it. It is how a function gets raw reference bits that can be
// stored into tables and globals or passed as a funcref argument.
func refProvider(fn location, sig wasm.FuncType) *wasm.Module {
	m := &wasm.Module{}
	importType := m.AddType(sig)
	refType := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValFuncRef}})
	m.Imports = []wasm.Import{{
		Module: fn.module,
		Name:   fn.name,
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: importType},
	}}
	m.Funcs = []uint32{refType}
	m.Elements = []wasm.Element{{Flags: 3, ElemKind: wasm.ElemKindFunc, FuncIdxs: []uint32{0}}}
	m.Code = []wasm.FuncBody{{Code: []byte{wasm.OpRefFunc, 0, wasm.OpEnd}}}
	m.Exports = []wasm.Export{{Name: providerRef, Kind: wasm.KindFunc, Idx: 1}}
	return m
}

func miscOp(op uint32, arg uint32) []byte {
	out := wasm.AppendU32([]byte{wasm.OpPrefixMisc}, op)
	return wasm.AppendU32(out, arg)
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// instantiateSynth compiles and instantiates a synthesized module under name.
func (rt *Runtime) instantiateSynth(ctx context.Context, name string, m *wasm.Module) (api.Module, error) {
	compiled, err := rt.engine.CompileModule(ctx, m.Encode())
	if err != nil {
		return nil, err
	}
	rt.compiled = append(rt.compiled, compiled)
	mod, err := rt.engine.InstantiateModule(ctx, compiled, rt.moduleConfig(name))
	if err != nil {
		return nil, err
	}
	rt.debugf("instantiated provider %s", name)
	return mod, nil
}

func (rt *Runtime) moduleConfig(name string) wazero.ModuleConfig {
	return wazero.NewModuleConfig().WithName(name).WithStartFunctions()
}
