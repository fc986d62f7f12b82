package builder

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// ModuleBuilder accumulates the declared surface of a module and encodes
// it. Index spaces are imports first, then local entities, both in
// declaration order.
//
// Declarations are never checked when made. Problems are collected and
// reported by ToBuffer, so a test can build a malformed module on purpose
// and observe the failure where an engine would report it.
type ModuleBuilder struct {
	types    []wasm.FuncType
	imports  []wasm.Import
	funcs    []*FunctionBuilder
	tables   []*TableBuilder
	memories []*MemoryBuilder
	globals  []*GlobalBuilder
	exports  []wasm.Export
	elements []wasm.Element
	data     []wasm.DataSegment
	customs  []wasm.CustomSection
	start    *uint32

	importedFuncs    uint32
	importedTables   uint32
	importedMemories uint32
	importedGlobals  uint32

	err error
}

// New returns an empty module builder.
func New() *ModuleBuilder {
	return &ModuleBuilder{}
}

func (b *ModuleBuilder) fail(format string, args ...any) {
	b.err = multierr.Append(b.err, fmt.Errorf(format, args...))
}

// AddType registers sig and returns its index. A signature equal to one
// already registered returns the existing index.
func (b *ModuleBuilder) AddType(sig wasm.FuncType) uint32 {
	for i, t := range b.types {
		if t.Equal(sig) {
			return uint32(i)
		}
	}
	b.types = append(b.types, wasm.FuncType{
		Params:  append([]wasm.ValType{}, sig.Params...),
		Results: append([]wasm.ValType{}, sig.Results...),
	})
	return uint32(len(b.types) - 1)
}

// AddImport declares an imported function and returns its function index.
func (b *ModuleBuilder) AddImport(module, field string, sig wasm.FuncType) uint32 {
	if len(b.funcs) > 0 {
		b.fail("function import %s.%s declared after local functions", module, field)
	}
	b.imports = append(b.imports, wasm.Import{
		Module: module,
		Name:   field,
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: b.AddType(sig)},
	})
	b.importedFuncs++
	return b.importedFuncs - 1
}

// AddImportedTable declares an imported table and returns its table index.
// The element type defaults to funcref.
func (b *ModuleBuilder) AddImportedTable(module, field string, min uint32, max ...uint32) uint32 {
	return b.AddImportedTableOf(module, field, wasm.ValFuncRef, min, max...)
}

// AddImportedTableOf declares an imported table of the given element type.
func (b *ModuleBuilder) AddImportedTableOf(module, field string, elem wasm.ValType, min uint32, max ...uint32) uint32 {
	if len(b.tables) > 0 {
		b.fail("table import %s.%s declared after local tables", module, field)
	}
	b.imports = append(b.imports, wasm.Import{
		Module: module,
		Name:   field,
		Desc:   wasm.ImportDesc{Kind: wasm.KindTable, Table: &wasm.TableType{ElemType: elem, Limits: limits(min, max)}},
	})
	b.importedTables++
	return b.importedTables - 1
}

// AddImportedGlobal declares an imported global and returns its global
// index.
func (b *ModuleBuilder) AddImportedGlobal(module, field string, t wasm.ValType, mutable bool) uint32 {
	if len(b.globals) > 0 {
		b.fail("global import %s.%s declared after local globals", module, field)
	}
	b.imports = append(b.imports, wasm.Import{
		Module: module,
		Name:   field,
		Desc:   wasm.ImportDesc{Kind: wasm.KindGlobal, Global: &wasm.GlobalType{ValType: t, Mutable: mutable}},
	})
	b.importedGlobals++
	return b.importedGlobals - 1
}

// AddImportedMemory declares an imported memory and returns its memory
// index.
func (b *ModuleBuilder) AddImportedMemory(module, field string, min uint32, max ...uint32) uint32 {
	return b.addImportedMemory(module, field, limits(min, max))
}

// AddImportedSharedMemory declares an imported shared memory.
func (b *ModuleBuilder) AddImportedSharedMemory(module, field string, min, max uint32) uint32 {
	l := limits(min, []uint32{max})
	l.Shared = true
	return b.addImportedMemory(module, field, l)
}

func (b *ModuleBuilder) addImportedMemory(module, field string, l wasm.Limits) uint32 {
	if len(b.memories) > 0 {
		b.fail("memory import %s.%s declared after local memories", module, field)
	}
	b.imports = append(b.imports, wasm.Import{
		Module: module,
		Name:   field,
		Desc:   wasm.ImportDesc{Kind: wasm.KindMemory, Memory: &wasm.MemoryType{Limits: l}},
	})
	b.importedMemories++
	return b.importedMemories - 1
}

// AddFunction declares a local function. name is used by ExportFunc and in
// the name section; the empty name is a valid name.
func (b *ModuleBuilder) AddFunction(name string, sig wasm.FuncType) *FunctionBuilder {
	f := &FunctionBuilder{
		module:  b,
		name:    name,
		typeIdx: b.AddType(sig),
		index:   b.importedFuncs + uint32(len(b.funcs)),
	}
	b.funcs = append(b.funcs, f)
	return f
}

// AddTable declares a local table.
func (b *ModuleBuilder) AddTable(elem wasm.ValType, min uint32, max ...uint32) *TableBuilder {
	t := &TableBuilder{
		module: b,
		typ:    wasm.TableType{ElemType: elem, Limits: limits(min, max)},
		index:  b.importedTables + uint32(len(b.tables)),
	}
	b.tables = append(b.tables, t)
	return t
}

// SetTableBounds sets the limits of the first local table, declaring a
// funcref table when there is none.
func (b *ModuleBuilder) SetTableBounds(min uint32, max ...uint32) *TableBuilder {
	if len(b.tables) == 0 {
		return b.AddTable(wasm.ValFuncRef, min, max...)
	}
	b.tables[0].typ.Limits = limits(min, max)
	return b.tables[0]
}

// AddMemory declares a local memory.
func (b *ModuleBuilder) AddMemory(min uint32, max ...uint32) *MemoryBuilder {
	m := &MemoryBuilder{
		module: b,
		typ:    wasm.MemoryType{Limits: limits(min, max)},
		index:  b.importedMemories + uint32(len(b.memories)),
	}
	b.memories = append(b.memories, m)
	return m
}

// AddGlobal declares a local global initialized to the zero value of t.
func (b *ModuleBuilder) AddGlobal(t wasm.ValType, mutable bool) *GlobalBuilder {
	g := &GlobalBuilder{
		module: b,
		typ:    wasm.GlobalType{ValType: t, Mutable: mutable},
		init:   wasm.ZeroExpr(t),
		index:  b.importedGlobals + uint32(len(b.globals)),
	}
	b.globals = append(b.globals, g)
	return g
}

// AddExport exports function index under name.
func (b *ModuleBuilder) AddExport(name string, funcIndex uint32) *ModuleBuilder {
	return b.AddExportOfKind(name, wasm.KindFunc, funcIndex)
}

// AddExportOfKind exports entity index of the given kind under name.
func (b *ModuleBuilder) AddExportOfKind(name string, kind byte, index uint32) *ModuleBuilder {
	b.exports = append(b.exports, wasm.Export{Name: name, Kind: kind, Idx: index})
	return b
}

// AddActiveElementSegment initializes table at offset with elems, each a
// constant expression without its trailing end, such as RefFunc(0).
// offset is a constant expression as well, such as I32Const(0).
func (b *ModuleBuilder) AddActiveElementSegment(table uint32, offset []byte, elems [][]byte, elemType wasm.ValType) uint32 {
	e := wasm.Element{
		Flags:    4,
		TableIdx: table,
		Offset:   withEnd(offset),
		Type:     elemType,
	}
	if table != 0 || elemType != wasm.ValFuncRef {
		e.Flags = 6
	}
	for _, expr := range elems {
		e.Exprs = append(e.Exprs, withEnd(expr))
	}
	b.elements = append(b.elements, e)
	return uint32(len(b.elements) - 1)
}

// AddActiveFunctionSegment initializes a funcref table at a constant offset
// with function indices.
func (b *ModuleBuilder) AddActiveFunctionSegment(table, offset uint32, funcs ...uint32) uint32 {
	e := wasm.Element{
		TableIdx: table,
		Offset:   wasm.I32ConstExpr(int32(offset)),
		FuncIdxs: append([]uint32(nil), funcs...),
		ElemKind: wasm.ElemKindFunc,
	}
	if table != 0 {
		e.Flags = 2
	}
	b.elements = append(b.elements, e)
	return uint32(len(b.elements) - 1)
}

// AddDeclarativeElementSegment declares funcs as referenceable by ref.func.
func (b *ModuleBuilder) AddDeclarativeElementSegment(funcs ...uint32) uint32 {
	b.elements = append(b.elements, wasm.Element{
		Flags:    3,
		ElemKind: wasm.ElemKindFunc,
		FuncIdxs: append([]uint32(nil), funcs...),
	})
	return uint32(len(b.elements) - 1)
}

// AddDataSegment initializes memory 0 at offset with data.
func (b *ModuleBuilder) AddDataSegment(offset uint32, data []byte) *ModuleBuilder {
	b.data = append(b.data, wasm.DataSegment{
		Offset: wasm.I32ConstExpr(int32(offset)),
		Init:   append([]byte(nil), data...),
	})
	return b
}

// AddStart makes funcIndex the start function.
func (b *ModuleBuilder) AddStart(funcIndex uint32) *ModuleBuilder {
	b.start = &funcIndex
	return b
}

// AddCustomSection appends a custom section.
func (b *ModuleBuilder) AddCustomSection(name string, data []byte) *ModuleBuilder {
	b.customs = append(b.customs, wasm.CustomSection{Name: name, Data: append([]byte(nil), data...)})
	return b
}

// ToModule returns a fresh description of the declared module.
func (b *ModuleBuilder) ToModule() *wasm.Module {
	m := &wasm.Module{
		Imports: append([]wasm.Import(nil), b.imports...),
		Exports: append([]wasm.Export(nil), b.exports...),
		Start:   b.start,
	}
	for _, t := range b.types {
		m.Types = append(m.Types, wasm.FuncType{
			Params:  append([]wasm.ValType{}, t.Params...),
			Results: append([]wasm.ValType{}, t.Results...),
		})
	}
	for _, f := range b.funcs {
		m.Funcs = append(m.Funcs, f.typeIdx)
		m.Code = append(m.Code, wasm.FuncBody{
			Locals: append([]wasm.LocalEntry(nil), f.locals...),
			Code:   withEnd(f.body),
		})
	}
	for _, t := range b.tables {
		m.Tables = append(m.Tables, t.typ)
	}
	for _, mem := range b.memories {
		m.Memories = append(m.Memories, mem.typ)
	}
	for _, g := range b.globals {
		m.Globals = append(m.Globals, wasm.Global{Type: g.typ, Init: append([]byte(nil), g.init...)})
	}
	m.Elements = append(m.Elements, b.elements...)
	m.Data = append(m.Data, b.data...)
	m.CustomSections = append(m.CustomSections, b.customs...)
	if len(b.funcs) > 0 {
		m.CustomSections = append(m.CustomSections, wasm.CustomSection{Name: "name", Data: b.nameSection()})
	}
	return m.Clone()
}

// ToBuffer validates and encodes the module. Every call returns a new
// slice; the contents only change when the declarations do.
func (b *ModuleBuilder) ToBuffer() ([]byte, error) {
	if b.err != nil {
		return nil, errors.Wrap(errors.PhaseBuild, errors.KindValidation, b.err, "invalid declarations")
	}
	m := b.ToModule()
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseBuild, errors.KindValidation, err, "invalid module")
	}
	return m.Encode(), nil
}

// Compile encodes the module and compiles it with rt.
func (b *ModuleBuilder) Compile(ctx context.Context, rt *jsapi.Runtime) (*jsapi.Module, error) {
	buf, err := b.ToBuffer()
	if err != nil {
		return nil, err
	}
	return rt.Compile(ctx, buf)
}

// Instantiate compiles the module and instantiates it with importObject,
// which may be nil when the module has no imports.
func (b *ModuleBuilder) Instantiate(ctx context.Context, rt *jsapi.Runtime, importObject jsval.Value) (*jsapi.Instance, error) {
	m, err := b.Compile(ctx, rt)
	if err != nil {
		return nil, err
	}
	if importObject == nil {
		importObject = jsval.Undefined
	}
	return rt.Instantiate(ctx, m, importObject)
}

// nameSection encodes the function names subsection.
func (b *ModuleBuilder) nameSection() []byte {
	var names []byte
	names = wasm.AppendU32(names, uint32(len(b.funcs)))
	for _, f := range b.funcs {
		names = wasm.AppendU32(names, f.index)
		names = wasm.AppendU32(names, uint32(len(f.name)))
		names = append(names, f.name...)
	}
	out := []byte{wasm.NameSectionFunctions}
	out = wasm.AppendU32(out, uint32(len(names)))
	return append(out, names...)
}

func limits(min uint32, max []uint32) wasm.Limits {
	l := wasm.Limits{Min: uint64(min)}
	if len(max) > 0 {
		m := uint64(max[0])
		l.Max = &m
	}
	return l
}

func withEnd(expr []byte) []byte {
	out := append([]byte(nil), expr...)
	return append(out, wasm.OpEnd)
}
