package builder

import (
	"github.com/wippyai/wasm-jsapi/wasm"
)

// FunctionBuilder declares a local function.
type FunctionBuilder struct {
	module  *ModuleBuilder
	name    string
	body    []byte
	locals  []wasm.LocalEntry
	typeIdx uint32
	index   uint32
}

// AddBody appends instructions to the body. The final end is added when the
// module is encoded.
func (f *FunctionBuilder) AddBody(code ...byte) *FunctionBuilder {
	f.body = append(f.body, code...)
	return f
}

// AddLocals declares n locals of type t.
func (f *FunctionBuilder) AddLocals(t wasm.ValType, n uint32) *FunctionBuilder {
	f.locals = append(f.locals, wasm.LocalEntry{Count: n, ValType: t})
	return f
}

// ExportFunc exports the function under its own name.
func (f *FunctionBuilder) ExportFunc() *FunctionBuilder {
	return f.ExportAs(f.name)
}

// ExportAs exports the function under name.
func (f *FunctionBuilder) ExportAs(name string) *FunctionBuilder {
	f.module.AddExportOfKind(name, wasm.KindFunc, f.index)
	return f
}

// Index returns the function index.
func (f *FunctionBuilder) Index() uint32 { return f.index }

// Name returns the declared name.
func (f *FunctionBuilder) Name() string { return f.name }

// TypeIndex returns the index of the function's signature.
func (f *FunctionBuilder) TypeIndex() uint32 { return f.typeIdx }

// TableBuilder declares a local table.
type TableBuilder struct {
	module *ModuleBuilder
	typ    wasm.TableType
	index  uint32
}

// ExportAs exports the table under name.
func (t *TableBuilder) ExportAs(name string) *TableBuilder {
	t.module.AddExportOfKind(name, wasm.KindTable, t.index)
	return t
}

// Index returns the table index.
func (t *TableBuilder) Index() uint32 { return t.index }

// MemoryBuilder declares a local memory.
type MemoryBuilder struct {
	module *ModuleBuilder
	typ    wasm.MemoryType
	index  uint32
}

// Shared marks the memory shared. A shared memory needs a maximum.
func (m *MemoryBuilder) Shared() *MemoryBuilder {
	m.typ.Limits.Shared = true
	return m
}

// ExportAs exports the memory under name.
func (m *MemoryBuilder) ExportAs(name string) *MemoryBuilder {
	m.module.AddExportOfKind(name, wasm.KindMemory, m.index)
	return m
}

// Index returns the memory index.
func (m *MemoryBuilder) Index() uint32 { return m.index }

// GlobalBuilder declares a local global.
type GlobalBuilder struct {
	module *ModuleBuilder
	init   []byte
	typ    wasm.GlobalType
	index  uint32
}

// ExportAs exports the global under name.
func (g *GlobalBuilder) ExportAs(name string) *GlobalBuilder {
	g.module.AddExportOfKind(name, wasm.KindGlobal, g.index)
	return g
}

// Index returns the global index.
func (g *GlobalBuilder) Index() uint32 { return g.index }

// InitI32 initializes the global with i32.const v.
func (g *GlobalBuilder) InitI32(v int32) *GlobalBuilder {
	g.init = wasm.I32ConstExpr(v)
	return g
}

// InitI64 initializes the global with i64.const v.
func (g *GlobalBuilder) InitI64(v int64) *GlobalBuilder {
	g.init = wasm.I64ConstExpr(v)
	return g
}

// InitF32 initializes the global with f32.const v.
func (g *GlobalBuilder) InitF32(v float32) *GlobalBuilder {
	g.init = wasm.F32ConstExpr(v)
	return g
}

// InitF64 initializes the global with f64.const v.
func (g *GlobalBuilder) InitF64(v float64) *GlobalBuilder {
	g.init = wasm.F64ConstExpr(v)
	return g
}

// InitFunc initializes a funcref global with ref.func funcIndex.
func (g *GlobalBuilder) InitFunc(funcIndex uint32) *GlobalBuilder {
	g.init = wasm.RefFuncExpr(funcIndex)
	return g
}

// InitNull initializes a reference global with ref.null.
func (g *GlobalBuilder) InitNull() *GlobalBuilder {
	g.init = wasm.RefNullExpr(g.typ.ValType)
	return g
}

// InitGlobal initializes the global from an imported global.
func (g *GlobalBuilder) InitGlobal(index uint32) *GlobalBuilder {
	g.init = wasm.GlobalGetExpr(index)
	return g
}
