package wasm

// Module is a decoded or builder-assembled WebAssembly module.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // Type indices for declared functions
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elements []Element
	Code     []FuncBody
	Data     []DataSegment

	// DataCount holds the count from the DataCount section (ID 12).
	DataCount *uint32

	CustomSections []CustomSection
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether both signatures have pairwise equal parameter and
// result sequences.
func (f FuncType) Equal(other FuncType) bool {
	return valTypesEqual(f.Params, other.Params) && valTypesEqual(f.Results, other.Results)
}

// String renders the signature as "(i32, f64) -> (i64)".
func (f FuncType) String() string {
	return "(" + joinValTypes(f.Params) + ") -> (" + joinValTypes(f.Results) + ")"
}

func joinValTypes(types []ValType) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}

func valTypesEqual(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64, etc.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return "unknown"
	}
}

// Valid reports whether v is a value type this module understands.
func (v ValType) Valid() bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64, ValV128, ValFuncRef, ValExtern:
		return true
	}
	return false
}

// IsRef reports whether v is a reference type.
func (v ValType) IsRef() bool {
	return v == ValFuncRef || v == ValExtern
}

// Import represents an imported function, table, memory, or global.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item.
// Kind uses KindFunc, KindTable, KindMemory, or KindGlobal constants.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx uint32
	Kind    byte
}

// TableType describes a table with element type and size limits.
type TableType struct {
	Limits   Limits
	ElemType ValType
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Max    *uint64
	Min    uint64
	Shared bool
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global represents a global variable with type and initialization.
type Global struct {
	Type GlobalType
	Init []byte // Raw init expression bytes, including the end opcode
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Element represents an element segment.
// Flags determine the format:
//   - 0: active, tableIdx=0, offset expr, vec(funcidx)
//   - 1: passive, elemkind, vec(funcidx)
//   - 2: active, tableIdx, offset expr, elemkind, vec(funcidx)
//   - 3: declarative, elemkind, vec(funcidx)
//   - 4: active, tableIdx=0, offset expr, vec(expr)
//   - 5: passive, reftype, vec(expr)
//   - 6: active, tableIdx, offset expr, reftype, vec(expr)
//   - 7: declarative, reftype, vec(expr)
type Element struct {
	Offset   []byte
	FuncIdxs []uint32
	Exprs    [][]byte
	Flags    uint32
	TableIdx uint32
	ElemKind byte
	Type     ValType
}

// IsActive reports whether the segment is applied at instantiation.
func (e *Element) IsActive() bool {
	return e.Flags&0x01 == 0
}

// IsDeclarative reports whether the segment only declares function references.
func (e *Element) IsDeclarative() bool {
	return e.Flags&0x03 == 0x03
}

// UsesExprs reports whether the segment stores expressions instead of indices.
func (e *Element) UsesExprs() bool {
	return e.Flags&0x04 != 0
}

// RefType returns the reference type of the segment's elements.
func (e *Element) RefType() ValType {
	if e.UsesExprs() {
		if e.Flags&0x03 == 0 {
			return ValFuncRef
		}
		return e.Type
	}
	return ValFuncRef
}

// Len returns the number of elements in the segment.
func (e *Element) Len() int {
	if e.UsesExprs() {
		return len(e.Exprs)
	}
	return len(e.FuncIdxs)
}

// FuncIndices returns the function index of each element. ok is false at a
// position holding a null reference or a non ref.func expression.
func (e *Element) FuncIndices() (idxs []uint32, ok []bool) {
	if !e.UsesExprs() {
		ok = make([]bool, len(e.FuncIdxs))
		for i := range ok {
			ok[i] = true
		}
		return append([]uint32(nil), e.FuncIdxs...), ok
	}
	idxs = make([]uint32, len(e.Exprs))
	ok = make([]bool, len(e.Exprs))
	for i, expr := range e.Exprs {
		idxs[i], ok[i] = RefFuncIndex(expr)
	}
	return idxs, ok
}

// ConstOffset returns the offset of an active segment whose offset
// expression is a single i32.const.
func (e *Element) ConstOffset() (int32, bool) {
	return ConstI32(e.Offset)
}

// FuncBody represents a function's local declarations and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including end opcode
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment represents a data segment.
// Flags determine the format:
//   - 0: active, memIdx=0, offset expr, vec(byte)
//   - 1: passive, vec(byte)
//   - 2: active, memIdx, offset expr, vec(byte)
type DataSegment struct {
	Offset []byte
	Init   []byte
	Flags  uint32
	MemIdx uint32
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// KindName returns the JS-API name of an external kind.
func KindName(kind byte) string {
	switch kind {
	case KindFunc:
		return "function"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// NumImportedFuncs returns the number of imported functions
func (m *Module) NumImportedFuncs() int {
	return m.numImported(KindFunc)
}

// NumImportedGlobals returns the number of imported globals
func (m *Module) NumImportedGlobals() int {
	return m.numImported(KindGlobal)
}

// NumImportedTables returns the number of imported tables
func (m *Module) NumImportedTables() int {
	return m.numImported(KindTable)
}

// NumImportedMemories returns the number of imported memories
func (m *Module) NumImportedMemories() int {
	return m.numImported(KindMemory)
}

func (m *Module) numImported(kind byte) int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == kind {
			count++
		}
	}
	return count
}

// NumFuncs returns the size of the function index space.
func (m *Module) NumFuncs() int {
	return m.NumImportedFuncs() + len(m.Funcs)
}

// NumTables returns the size of the table index space.
func (m *Module) NumTables() int {
	return m.NumImportedTables() + len(m.Tables)
}

// NumMemories returns the size of the memory index space.
func (m *Module) NumMemories() int {
	return m.NumImportedMemories() + len(m.Memories)
}

// NumGlobals returns the size of the global index space.
func (m *Module) NumGlobals() int {
	return m.NumImportedGlobals() + len(m.Globals)
}

// GetFuncType returns the type of a function by its index
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	numImported := uint32(m.NumImportedFuncs())
	if funcIdx < numImported {
		for i := range m.Imports {
			if m.Imports[i].Desc.Kind != KindFunc {
				continue
			}
			if funcIdx == 0 {
				return m.typeAt(m.Imports[i].Desc.TypeIdx)
			}
			funcIdx--
		}
		return nil
	}
	localIdx := funcIdx - numImported
	if int(localIdx) >= len(m.Funcs) {
		return nil
	}
	return m.typeAt(m.Funcs[localIdx])
}

func (m *Module) typeAt(typeIdx uint32) *FuncType {
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

// GlobalTypeAt returns the type of a global by its index
func (m *Module) GlobalTypeAt(idx uint32) *GlobalType {
	for i := range m.Imports {
		if m.Imports[i].Desc.Kind != KindGlobal {
			continue
		}
		if idx == 0 {
			return m.Imports[i].Desc.Global
		}
		idx--
	}
	if int(idx) >= len(m.Globals) {
		return nil
	}
	return &m.Globals[idx].Type
}

// TableTypeAt returns the type of a table by its index
func (m *Module) TableTypeAt(idx uint32) *TableType {
	for i := range m.Imports {
		if m.Imports[i].Desc.Kind != KindTable {
			continue
		}
		if idx == 0 {
			return m.Imports[i].Desc.Table
		}
		idx--
	}
	if int(idx) >= len(m.Tables) {
		return nil
	}
	return &m.Tables[idx]
}

// MemoryTypeAt returns the type of a memory by its index
func (m *Module) MemoryTypeAt(idx uint32) *MemoryType {
	for i := range m.Imports {
		if m.Imports[i].Desc.Kind != KindMemory {
			continue
		}
		if idx == 0 {
			return m.Imports[i].Desc.Memory
		}
		idx--
	}
	if int(idx) >= len(m.Memories) {
		return nil
	}
	return &m.Memories[idx]
}

// AddType adds a function type and returns its index.
// Returns existing index if an identical type already exists.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, existing := range m.Types {
		if existing.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, FuncType{
		Params:  append([]ValType(nil), ft.Params...),
		Results: append([]ValType(nil), ft.Results...),
	})
	return uint32(len(m.Types) - 1)
}

// Clone returns a deep copy of the module so it can be rewritten without
// touching the original.
func (m *Module) Clone() *Module {
	c := &Module{
		Types:    make([]FuncType, len(m.Types)),
		Imports:  make([]Import, len(m.Imports)),
		Funcs:    append([]uint32(nil), m.Funcs...),
		Tables:   append([]TableType(nil), m.Tables...),
		Memories: append([]MemoryType(nil), m.Memories...),
		Globals:  append([]Global(nil), m.Globals...),
		Exports:  append([]Export(nil), m.Exports...),
		Elements: append([]Element(nil), m.Elements...),
		Code:     append([]FuncBody(nil), m.Code...),
		Data:     append([]DataSegment(nil), m.Data...),

		CustomSections: append([]CustomSection(nil), m.CustomSections...),
	}
	for i, t := range m.Types {
		c.Types[i] = FuncType{
			Params:  append([]ValType(nil), t.Params...),
			Results: append([]ValType(nil), t.Results...),
		}
	}
	for i, imp := range m.Imports {
		c.Imports[i] = imp
		if imp.Desc.Table != nil {
			t := *imp.Desc.Table
			c.Imports[i].Desc.Table = &t
		}
		if imp.Desc.Memory != nil {
			mt := *imp.Desc.Memory
			c.Imports[i].Desc.Memory = &mt
		}
		if imp.Desc.Global != nil {
			g := *imp.Desc.Global
			c.Imports[i].Desc.Global = &g
		}
	}
	if m.Start != nil {
		s := *m.Start
		c.Start = &s
	}
	if m.DataCount != nil {
		n := *m.DataCount
		c.DataCount = &n
	}
	return c
}
