package wasm

import "fmt"

// Validate checks the module for structural validity. Instruction-level
// typing of function bodies is left to the engine's compiler.
func (m *Module) Validate() error {
	checks := []func() error{
		m.validateValueTypes,
		m.validateTypeIndices,
		m.validateCodeCount,
		m.validateFunctionIndices,
		m.validateTables,
		m.validateMemories,
		m.validateGlobals,
		m.validateElements,
		m.validateData,
		m.validateExports,
		m.validateStart,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// ParseModuleValidate parses a WebAssembly binary and validates it.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) validateValueTypes() error {
	for i, ft := range m.Types {
		for _, t := range ft.Params {
			if !t.Valid() {
				return fmt.Errorf("type %d: invalid parameter type 0x%02x", i, byte(t))
			}
		}
		for _, t := range ft.Results {
			if !t.Valid() {
				return fmt.Errorf("type %d: invalid result type 0x%02x", i, byte(t))
			}
		}
	}
	for i, body := range m.Code {
		for _, l := range body.Locals {
			if !l.ValType.Valid() {
				return fmt.Errorf("function %d: invalid local type 0x%02x", i, byte(l.ValType))
			}
		}
	}
	return nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types))

	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return fmt.Errorf("function %d references invalid type index %d", i, typeIdx)
		}
	}

	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return fmt.Errorf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}
	return nil
}

func (m *Module) validateCodeCount() error {
	if len(m.Code) != len(m.Funcs) {
		return fmt.Errorf("code section has %d entries but function section has %d",
			len(m.Code), len(m.Funcs))
	}
	return nil
}

func (m *Module) validateFunctionIndices() error {
	numFuncs := uint32(m.NumFuncs())

	if m.Start != nil && *m.Start >= numFuncs {
		return fmt.Errorf("start function index %d exceeds function count %d", *m.Start, numFuncs)
	}

	for i, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Idx >= numFuncs {
			return fmt.Errorf("export %d (%s) references invalid function index %d", i, exp.Name, exp.Idx)
		}
	}
	return nil
}

func (m *Module) validateTables() error {
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindTable {
			if imp.Desc.Table == nil {
				return fmt.Errorf("import %d (%s.%s): missing table type", i, imp.Module, imp.Name)
			}
			if err := validateTableType(imp.Desc.Table, "imported table", i); err != nil {
				return err
			}
		}
	}
	for i := range m.Tables {
		if err := validateTableType(&m.Tables[i], "table", i); err != nil {
			return err
		}
	}

	numTables := uint32(m.NumTables())
	for i, exp := range m.Exports {
		if exp.Kind == KindTable && exp.Idx >= numTables {
			return fmt.Errorf("export %d (%s) references invalid table index %d", i, exp.Name, exp.Idx)
		}
	}
	return nil
}

func validateTableType(t *TableType, prefix string, idx int) error {
	if !t.ElemType.IsRef() {
		return fmt.Errorf("%s %d: element type %s is not a reference type", prefix, idx, t.ElemType)
	}
	if t.Limits.Shared {
		return fmt.Errorf("%s %d: tables cannot be shared", prefix, idx)
	}
	if t.Limits.Max != nil && *t.Limits.Max < t.Limits.Min {
		return fmt.Errorf("%s %d: maximum %d is below minimum %d", prefix, idx, *t.Limits.Max, t.Limits.Min)
	}
	return nil
}

func (m *Module) validateMemories() error {
	if m.NumMemories() > 1 {
		return fmt.Errorf("multiple memories are not supported")
	}
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory {
			if imp.Desc.Memory == nil {
				return fmt.Errorf("import %d (%s.%s): missing memory type", i, imp.Module, imp.Name)
			}
			if err := validateMemoryType(imp.Desc.Memory, i, true); err != nil {
				return err
			}
		}
	}
	for i := range m.Memories {
		if err := validateMemoryType(&m.Memories[i], i, false); err != nil {
			return err
		}
	}

	numMemories := uint32(m.NumMemories())
	for i, exp := range m.Exports {
		if exp.Kind == KindMemory && exp.Idx >= numMemories {
			return fmt.Errorf("export %d (%s) references invalid memory index %d", i, exp.Name, exp.Idx)
		}
	}
	return nil
}

func validateMemoryType(mem *MemoryType, idx int, isImport bool) error {
	prefix := "memory"
	if isImport {
		prefix = "imported memory"
	}

	if mem.Limits.Shared && mem.Limits.Max == nil {
		return fmt.Errorf("%s %d: shared memory must have maximum limit", prefix, idx)
	}
	if mem.Limits.Min > MemoryMaxPages {
		return fmt.Errorf("%s %d: min pages %d exceeds maximum %d",
			prefix, idx, mem.Limits.Min, MemoryMaxPages)
	}
	if mem.Limits.Max != nil {
		if *mem.Limits.Max > MemoryMaxPages {
			return fmt.Errorf("%s %d: max pages %d exceeds maximum %d",
				prefix, idx, *mem.Limits.Max, MemoryMaxPages)
		}
		if *mem.Limits.Max < mem.Limits.Min {
			return fmt.Errorf("%s %d: maximum %d is below minimum %d",
				prefix, idx, *mem.Limits.Max, mem.Limits.Min)
		}
	}
	return nil
}

func (m *Module) validateGlobals() error {
	for i, imp := range m.Imports {
		if imp.Desc.Kind != KindGlobal {
			continue
		}
		if imp.Desc.Global == nil {
			return fmt.Errorf("import %d (%s.%s): missing global type", i, imp.Module, imp.Name)
		}
		if !imp.Desc.Global.ValType.Valid() {
			return fmt.Errorf("import %d (%s.%s): invalid global type 0x%02x", i, imp.Module, imp.Name, byte(imp.Desc.Global.ValType))
		}
	}

	numImported := m.NumImportedGlobals()
	for i, g := range m.Globals {
		if !g.Type.ValType.Valid() {
			return fmt.Errorf("global %d: invalid type 0x%02x", i, byte(g.Type.ValType))
		}
		t, err := m.constExprType(g.Init, numImported)
		if err != nil {
			return fmt.Errorf("global %d: %w", i, err)
		}
		if t != g.Type.ValType {
			return fmt.Errorf("global %d: initializer has type %s, want %s", i, t, g.Type.ValType)
		}
	}

	numGlobals := uint32(m.NumGlobals())
	for i, exp := range m.Exports {
		if exp.Kind == KindGlobal && exp.Idx >= numGlobals {
			return fmt.Errorf("export %d (%s) references invalid global index %d", i, exp.Name, exp.Idx)
		}
	}
	return nil
}

// constExprType returns the result type of a single-instruction constant
// expression. global.get may only refer to the first visibleGlobals
// globals, which must be immutable.
func (m *Module) constExprType(expr []byte, visibleGlobals int) (ValType, error) {
	if len(expr) < 2 || expr[len(expr)-1] != OpEnd {
		return 0, fmt.Errorf("malformed constant expression")
	}
	switch expr[0] {
	case OpI32Const:
		if _, ok := ConstI32(expr); !ok {
			return 0, fmt.Errorf("malformed i32.const expression")
		}
		return ValI32, nil
	case OpI64Const:
		return ValI64, nil
	case OpF32Const:
		if len(expr) != 6 {
			return 0, fmt.Errorf("malformed f32.const expression")
		}
		return ValF32, nil
	case OpF64Const:
		if len(expr) != 10 {
			return 0, fmt.Errorf("malformed f64.const expression")
		}
		return ValF64, nil
	case OpRefNull:
		if len(expr) != 3 || !ValType(expr[1]).IsRef() {
			return 0, fmt.Errorf("malformed ref.null expression")
		}
		return ValType(expr[1]), nil
	case OpRefFunc:
		idx, ok := RefFuncIndex(expr)
		if !ok {
			return 0, fmt.Errorf("malformed ref.func expression")
		}
		if idx >= uint32(m.NumFuncs()) {
			return 0, fmt.Errorf("ref.func references invalid function index %d", idx)
		}
		return ValFuncRef, nil
	case OpGlobalGet:
		idx, ok := GlobalGetIndex(expr)
		if !ok {
			return 0, fmt.Errorf("malformed global.get expression")
		}
		if int(idx) >= visibleGlobals {
			return 0, fmt.Errorf("global.get references unknown global %d", idx)
		}
		gt := m.GlobalTypeAt(idx)
		if gt == nil {
			return 0, fmt.Errorf("global.get references unknown global %d", idx)
		}
		if gt.Mutable {
			return 0, fmt.Errorf("global.get of mutable global %d in constant expression", idx)
		}
		return gt.ValType, nil
	default:
		return 0, fmt.Errorf("illegal opcode 0x%02x in constant expression", expr[0])
	}
}

// GlobalGetIndex decodes an expression consisting of a single global.get.
func GlobalGetIndex(expr []byte) (uint32, bool) {
	if len(expr) < 3 || expr[0] != OpGlobalGet {
		return 0, false
	}
	var idx uint32
	var shift uint
	for i := 1; i < len(expr)-1; i++ {
		b := expr[i]
		idx |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return idx, i == len(expr)-2
		}
		shift += 7
		if shift >= 35 {
			return 0, false
		}
	}
	return 0, false
}

func (m *Module) validateElements() error {
	numFuncs := uint32(m.NumFuncs())
	numTables := uint32(m.NumTables())
	numImportedGlobals := m.NumImportedGlobals()

	for i := range m.Elements {
		elem := &m.Elements[i]

		if !elem.UsesExprs() && elem.Flags&0x03 != 0 && elem.ElemKind != ElemKindFunc {
			return fmt.Errorf("element %d: unsupported elemkind 0x%02x", i, elem.ElemKind)
		}

		refType := elem.RefType()
		if !refType.IsRef() {
			return fmt.Errorf("element %d: %s is not a reference type", i, refType)
		}

		if elem.IsActive() {
			if elem.TableIdx >= numTables {
				return fmt.Errorf("element %d references invalid table index %d", i, elem.TableIdx)
			}
			t, err := m.constExprType(elem.Offset, numImportedGlobals)
			if err != nil {
				return fmt.Errorf("element %d offset: %w", i, err)
			}
			if t != ValI32 {
				return fmt.Errorf("element %d offset has type %s, want i32", i, t)
			}
			tt := m.TableTypeAt(elem.TableIdx)
			if tt != nil && tt.ElemType != refType {
				return fmt.Errorf("element %d: %s segment for %s table", i, refType, tt.ElemType)
			}
		}

		if elem.UsesExprs() {
			for j, expr := range elem.Exprs {
				t, err := m.constExprType(expr, numImportedGlobals)
				if err != nil {
					return fmt.Errorf("element %d, entry %d: %w", i, j, err)
				}
				if t != refType {
					return fmt.Errorf("element %d, entry %d has type %s, want %s", i, j, t, refType)
				}
			}
			continue
		}
		for j, funcIdx := range elem.FuncIdxs {
			if funcIdx >= numFuncs {
				return fmt.Errorf("element %d, entry %d references invalid function index %d", i, j, funcIdx)
			}
		}
	}
	return nil
}

func (m *Module) validateData() error {
	if m.DataCount != nil && *m.DataCount != uint32(len(m.Data)) {
		return fmt.Errorf("data count section declares %d segments, but data section has %d",
			*m.DataCount, len(m.Data))
	}

	numMemories := uint32(m.NumMemories())
	for i, data := range m.Data {
		if data.Flags == 1 {
			continue
		}
		if data.MemIdx >= numMemories {
			return fmt.Errorf("data segment %d references invalid memory index %d", i, data.MemIdx)
		}
		t, err := m.constExprType(data.Offset, m.NumImportedGlobals())
		if err != nil {
			return fmt.Errorf("data segment %d offset: %w", i, err)
		}
		if t != ValI32 {
			return fmt.Errorf("data segment %d offset has type %s, want i32", i, t)
		}
	}
	return nil
}

func (m *Module) validateExports() error {
	seen := make(map[string]bool)
	for i, exp := range m.Exports {
		if exp.Kind > KindGlobal {
			return fmt.Errorf("export %d (%s) has unknown kind %d", i, exp.Name, exp.Kind)
		}
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export name %q at index %d", exp.Name, i)
		}
		seen[exp.Name] = true
	}
	return nil
}

func (m *Module) validateStart() error {
	if m.Start == nil {
		return nil
	}

	funcType := m.GetFuncType(*m.Start)
	if funcType == nil {
		return fmt.Errorf("start function %d has no type", *m.Start)
	}
	if len(funcType.Params) != 0 || len(funcType.Results) != 0 {
		return fmt.Errorf("start function must have signature [] -> [], got %s", funcType)
	}
	return nil
}
