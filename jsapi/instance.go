package jsapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// hiddenExportPrefix names the extra exports added for functions that are
// only reachable through tables or globals.
const hiddenExportPrefix = "jsapi$func$"

// Instance is an instantiated module.
type Instance struct {
	rt      *Runtime
	obj     *jsval.Object
	module  *Module
	mod     api.Module
	exports *jsval.Object

	funcs    []*Function // imported functions, then lazily bound locals
	tables   []*Table
	globals  []*Global
	memories []*Memory

	funcExport map[uint32]string
}

// InstanceOf returns the Instance behind v, or nil.
func InstanceOf(v jsval.Value) *Instance {
	o, ok := jsval.AsObject(v)
	if !ok {
		return nil
	}
	i, _ := o.Internal().(*Instance)
	return i
}

// resolved holds the import values after linking.
type resolved struct {
	funcs    []*Function
	tables   []*Table
	globals  []*Global
	memories []*Memory
	locs     []location
}

// Instantiate implements new WebAssembly.Instance(module, importObject).
// importObject may be nil when the module has no imports.
func (rt *Runtime) Instantiate(ctx context.Context, m *Module, importObject jsval.Value) (*Instance, error) {
	res, err := rt.link(ctx, m.desc, importObject)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		rt:         rt,
		module:     m,
		funcs:      make([]*Function, m.desc.NumFuncs()),
		tables:     res.tables,
		globals:    make([]*Global, m.desc.NumGlobals()),
		memories:   make([]*Memory, m.desc.NumMemories()),
		funcExport: make(map[uint32]string),
	}
	copy(inst.funcs, res.funcs)
	copy(inst.globals, res.globals)
	copy(inst.memories, res.memories)

	rewritten := m.desc.Clone()
	rewriteImports(rewritten, res)

	// Local tables become imports from fresh providers, appended after the
	// existing imports so table indices are unchanged.
	for _, tt := range m.desc.Tables {
		t, err := rt.newTable(ctx, tt)
		if err != nil {
			return nil, err
		}
		inst.tables = append(inst.tables, t)
		loc := t.location()
		rewritten.Imports = append(rewritten.Imports, wasm.Import{
			Module: loc.module,
			Name:   loc.name,
			Desc:   wasm.ImportDesc{Kind: wasm.KindTable, Table: &wasm.TableType{ElemType: tt.ElemType}},
		})
	}
	rewritten.Tables = nil

	inst.addFunctionExports(rewritten)

	if err := inst.checkElementBounds(m.desc); err != nil {
		return nil, err
	}

	name := rt.nextName("instance")
	compiled, err := rt.engine.CompileModule(ctx, rewritten.Encode())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLink, errors.KindLink, err, "engine rejected linked module")
	}
	rt.compiled = append(rt.compiled, compiled)
	mod, err := rt.engine.InstantiateModule(ctx, compiled, rt.moduleConfig(name))
	if err != nil {
		return nil, rt.instantiateError(err)
	}
	inst.mod = mod
	rt.debugf("instantiated %s: %d imports, %d exports", name, len(m.desc.Imports), len(m.desc.Exports))

	if err := inst.learnElements(m.desc); err != nil {
		return nil, err
	}
	if err := inst.buildExports(); err != nil {
		return nil, err
	}
	inst.obj = rt.ns.newInstanceObject(inst)
	return inst, nil
}

// link reads and checks every import in declaration order.
func (rt *Runtime) link(ctx context.Context, desc *wasm.Module, importObject jsval.Value) (*resolved, error) {
	res := &resolved{}
	if len(desc.Imports) == 0 {
		return res, nil
	}
	imports, ok := jsval.AsObject(importObject)
	if !ok {
		return nil, typeError("module has imports but the import object is %s", jsval.Format(importObject))
	}
	for _, imp := range desc.Imports {
		nsVal, err := imports.Get(imp.Module, imports)
		if err != nil {
			return nil, err
		}
		ns, ok := jsval.AsObject(nsVal)
		if !ok {
			return nil, typeError("import namespace %q is %s, not an object", imp.Module, jsval.Format(nsVal))
		}
		v, err := ns.Get(imp.Name, ns)
		if err != nil {
			return nil, err
		}
		path := []string{imp.Module, imp.Name}

		var loc location
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			f, err := rt.linkFunc(desc, imp, v, path)
			if err != nil {
				return nil, err
			}
			if loc, err = f.location(ctx); err != nil {
				return nil, err
			}
			res.funcs = append(res.funcs, f)
		case wasm.KindGlobal:
			g, err := rt.linkGlobal(ctx, imp, v, path)
			if err != nil {
				return nil, err
			}
			loc = g.location()
			res.globals = append(res.globals, g)
		case wasm.KindMemory:
			mem, err := linkMemory(imp, v, path)
			if err != nil {
				return nil, err
			}
			loc = mem.location()
			res.memories = append(res.memories, mem)
		case wasm.KindTable:
			t, err := linkTable(imp, v, path)
			if err != nil {
				return nil, err
			}
			loc = t.location()
			res.tables = append(res.tables, t)
		default:
			return nil, errors.LinkError(path, "unknown import kind %d", imp.Desc.Kind)
		}
		res.locs = append(res.locs, loc)
		rt.debugf("link %s.%s -> %s.%s", imp.Module, imp.Name, loc.module, loc.name)
	}
	return res, nil
}

func (rt *Runtime) linkFunc(desc *wasm.Module, imp wasm.Import, v jsval.Value, path []string) (*Function, error) {
	if !jsval.IsCallable(v) {
		return nil, errors.LinkError(path, "imported function must be callable, got %s", jsval.Format(v))
	}
	want := desc.Types[imp.Desc.TypeIdx]
	if f := FunctionOf(v); f != nil {
		if !f.sig.Equal(want) {
			return nil, errors.LinkError(path, "imported function has signature %s, want %s", f.sig, want)
		}
		return f, nil
	}
	return rt.newHostFunction(want, v), nil
}

func (rt *Runtime) linkGlobal(ctx context.Context, imp wasm.Import, v jsval.Value, path []string) (*Global, error) {
	want := *imp.Desc.Global
	if g := GlobalOf(v); g != nil {
		if g.typ != want {
			return nil, errors.LinkError(path, "imported global is %s mutable=%t, want %s mutable=%t",
				g.typ.ValType, g.typ.Mutable, want.ValType, want.Mutable)
		}
		return g, nil
	}
	if want.Mutable {
		return nil, errors.LinkError(path, "mutable global import requires a WebAssembly.Global")
	}
	switch want.ValType {
	case wasm.ValI64:
		if _, ok := v.(*jsval.BigInt); !ok {
			return nil, errors.LinkError(path, "i64 global import requires a BigInt, got %s", jsval.Format(v))
		}
	case wasm.ValI32, wasm.ValF32, wasm.ValF64:
		if _, ok := v.(jsval.Number); !ok {
			return nil, errors.LinkError(path, "%s global import requires a Number, got %s", want.ValType, jsval.Format(v))
		}
	case wasm.ValV128:
		return nil, errors.LinkError(path, "v128 globals cannot be imported from JS")
	}
	cv, err := Coerce(want.ValType, v)
	if err != nil {
		return nil, err
	}
	return rt.newGlobal(ctx, want, cv)
}

func linkMemory(imp wasm.Import, v jsval.Value, path []string) (*Memory, error) {
	mem := MemoryOf(v)
	if mem == nil {
		return nil, errors.LinkError(path, "imported memory must be a WebAssembly.Memory, got %s", jsval.Format(v))
	}
	want := imp.Desc.Memory.Limits
	if pages := uint64(mem.Pages()); pages < want.Min {
		return nil, errors.LinkError(path, "memory has %d pages, import requires at least %d", pages, want.Min)
	}
	if want.Max != nil {
		max, ok := mem.Maximum()
		if !ok || uint64(max) > *want.Max {
			return nil, errors.LinkError(path, "memory maximum must be at most %d", *want.Max)
		}
	}
	if mem.Shared() != want.Shared {
		return nil, errors.LinkError(path, "memory shared=%t, import requires shared=%t", mem.Shared(), want.Shared)
	}
	return mem, nil
}

func linkTable(imp wasm.Import, v jsval.Value, path []string) (*Table, error) {
	t := TableOf(v)
	if t == nil {
		return nil, errors.LinkError(path, "imported table must be a WebAssembly.Table, got %s", jsval.Format(v))
	}
	want := imp.Desc.Table
	if t.typ.ElemType != want.ElemType {
		return nil, errors.LinkError(path, "table holds %s, import requires %s", t.typ.ElemType, want.ElemType)
	}
	if n := uint64(t.Length()); n < want.Limits.Min {
		return nil, errors.LinkError(path, "table has %d elements, import requires at least %d", n, want.Limits.Min)
	}
	if want.Limits.Max != nil {
		max, ok := t.Maximum()
		if !ok || uint64(max) > *want.Limits.Max {
			return nil, errors.LinkError(path, "table maximum must be at most %d", *want.Limits.Max)
		}
	}
	return t, nil
}

// rewriteImports points every import at its backing location. Limits are
// relaxed because the engine compares declared limits while the JS-API
// compares current sizes, which link already checked.
func rewriteImports(m *wasm.Module, res *resolved) {
	memIdx := 0
	for i := range m.Imports {
		imp := &m.Imports[i]
		imp.Module, imp.Name = res.locs[i].module, res.locs[i].name
		switch imp.Desc.Kind {
		case wasm.KindTable:
			imp.Desc.Table = &wasm.TableType{ElemType: imp.Desc.Table.ElemType}
		case wasm.KindMemory:
			backing := res.memories[memIdx].typ.Limits
			imp.Desc.Memory = &wasm.MemoryType{Limits: wasm.Limits{Max: backing.Max, Shared: backing.Shared}}
			memIdx++
		}
	}
}

// addFunctionExports makes every function referenced by an element segment
// or a global initializer reachable, reusing an existing export name when
// there is one.
func (inst *Instance) addFunctionExports(m *wasm.Module) {
	for _, exp := range m.Exports {
		if exp.Kind == wasm.KindFunc {
			if _, ok := inst.funcExport[exp.Idx]; !ok {
				inst.funcExport[exp.Idx] = exp.Name
			}
		}
	}
	add := func(idx uint32) {
		if _, ok := inst.funcExport[idx]; ok {
			return
		}
		name := hiddenExportPrefix + strconv.FormatUint(uint64(idx), 10)
		inst.funcExport[idx] = name
		m.Exports = append(m.Exports, wasm.Export{Name: name, Kind: wasm.KindFunc, Idx: idx})
	}
	for i := range m.Elements {
		idxs, ok := m.Elements[i].FuncIndices()
		for j, idx := range idxs {
			if ok[j] {
				add(idx)
			}
		}
	}
	for _, g := range m.Globals {
		if idx, ok := wasm.RefFuncIndex(g.Init); ok {
			add(idx)
		}
	}
}

// checkElementBounds rejects active segments that do not fit their table.
// The engine skips such segments silently.
func (inst *Instance) checkElementBounds(desc *wasm.Module) error {
	for i := range desc.Elements {
		elem := &desc.Elements[i]
		if !elem.IsActive() || int(elem.TableIdx) >= len(inst.tables) {
			continue
		}
		offset, ok := inst.constOffset(elem.Offset)
		if !ok {
			continue
		}
		size := uint64(inst.tables[elem.TableIdx].Length())
		if uint64(uint32(offset))+uint64(elem.Len()) > size {
			return errors.RuntimeError(nil, fmt.Sprintf("element segment %d out of bounds: offset %d, length %d, table size %d",
				i, uint32(offset), elem.Len(), size))
		}
	}
	return nil
}

func (inst *Instance) constOffset(expr []byte) (int32, bool) {
	if v, ok := wasm.ConstI32(expr); ok {
		return v, true
	}
	if idx, ok := wasm.GlobalGetIndex(expr); ok && int(idx) < len(inst.globals) && inst.globals[idx] != nil {
		return inst.globals[idx].int32Value()
	}
	return 0, false
}

// learnElements records which function each active segment stored, so
// tables return the same function objects for those slots.
func (inst *Instance) learnElements(desc *wasm.Module) error {
	for i := range desc.Elements {
		elem := &desc.Elements[i]
		if !elem.IsActive() || elem.RefType() != wasm.ValFuncRef {
			continue
		}
		offset, ok := inst.constOffset(elem.Offset)
		if !ok {
			continue
		}
		t := inst.tables[elem.TableIdx]
		idxs, valid := elem.FuncIndices()
		for j, idx := range idxs {
			if !valid[j] {
				continue
			}
			f, err := inst.function(idx)
			if err != nil {
				return err
			}
			if err := t.learn(uint32(offset)+uint32(j), f); err != nil {
				return err
			}
		}
	}
	return nil
}

// function returns the function object for index, creating the binding of
// a local function on first use.
func (inst *Instance) function(idx uint32) (*Function, error) {
	if int(idx) >= len(inst.funcs) {
		return nil, errors.RuntimeError(nil, fmt.Sprintf("function index %d out of range", idx))
	}
	if f := inst.funcs[idx]; f != nil {
		return f, nil
	}
	name, ok := inst.funcExport[idx]
	if !ok {
		return nil, errors.RuntimeError(nil, fmt.Sprintf("function %d is not reachable", idx))
	}
	sig := inst.module.desc.GetFuncType(idx)
	f := inst.rt.newExportedFunction(inst, idx, name, *sig)
	inst.funcs[idx] = f
	return f, nil
}

func (inst *Instance) global(idx uint32, name string) (*Global, error) {
	if g := inst.globals[idx]; g != nil {
		return g, nil
	}
	gt := inst.module.desc.GlobalTypeAt(idx)
	local := int(idx) - inst.module.desc.NumImportedGlobals()
	if gt.ValType == wasm.ValFuncRef && local >= 0 {
		if fidx, ok := wasm.RefFuncIndex(inst.module.desc.Globals[local].Init); ok {
			f, err := inst.function(fidx)
			if err != nil {
				return nil, err
			}
			inst.rt.refs.bind(inst.mod.ExportedGlobal(name).Get(), f)
		}
	}
	g := inst.rt.bindGlobal(inst.mod, name, *gt)
	inst.globals[idx] = g
	return g, nil
}

func (inst *Instance) memory(idx uint32, name string) *Memory {
	if m := inst.memories[idx]; m != nil {
		return m
	}
	mem := inst.rt.bindMemory(inst.mod, name, *inst.module.desc.MemoryTypeAt(idx))
	inst.memories[idx] = mem
	return mem
}

// buildExports creates the frozen exports object: null prototype, one
// non-writable, enumerable, non-configurable property per export.
func (inst *Instance) buildExports() error {
	exports := jsval.NewObject(nil)
	for _, exp := range inst.module.desc.Exports {
		var v jsval.Value
		switch exp.Kind {
		case wasm.KindFunc:
			f, err := inst.function(exp.Idx)
			if err != nil {
				return err
			}
			v = f.obj
		case wasm.KindTable:
			v = inst.tables[exp.Idx].obj
		case wasm.KindGlobal:
			g, err := inst.global(exp.Idx, exp.Name)
			if err != nil {
				return err
			}
			v = g.obj
		case wasm.KindMemory:
			v = inst.memory(exp.Idx, exp.Name).obj
		}
		if err := exports.DefineProperty(exp.Name, jsval.Property{Value: v, Enumerable: true}); err != nil {
			return err
		}
	}
	exports.PreventExtensions()
	inst.exports = exports
	return nil
}

// Object returns the JS instance object.
func (inst *Instance) Object() *jsval.Object { return inst.obj }

// Exports returns the exports object. Repeated calls return the same object.
func (inst *Instance) Exports() *jsval.Object { return inst.exports }

// Export returns the named export, or undefined.
func (inst *Instance) Export(name string) jsval.Value {
	p, ok := inst.exports.GetOwnProperty(name)
	if !ok {
		return jsval.Undefined
	}
	return p.Value
}

// ExportedFunction returns the named function export, or nil.
func (inst *Instance) ExportedFunction(name string) *Function {
	return FunctionOf(inst.Export(name))
}

// instantiateError classifies a failure of the engine's instantiation:
// import mismatches are LinkErrors, everything else is a trap during
// initialization or the start function.
func (rt *Runtime) instantiateError(err error) error {
	var ht *hostThrow
	if errors.As(err, &ht) {
		return ht.err
	}
	msg := err.Error()
	if strings.Contains(msg, "import") {
		return errors.Wrap(errors.PhaseLink, errors.KindLink, err, "engine rejected imports")
	}
	return rt.callError(err)
}
