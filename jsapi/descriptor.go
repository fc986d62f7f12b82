package jsapi

import (
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// Type reflections shared by module descriptors and the type() methods of
// tables, globals and memories.

func tableTypeObject(elem wasm.ValType, min uint64, max *uint64) *jsval.Object {
	entries := []jsval.Entry{jsval.Prop("minimum", jsval.Number(min))}
	if max != nil {
		entries = append(entries, jsval.Prop("maximum", jsval.Number(*max)))
	}
	entries = append(entries, jsval.Prop("element", jsval.String(elem.String())))
	return jsval.NewRecord(entries...)
}

func memoryTypeObject(min uint64, max *uint64, shared bool) *jsval.Object {
	entries := []jsval.Entry{jsval.Prop("minimum", jsval.Number(min))}
	if max != nil {
		entries = append(entries, jsval.Prop("maximum", jsval.Number(*max)))
	}
	entries = append(entries, jsval.Prop("shared", jsval.Bool(shared)))
	return jsval.NewRecord(entries...)
}

func globalTypeObject(gt wasm.GlobalType) *jsval.Object {
	return jsval.NewRecord(
		jsval.Prop("value", jsval.String(gt.ValType.String())),
		jsval.Prop("mutable", jsval.Bool(gt.Mutable)),
	)
}

// externTypeObject returns the type member of an import or export
// descriptor, or nil for an unknown kind.
func externTypeObject(m *wasm.Module, kind byte, idx uint32) *jsval.Object {
	switch kind {
	case wasm.KindFunc:
		if ft := m.GetFuncType(idx); ft != nil {
			return funcTypeObject(*ft)
		}
	case wasm.KindTable:
		if tt := m.TableTypeAt(idx); tt != nil {
			return tableTypeObject(tt.ElemType, tt.Limits.Min, tt.Limits.Max)
		}
	case wasm.KindMemory:
		if mt := m.MemoryTypeAt(idx); mt != nil {
			return memoryTypeObject(mt.Limits.Min, mt.Limits.Max, mt.Limits.Shared)
		}
	case wasm.KindGlobal:
		if gt := m.GlobalTypeAt(idx); gt != nil {
			return globalTypeObject(*gt)
		}
	}
	return nil
}

func importTypeObject(m *wasm.Module, imp wasm.Import) *jsval.Object {
	switch imp.Desc.Kind {
	case wasm.KindFunc:
		if int(imp.Desc.TypeIdx) < len(m.Types) {
			return funcTypeObject(m.Types[imp.Desc.TypeIdx])
		}
	case wasm.KindTable:
		if t := imp.Desc.Table; t != nil {
			return tableTypeObject(t.ElemType, t.Limits.Min, t.Limits.Max)
		}
	case wasm.KindMemory:
		if mt := imp.Desc.Memory; mt != nil {
			return memoryTypeObject(mt.Limits.Min, mt.Limits.Max, mt.Limits.Shared)
		}
	case wasm.KindGlobal:
		if gt := imp.Desc.Global; gt != nil {
			return globalTypeObject(*gt)
		}
	}
	return nil
}

// exportDescriptors builds a fresh array of {name, kind, type} records in
// export order.
func exportDescriptors(m *wasm.Module) *jsval.Object {
	items := make([]jsval.Value, len(m.Exports))
	for i, exp := range m.Exports {
		entries := []jsval.Entry{
			jsval.Prop("name", jsval.String(exp.Name)),
			jsval.Prop("kind", jsval.String(wasm.KindName(exp.Kind))),
		}
		if t := externTypeObject(m, exp.Kind, exp.Idx); t != nil {
			entries = append(entries, jsval.Prop("type", t))
		}
		items[i] = jsval.NewRecord(entries...)
	}
	return jsval.NewArray(items...)
}

// importDescriptors builds a fresh array of {module, name, kind, type}
// records in import order.
func importDescriptors(m *wasm.Module) *jsval.Object {
	items := make([]jsval.Value, len(m.Imports))
	for i, imp := range m.Imports {
		entries := []jsval.Entry{
			jsval.Prop("module", jsval.String(imp.Module)),
			jsval.Prop("name", jsval.String(imp.Name)),
			jsval.Prop("kind", jsval.String(wasm.KindName(imp.Desc.Kind))),
		}
		if t := importTypeObject(m, imp); t != nil {
			entries = append(entries, jsval.Prop("type", t))
		}
		items[i] = jsval.NewRecord(entries...)
	}
	return jsval.NewArray(items...)
}
