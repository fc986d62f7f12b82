package jsapi

import (
	"context"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// Module is a compiled WebAssembly module. It keeps the decoded description
// so each instantiation can rewrite imports before handing the module to
// the engine.
type Module struct {
	rt    *Runtime
	obj   *jsval.Object
	desc  *wasm.Module
	bytes []byte
}

// ModuleOf returns the Module behind v, or nil.
func ModuleOf(v jsval.Value) *Module {
	o, ok := jsval.AsObject(v)
	if !ok {
		return nil
	}
	m, _ := o.Internal().(*Module)
	return m
}

// Compile decodes, validates and compiles data. Any failure is a
// CompileError.
func (rt *Runtime) Compile(ctx context.Context, data []byte) (*Module, error) {
	desc, err := wasm.ParseModule(data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindValidation, err, "invalid module binary")
	}
	if err := desc.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseValidate, errors.KindValidation, err, "invalid module")
	}
	compiled, err := rt.engine.CompileModule(ctx, engineBinary(desc, data))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindValidation, err, "engine rejected module")
	}
	if err := compiled.Close(ctx); err != nil {
		rt.debugf("close compiled module: %v", err)
	}
	m := &Module{rt: rt, desc: desc, bytes: append([]byte(nil), data...)}
	m.obj = rt.ns.newModuleObject(m)
	return m, nil
}

// emptyModuleName stands in for an empty import module name, which the
// engine refuses. Instantiate renames every import, so only Compile needs it.
const emptyModuleName = "\x00empty"

// engineBinary returns data, or a re-encoded copy of desc when an import
// has an empty module name.
func engineBinary(desc *wasm.Module, data []byte) []byte {
	var renamed *wasm.Module
	for i, imp := range desc.Imports {
		if imp.Module != "" {
			continue
		}
		if renamed == nil {
			renamed = desc.Clone()
		}
		renamed.Imports[i].Module = emptyModuleName
	}
	if renamed == nil {
		return data
	}
	return renamed.Encode()
}

// Object returns the JS module object.
func (m *Module) Object() *jsval.Object { return m.obj }

// Description returns a copy of the decoded module.
func (m *Module) Description() *wasm.Module { return m.desc.Clone() }

// Bytes returns a copy of the module binary.
func (m *Module) Bytes() []byte { return append([]byte(nil), m.bytes...) }

// Exports returns a freshly allocated array of export descriptors.
func (m *Module) Exports() *jsval.Object { return exportDescriptors(m.desc) }

// Imports returns a freshly allocated array of import descriptors.
func (m *Module) Imports() *jsval.Object { return importDescriptors(m.desc) }

// CustomSections returns the contents of every custom section named name,
// in binary order, as byte objects.
func (m *Module) CustomSections(name string) *jsval.Object {
	var items []jsval.Value
	for _, cs := range m.desc.CustomSections {
		if cs.Name == name {
			items = append(items, NewBytes(cs.Data))
		}
	}
	return jsval.NewArray(items...)
}

// ModuleExports implements WebAssembly.Module.exports(v).
func ModuleExports(v jsval.Value) (*jsval.Object, error) {
	m := ModuleOf(v)
	if m == nil {
		return nil, typeError("%s is not a WebAssembly.Module", jsval.Format(v))
	}
	return m.Exports(), nil
}

// ModuleImports implements WebAssembly.Module.imports(v).
func ModuleImports(v jsval.Value) (*jsval.Object, error) {
	m := ModuleOf(v)
	if m == nil {
		return nil, typeError("%s is not a WebAssembly.Module", jsval.Format(v))
	}
	return m.Imports(), nil
}

// NewBytes returns a byte buffer object holding a copy of b. It stands in
// for ArrayBuffer and typed arrays as a module source.
func NewBytes(b []byte) *jsval.Object {
	o := jsval.NewObjectWithClass("ArrayBuffer", jsval.ObjectPrototype)
	o.SetInternal(append([]byte(nil), b...))
	_ = o.DefineProperty("byteLength", jsval.Property{Value: jsval.Number(len(b))})
	return o
}

// BytesOf returns the bytes of a buffer object created by NewBytes.
func BytesOf(v jsval.Value) ([]byte, bool) {
	o, ok := jsval.AsObject(v)
	if !ok {
		return nil, false
	}
	b, ok := o.Internal().([]byte)
	return b, ok
}
