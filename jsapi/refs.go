package jsapi

import (
	"github.com/wippyai/wasm-jsapi/jsval"
)

// refRegistry maps reference values across the engine boundary.
//
// externref values are opaque to the engine, so they travel as small
// handles; 0 is null. funcref values are engine pointers, and the same
// function may be represented by different bits depending on which module
// produced the reference, so raw-to-function is many-to-one while each
// function keeps one canonical raw value for passing it back in.
type refRegistry struct {
	externs   []jsval.Value
	externIDs map[jsval.Value]uint64

	funcs    map[uint64]*Function
	funcRaws map[*Function]uint64
	opaque   map[uint64]*jsval.Object
}

func newRefRegistry() *refRegistry {
	return &refRegistry{
		externs:   []jsval.Value{jsval.Null},
		externIDs: make(map[jsval.Value]uint64),
		funcs:     make(map[uint64]*Function),
		funcRaws:  make(map[*Function]uint64),
		opaque:    make(map[uint64]*jsval.Object),
	}
}

func (r *refRegistry) externHandle(v jsval.Value) uint64 {
	if jsval.IsNull(v) {
		return 0
	}
	if v == nil {
		v = jsval.Undefined
	}
	if id, ok := r.externIDs[v]; ok {
		return id
	}
	id := uint64(len(r.externs))
	r.externs = append(r.externs, v)
	r.externIDs[v] = id
	return id
}

func (r *refRegistry) externValue(raw uint64) jsval.Value {
	if raw == 0 || raw >= uint64(len(r.externs)) {
		return jsval.Null
	}
	return r.externs[raw]
}

// bind records that raw refers to f.
func (r *refRegistry) bind(raw uint64, f *Function) {
	if raw == 0 || f == nil {
		return
	}
	r.funcs[raw] = f
	if _, ok := r.funcRaws[f]; !ok {
		r.funcRaws[f] = raw
	}
}

func (r *refRegistry) lookup(raw uint64) *Function {
	return r.funcs[raw]
}

func (r *refRegistry) rawOf(f *Function) (uint64, bool) {
	raw, ok := r.funcRaws[f]
	return raw, ok
}

// funcValue returns the JS value of a funcref. References the runtime never
// saw become opaque, non-callable objects with a stable identity.
func (r *refRegistry) funcValue(raw uint64) jsval.Value {
	if raw == 0 {
		return jsval.Null
	}
	if f := r.funcs[raw]; f != nil {
		return f.obj
	}
	if o := r.opaque[raw]; o != nil {
		return o
	}
	o := jsval.NewObjectWithClass("FuncRef", jsval.ObjectPrototype)
	o.SetInternal(raw)
	r.opaque[raw] = o
	return o
}

func opaqueRaw(v jsval.Value) (uint64, bool) {
	o, ok := jsval.AsObject(v)
	if !ok || o.Class() != "FuncRef" {
		return 0, false
	}
	raw, ok := o.Internal().(uint64)
	return raw, ok
}
