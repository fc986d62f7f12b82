package jsapi

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// Global is a WebAssembly.Global, backed by a global provider module or by
// an exported global of an instance.
//
// An immutable externref global holding a non-null value cannot be given
// that value by a constant initializer, so the value is kept here: JS sees
// it, while instances importing the global read null.
type Global struct {
	rt     *Runtime
	obj    *jsval.Object
	mod    api.Module
	held   jsval.Value
	export string
	typ    wasm.GlobalType
}

// GlobalOf returns the Global behind v, or nil.
func GlobalOf(v jsval.Value) *Global {
	o, ok := jsval.AsObject(v)
	if !ok {
		return nil
	}
	g, _ := o.Internal().(*Global)
	return g
}

// NewGlobal implements new WebAssembly.Global(desc, value). The descriptor
// is read in the order mutable, value. Pass nil for a missing value, which
// stores the type's default.
func (rt *Runtime) NewGlobal(ctx context.Context, desc jsval.Value, value jsval.Value) (*Global, error) {
	obj, ok := jsval.AsObject(desc)
	if !ok {
		return nil, typeError("global descriptor must be an object, got %s", jsval.Format(desc))
	}
	mv, err := obj.Get("mutable", obj)
	if err != nil {
		return nil, err
	}
	vv, err := obj.Get("value", obj)
	if err != nil {
		return nil, err
	}
	name, err := jsval.ToString(vv)
	if err != nil {
		return nil, err
	}
	t, ok := ParseValType(name)
	if !ok || t == wasm.ValV128 {
		return nil, typeError("invalid global value type %q", name)
	}
	gt := wasm.GlobalType{ValType: t, Mutable: jsval.ToBoolean(mv)}

	var v jsval.Value
	if value == nil {
		v = defaultValue(t)
	} else if v, err = Coerce(t, value); err != nil {
		return nil, err
	}
	return rt.newGlobal(ctx, gt, v)
}

func defaultValue(t wasm.ValType) jsval.Value {
	switch t {
	case wasm.ValI64:
		return jsval.NewBigInt(0)
	case wasm.ValFuncRef:
		return jsval.Null
	case wasm.ValExtern:
		return jsval.Undefined
	default:
		return jsval.Number(0)
	}
}

// newGlobal creates a provider global holding the coerced value v.
func (rt *Runtime) newGlobal(ctx context.Context, gt wasm.GlobalType, v jsval.Value) (*Global, error) {
	var (
		init []byte
		fn   *location
		sig  wasm.FuncType
		held jsval.Value
	)
	switch gt.ValType {
	case wasm.ValI32:
		n, _ := v.(jsval.Number)
		init = wasm.I32ConstExpr(int32(n))
	case wasm.ValI64:
		b, _ := v.(*jsval.BigInt)
		init = wasm.I64ConstExpr(jsval.BigIntToInt64(b))
	case wasm.ValF32:
		n, _ := v.(jsval.Number)
		init = wasm.F32ConstExpr(float32(n))
	case wasm.ValF64:
		n, _ := v.(jsval.Number)
		init = wasm.F64ConstExpr(float64(n))
	case wasm.ValFuncRef:
		init = wasm.RefNullExpr(wasm.ValFuncRef)
		if f := FunctionOf(v); f != nil {
			loc, err := f.location(ctx)
			if err != nil {
				return nil, err
			}
			fn, sig = &loc, f.sig
			init = wasm.RefFuncExpr(0)
		}
	case wasm.ValExtern:
		init = wasm.RefNullExpr(wasm.ValExtern)
		if !jsval.IsNull(v) && !gt.Mutable {
			held = v
		}
	default:
		return nil, typeError("invalid global value type %s", gt.ValType)
	}

	name := rt.nextName("global")
	mod, err := rt.instantiateSynth(ctx, name, globalProvider(gt, init, fn, sig))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindType, err, "cannot allocate global")
	}
	g := &Global{rt: rt, mod: mod, export: providerGlobal, typ: gt, held: held}
	g.obj = rt.ns.newGlobalObject(g)
	if gt.ValType == wasm.ValExtern && gt.Mutable && !jsval.IsNull(v) {
		if err := g.store(v); err != nil {
			return nil, err
		}
	}
	if fn != nil {
		// Learn the raw bits the provider holds for the function.
		raw := mod.ExportedGlobal(providerGlobal).Get()
		rt.refs.bind(raw, FunctionOf(v))
	}
	rt.debugf("global %s %s mutable=%t", name, gt.ValType, gt.Mutable)
	return g, nil
}

// bindGlobal wraps an exported global of an instance.
func (rt *Runtime) bindGlobal(mod api.Module, export string, gt wasm.GlobalType) *Global {
	g := &Global{rt: rt, mod: mod, export: export, typ: gt}
	g.obj = rt.ns.newGlobalObject(g)
	return g
}

// Object returns the JS global object.
func (g *Global) Object() *jsval.Object { return g.obj }

// GlobalType returns the value type and mutability.
func (g *Global) GlobalType() wasm.GlobalType { return g.typ }

func (g *Global) location() location {
	return location{module: g.mod.Name(), name: g.export}
}

// Value returns the current value.
func (g *Global) Value() jsval.Value {
	if g.held != nil {
		return g.held
	}
	return g.rt.fromRaw(g.typ.ValType, g.mod.ExportedGlobal(g.export).Get())
}

// SetValue assigns a mutable global. Assigning an immutable one is a
// TypeError.
func (g *Global) SetValue(v jsval.Value) error {
	if !g.typ.Mutable {
		return typeError("cannot set the value of an immutable global")
	}
	cv, err := Coerce(g.typ.ValType, v)
	if err != nil {
		return err
	}
	return g.store(cv)
}

func (g *Global) store(v jsval.Value) error {
	raw, err := g.rt.toRaw(g.typ.ValType, v)
	if err != nil {
		return err
	}
	mg, ok := g.mod.ExportedGlobal(g.export).(api.MutableGlobal)
	if !ok {
		return typeError("global is not mutable")
	}
	mg.Set(raw)
	return nil
}

// Type returns {value, mutable}.
func (g *Global) Type() *jsval.Object {
	return globalTypeObject(g.typ)
}

// int32Value returns the value of an i32 global, used for constant
// expression offsets.
func (g *Global) int32Value() (int32, bool) {
	if g.typ.ValType != wasm.ValI32 {
		return 0, false
	}
	n, ok := g.Value().(jsval.Number)
	if !ok || math.IsNaN(float64(n)) {
		return 0, false
	}
	return int32(n), true
}
