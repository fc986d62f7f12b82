package jsapi

import (
	"context"
	"strconv"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// Function is a WebAssembly function object. It either wraps a callable
// under a declared signature (a host function) or is bound to a function of
// an instance.
//
// A host function wrapping another Function composes the two coercion
// stages: arguments are coerced to the outer signature, then by the inner
// function to its own, and results flow back through both in reverse.
type Function struct {
	rt     *Runtime
	obj    *jsval.Object
	target jsval.Value
	inst   *Instance
	export api.Function
	loc    *location
	sig    wasm.FuncType
	index  uint32
}

// FunctionOf returns the Function behind v, or nil.
func FunctionOf(v jsval.Value) *Function {
	o, ok := jsval.AsObject(v)
	if !ok {
		return nil
	}
	f, _ := o.Internal().(*Function)
	return f
}

// NewFunction implements new WebAssembly.Function(desc, callable). The
// descriptor is read completely before callable is checked.
func (rt *Runtime) NewFunction(ctx context.Context, desc, callable jsval.Value) (*Function, error) {
	sig, err := parseFuncType(desc, rt.cfg.maxSignatureLength())
	if err != nil {
		return nil, err
	}
	if !jsval.IsCallable(callable) {
		return nil, typeError("%s is not callable", jsval.Format(callable))
	}
	if inner := FunctionOf(callable); inner != nil && !inner.sig.Equal(sig) {
		if inner.IsExported() {
			return nil, typeError("cannot wrap exported function %s as %s", inner.sig, sig)
		}
		if rt.cfg.StrictRewrap {
			return nil, typeError("cannot rewrap function %s as %s", inner.sig, sig)
		}
	}
	return rt.newHostFunction(sig, callable), nil
}

func (rt *Runtime) newHostFunction(sig wasm.FuncType, target jsval.Value) *Function {
	f := &Function{rt: rt, sig: cloneFuncType(sig), target: target}
	f.obj = rt.ns.newFunctionObject(f, "")
	return f
}

// newExportedFunction binds function index of inst, reachable through the
// export named name.
func (rt *Runtime) newExportedFunction(inst *Instance, index uint32, name string, sig wasm.FuncType) *Function {
	f := &Function{
		rt:     rt,
		inst:   inst,
		index:  index,
		sig:    cloneFuncType(sig),
		export: inst.mod.ExportedFunction(name),
		loc:    &location{module: inst.mod.Name(), name: name},
	}
	f.obj = rt.ns.newFunctionObject(f, strconv.FormatUint(uint64(index), 10))
	return f
}

// Object returns the JS function object.
func (f *Function) Object() *jsval.Object { return f.obj }

// Signature returns a copy of the declared signature.
func (f *Function) Signature() wasm.FuncType { return cloneFuncType(f.sig) }

// IsExported reports whether f is bound to a function of an instance.
func (f *Function) IsExported() bool { return f.inst != nil }

// Type returns the {parameters, results} reflection of the signature.
func (f *Function) Type() *jsval.Object { return funcTypeObject(f.sig) }

// Call invokes the function. Results follow the JS-API convention: no
// results is undefined, one result is the value, several are an Array.
func (f *Function) Call(args ...jsval.Value) (jsval.Value, error) {
	if f.export != nil {
		return f.callExport(args)
	}
	return f.invoke(args)
}

func (f *Function) callExport(args []jsval.Value) (jsval.Value, error) {
	raws, err := f.rt.toRawList(f.sig.Params, args)
	if err != nil {
		return nil, err
	}
	res, err := f.export.Call(f.rt.ctx, raws...)
	if err != nil {
		return nil, f.rt.callError(err)
	}
	return f.rt.fromRawResults(f.sig.Results, res), nil
}

// invoke is the host function composition step.
func (f *Function) invoke(args []jsval.Value) (jsval.Value, error) {
	params, err := coerceList(f.sig.Params, args)
	if err != nil {
		return nil, err
	}
	ret, err := jsval.Call(f.target, jsval.Undefined, params)
	if err != nil {
		return nil, err
	}
	return coerceResults(f.sig.Results, ret, f.rt.cfg.maxSignatureLength())
}

// hostCall is the engine entry point of a host function.
func (f *Function) hostCall(_ context.Context, _ api.Module, stack []uint64) {
	args := make([]jsval.Value, len(f.sig.Params))
	for i, t := range f.sig.Params {
		args[i] = f.rt.fromRaw(t, stack[i])
	}
	ret, err := f.invoke(args)
	if err != nil {
		panic(&hostThrow{err: err})
	}
	switch len(f.sig.Results) {
	case 0:
		return
	case 1:
		raw, err := f.rt.toRaw(f.sig.Results[0], ret)
		if err != nil {
			panic(&hostThrow{err: err})
		}
		stack[0] = raw
		return
	}
	for i, t := range f.sig.Results {
		v, err := jsval.Get(ret, strconv.Itoa(i))
		if err == nil {
			stack[i], err = f.rt.toRaw(t, v)
		}
		if err != nil {
			panic(&hostThrow{err: err})
		}
	}
}

// location returns where instances import f from. Host functions get their
// own host module on first use.
func (f *Function) location(ctx context.Context) (location, error) {
	if f.loc != nil {
		return *f.loc, nil
	}
	for _, t := range append(append([]wasm.ValType(nil), f.sig.Params...), f.sig.Results...) {
		if t == wasm.ValV128 {
			return location{}, errors.TypeError(errors.PhaseLink, "function %s cannot cross the JS boundary", f.sig)
		}
	}
	rt := f.rt
	name := rt.nextName("func")
	_, err := rt.engine.NewHostModuleBuilder(name).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(f.hostCall), apiTypes(f.sig.Params), apiTypes(f.sig.Results)).
		Export("f").
		Instantiate(ctx)
	if err != nil {
		return location{}, errors.Wrap(errors.PhaseLink, errors.KindLink, err, "create host function")
	}
	f.loc = &location{module: name, name: "f"}
	rt.debugf("host function %s %s", name, f.sig)
	return *f.loc, nil
}

// funcRaw returns the raw reference bits of f, materializing a reference
// through a ref provider the first time.
func (rt *Runtime) funcRaw(f *Function) (uint64, error) {
	if f == nil {
		return 0, errors.TypeError(errors.PhaseCoerce, "not a WebAssembly function")
	}
	if f.rt != rt {
		return 0, errors.TypeError(errors.PhaseCoerce, "function belongs to another runtime")
	}
	if raw, ok := rt.refs.rawOf(f); ok {
		return raw, nil
	}
	loc, err := f.location(rt.ctx)
	if err != nil {
		return 0, err
	}
	mod, err := rt.instantiateSynth(rt.ctx, rt.nextName("ref"), refProvider(loc, f.sig))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCoerce, errors.KindType, err, "materialize function reference")
	}
	res, err := mod.ExportedFunction(providerRef).Call(rt.ctx)
	if err != nil {
		return 0, rt.callError(err)
	}
	rt.refs.bind(res[0], f)
	return res[0], nil
}

func cloneFuncType(sig wasm.FuncType) wasm.FuncType {
	return wasm.FuncType{
		Params:  append([]wasm.ValType{}, sig.Params...),
		Results: append([]wasm.ValType{}, sig.Results...),
	}
}
