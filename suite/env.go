package suite

import (
	"github.com/wippyai/wasm-jsapi/builder"
	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsassert"
	"github.com/wippyai/wasm-jsapi/jsval"
)

// Get follows a chain of property reads starting at v.
func (e *Env) Get(v jsval.Value, keys ...string) (jsval.Value, error) {
	for _, k := range keys {
		next, err := jsval.Get(v, k)
		if err != nil {
			return nil, err
		}
		v = next
	}
	return v, nil
}

// Class returns WebAssembly[name].
func (e *Env) Class(name string) (jsval.Value, error) {
	return jsval.Get(e.NS, name)
}

// Construct evaluates new WebAssembly[name](...args).
func (e *Env) Construct(name string, args ...jsval.Value) (jsval.Value, error) {
	ctor, err := e.Class(name)
	if err != nil {
		return nil, err
	}
	return jsval.Construct(ctor, args)
}

// Static calls WebAssembly[class][method](...args) with the class as this.
func (e *Env) Static(class, method string, args ...jsval.Value) (jsval.Value, error) {
	ctor, err := e.Class(class)
	if err != nil {
		return nil, err
	}
	fn, err := jsval.Get(ctor, method)
	if err != nil {
		return nil, err
	}
	return jsval.Call(fn, ctor, args)
}

// NewFunction evaluates new WebAssembly.Function({parameters, results}, fn).
func (e *Env) NewFunction(params, results []string, fn jsval.Value) (*jsval.Object, error) {
	v, err := e.Construct("Function", signature(params, results), fn)
	if err != nil {
		return nil, err
	}
	return v.(*jsval.Object), nil
}

// Compile compiles the builder's module through new WebAssembly.Module.
func (e *Env) Compile(b *builder.ModuleBuilder) (jsval.Value, error) {
	buf, err := b.ToBuffer()
	if err != nil {
		return nil, err
	}
	return e.Construct("Module", jsapi.NewBytes(buf))
}

// Instantiate compiles and instantiates the builder's module.
func (e *Env) Instantiate(b *builder.ModuleBuilder, importObject jsval.Value) (*jsapi.Instance, error) {
	return b.Instantiate(e.Ctx, e.RT, importObject)
}

func signature(params, results []string) *jsval.Object {
	return jsval.NewRecord(
		jsval.Prop("parameters", jsval.NewStringArray(params...)),
		jsval.Prop("results", jsval.NewStringArray(results...)),
	)
}

func native(fn func(args []jsval.Value) (jsval.Value, error)) *jsval.Object {
	return jsval.NewFunction("", 0, func(_ jsval.Value, args []jsval.Value) (jsval.Value, error) {
		return fn(args)
	})
}

func returning(v jsval.Value) *jsval.Object {
	return native(func([]jsval.Value) (jsval.Value, error) { return v, nil })
}

func importObject(module string, entries ...jsval.Entry) *jsval.Object {
	return jsval.NewRecord(jsval.Prop(module, jsval.NewRecord(entries...)))
}

func expect(what string, want, got jsval.Value) error {
	if jsval.SameValue(want, got) {
		return nil
	}
	return errors.Mismatch([]string{what}, jsval.Format(want), jsval.Format(got))
}

func expectTrue(what string, ok bool) error {
	if ok {
		return nil
	}
	return errors.Assertion([]string{what}, "expected true")
}

func throws(class, what string, err error) error {
	if failed := jsassert.CheckThrows(class, err); failed != nil {
		return errors.New(errors.PhaseAssert, errors.KindAssertion).
			Path(what).
			Detail("%v", failed).
			Build()
	}
	return nil
}

// Invoke calls obj[method](...args) with obj as this.
func (e *Env) Invoke(obj jsval.Value, method string, args ...jsval.Value) (jsval.Value, error) {
	fn, err := jsval.Get(obj, method)
	if err != nil {
		return nil, err
	}
	return jsval.Call(fn, obj, args)
}
