package jsassert

import (
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
)

// CheckFunctionShape checks that candidate is an extensible WebAssembly
// function: its prototype chain is WebAssembly.Function.prototype,
// Function.prototype, Object.prototype, its constructor is
// WebAssembly.Function and typeof reports "function".
func CheckFunctionShape(rt *jsapi.Runtime, candidate jsval.Value) error {
	obj, ok := jsval.AsObject(candidate)
	if !ok {
		return errors.Assertion(nil, "%s is not an object", jsval.Format(candidate))
	}
	ctor, err := jsval.Get(rt.Namespace(), "Function")
	if err != nil {
		return err
	}
	proto, err := jsval.Get(ctor, "prototype")
	if err != nil {
		return err
	}

	var errs error
	chain := []struct {
		name string
		want jsval.Value
	}{
		{"WebAssembly.Function.prototype", proto},
		{"Function.prototype", jsval.FunctionPrototype},
		{"Object.prototype", jsval.ObjectPrototype},
	}
	link := obj
	for i, c := range chain {
		next := link.Proto()
		if next == nil || !jsval.SameValue(next, c.want) {
			errs = multierr.Append(errs, errors.Assertion(protoPath(i+1), "want %s", c.name))
			break
		}
		link = next
	}
	if !obj.Extensible() {
		errs = multierr.Append(errs, errors.Assertion(nil, "function is not extensible"))
	}
	got, err := jsval.Get(obj, "constructor")
	if err != nil {
		return multierr.Append(errs, err)
	}
	if !jsval.SameValue(got, ctor) {
		errs = multierr.Append(errs, errors.Mismatch([]string{"constructor"}, "WebAssembly.Function", jsval.Format(got)))
	}
	if typ := jsval.TypeOf(obj); typ != "function" {
		errs = multierr.Append(errs, errors.Mismatch([]string{"typeof"}, "function", typ))
	}
	return errs
}

func protoPath(depth int) []string {
	path := make([]string, depth)
	for i := range path {
		path[i] = "__proto__"
	}
	return path
}

// CheckFunctionType checks that WebAssembly.Function.type(candidate) is
// {parameters, results} with exactly the given lists, members in that
// order.
func CheckFunctionType(rt *jsapi.Runtime, candidate jsval.Value, params, results []string) error {
	ctor, err := jsval.Get(rt.Namespace(), "Function")
	if err != nil {
		return err
	}
	typeFn, err := jsval.Get(ctor, "type")
	if err != nil {
		return err
	}
	typ, err := jsval.Call(typeFn, ctor, []jsval.Value{candidate})
	if err != nil {
		return err
	}
	obj, ok := jsval.AsObject(typ)
	if !ok {
		return errors.Assertion([]string{"type"}, "%s is not an object", jsval.Format(typ))
	}

	var errs error
	keys := obj.OwnKeys()
	if len(keys) != 2 || keys[0] != "parameters" || keys[1] != "results" {
		errs = errors.Mismatch([]string{"type"}, "[parameters results]", keys)
	}
	return multierr.Append(errs, checkType([]string{"type"}, obj, FuncType(params, results)))
}

// CheckFunctionName checks the name property of a built-in function: the
// given value, not writable, not enumerable, configurable.
func CheckFunctionName(fn jsval.Value, name string) error {
	return checkFunctionProperty(fn, "name", jsval.String(name))
}

// CheckFunctionLength checks the length property of a built-in function.
func CheckFunctionLength(fn jsval.Value, length int) error {
	return checkFunctionProperty(fn, "length", jsval.Number(length))
}

func checkFunctionProperty(fn jsval.Value, key string, want jsval.Value) error {
	obj, ok := jsval.AsObject(fn)
	if !ok || !obj.IsCallable() {
		return errors.Assertion(nil, "%s is not a function", jsval.Format(fn))
	}
	p, ok := obj.GetOwnProperty(key)
	if !ok || p.IsAccessor() {
		return errors.Assertion([]string{key}, "missing own data property")
	}
	var errs error
	if p.Writable {
		errs = multierr.Append(errs, errors.Assertion([]string{key, "writable"}, "want false"))
	}
	if p.Enumerable {
		errs = multierr.Append(errs, errors.Assertion([]string{key, "enumerable"}, "want false"))
	}
	if !p.Configurable {
		errs = multierr.Append(errs, errors.Assertion([]string{key, "configurable"}, "want true"))
	}
	if !jsval.SameValue(p.Value, want) {
		errs = multierr.Append(errs, errors.Mismatch([]string{key}, jsval.Format(want), jsval.Format(p.Value)))
	}
	return errs
}

// CheckThrows checks that err is thrown as the JS error class class. Any
// other class fails, as does a nil err.
func CheckThrows(class string, err error) error {
	if err == nil {
		return errors.Assertion(nil, "expected %s, nothing was thrown", class)
	}
	if got := errors.ClassOf(err); got != class {
		return errors.New(errors.PhaseAssert, errors.KindAssertion).
			Detail("expected %s, got %s", class, got).
			Value(got).
			Cause(err).
			Build()
	}
	return nil
}
