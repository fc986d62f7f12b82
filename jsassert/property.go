package jsassert

import (
	"strings"

	"github.com/kr/pretty"
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
)

// maxArrayLength bounds the arrays the checks are willing to read.
const maxArrayLength = 1 << 20

// CheckDataProperty checks that key is an own data property of obj holding
// want, and that it is writable, enumerable and configurable.
func CheckDataProperty(obj jsval.Value, key string, want jsval.Value) error {
	o, ok := jsval.AsObject(obj)
	if !ok {
		return errors.Assertion(nil, "%s is not an object", jsval.Format(obj))
	}
	return checkDataProperty(nil, o, key, want)
}

func checkDataProperty(path []string, obj *jsval.Object, key string, want jsval.Value) error {
	p, ok := obj.GetOwnProperty(key)
	if !ok {
		return errors.Assertion(at(path, key), "missing own property")
	}
	if p.IsAccessor() {
		return errors.Assertion(at(path, key), "accessor property, want a data property")
	}
	var errs error
	flag := func(name string, got bool) {
		if !got {
			errs = multierr.Append(errs, errors.Assertion(at(path, key, name), "want true"))
		}
	}
	flag("writable", p.Writable)
	flag("enumerable", p.Enumerable)
	flag("configurable", p.Configurable)
	if !jsval.SameValue(p.Value, want) {
		errs = multierr.Append(errs, errors.Mismatch(at(path, key), jsval.Format(want), jsval.Format(p.Value)))
	}
	return errs
}

// dataProperty returns the value of a data property after checking its
// attributes.
func dataProperty(path []string, obj *jsval.Object, key string) (jsval.Value, error) {
	p, ok := obj.GetOwnProperty(key)
	if !ok || p.IsAccessor() {
		return nil, errors.Assertion(at(path, key), "missing own data property")
	}
	var errs error
	if !p.Writable || !p.Enumerable || !p.Configurable {
		errs = errors.Assertion(at(path, key), "attributes writable=%t enumerable=%t configurable=%t, want all true",
			p.Writable, p.Enumerable, p.Configurable)
	}
	return p.Value, errs
}

// CheckProperty checks that reading key from obj yields want. An absent
// property reads as undefined.
func CheckProperty(obj jsval.Value, key string, want jsval.Value) error {
	return checkProperty(nil, obj, key, want)
}

func checkProperty(path []string, obj jsval.Value, key string, want jsval.Value) error {
	got, err := jsval.Get(obj, key)
	if err != nil {
		return err
	}
	if !jsval.SameValue(got, want) {
		return errors.Mismatch(at(path, key), jsval.Format(want), jsval.Format(got))
	}
	return nil
}

// CheckArrayEquals checks that actual is an array-like whose elements are
// SameValue to expected, in order.
func CheckArrayEquals(actual jsval.Value, expected []jsval.Value) error {
	return checkArrayEquals(nil, actual, expected)
}

func checkArrayEquals(path []string, actual jsval.Value, expected []jsval.Value) error {
	items, err := jsval.ReadArrayLike(actual, maxArrayLength)
	if err != nil {
		return err
	}
	equal := len(items) == len(expected)
	for i := 0; equal && i < len(items); i++ {
		equal = jsval.SameValue(items[i], expected[i])
	}
	if equal {
		return nil
	}
	want, got := formatList(expected), formatList(items)
	e := errors.Mismatch(path, "["+strings.Join(want, ", ")+"]", "["+strings.Join(got, ", ")+"]")
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		e.Detail += "\n\t" + strings.Join(diff, "\n\t")
	}
	return e
}

// checkArray checks that v is an extensible Array with Array.prototype as
// its prototype.
func checkArray(path []string, v jsval.Value) (*jsval.Object, error) {
	obj, ok := jsval.AsObject(v)
	if !ok || !jsval.IsArray(obj) {
		return nil, errors.Assertion(path, "%s is not an Array", jsval.Format(v))
	}
	var errs error
	if obj.Proto() != jsval.ArrayPrototype {
		errs = multierr.Append(errs, errors.Assertion(at(path, "prototype"), "prototype is not Array.prototype"))
	}
	if !obj.Extensible() {
		errs = multierr.Append(errs, errors.Assertion(path, "array is not extensible"))
	}
	return obj, errs
}

func formatList(vs []jsval.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = jsval.Format(v)
	}
	return out
}
