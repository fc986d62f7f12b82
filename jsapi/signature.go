package jsapi

import (
	"math"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// ParseValType maps a JS-API value type name to its encoding. "anyfunc" is
// accepted as an alias of "funcref".
func ParseValType(name string) (wasm.ValType, bool) {
	switch name {
	case "i32":
		return wasm.ValI32, true
	case "i64":
		return wasm.ValI64, true
	case "f32":
		return wasm.ValF32, true
	case "f64":
		return wasm.ValF64, true
	case "v128":
		return wasm.ValV128, true
	case "funcref", "anyfunc":
		return wasm.ValFuncRef, true
	case "externref":
		return wasm.ValExtern, true
	}
	return 0, false
}

func parseRefType(v jsval.Value) (wasm.ValType, error) {
	s, err := jsval.ToString(v)
	if err != nil {
		return 0, err
	}
	switch s {
	case "funcref", "anyfunc":
		return wasm.ValFuncRef, nil
	case "externref":
		return wasm.ValExtern, nil
	}
	return 0, typeError("invalid table element type %q", s)
}

// parseFuncType reads a {parameters, results} descriptor. parameters is read
// and converted completely before results is touched.
func parseFuncType(desc jsval.Value, limit int) (wasm.FuncType, error) {
	obj, ok := jsval.AsObject(desc)
	if !ok {
		return wasm.FuncType{}, typeError("function type descriptor must be an object, got %s", jsval.Format(desc))
	}
	params, err := readTypeList(obj, "parameters", limit)
	if err != nil {
		return wasm.FuncType{}, err
	}
	results, err := readTypeList(obj, "results", limit)
	if err != nil {
		return wasm.FuncType{}, err
	}
	return wasm.FuncType{Params: params, Results: results}, nil
}

func readTypeList(obj *jsval.Object, key string, limit int) ([]wasm.ValType, error) {
	v, err := obj.Get(key, obj)
	if err != nil {
		return nil, err
	}
	if jsval.IsUndefined(v) {
		return nil, typeError("function type descriptor is missing %q", key)
	}
	items, err := jsval.ReadArrayLike(v, limit)
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ValType, len(items))
	for i, item := range items {
		name, err := jsval.ToString(item)
		if err != nil {
			return nil, err
		}
		t, ok := ParseValType(name)
		if !ok || t == wasm.ValV128 {
			return nil, typeError("%s[%d]: invalid value type %q", key, i, name)
		}
		out[i] = t
	}
	return out, nil
}

// funcTypeObject returns the {parameters, results} reflection of sig.
func funcTypeObject(sig wasm.FuncType) *jsval.Object {
	return jsval.NewRecord(
		jsval.Prop("parameters", typeNames(sig.Params)),
		jsval.Prop("results", typeNames(sig.Results)),
	)
}

func typeNames(types []wasm.ValType) *jsval.Object {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return jsval.NewStringArray(names...)
}

// readEnforceRange implements the [EnforceRange] unsigned long conversion of
// a descriptor member. present is false when the member is undefined.
func readEnforceRange(obj *jsval.Object, key string) (value uint32, present bool, err error) {
	v, err := obj.Get(key, obj)
	if err != nil {
		return 0, false, err
	}
	if jsval.IsUndefined(v) {
		return 0, false, nil
	}
	value, err = enforceRange(v, key)
	return value, err == nil, err
}

// enforceRange converts v as an [EnforceRange] unsigned long.
func enforceRange(v jsval.Value, what string) (uint32, error) {
	f, err := jsval.ToNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, typeError("%s must be a finite number, got %s", what, jsval.NumberToString(f))
	}
	f = math.Trunc(f)
	if f < 0 || f > math.MaxUint32 {
		return 0, typeError("%s is out of range: %s", what, jsval.NumberToString(f))
	}
	return uint32(f), nil
}

// readLimits reads initial/minimum and maximum in dictionary member order:
// initial, maximum, minimum. Exactly one of initial and minimum is required.
func readLimits(obj *jsval.Object, what string) (min uint32, max *uint32, err error) {
	initial, hasInitial, err := readEnforceRange(obj, "initial")
	if err != nil {
		return 0, nil, err
	}
	maximum, hasMax, err := readEnforceRange(obj, "maximum")
	if err != nil {
		return 0, nil, err
	}
	minimum, hasMinimum, err := readEnforceRange(obj, "minimum")
	if err != nil {
		return 0, nil, err
	}
	switch {
	case hasInitial && hasMinimum:
		return 0, nil, typeError("%s descriptor has both initial and minimum", what)
	case !hasInitial && !hasMinimum:
		return 0, nil, typeError("%s descriptor requires initial or minimum", what)
	case hasInitial:
		min = initial
	default:
		min = minimum
	}
	if hasMax {
		if maximum < min {
			return 0, nil, errors.RangeError(errors.PhaseConstruct, "%s maximum %d is below minimum %d", what, maximum, min)
		}
		max = &maximum
	}
	return min, max, nil
}

func typeError(format string, args ...any) error {
	return errors.TypeError(errors.PhaseConstruct, format, args...)
}
