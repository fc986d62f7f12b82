package jsapi

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// Coerce converts v to the JS representation of a value of type t: i32 and
// the float types become Numbers, i64 becomes a BigInt, externref passes
// through and funcref accepts null or a WebAssembly function.
func Coerce(t wasm.ValType, v jsval.Value) (jsval.Value, error) {
	switch t {
	case wasm.ValI32:
		i, err := jsval.ToInt32(v)
		if err != nil {
			return nil, err
		}
		return jsval.Number(i), nil
	case wasm.ValI64:
		i, err := jsval.ToBigInt64(v)
		if err != nil {
			return nil, err
		}
		return jsval.NewBigInt(i), nil
	case wasm.ValF32:
		f, err := jsval.ToNumber(v)
		if err != nil {
			return nil, err
		}
		return jsval.Number(float32(f)), nil
	case wasm.ValF64:
		f, err := jsval.ToNumber(v)
		if err != nil {
			return nil, err
		}
		return jsval.Number(f), nil
	case wasm.ValExtern:
		if v == nil {
			return jsval.Undefined, nil
		}
		return v, nil
	case wasm.ValFuncRef:
		if jsval.IsNull(v) {
			return jsval.Null, nil
		}
		if FunctionOf(v) != nil {
			return v, nil
		}
		if _, ok := opaqueRaw(v); ok {
			return v, nil
		}
		return nil, errors.TypeError(errors.PhaseCoerce, "%s is not a WebAssembly function", jsval.Format(v))
	default:
		return nil, errors.TypeError(errors.PhaseCoerce, "type %s has no JS representation", t)
	}
}

// coerceList coerces args to types. Extra arguments are dropped and missing
// ones are undefined.
func coerceList(types []wasm.ValType, args []jsval.Value) ([]jsval.Value, error) {
	out := make([]jsval.Value, len(types))
	for i, t := range types {
		var a jsval.Value = jsval.Undefined
		if i < len(args) {
			a = args[i]
		}
		v, err := Coerce(t, a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// coerceResults converts the return value of a callable to the declared
// results. Several results are read from an array-like.
func coerceResults(types []wasm.ValType, ret jsval.Value, limit int) (jsval.Value, error) {
	switch len(types) {
	case 0:
		return jsval.Undefined, nil
	case 1:
		return Coerce(types[0], ret)
	}
	items, err := jsval.ReadArrayLike(ret, limit)
	if err != nil {
		return nil, err
	}
	if len(items) != len(types) {
		return nil, errors.TypeError(errors.PhaseCoerce, "expected %d results, got %d", len(types), len(items))
	}
	vals, err := coerceList(types, items)
	if err != nil {
		return nil, err
	}
	return jsval.NewArray(vals...), nil
}

// toRaw encodes an already coerced value for the engine.
func (rt *Runtime) toRaw(t wasm.ValType, v jsval.Value) (uint64, error) {
	switch t {
	case wasm.ValI32:
		n, _ := v.(jsval.Number)
		return api.EncodeI32(int32(n)), nil
	case wasm.ValI64:
		b, _ := v.(*jsval.BigInt)
		if b == nil {
			return 0, nil
		}
		return api.EncodeI64(jsval.BigIntToInt64(b)), nil
	case wasm.ValF32:
		n, _ := v.(jsval.Number)
		return api.EncodeF32(float32(n)), nil
	case wasm.ValF64:
		n, _ := v.(jsval.Number)
		return api.EncodeF64(float64(n)), nil
	case wasm.ValExtern:
		return rt.refs.externHandle(v), nil
	case wasm.ValFuncRef:
		if jsval.IsNull(v) {
			return 0, nil
		}
		if raw, ok := opaqueRaw(v); ok {
			return raw, nil
		}
		return rt.funcRaw(FunctionOf(v))
	}
	return 0, errors.TypeError(errors.PhaseCoerce, "type %s has no JS representation", t)
}

// fromRaw decodes an engine value.
func (rt *Runtime) fromRaw(t wasm.ValType, raw uint64) jsval.Value {
	switch t {
	case wasm.ValI32:
		return jsval.Number(api.DecodeI32(raw))
	case wasm.ValI64:
		return jsval.NewBigInt(int64(raw))
	case wasm.ValF32:
		return jsval.Number(api.DecodeF32(raw))
	case wasm.ValF64:
		return jsval.Number(api.DecodeF64(raw))
	case wasm.ValExtern:
		return rt.refs.externValue(raw)
	case wasm.ValFuncRef:
		return rt.refs.funcValue(raw)
	}
	return jsval.Undefined
}

// toRawList coerces args and encodes them.
func (rt *Runtime) toRawList(types []wasm.ValType, args []jsval.Value) ([]uint64, error) {
	vals, err := coerceList(types, args)
	if err != nil {
		return nil, err
	}
	raws := make([]uint64, len(vals))
	for i, v := range vals {
		if raws[i], err = rt.toRaw(types[i], v); err != nil {
			return nil, err
		}
	}
	return raws, nil
}

func (rt *Runtime) fromRawResults(types []wasm.ValType, raws []uint64) jsval.Value {
	switch len(types) {
	case 0:
		return jsval.Undefined
	case 1:
		return rt.fromRaw(types[0], raws[0])
	}
	vals := make([]jsval.Value, len(types))
	for i, t := range types {
		vals[i] = rt.fromRaw(t, raws[i])
	}
	return jsval.NewArray(vals...)
}

func apiTypes(types []wasm.ValType) []api.ValueType {
	out := make([]api.ValueType, len(types))
	for i, t := range types {
		out[i] = api.ValueType(t)
	}
	return out
}
