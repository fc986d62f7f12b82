package builder

import (
	"github.com/wippyai/wasm-jsapi/wasm"
)

// Sig returns the signature params -> results.
func Sig(params []wasm.ValType, results []wasm.ValType) wasm.FuncType {
	return wasm.FuncType{Params: params, Results: results}
}

func types(ts ...wasm.ValType) []wasm.ValType { return ts }

// Common signatures, named by results then parameters: SigIL takes an i64
// and returns an i32. v is none, i is i32, l is i64, f is f32, d is f64 and
// a is funcref.
var (
	SigVV   = Sig(nil, nil)
	SigVI   = Sig(types(wasm.ValI32), nil)
	SigIV   = Sig(nil, types(wasm.ValI32))
	SigII   = Sig(types(wasm.ValI32), types(wasm.ValI32))
	SigIIII = Sig(types(wasm.ValI32, wasm.ValI32, wasm.ValI32), types(wasm.ValI32))
	SigLV   = Sig(nil, types(wasm.ValI64))
	SigIL   = Sig(types(wasm.ValI64), types(wasm.ValI32))
	SigVDDI = Sig(types(wasm.ValF64, wasm.ValF64, wasm.ValI32), nil)
	SigFF   = Sig(types(wasm.ValF32), types(wasm.ValF32))
	SigAA   = Sig(types(wasm.ValFuncRef), types(wasm.ValFuncRef))
)

// I32Const returns i32.const v without a trailing end.
func I32Const(v int32) []byte {
	return wasm.AppendS32([]byte{wasm.OpI32Const}, v)
}

// RefFunc returns ref.func index without a trailing end.
func RefFunc(index uint32) []byte {
	return wasm.AppendU32([]byte{wasm.OpRefFunc}, index)
}
