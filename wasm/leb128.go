package wasm

import (
	"encoding/binary"
	"math"

	wbin "github.com/wippyai/wasm-jsapi/wasm/internal/binary"
)

// LEB128 and constant-expression helpers for assembling instruction bytes.

// AppendU32 appends v as unsigned LEB128.
func AppendU32(dst []byte, v uint32) []byte {
	return wbin.AppendU64(dst, uint64(v))
}

// AppendS32 appends v as signed LEB128.
func AppendS32(dst []byte, v int32) []byte {
	return AppendS64(dst, int64(v))
}

// AppendS64 appends v as signed LEB128.
func AppendS64(dst []byte, v int64) []byte {
	return wbin.AppendS64(dst, v)
}

// I32ConstExpr returns "i32.const v; end".
func I32ConstExpr(v int32) []byte {
	return append(AppendS32([]byte{OpI32Const}, v), OpEnd)
}

// I64ConstExpr returns "i64.const v; end".
func I64ConstExpr(v int64) []byte {
	return append(AppendS64([]byte{OpI64Const}, v), OpEnd)
}

// F32ConstExpr returns "f32.const v; end" preserving the exact bits of v.
func F32ConstExpr(v float32) []byte {
	out := []byte{OpF32Const}
	out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	return append(out, OpEnd)
}

// F64ConstExpr returns "f64.const v; end" preserving the exact bits of v.
func F64ConstExpr(v float64) []byte {
	out := []byte{OpF64Const}
	out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	return append(out, OpEnd)
}

// RefNullExpr returns "ref.null t; end".
func RefNullExpr(t ValType) []byte {
	return []byte{OpRefNull, byte(t), OpEnd}
}

// RefFuncExpr returns "ref.func idx; end".
func RefFuncExpr(idx uint32) []byte {
	return append(AppendU32([]byte{OpRefFunc}, idx), OpEnd)
}

// GlobalGetExpr returns "global.get idx; end".
func GlobalGetExpr(idx uint32) []byte {
	return append(AppendU32([]byte{OpGlobalGet}, idx), OpEnd)
}

// ZeroExpr returns the default initializer for a value of type t.
func ZeroExpr(t ValType) []byte {
	switch t {
	case ValI64:
		return I64ConstExpr(0)
	case ValF32:
		return F32ConstExpr(0)
	case ValF64:
		return F64ConstExpr(0)
	case ValFuncRef, ValExtern:
		return RefNullExpr(t)
	default:
		return I32ConstExpr(0)
	}
}

// ConstI32 decodes an expression consisting of a single i32.const.
func ConstI32(expr []byte) (int32, bool) {
	if len(expr) < 3 || expr[0] != OpI32Const {
		return 0, false
	}
	r := wbin.NewReader(expr[1:])
	v, err := r.ReadS32()
	if err != nil {
		return 0, false
	}
	end, err := r.ReadByte()
	if err != nil || end != OpEnd || r.Len() != 0 {
		return 0, false
	}
	return v, true
}

// RefFuncIndex decodes an expression consisting of a single ref.func.
func RefFuncIndex(expr []byte) (uint32, bool) {
	if len(expr) < 3 || expr[0] != OpRefFunc {
		return 0, false
	}
	r := wbin.NewReader(expr[1:])
	v, err := r.ReadU32()
	if err != nil {
		return 0, false
	}
	end, err := r.ReadByte()
	if err != nil || end != OpEnd || r.Len() != 0 {
		return 0, false
	}
	return v, true
}
