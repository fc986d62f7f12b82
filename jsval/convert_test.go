package jsval

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-jsapi/errors"
)

func valueOfObject(v Value) *Object {
	o := NewObject(ObjectPrototype)
	_ = o.DefineProperty("valueOf", DataProperty(NewFunction("valueOf", 0, func(Value, []Value) (Value, error) {
		return v, nil
	})))
	return o
}

func toStringObject(s string) *Object {
	o := NewObject(ObjectPrototype)
	_ = o.DefineProperty("toString", DataProperty(NewFunction("toString", 0, func(Value, []Value) (Value, error) {
		return String(s), nil
	})))
	return o
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want float64
	}{
		{"undefined", Undefined, math.NaN()},
		{"nil", nil, math.NaN()},
		{"null", Null, 0},
		{"true", Bool(true), 1},
		{"false", Bool(false), 0},
		{"number", Number(123.45), 123.45},
		{"empty string", String(""), 0},
		{"spaces", String(" \t\n "), 0},
		{"decimal", String("  456 "), 456},
		{"exponent", String("1e3"), 1000},
		{"leading dot", String(".5"), 0.5},
		{"trailing dot", String("5."), 5},
		{"hex", String("0x1F"), 31},
		{"octal", String("0o17"), 15},
		{"binary", String("0b101"), 5},
		{"signed hex", String("-0x1"), math.NaN()},
		{"infinity", String("-Infinity"), math.Inf(-1)},
		{"lowercase infinity", String("infinity"), math.NaN()},
		{"garbage", String("12abc"), math.NaN()},
		{"nbsp", String("\u00a07\ufeff"), 7},
		{"next line is not space", String("\u00857"), math.NaN()},
		{"valueOf", valueOfObject(Number(123.45)), 123.45},
		{"valueOf undefined", valueOfObject(Undefined), math.NaN()},
		{"toString", toStringObject("456"), 456},
		{"plain object", NewObject(ObjectPrototype), math.NaN()},
		{"empty array", NewArray(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToNumber(tt.in)
			require.NoError(t, err)
			if math.IsNaN(tt.want) {
				require.True(t, math.IsNaN(got), "got %v", got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestToNumber_Errors(t *testing.T) {
	for _, v := range []Value{NewBigInt(1), NewSymbol("x")} {
		_, err := ToNumber(v)
		require.True(t, errors.IsClass(err, errors.ClassTypeError), "%s: %v", Format(v), err)
	}
}

func TestToPrimitive_PropagatesThrow(t *testing.T) {
	thrown := errors.New(errors.PhaseCall, errors.KindInvalid).Detail("boom").Build()
	o := NewObject(ObjectPrototype)
	_ = o.DefineProperty("valueOf", DataProperty(NewFunction("valueOf", 0, func(Value, []Value) (Value, error) {
		return nil, thrown
	})))
	_, err := ToNumber(o)
	require.Same(t, thrown, err)
}

func TestToPrimitive_NoPrimitive(t *testing.T) {
	o := NewObject(nil)
	_, err := ToPrimitive(o, HintNumber)
	require.True(t, errors.IsClass(err, errors.ClassTypeError))
}

func TestNumberToString(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-1.5, "-1.5"},
		{123.45, "123.45"},
		{1e21, "1e+21"},
		{1e20, "100000000000000000000"},
		{1.5e-7, "1.5e-7"},
		{0.000001, "0.000001"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{float64(float32(0.1)), "0.10000000149011612"},
		{4294967296, "4294967296"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NumberToString(tt.in), "%v", tt.in)
	}
}

func TestToInt32(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{0, 0},
		{123.45, 123},
		{-123.45, -123},
		{2147483648, -2147483648},
		{4294967295, -1},
		{4294967296, 0},
		{-4294967297, -1},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{1e300, 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NumberToInt32(tt.in), "%v", tt.in)
	}
}

func TestToInt32MatchesUint32Property(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("int32 and uint32 agree modulo 2^32", prop.ForAll(
		func(f float64) bool {
			return uint32(NumberToInt32(f)) == NumberToUint32(f)
		},
		gen.Float64Range(-1e12, 1e12),
	))
	properties.Property("int32 values are fixed points", prop.ForAll(
		func(i int32) bool {
			return NumberToInt32(float64(i)) == i
		},
		gen.Int32(),
	))
	properties.TestingRun(t)
}

func TestToBigInt(t *testing.T) {
	tests := []struct {
		name  string
		in    Value
		want  int64
		class string
	}{
		{name: "bigint", in: NewBigInt(-7), want: -7},
		{name: "true", in: Bool(true), want: 1},
		{name: "string", in: String(" 42 "), want: 42},
		{name: "negative string", in: String("-42"), want: -42},
		{name: "hex string", in: String("0xff"), want: 255},
		{name: "empty string", in: String(""), want: 0},
		{name: "valueOf bigint", in: valueOfObject(NewBigInt(9)), want: 9},
		{name: "number", in: Number(1), class: errors.ClassTypeError},
		{name: "undefined", in: Undefined, class: errors.ClassTypeError},
		{name: "null", in: Null, class: errors.ClassTypeError},
		{name: "symbol", in: NewSymbol("s"), class: errors.ClassTypeError},
		{name: "fraction string", in: String("1.5"), class: errors.ClassSyntaxError},
		{name: "double sign", in: String("--1"), class: errors.ClassSyntaxError},
		{name: "signed hex", in: String("-0x1"), class: errors.ClassSyntaxError},
		{name: "object", in: NewObject(ObjectPrototype), class: errors.ClassSyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBigInt(tt.in)
			if tt.class != "" {
				require.Error(t, err)
				require.Equal(t, tt.class, errors.ClassOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Int().Int64())
		})
	}
}

func TestToBigInt64Wraps(t *testing.T) {
	got, err := ToBigInt64(String("18446744073709551615"))
	require.NoError(t, err)
	require.Equal(t, int64(-1), got)

	got, err = ToBigInt64(String("-9223372036854775809"))
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), got)
}

func TestToString(t *testing.T) {
	s, err := ToString(toStringObject("2"))
	require.NoError(t, err)
	require.Equal(t, "2", s)

	s, err = ToString(NewObject(ObjectPrototype))
	require.NoError(t, err)
	require.Equal(t, "[object Object]", s)

	s, err = ToString(NewBigInt(5))
	require.NoError(t, err)
	require.Equal(t, "5", s)

	_, err = ToString(NewSymbol("x"))
	require.True(t, errors.IsClass(err, errors.ClassTypeError))
}

func TestToBoolean(t *testing.T) {
	require.False(t, ToBoolean(Undefined))
	require.False(t, ToBoolean(Number(math.NaN())))
	require.False(t, ToBoolean(String("")))
	require.False(t, ToBoolean(NewBigInt(0)))
	require.True(t, ToBoolean(NewObject(nil)))
	require.True(t, ToBoolean(String("0")))
}

func TestReadArrayLike(t *testing.T) {
	got, err := ReadArrayLike(NewStringArray("i32", "f64"), 1000)
	require.NoError(t, err)
	require.Equal(t, []Value{String("i32"), String("f64")}, got)

	// Holes read as undefined.
	got, err = ReadArrayLike(NewArrayWithLength(2), 1000)
	require.NoError(t, err)
	require.Equal(t, []Value{Undefined, Undefined}, got)

	rec := NewRecord(Prop("length", toStringObject("1")), Prop("0", String("x")))
	got, err = ReadArrayLike(rec, 1000)
	require.NoError(t, err)
	require.Equal(t, []Value{String("x")}, got)
}

func TestReadArrayLike_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   Value
	}{
		{"primitive", String("i32")},
		{"nan length", NewRecord(Prop("length", String("not a length")))},
		{"negative", NewRecord(Prop("length", Number(-1)))},
		{"fraction", NewRecord(Prop("length", Number(1.5)))},
		{"infinite", NewRecord(Prop("length", Number(math.Inf(1))))},
		{"too long", NewArrayWithLength(1001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadArrayLike(tt.in, 1000)
			require.True(t, errors.IsClass(err, errors.ClassTypeError), "got %v", err)
		})
	}
}

func TestReadArrayLike_ReadOrder(t *testing.T) {
	var log []string
	target := NewStringArray("i32", "i64")
	p := NewProxy(target, func(tgt *Object, key string, receiver Value) (Value, error) {
		log = append(log, key)
		return ReflectGet(tgt, key, receiver)
	})
	_, err := ReadArrayLike(p, 1000)
	require.NoError(t, err)
	require.Equal(t, []string{"length", "0", "1"}, log)
}
