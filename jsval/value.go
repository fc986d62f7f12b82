package jsval

import (
	"math"
	"math/big"
)

// Kind identifies the language type of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindBigInt
	KindSymbol
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBigInt:
		return "bigint"
	case KindSymbol:
		return "symbol"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a host value. The concrete types are undefinedValue, nullValue,
// Bool, Number, String, *BigInt, *Symbol and *Object.
type Value interface {
	Kind() Kind
}

type undefinedValue struct{}

func (undefinedValue) Kind() Kind { return KindUndefined }

type nullValue struct{}

func (nullValue) Kind() Kind { return KindNull }

// Undefined and Null are the two singleton values.
var (
	Undefined Value = undefinedValue{}
	Null      Value = nullValue{}
)

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }

// Number is an IEEE 754 double.
type Number float64

func (Number) Kind() Kind { return KindNumber }

// String is a string value.
type String string

func (String) Kind() Kind { return KindString }

// BigInt is an arbitrary precision integer. The zero value is 0n.
type BigInt struct {
	v big.Int
}

func (*BigInt) Kind() Kind { return KindBigInt }

// NewBigInt returns the BigInt for v.
func NewBigInt(v int64) *BigInt {
	b := &BigInt{}
	b.v.SetInt64(v)
	return b
}

// BigIntFrom copies x into a new BigInt.
func BigIntFrom(x *big.Int) *BigInt {
	b := &BigInt{}
	b.v.Set(x)
	return b
}

// Int returns a copy of the integer value.
func (b *BigInt) Int() *big.Int {
	return new(big.Int).Set(&b.v)
}

func (b *BigInt) String() string {
	return b.v.String()
}

// Symbol is a unique symbol value.
type Symbol struct {
	Description string
}

func (*Symbol) Kind() Kind { return KindSymbol }

// NewSymbol returns a fresh symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{Description: description}
}

// IsUndefined reports whether v is undefined. A nil Value counts as undefined.
func IsUndefined(v Value) bool {
	return v == nil || v.Kind() == KindUndefined
}

// IsNull reports whether v is null.
func IsNull(v Value) bool {
	return v != nil && v.Kind() == KindNull
}

// IsObject reports whether v is an object.
func IsObject(v Value) bool {
	_, ok := v.(*Object)
	return ok
}

// AsObject returns v as an object.
func AsObject(v Value) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok
}

// TypeOf implements the typeof operator.
func TypeOf(v Value) string {
	if v == nil {
		return "undefined"
	}
	if o, ok := v.(*Object); ok {
		if o.IsCallable() {
			return "function"
		}
		return "object"
	}
	if v.Kind() == KindNull {
		return "object"
	}
	return v.Kind().String()
}

// SameValue reports whether a and b are the same value. NaN is the same as
// NaN and +0 differs from -0.
func SameValue(a, b Value) bool {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Number:
		y := b.(Number)
		if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
			return true
		}
		if x == 0 && y == 0 {
			return math.Signbit(float64(x)) == math.Signbit(float64(y))
		}
		return x == y
	case *BigInt:
		return x.v.Cmp(&b.(*BigInt).v) == 0
	default:
		return a == b
	}
}

// SameValueZero is SameValue except that +0 and -0 are equal.
func SameValueZero(a, b Value) bool {
	if x, ok := a.(Number); ok {
		if y, ok := b.(Number); ok && x == 0 && y == 0 {
			return true
		}
	}
	return SameValue(a, b)
}
