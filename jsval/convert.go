package jsval

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/wippyai/wasm-jsapi/errors"
)

// Hint selects the method order of ToPrimitive.
type Hint uint8

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

func newTypeError(format string, args ...any) error {
	return errors.TypeError(errors.PhaseCoerce, format, args...)
}

// ToPrimitive converts an object by calling valueOf and toString in hint
// order. Primitives are returned unchanged. Errors thrown by either method
// propagate unchanged.
func ToPrimitive(v Value, hint Hint) (Value, error) {
	o, ok := v.(*Object)
	if !ok {
		return valueOrUndefined(v), nil
	}
	order := [2]string{"valueOf", "toString"}
	if hint == HintString {
		order = [2]string{"toString", "valueOf"}
	}
	for _, name := range order {
		m, err := o.Get(name, o)
		if err != nil {
			return nil, err
		}
		if !IsCallable(m) {
			continue
		}
		r, err := Call(m, o, nil)
		if err != nil {
			return nil, err
		}
		if !IsObject(r) {
			return r, nil
		}
	}
	return nil, newTypeError("cannot convert object to primitive value")
}

// ToNumber implements the abstract ToNumber operation.
func ToNumber(v Value) (float64, error) {
	switch x := v.(type) {
	case nil, undefinedValue:
		return math.NaN(), nil
	case nullValue:
		return 0, nil
	case Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case Number:
		return float64(x), nil
	case String:
		return StringToNumber(string(x)), nil
	case *BigInt:
		return 0, newTypeError("cannot convert a BigInt value to a number")
	case *Symbol:
		return 0, newTypeError("cannot convert a Symbol value to a number")
	case *Object:
		p, err := ToPrimitive(x, HintNumber)
		if err != nil {
			return 0, err
		}
		return ToNumber(p)
	default:
		return math.NaN(), nil
	}
}

var decimalLiteral = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

func isJSSpace(r rune) bool {
	return r == 0xFEFF || (r != 0x85 && unicode.IsSpace(r))
}

// StringToNumber parses s with the StringNumericLiteral grammar. Anything
// outside the grammar is NaN.
func StringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSSpace)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			i, ok := parseRadixInt(s[2:], base)
			if !ok {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(i).Float64()
			return f
		}
	}
	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	// Out of range literals still parse to ±Inf or ±0.
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseRadixInt(digits string, base int) (*big.Int, bool) {
	if digits == "" || strings.ContainsAny(digits, "+-_") {
		return nil, false
	}
	return new(big.Int).SetString(digits, base)
}

// ToString implements the abstract ToString operation.
func ToString(v Value) (string, error) {
	switch x := v.(type) {
	case nil, undefinedValue:
		return "undefined", nil
	case nullValue:
		return "null", nil
	case Bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case Number:
		return NumberToString(float64(x)), nil
	case String:
		return string(x), nil
	case *BigInt:
		return x.String(), nil
	case *Symbol:
		return "", newTypeError("cannot convert a Symbol value to a string")
	case *Object:
		p, err := ToPrimitive(x, HintString)
		if err != nil {
			return "", err
		}
		return ToString(p)
	default:
		return "", newTypeError("cannot convert value to a string")
	}
}

// NumberToString formats f the way Number.prototype.toString does.
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		return "0"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f < 0:
		return "-" + NumberToString(-f)
	}

	// Shortest round-trip digits and decimal exponent.
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(e, "e")
	digits := strings.Replace(mant, ".", "", 1)
	x, _ := strconv.Atoi(exp)
	k := len(digits)
	n := x + 1

	switch {
	case k <= n && n <= 21:
		return digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return "0." + strings.Repeat("0", -n) + digits
	}

	sign := "+"
	if n-1 < 0 {
		sign = "-"
	}
	abs := n - 1
	if abs < 0 {
		abs = -abs
	}
	if k == 1 {
		return digits + "e" + sign + strconv.Itoa(abs)
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + strconv.Itoa(abs)
}

// ToInt32 implements the abstract ToInt32 operation.
func ToInt32(v Value) (int32, error) {
	f, err := ToNumber(v)
	if err != nil {
		return 0, err
	}
	return NumberToInt32(f), nil
}

// ToUint32 implements the abstract ToUint32 operation.
func ToUint32(v Value) (uint32, error) {
	f, err := ToNumber(v)
	if err != nil {
		return 0, err
	}
	return NumberToUint32(f), nil
}

// NumberToInt32 truncates f and wraps it modulo 2^32 into the int32 range.
func NumberToInt32(f float64) int32 {
	return int32(NumberToUint32(f))
}

// NumberToUint32 truncates f and wraps it modulo 2^32.
func NumberToUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// ToBigInt implements the abstract ToBigInt operation. Numbers, undefined,
// null and symbols are TypeErrors; malformed strings are SyntaxErrors.
func ToBigInt(v Value) (*BigInt, error) {
	switch x := v.(type) {
	case nil, undefinedValue:
		return nil, newTypeError("cannot convert undefined to a BigInt")
	case nullValue:
		return nil, newTypeError("cannot convert null to a BigInt")
	case Bool:
		if x {
			return NewBigInt(1), nil
		}
		return NewBigInt(0), nil
	case *BigInt:
		return x, nil
	case Number:
		return nil, newTypeError("cannot convert %s to a BigInt", NumberToString(float64(x)))
	case String:
		return StringToBigInt(string(x))
	case *Symbol:
		return nil, newTypeError("cannot convert a Symbol value to a BigInt")
	case *Object:
		p, err := ToPrimitive(x, HintNumber)
		if err != nil {
			return nil, err
		}
		return ToBigInt(p)
	default:
		return nil, newTypeError("cannot convert value to a BigInt")
	}
}

// StringToBigInt parses s with the StringIntegerLiteral grammar.
func StringToBigInt(s string) (*BigInt, error) {
	t := strings.TrimFunc(s, isJSSpace)
	if t == "" {
		return NewBigInt(0), nil
	}
	if len(t) > 2 && t[0] == '0' {
		base := 0
		switch t[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			i, ok := parseRadixInt(t[2:], base)
			if !ok {
				return nil, errors.SyntaxError(errors.PhaseCoerce, "cannot convert %q to a BigInt", s)
			}
			return BigIntFrom(i), nil
		}
	}
	digits := strings.TrimLeft(t, "+-")
	if len(t)-len(digits) > 1 || digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return nil, errors.SyntaxError(errors.PhaseCoerce, "cannot convert %q to a BigInt", s)
	}
	i, ok := new(big.Int).SetString(t, 10)
	if !ok {
		return nil, errors.SyntaxError(errors.PhaseCoerce, "cannot convert %q to a BigInt", s)
	}
	return BigIntFrom(i), nil
}

var twoTo64Mask = new(big.Int).SetUint64(math.MaxUint64)

// ToBigInt64 converts v with ToBigInt and wraps it modulo 2^64.
func ToBigInt64(v Value) (int64, error) {
	b, err := ToBigInt(v)
	if err != nil {
		return 0, err
	}
	return BigIntToInt64(b), nil
}

// BigIntToInt64 wraps b modulo 2^64 into the int64 range.
func BigIntToInt64(b *BigInt) int64 {
	u := new(big.Int).And(&b.v, twoTo64Mask)
	return int64(u.Uint64())
}

// ToBoolean implements the abstract ToBoolean operation.
func ToBoolean(v Value) bool {
	switch x := v.(type) {
	case nil, undefinedValue, nullValue:
		return false
	case Bool:
		return bool(x)
	case Number:
		return x != 0 && !math.IsNaN(float64(x))
	case String:
		return x != ""
	case *BigInt:
		return x.v.Sign() != 0
	default:
		return true
	}
}

// ReadArrayLike reads v through the length and index protocol: length is
// read and converted first, then "0", "1", ... in ascending order. A length
// that is NaN, negative, infinite, fractional or above limit is a TypeError.
// Errors thrown by getters or conversions propagate unchanged.
func ReadArrayLike(v Value, limit int) ([]Value, error) {
	o, ok := v.(*Object)
	if !ok {
		return nil, newTypeError("%s is not an object", Format(v))
	}
	lv, err := o.Get("length", o)
	if err != nil {
		return nil, err
	}
	n, err := ToNumber(lv)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n != math.Trunc(n) {
		return nil, newTypeError("invalid array length %s", NumberToString(n))
	}
	if n > float64(limit) {
		return nil, newTypeError("array length %s exceeds the limit of %d", NumberToString(n), limit)
	}
	out := make([]Value, int(n))
	for i := range out {
		out[i], err = o.Get(strconv.Itoa(i), o)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
