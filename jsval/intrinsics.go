package jsval

import (
	"math"
	"strconv"
	"strings"
)

// Intrinsic prototypes shared by every object created through this package.
var (
	ObjectPrototype   = NewObjectWithClass("Object", nil)
	FunctionPrototype = NewObjectWithClass("Function", ObjectPrototype)
	ArrayPrototype    = NewObjectWithClass("Array", ObjectPrototype)
)

func init() {
	FunctionPrototype.call = func(Value, []Value) (Value, error) { return Undefined, nil }

	defineMethod(ObjectPrototype, "valueOf", 0, func(this Value, _ []Value) (Value, error) {
		return this, nil
	})
	defineMethod(ObjectPrototype, "toString", 0, func(this Value, _ []Value) (Value, error) {
		return String("[object " + builtinTag(this) + "]"), nil
	})
	defineMethod(ArrayPrototype, "toString", 0, func(this Value, _ []Value) (Value, error) {
		items, err := ReadArrayLike(this, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(items))
		for i, it := range items {
			if IsUndefined(it) || IsNull(it) {
				continue
			}
			if parts[i], err = ToString(it); err != nil {
				return nil, err
			}
		}
		return String(strings.Join(parts, ",")), nil
	})
}

func defineMethod(o *Object, name string, length int, fn NativeFunc) {
	_ = o.DefineProperty(name, Property{
		Value:        NewFunction(name, length, fn),
		Writable:     true,
		Configurable: true,
	})
}

func builtinTag(v Value) string {
	switch x := v.(type) {
	case nil, undefinedValue:
		return "Undefined"
	case nullValue:
		return "Null"
	case Bool:
		return "Boolean"
	case Number:
		return "Number"
	case String:
		return "String"
	case *BigInt:
		return "BigInt"
	case *Symbol:
		return "Symbol"
	case *Object:
		if x.IsCallable() {
			return "Function"
		}
		if x.class == "Array" || x.class == "Error" {
			return x.class
		}
	}
	return "Object"
}

// NewFunction returns a function object with the standard name and length
// properties.
func NewFunction(name string, length int, fn NativeFunc) *Object {
	f := NewObjectWithClass("Function", FunctionPrototype)
	f.call = fn
	_ = f.DefineProperty("length", Property{Value: Number(length), Configurable: true})
	_ = f.DefineProperty("name", Property{Value: String(name), Configurable: true})
	return f
}

// NewConstructor returns a function object that can be called and
// constructed. A nil call makes plain calls throw TypeError.
func NewConstructor(name string, length int, call NativeFunc, construct ConstructFunc) *Object {
	if call == nil {
		call = func(Value, []Value) (Value, error) {
			return nil, newTypeError("constructor %s requires 'new'", name)
		}
	}
	f := NewFunction(name, length, call)
	f.construct = construct
	return f
}

// NewArray returns an array holding values.
func NewArray(values ...Value) *Object {
	a := NewObjectWithClass("Array", ArrayPrototype)
	for i, v := range values {
		_ = a.DefineProperty(strconv.Itoa(i), DataProperty(valueOrUndefined(v)))
	}
	_ = a.DefineProperty("length", Property{Value: Number(len(values)), Writable: true})
	return a
}

// NewArrayWithLength returns an array of n holes.
func NewArrayWithLength(n int) *Object {
	a := NewObjectWithClass("Array", ArrayPrototype)
	_ = a.DefineProperty("length", Property{Value: Number(n), Writable: true})
	return a
}

// NewStringArray returns an array of strings.
func NewStringArray(values ...string) *Object {
	vs := make([]Value, len(values))
	for i, s := range values {
		vs[i] = String(s)
	}
	return NewArray(vs...)
}

// IsArray reports whether v is an array, looking through proxies.
func IsArray(v Value) bool {
	o, ok := v.(*Object)
	return ok && o.target().class == "Array"
}

// Entry is one property of a record literal.
type Entry struct {
	Key   string
	Value Value
}

// Prop returns an Entry for NewRecord.
func Prop(key string, v Value) Entry {
	return Entry{Key: key, Value: v}
}

// NewRecord returns a plain object whose data properties are the entries,
// in order, all writable, enumerable and configurable.
func NewRecord(entries ...Entry) *Object {
	o := NewObject(ObjectPrototype)
	for _, e := range entries {
		_ = o.DefineProperty(e.Key, DataProperty(valueOrUndefined(e.Value)))
	}
	return o
}

// DefineGetter adds an enumerable, configurable accessor property.
func DefineGetter(o *Object, key string, get func(this Value) (Value, error)) error {
	return o.DefineProperty(key, Property{
		Getter:       func(this Value, _ []Value) (Value, error) { return get(this) },
		Enumerable:   true,
		Configurable: true,
	})
}

// NewError returns an Error object carrying message.
func NewError(message string) *Object {
	e := NewObjectWithClass("Error", ObjectPrototype)
	_ = e.DefineProperty("message", Property{Value: String(message), Writable: true, Configurable: true})
	return e
}
