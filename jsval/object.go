package jsval

import (
	"github.com/wippyai/wasm-jsapi/errors"
)

// NativeFunc implements the call behaviour of a function object.
type NativeFunc func(this Value, args []Value) (Value, error)

// ConstructFunc implements the construct behaviour of a constructor.
// newTarget is the constructor new was applied to.
type ConstructFunc func(args []Value, newTarget *Object) (Value, error)

// GetTrap intercepts property reads on a proxy.
type GetTrap func(target *Object, key string, receiver Value) (Value, error)

// Property is an own property. It is an accessor when Getter is set, in
// which case Value and Writable are ignored.
type Property struct {
	Value        Value
	Getter       NativeFunc
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// IsAccessor reports whether the property is an accessor property.
func (p Property) IsAccessor() bool {
	return p.Getter != nil
}

// DataProperty returns a writable, enumerable, configurable data property.
func DataProperty(v Value) Property {
	return Property{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// Object is an ordinary object, a function, an array, or a proxy.
type Object struct {
	proto       *Object
	props       map[string]*Property
	call        NativeFunc
	construct   ConstructFunc
	internal    any
	proxyTarget *Object
	getTrap     GetTrap
	class       string
	keys        []string
	extensible  bool
}

// NewObject returns an empty extensible object with the given prototype.
func NewObject(proto *Object) *Object {
	return NewObjectWithClass("Object", proto)
}

// NewObjectWithClass returns an empty extensible object tagged with class.
func NewObjectWithClass(class string, proto *Object) *Object {
	return &Object{
		class:      class,
		proto:      proto,
		props:      make(map[string]*Property),
		extensible: true,
	}
}

func (*Object) Kind() Kind { return KindObject }

// Class returns the object's class tag ("Object", "Array", "Function", ...).
func (o *Object) Class() string { return o.class }

// Proto returns the prototype, or nil for a null prototype.
func (o *Object) Proto() *Object { return o.proto }

// SetProto replaces the prototype.
func (o *Object) SetProto(p *Object) { o.proto = p }

// Extensible reports whether new properties may be added.
func (o *Object) Extensible() bool { return o.extensible }

// PreventExtensions makes the object non-extensible.
func (o *Object) PreventExtensions() { o.extensible = false }

// Internal returns the host data attached to the object.
func (o *Object) Internal() any { return o.internal }

// SetInternal attaches host data to the object.
func (o *Object) SetInternal(v any) { o.internal = v }

// IsCallable reports whether the object has call behaviour.
func (o *Object) IsCallable() bool { return o.call != nil }

// IsConstructor reports whether the object has construct behaviour.
func (o *Object) IsConstructor() bool { return o.construct != nil }

// SetCall installs call behaviour.
func (o *Object) SetCall(fn NativeFunc) { o.call = fn }

// SetConstruct installs construct behaviour.
func (o *Object) SetConstruct(fn ConstructFunc) { o.construct = fn }

// IsProxy reports whether the object is a proxy.
func (o *Object) IsProxy() bool { return o.getTrap != nil }

func (o *Object) target() *Object {
	for o.proxyTarget != nil {
		o = o.proxyTarget
	}
	return o
}

// OwnKeys returns the own property keys in insertion order.
func (o *Object) OwnKeys() []string {
	t := o.target()
	return append([]string(nil), t.keys...)
}

// GetOwnProperty returns a copy of the own property key.
func (o *Object) GetOwnProperty(key string) (Property, bool) {
	t := o.target()
	p, ok := t.props[key]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// HasOwnProperty reports whether key is an own property.
func (o *Object) HasOwnProperty(key string) bool {
	_, ok := o.target().props[key]
	return ok
}

// DefineProperty creates or redefines an own property.
func (o *Object) DefineProperty(key string, p Property) error {
	t := o.target()
	if existing, ok := t.props[key]; ok {
		if !existing.Configurable && !samePropertyShape(*existing, p) {
			return errors.TypeError(errors.PhaseCoerce, "cannot redefine property %q", key)
		}
		*existing = p
		return nil
	}
	if !t.extensible {
		return errors.TypeError(errors.PhaseCoerce, "cannot define property %q, object is not extensible", key)
	}
	if t.props == nil {
		t.props = make(map[string]*Property)
	}
	np := p
	t.props[key] = &np
	t.keys = append(t.keys, key)
	return nil
}

func samePropertyShape(a, b Property) bool {
	if a.IsAccessor() || b.IsAccessor() {
		return false
	}
	if a.Enumerable != b.Enumerable || a.Configurable != b.Configurable {
		return false
	}
	if !a.Writable {
		return !b.Writable && SameValue(valueOrUndefined(a.Value), valueOrUndefined(b.Value))
	}
	return true
}

// Delete removes a configurable own property.
func (o *Object) Delete(key string) bool {
	t := o.target()
	p, ok := t.props[key]
	if !ok {
		return true
	}
	if !p.Configurable {
		return false
	}
	delete(t.props, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Get reads key, walking the prototype chain. Getters run with receiver as
// their this value.
func (o *Object) Get(key string, receiver Value) (Value, error) {
	for cur := o; cur != nil; cur = cur.proto {
		if cur.getTrap != nil {
			return cur.getTrap(cur.proxyTarget, key, receiver)
		}
		if p, ok := cur.props[key]; ok {
			if p.Getter != nil {
				return p.Getter(receiver, nil)
			}
			return valueOrUndefined(p.Value), nil
		}
	}
	return Undefined, nil
}

// Has reports whether key is present on the object or its prototype chain.
func (o *Object) Has(key string) bool {
	for cur := o; cur != nil; cur = cur.proto {
		if cur.target().props[key] != nil {
			return true
		}
	}
	return false
}

// Set assigns key with strict-mode semantics: writing a non-writable or
// accessor property, or adding to a non-extensible object, is a TypeError.
func (o *Object) Set(key string, v Value) error {
	t := o.target()
	if p, ok := t.props[key]; ok {
		if p.IsAccessor() || !p.Writable {
			return errors.TypeError(errors.PhaseCoerce, "cannot assign to read only property %q", key)
		}
		p.Value = v
		return nil
	}
	return t.DefineProperty(key, DataProperty(v))
}

// Get reads key from any value. Primitives other than undefined and null
// read through Object.prototype; strings also expose length.
func Get(v Value, key string) (Value, error) {
	switch x := v.(type) {
	case *Object:
		return x.Get(key, x)
	case String:
		if key == "length" {
			return Number(len(utf16Units(string(x)))), nil
		}
		return ObjectPrototype.Get(key, v)
	case nil, undefinedValue, nullValue:
		return nil, errors.TypeError(errors.PhaseCoerce, "cannot read property %q of %s", key, Format(v))
	default:
		return ObjectPrototype.Get(key, v)
	}
}

// Set assigns key on an object. Assigning on a primitive is a TypeError.
func Set(v Value, key string, val Value) error {
	o, ok := v.(*Object)
	if !ok {
		return errors.TypeError(errors.PhaseCoerce, "cannot set property %q on %s", key, Format(v))
	}
	return o.Set(key, val)
}

// Call invokes f with the given this value and arguments.
func Call(f Value, this Value, args []Value) (Value, error) {
	o, ok := f.(*Object)
	if !ok || o.call == nil {
		return nil, errors.TypeError(errors.PhaseCall, "%s is not a function", Format(f))
	}
	v, err := o.call(this, args)
	if err != nil {
		return nil, err
	}
	return valueOrUndefined(v), nil
}

// Construct applies new to f.
func Construct(f Value, args []Value) (Value, error) {
	o, ok := f.(*Object)
	if !ok || o.construct == nil {
		return nil, errors.TypeError(errors.PhaseConstruct, "%s is not a constructor", Format(f))
	}
	return o.construct(args, o)
}

// IsCallable reports whether v is a callable object.
func IsCallable(v Value) bool {
	o, ok := v.(*Object)
	return ok && o.IsCallable()
}

// NewProxy returns a proxy over target whose property reads go through get.
// Calls and constructs forward to the target.
func NewProxy(target *Object, get GetTrap) *Object {
	p := &Object{
		class:       target.class,
		proto:       target.proto,
		proxyTarget: target,
		getTrap:     get,
		extensible:  target.extensible,
	}
	if target.call != nil {
		p.call = target.call
	}
	if target.construct != nil {
		p.construct = target.construct
	}
	return p
}

// ReflectGet is the default get behaviour, for use inside a GetTrap.
func ReflectGet(target *Object, key string, receiver Value) (Value, error) {
	return target.Get(key, receiver)
}

func valueOrUndefined(v Value) Value {
	if v == nil {
		return Undefined
	}
	return v
}

func utf16Units(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
			continue
		}
		out = append(out, uint16(r))
	}
	return out
}
