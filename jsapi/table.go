package jsapi

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// Table is a WebAssembly.Table. Every table, including the local tables of
// instances, lives in a table provider module.
//
// The table keeps a shadow of the functions it knows were stored in each
// slot together with their raw bits, so a later get returns the same
// function object even when the slot was written by an instance.
type Table struct {
	rt     *Runtime
	obj    *jsval.Object
	mod    api.Module
	size   api.Function
	grow   api.Function
	get    api.Function
	set    api.Function
	known  *bitset.BitSet
	shadow []shadowSlot
	typ    wasm.TableType
}

type shadowSlot struct {
	fn  *Function
	raw uint64
}

// TableOf returns the Table behind v, or nil.
func TableOf(v jsval.Value) *Table {
	o, ok := jsval.AsObject(v)
	if !ok {
		return nil
	}
	t, _ := o.Internal().(*Table)
	return t
}

// NewTable implements new WebAssembly.Table(desc, value). Descriptor
// members are read in the order element, initial, maximum, minimum. Pass
// nil for a missing value argument.
func (rt *Runtime) NewTable(ctx context.Context, desc jsval.Value, value jsval.Value) (*Table, error) {
	obj, ok := jsval.AsObject(desc)
	if !ok {
		return nil, typeError("table descriptor must be an object, got %s", jsval.Format(desc))
	}
	ev, err := obj.Get("element", obj)
	if err != nil {
		return nil, err
	}
	elem, err := parseRefType(ev)
	if err != nil {
		return nil, err
	}
	min, max, err := readLimits(obj, "table")
	if err != nil {
		return nil, err
	}
	if uint64(min) > wasm.TableMaxElements {
		return nil, errors.RangeError(errors.PhaseConstruct, "table size %d exceeds the maximum of %d", min, wasm.TableMaxElements)
	}
	tt := wasm.TableType{ElemType: elem, Limits: wasm.Limits{Min: uint64(min)}}
	if max != nil {
		m := uint64(*max)
		tt.Limits.Max = &m
	}

	var init jsval.Value
	if value != nil {
		if init, err = Coerce(elem, value); err != nil {
			return nil, err
		}
	} else if elem == wasm.ValExtern {
		init = jsval.Undefined
	}

	t, err := rt.newTable(ctx, tt)
	if err != nil {
		return nil, err
	}
	if init != nil && !jsval.IsNull(init) {
		for i := uint32(0); i < min; i++ {
			if err := t.store(i, init); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (rt *Runtime) newTable(ctx context.Context, tt wasm.TableType) (*Table, error) {
	name := rt.nextName("table")
	mod, err := rt.instantiateSynth(ctx, name, tableProvider(tt))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindRange, err, "cannot allocate table")
	}
	t := &Table{
		rt:    rt,
		mod:   mod,
		typ:   tt,
		size:  mod.ExportedFunction(providerSize),
		grow:  mod.ExportedFunction(providerGrow),
		get:   mod.ExportedFunction(providerGet),
		set:   mod.ExportedFunction(providerSet),
		known: bitset.New(uint(tt.Limits.Min)),
	}
	t.obj = rt.ns.newTableObject(t)
	return t, nil
}

// Object returns the JS table object.
func (t *Table) Object() *jsval.Object { return t.obj }

// ElementType returns funcref or externref.
func (t *Table) ElementType() wasm.ValType { return t.typ.ElemType }

// Maximum returns the declared maximum size.
func (t *Table) Maximum() (uint32, bool) {
	if t.typ.Limits.Max == nil {
		return 0, false
	}
	return uint32(*t.typ.Limits.Max), true
}

func (t *Table) location() location {
	return location{module: t.mod.Name(), name: providerTable}
}

// Length returns the current number of slots, or 0 when the engine cannot
// report it.
func (t *Table) Length() uint32 {
	n, err := t.length()
	if err != nil {
		t.rt.debugf("table length: %v", err)
	}
	return n
}

func (t *Table) length() (uint32, error) {
	res, err := t.size.Call(t.rt.ctx)
	if err != nil {
		return 0, t.rt.callError(err)
	}
	return api.DecodeU32(res[0]), nil
}

func (t *Table) checkIndex(index uint32) error {
	n, err := t.length()
	if err != nil {
		return err
	}
	if index >= n {
		return errors.RangeError(errors.PhaseCall, "table index %d out of bounds", index)
	}
	return nil
}

// Get returns the element at index; empty slots are null.
func (t *Table) Get(index uint32) (jsval.Value, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}
	res, err := t.get.Call(t.rt.ctx, api.EncodeU32(index))
	if err != nil {
		return nil, t.rt.callError(err)
	}
	raw := res[0]
	if t.typ.ElemType == wasm.ValExtern {
		return t.rt.refs.externValue(raw), nil
	}
	if raw == 0 {
		return jsval.Null, nil
	}
	if t.known.Test(uint(index)) && int(index) < len(t.shadow) && t.shadow[index].raw == raw {
		return t.shadow[index].fn.obj, nil
	}
	return t.rt.refs.funcValue(raw), nil
}

// Set stores value at index. A nil value stores the element type's default.
func (t *Table) Set(index uint32, value jsval.Value) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	v, err := t.coerceElement(value)
	if err != nil {
		return err
	}
	return t.store(index, v)
}

// Grow appends delta slots filled with value and returns the previous length.
func (t *Table) Grow(delta uint32, value jsval.Value) (uint32, error) {
	v, err := t.coerceElement(value)
	if err != nil {
		return 0, err
	}
	raw, err := t.rt.toRaw(t.typ.ElemType, v)
	if err != nil {
		return 0, err
	}
	res, err := t.grow.Call(t.rt.ctx, api.EncodeU32(delta), raw)
	if err != nil {
		return 0, t.rt.callError(err)
	}
	prev := api.DecodeI32(res[0])
	if prev < 0 {
		return 0, errors.RangeError(errors.PhaseCall, "cannot grow table by %d", delta)
	}
	if f := FunctionOf(v); f != nil {
		for i := uint32(prev); i < uint32(prev)+delta; i++ {
			t.remember(i, f, raw)
		}
	}
	return uint32(prev), nil
}

// Type returns {minimum, maximum?, element}; minimum is the current length.
func (t *Table) Type() *jsval.Object {
	return tableTypeObject(t.typ.ElemType, uint64(t.Length()), t.typ.Limits.Max)
}

func (t *Table) coerceElement(value jsval.Value) (jsval.Value, error) {
	if value == nil {
		if t.typ.ElemType == wasm.ValExtern {
			return jsval.Undefined, nil
		}
		return jsval.Null, nil
	}
	return Coerce(t.typ.ElemType, value)
}

func (t *Table) store(index uint32, v jsval.Value) error {
	raw, err := t.rt.toRaw(t.typ.ElemType, v)
	if err != nil {
		return err
	}
	if _, err := t.set.Call(t.rt.ctx, api.EncodeU32(index), raw); err != nil {
		return t.rt.callError(err)
	}
	if f := FunctionOf(v); f != nil {
		t.remember(index, f, raw)
	} else {
		t.known.Clear(uint(index))
	}
	return nil
}

// remember records that slot index holds f with the given raw bits.
func (t *Table) remember(index uint32, f *Function, raw uint64) {
	for uint32(len(t.shadow)) <= index {
		t.shadow = append(t.shadow, shadowSlot{})
	}
	t.shadow[index] = shadowSlot{fn: f, raw: raw}
	t.known.Set(uint(index))
	t.rt.refs.bind(raw, f)
}

// learn reads back slot index after an instance wrote f into it.
func (t *Table) learn(index uint32, f *Function) error {
	res, err := t.get.Call(t.rt.ctx, api.EncodeU32(index))
	if err != nil {
		return t.rt.callError(err)
	}
	if res[0] != 0 {
		t.remember(index, f, res[0])
	}
	return nil
}
