package jsapi

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

const pageSize = 65536

// Memory is a WebAssembly.Memory, backed by a memory provider module or by
// an exported memory of an instance.
type Memory struct {
	rt     *Runtime
	obj    *jsval.Object
	mod    api.Module
	export string
	typ    wasm.MemoryType
}

// MemoryOf returns the Memory behind v, or nil.
func MemoryOf(v jsval.Value) *Memory {
	o, ok := jsval.AsObject(v)
	if !ok {
		return nil
	}
	m, _ := o.Internal().(*Memory)
	return m
}

// NewMemory implements new WebAssembly.Memory(desc). Members are read in
// the order initial, maximum, minimum, shared.
func (rt *Runtime) NewMemory(ctx context.Context, desc jsval.Value) (*Memory, error) {
	obj, ok := jsval.AsObject(desc)
	if !ok {
		return nil, typeError("memory descriptor must be an object, got %s", jsval.Format(desc))
	}
	min, max, err := readLimits(obj, "memory")
	if err != nil {
		return nil, err
	}
	sv, err := obj.Get("shared", obj)
	if err != nil {
		return nil, err
	}
	shared := jsval.ToBoolean(sv)

	if uint64(min) > wasm.MemoryMaxPages {
		return nil, errors.RangeError(errors.PhaseConstruct, "initial %d exceeds the maximum of %d pages", min, wasm.MemoryMaxPages)
	}
	mt := wasm.MemoryType{Limits: wasm.Limits{Min: uint64(min), Shared: shared}}
	if max != nil {
		if uint64(*max) > wasm.MemoryMaxPages {
			return nil, errors.RangeError(errors.PhaseConstruct, "maximum %d exceeds the maximum of %d pages", *max, wasm.MemoryMaxPages)
		}
		m := uint64(*max)
		mt.Limits.Max = &m
	}
	if shared && max == nil {
		return nil, typeError("shared memory must have a maximum")
	}
	if shared && !rt.cfg.EnableThreads {
		return nil, typeError("shared memory requires threads")
	}
	if limit := rt.cfg.MemoryLimitPages; limit > 0 && min > limit {
		return nil, errors.RangeError(errors.PhaseConstruct, "initial %d exceeds the runtime limit of %d pages", min, limit)
	}
	return rt.newMemory(ctx, mt)
}

func (rt *Runtime) newMemory(ctx context.Context, mt wasm.MemoryType) (*Memory, error) {
	name := rt.nextName("memory")
	mod, err := rt.instantiateSynth(ctx, name, memoryProvider(mt))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindRange, err, "cannot allocate memory")
	}
	rt.debugf("memory %s min=%d shared=%t", name, mt.Limits.Min, mt.Limits.Shared)
	return rt.bindMemory(mod, providerMemory, mt), nil
}

func (rt *Runtime) bindMemory(mod api.Module, export string, mt wasm.MemoryType) *Memory {
	m := &Memory{rt: rt, mod: mod, export: export, typ: mt}
	m.obj = rt.ns.newMemoryObject(m)
	return m
}

// Object returns the JS memory object.
func (m *Memory) Object() *jsval.Object { return m.obj }

func (m *Memory) memory() api.Memory {
	return m.mod.ExportedMemory(m.export)
}

func (m *Memory) location() location {
	return location{module: m.mod.Name(), name: m.export}
}

// Pages returns the current size in pages.
func (m *Memory) Pages() uint32 {
	return m.memory().Size() / pageSize
}

// Maximum returns the declared maximum in pages.
func (m *Memory) Maximum() (uint32, bool) {
	if m.typ.Limits.Max == nil {
		return 0, false
	}
	return uint32(*m.typ.Limits.Max), true
}

// Shared reports whether the memory is shared.
func (m *Memory) Shared() bool { return m.typ.Limits.Shared }

// Grow adds delta pages and returns the previous size in pages.
func (m *Memory) Grow(delta uint32) (uint32, error) {
	prev, ok := m.memory().Grow(delta)
	if !ok {
		return 0, errors.RangeError(errors.PhaseCall, "cannot grow memory by %d pages", delta)
	}
	return prev, nil
}

// Read returns a copy of n bytes at offset.
func (m *Memory) Read(offset, n uint32) ([]byte, bool) {
	b, ok := m.memory().Read(offset, n)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Type returns {minimum, maximum?, shared}; minimum is the current size.
func (m *Memory) Type() *jsval.Object {
	return memoryTypeObject(uint64(m.Pages()), m.typ.Limits.Max, m.typ.Limits.Shared)
}
