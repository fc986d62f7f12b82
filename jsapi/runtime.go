package jsapi

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-jsapi/errors"
)

// Runtime is one JS-API realm backed by a wazero runtime. It owns every
// module, provider and host function created through it.
//
// A Runtime is not safe for concurrent use. Calls made through JS objects
// (function objects, namespace constructors) run with the context passed
// to New.
type Runtime struct {
	ctx      context.Context
	engine   wazero.Runtime
	log      *zap.Logger
	ns       *namespace
	refs     *refRegistry
	compiled []wazero.CompiledModule
	cfg      Config
	seq      uint64
	closed   bool
}

// New creates a runtime from cfg. Zero fields of cfg take their defaults,
// except EnableThreads, which is honored as given.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	rc, err := cfg.runtimeConfig()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalid, err, "invalid runtime configuration")
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	rt := &Runtime{
		ctx:    ctx,
		cfg:    cfg,
		engine: wazero.NewRuntimeWithConfig(ctx, rc),
		log:    log.Named("jsapi"),
		refs:   newRefRegistry(),
	}
	rt.ns = newNamespace(rt)
	rt.debugf("runtime created: engine=%s threads=%t", cfg.Engine, cfg.EnableThreads)
	return rt, nil
}

// Config returns the configuration the runtime was created with.
func (rt *Runtime) Config() Config {
	return rt.cfg
}

// Context returns the context used for calls made through JS objects.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Close releases every module created by the runtime.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.closed {
		return nil
	}
	rt.closed = true
	var err error
	for _, c := range rt.compiled {
		err = multierr.Append(err, c.Close(ctx))
	}
	return multierr.Append(err, rt.engine.Close(ctx))
}

func (rt *Runtime) nextName(kind string) string {
	rt.seq++
	return fmt.Sprintf("jsapi.%s.%d", kind, rt.seq)
}
