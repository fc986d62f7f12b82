package jsapi

import (
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"
)

// EngineKind selects the wazero execution engine.
type EngineKind string

const (
	EngineAuto        EngineKind = "auto"
	EngineInterpreter EngineKind = "interpreter"
	EngineCompiler    EngineKind = "compiler"
)

// DefaultMaxSignatureLength bounds the parameter and result lists of a
// function type descriptor.
const DefaultMaxSignatureLength = 1000

// Config holds configuration for runtime creation
type Config struct {
	// Logger receives debug output for link rewrites, provider modules and
	// traps. Nil uses the package logger.
	Logger *zap.Logger

	// Engine selects the execution engine. Empty means auto.
	Engine EngineKind

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// MaxSignatureLength bounds the length of the parameters and results
	// lists of a function type. 0 means DefaultMaxSignatureLength.
	MaxSignatureLength int

	// EnableThreads enables the threads proposal, required for shared memories.
	EnableThreads bool

	// StrictRewrap rejects wrapping any WebAssembly function under a
	// different signature. Functions exported by an instance always require
	// an identical signature.
	StrictRewrap bool
}

// DefaultConfig returns the configuration used by New when none is given.
func DefaultConfig() Config {
	return Config{
		Engine:             EngineAuto,
		MaxSignatureLength: DefaultMaxSignatureLength,
		EnableThreads:      true,
	}
}

func (c Config) maxSignatureLength() int {
	if c.MaxSignatureLength <= 0 {
		return DefaultMaxSignatureLength
	}
	return c.MaxSignatureLength
}

func (c Config) runtimeConfig() (wazero.RuntimeConfig, error) {
	var rc wazero.RuntimeConfig
	switch c.Engine {
	case "", EngineAuto:
		rc = wazero.NewRuntimeConfig()
	case EngineInterpreter:
		rc = wazero.NewRuntimeConfigInterpreter()
	case EngineCompiler:
		rc = wazero.NewRuntimeConfigCompiler()
	default:
		return nil, fmt.Errorf("unknown engine %q", c.Engine)
	}
	if c.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	if c.EnableThreads {
		rc = rc.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}
	return rc, nil
}
