package suite

import (
	"fmt"
	"os"
	"path"

	"github.com/goccy/go-yaml"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
)

// Config selects the cases to run and the runtime they run against.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime"`

	// Include lists path.Match patterns. A pattern selects a case when it
	// matches its group (module/exports) or its ID (module/exports/Empty
	// module). Empty includes everything.
	Include []string `yaml:"include"`

	// Exclude lists patterns removed after Include is applied.
	Exclude []string `yaml:"exclude"`

	// FailFast stops the run at the first failure.
	FailFast bool `yaml:"fail_fast"`
}

// RuntimeConfig is the YAML form of jsapi.Config.
type RuntimeConfig struct {
	Engine             string `yaml:"engine"`
	MemoryLimitPages   uint32 `yaml:"memory_limit_pages"`
	MaxSignatureLength int    `yaml:"max_signature_length"`
	Threads            *bool  `yaml:"threads"`
	StrictRewrap       bool   `yaml:"strict_rewrap"`
}

// DefaultConfig runs every case on the default runtime.
func DefaultConfig() Config {
	return Config{Runtime: RuntimeConfig{Engine: string(jsapi.EngineAuto)}}
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(file string) (Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalid, err, "read config")
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration. Unknown keys are errors.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField()); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalid, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the engine name and the filter patterns.
func (c Config) Validate() error {
	switch jsapi.EngineKind(c.Runtime.Engine) {
	case "", jsapi.EngineAuto, jsapi.EngineInterpreter, jsapi.EngineCompiler:
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown engine %q", c.Runtime.Engine))
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("bad pattern %q: %v", p, err))
		}
	}
	return nil
}

// JSAPI converts the runtime section to a jsapi.Config.
func (r RuntimeConfig) JSAPI() jsapi.Config {
	cfg := jsapi.DefaultConfig()
	if r.Engine != "" {
		cfg.Engine = jsapi.EngineKind(r.Engine)
	}
	cfg.MemoryLimitPages = r.MemoryLimitPages
	if r.MaxSignatureLength > 0 {
		cfg.MaxSignatureLength = r.MaxSignatureLength
	}
	if r.Threads != nil {
		cfg.EnableThreads = *r.Threads
	}
	cfg.StrictRewrap = r.StrictRewrap
	return cfg
}

// Selected reports whether a case passes the include and exclude filters.
func (c Config) Selected(cs Case) bool {
	if len(c.Include) > 0 && !matchAny(c.Include, cs) {
		return false
	}
	return !matchAny(c.Exclude, cs)
}

func matchAny(patterns []string, cs Case) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, cs.Group); ok {
			return true
		}
		if ok, _ := path.Match(p, cs.ID()); ok {
			return true
		}
	}
	return false
}
