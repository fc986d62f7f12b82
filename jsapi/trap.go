package jsapi

import (
	"strings"

	"github.com/wippyai/wasm-jsapi/errors"
)

// hostThrow carries an error out of a host function. The engine recovers
// the panic and wraps it; callError unwraps it so the caller sees the
// original error.
type hostThrow struct {
	err error
}

func (h *hostThrow) Error() string { return h.err.Error() }

// Trap messages reported by the engine.
const (
	trapTableAccess  = "invalid table access"
	trapTypeMismatch = "indirect call type mismatch"
)

// callError maps an engine call failure to its JS error class. Errors
// thrown by host callables pass through unchanged.
func (rt *Runtime) callError(err error) error {
	var ht *hostThrow
	if errors.As(err, &ht) {
		return ht.err
	}
	msg := err.Error()
	rt.debugf("trap: %s", firstLine(msg))
	switch {
	case strings.Contains(msg, trapTableAccess):
		return errors.New(errors.PhaseCall, errors.KindRange).
			Cause(err).
			Detail("indirect call through a null or out of bounds table slot").
			Build()
	case strings.Contains(msg, trapTypeMismatch):
		return errors.New(errors.PhaseCall, errors.KindType).
			Cause(err).
			Detail("indirect call signature mismatch").
			Build()
	}
	return errors.RuntimeError(err, firstLine(msg))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
