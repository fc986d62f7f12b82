package jsassert

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
)

// TestingT is the subset of *testing.T the assertion helpers need.
type TestingT interface {
	Errorf(format string, args ...any)
}

type tHelper interface {
	Helper()
}

// report logs every failure aggregated in err and reports whether there
// were none.
func report(t TestingT, err error, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if err == nil {
		return true
	}
	prefix := messageFromArgs(msgAndArgs...)
	for _, e := range multierr.Errors(err) {
		if prefix != "" {
			t.Errorf("%s: %v", prefix, e)
		} else {
			t.Errorf("%v", e)
		}
	}
	return false
}

func messageFromArgs(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		if len(msgAndArgs) == 1 {
			return format
		}
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%+v", msgAndArgs[0])
}

// Exports asserts CheckExports.
func Exports(t TestingT, actual jsval.Value, expected []Descriptor, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return report(t, CheckExports(actual, expected), msgAndArgs...)
}

// Imports asserts CheckImports.
func Imports(t TestingT, actual jsval.Value, expected []Descriptor, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return report(t, CheckImports(actual, expected), msgAndArgs...)
}

// FunctionShape asserts CheckFunctionShape.
func FunctionShape(t TestingT, rt *jsapi.Runtime, candidate jsval.Value, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return report(t, CheckFunctionShape(rt, candidate), msgAndArgs...)
}

// FunctionType asserts CheckFunctionType.
func FunctionType(t TestingT, rt *jsapi.Runtime, candidate jsval.Value, params, results []string, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return report(t, CheckFunctionType(rt, candidate, params, results), msgAndArgs...)
}

// Throws asserts CheckThrows.
func Throws(t TestingT, class string, err error, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return report(t, CheckThrows(class, err), msgAndArgs...)
}

// ArrayEquals asserts CheckArrayEquals.
func ArrayEquals(t TestingT, actual jsval.Value, expected []jsval.Value, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return report(t, CheckArrayEquals(actual, expected), msgAndArgs...)
}
