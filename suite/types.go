package suite

import (
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/jsassert"
	"github.com/wippyai/wasm-jsapi/jsval"
)

type limitsCase struct {
	name     string
	min      uint32
	max      *uint32
	elemName string
}

func bound(n uint32) *uint32 { return &n }

func init() {
	var tables []Case
	for _, elem := range []string{"anyfunc", "funcref"} {
		for _, tc := range []limitsCase{
			{name: "Zero initial, no maximum", min: 0},
			{name: "Non-zero initial, no maximum", min: 5},
			{name: "Zero maximum", min: 0, max: bound(0)},
			{name: "Non-zero maximum", min: 0, max: bound(5)},
		} {
			tc.elemName = elem
			tables = append(tables, Case{Name: elem + ", " + tc.name, Run: tableType(tc)})
		}
	}
	Register(group("table/type", tables...)...)

	var globals []Case
	for _, value := range []string{"i32", "i64", "f32", "f64", "externref", "anyfunc", "funcref"} {
		for _, mutable := range []bool{false, true} {
			name := value + ", immutable"
			if mutable {
				name = value + ", mutable"
			}
			globals = append(globals, Case{Name: name, Run: globalType(value, mutable)})
		}
	}
	Register(group("global/type", globals...)...)

	Register(group("memory/type",
		Case{Name: "Zero initial, no maximum", Run: memoryType(limitsCase{min: 0}, false)},
		Case{Name: "Non-zero initial, no maximum", Run: memoryType(limitsCase{min: 5}, false)},
		Case{Name: "Zero maximum", Run: memoryType(limitsCase{min: 0, max: bound(0)}, false)},
		Case{Name: "Non-zero maximum", Run: memoryType(limitsCase{min: 1, max: bound(5)}, false)},
		Case{Name: "Shared", Run: memoryType(limitsCase{min: 1, max: bound(2)}, true)},
	)...)
}

func (tc limitsCase) maximum() jsval.Value {
	if tc.max == nil {
		return jsval.Undefined
	}
	return jsval.Number(*tc.max)
}

func (tc limitsCase) entries() []jsval.Entry {
	entries := []jsval.Entry{jsval.Prop("minimum", jsval.Number(tc.min))}
	if tc.max != nil {
		entries = append(entries, jsval.Prop("maximum", jsval.Number(*tc.max)))
	}
	return entries
}

func tableType(tc limitsCase) func(*Env) error {
	return func(e *Env) error {
		desc := jsval.NewRecord(append(tc.entries(), jsval.Prop("element", jsval.String(tc.elemName)))...)
		table, err := e.Construct("Table", desc)
		if err != nil {
			return err
		}
		typ, err := e.Invoke(table, "type")
		if err != nil {
			return err
		}
		return multierr.Combine(
			jsassert.CheckProperty(typ, "minimum", jsval.Number(tc.min)),
			jsassert.CheckProperty(typ, "maximum", tc.maximum()),
			jsassert.CheckProperty(typ, "element", jsval.String("funcref")),
		)
	}
}

func globalType(value string, mutable bool) func(*Env) error {
	return func(e *Env) error {
		desc := jsval.NewRecord(
			jsval.Prop("value", jsval.String(value)),
			jsval.Prop("mutable", jsval.Bool(mutable)),
		)
		global, err := e.Construct("Global", desc)
		if err != nil {
			return err
		}
		typ, err := e.Invoke(global, "type")
		if err != nil {
			return err
		}
		want := value
		if want == "anyfunc" {
			want = "funcref"
		}
		return jsassert.CheckType(typ, jsassert.GlobalType(want, mutable))
	}
}

func memoryType(tc limitsCase, shared bool) func(*Env) error {
	return func(e *Env) error {
		if shared && !e.RT.Config().EnableThreads {
			return Skip("shared memory needs threads")
		}
		desc := jsval.NewRecord(append(tc.entries(), jsval.Prop("shared", jsval.Bool(shared)))...)
		memory, err := e.Construct("Memory", desc)
		if err != nil {
			return err
		}
		typ, err := e.Invoke(memory, "type")
		if err != nil {
			return err
		}
		return multierr.Combine(
			jsassert.CheckProperty(typ, "minimum", jsval.Number(tc.min)),
			jsassert.CheckProperty(typ, "maximum", tc.maximum()),
			jsassert.CheckProperty(typ, "shared", jsval.Bool(shared)),
		)
	}
}
