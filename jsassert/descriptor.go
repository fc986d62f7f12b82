package jsassert

import (
	"strconv"

	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsval"
)

// Descriptor is an expected export or import descriptor. Module is only
// compared by the import checks. A nil Type skips the type member.
type Descriptor struct {
	Module string
	Name   string
	Kind   string
	Type   *Type
}

// Type lists the members of a type reflection to compare. Only members that
// are set are checked: nil slices and pointers and empty strings are
// skipped, so a partial Type checks a partial descriptor.
type Type struct {
	Parameters []string
	Results    []string
	Value      string
	Mutable    *bool
	Minimum    *uint32
	Maximum    *uint32
	Element    string
	Shared     *bool
}

// FuncType expects a function type with exactly params and results.
func FuncType(params, results []string) *Type {
	return &Type{Parameters: nonNil(params), Results: nonNil(results)}
}

// TableType expects a table type. maximum is checked when given.
func TableType(element string, minimum uint32, maximum ...uint32) *Type {
	t := &Type{Element: element, Minimum: &minimum}
	if len(maximum) > 0 {
		t.Maximum = &maximum[0]
	}
	return t
}

// GlobalType expects a global type.
func GlobalType(value string, mutable bool) *Type {
	return &Type{Value: value, Mutable: &mutable}
}

// MemoryType expects a memory type. maximum is checked when given.
func MemoryType(minimum uint32, maximum ...uint32) *Type {
	t := &Type{Minimum: &minimum}
	if len(maximum) > 0 {
		t.Maximum = &maximum[0]
	}
	return t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CheckExports checks that actual is an extensible Array of descriptors
// matching expected in order.
func CheckExports(actual jsval.Value, expected []Descriptor) error {
	return checkDescriptors([]string{"exports"}, actual, expected, false)
}

// CheckImports is CheckExports for import descriptors, which also carry the
// module name.
func CheckImports(actual jsval.Value, expected []Descriptor) error {
	return checkDescriptors([]string{"imports"}, actual, expected, true)
}

// CheckExportDescriptor checks one export descriptor: an extensible plain
// object whose name, kind and type are writable, enumerable and
// configurable data properties.
func CheckExportDescriptor(actual jsval.Value, expected Descriptor) error {
	return checkDescriptor(nil, actual, expected, false)
}

// CheckImportDescriptor checks one import descriptor.
func CheckImportDescriptor(actual jsval.Value, expected Descriptor) error {
	return checkDescriptor(nil, actual, expected, true)
}

func checkDescriptors(path []string, actual jsval.Value, expected []Descriptor, imports bool) error {
	obj, errs := checkArray(path, actual)
	if obj == nil {
		return errs
	}
	items, err := jsval.ReadArrayLike(obj, maxArrayLength)
	if err != nil {
		return err
	}
	if len(items) != len(expected) {
		return multierr.Append(errs, errors.Mismatch(at(path, "length"), len(expected), len(items)))
	}
	for i, item := range items {
		errs = multierr.Append(errs, checkDescriptor(at(path, strconv.Itoa(i)), item, expected[i], imports))
	}
	return errs
}

func checkDescriptor(path []string, actual jsval.Value, expected Descriptor, imports bool) error {
	obj, ok := jsval.AsObject(actual)
	if !ok {
		return errors.Assertion(path, "descriptor is %s, not an object", jsval.Format(actual))
	}
	var errs error
	if obj.Proto() != jsval.ObjectPrototype {
		errs = multierr.Append(errs, errors.Assertion(at(path, "prototype"), "prototype is not Object.prototype"))
	}
	if !obj.Extensible() {
		errs = multierr.Append(errs, errors.Assertion(path, "descriptor is not extensible"))
	}
	if imports {
		errs = multierr.Append(errs, checkDataProperty(path, obj, "module", jsval.String(expected.Module)))
	}
	errs = multierr.Append(errs, checkDataProperty(path, obj, "name", jsval.String(expected.Name)))
	errs = multierr.Append(errs, checkDataProperty(path, obj, "kind", jsval.String(expected.Kind)))
	if expected.Type != nil {
		typ, err := dataProperty(path, obj, "type")
		errs = multierr.Append(errs, err)
		if typ != nil {
			errs = multierr.Append(errs, checkType(at(path, "type"), typ, expected.Type))
		}
	}
	return errs
}

// CheckType compares the members of a type reflection that are set in
// expected.
func CheckType(actual jsval.Value, expected *Type) error {
	return checkType([]string{"type"}, actual, expected)
}

func checkType(path []string, actual jsval.Value, expected *Type) error {
	if _, ok := jsval.AsObject(actual); !ok {
		return errors.Assertion(path, "type is %s, not an object", jsval.Format(actual))
	}
	var errs error
	member := func(key string, want jsval.Value) {
		errs = multierr.Append(errs, checkProperty(path, actual, key, want))
	}
	if expected.Parameters != nil {
		errs = multierr.Append(errs, checkStringArray(at(path, "parameters"), actual, "parameters", expected.Parameters))
	}
	if expected.Results != nil {
		errs = multierr.Append(errs, checkStringArray(at(path, "results"), actual, "results", expected.Results))
	}
	if expected.Value != "" {
		member("value", jsval.String(expected.Value))
	}
	if expected.Mutable != nil {
		member("mutable", jsval.Bool(*expected.Mutable))
	}
	if expected.Minimum != nil {
		member("minimum", jsval.Number(*expected.Minimum))
	}
	if expected.Maximum != nil {
		member("maximum", jsval.Number(*expected.Maximum))
	}
	if expected.Element != "" {
		member("element", jsval.String(expected.Element))
	}
	if expected.Shared != nil {
		member("shared", jsval.Bool(*expected.Shared))
	}
	return errs
}

func checkStringArray(path []string, obj jsval.Value, key string, expected []string) error {
	v, err := jsval.Get(obj, key)
	if err != nil {
		return err
	}
	want := make([]jsval.Value, len(expected))
	for i, s := range expected {
		want[i] = jsval.String(s)
	}
	return checkArrayEquals(path, v, want)
}

// at returns path extended by key without aliasing path's backing array.
func at(path []string, key ...string) []string {
	out := make([]string, 0, len(path)+len(key))
	return append(append(out, path...), key...)
}
