package suite

import (
	"math"

	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/builder"
	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsassert"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

func init() {
	Register(group("functions/module",
		Case{Name: "Call exported function", Run: callExported},
		Case{Name: "Exported function type", Run: exportedFunctionType},
		Case{Name: "Import function type", Run: importFunctionType},
		Case{Name: "Function constructed coercions", Run: constructedCoercions},
		Case{Name: "Function Table set", Run: functionTableSet},
		Case{Name: "Function Import matching a signature", Run: importMatching},
		Case{Name: "Function Import mismatching a signature", Run: importMismatching},
		Case{Name: "Function Import module import re-export", Run: importReExport},
		Case{Name: "Call_indirect js function", Run: callIndirectHost},
	)...)
}

func callExported(e *Env) error {
	b := builder.New()
	b.AddFunction("fun", builder.SigVV).AddBody().ExportFunc()
	inst, err := e.Instantiate(b, jsval.NewRecord())
	if err != nil {
		return err
	}
	fun := inst.Export("fun")
	if err := jsassert.CheckFunctionShape(e.RT, fun); err != nil {
		return err
	}
	got, err := jsval.Call(fun, jsval.Undefined, nil)
	if err != nil {
		return err
	}
	return expect("fun()", jsval.Undefined, got)
}

func exportedFunctionType(e *Env) error {
	var errs error
	for _, tc := range signatureCases {
		b := builder.New()
		b.AddFunction("fun", tc.sig).AddBody(wasm.OpUnreachable).ExportFunc()
		inst, err := e.Instantiate(b, jsval.NewRecord())
		if err != nil {
			return err
		}
		fun := inst.Export("fun")
		errs = multierr.Append(errs, jsassert.CheckFunctionShape(e.RT, fun))
		errs = multierr.Append(errs, jsassert.CheckFunctionType(e.RT, fun, tc.params, tc.results))

		exports, err := exportsOf(e, b)
		if err != nil {
			return err
		}
		errs = multierr.Append(errs, jsassert.CheckExports(exports, []jsassert.Descriptor{
			{Kind: "function", Name: "fun", Type: jsassert.FuncType(tc.params, tc.results)},
		}))
	}
	return errs
}

func importFunctionType(e *Env) error {
	var errs error
	for _, tc := range signatureCases {
		b := builder.New()
		b.AddImport("m", "fun", tc.sig)
		mod, err := e.Compile(b)
		if err != nil {
			return err
		}
		imports, err := e.Static("Module", "imports", mod)
		if err != nil {
			return err
		}
		errs = multierr.Append(errs, jsassert.CheckImports(imports, []jsassert.Descriptor{
			{Module: "m", Kind: "function", Name: "fun", Type: jsassert.FuncType(tc.params, tc.results)},
		}))
	}
	return errs
}

func constructedCoercions(e *Env) error {
	method := func(name string, v jsval.Value) jsval.Value {
		return jsval.NewRecord(jsval.Prop(name, returning(v)))
	}
	obj1 := method("valueOf", jsval.Number(123.45))
	obj2 := method("toString", jsval.String("456"))
	// gc() returns undefined.
	gcer := method("valueOf", jsval.Undefined)
	nan := jsval.Number(math.NaN())

	cases := []struct {
		params    []string
		args      []jsval.Value
		wantArgs  []jsval.Value
		results   []string
		ret, want jsval.Value
	}{
		{
			params: []string{"i32"}, args: []jsval.Value{jsval.Number(23.5)}, wantArgs: []jsval.Value{jsval.Number(23)},
			results: []string{"i32"}, ret: jsval.Number(42.7), want: jsval.Number(42),
		},
		{
			params: []string{"i32", "f32", "f64"}, args: []jsval.Value{obj1, obj2, jsval.String("789")},
			wantArgs: []jsval.Value{jsval.Number(123), jsval.Number(456), jsval.Number(789)},
			ret:      jsval.Undefined, want: jsval.Undefined,
		},
		{
			params: []string{"i32", "f32", "f64"}, args: []jsval.Value{gcer, jsval.NewRecord(), jsval.String("xyz")},
			wantArgs: []jsval.Value{jsval.Number(0), nan, nan},
			results:  []string{"f64"}, ret: gcer, want: nan,
		},
	}

	var errs error
	for i, tc := range cases {
		var seen []jsval.Value
		fun, err := e.NewFunction(tc.params, tc.results, native(func(args []jsval.Value) (jsval.Value, error) {
			seen = append([]jsval.Value(nil), args...)
			return tc.ret, nil
		}))
		if err != nil {
			return err
		}
		got, err := jsval.Call(fun, jsval.Undefined, tc.args)
		if err != nil {
			return err
		}
		errs = multierr.Append(errs, jsassert.CheckArrayEquals(jsval.NewArray(seen...), tc.wantArgs))
		errs = multierr.Append(errs, expect("result "+jsval.NumberToString(float64(i)), tc.want, got))
	}
	return errs
}

func functionTableSet(e *Env) error {
	fun, err := e.NewFunction(nil, []string{"i64"}, returning(jsval.NewBigInt(0)))
	if err != nil {
		return err
	}
	table, err := e.Construct("Table", jsval.NewRecord(
		jsval.Prop("element", jsval.String("anyfunc")),
		jsval.Prop("initial", jsval.Number(2)),
	))
	if err != nil {
		return err
	}

	b := builder.New()
	tableIndex := b.AddImportedTable("m", "table", 2)
	sigIndex := b.AddType(builder.SigLV)
	if _, err := e.Invoke(table, "set", jsval.Number(0), fun); err != nil {
		return err
	}
	b.AddFunction("main", builder.SigVI).
		AddBody(wasm.OpLocalGet, 0, wasm.OpCallIndirect, byte(sigIndex), byte(tableIndex), wasm.OpDrop).
		ExportFunc()
	inst, err := e.Instantiate(b, importObject("m", jsval.Prop("table", table)))
	if err != nil {
		return err
	}
	main := inst.Export("main")

	// main has no results, so a successful call returns undefined.
	got, err := jsval.Call(main, jsval.Undefined, []jsval.Value{jsval.Number(0)})
	if err != nil {
		return err
	}
	errs := expect("main(0)", jsval.Undefined, got)

	_, err = jsval.Call(main, jsval.Undefined, []jsval.Value{jsval.Number(1)})
	errs = multierr.Append(errs, throws(errors.ClassRangeError, "main(1)", err))

	if _, err := e.Invoke(table, "set", jsval.Number(1), fun); err != nil {
		return multierr.Append(errs, err)
	}
	got, err = jsval.Call(main, jsval.Undefined, []jsval.Value{jsval.Number(1)})
	if err != nil {
		return multierr.Append(errs, err)
	}
	return multierr.Append(errs, expect("main(1)", jsval.Undefined, got))
}

func callMain(b *builder.ModuleBuilder, fun uint32) {
	b.AddFunction("main", builder.SigIV).AddBody(wasm.OpCall, byte(fun)).ExportFunc()
}

func importMatching(e *Env) error {
	fun, err := e.NewFunction(nil, []string{"i32"}, returning(jsval.Number(7)))
	if err != nil {
		return err
	}
	b := builder.New()
	callMain(b, b.AddImport("m", "fun", builder.SigIV))
	inst, err := e.Instantiate(b, importObject("m", jsval.Prop("fun", fun)))
	if err != nil {
		return err
	}
	got, err := jsval.Call(inst.Export("main"), jsval.Undefined, nil)
	if err != nil {
		return err
	}
	return expect("main()", jsval.Number(7), got)
}

func importMismatching(e *Env) error {
	sigs := []signatureCase{
		{nil, nil},
		{[]string{"i32"}, nil},
		{nil, []string{"f32"}},
	}
	var errs error
	for i, s := range sigs {
		fun, err := e.NewFunction(s.params, s.results, returning(jsval.Number(7+i)))
		if err != nil {
			return err
		}
		b := builder.New()
		callMain(b, b.AddImport("m", "fun", builder.SigIV))
		_, err = e.Instantiate(b, importObject("m", jsval.Prop("fun", fun)))
		errs = multierr.Append(errs, throws(errors.ClassLinkError, "fun"+jsval.NumberToString(float64(i+1)), err))
	}
	return errs
}

func importReExport(e *Env) error {
	fun, err := e.NewFunction(nil, []string{"i32"}, returning(jsval.Number(7)))
	if err != nil {
		return err
	}
	b := builder.New()
	funIndex := b.AddImport("m", "fun", builder.SigIV)
	b.AddExport("fun1", funIndex)
	b.AddExport("fun2", funIndex)
	inst, err := e.Instantiate(b, importObject("m", jsval.Prop("fun", fun)))
	if err != nil {
		return err
	}
	return multierr.Combine(
		expect("exports.fun2", inst.Export("fun1"), inst.Export("fun2")),
		expect("exports.fun1", fun, inst.Export("fun1")),
	)
}

func callIndirectHost(e *Env) error {
	imp, err := e.NewFunction([]string{"i32", "i32", "i32"}, []string{"i32"}, native(func(args []jsval.Value) (jsval.Value, error) {
		if jsval.ToBoolean(args[2]) {
			return args[0], nil
		}
		return args[1], nil
	}))
	if err != nil {
		return err
	}

	b := builder.New()
	sigIndex := b.AddType(builder.SigIIII)
	funIndex := b.AddImport("m", "imp", builder.SigIIII)
	b.AddTable(wasm.ValFuncRef, 1, 1)
	b.AddActiveElementSegment(0, builder.I32Const(0), [][]byte{builder.RefFunc(funIndex)}, wasm.ValFuncRef)
	body := append(builder.I32Const(-2), wasm.OpI32Const, 3, wasm.OpLocalGet, 0,
		wasm.OpI32Const, 0, wasm.OpCallIndirect, byte(sigIndex), 0)
	b.AddFunction("rc", builder.SigII).AddBody(body...).ExportFunc()

	inst, err := e.Instantiate(b, importObject("m", jsval.Prop("imp", imp)))
	if err != nil {
		return err
	}
	rc := inst.Export("rc")
	var errs error
	for _, tc := range []struct{ arg, want float64 }{{1, -2}, {0, 3}} {
		got, err := jsval.Call(rc, jsval.Undefined, []jsval.Value{jsval.Number(tc.arg)})
		if err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, expect("rc("+jsval.NumberToString(tc.arg)+")", jsval.Number(tc.want), got))
	}
	return errs
}
