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

var addxy = native(func(args []jsval.Value) (jsval.Value, error) {
	x, err := jsval.ToNumber(args[0])
	if err != nil {
		return nil, err
	}
	y, err := jsval.ToNumber(args[1])
	if err != nil {
		return nil, err
	}
	return jsval.Number(x + y), nil
})

func init() {
	Register(group("function/constructor",
		Case{Name: "name", Run: functionName},
		Case{Name: "length", Run: functionLength},
		Case{Name: "Too few arguments", Run: func(e *Env) error {
			_, err := e.Construct("Function")
			errs := throws(errors.ClassTypeError, "new Function()", err)
			_, err = e.Construct("Function", signature(nil, nil))
			return multierr.Append(errs, throws(errors.ClassTypeError, "new Function(sig)", err))
		}},
		Case{Name: "Calling", Run: func(e *Env) error {
			ctor, err := e.Class("Function")
			if err != nil {
				return err
			}
			_, err = jsval.Call(ctor, jsval.Undefined, []jsval.Value{signature([]string{"i32", "i32"}, []string{"i32"}), addxy})
			return throws(errors.ClassTypeError, "Function(sig, addxy)", err)
		}},
		Case{Name: "construct with JS function", Run: func(e *Env) error {
			fun, err := e.NewFunction([]string{"i32", "i32"}, []string{"i32"}, addxy)
			if err != nil {
				return err
			}
			return jsassert.CheckFunctionShape(e.RT, fun)
		}},
		Case{Name: "fail with missing results", Run: invalidSignature(jsval.NewRecord(jsval.Prop("parameters", jsval.NewArray())), addxy)},
		Case{Name: "fail with missing parameters", Run: invalidSignature(jsval.NewRecord(jsval.Prop("results", jsval.NewArray())), addxy)},
		Case{Name: "fail with non-string parameters & results", Run: invalidSignature(jsval.NewRecord(
			jsval.Prop("parameters", jsval.NewArray(jsval.Number(1))),
			jsval.Prop("results", jsval.NewArray(jsval.Bool(true))),
		), addxy)},
		Case{Name: "fail with non-existent parameter and result type", Run: invalidSignature(signature([]string{"invalid"}, []string{"invalid"}), addxy)},
		Case{Name: "fail with non-function object", Run: invalidSignature(signature(nil, nil), jsval.Number(72))},
		Case{Name: "fail to construct with non-callable object", Run: invalidSignature(signature(nil, nil), jsval.NewRecord())},
		Case{Name: "rewrapping WebAssembly.Function with a different signature causes double conversion", Run: rewrapDoubleConversion},
	)...)

	Register(group("functions/constructor",
		Case{Name: "constructor", Run: func(e *Env) error {
			p, ok := e.NS.GetOwnProperty("Function")
			if !ok {
				return errors.Assertion([]string{"Function"}, "missing own property")
			}
			return multierr.Combine(
				expect("typeof", jsval.String("function"), jsval.String(jsval.TypeOf(p.Value))),
				expectTrue("writable", p.Writable),
				expectTrue("enumerable", p.Enumerable),
				expectTrue("configurable", p.Configurable),
			)
		}},
		Case{Name: "name", Run: functionName},
		Case{Name: "length", Run: functionLength},
		Case{Name: "Invalid descriptor argument", Run: invalidDescriptors},
		Case{Name: "Re-wrap Wasm Exported function", Run: rewrapExported},
		Case{Name: "Re-wrap Wasm function with other signature", Run: rewrapOtherSignature},
		Case{Name: "Access signature", Run: accessSignature},
		Case{Name: "Throwing signature access", Run: throwingSignatureAccess},
		Case{Name: "Success construction", Run: func(e *Env) error {
			fn, err := e.NewFunction(nil, nil, returning(jsval.Number(0)))
			if err != nil {
				return err
			}
			if err := jsassert.CheckFunctionShape(e.RT, fn); err != nil {
				return err
			}
			// No results: the callable's return value is discarded.
			got, err := jsval.Call(fn, jsval.Undefined, nil)
			if err != nil {
				return err
			}
			return expect("fn()", jsval.Undefined, got)
		}},
		Case{Name: "Function type", Run: func(e *Env) error {
			var errs error
			for _, tc := range signatureCases {
				fn, err := e.NewFunction(tc.params, tc.results, returning(jsval.Number(0)))
				if err != nil {
					return err
				}
				errs = multierr.Append(errs, jsassert.CheckFunctionType(e.RT, fn, tc.params, tc.results))
			}
			return errs
		}},
	)...)
}

var signatureCases = []struct {
	sig             wasm.FuncType
	params, results []string
}{
	{builder.SigVV, nil, nil},
	{builder.SigVI, []string{"i32"}, nil},
	{builder.SigIL, []string{"i64"}, []string{"i32"}},
	{builder.SigVDDI, []string{"f64", "f64", "i32"}, nil},
	{builder.SigFF, []string{"f32"}, []string{"f32"}},
}

func functionName(e *Env) error {
	ctor, err := e.Class("Function")
	if err != nil {
		return err
	}
	return jsassert.CheckFunctionName(ctor, "Function")
}

func functionLength(e *Env) error {
	ctor, err := e.Class("Function")
	if err != nil {
		return err
	}
	return jsassert.CheckFunctionLength(ctor, 2)
}

func invalidSignature(desc, fn jsval.Value) func(*Env) error {
	return func(e *Env) error {
		_, err := e.Construct("Function", desc, fn)
		return throws(errors.ClassTypeError, "new Function("+jsval.Format(desc)+", "+jsval.Format(fn)+")", err)
	}
}

func invalidDescriptors(e *Env) error {
	longArr := jsval.NewArrayWithLength(1000 + 1)
	invalid := []jsval.Value{
		jsval.Undefined,
		jsval.Null,
		jsval.Bool(false),
		jsval.Bool(true),
		jsval.String(""),
		jsval.String("test"),
		jsval.NewSymbol(""),
		jsval.Number(1),
		jsval.Number(math.NaN()),
		jsval.NewRecord(),
		jsval.NewRecord(jsval.Prop("parameters", jsval.NewArray())),
		signature([]string{"foo"}, nil),
		signature(nil, []string{"foo"}),
		jsval.NewRecord(jsval.Prop("parameters", longArr), jsval.Prop("results", jsval.NewArray())),
		jsval.NewRecord(jsval.Prop("parameters", jsval.NewArray()), jsval.Prop("results", longArr)),
	}
	zero := returning(jsval.Number(0))

	var errs error
	for _, desc := range invalid {
		errs = multierr.Append(errs, invalidSignature(desc, zero)(e))
	}
	valid := signature(nil, nil)
	_, err := e.Construct("Function", valid)
	errs = multierr.Append(errs, throws(errors.ClassTypeError, "new Function(valid)", err))
	return multierr.Append(errs, invalidSignature(valid, jsval.NewRecord())(e))
}

func rewrapExported(e *Env) error {
	b := builder.New()
	b.AddFunction("func1", builder.SigVI).AddBody().ExportFunc()
	b.AddFunction("func2", builder.SigVV).AddBody().ExportFunc()
	inst, err := e.Instantiate(b, jsval.NewRecord())
	if err != nil {
		return err
	}

	_, err = e.Construct("Function", signature(nil, nil), inst.Export("func1"))
	errs := throws(errors.ClassTypeError, "new Function(sig, exports.func1)", err)

	fn, err := e.NewFunction(nil, nil, inst.Export("func2"))
	if err != nil {
		return multierr.Append(errs, err)
	}
	return multierr.Append(errs, jsassert.CheckFunctionShape(e.RT, fn))
}

// rewrapOtherSignature wraps a host function under a different signature.
// The runtime either composes both coercions or, with strict rewrapping,
// rejects the mismatch.
func rewrapOtherSignature(e *Env) error {
	fn, err := e.NewFunction(nil, nil, returning(jsval.Number(0)))
	if err != nil {
		return err
	}
	_, err = e.Construct("Function", signature([]string{"i32"}, nil), fn)
	var errs error
	if e.RT.Config().StrictRewrap {
		errs = throws(errors.ClassTypeError, "new Function({parameters: [i32]}, fn)", err)
	} else if err != nil {
		errs = err
	}

	same, err := e.NewFunction(nil, nil, fn)
	if err != nil {
		return multierr.Append(errs, err)
	}
	return multierr.Append(errs, jsassert.CheckFunctionShape(e.RT, same))
}

func accessSignature(e *Env) error {
	two := jsval.NewRecord(jsval.Prop("toString", jsval.NewFunction("toString", 0, func(jsval.Value, []jsval.Value) (jsval.Value, error) {
		return jsval.String("2"), nil
	})))
	var log []jsval.Value
	logger := jsval.NewProxy(jsval.NewRecord(
		jsval.Prop("length", two),
		jsval.Prop("0", jsval.String("i32")),
		jsval.Prop("1", jsval.String("f32")),
	), func(obj *jsval.Object, key string, receiver jsval.Value) (jsval.Value, error) {
		log = append(log, jsval.String(key))
		return jsval.ReflectGet(obj, key, receiver)
	})

	fun, err := e.Construct("Function", jsval.NewRecord(
		jsval.Prop("parameters", logger),
		jsval.Prop("results", jsval.NewArray()),
	), returning(jsval.Number(0)))
	if err != nil {
		return err
	}
	typ, err := e.Static("Function", "type", fun)
	if err != nil {
		return err
	}
	params, err := e.Get(typ, "parameters")
	if err != nil {
		return err
	}
	return multierr.Combine(
		jsassert.CheckArrayEquals(params, []jsval.Value{jsval.String("i32"), jsval.String("f32")}),
		jsassert.CheckArrayEquals(jsval.NewArray(log...), []jsval.Value{jsval.String("length"), jsval.String("0"), jsval.String("1")}),
	)
}

func throwingSignatureAccess(e *Env) error {
	throw1 := jsval.NewObject(jsval.ObjectPrototype)
	if err := jsval.DefineGetter(throw1, "length", func(jsval.Value) (jsval.Value, error) {
		return nil, jsval.Throw(jsval.NewError("cannot see length"))
	}); err != nil {
		return err
	}
	throw2 := jsval.NewRecord(jsval.Prop("length", jsval.NewRecord(
		jsval.Prop("toString", jsval.NewFunction("toString", 0, func(jsval.Value, []jsval.Value) (jsval.Value, error) {
			return nil, jsval.Throw(jsval.NewError("no length"))
		})),
	)))
	throw3 := jsval.NewRecord(jsval.Prop("length", jsval.String("not a length value, this also throws")))

	cases := []struct {
		list  jsval.Value
		class string
	}{
		{throw1, errors.ClassError},
		{throw2, errors.ClassError},
		{throw3, errors.ClassTypeError},
	}
	var errs error
	for _, key := range []string{"parameters", "results"} {
		for _, tc := range cases {
			desc := signature(nil, nil)
			if err := desc.Set(key, tc.list); err != nil {
				return err
			}
			_, err := e.Construct("Function", desc)
			errs = multierr.Append(errs, throws(tc.class, key+": "+jsval.Format(tc.list), err))
		}
	}
	return errs
}

func rewrapDoubleConversion(e *Env) error {
	if e.RT.Config().StrictRewrap {
		return Skip("strict rewrapping rejects signature changes")
	}
	var errs error
	rewrap := func(initial, rewrapped signatureCase, args []jsval.Value, ret jsval.Value, check func(seen []jsval.Value, got jsval.Value) error) error {
		var seen []jsval.Value
		jsFn := native(func(args []jsval.Value) (jsval.Value, error) {
			seen = append([]jsval.Value(nil), args...)
			return ret, nil
		})
		fun, err := e.NewFunction(initial.params, initial.results, jsFn)
		if err != nil {
			return err
		}
		wrapped, err := e.NewFunction(rewrapped.params, rewrapped.results, fun)
		if err != nil {
			return err
		}
		got, err := jsval.Call(wrapped, jsval.Undefined, args)
		if err != nil {
			return err
		}
		return check(seen, got)
	}
	i32 := []string{"i32"}

	// less params
	errs = multierr.Append(errs, rewrap(
		signatureCase{[]string{"i32", "i32"}, i32},
		signatureCase{[]string{"f32"}, i32},
		[]jsval.Value{jsval.Number(1.2)}, jsval.Number(0),
		func(seen []jsval.Value, got jsval.Value) error {
			return multierr.Combine(
				expect("less params: args.length", jsval.Number(2), jsval.Number(len(seen))),
				expect("less params: args[0]", jsval.Number(1), first(seen)),
				expect("less params: result", jsval.Number(0), got),
			)
		}))

	// more params
	errs = multierr.Append(errs, rewrap(
		signatureCase{[]string{"f32"}, i32},
		signatureCase{[]string{"i32", "i32"}, i32},
		[]jsval.Value{jsval.Number(1.2), jsval.Number(2)}, jsval.Number(0),
		func(seen []jsval.Value, got jsval.Value) error {
			return multierr.Combine(
				expect("more params: args.length", jsval.Number(1), jsval.Number(len(seen))),
				expect("more params: args[0]", jsval.Number(1), first(seen)),
				expect("more params: result", jsval.Number(0), got),
			)
		}))

	// return conversion
	errs = multierr.Append(errs, rewrap(
		signatureCase{[]string{"f32"}, []string{"f32"}},
		signatureCase{i32, i32},
		[]jsval.Value{jsval.Number(1)}, jsval.Number(1.2),
		func(_ []jsval.Value, got jsval.Value) error {
			return expect("return conversion: result", jsval.Number(1), got)
		}))

	// error on conversion
	err := rewrap(
		signatureCase{i32, i32},
		signatureCase{[]string{"i64"}, i32},
		[]jsval.Value{jsval.NewBigInt(1)}, jsval.Number(1.2),
		func([]jsval.Value, jsval.Value) error { return nil })
	errs = multierr.Append(errs, throws(errors.ClassTypeError, "i64 to i32 rewrap", err))

	errs = multierr.Append(errs, rewrap(
		signatureCase{[]string{"i32", "externref"}, []string{"f32"}},
		signatureCase{[]string{"f32"}, i32},
		[]jsval.Value{jsval.Number(math.NaN()), jsval.NewRecord()}, jsval.Number(math.NaN()),
		func(seen []jsval.Value, got jsval.Value) error {
			var second jsval.Value = jsval.Undefined
			if len(seen) > 1 {
				second = seen[1]
			}
			return multierr.Combine(
				expect("externref: args.length", jsval.Number(2), jsval.Number(len(seen))),
				expect("externref: args[0]", jsval.Number(0), first(seen)),
				expect("externref: args[1]", jsval.Undefined, second),
				expect("externref: result", jsval.Number(0), got),
			)
		}))
	return errs
}

type signatureCase struct {
	params, results []string
}

func first(values []jsval.Value) jsval.Value {
	if len(values) == 0 {
		return jsval.Undefined
	}
	return values[0]
}
