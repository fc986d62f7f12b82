package suite

import (
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-jsapi/builder"
	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsassert"
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

func init() {
	Register(moduleDescriptorCases("exports")...)
	Register(group("module/exports",
		Case{Name: "exports", Run: exportsOfEveryKind},
		Case{Name: "exports with empty name: function", Run: exportsEmptyName(func(b *builder.ModuleBuilder) jsassert.Descriptor {
			b.AddFunction("", builder.SigVV).AddBody().ExportFunc()
			return jsassert.Descriptor{Kind: "function", Name: "", Type: jsassert.FuncType(nil, nil)}
		})},
		Case{Name: "exports with empty name: table", Run: exportsEmptyName(func(b *builder.ModuleBuilder) jsassert.Descriptor {
			b.SetTableBounds(1)
			b.AddExportOfKind("", wasm.KindTable, 0)
			return jsassert.Descriptor{Kind: "table", Name: ""}
		})},
		Case{Name: "exports with empty name: global", Run: exportsEmptyName(func(b *builder.ModuleBuilder) jsassert.Descriptor {
			b.AddGlobal(wasm.ValI32, true).InitI32(7).ExportAs("")
			return jsassert.Descriptor{Kind: "global", Name: ""}
		})},
		Case{Name: "exports with type funcref", Run: exportsFuncref},
	)...)

	Register(moduleDescriptorCases("imports")...)
	Register(group("module/imports",
		Case{Name: "imports", Run: importsOfEveryKind},
		Case{Name: "imports with empty names", Run: importsEmptyNames},
	)...)
}

// moduleDescriptorCases covers the argument handling shared by
// WebAssembly.Module.exports and WebAssembly.Module.imports.
func moduleDescriptorCases(method string) []Case {
	check := jsassert.CheckExports
	if method == "imports" {
		check = jsassert.CheckImports
	}

	return group("module/"+method,
		Case{Name: "Missing arguments", Run: func(e *Env) error {
			_, err := e.Static("Module", method)
			return throws(errors.ClassTypeError, method+"()", err)
		}},
		Case{Name: "Non-Module arguments", Run: func(e *Env) error {
			var errs error
			for _, arg := range nonModuleValues(e) {
				_, err := e.Static("Module", method, arg)
				errs = multierr.Append(errs, throws(errors.ClassTypeError, method+"("+jsval.Format(arg)+")", err))
			}
			return errs
		}},
		Case{Name: "Branding", Run: func(e *Env) error {
			mod, err := e.Compile(builder.New())
			if err != nil {
				return err
			}
			fn, err := e.Get(e.NS, "Module", method)
			if err != nil {
				return err
			}
			var errs error
			for _, this := range nonModuleValues(e) {
				got, err := jsval.Call(fn, this, []jsval.Value{mod})
				if err != nil {
					return err
				}
				errs = multierr.Append(errs, jsassert.CheckArrayEquals(got, nil))
			}
			return errs
		}},
		Case{Name: "Return type", Run: func(e *Env) error {
			got, err := emptyModuleDescriptors(e, method)
			if err != nil {
				return err
			}
			return expectTrue("Array.isArray", jsval.IsArray(got))
		}},
		Case{Name: "Empty module", Run: func(e *Env) error {
			got, err := emptyModuleDescriptors(e, method)
			if err != nil {
				return err
			}
			return check(got, nil)
		}},
		Case{Name: "Empty module: array caching", Run: func(e *Env) error {
			mod, err := e.Compile(builder.New())
			if err != nil {
				return err
			}
			first, err := e.Static("Module", method, mod)
			if err != nil {
				return err
			}
			second, err := e.Static("Module", method, mod)
			if err != nil {
				return err
			}
			if jsval.SameValue(first, second) {
				return errors.Assertion([]string{method}, "repeated calls returned the same array")
			}
			return nil
		}},
		Case{Name: "Stray argument", Run: func(e *Env) error {
			mod, err := e.Compile(builder.New())
			if err != nil {
				return err
			}
			got, err := e.Static("Module", method, mod, jsval.NewRecord())
			if err != nil {
				return err
			}
			return check(got, nil)
		}},
	)
}

func nonModuleValues(e *Env) []jsval.Value {
	ctor, _ := e.Class("Module")
	proto, _ := e.Get(ctor, "prototype")
	return []jsval.Value{
		jsval.Undefined,
		jsval.Null,
		jsval.Bool(true),
		jsval.String(""),
		jsval.NewSymbol(""),
		jsval.Number(1),
		jsval.NewRecord(),
		ctor,
		proto,
	}
}

func emptyModuleDescriptors(e *Env, method string) (jsval.Value, error) {
	mod, err := e.Compile(builder.New())
	if err != nil {
		return nil, err
	}
	return e.Static("Module", method, mod)
}

func exportsOf(e *Env, b *builder.ModuleBuilder) (jsval.Value, error) {
	mod, err := e.Compile(b)
	if err != nil {
		return nil, err
	}
	return e.Static("Module", "exports", mod)
}

func exportsOfEveryKind(e *Env) error {
	b := builder.New()
	b.AddFunction("fn", builder.SigVV).AddBody().ExportFunc()
	b.AddFunction("fn2", builder.SigVV).AddBody().ExportFunc()
	b.SetTableBounds(1)
	b.AddExportOfKind("table", wasm.KindTable, 0)
	b.AddGlobal(wasm.ValI32, true).InitI32(7).ExportAs("global")
	b.AddGlobal(wasm.ValF64, true).InitF64(1.2).ExportAs("global2")
	b.AddMemory(0, 256).ExportAs("memory")

	got, err := exportsOf(e, b)
	if err != nil {
		return err
	}
	return jsassert.CheckExports(got, []jsassert.Descriptor{
		{Kind: "function", Name: "fn", Type: jsassert.FuncType(nil, nil)},
		{Kind: "function", Name: "fn2", Type: jsassert.FuncType(nil, nil)},
		{Kind: "table", Name: "table"},
		{Kind: "global", Name: "global"},
		{Kind: "global", Name: "global2"},
		{Kind: "memory", Name: "memory"},
	})
}

func exportsEmptyName(declare func(*builder.ModuleBuilder) jsassert.Descriptor) func(*Env) error {
	return func(e *Env) error {
		b := builder.New()
		want := declare(b)
		got, err := exportsOf(e, b)
		if err != nil {
			return err
		}
		return jsassert.CheckExports(got, []jsassert.Descriptor{want})
	}
}

func exportsFuncref(e *Env) error {
	b := builder.New()
	b.AddFunction("fn", builder.SigAA).AddBody(wasm.OpLocalGet, 0).ExportFunc()
	b.AddTable(wasm.ValFuncRef, 10, 100)
	b.AddExportOfKind("table", wasm.KindTable, 0)
	b.AddGlobal(wasm.ValFuncRef, true).InitFunc(0).ExportAs("global")

	got, err := exportsOf(e, b)
	if err != nil {
		return err
	}
	return jsassert.CheckExports(got, []jsassert.Descriptor{
		{Kind: "function", Name: "fn", Type: jsassert.FuncType([]string{"funcref"}, []string{"funcref"})},
		{Kind: "table", Name: "table", Type: jsassert.TableType("funcref", 10, 100)},
		{Kind: "global", Name: "global", Type: jsassert.GlobalType("funcref", true)},
	})
}

func importsOfEveryKind(e *Env) error {
	b := builder.New()
	b.AddImport("module", "fn", builder.SigVV)
	b.AddImport("module", "fn2", builder.SigIL)
	b.AddImportedTable("module", "table", 1, 10)
	b.AddImportedGlobal("module", "global", wasm.ValI32, false)
	b.AddImportedGlobal("module", "global2", wasm.ValF64, true)
	b.AddImportedMemory("module", "memory", 0, 128)

	mod, err := e.Compile(b)
	if err != nil {
		return err
	}
	got, err := e.Static("Module", "imports", mod)
	if err != nil {
		return err
	}
	return jsassert.CheckImports(got, []jsassert.Descriptor{
		{Module: "module", Kind: "function", Name: "fn", Type: jsassert.FuncType(nil, nil)},
		{Module: "module", Kind: "function", Name: "fn2", Type: jsassert.FuncType([]string{"i64"}, []string{"i32"})},
		{Module: "module", Kind: "table", Name: "table", Type: jsassert.TableType("funcref", 1, 10)},
		{Module: "module", Kind: "global", Name: "global", Type: jsassert.GlobalType("i32", false)},
		{Module: "module", Kind: "global", Name: "global2", Type: jsassert.GlobalType("f64", true)},
		{Module: "module", Kind: "memory", Name: "memory", Type: jsassert.MemoryType(0, 128)},
	})
}

func importsEmptyNames(e *Env) error {
	b := builder.New()
	b.AddImport("", "fn", builder.SigVV)
	b.AddImport("module", "", builder.SigVV)
	b.AddImportedGlobal("", "", wasm.ValI32, false)

	mod, err := e.Compile(b)
	if err != nil {
		return err
	}
	got, err := e.Static("Module", "imports", mod)
	if err != nil {
		return err
	}
	return jsassert.CheckImports(got, []jsassert.Descriptor{
		{Module: "", Kind: "function", Name: "fn"},
		{Module: "module", Kind: "function", Name: ""},
		{Module: "", Kind: "global", Name: ""},
	})
}
