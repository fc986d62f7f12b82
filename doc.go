// Package wasmjsapi is a conformance harness for the WebAssembly JavaScript
// API, run against the wazero engine.
//
// The harness reproduces the host-facing surface of the JS-API (the
// WebAssembly namespace with Module, Instance, Function, Table, Global and
// Memory) on top of a small JavaScript value model, and checks it with
// cases recovered from the upstream JS-API test suite.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmjsapi/           Root package, documentation only
//	├── wasm/            Core WASM binary model: decode, encode, validate
//	├── builder/         Programmatic module builder (WasmModuleBuilder)
//	├── jsval/           JavaScript value model and abstract operations
//	├── jsapi/           WebAssembly namespace implemented over wazero
//	├── jsassert/        Descriptor and function shape assertions
//	├── suite/           Conformance cases, runner and reports
//	├── errors/          Structured error types mapped to JS error classes
//	└── cmd/jsapi-conformance/  Command line runner
//
// # Quick Start
//
// Build a module, instantiate it and call an export:
//
//	rt, err := jsapi.New(ctx, jsapi.DefaultConfig())
//	defer rt.Close(ctx)
//
//	b := builder.New()
//	b.AddFunction("answer", builder.SigIV).AddBody(builder.I32Const(42)...).ExportFunc()
//	inst, err := b.Instantiate(ctx, rt, nil)
//	v, err := inst.ExportedFunction("answer").Call()
//
// Check what WebAssembly.Module.exports reports:
//
//	mod, err := b.Compile(ctx, rt)
//	err = jsassert.CheckExports(mod.Exports(), []jsassert.Descriptor{
//		{Name: "answer", Kind: "function", Type: jsassert.FuncType(nil, []string{"i32"})},
//	})
//
// Run the conformance suite:
//
//	runner, err := suite.NewRunner(suite.DefaultConfig())
//	results, err := runner.Run(ctx)
//	suite.WriteText(os.Stdout, results, false)
//
// # Error Handling
//
// Every failure is an *errors.Error carrying the phase it happened in and a
// kind that maps onto a JS error class (TypeError, LinkError, RuntimeError,
// ...). Values thrown by user callables pass through unchanged.
package wasmjsapi
