// Package jsapi implements the WebAssembly JavaScript interface on top of
// wazero.
//
// A Runtime owns a wazero runtime and a WebAssembly namespace object whose
// constructors (Module, Instance, Function, Table, Global, Memory) behave
// like their JS counterparts: descriptors are read in JS-API order,
// arguments are coerced with the jsval conversions and failures are
// *errors.Error values classed as TypeError, RangeError, LinkError,
// CompileError or RuntimeError.
//
//	rt, err := jsapi.New(ctx, jsapi.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer rt.Close(ctx)
//
//	fn, err := rt.NewFunction(ctx, desc, callable)
//	inst, err := rt.Instantiate(ctx, mod, importObject)
//
// # Providers
//
// wazero links modules by name and has no standalone tables, globals or
// memories. Each such object therefore lives in a small synthesized
// provider module, and Instantiate rewrites the imports of a module to point
// at the providers that back the values of the import object. Local tables
// of an instance become imports from fresh providers as well, which lets a
// Table observe every write an instance makes.
//
// # References
//
// Function references cross the engine boundary as raw bits. The runtime
// remembers which Function each raw value belongs to, so a function stored
// into a table or global comes back as the same object. References the
// runtime never saw are returned as opaque FuncRef objects.
package jsapi
