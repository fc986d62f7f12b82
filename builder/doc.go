// Package builder assembles WebAssembly modules for conformance tests.
//
// A ModuleBuilder records imports, functions, tables, memories, globals,
// exports and element segments in declaration order and encodes them with
// ToBuffer:
//
//	b := builder.New()
//	fun := b.AddImport("m", "fun", builder.SigIV)
//	b.AddFunction("main", builder.SigIV).
//		AddBody(wasm.OpCall, byte(fun)).
//		ExportFunc()
//	buf, err := b.ToBuffer()
//
// Malformed declarations are not rejected when made. ToBuffer reports them
// as a CompileError, the same class an engine uses for an invalid binary.
package builder
