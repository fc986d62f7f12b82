// Package wasm provides WebAssembly binary format parsing, validation and
// encoding for the module shapes the JS-API harness produces and inspects.
//
// The package covers the 2.0 core binary format with reference types,
// bulk-memory element encodings and shared memories. Function bodies are
// kept as raw bytes; instruction-level validation is left to the engine.
//
// # Parsing
//
//	module, err := wasm.ParseModule(data)
//	if err != nil {
//	    return err
//	}
//
// Parse with structural validation:
//
//	module, err := wasm.ParseModuleValidate(data)
//
// # Encoding
//
//	data := module.Encode()
//
// Constant expressions are stored with their trailing end opcode. The
// helpers I32ConstExpr, RefFuncExpr, RefNullExpr and friends build them.
package wasm
