// Package jsassert compares JS-API objects against expected shapes.
//
// The Check functions return nil on success and otherwise an error holding
// every failed comparison, each an *errors.Error of kind assertion_failed
// whose Path names the offending member (exports.1.type.parameters, ...).
// Individual failures are recovered with multierr.Errors. Errors thrown
// while reading the actual object, such as a throwing getter, are returned
// unchanged.
//
// The functions without the Check prefix wrap them for tests:
//
//	jsassert.Exports(t, mod.Exports(), []jsassert.Descriptor{
//		{Name: "fn", Kind: "function", Type: jsassert.FuncType(nil, nil)},
//		{Name: "table", Kind: "table"},
//	})
package jsassert
