// Package jsval models the host values that cross the WebAssembly JS-API
// boundary.
//
// Values are undefined, null, booleans, IEEE 754 numbers, strings, BigInts,
// symbols and objects. Objects carry ordered own properties with attribute
// flags, a prototype, an extensible flag, optional call and construct
// behaviour and an optional proxy get trap, which is enough to observe the
// property read order of exotic arguments.
//
// The conversion operations (ToPrimitive, ToNumber, ToString, ToInt32,
// ToBigInt64, ReadArrayLike, ...) follow the ECMAScript abstract operations
// of the same names. Errors returned by user callables and getters are
// propagated unchanged; errors raised by the conversions themselves are
// *errors.Error values of kind type_error or syntax_error.
package jsval
