package jsval

// Thrown carries an arbitrary value thrown by user code. It is never
// wrapped on its way back to the caller, and its error class is Error.
type Thrown struct {
	Value Value
}

// Throw returns v as an error.
func Throw(v Value) error {
	return &Thrown{Value: v}
}

func (t *Thrown) Error() string {
	return "uncaught " + Format(t.Value)
}
