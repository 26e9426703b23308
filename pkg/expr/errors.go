package expr

import "fmt"

// ParseError reports a malformed expression
type ParseError struct {
	// Offset is the byte offset of the failure in the parsed text
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// EvalError reports a failure while evaluating an expression
type EvalError struct {
	Expr string
	Msg  string
}

func (e *EvalError) Error() string {
	if e.Expr == "" {
		return e.Msg
	}
	return fmt.Sprintf("evaluating {%s}: %s", e.Expr, e.Msg)
}

// Catch recovers a panic raised by the panicking helpers (Op, Un) and
// stores it in *err. Other panics are re-raised. Use it as
//
//	defer expr.Catch(&err)
func Catch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*EvalError); ok {
		*err = e
		return
	}
	panic(r)
}
