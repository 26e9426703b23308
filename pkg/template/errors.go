package template

import (
	"errors"
	"fmt"

	"github.com/recera/lumen/pkg/expr"
)

// ErrorKind classifies compilation failures. Each kind is itself an error so
// callers can test with errors.Is(err, template.ErrDirective).
type ErrorKind int

const (
	ErrStructure ErrorKind = iota + 1
	ErrDirective
	ErrExpression
)

func (k ErrorKind) String() string {
	switch k {
	case ErrStructure:
		return "structure"
	case ErrDirective:
		return "directive"
	case ErrExpression:
		return "expression"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) Error() string {
	return k.String() + " error"
}

// Error is a fatal compilation error
type Error struct {
	Kind ErrorKind
	Msg  string

	// Offset is the byte offset of the failure within Source, or -1
	Offset int

	// Source is the text node or attribute value Offset refers to
	Source string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("template: %s: %v", e.Msg, e.Err)
	}
	return "template: " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's kind
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func structureError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrStructure, Msg: fmt.Sprintf(format, args...), Offset: -1}
}

// expressionError wraps a failure from the expression parser. The parser's
// offset is kept and interpreted relative to source.
func expressionError(where, source string, err error) *Error {
	e := &Error{Kind: ErrExpression, Msg: "invalid expression in " + where, Offset: -1, Source: source, Err: err}
	var pe *expr.ParseError
	if errors.As(err, &pe) {
		e.Offset = pe.Offset
	}
	return e
}
