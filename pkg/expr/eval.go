package expr

import (
	"fmt"
	"go/ast"
	"go/token"
	"math"
	"strconv"
	"strings"
)

// EvalFunc evaluates an expression against a scope
type EvalFunc func(s Scope) (any, error)

// binaryOps lists the binary operators the language accepts
var binaryOps = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "%": {},
	"==": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"&&": {}, "||": {},
}

// Eval evaluates e against s
func Eval(e *Expr, s Scope) (v any, err error) {
	defer func() {
		if ee, ok := err.(*EvalError); ok && ee.Expr == "" {
			ee.Expr = e.Raw
		}
	}()
	defer Catch(&err)
	return eval(e.node, s), nil
}

// Func returns an EvalFunc bound to e
func (e *Expr) Func() EvalFunc {
	return func(s Scope) (any, error) {
		return Eval(e, s)
	}
}

// Guard converts a panicking evaluator, as emitted by generated code, into an EvalFunc
func Guard(fn func(s Scope) any) EvalFunc {
	return func(s Scope) (v any, err error) {
		defer Catch(&err)
		return fn(s), nil
	}
}

func eval(n ast.Expr, s Scope) any {
	switch n := n.(type) {
	case *ast.Ident:
		switch n.Name {
		case "true":
			return true
		case "false":
			return false
		case "nil":
			return nil
		}
		return Lookup(s, n.Name)
	case *ast.BasicLit:
		return literal(n)
	case *ast.ParenExpr:
		return eval(n.X, s)
	case *ast.SelectorExpr:
		return Field(eval(n.X, s), n.Sel.Name)
	case *ast.IndexExpr:
		return Index(eval(n.X, s), eval(n.Index, s))
	case *ast.UnaryExpr:
		return Un(n.Op.String(), eval(n.X, s))
	case *ast.BinaryExpr:
		l := eval(n.X, s)
		switch n.Op {
		case token.LAND:
			if !Truthy(l) {
				return l
			}
			return eval(n.Y, s)
		case token.LOR:
			if Truthy(l) {
				return l
			}
			return eval(n.Y, s)
		}
		return Op(n.Op.String(), l, eval(n.Y, s))
	}
	panic(&EvalError{Msg: fmt.Sprintf("unsupported expression %T", n)})
}

func literal(lit *ast.BasicLit) any {
	v, err := parseLiteral(lit)
	if err != nil {
		panic(&EvalError{Msg: err.Error()})
	}
	return v
}

// parseLiteral converts a literal to its evaluated value: int, float64 or
// string. Character literals evaluate to one-rune strings.
func parseLiteral(lit *ast.BasicLit) (any, error) {
	switch lit.Kind {
	case token.INT:
		i, err := strconv.ParseInt(strings.ReplaceAll(lit.Value, "_", ""), 0, 64)
		if err != nil {
			return nil, err
		}
		return int(i), nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(strings.ReplaceAll(lit.Value, "_", ""), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case token.STRING, token.CHAR:
		return strconv.Unquote(lit.Value)
	}
	return nil, fmt.Errorf("unsupported literal %s", lit.Value)
}

// Unary applies a unary operator
func Unary(op string, v any) (any, error) {
	switch op {
	case "!":
		return !Truthy(v), nil
	case "-", "+":
		n, ok := toNumber(v)
		if !ok {
			return nil, &EvalError{Msg: fmt.Sprintf("invalid operand %T for unary %s", v, op)}
		}
		if op == "-" {
			n.i, n.f = -n.i, -n.f
		}
		return fromNumber(n), nil
	}
	return nil, &EvalError{Msg: "unknown operator " + op}
}

// Un is like Unary but panics with *EvalError; pair it with Catch
func Un(op string, v any) any {
	r, err := Unary(op, v)
	if err != nil {
		panic(err)
	}
	return r
}

// Binary applies a non short-circuiting binary operator
func Binary(op string, l, r any) (any, error) {
	switch op {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	case "&&":
		if !Truthy(l) {
			return l, nil
		}
		return r, nil
	case "||":
		if Truthy(l) {
			return l, nil
		}
		return r, nil
	}

	ls, lstr := l.(string)
	rs, rstr := r.(string)
	if lstr || rstr {
		switch {
		case op == "+":
			return ToString(l) + ToString(r), nil
		case lstr && rstr:
			switch op {
			case "<":
				return ls < rs, nil
			case "<=":
				return ls <= rs, nil
			case ">":
				return ls > rs, nil
			case ">=":
				return ls >= rs, nil
			}
		}
		return nil, mismatch(op, l, r)
	}

	ln, lok := toNumber(l)
	rn, rok := toNumber(r)
	if !lok || !rok {
		return nil, mismatch(op, l, r)
	}

	switch op {
	case "<":
		return ln.float() < rn.float(), nil
	case "<=":
		return ln.float() <= rn.float(), nil
	case ">":
		return ln.float() > rn.float(), nil
	case ">=":
		return ln.float() >= rn.float(), nil
	}

	if ln.isFloat || rn.isFloat {
		a, b := ln.float(), rn.float()
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			return a / b, nil
		case "%":
			return math.Mod(a, b), nil
		}
	} else {
		a, b := ln.i, rn.i
		switch op {
		case "+":
			return int(a + b), nil
		case "-":
			return int(a - b), nil
		case "*":
			return int(a * b), nil
		case "/", "%":
			if b == 0 {
				return nil, &EvalError{Msg: "integer division by zero"}
			}
			if op == "/" {
				return int(a / b), nil
			}
			return int(a % b), nil
		}
	}
	return nil, &EvalError{Msg: "unknown operator " + op}
}

// Op is like Binary but panics with *EvalError; pair it with Catch
func Op(op string, l, r any) any {
	v, err := Binary(op, l, r)
	if err != nil {
		panic(err)
	}
	return v
}

// equal compares numbers by value and everything else strictly
func equal(l, r any) bool {
	if ln, ok := toNumber(l); ok {
		if rn, ok := toNumber(r); ok {
			if !ln.isFloat && !rn.isFloat {
				return ln.i == rn.i
			}
			return ln.float() == rn.float()
		}
	}
	return StrictEqual(l, r)
}

func mismatch(op string, l, r any) error {
	return &EvalError{Msg: fmt.Sprintf("invalid operation: %T %s %T", l, op, r)}
}
