package expr

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
	"strings"
)

// GoSource renders e as a Go expression of type any that evaluates it
// against the Scope held in scopeVar. The output refers to this package as
// "expr". Operators compile to Op and Un, so the enclosing function must
// defer Catch.
func GoSource(e *Expr, scopeVar string) (string, error) {
	var b strings.Builder
	if err := writeGo(&b, e.node, scopeVar); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeGo(b *strings.Builder, n ast.Expr, scope string) error {
	switch n := n.(type) {
	case *ast.Ident:
		switch n.Name {
		case "true", "false", "nil":
			b.WriteString(n.Name)
		default:
			fmt.Fprintf(b, "expr.Lookup(%s, %q)", scope, n.Name)
		}
	case *ast.BasicLit:
		v, err := parseLiteral(n)
		if err != nil {
			return err
		}
		switch v := v.(type) {
		case int:
			b.WriteString(strconv.Itoa(v))
		case float64:
			fmt.Fprintf(b, "float64(%s)", strconv.FormatFloat(v, 'g', -1, 64))
		case string:
			b.WriteString(strconv.Quote(v))
		}
	case *ast.ParenExpr:
		return writeGo(b, n.X, scope)
	case *ast.SelectorExpr:
		b.WriteString("expr.Field(")
		if err := writeGo(b, n.X, scope); err != nil {
			return err
		}
		fmt.Fprintf(b, ", %q)", n.Sel.Name)
	case *ast.IndexExpr:
		b.WriteString("expr.Index(")
		if err := writeGo(b, n.X, scope); err != nil {
			return err
		}
		b.WriteString(", ")
		if err := writeGo(b, n.Index, scope); err != nil {
			return err
		}
		b.WriteString(")")
	case *ast.UnaryExpr:
		fmt.Fprintf(b, "expr.Un(%q, ", n.Op.String())
		if err := writeGo(b, n.X, scope); err != nil {
			return err
		}
		b.WriteString(")")
	case *ast.BinaryExpr:
		open, mid, end := fmt.Sprintf("expr.Op(%q, ", n.Op.String()), ", ", ")"
		switch n.Op {
		case token.LAND:
			open, mid, end = "expr.And(", ", func() any { return ", " })"
		case token.LOR:
			open, mid, end = "expr.Or(", ", func() any { return ", " })"
		}
		b.WriteString(open)
		if err := writeGo(b, n.X, scope); err != nil {
			return err
		}
		b.WriteString(mid)
		if err := writeGo(b, n.Y, scope); err != nil {
			return err
		}
		b.WriteString(end)
	default:
		return fmt.Errorf("unsupported expression %T", n)
	}
	return nil
}

// And short-circuits like &&: rhs is only evaluated when l is truthy
func And(l any, rhs func() any) any {
	if !Truthy(l) {
		return l
	}
	return rhs()
}

// Or short-circuits like ||: rhs is only evaluated when l is falsy
func Or(l any, rhs func() any) any {
	if Truthy(l) {
		return l
	}
	return rhs()
}
