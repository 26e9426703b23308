// Package expr implements the expression language embedded in templates.
//
// Expressions are written between braces, {user.name} or {count + 1}, and use
// Go expression syntax restricted to identifiers, selectors, index
// expressions, literals, parentheses and unary/binary operators.
package expr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

// Expr is a parsed template expression
type Expr struct {
	// Raw is the source between the braces
	Raw string

	// Offset is the position of the opening brace in the text it was parsed from
	Offset int

	node ast.Expr
}

// String returns the expression source without braces
func (e *Expr) String() string {
	return e.Raw
}

// Node returns the underlying syntax tree
func (e *Expr) Node() ast.Expr {
	return e.node
}

// Ident is a bare identifier used for loop bindings
type Ident struct {
	Name string
}

// String returns the identifier name
func (id *Ident) String() string {
	return id.Name
}

// ParseExpression parses a complete braced expression such as "{items}".
// Surrounding whitespace is ignored; anything after the closing brace is an error.
func ParseExpression(raw string) (*Expr, error) {
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\n\r\f"))
	src := strings.TrimSpace(raw)
	if !strings.HasPrefix(src, "{") {
		return nil, &ParseError{Offset: lead, Msg: fmt.Sprintf("expected expression in braces, found %q", src)}
	}

	e, next, err := ParseExpressionAt(raw, lead)
	if err != nil {
		return nil, err
	}
	if rest := strings.TrimSpace(raw[next:]); rest != "" {
		return nil, &ParseError{Offset: next, Msg: fmt.Sprintf("unexpected %q after expression", rest)}
	}
	return e, nil
}

// ParseExpressionAt parses the braced expression starting at text[offset],
// which must be '{'. It returns the expression and the offset just past the
// matching closing brace.
func ParseExpressionAt(text string, offset int) (*Expr, int, error) {
	if offset < 0 || offset >= len(text) || text[offset] != '{' {
		return nil, offset, &ParseError{Offset: offset, Msg: "expected '{'"}
	}

	end, err := matchBrace(text, offset)
	if err != nil {
		return nil, offset, err
	}

	raw := text[offset+1 : end]
	if strings.TrimSpace(raw) == "" {
		return nil, offset, &ParseError{Offset: offset, Msg: "empty expression"}
	}

	node, err := parseGoExpr(raw, offset+1)
	if err != nil {
		return nil, offset, err
	}

	return &Expr{Raw: strings.TrimSpace(raw), Offset: offset, node: node}, end + 1, nil
}

// ParseIdentifier parses a bare identifier such as the value of for:item
func ParseIdentifier(raw string) (*Ident, error) {
	name := strings.TrimSpace(raw)
	if !token.IsIdentifier(name) || name == "_" {
		return nil, &ParseError{Offset: 0, Msg: fmt.Sprintf("invalid identifier %q", name)}
	}
	return &Ident{Name: name}, nil
}

// MustParse is like ParseExpression but panics on error
func MustParse(raw string) *Expr {
	e, err := ParseExpression(raw)
	if err != nil {
		panic(err)
	}
	return e
}

// matchBrace returns the index of the '}' closing the '{' at text[open].
// Braces inside string, rune and raw string literals are skipped.
func matchBrace(text string, open int) (int, error) {
	depth := 0
	for i := open; i < len(text); i++ {
		switch c := text[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '"', '\'':
			j := i + 1
			for j < len(text) && text[j] != c {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(text) {
				return 0, &ParseError{Offset: i, Msg: "unterminated literal in expression"}
			}
			i = j
		case '`':
			j := strings.IndexByte(text[i+1:], '`')
			if j < 0 {
				return 0, &ParseError{Offset: i, Msg: "unterminated raw string in expression"}
			}
			i += j + 1
		}
	}
	return 0, &ParseError{Offset: open, Msg: "unterminated expression, missing '}'"}
}

// parseGoExpr parses src with go/parser and rejects constructs the
// evaluator does not support. base is the offset of src in the template text.
func parseGoExpr(src string, base int) (ast.Expr, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseExprFrom(fset, "", src, 0)
	if err != nil {
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			return nil, &ParseError{Offset: base + list[0].Pos.Offset, Msg: list[0].Msg}
		}
		return nil, &ParseError{Offset: base, Msg: err.Error()}
	}

	var (
		bad    ast.Node
		badErr error
	)
	ast.Inspect(node, func(n ast.Node) bool {
		if bad != nil || n == nil {
			return false
		}
		switch n := n.(type) {
		case *ast.BasicLit:
			if _, err := parseLiteral(n); err != nil {
				badErr = err
				break
			}
			return true
		case *ast.Ident, *ast.ParenExpr, *ast.IndexExpr:
			return true
		case *ast.SelectorExpr:
			return true
		case *ast.UnaryExpr:
			if n.Op == token.NOT || n.Op == token.SUB || n.Op == token.ADD {
				return true
			}
		case *ast.BinaryExpr:
			if _, ok := binaryOps[n.Op.String()]; ok {
				return true
			}
		}
		bad = n
		return false
	})
	if bad != nil {
		msg := fmt.Sprintf("unsupported expression %T", bad)
		if badErr != nil {
			msg = "invalid literal: " + badErr.Error()
		}
		return nil, &ParseError{Offset: base + fset.Position(bad.Pos()).Offset, Msg: msg}
	}

	return node, nil
}
