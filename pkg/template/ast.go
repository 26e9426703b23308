package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/recera/lumen/pkg/expr"
)

// AST node types for lumen templates

// NodeKind tags the variants of Node
type NodeKind int

const (
	KindText NodeKind = iota
	KindComment
	KindElement
	KindIf
	KindFor
)

func (k NodeKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindElement:
		return "element"
	case KindIf:
		return "if-block"
	case KindFor:
		return "for-block"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is a child node of the template. The set of implementations is
// closed: *Text, *Comment, *Element, *IfBlock and *ForBlock.
type Node interface {
	Kind() NodeKind
	node()
}

// Root is the compilation unit, the children of the <template> element
type Root struct {
	Children []Node
}

// Value is either a literal string or an expression
type Value struct {
	Literal string
	Expr    *expr.Expr
}

// IsExpr reports whether the value is dynamic
func (v Value) IsExpr() bool {
	return v.Expr != nil
}

func (v Value) String() string {
	if v.Expr != nil {
		return "{" + v.Expr.Raw + "}"
	}
	return strconv.Quote(v.Literal)
}

// Text is a literal text run or a single expression
type Text struct {
	Value Value
}

// Comment holds the raw comment content
type Comment struct {
	Value string
}

// Element is a markup element with its directives removed
type Element struct {
	Name string

	// Namespace is empty for HTML elements
	Namespace string

	Attributes []Attribute
	Children   []Node
}

// Attribute is a plain element attribute
type Attribute struct {
	Name  string
	Value Value
}

// IfBlock renders Child when Condition is truthy (Modifier true) or falsy (Modifier false)
type IfBlock struct {
	Modifier  bool
	Condition *expr.Expr
	Child     Node
}

// ForBlock renders Child once per element of Expression. Item and Index are optional.
type ForBlock struct {
	Expression *expr.Expr
	Item       *expr.Ident
	Index      *expr.Ident
	Child      Node
}

func (*Text) Kind() NodeKind     { return KindText }
func (*Comment) Kind() NodeKind  { return KindComment }
func (*Element) Kind() NodeKind  { return KindElement }
func (*IfBlock) Kind() NodeKind  { return KindIf }
func (*ForBlock) Kind() NodeKind { return KindFor }

func (*Text) node()     {}
func (*Comment) node()  {}
func (*Element) node()  {}
func (*IfBlock) node()  {}
func (*ForBlock) node() {}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of the current node.
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	switch n := n.(type) {
	case *Element:
		for _, c := range n.Children {
			walk(c, depth+1, fn)
		}
	case *IfBlock:
		walk(n.Child, depth+1, fn)
	case *ForBlock:
		walk(n.Child, depth+1, fn)
	}
}

// Dump renders the tree in an indented, line oriented form
func Dump(root *Root) string {
	var b strings.Builder
	for _, c := range root.Children {
		Walk(c, func(n Node, depth int) bool {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(describe(n))
			b.WriteByte('\n')
			return true
		})
	}
	return b.String()
}

func describe(n Node) string {
	switch n := n.(type) {
	case *Text:
		return "text " + n.Value.String()
	case *Comment:
		return "comment " + strconv.Quote(n.Value)
	case *Element:
		var b strings.Builder
		b.WriteString("<" + n.Name)
		for _, a := range n.Attributes {
			fmt.Fprintf(&b, " %s=%s", a.Name, a.Value)
		}
		b.WriteString(">")
		if n.Namespace != "" {
			b.WriteString(" ns=" + n.Namespace)
		}
		return b.String()
	case *IfBlock:
		return fmt.Sprintf("if:%t {%s}", n.Modifier, n.Condition.Raw)
	case *ForBlock:
		s := fmt.Sprintf("for:each {%s}", n.Expression.Raw)
		if n.Item != nil {
			s += " item=" + n.Item.Name
		}
		if n.Index != nil {
			s += " index=" + n.Index.Name
		}
		return s
	}
	return fmt.Sprintf("%T", n)
}
