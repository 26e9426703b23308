// Package template parses lumen templates into a typed AST.
//
// A template is a single <template> element. Its content is ordinary markup
// where text and attribute values may embed {expressions}, and elements may
// carry structural directives:
//
//	<li for:each={items} for:item="item" for:index="i" if:true={item.visible}>
//	    {i}: {item.label}
//	</li>
//
// When an element has both kinds of directive the iteration wraps the
// conditional, which wraps the element.
package template

import (
	"fmt"
	"strings"

	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/markup"
)

// Config controls parsing
type Config struct {
	// PreserveWhitespaces keeps whitespace runs in text verbatim
	PreserveWhitespaces bool
}

// Parse parses src with the default HTML parser
func Parse(src string, cfg Config) (*Root, error) {
	return ParseWith(markup.HTMLParser{}, src, cfg)
}

// ParseWith parses src using p to build the markup tree
func ParseWith(p markup.Parser, src string, cfg Config) (*Root, error) {
	nodes, err := p.Parse(src)
	if err != nil {
		return nil, &Error{Kind: ErrStructure, Msg: "parsing markup", Offset: -1, Err: err}
	}

	var roots []*markup.Node
	for _, n := range nodes {
		if n.IsElement() {
			roots = append(roots, n)
		}
	}

	switch len(roots) {
	case 0:
		return nil, structureError("no <template> tag found")
	case 1:
	default:
		return nil, structureError("multiple root elements found in the template")
	}

	root := roots[0]
	if !root.IsTemplate() {
		return nil, structureError("unexpected element <%s> at the root", root.Tag)
	}

	b := &builder{cfg: cfg}
	children, err := b.children(root.Children)
	if err != nil {
		return nil, err
	}
	return &Root{Children: children}, nil
}

type builder struct {
	cfg Config
}

func (b *builder) children(nodes []*markup.Node) ([]Node, error) {
	var out []Node
	for _, n := range nodes {
		built, err := b.node(n)
		if err != nil {
			return nil, err
		}
		out = append(out, built...)
	}
	return out, nil
}

func (b *builder) node(n *markup.Node) ([]Node, error) {
	switch {
	case n.IsText():
		return scanText(n.Data, b.cfg.PreserveWhitespaces)
	case n.IsComment():
		return []Node{&Comment{Value: n.Data}}, nil
	case n.IsElement():
		el, err := b.element(n)
		if err != nil {
			return nil, err
		}
		return []Node{el}, nil
	}
	return nil, structureError("unexpected node %s", n)
}

func (b *builder) element(n *markup.Node) (Node, error) {
	attrs, ifd, fd, err := extractDirectives(n.Attrs)
	if err != nil {
		return nil, err
	}

	el := &Element{
		Name:      n.Tag,
		Namespace: n.Namespace,
	}

	el.Attributes = make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		attr, err := attribute(a)
		if err != nil {
			return nil, err
		}
		el.Attributes = append(el.Attributes, attr)
	}

	if el.Children, err = b.children(n.Children); err != nil {
		return nil, err
	}

	var out Node = el
	if ifd != nil {
		out = &IfBlock{Modifier: ifd.modifier, Condition: ifd.condition, Child: out}
	}
	if fd != nil {
		out = &ForBlock{Expression: fd.each, Item: fd.item, Index: fd.index, Child: out}
	}
	return out, nil
}

func attribute(a markup.Attr) (Attribute, error) {
	if !strings.HasPrefix(a.Value, "{") {
		return Attribute{Name: a.Name, Value: Value{Literal: a.Value}}, nil
	}
	e, err := expr.ParseExpression(a.Value)
	if err != nil {
		return Attribute{}, expressionError(fmt.Sprintf("attribute %q", a.Name), a.Value, err)
	}
	return Attribute{Name: a.Name, Value: Value{Expr: e}}, nil
}
