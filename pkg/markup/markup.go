// Package markup adapts golang.org/x/net/html to the small generic tree the
// template compiler works on.
package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Namespace URIs for foreign content. HTML elements have an empty namespace.
const (
	SVGNamespace    = "http://www.w3.org/2000/svg"
	MathMLNamespace = "http://www.w3.org/1998/Math/MathML"
)

// NodeType identifies the kind of a Node
type NodeType int

const (
	TextNode NodeType = iota
	CommentNode
	ElementNode
	OtherNode
)

func (t NodeType) String() string {
	switch t {
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case ElementNode:
		return "element"
	default:
		return "other"
	}
}

// Attr is a name/value attribute pair in source order
type Attr struct {
	Name  string
	Value string
}

// Node is a generic markup tree node
type Node struct {
	Type NodeType

	// Tag is the element name (elements only)
	Tag string

	// Namespace is empty for HTML, otherwise the namespace URI
	Namespace string

	Attrs    []Attr
	Children []*Node

	// Data holds the text of text and comment nodes
	Data string
}

func (n *Node) IsText() bool    { return n.Type == TextNode }
func (n *Node) IsComment() bool { return n.Type == CommentNode }
func (n *Node) IsElement() bool { return n.Type == ElementNode }

// IsTemplate reports whether n is an HTML <template> element
func (n *Node) IsTemplate() bool {
	return n.Type == ElementNode && n.Namespace == "" && n.Tag == "template"
}

func (n *Node) String() string {
	switch n.Type {
	case ElementNode:
		return "<" + n.Tag + ">"
	case TextNode, CommentNode:
		return fmt.Sprintf("%s %q", n.Type, n.Data)
	}
	return n.Type.String()
}

// Parser turns markup source into a list of top-level nodes
type Parser interface {
	Parse(src string) ([]*Node, error)
}

// HTMLParser parses fragments with the HTML5 algorithm of x/net/html
type HTMLParser struct{}

var bodyContext = &html.Node{
	Type:     html.ElementNode,
	Data:     "body",
	DataAtom: atom.Body,
}

// Parse parses src as an HTML fragment in <body> context
func (HTMLParser) Parse(src string) ([]*Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(src), bodyContext)
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}

	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, convert(n))
	}
	return out, nil
}

// Parse parses src with the default HTMLParser
func Parse(src string) ([]*Node, error) {
	return HTMLParser{}.Parse(src)
}

func convert(n *html.Node) *Node {
	out := &Node{}

	switch n.Type {
	case html.TextNode:
		out.Type = TextNode
		out.Data = n.Data
		return out
	case html.CommentNode:
		out.Type = CommentNode
		out.Data = n.Data
		return out
	case html.ElementNode:
		out.Type = ElementNode
		out.Tag = n.Data
		out.Namespace = namespaceURI(n.Namespace)
		out.Attrs = make([]Attr, 0, len(n.Attr))
		for _, a := range n.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			out.Attrs = append(out.Attrs, Attr{Name: name, Value: a.Val})
		}
	default:
		out.Type = OtherNode
		out.Data = n.Data
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.Children = append(out.Children, convert(c))
	}
	return out
}

func namespaceURI(ns string) string {
	switch ns {
	case "":
		return ""
	case "svg":
		return SVGNamespace
	case "math":
		return MathMLNamespace
	}
	return ns
}
