// Package dom is an in-memory output tree implementing runtime.Renderer.
// It records every primitive call in a Journal, which makes it the
// reference host for tests, the CLI and the dev server.
package dom

import (
	"fmt"
	"strings"

	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/runtime"
)

// NodeKind identifies the type of a Node
type NodeKind uint8

const (
	ElementNode NodeKind = iota
	TextNode
	CommentNode
	FragmentNode
)

// Attr is an attribute in insertion order. Bare attributes render without a value.
type Attr struct {
	Name  string
	Value string
	Bare  bool
}

// Node is a node of the in-memory tree
type Node struct {
	Kind      NodeKind
	Tag       string
	Namespace string

	// Text holds the content of text and comment nodes
	Text string

	attrs    []Attr
	parent   *Node
	children []*Node
}

// Attr returns the value of the named attribute
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attrs returns the attributes in insertion order
func (n *Node) Attrs() []Attr {
	return n.attrs
}

// Children returns the child nodes
func (n *Node) Children() []*Node {
	return n.children
}

// Parent returns the parent node or nil when detached
func (n *Node) Parent() *Node {
	return n.parent
}

// HTML serializes the node
func (n *Node) HTML() string {
	return RenderHTML(n)
}

func (n *Node) String() string {
	switch n.Kind {
	case ElementNode:
		return "<" + n.Tag + ">"
	case TextNode:
		return fmt.Sprintf("text %q", n.Text)
	case CommentNode:
		return fmt.Sprintf("comment %q", n.Text)
	}
	return "#fragment"
}

func (n *Node) setAttr(a Attr) {
	for i := range n.attrs {
		if n.attrs[i].Name == a.Name {
			n.attrs[i] = a
			return
		}
	}
	n.attrs = append(n.attrs, a)
}

func (n *Node) removeAttr(name string) {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return
		}
	}
}

func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// Document is a tree rooted at a fragment node
type Document struct {
	root    *Node
	journal Journal
}

// New returns an empty document
func New() *Document {
	return &Document{root: &Node{Kind: FragmentNode}}
}

// Root returns the fragment node blocks are mounted into
func (d *Document) Root() *Node {
	return d.root
}

// Journal returns the record of primitive calls
func (d *Document) Journal() *Journal {
	return &d.journal
}

// HTML serializes the document content
func (d *Document) HTML() string {
	return RenderHTML(d.root)
}

func (d *Document) CreateElement(tag, namespace string) runtime.Node {
	d.journal.record(OpCreateElement, tag, "")
	return &Node{Kind: ElementNode, Tag: tag, Namespace: namespace}
}

func (d *Document) CreateText(text string) runtime.Node {
	d.journal.record(OpCreateText, "", text)
	return &Node{Kind: TextNode, Text: text}
}

func (d *Document) CreateComment(text string) runtime.Node {
	d.journal.record(OpCreateComment, "", text)
	return &Node{Kind: CommentNode, Text: text}
}

// SetAttribute sets name to the string form of value. nil and false remove
// the attribute, true sets it bare, as does any truthy value of a boolean
// attribute such as disabled.
func (d *Document) SetAttribute(n runtime.Node, name string, value any) {
	node := asNode(n)
	d.journal.record(OpSetAttribute, node.String(), fmt.Sprintf("%s=%v", name, value))

	if b, ok := value.(bool); ok || booleanAttributes[name] {
		if !ok {
			b = expr.Truthy(value)
		}
		if b {
			node.setAttr(Attr{Name: name, Bare: true})
		} else {
			node.removeAttr(name)
		}
		return
	}
	if value == nil {
		node.removeAttr(name)
		return
	}
	node.setAttr(Attr{Name: name, Value: expr.ToString(value)})
}

func (d *Document) SetText(n runtime.Node, text string) {
	node := asNode(n)
	d.journal.record(OpSetText, node.String(), text)
	node.Text = text
}

// Insert moves n into parent before anchor. A nil parent means the parent of
// anchor; a nil anchor, or one that is not a child of parent, appends.
func (d *Document) Insert(n, parent, anchor runtime.Node) {
	node := asNode(n)
	ref := asNode(anchor)
	p := asNode(parent)
	if p == nil && ref != nil {
		p = ref.parent
	}
	if p == nil {
		p = d.root
	}
	d.journal.record(OpInsert, node.String(), p.String())

	node.detach()
	node.parent = p
	if ref != nil && ref.parent == p {
		for i, c := range p.children {
			if c == ref {
				p.children = append(p.children[:i], append([]*Node{node}, p.children[i:]...)...)
				return
			}
		}
	}
	p.children = append(p.children, node)
}

func (d *Document) Remove(n runtime.Node) {
	node := asNode(n)
	d.journal.record(OpRemove, node.String(), "")
	node.detach()
}

// Text returns the concatenated text content below n
func Text(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind == TextNode {
			b.WriteString(n.Text)
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func asNode(n runtime.Node) *Node {
	if n == nil {
		return nil
	}
	node, ok := n.(*Node)
	if !ok {
		panic(fmt.Sprintf("dom: foreign node %T", n))
	}
	return node
}

var _ runtime.Renderer = (*Document)(nil)
