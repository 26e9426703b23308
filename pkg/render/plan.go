package render

import (
	"fmt"
	"strings"

	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/template"
)

// OpKind identifies what an Op creates
type OpKind int

const (
	OpElement OpKind = iota
	OpText
	OpComment
	OpIf
	OpEach
)

func (k OpKind) String() string {
	switch k {
	case OpElement:
		return "element"
	case OpText:
		return "text"
	case OpComment:
		return "comment"
	case OpIf:
		return "if"
	case OpEach:
		return "each"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// IsBlock reports whether the op creates a structural block instead of a node
func (k OpKind) IsBlock() bool {
	return k == OpIf || k == OpEach
}

// Block is the lowered form of one create/insert/update unit: the template
// itself or the body of an if or each block.
type Block struct {
	// Ops are in document order; a parent always precedes its children
	Ops []Op

	// Slots lists one memoized binding per dynamic value
	Slots []Slot

	// Top holds the indexes of the ops attached by Insert
	Top []int
}

// Op creates one node or structural block
type Op struct {
	Kind OpKind

	// Parent is the index of the enclosing element op, or -1 at the top level
	Parent int

	// Element
	Tag       string
	Namespace string
	Attrs     []AttrOp

	// Text and comment content. Slot is the binding of a dynamic text, or -1.
	Text string
	Slot int

	// If and each
	Modifier bool
	Expr     *expr.Expr
	Item     string
	Index    string
	Body     *Block
}

// AttrOp is an element attribute. Slot is -1 for literal values.
type AttrOp struct {
	Name  string
	Value string
	Slot  int
}

// Slot is a dynamic attribute or text value
type Slot struct {
	// Op is the index of the node the value applies to
	Op int

	// Attr is the attribute name, empty for text
	Attr string

	Expr *expr.Expr
}

// Lower turns the AST into a Block plan
func Lower(root *template.Root) (*Block, error) {
	b := &Block{}
	for _, c := range root.Children {
		if err := b.lower(c, -1); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func lowerBody(child template.Node) (*Block, error) {
	b := &Block{}
	if err := b.lower(child, -1); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Block) add(op Op) int {
	i := len(b.Ops)
	b.Ops = append(b.Ops, op)
	if op.Parent < 0 {
		b.Top = append(b.Top, i)
	}
	return i
}

func (b *Block) slot(op int, attr string, e *expr.Expr) int {
	b.Slots = append(b.Slots, Slot{Op: op, Attr: attr, Expr: e})
	return len(b.Slots) - 1
}

func (b *Block) lower(n template.Node, parent int) error {
	switch n := n.(type) {
	case *template.Text:
		i := b.add(Op{Kind: OpText, Parent: parent, Text: n.Value.Literal, Slot: -1})
		if n.Value.IsExpr() {
			b.Ops[i].Slot = b.slot(i, "", n.Value.Expr)
		}

	case *template.Comment:
		b.add(Op{Kind: OpComment, Parent: parent, Text: n.Value, Slot: -1})

	case *template.Element:
		i := b.add(Op{Kind: OpElement, Parent: parent, Tag: n.Name, Namespace: n.Namespace, Slot: -1})
		attrs := make([]AttrOp, 0, len(n.Attributes))
		for _, a := range n.Attributes {
			op := AttrOp{Name: a.Name, Value: a.Value.Literal, Slot: -1}
			if a.Value.IsExpr() {
				op.Slot = b.slot(i, a.Name, a.Value.Expr)
			}
			attrs = append(attrs, op)
		}
		b.Ops[i].Attrs = attrs
		for _, c := range n.Children {
			if err := b.lower(c, i); err != nil {
				return err
			}
		}

	case *template.IfBlock:
		body, err := lowerBody(n.Child)
		if err != nil {
			return err
		}
		b.add(Op{Kind: OpIf, Parent: parent, Slot: -1, Modifier: n.Modifier, Expr: n.Condition, Body: body})

	case *template.ForBlock:
		body, err := lowerBody(n.Child)
		if err != nil {
			return err
		}
		op := Op{Kind: OpEach, Parent: parent, Slot: -1, Expr: n.Expression, Body: body}
		if n.Item != nil {
			op.Item = n.Item.Name
		}
		if n.Index != nil {
			op.Index = n.Index.Name
		}
		b.add(op)

	default:
		return fmt.Errorf("render: unexpected node %T", n)
	}
	return nil
}

// Stats summarises a plan
type Stats struct {
	Nodes    int
	Bindings int
	Blocks   int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d nodes, %d bindings, %d blocks", s.Nodes, s.Bindings, s.Blocks)
}

// Stats counts the nodes, bindings and structural blocks of b and its bodies
func (b *Block) Stats() Stats {
	s := Stats{Bindings: len(b.Slots)}
	for _, op := range b.Ops {
		if !op.Kind.IsBlock() {
			s.Nodes++
			continue
		}
		s.Blocks++
		sub := op.Body.Stats()
		s.Nodes += sub.Nodes
		s.Bindings += sub.Bindings
		s.Blocks += sub.Blocks
	}
	return s
}

// Dump describes the plan one op per line. Block bodies follow their op,
// indented by two spaces.
func (b *Block) Dump() string {
	var sb strings.Builder
	b.dump(&sb, 0)
	return sb.String()
}

func (b *Block) dump(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, op := range b.Ops {
		sb.WriteString(indent)
		switch op.Kind {
		case OpElement:
			fmt.Fprintf(sb, "n%d <%s>", i, op.Tag)
			if op.Namespace != "" {
				fmt.Fprintf(sb, " ns=%s", op.Namespace)
			}
			for _, a := range op.Attrs {
				if a.Slot < 0 {
					fmt.Fprintf(sb, " %s=%q", a.Name, a.Value)
				} else {
					fmt.Fprintf(sb, " %s=s%d{%s}", a.Name, a.Slot, b.Slots[a.Slot].Expr.Raw)
				}
			}
		case OpText:
			if op.Slot < 0 {
				fmt.Fprintf(sb, "n%d text %q", i, op.Text)
			} else {
				fmt.Fprintf(sb, "n%d text s%d{%s}", i, op.Slot, b.Slots[op.Slot].Expr.Raw)
			}
		case OpComment:
			fmt.Fprintf(sb, "n%d comment %q", i, op.Text)
		case OpIf:
			fmt.Fprintf(sb, "b%d if:%t {%s}", i, op.Modifier, op.Expr.Raw)
		case OpEach:
			fmt.Fprintf(sb, "b%d each {%s}", i, op.Expr.Raw)
			if op.Item != "" {
				fmt.Fprintf(sb, " item=%s", op.Item)
			}
			if op.Index != "" {
				fmt.Fprintf(sb, " index=%s", op.Index)
			}
		}
		if op.Parent >= 0 {
			fmt.Fprintf(sb, " in n%d", op.Parent)
		}
		sb.WriteByte('\n')
		if op.Body != nil {
			op.Body.dump(sb, depth+1)
		}
	}
}
