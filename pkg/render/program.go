// Package render lowers a template AST into a create/insert/update render
// program and runs it against a runtime.Renderer.
//
// Literal attributes and text are applied once, at creation. Every dynamic
// value owns a runtime.Binding; Update re-evaluates it and touches the tree
// only when the new value is not strictly equal to the stored one.
package render

import (
	"fmt"

	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/runtime"
	"github.com/recera/lumen/pkg/template"
)

// Program is a compiled template. It is immutable and may be instantiated
// any number of times, from any goroutine.
type Program struct {
	plan  *Block
	stats Stats
}

// Compile lowers root into a Program
func Compile(root *template.Root) (*Program, error) {
	plan, err := Lower(root)
	if err != nil {
		return nil, err
	}
	return &Program{plan: plan, stats: plan.Stats()}, nil
}

// CompileSource parses and compiles template source
func CompileSource(src string, cfg template.Config) (*Program, error) {
	root, err := template.Parse(src, cfg)
	if err != nil {
		return nil, err
	}
	return Compile(root)
}

// Plan returns the lowered plan
func (p *Program) Plan() *Block {
	return p.plan
}

// Stats reports the size of the program
func (p *Program) Stats() Stats {
	return p.stats
}

// New returns an instance evaluating against scope and rendering with r
func (p *Program) New(scope expr.Scope, r runtime.Renderer) *Instance {
	return newInstance(p.plan, scope, r)
}

// Instance runs a Block plan. It implements runtime.Block and must be used
// from a single goroutine.
type Instance struct {
	plan  *Block
	scope expr.Scope
	r     runtime.Renderer

	nodes  []runtime.Node
	blocks []runtime.Block
	slots  []runtime.Binding
}

func newInstance(plan *Block, scope expr.Scope, r runtime.Renderer) *Instance {
	return &Instance{plan: plan, scope: scope, r: r}
}

func (in *Instance) factory(body *Block) runtime.Factory {
	return func(scope expr.Scope) runtime.Block {
		return newInstance(body, scope, in.r)
	}
}

func (in *Instance) eval(slot int) (any, error) {
	return expr.Eval(in.plan.Slots[slot].Expr, in.scope)
}

// Create builds every node of the plan. Children are attached to their
// detached parents; top-level nodes wait for Insert.
func (in *Instance) Create() error {
	ops := in.plan.Ops
	in.nodes = make([]runtime.Node, len(ops))
	in.blocks = make([]runtime.Block, len(ops))
	in.slots = make([]runtime.Binding, len(in.plan.Slots))

	for i, op := range ops {
		switch op.Kind {
		case OpElement:
			n := in.r.CreateElement(op.Tag, op.Namespace)
			for _, a := range op.Attrs {
				if a.Slot < 0 {
					in.r.SetAttribute(n, a.Name, a.Value)
					continue
				}
				v, err := in.eval(a.Slot)
				if err != nil {
					return err
				}
				runtime.BindAttribute(in.r, &in.slots[a.Slot], n, a.Name, v)
			}
			in.nodes[i] = n

		case OpText:
			if op.Slot < 0 {
				in.nodes[i] = in.r.CreateText(op.Text)
				break
			}
			v, err := in.eval(op.Slot)
			if err != nil {
				return err
			}
			in.nodes[i] = runtime.BindText(in.r, &in.slots[op.Slot], v)

		case OpComment:
			in.nodes[i] = in.r.CreateComment(op.Text)

		case OpIf:
			in.blocks[i] = runtime.NewIfBlock(in.r, in.scope, op.Modifier, op.Expr.Func(), in.factory(op.Body))

		case OpEach:
			in.blocks[i] = runtime.NewEachBlock(in.r, in.scope, op.Expr.Func(), op.Item, op.Index, in.factory(op.Body))

		default:
			return fmt.Errorf("render: unknown op %s", op.Kind)
		}

		if b := in.blocks[i]; b != nil {
			if err := b.Create(); err != nil {
				return err
			}
		}

		if op.Parent >= 0 {
			parent := in.nodes[op.Parent]
			if b := in.blocks[i]; b != nil {
				b.Insert(parent, nil)
			} else {
				in.r.Insert(in.nodes[i], parent, nil)
			}
		}
	}
	return nil
}

// Insert attaches the top-level nodes and blocks to target before anchor
func (in *Instance) Insert(target, anchor runtime.Node) {
	for _, i := range in.plan.Top {
		if b := in.blocks[i]; b != nil {
			b.Insert(target, anchor)
		} else {
			in.r.Insert(in.nodes[i], target, anchor)
		}
	}
}

// Update re-evaluates every binding in document order and updates nested blocks
func (in *Instance) Update() error {
	for i, op := range in.plan.Ops {
		switch op.Kind {
		case OpElement:
			for _, a := range op.Attrs {
				if a.Slot < 0 {
					continue
				}
				v, err := in.eval(a.Slot)
				if err != nil {
					return err
				}
				in.slots[a.Slot].Set(v)
			}
		case OpText:
			if op.Slot < 0 {
				continue
			}
			v, err := in.eval(op.Slot)
			if err != nil {
				return err
			}
			in.slots[op.Slot].Set(v)
		case OpIf, OpEach:
			if err := in.blocks[i].Update(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Destroy detaches the top-level nodes and drops all references
func (in *Instance) Destroy() {
	if in.nodes == nil {
		return
	}
	for _, i := range in.plan.Top {
		if b := in.blocks[i]; b != nil {
			b.Destroy()
		} else if n := in.nodes[i]; n != nil {
			in.r.Remove(n)
		}
	}
	in.nodes, in.blocks, in.slots = nil, nil, nil
}

var _ runtime.Block = (*Instance)(nil)
