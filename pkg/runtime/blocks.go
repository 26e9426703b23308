package runtime

import (
	"fmt"

	"github.com/recera/lumen/pkg/expr"
)

// Factory builds the block for one rendering of a structural child
type Factory func(scope expr.Scope) Block

// IfBlock renders its child while the condition's truthiness equals the
// modifier. A comment node marks its position in the parent.
type IfBlock struct {
	r        Renderer
	scope    expr.Scope
	modifier bool
	cond     expr.EvalFunc
	factory  Factory

	anchor Node
	parent Node
	child  Block
}

// NewIfBlock returns an IfBlock; nothing is evaluated until Create
func NewIfBlock(r Renderer, scope expr.Scope, modifier bool, cond expr.EvalFunc, factory Factory) *IfBlock {
	return &IfBlock{r: r, scope: scope, modifier: modifier, cond: cond, factory: factory}
}

func (b *IfBlock) visible() (bool, error) {
	v, err := b.cond(b.scope)
	if err != nil {
		return false, err
	}
	return expr.Truthy(v) == b.modifier, nil
}

func (b *IfBlock) Create() error {
	b.anchor = b.r.CreateComment("")
	show, err := b.visible()
	if err != nil {
		return err
	}
	if show {
		child := b.factory(b.scope)
		if err := child.Create(); err != nil {
			return err
		}
		b.child = child
	}
	return nil
}

func (b *IfBlock) Insert(target, anchor Node) {
	b.parent = target
	if b.child != nil {
		b.child.Insert(target, anchor)
	}
	b.r.Insert(b.anchor, target, anchor)
}

func (b *IfBlock) Update() error {
	show, err := b.visible()
	if err != nil {
		return err
	}

	switch {
	case show && b.child != nil:
		return b.child.Update()
	case show:
		if debugLog != nil {
			debugLog("[IfBlock] condition became", b.modifier, "- creating child")
		}
		child := b.factory(b.scope)
		if err := child.Create(); err != nil {
			return err
		}
		child.Insert(b.parent, b.anchor)
		b.child = child
	case b.child != nil:
		if debugLog != nil {
			debugLog("[IfBlock] condition became", !b.modifier, "- destroying child")
		}
		b.child.Destroy()
		b.child = nil
	}
	return nil
}

func (b *IfBlock) Destroy() {
	if b.child != nil {
		b.child.Destroy()
		b.child = nil
	}
	if b.anchor != nil {
		b.r.Remove(b.anchor)
	}
}

// EachBlock renders its child once per element of an iterable. Items are
// reconciled by position: surviving positions are rebound and updated, new
// positions are created before the anchor, and removed positions are
// destroyed.
type EachBlock struct {
	r         Renderer
	scope     expr.Scope
	items     expr.EvalFunc
	itemName  string
	indexName string
	factory   Factory

	anchor Node
	parent Node
	rows   []eachRow
}

type eachRow struct {
	scope *ChildScope
	block Block
}

// NewEachBlock returns an EachBlock. itemName and indexName may be empty.
func NewEachBlock(r Renderer, scope expr.Scope, items expr.EvalFunc, itemName, indexName string, factory Factory) *EachBlock {
	return &EachBlock{
		r:         r,
		scope:     scope,
		items:     items,
		itemName:  itemName,
		indexName: indexName,
		factory:   factory,
	}
}

func (b *EachBlock) list() ([]any, error) {
	v, err := b.items(b.scope)
	if err != nil {
		return nil, err
	}
	list, err := expr.Iterate(v)
	if err != nil {
		return nil, fmt.Errorf("for:each: %w", err)
	}
	return list, nil
}

func (b *EachBlock) newRow(item any, index int) (eachRow, error) {
	scope := NewChildScope(b.scope, b.itemName, b.indexName)
	scope.Bind(item, index)
	row := eachRow{scope: scope, block: b.factory(scope)}
	return row, row.block.Create()
}

func (b *EachBlock) Create() error {
	b.anchor = b.r.CreateComment("")
	list, err := b.list()
	if err != nil {
		return err
	}
	b.rows = make([]eachRow, 0, len(list))
	for i, item := range list {
		row, err := b.newRow(item, i)
		if err != nil {
			return err
		}
		b.rows = append(b.rows, row)
	}
	return nil
}

func (b *EachBlock) Insert(target, anchor Node) {
	b.parent = target
	for _, row := range b.rows {
		row.block.Insert(target, anchor)
	}
	b.r.Insert(b.anchor, target, anchor)
}

func (b *EachBlock) Update() error {
	list, err := b.list()
	if err != nil {
		return err
	}

	n := min(len(b.rows), len(list))
	for i := 0; i < n; i++ {
		b.rows[i].scope.Bind(list[i], i)
		if err := b.rows[i].block.Update(); err != nil {
			return err
		}
	}

	for i := n; i < len(list); i++ {
		row, err := b.newRow(list[i], i)
		if err != nil {
			return err
		}
		row.block.Insert(b.parent, b.anchor)
		b.rows = append(b.rows, row)
	}

	if len(b.rows) > len(list) {
		if debugLog != nil {
			debugLog("[EachBlock] removing", len(b.rows)-len(list), "rows")
		}
		for i := len(list); i < len(b.rows); i++ {
			b.rows[i].block.Destroy()
		}
		clear(b.rows[len(list):])
		b.rows = b.rows[:len(list)]
	}
	return nil
}

func (b *EachBlock) Destroy() {
	for _, row := range b.rows {
		row.block.Destroy()
	}
	b.rows = nil
	if b.anchor != nil {
		b.r.Remove(b.anchor)
	}
}

// Len returns the number of rendered rows
func (b *EachBlock) Len() int {
	return len(b.rows)
}

// ChildScope binds the item and index names of one iteration over a parent scope
type ChildScope struct {
	parent    expr.Scope
	itemName  string
	indexName string
	item      any
	index     int
}

// NewChildScope returns a scope overlaying itemName and indexName on parent.
// Empty names are not bound.
func NewChildScope(parent expr.Scope, itemName, indexName string) *ChildScope {
	return &ChildScope{parent: parent, itemName: itemName, indexName: indexName}
}

// Bind sets the current item and index
func (s *ChildScope) Bind(item any, index int) {
	s.item, s.index = item, index
}

// Lookup implements expr.Scope
func (s *ChildScope) Lookup(name string) (any, bool) {
	switch {
	case s.itemName != "" && name == s.itemName:
		return s.item, true
	case s.indexName != "" && name == s.indexName:
		return s.index, true
	case s.parent == nil:
		return nil, false
	}
	return s.parent.Lookup(name)
}
