package runtime

import "github.com/recera/lumen/pkg/expr"

// Binding is the memoized slot of one dynamic value: the last applied value
// and the function that applies a value to its node.
type Binding struct {
	value any
	apply func(any)
}

// Init stores v and applies it
func (b *Binding) Init(v any, apply func(any)) {
	b.value, b.apply = v, apply
	apply(v)
}

// Store records v as applied without calling apply. It is used when the node
// was created with v already in place.
func (b *Binding) Store(v any, apply func(any)) {
	b.value, b.apply = v, apply
}

// Set applies v if it is not strictly equal to the stored value and reports
// whether it did
func (b *Binding) Set(v any) bool {
	if expr.StrictEqual(b.value, v) {
		return false
	}
	b.value = v
	if b.apply != nil {
		b.apply(v)
	}
	return true
}

// Value returns the last applied value
func (b *Binding) Value() any {
	return b.value
}

// AttributeSetter returns an apply function setting name on n
func AttributeSetter(r Renderer, n Node, name string) func(any) {
	return func(v any) {
		r.SetAttribute(n, name, v)
	}
}

// TextSetter returns an apply function replacing the text of n
func TextSetter(r Renderer, n Node) func(any) {
	return func(v any) {
		r.SetText(n, expr.ToString(v))
	}
}

// BindAttribute sets name on n to v and records v in slot
func BindAttribute(r Renderer, slot *Binding, n Node, name string, v any) {
	slot.Init(v, AttributeSetter(r, n, name))
}

// BindText creates a text node showing v and records v in slot
func BindText(r Renderer, slot *Binding, v any) Node {
	n := r.CreateText(expr.ToString(v))
	slot.Store(v, TextSetter(r, n))
	return n
}
