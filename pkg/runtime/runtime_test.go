package runtime_test

import (
	"strings"
	"testing"

	"github.com/recera/lumen/pkg/dom"
	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/runtime"
)

// itemBlock renders <li>{name}</li>
type itemBlock struct {
	r     runtime.Renderer
	scope expr.Scope
	name  string

	li, text runtime.Node
	label    runtime.Binding
}

func itemFactory(r runtime.Renderer, name string) runtime.Factory {
	return func(scope expr.Scope) runtime.Block {
		return &itemBlock{r: r, scope: scope, name: name}
	}
}

func (b *itemBlock) Create() error {
	v := expr.Lookup(b.scope, b.name)
	b.li = b.r.CreateElement("li", "")
	b.text = b.r.CreateText(expr.ToString(v))
	b.label.Store(v, runtime.TextSetter(b.r, b.text))
	b.r.Insert(b.text, b.li, nil)
	return nil
}

func (b *itemBlock) Insert(target, anchor runtime.Node) {
	b.r.Insert(b.li, target, anchor)
}

func (b *itemBlock) Update() error {
	b.label.Set(expr.Lookup(b.scope, b.name))
	return nil
}

func (b *itemBlock) Destroy() {
	b.r.Remove(b.li)
}

func TestBinding(t *testing.T) {
	var applied []any
	apply := func(v any) { applied = append(applied, v) }

	var b runtime.Binding
	b.Init("a", apply)
	if len(applied) != 1 {
		t.Fatalf("Init applied %d times, want 1", len(applied))
	}
	if b.Set("a") {
		t.Error("Set with an equal value reported a change")
	}
	if !b.Set("b") || b.Value() != "b" {
		t.Errorf("Set(b) did not update the slot: %v", b.Value())
	}
	if b.Set(1) != true || b.Set(1.0) != true {
		t.Error("values of different types must be applied")
	}
	if got, want := len(applied), 4; got != want {
		t.Errorf("applied %d times, want %d", got, want)
	}

	var s runtime.Binding
	s.Store(nil, apply)
	if s.Set(nil) {
		t.Error("Set(nil) after Store(nil) reported a change")
	}
	if got, want := len(applied), 4; got != want {
		t.Errorf("Store applied the value")
	}
}

func TestIfBlock(t *testing.T) {
	tests := []struct {
		name     string
		modifier bool
		initial  bool
	}{
		{name: "if:true", modifier: true, initial: true},
		{name: "if:false", modifier: false, initial: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dom.New()
			scope := expr.MapScope{"show": tt.initial, "label": "x"}
			b := runtime.NewIfBlock(d, scope, tt.modifier, expr.MustParse("{show}").Func(), itemFactory(d, "label"))

			if err := runtime.Mount(b, d.Root()); err != nil {
				t.Fatalf("Mount: %v", err)
			}
			if got, want := d.HTML(), "<li>x</li><!---->"; got != want {
				t.Fatalf("HTML() = %q, want %q", got, want)
			}

			d.Journal().Reset()
			if err := b.Update(); err != nil {
				t.Fatalf("Update: %v", err)
			}
			if n := d.Journal().Mutations(); n != 0 {
				t.Errorf("unchanged update performed %d mutations", n)
			}

			scope["show"] = !tt.initial
			if err := b.Update(); err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got, want := d.HTML(), "<!---->"; got != want {
				t.Errorf("HTML() after hide = %q, want %q", got, want)
			}
			if n := d.Journal().Count(dom.OpRemove); n != 1 {
				t.Errorf("hide removed %d nodes, want 1", n)
			}

			scope["show"] = tt.initial
			scope["label"] = "y"
			if err := b.Update(); err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got, want := d.HTML(), "<li>y</li><!---->"; got != want {
				t.Errorf("HTML() after show = %q, want %q", got, want)
			}

			b.Destroy()
			if got := d.HTML(); got != "" {
				t.Errorf("HTML() after Destroy = %q, want empty", got)
			}
		})
	}
}

func TestEachBlock(t *testing.T) {
	d := dom.New()
	scope := expr.MapScope{"items": []any{"a", "b"}}
	b := runtime.NewEachBlock(d, scope, expr.MustParse("{items}").Func(), "item", "", itemFactory(d, "item"))

	if err := runtime.Mount(b, d.Root()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if got, want := d.HTML(), "<li>a</li><li>b</li><!---->"; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}

	// grow: one changed item, one new item
	scope["items"] = []any{"a", "c", "d"}
	d.Journal().Reset()
	if err := b.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, want := d.HTML(), "<li>a</li><li>c</li><li>d</li><!---->"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	counts := d.Journal().Counts()
	if counts[dom.OpSetText] != 1 {
		t.Errorf("setText calls = %d, want 1 (only the changed item)", counts[dom.OpSetText])
	}
	if counts[dom.OpCreateElement] != 1 {
		t.Errorf("createElement calls = %d, want 1", counts[dom.OpCreateElement])
	}

	// shrink
	scope["items"] = []any{"a"}
	d.Journal().Reset()
	if err := b.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, want := d.HTML(), "<li>a</li><!---->"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if got := d.Journal().Count(dom.OpRemove); got != 2 {
		t.Errorf("remove calls = %d, want 2", got)
	}
	if got := d.Journal().Count(dom.OpSetText); got != 0 {
		t.Errorf("surviving item was re-rendered %d times", got)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}

	// clear
	scope["items"] = nil
	if err := b.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, want := d.HTML(), "<!---->"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestEachBlockNotIterable(t *testing.T) {
	d := dom.New()
	b := runtime.NewEachBlock(d, expr.MapScope{"items": 5}, expr.MustParse("{items}").Func(), "", "", itemFactory(d, "x"))
	err := b.Create()
	if err == nil || !strings.Contains(err.Error(), "not iterable") {
		t.Errorf("Create() error = %v, want not iterable", err)
	}
}

func TestChildScope(t *testing.T) {
	parent := expr.MapScope{"item": "outer", "title": "t"}
	s := runtime.NewChildScope(parent, "item", "i")
	s.Bind("inner", 2)

	tests := []struct {
		name string
		want any
		ok   bool
	}{
		{"item", "inner", true},
		{"i", 2, true},
		{"title", "t", true},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		got, ok := s.Lookup(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}

	unnamed := runtime.NewChildScope(nil, "", "")
	unnamed.Bind("x", 0)
	if _, ok := unnamed.Lookup(""); ok {
		t.Error("empty names must not be bound")
	}
}
