package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/recera/lumen/pkg/dom"
	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/markup"
	"github.com/recera/lumen/pkg/runtime"
	"github.com/recera/lumen/pkg/template"
)

func mount(t *testing.T, src string, scope expr.Scope) (*dom.Document, *Instance) {
	t.Helper()
	p, err := CompileSource(src, template.Config{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	d := dom.New()
	in := p.New(scope, d)
	if err := runtime.Mount(in, d.Root()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return d, in
}

func update(t *testing.T, d *dom.Document, in *Instance) *dom.Journal {
	t.Helper()
	d.Journal().Reset()
	if err := in.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	return d.Journal()
}

func TestLiteralTemplateUpdateIsNoop(t *testing.T) {
	d, in := mount(t, `<template><div class="a"><p>Hello</p><!--c--></div>text</template>`, nil)

	if got, want := d.HTML(), `<div class="a"><p>Hello</p><!--c--></div>text`; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}
	for i := 0; i < 3; i++ {
		if n := update(t, d, in).Mutations(); n != 0 {
			t.Errorf("update %d performed %d mutations, want 0", i, n)
		}
	}
}

func TestMemoizedAttribute(t *testing.T) {
	scope := expr.MapScope{"cls": "a"}
	d, in := mount(t, `<template><div class="{cls}"></div></template>`, scope)

	if n := update(t, d, in).Mutations(); n != 0 {
		t.Errorf("unchanged value caused %d mutations", n)
	}

	scope["cls"] = "b"
	j := update(t, d, in)
	if n := j.Mutations(); n != 1 || j.Count(dom.OpSetAttribute) != 1 {
		t.Errorf("changed value caused %d mutations, want exactly one setAttribute", n)
	}
	if got, want := d.HTML(), `<div class="b"></div>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	// the slot now holds "b"
	if n := update(t, d, in).Mutations(); n != 0 {
		t.Errorf("second update with the same value caused %d mutations", n)
	}
}

func TestFixtureRoundTrip(t *testing.T) {
	scope := expr.MapScope{"divClass": "foo", "divStyle": "color: red"}

	p, err := CompileSource(`<template><div class="{divClass}" style="{divStyle}"></div></template>`, template.Config{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := p.Stats(); got != (Stats{Nodes: 1, Bindings: 2}) {
		t.Errorf("Stats() = %+v", got)
	}

	d := dom.New()
	in := p.New(scope, d)
	if err := in.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := d.Journal().Count(dom.OpSetAttribute); got != 2 {
		t.Errorf("create set %d attributes, want 2", got)
	}
	if got := d.HTML(); got != "" {
		t.Errorf("create attached nodes: %q", got)
	}

	in.Insert(d.Root(), nil)
	if got, want := d.HTML(), `<div class="foo" style="color: red"></div>`; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}

	scope["divStyle"] = "color: blue"
	j := update(t, d, in)
	if n := j.Mutations(); n != 1 {
		t.Fatalf("update performed %d mutations, want 1", n)
	}
	if got, want := j.Entries()[0].Detail, "style=color: blue"; got != want {
		t.Errorf("update touched %q, want %q", got, want)
	}
	if got, want := d.HTML(), `<div class="foo" style="color: blue"></div>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestDynamicText(t *testing.T) {
	scope := expr.MapScope{"name": "Ann", "n": 1}
	d, in := mount(t, `<template><p>Hi {name}! {n + 1}</p></template>`, scope)

	if got, want := d.HTML(), `<p>Hi Ann! 2</p>`; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}
	if got := d.Journal().Count(dom.OpSetText); got != 0 {
		t.Errorf("create called setText %d times, want 0", got)
	}

	scope["name"] = "Bo"
	j := update(t, d, in)
	if j.Mutations() != 1 || j.Count(dom.OpSetText) != 1 {
		t.Errorf("update journal:\n%s", j)
	}
	if got, want := d.HTML(), `<p>Hi Bo! 2</p>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestIfBlockToggle(t *testing.T) {
	scope := expr.MapScope{"show": true, "label": "x"}
	d, in := mount(t, `<template><ul><li if:true="{show}">{label}</li><li if:false="{show}">none</li></ul></template>`, scope)

	if got, want := d.HTML(), `<ul><li>x</li><!----><!----></ul>`; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}

	scope["show"] = false
	update(t, d, in)
	if got, want := d.HTML(), `<ul><!----><li>none</li><!----></ul>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	// the destroyed branch is not evaluated while hidden
	scope["label"] = "y"
	if n := update(t, d, in).Mutations(); n != 0 {
		t.Errorf("hidden branch caused %d mutations", n)
	}

	scope["show"] = true
	update(t, d, in)
	if got, want := d.HTML(), `<ul><li>y</li><!----><!----></ul>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestEachBlock(t *testing.T) {
	a := map[string]any{"name": "a"}
	b := map[string]any{"name": "b"}
	scope := expr.MapScope{"items": []any{a, b}}
	d, in := mount(t, `<template><ul><li for:each="{items}" for:item="it" for:index="i">{i}:{it.name}</li></ul></template>`, scope)

	if got, want := d.HTML(), `<ul><li>0:a</li><li>1:b</li><!----></ul>`; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}

	scope["items"] = []any{a, b, map[string]any{"name": "c"}}
	j := update(t, d, in)
	if got := j.Count(dom.OpSetText); got != 0 {
		t.Errorf("surviving items performed %d setText calls, want 0", got)
	}
	if got, want := d.HTML(), `<ul><li>0:a</li><li>1:b</li><li>2:c</li><!----></ul>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	// removing the first item shifts the others by position
	scope["items"] = []any{b}
	j = update(t, d, in)
	if got := j.Count(dom.OpRemove); got != 2 {
		t.Errorf("remove calls = %d, want 2", got)
	}
	if got, want := d.HTML(), `<ul><li>0:b</li><!----></ul>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestForWrapsIf(t *testing.T) {
	a := map[string]any{"name": "a", "on": true}
	b := map[string]any{"name": "b", "on": false}
	scope := expr.MapScope{"items": []any{a, b}}
	d, in := mount(t, `<template><ul><li for:each="{items}" for:item="it" if:true="{it.on}">{it.name}</li></ul></template>`, scope)

	if got, want := d.HTML(), `<ul><li>a</li><!----><!----><!----></ul>`; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}

	b["on"] = true
	update(t, d, in)
	if got, want := d.HTML(), `<ul><li>a</li><!----><li>b</li><!----><!----></ul>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestNamespaceAndAnchor(t *testing.T) {
	p, err := CompileSource(`<template><svg><circle r="{r}"></circle></svg></template>`, template.Config{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	d := dom.New()
	marker := d.CreateComment("end")
	d.Insert(marker, d.Root(), nil)

	in := p.New(expr.MapScope{"r": 4}, d)
	if err := in.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	in.Insert(d.Root(), marker)

	if got, want := d.HTML(), `<svg><circle r="4"></circle></svg><!--end-->`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	svg := d.Root().Children()[0]
	if svg.Namespace != markup.SVGNamespace || svg.Children()[0].Namespace != markup.SVGNamespace {
		t.Errorf("svg elements were created without the SVG namespace")
	}

	in.Destroy()
	if got, want := d.HTML(), `<!--end-->`; got != want {
		t.Errorf("HTML() after Destroy = %q, want %q", got, want)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	p, err := CompileSource(`<template><b>{v}</b></template>`, template.Config{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	d1, d2 := dom.New(), dom.New()
	s1, s2 := expr.MapScope{"v": 1}, expr.MapScope{"v": 2}
	i1, i2 := p.New(s1, d1), p.New(s2, d2)
	for _, m := range []struct {
		in *Instance
		d  *dom.Document
	}{{i1, d1}, {i2, d2}} {
		if err := runtime.Mount(m.in, m.d.Root()); err != nil {
			t.Fatalf("mount: %v", err)
		}
	}

	s1["v"] = 10
	update(t, d1, i1)
	update(t, d2, i2)
	if d1.HTML() != "<b>10</b>" || d2.HTML() != "<b>2</b>" {
		t.Errorf("got %q and %q", d1.HTML(), d2.HTML())
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		scope   expr.MapScope
		wantMsg string
	}{
		{name: "division by zero", src: `<template><p>{a / 0}</p></template>`, scope: expr.MapScope{"a": 1}, wantMsg: "integer division by zero"},
		{name: "not iterable", src: `<template><p for:each="{n}"></p></template>`, scope: expr.MapScope{"n": 5}, wantMsg: "not iterable"},
		{name: "attribute", src: `<template><p class="{s - 1}"></p></template>`, scope: expr.MapScope{"s": "x"}, wantMsg: "invalid operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompileSource(tt.src, template.Config{})
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			err = p.New(tt.scope, dom.New()).Create()
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Create() error = %v, want %q", err, tt.wantMsg)
			}
		})
	}

	// errors raised by a later update are returned as well
	scope := expr.MapScope{"d": 1}
	d, in := mount(t, `<template><p>{10 / d}</p></template>`, scope)
	scope["d"] = 0
	d.Journal().Reset()
	var ee *expr.EvalError
	if err := in.Update(); !errors.As(err, &ee) {
		t.Errorf("Update() error = %v, want *expr.EvalError", err)
	}
}

func TestCompileErrors(t *testing.T) {
	p, err := CompileSource(`<template><p if:sometimes="{x}"></p></template>`, template.Config{})
	if p != nil || !errors.Is(err, template.ErrDirective) {
		t.Errorf("CompileSource() = %v, %v; want directive error and no program", p, err)
	}
}

func TestStats(t *testing.T) {
	p, err := CompileSource(`<template><ul class="{c}"><li for:each="{xs}" for:item="x" if:true="{x}">{x}</li></ul></template>`, template.Config{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := Stats{Nodes: 3, Bindings: 2, Blocks: 2}
	if got := p.Stats(); got != want {
		t.Errorf("Stats() = %v, want %v", got, want)
	}
}

func TestDump(t *testing.T) {
	p, err := CompileSource(`<template><ul class="{c}" id="list"><li for:each="{xs}" for:item="x" if:true="{x}">{x}</li></ul><!--end--></template>`, template.Config{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := `n0 <ul> class=s0{c} id="list"
b1 each {xs} item=x in n0
  b0 if:true {x}
    n0 <li>
    n1 text s0{x} in n0
n2 comment "end"
`
	if got := p.Plan().Dump(); got != want {
		t.Errorf("Dump() =\n%s\nwant\n%s", got, want)
	}
}

func BenchmarkUpdate(b *testing.B) {
	items := make([]any, 100)
	for i := range items {
		items[i] = map[string]any{"name": "row", "on": i%2 == 0}
	}
	scope := expr.MapScope{"items": items, "title": "bench"}
	p, err := CompileSource(`<template><h1>{title}</h1><ul><li for:each="{items}" for:item="it" if:true="{it.on}" class="{it.name}">{it.name}</li></ul></template>`, template.Config{})
	if err != nil {
		b.Fatal(err)
	}
	in := p.New(scope, dom.New())
	if err := in.Create(); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := in.Update(); err != nil {
			b.Fatal(err)
		}
	}
}
