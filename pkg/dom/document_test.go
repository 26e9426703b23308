package dom

import (
	"testing"
)

func TestRenderHTML(t *testing.T) {
	tests := []struct {
		name     string
		build    func(d *Document) *Node
		expected string
	}{
		{
			name: "text with HTML entities",
			build: func(d *Document) *Node {
				return d.CreateText("<script>alert('xss')</script>").(*Node)
			},
			expected: "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
		},
		{
			name: "element with attributes in insertion order",
			build: func(d *Document) *Node {
				div := d.CreateElement("div", "")
				d.SetAttribute(div, "id", "main")
				d.SetAttribute(div, "class", "container")
				return div.(*Node)
			},
			expected: `<div id="main" class="container"></div>`,
		},
		{
			name: "void element",
			build: func(d *Document) *Node {
				img := d.CreateElement("img", "")
				d.SetAttribute(img, "src", "a.png")
				return img.(*Node)
			},
			expected: `<img src="a.png">`,
		},
		{
			name: "boolean attributes",
			build: func(d *Document) *Node {
				in := d.CreateElement("input", "")
				d.SetAttribute(in, "disabled", "yes")
				d.SetAttribute(in, "checked", false)
				d.SetAttribute(in, "data-on", true)
				return in.(*Node)
			},
			expected: `<input disabled data-on>`,
		},
		{
			name: "nil removes",
			build: func(d *Document) *Node {
				p := d.CreateElement("p", "")
				d.SetAttribute(p, "title", "x")
				d.SetAttribute(p, "title", nil)
				d.SetAttribute(p, "tabindex", 3)
				return p.(*Node)
			},
			expected: `<p tabindex="3"></p>`,
		},
		{
			name: "javascript url",
			build: func(d *Document) *Node {
				a := d.CreateElement("a", "")
				d.SetAttribute(a, "href", "JavaScript:alert(1)")
				return a.(*Node)
			},
			expected: `<a href="#"></a>`,
		},
		{
			name: "raw style and comments",
			build: func(d *Document) *Node {
				style := d.CreateElement("style", "")
				d.Insert(d.CreateText("a > b {}"), style, nil)
				d.Insert(d.CreateComment(" c "), style, nil)
				return style.(*Node)
			},
			expected: `<style>a > b {}<!-- c --></style>`,
		},
		{
			name: "svg is not void",
			build: func(d *Document) *Node {
				return d.CreateElement("source", "http://www.w3.org/2000/svg").(*Node)
			},
			expected: `<source></source>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			if got := RenderHTML(tt.build(d)); got != tt.expected {
				t.Errorf("RenderHTML() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInsertAndRemove(t *testing.T) {
	d := New()
	ul := d.CreateElement("ul", "")
	d.Insert(ul, d.Root(), nil)

	anchor := d.CreateComment("")
	d.Insert(anchor, ul, nil)

	for _, s := range []string{"a", "b"} {
		li := d.CreateElement("li", "")
		d.Insert(d.CreateText(s), li, nil)
		d.Insert(li, ul, anchor)
	}
	if got, want := d.HTML(), "<ul><li>a</li><li>b</li><!----></ul>"; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}

	// nil parent resolves to the anchor's parent
	first := ul.(*Node).Children()[0]
	d.Insert(d.CreateText("!"), nil, first)
	if got, want := d.HTML(), "<ul>!<li>a</li><li>b</li><!----></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	d.Remove(first)
	if first.Parent() != nil {
		t.Error("removed node still has a parent")
	}
	if got, want := Text(d.Root()), "!b"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	// inserting an attached node moves it
	last := ul.(*Node).Children()[1]
	d.Insert(last, ul, ul.(*Node).Children()[0])
	if got, want := d.HTML(), "<ul><li>b</li>!<!----></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestJournal(t *testing.T) {
	d := New()
	p := d.CreateElement("p", "")
	text := d.CreateText("x")
	d.Insert(text, p, nil)
	d.Insert(p, d.Root(), nil)
	d.SetText(text, "y")
	d.SetAttribute(p, "class", "c")

	j := d.Journal()
	if got := j.Mutations(); got != 6 {
		t.Errorf("Mutations() = %d, want 6", got)
	}
	if got := j.Count(OpInsert); got != 2 {
		t.Errorf("Count(insert) = %d, want 2", got)
	}
	counts := j.Counts()
	if counts[OpSetText] != 1 || counts[OpSetAttribute] != 1 || counts[OpCreateElement] != 1 {
		t.Errorf("Counts() = %v", counts)
	}
	if got, want := j.Entries()[4].String(), `setText text "x" y`; got != want {
		t.Errorf("entry = %q, want %q", got, want)
	}

	j.Reset()
	if j.Mutations() != 0 {
		t.Errorf("Mutations() after Reset = %d, want 0", j.Mutations())
	}
}
