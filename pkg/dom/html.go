package dom

import (
	"html"
	"io"
	"strings"
)

// voidElements are HTML elements that cannot have children
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// booleanAttributes are HTML attributes that are boolean flags
var booleanAttributes = map[string]bool{
	"checked":   true,
	"disabled":  true,
	"readonly":  true,
	"required":  true,
	"selected":  true,
	"defer":     true,
	"async":     true,
	"multiple":  true,
	"autofocus": true,
	"hidden":    true,
}

// htmlWriter serializes nodes, keeping the first write error
type htmlWriter struct {
	w   io.Writer
	err error
}

// WriteHTML serializes n to w
func WriteHTML(w io.Writer, n *Node) error {
	hw := &htmlWriter{w: w}
	hw.node(n, false)
	return hw.err
}

// RenderHTML serializes n to a string
func RenderHTML(n *Node) string {
	var buf strings.Builder
	_ = WriteHTML(&buf, n)
	return buf.String()
}

func (h *htmlWriter) write(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) node(n *Node, raw bool) {
	if n == nil || h.err != nil {
		return
	}

	switch n.Kind {
	case TextNode:
		if raw {
			h.write(n.Text)
		} else {
			h.write(html.EscapeString(n.Text))
		}
	case CommentNode:
		h.write("<!--")
		h.write(n.Text)
		h.write("-->")
	case ElementNode:
		h.element(n)
	case FragmentNode:
		for _, c := range n.children {
			h.node(c, raw)
		}
	}
}

func (h *htmlWriter) element(n *Node) {
	h.write("<")
	h.write(n.Tag)

	for _, a := range n.attrs {
		h.write(" ")
		h.write(a.Name)
		if a.Bare {
			continue
		}

		value := a.Value
		// javascript: URLs are neutralised in href/src
		if (a.Name == "href" || a.Name == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "javascript:") {
			value = "#"
		}
		h.write(`="`)
		h.write(html.EscapeString(value))
		h.write(`"`)
	}
	h.write(">")

	if n.Namespace == "" && voidElements[n.Tag] {
		return
	}

	// script and style content is not escaped
	raw := n.Namespace == "" && (n.Tag == "script" || n.Tag == "style")
	for _, c := range n.children {
		h.node(c, raw)
	}

	h.write("</")
	h.write(n.Tag)
	h.write(">")
}
