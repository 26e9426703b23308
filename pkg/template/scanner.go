package template

import (
	"github.com/recera/lumen/pkg/expr"
)

// isSpace reports HTML whitespace. Vertical tab and no-break space are content.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// scanText splits a text run into alternating literal and expression nodes.
// Unless preserve is set, whitespace at the start of each literal run is
// dropped, so text made only of whitespace yields no nodes.
func scanText(text string, preserve bool) ([]Node, error) {
	var nodes []Node

	pos := 0
	for pos < len(text) {
		if !preserve {
			for pos < len(text) && isSpace(text[pos]) {
				pos++
			}
		}

		start := pos
		for pos < len(text) && text[pos] != '{' {
			pos++
		}
		if start != pos {
			nodes = append(nodes, &Text{Value: Value{Literal: text[start:pos]}})
		}

		if pos < len(text) && text[pos] == '{' {
			e, next, err := expr.ParseExpressionAt(text, pos)
			if err != nil {
				return nil, expressionError("text", text, err)
			}
			nodes = append(nodes, &Text{Value: Value{Expr: e}})
			pos = next
		}
	}

	return nodes, nil
}
