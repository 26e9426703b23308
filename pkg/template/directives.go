package template

import (
	"fmt"
	"strings"

	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/markup"
)

// Directive attribute names
const (
	ifPrefix     = "if:"
	forEachAttr  = "for:each"
	forItemAttr  = "for:item"
	forIndexAttr = "for:index"
)

type ifDirective struct {
	modifier  bool
	condition *expr.Expr
}

type forDirective struct {
	each  *expr.Expr
	item  *expr.Ident
	index *expr.Ident
}

// extractDirectives returns attrs without directive attributes, along with
// the parsed iteration and conditional directives, either of which may be
// nil. Only the first attribute of each directive is used; later duplicates
// are dropped unparsed. attrs is not modified.
func extractDirectives(attrs []markup.Attr) ([]markup.Attr, *ifDirective, *forDirective, error) {
	consumed := make(map[int]bool)

	find := func(prefix string) int {
		first := -1
		for i, a := range attrs {
			if !consumed[i] && strings.HasPrefix(a.Name, prefix) {
				consumed[i] = true
				if first < 0 {
					first = i
				}
			}
		}
		return first
	}

	var fd *forDirective
	if each := find(forEachAttr); each >= 0 {
		item := find(forItemAttr)
		index := find(forIndexAttr)

		e, err := expr.ParseExpression(attrs[each].Value)
		if err != nil {
			return nil, nil, nil, expressionError(fmt.Sprintf("attribute %q", attrs[each].Name), attrs[each].Value, err)
		}
		fd = &forDirective{each: e}

		if item >= 0 {
			if fd.item, err = expr.ParseIdentifier(attrs[item].Value); err != nil {
				return nil, nil, nil, expressionError(fmt.Sprintf("attribute %q", attrs[item].Name), attrs[item].Value, err)
			}
		}
		if index >= 0 {
			if fd.index, err = expr.ParseIdentifier(attrs[index].Value); err != nil {
				return nil, nil, nil, expressionError(fmt.Sprintf("attribute %q", attrs[index].Name), attrs[index].Value, err)
			}
		}
	}

	var id *ifDirective
	if i := find(ifPrefix); i >= 0 {
		var modifier bool
		switch m := strings.TrimPrefix(attrs[i].Name, ifPrefix); m {
		case "true":
			modifier = true
		case "false":
			modifier = false
		default:
			return nil, nil, nil, &Error{
				Kind:   ErrDirective,
				Msg:    fmt.Sprintf("invalid if modifier %q", m),
				Offset: -1,
			}
		}

		cond, err := expr.ParseExpression(attrs[i].Value)
		if err != nil {
			return nil, nil, nil, expressionError(fmt.Sprintf("attribute %q", attrs[i].Name), attrs[i].Value, err)
		}
		id = &ifDirective{modifier: modifier, condition: cond}
	}

	rest := make([]markup.Attr, 0, len(attrs)-len(consumed))
	for i, a := range attrs {
		if !consumed[i] {
			rest = append(rest, a)
		}
	}
	return rest, id, fd, nil
}
