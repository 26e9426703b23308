// Package gogen emits a template's render program as Go source. The output
// implements the same create/insert/update plan as the interpreted
// render.Program, with one struct per block, one field per node and one
// runtime.Binding field per dynamic value.
package gogen

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/render"
	ast "github.com/recera/lumen/pkg/template"
)

// Default import paths of the packages generated code depends on
const (
	DefaultRuntimeImport = "github.com/recera/lumen/pkg/runtime"
	DefaultExprImport    = "github.com/recera/lumen/pkg/expr"
)

// Options control code generation
type Options struct {
	// Package is the package clause of the generated file
	Package string

	// Name is the exported template name; the constructor is New<Name>
	Name string

	// Source is the template path mentioned in the file header
	Source string

	RuntimeImport string
	ExprImport    string
}

func (o *Options) applyDefaults() {
	if o.Package == "" {
		o.Package = "views"
	}
	if o.Name == "" {
		o.Name = "Template"
	}
	if o.RuntimeImport == "" {
		o.RuntimeImport = DefaultRuntimeImport
	}
	if o.ExprImport == "" {
		o.ExprImport = DefaultExprImport
	}
}

const fileTemplate = `// Code generated by lumen; DO NOT EDIT.
{{- if .Source }}
// Source: {{ .Source }}
{{- end }}

package {{ .Package }}

import (
	expr {{ printf "%q" .ExprImport }}
	runtime {{ printf "%q" .RuntimeImport }}
)

// New{{ .Name }} returns the render program of the {{ .Name }} template
func New{{ .Name }}(scope expr.Scope, r runtime.Renderer) runtime.Block {
	return &{{ (index .Blocks 0).Type }}{scope: scope, r: r}
}
{{ range .Blocks }}
type {{ .Type }} struct {
	scope expr.Scope
	r     runtime.Renderer
{{- range .Fields }}
	{{ . }}
{{- end }}
}

func (b *{{ .Type }}) Create() (err error) {
	defer expr.Catch(&err)
{{- range .Create }}
	{{ . }}
{{- end }}
	return nil
}

func (b *{{ .Type }}) Insert(target, anchor runtime.Node) {
{{- range .Insert }}
	{{ . }}
{{- end }}
}

func (b *{{ .Type }}) Update() (err error) {
	defer expr.Catch(&err)
{{- range .Update }}
	{{ . }}
{{- end }}
	return nil
}

func (b *{{ .Type }}) Destroy() {
{{- range .Destroy }}
	{{ . }}
{{- end }}
	*b = {{ .Type }}{}
}
{{ end }}`

var fileTmpl = template.Must(template.New("file").Parse(fileTemplate))

type fileData struct {
	Options
	Blocks []*blockData
}

type blockData struct {
	Type    string
	Fields  []string
	Create  []string
	Insert  []string
	Update  []string
	Destroy []string
}

type generator struct {
	prefix string
	blocks []*blockData
}

// Generate returns the formatted Go source of root's render program
func Generate(root *ast.Root, opts Options) ([]byte, error) {
	opts.applyDefaults()
	if !isExported(opts.Name) {
		return nil, fmt.Errorf("gogen: template name %q is not an exported Go identifier", opts.Name)
	}

	plan, err := render.Lower(root)
	if err != nil {
		return nil, err
	}

	g := &generator{prefix: lowerFirst(opts.Name) + "Block"}
	if _, err := g.block(plan); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, fileData{Options: opts, Blocks: g.blocks}); err != nil {
		return nil, fmt.Errorf("gogen: executing template: %w", err)
	}

	formatted, err := imports.Process(opts.Name+".go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gogen: failed to format generated code: %w", err)
	}
	return formatted, nil
}

// block emits the type for plan and the types of its bodies, returning the type name
func (g *generator) block(plan *render.Block) (string, error) {
	bd := &blockData{Type: g.prefix + strconv.Itoa(len(g.blocks))}
	g.blocks = append(g.blocks, bd)

	// fields
	for i, op := range plan.Ops {
		if op.Kind.IsBlock() {
			bd.Fields = append(bd.Fields, fmt.Sprintf("b%d runtime.Block", i))
		} else {
			bd.Fields = append(bd.Fields, fmt.Sprintf("n%d runtime.Node", i))
		}
	}
	for i := range plan.Slots {
		bd.Fields = append(bd.Fields, fmt.Sprintf("s%d runtime.Binding", i))
	}

	for i, op := range plan.Ops {
		if err := g.op(bd, plan, i, op); err != nil {
			return "", err
		}
	}

	for _, i := range plan.Top {
		if plan.Ops[i].Kind.IsBlock() {
			bd.Insert = append(bd.Insert, fmt.Sprintf("b.b%d.Insert(target, anchor)", i))
			bd.Destroy = append(bd.Destroy, fmt.Sprintf("if b.b%d != nil {\nb.b%[1]d.Destroy()\n}", i))
		} else {
			bd.Insert = append(bd.Insert, fmt.Sprintf("b.r.Insert(b.n%d, target, anchor)", i))
			bd.Destroy = append(bd.Destroy, fmt.Sprintf("if b.n%d != nil {\nb.r.Remove(b.n%[1]d)\n}", i))
		}
	}
	return bd.Type, nil
}

func (g *generator) op(bd *blockData, plan *render.Block, i int, op render.Op) error {
	switch op.Kind {
	case render.OpElement:
		bd.Create = append(bd.Create, fmt.Sprintf("b.n%d = b.r.CreateElement(%q, %q)", i, op.Tag, op.Namespace))
		for _, a := range op.Attrs {
			if a.Slot < 0 {
				bd.Create = append(bd.Create, fmt.Sprintf("b.r.SetAttribute(b.n%d, %q, %q)", i, a.Name, a.Value))
				continue
			}
			src, err := goExpr(plan.Slots[a.Slot].Expr, "b.scope")
			if err != nil {
				return err
			}
			bd.Create = append(bd.Create, fmt.Sprintf("runtime.BindAttribute(b.r, &b.s%d, b.n%d, %q, %s)", a.Slot, i, a.Name, src))
			bd.Update = append(bd.Update, fmt.Sprintf("b.s%d.Set(%s)", a.Slot, src))
		}

	case render.OpText:
		if op.Slot < 0 {
			bd.Create = append(bd.Create, fmt.Sprintf("b.n%d = b.r.CreateText(%q)", i, op.Text))
			break
		}
		src, err := goExpr(plan.Slots[op.Slot].Expr, "b.scope")
		if err != nil {
			return err
		}
		bd.Create = append(bd.Create, fmt.Sprintf("b.n%d = runtime.BindText(b.r, &b.s%d, %s)", i, op.Slot, src))
		bd.Update = append(bd.Update, fmt.Sprintf("b.s%d.Set(%s)", op.Slot, src))

	case render.OpComment:
		bd.Create = append(bd.Create, fmt.Sprintf("b.n%d = b.r.CreateComment(%q)", i, op.Text))

	case render.OpIf, render.OpEach:
		body, err := g.block(op.Body)
		if err != nil {
			return err
		}
		src, err := goExpr(op.Expr, "scope")
		if err != nil {
			return err
		}
		eval := fmt.Sprintf("expr.Guard(func(scope expr.Scope) any { return %s })", src)
		factory := fmt.Sprintf("func(scope expr.Scope) runtime.Block { return &%s{scope: scope, r: b.r} }", body)
		if op.Kind == render.OpIf {
			bd.Create = append(bd.Create, fmt.Sprintf("b.b%d = runtime.NewIfBlock(b.r, b.scope, %t, %s, %s)", i, op.Modifier, eval, factory))
		} else {
			bd.Create = append(bd.Create, fmt.Sprintf("b.b%d = runtime.NewEachBlock(b.r, b.scope, %s, %q, %q, %s)", i, eval, op.Item, op.Index, factory))
		}
		bd.Create = append(bd.Create, fmt.Sprintf("if err = b.b%d.Create(); err != nil {\nreturn err\n}", i))
		bd.Update = append(bd.Update, fmt.Sprintf("if err = b.b%d.Update(); err != nil {\nreturn err\n}", i))

	default:
		return fmt.Errorf("gogen: unknown op %s", op.Kind)
	}

	if op.Parent >= 0 {
		if op.Kind.IsBlock() {
			bd.Create = append(bd.Create, fmt.Sprintf("b.b%d.Insert(b.n%d, nil)", i, op.Parent))
		} else {
			bd.Create = append(bd.Create, fmt.Sprintf("b.r.Insert(b.n%d, b.n%d, nil)", i, op.Parent))
		}
	}
	return nil
}

func goExpr(e *expr.Expr, scope string) (string, error) {
	src, err := expr.GoSource(e, scope)
	if err != nil {
		return "", fmt.Errorf("gogen: {%s}: %w", e.Raw, err)
	}
	return src, nil
}

// Identifier derives an exported Go identifier from a template file name:
// "todo-list.lumen.html" becomes "TodoList".
func Identifier(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}

	var b strings.Builder
	upper := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}

	name := b.String()
	if name == "" || !unicode.IsLetter([]rune(name)[0]) {
		name = "T" + name
	}
	return name
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if !unicode.IsLetter(r) && r != '_' && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return unicode.IsUpper([]rune(name)[0])
}

func lowerFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
