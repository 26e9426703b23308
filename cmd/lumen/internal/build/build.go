// Package build compiles template files into Go source files, consulting the
// artifact cache before running the compiler.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/tools/go/packages"

	"github.com/recera/lumen/internal/cache"
	"github.com/recera/lumen/pkg/render"
	"github.com/recera/lumen/pkg/render/gogen"
	"github.com/recera/lumen/pkg/template"
)

// DefaultExtension identifies template files
const DefaultExtension = ".lumen.html"

// Options configure a Builder
type Options struct {
	// Package overrides the package clause; empty means detect per directory
	Package string

	PreserveWhitespaces bool
	RuntimeImport       string
	ExprImport          string

	// Extension of template files, DefaultExtension when empty
	Extension string

	// Cache, when set, is consulted before compiling
	Cache *cache.Cache
}

// Result describes one compiled template
type Result struct {
	Source   string
	Output   string
	Name     string
	Package  string
	Cached   bool
	Stats    render.Stats
	Duration time.Duration
}

// Builder compiles templates. It is not safe for concurrent use.
type Builder struct {
	opts     Options
	pkgNames map[string]string
}

// New returns a Builder
func New(opts Options) *Builder {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	return &Builder{opts: opts, pkgNames: make(map[string]string)}
}

// Extension returns the template file suffix
func (b *Builder) Extension() string {
	return b.opts.Extension
}

// IsTemplate reports whether path names a template file
func (b *Builder) IsTemplate(path string) bool {
	return strings.HasSuffix(path, b.opts.Extension)
}

// OutputPath returns the generated file path for a template:
// "card.lumen.html" becomes "card.lumen.go"
func (b *Builder) OutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".go"
}

// ProcessFile compiles one template and writes the generated file next to it
func (b *Builder) ProcessFile(path string) (*Result, error) {
	start := time.Now()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	res := &Result{
		Source:  path,
		Output:  b.OutputPath(path),
		Name:    gogen.Identifier(path),
		Package: b.packageFor(filepath.Dir(path)),
	}
	opts := gogen.Options{
		Package:       res.Package,
		Name:          res.Name,
		Source:        filepath.ToSlash(filepath.Base(path)),
		RuntimeImport: b.opts.RuntimeImport,
		ExprImport:    b.opts.ExprImport,
	}

	var key string
	if b.opts.Cache != nil {
		key = cache.Key(src, opts.Package, opts.Name, opts.Source, opts.RuntimeImport, opts.ExprImport,
			strconv.FormatBool(b.opts.PreserveWhitespaces))
		if code, ok := b.opts.Cache.Get(key); ok {
			if err := writeIfChanged(res.Output, code); err != nil {
				return nil, err
			}
			res.Cached = true
			res.Duration = time.Since(start)
			return res, nil
		}
	}

	root, err := template.Parse(string(src), template.Config{PreserveWhitespaces: b.opts.PreserveWhitespaces})
	if err != nil {
		return nil, NewDiagnostic(path, string(src), err)
	}
	plan, err := render.Lower(root)
	if err != nil {
		return nil, NewDiagnostic(path, string(src), err)
	}
	res.Stats = plan.Stats()

	code, err := gogen.Generate(root, opts)
	if err != nil {
		return nil, NewDiagnostic(path, string(src), err)
	}
	if err := writeIfChanged(res.Output, code); err != nil {
		return nil, err
	}

	if b.opts.Cache != nil {
		if err := b.opts.Cache.PutWithSource(key, code, path); err != nil {
			// the generated file is already written
			fmt.Fprintf(os.Stderr, "Warning: failed to cache %s: %v\n", path, err)
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

// ProcessDirectory compiles every template under dir. Failing templates do
// not stop the walk; their errors are returned alongside the results.
func (b *Builder) ProcessDirectory(dir string) ([]*Result, []error, error) {
	files, err := b.Templates(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}

	var (
		results []*Result
		errs    []error
	)
	for _, path := range files {
		res, err := b.ProcessFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs, nil
}

// Templates lists the template files under dir, skipping hidden, vendor and
// node_modules directories
func (b *Builder) Templates(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if b.IsTemplate(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (b *Builder) packageFor(dir string) string {
	if b.opts.Package != "" {
		return b.opts.Package
	}
	if name, ok := b.pkgNames[dir]; ok {
		return name
	}
	name := PackageName(dir)
	b.pkgNames[dir] = name
	return name
}

// PackageName returns the name of the Go package in dir. Directories without
// Go files, or outside a module, fall back to a name derived from the
// directory.
func PackageName(dir string) string {
	if hasGoFiles(dir) {
		cfg := &packages.Config{
			Mode: packages.NeedName,
			Dir:  dir,
		}
		pkgs, err := packages.Load(cfg, ".")
		if err == nil && len(pkgs) == 1 && pkgs[0].Name != "" && len(pkgs[0].Errors) == 0 {
			return pkgs[0].Name
		}
	}
	return dirPackageName(dir)
}

func hasGoFiles(dir string) bool {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.go"))
	return len(matches) > 0
}

func dirPackageName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	var b strings.Builder
	for _, r := range strings.ToLower(filepath.Base(abs)) {
		if r >= 'a' && r <= 'z' || r == '_' || (r >= '0' && r <= '9' && b.Len() > 0) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "views"
	}
	return b.String()
}

func writeIfChanged(path string, data []byte) error {
	if old, err := os.ReadFile(path); err == nil && string(old) == string(data) {
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
