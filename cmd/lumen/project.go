package main

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/recera/lumen/cmd/lumen/internal/build"
	"github.com/recera/lumen/cmd/lumen/internal/config"
	"github.com/recera/lumen/pkg/expr"
	"github.com/recera/lumen/pkg/render"
	"github.com/recera/lumen/pkg/template"
)

// project is the configuration in effect for one command
type project struct {
	root string
	cfg  *config.Config
}

// loadProject finds the project root from the working directory and loads
// lumen.yaml. Outside a project the defaults apply.
func loadProject() (*project, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root = "."
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &project{root: root, cfg: cfg}, nil
}

// templateConfig returns the compiler options, with the command line flag
// taking precedence when it was set
func (p *project) templateConfig(preserve *bool) template.Config {
	cfg := template.Config{PreserveWhitespaces: p.cfg.Compiler.PreserveWhitespaces}
	if preserve != nil {
		cfg.PreserveWhitespaces = *preserve
	}
	return cfg
}

// compiled is one template parsed and lowered
type compiled struct {
	path    string
	src     string
	root    *template.Root
	program *render.Program
}

func compileFile(path string, cfg template.Config) (*compiled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	src := string(data)

	root, err := template.Parse(src, cfg)
	if err != nil {
		return nil, build.NewDiagnostic(path, src, err)
	}
	program, err := render.Compile(root)
	if err != nil {
		return nil, build.NewDiagnostic(path, src, err)
	}
	return &compiled{path: path, src: src, root: root, program: program}, nil
}

// loadData reads a YAML or JSON data context. An empty path yields an empty
// scope.
func loadData(path string) (expr.MapScope, error) {
	if path == "" {
		return expr.MapScope{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	scope := expr.MapScope{}
	if err := yaml.Unmarshal(data, &scope); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return scope, nil
}

// liveScope lets a mounted instance see a replaced data context on its next
// Update
type liveScope struct {
	mu    sync.RWMutex
	inner expr.Scope
}

func newLiveScope(s expr.Scope) *liveScope {
	return &liveScope{inner: s}
}

func (l *liveScope) Lookup(name string) (any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.inner.Lookup(name)
}

func (l *liveScope) Set(s expr.Scope) {
	l.mu.Lock()
	l.inner = s
	l.mu.Unlock()
}

func warnf(format string, args ...interface{}) {
	log.Printf("⚠️  "+format, args...)
}
