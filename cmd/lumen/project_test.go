package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/recera/lumen/pkg/expr"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    expr.MapScope
	}{
		{
			name:    "yaml",
			content: "title: Todo\ncount: 2\nitems:\n  - name: a\n    done: true\n",
			want: expr.MapScope{
				"title": "Todo",
				"count": 2,
				"items": []interface{}{map[string]interface{}{"name": "a", "done": true}},
			},
		},
		{
			name:    "json",
			content: `{"ratio": 0.5, "user": {"name": "Ann"}}`,
			want: expr.MapScope{
				"ratio": 0.5,
				"user":  map[string]interface{}{"name": "Ann"},
			},
		},
		{
			name:    "empty",
			content: "",
			want:    expr.MapScope{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, dir, tt.name+".yaml", tt.content)
			got, err := loadData(path)
			if err != nil {
				t.Fatalf("loadData: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadDataErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadData(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := writeTestFile(t, dir, "list.yaml", "- a\n- b\n")
	if _, err := loadData(path); err == nil {
		t.Error("expected error for a top-level list")
	}
	if got, err := loadData(""); err != nil || len(got) != 0 {
		t.Errorf("loadData(\"\") = %v, %v", got, err)
	}
}

func TestLiveScope(t *testing.T) {
	s := newLiveScope(expr.MapScope{"x": 1})
	if v, ok := s.Lookup("x"); !ok || v != 1 {
		t.Errorf("Lookup(x) = %v, %v", v, ok)
	}
	s.Set(expr.MapScope{"y": 2})
	if _, ok := s.Lookup("x"); ok {
		t.Error("old data still visible after Set")
	}
	if v, _ := s.Lookup("y"); v != 2 {
		t.Errorf("Lookup(y) = %v", v)
	}
}
