package build

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/recera/lumen/pkg/template"
)

// Diagnostic is a compilation failure located in a template file
type Diagnostic struct {
	Path string
	Err  error

	src string
}

// NewDiagnostic attaches err to the template at path with source src
func NewDiagnostic(path, src string, err error) *Diagnostic {
	return &Diagnostic{Path: path, Err: err, src: src}
}

func (d *Diagnostic) Error() string {
	if line, col, ok := d.Position(); ok {
		return fmt.Sprintf("%s:%d:%d: %v", d.Path, line, col, d.Err)
	}
	return fmt.Sprintf("%s: %v", d.Path, d.Err)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Position returns the 1-based line and column of the failure. Compiler
// offsets are relative to the text or attribute value that failed, so the
// position is best-effort: the value is located by its first occurrence
// outside comments that fills a whole text node or attribute value. When the
// markup parser decoded entities in the value, the text from the failure
// point up to the next entity is searched instead.
func (d *Diagnostic) Position() (line, col int, ok bool) {
	off, ok := d.offset()
	if !ok {
		return 0, 0, false
	}
	before := d.src[:off]
	line = strings.Count(before, "\n") + 1
	col = utf8.RuneCountInString(before[strings.LastIndexByte(before, '\n')+1:]) + 1
	return line, col, true
}

// Excerpt returns the source line holding the failure
func (d *Diagnostic) Excerpt() (string, bool) {
	off, ok := d.offset()
	if !ok {
		return "", false
	}
	start := strings.LastIndexByte(d.src[:off], '\n') + 1
	end := strings.IndexByte(d.src[off:], '\n')
	if end < 0 {
		return d.src[start:], true
	}
	return d.src[start : off+end], true
}

func (d *Diagnostic) offset() (int, bool) {
	var te *template.Error
	if !errors.As(d.Err, &te) || te.Offset < 0 || te.Offset > len(te.Source) || te.Source == "" {
		return 0, false
	}
	if i := d.find(te.Source, true); i >= 0 && i+te.Offset <= len(d.src) {
		return i + te.Offset, true
	}

	tail := te.Source[te.Offset:]
	if amp := strings.IndexByte(tail, '&'); amp >= 0 {
		tail = tail[:amp]
	}
	if tail == "" {
		return 0, false
	}
	if i := d.find(tail, false); i >= 0 {
		return i, true
	}
	return 0, false
}

// find returns the first occurrence of s in the file outside comments, or -1.
// With whole set, the occurrence must span an entire text node or attribute
// value.
func (d *Diagnostic) find(s string, whole bool) int {
	for from := 0; from <= len(d.src); {
		i := strings.Index(d.src[from:], s)
		if i < 0 {
			return -1
		}
		i += from
		from = i + 1
		if inComment(d.src, i) {
			continue
		}
		if whole && !(startsValue(d.src, i) && endsValue(d.src, i+len(s))) {
			continue
		}
		return i
	}
	return -1
}

func inComment(src string, i int) bool {
	open := strings.LastIndex(src[:i], "<!--")
	return open >= 0 && !strings.Contains(src[open:i], "-->")
}

func startsValue(src string, i int) bool {
	if i == 0 {
		return true
	}
	switch src[i-1] {
	case '>', '"', '\'', '=':
		return true
	}
	return false
}

func endsValue(src string, end int) bool {
	if end == len(src) {
		return true
	}
	switch src[end] {
	case '<', '"', '\'', '>', ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
