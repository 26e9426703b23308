package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Scope resolves the free identifiers of an expression
type Scope interface {
	Lookup(name string) (any, bool)
}

// MapScope is a Scope backed by a map
type MapScope map[string]any

// Lookup implements Scope
func (m MapScope) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

type valueScope struct {
	v any
}

func (s valueScope) Lookup(name string) (any, bool) {
	v := Field(s.v, name)
	return v, v != nil
}

// ScopeOf adapts a data context to a Scope. Maps with string keys and
// structs (or pointers to structs) are supported; a Scope is returned as is.
func ScopeOf(data any) Scope {
	switch d := data.(type) {
	case nil:
		return MapScope{}
	case Scope:
		return d
	case map[string]any:
		return MapScope(d)
	}
	return valueScope{v: data}
}

// Lookup resolves name in s, returning nil when it is not bound
func Lookup(s Scope, name string) any {
	if s == nil {
		return nil
	}
	v, _ := s.Lookup(name)
	return v
}

// Field resolves v.name. Maps are indexed by key, structs by field name
// (exact match first, then case-insensitive). Missing members and nil
// receivers yield nil.
func Field(v any, name string) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(Scope); ok {
		return Lookup(s, name)
	}
	if m, ok := v.(map[string]any); ok {
		return m[name]
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() || !mv.CanInterface() {
			return nil
		}
		return mv.Interface()
	case reflect.Struct:
		fv := rv.FieldByName(name)
		if !fv.IsValid() {
			fv = rv.FieldByNameFunc(func(f string) bool { return strings.EqualFold(f, name) })
		}
		if !fv.IsValid() || !fv.CanInterface() {
			return nil
		}
		return fv.Interface()
	}
	return nil
}

// Index resolves v[key] for slices, arrays, strings and maps. Indexing a
// string yields its i-th rune as a string. Out of range and missing keys
// yield nil.
func Index(v, key any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		// strings index by rune
		i, ok := toIndex(key)
		runes := []rune(rv.String())
		if !ok || i < 0 || i >= len(runes) {
			return nil
		}
		return string(runes[i])
	case reflect.Slice, reflect.Array:
		i, ok := toIndex(key)
		if !ok || i < 0 || i >= rv.Len() {
			return nil
		}
		ev := rv.Index(i)
		if !ev.CanInterface() {
			return nil
		}
		return ev.Interface()
	case reflect.Map:
		if key == nil {
			return nil
		}
		kt := rv.Type().Key()
		kv := reflect.ValueOf(key)
		if !kv.Type().ConvertibleTo(kt) {
			return nil
		}
		mv := rv.MapIndex(kv.Convert(kt))
		if !mv.IsValid() || !mv.CanInterface() {
			return nil
		}
		return mv.Interface()
	}
	return nil
}

func toIndex(key any) (int, bool) {
	n, ok := toNumber(key)
	if !ok {
		return 0, false
	}
	if n.isFloat {
		if n.f != math.Trunc(n.f) {
			return 0, false
		}
		return int(n.f), true
	}
	return int(n.i), true
}

// Truthy reports whether v counts as true in a condition
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if n, ok := toNumber(v); ok {
		if n.isFloat {
			return n.f != 0 && !math.IsNaN(n.f)
		}
		return n.i != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return !rv.IsNil() && rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// StrictEqual reports whether a and b are the same value: identical dynamic
// types and equal contents for comparable values, identity for slices, maps,
// functions and pointers. It never panics.
func StrictEqual(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	switch ta.Kind() {
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}

	if !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// ToString converts v to the text shown in the output tree
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	if n, ok := toNumber(v); ok {
		if !n.isFloat {
			return strconv.FormatInt(n.i, 10)
		}
		if n.f == math.Trunc(n.f) && math.Abs(n.f) < 1e21 {
			return strconv.FormatFloat(n.f, 'f', -1, 64)
		}
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// Iterate returns the elements of a slice or array. nil yields no elements.
func Iterate(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return Iterate(rv.Elem().Interface())
	}
	return nil, &EvalError{Msg: fmt.Sprintf("value of type %T is not iterable", v)}
}

// number is an int64 or float64 view of a numeric value
type number struct {
	i       int64
	f       float64
	isFloat bool
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func toNumber(v any) (number, bool) {
	switch t := v.(type) {
	case int:
		return number{i: int64(t)}, true
	case int64:
		return number{i: t}, true
	case float64:
		return number{f: t, isFloat: true}, true
	case nil, string, bool:
		return number{}, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{i: int64(rv.Uint())}, true
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float(), isFloat: true}, true
	}
	return number{}, false
}

func fromNumber(n number) any {
	if n.isFloat {
		return n.f
	}
	return int(n.i)
}
