/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package patch translates game states to and from the flat documents kept
// by the store. Writes are top-level partial updates: unchanged fields are
// left out and cleared fields are written as an explicit null, never
// dropped.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Null is the explicit empty value written for cleared fields.
var Null = json.RawMessage("null")

// Document is a full snapshot: top-level field name to encoded value.
type Document map[string]json.RawMessage

// Patch is a partial update. Every key present overwrites the stored field.
type Patch map[string]json.RawMessage

func (p Patch) Empty() bool { return len(p) == 0 }

// Keys returns the touched fields in sorted order.
func (p Patch) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Encode flattens v, which must encode to a JSON object, into a Document.
func Encode(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("state is not an object: %w", err)
	}

	return doc, nil
}

// Decode fills v from doc. The document is first reshaped against the
// type of v so that collections the store mangled (arrays stored as keyed
// objects, empty arrays stored as empty objects) decode cleanly. If v has
// a Normalize method it is called afterwards.
func Decode(doc Document, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", v)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}

	fixed, err := json.Marshal(coerce(tree, rv.Type().Elem()))
	if err != nil {
		return fmt.Errorf("re-encoding document: %w", err)
	}
	if err := json.Unmarshal(fixed, v); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}

	if n, ok := v.(interface{ Normalize() }); ok {
		n.Normalize()
	}

	return nil
}

// Diff returns the fields of next that differ from prev. Fields present in
// prev but missing from next are cleared with Null.
func Diff(prev, next Document) Patch {
	p := Patch{}

	for k, v := range next {
		old, ok := prev[k]
		if !ok || !equal(old, v) {
			p[k] = v
		}
	}
	for k, old := range prev {
		if _, ok := next[k]; !ok && !equal(old, Null) {
			p[k] = Null
		}
	}

	return p
}

// Merge applies p to doc with store semantics and returns the result.
// doc itself is left untouched.
func Merge(doc Document, p Patch) Document {
	out := maps.Clone(doc)
	if out == nil {
		out = Document{}
	}
	maps.Copy(out, p)

	return out
}

func equal(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}

	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// Normalize rewrites, at every depth, objects whose keys are exactly
// "0".."n-1" into arrays. It is the untyped counterpart of the reshaping
// Decode performs and suits consumers that have no Go type to lean on.
func Normalize(raw json.RawMessage) (json.RawMessage, error) {
	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("parsing value: %w", err)
	}

	out, err := json.Marshal(arrayify(tree))
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}

	return out, nil
}

func arrayify(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = arrayify(e)
		}
		if arr, ok := indexed(t); ok && len(arr) > 0 {
			return arr
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = arrayify(e)
		}
		return t
	default:
		return v
	}
}

// indexed converts an object keyed "0".."n-1" into an array.
func indexed(m map[string]any) ([]any, bool) {
	arr := make([]any, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return nil, false
		}
		arr[i] = v
	}

	return arr, true
}

var rawMessageType = reflect.TypeFor[json.RawMessage]()

// coerce reshapes a generic JSON tree so that it unmarshals into t.
func coerce(v any, t reflect.Type) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v == nil || t == rawMessageType {
		return v
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return v
		}
		if m, ok := v.(map[string]any); ok {
			if arr, ok := sparse(m); ok {
				v = arr
			}
		}
		if arr, ok := v.([]any); ok {
			for i, e := range arr {
				arr[i] = coerce(e, t.Elem())
			}
			return arr
		}
	case reflect.Map:
		if arr, ok := v.([]any); ok {
			m := make(map[string]any, len(arr))
			for i, e := range arr {
				if e != nil {
					m[strconv.Itoa(i)] = e
				}
			}
			v = m
		}
		if m, ok := v.(map[string]any); ok {
			for k, e := range m {
				m[k] = coerce(e, t.Elem())
			}
			return m
		}
	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := fieldName(f)
			if name == "-" {
				continue
			}
			if e, ok := m[name]; ok {
				m[name] = coerce(e, f.Type)
			}
		}
		return m
	}

	return v
}

// sparse converts an integer-keyed object into an array, filling gaps with
// null. An empty object becomes an empty array.
func sparse(m map[string]any) ([]any, bool) {
	keys := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || strconv.Itoa(i) != k {
			return nil, false
		}
		keys = append(keys, i)
	}
	sort.Ints(keys)

	arr := []any{}
	if len(keys) > 0 {
		arr = make([]any, keys[len(keys)-1]+1)
	}
	for _, i := range keys {
		arr[i] = m[strconv.Itoa(i)]
	}

	return arr, true
}

func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}

	return name
}
