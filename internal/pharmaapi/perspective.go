package pharmaapi

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NotSpecified is the placeholder the extractor writes for missing values.
const NotSpecified = "Not specified"

// Perspective is one analytical lens over a document. Its shape is owned by
// the backend, so it is kept as decoded JSON with typed accessors.
type Perspective map[string]any

// Field is one displayable key/value pair of a perspective section.
type Field struct {
	Key   string
	Value string
}

// Text returns the value at key rendered as a string, or "".
func (p Perspective) Text(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	return stringify(v)
}

// Sub returns the nested object at key, or nil.
func (p Perspective) Sub(key string) Perspective {
	if m, ok := p[key].(map[string]any); ok {
		return Perspective(m)
	}
	return nil
}

// List returns up to limit string items of the array at key. A limit of 0
// returns every item.
func (p Perspective) List(key string, limit int) []string {
	arr, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if limit > 0 && len(out) == limit {
			break
		}
		if s := stringify(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Fields returns the entries of the object at key, skipping values equal to
// NotSpecified. JSON objects carry no order once decoded, so entries are
// sorted by key.
func (p Perspective) Fields(key string) []Field {
	sub := p.Sub(key)
	if sub == nil {
		return nil
	}
	keys := make([]string, 0, len(sub))
	for k := range sub {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []Field
	for _, k := range keys {
		v := stringify(sub[k])
		if v == NotSpecified {
			continue
		}
		out = append(out, Field{Key: k, Value: v})
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, stringify(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
