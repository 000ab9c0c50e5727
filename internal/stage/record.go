package stage

import (
	"iter"

	"github.com/goccy/go-json"

	"github.com/flarebyte/json2seq/internal/script"
)

// Stream is a lazy, single-pass sequence of records. A non-nil error ends
// the stream.
type Stream = iter.Seq2[any, error]

// fieldsOf returns the local scope seed for rec: its fields when it is an
// object, an empty scope otherwise. The result must not be mutated.
func fieldsOf(rec any) map[string]any {
	if m, ok := rec.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// rebuild reconstructs the output record from the final local scope. An
// explicit RecordBinding in the scope wins; otherwise object records are the
// scope itself and other records are returned unchanged.
func rebuild(rec any, fields map[string]any) any {
	if v, ok := fields[script.RecordBinding]; ok {
		return v
	}
	if _, ok := rec.(map[string]any); ok {
		return fields
	}
	return rec
}

// Truthy reports whether a script result lets a record pass a filter: null,
// false, zero, the empty string and empty containers are falsy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}
