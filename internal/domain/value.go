package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// ValuesEqual compares two opaque test values. Values are normalized through
// JSON so that numbers decoded from question files (int) and numbers
// reported by an executor (float64) compare equal, as do []any and typed
// slices with the same elements.
func ValuesEqual(a, b any) bool {
	na, okA := normalize(a)
	nb, okB := normalize(b)
	if !okA || !okB {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(v any) (any, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Literal renders a value the way it is shown to learners: strings keep
// their quotes, everything else uses its JSON form.
func Literal(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
