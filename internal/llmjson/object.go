package llmjson

import (
	"math"
	"strconv"
	"strings"
)

// Object is a decoded JSON object. Accessors are lenient: a missing key or a value of
// the wrong type reads as the zero value, so a partially populated reply is still usable.
type Object map[string]any

// String returns the value at key as text. Numbers and booleans are formatted.
func (o Object) String(key string) string {
	return scalarText(o[key])
}

// Int returns the value at key as an integer, truncating fractions and
// reading a leading integer out of a string such as "85/100".
func (o Object) Int(key string) int {
	switch v := o[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case string:
		s := strings.TrimSpace(v)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && s[end] == '-') {
			end++
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// Strings returns the string elements of the array at key. A lone string becomes a
// one-element slice. The result is never nil.
func (o Object) Strings(key string) []string {
	out := []string{}
	switch v := o[key].(type) {
	case []any:
		for _, item := range v {
			if s := scalarText(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Object returns the nested object at key, or an empty Object.
func (o Object) Object(key string) Object {
	if v, ok := o[key].(map[string]any); ok {
		return Object(v)
	}
	return Object{}
}

// Objects returns the object elements of the array at key. The result is never nil.
func (o Object) Objects(key string) []Object {
	out := []Object{}
	if items, ok := o[key].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Object(m))
			}
		}
	}
	return out
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
