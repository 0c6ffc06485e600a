package payload

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SafeInt converts numbers and numeric strings to int, returning def otherwise.
func SafeInt(v any, def int) int {
	if i, ok := toInt(v); ok {
		return i
	}
	return def
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func optInt(v any) *int {
	i, ok := toInt(v)
	if !ok {
		return nil
	}
	return &i
}

func optBool(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func optFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// first returns the first non-empty string among m[keys...].
func first(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func mapOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// list returns v as a list. Strings become a single-element list and
// anything else empty, so missing lists default to empty.
func list(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return []any{}
		}
		return []any{t}
	}
	return []any{}
}

func firstList(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if l := list(m[k]); len(l) > 0 {
			return l
		}
	}
	return []any{}
}

func stringList(v any) []string {
	items := list(v)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(str(it)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func without(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
