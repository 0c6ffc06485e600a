package llm

import "strings"

// KeySet is a set of JSON Schema keywords.
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	ks := make(KeySet, len(keys))
	for _, k := range keys {
		ks[k] = struct{}{}
	}
	return ks
}

func (ks KeySet) Has(k string) bool {
	_, ok := ks[k]
	return ok
}

// DefaultForbidden lists keywords outside the structured-output subset the
// supported backends accept.
var DefaultForbidden = NewKeySet(
	"additionalProperties",
	"$schema",
	"$id",
	"pattern",
	"format",
	"minItems",
	"maxItems",
	"minimum",
	"maximum",
	"minLength",
	"maxLength",
	"default",
	"examples",
	"title",
	"const",
)

// keywords whose value maps property names to sub-schemas
var schemaMapKeys = NewKeySet("properties", "$defs", "definitions", "patternProperties")

// keywords whose value is a sub-schema or a list of sub-schemas
var schemaValueKeys = NewKeySet("items", "anyOf", "oneOf", "allOf", "not", "prefixItems")

// Sanitize returns a deep copy of v with every forbidden keyword removed at
// every schema depth. Property names are never stripped, only keywords.
func Sanitize(v any, forbidden KeySet) any {
	if forbidden == nil {
		forbidden = DefaultForbidden
	}
	return sanitizeSchema(v, forbidden)
}

// SanitizeMap is Sanitize for the common top-level object case.
func SanitizeMap(schema map[string]any, forbidden KeySet) map[string]any {
	if schema == nil {
		return nil
	}
	out, _ := Sanitize(schema, forbidden).(map[string]any)
	return out
}

func sanitizeSchema(v any, forbidden KeySet) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if forbidden.Has(k) {
				continue
			}
			switch {
			case schemaMapKeys.Has(k):
				out[k] = sanitizeNamed(val, forbidden)
			case schemaValueKeys.Has(k):
				out[k] = sanitizeSchema(val, forbidden)
			default:
				out[k] = copyValue(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = sanitizeSchema(t[i], forbidden)
		}
		return out
	default:
		return t
	}
}

func sanitizeNamed(v any, forbidden KeySet) any {
	m, ok := v.(map[string]any)
	if !ok {
		return copyValue(v)
	}
	out := make(map[string]any, len(m))
	for name, sub := range m {
		out[name] = sanitizeSchema(sub, forbidden)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = copyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return t
	}
}

// NormalizeTypeCase rewrites every "type" keyword to upper or lower case.
// The input is not mutated.
func NormalizeTypeCase(v any, upper bool) any {
	conv := strings.ToLower
	if upper {
		conv = strings.ToUpper
	}
	return normalizeTypes(v, conv)
}

func normalizeTypes(v any, conv func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			switch {
			case k == "type":
				out[k] = convertType(val, conv)
			case schemaMapKeys.Has(k):
				named, ok := val.(map[string]any)
				if !ok {
					out[k] = copyValue(val)
					continue
				}
				nm := make(map[string]any, len(named))
				for name, sub := range named {
					nm[name] = normalizeTypes(sub, conv)
				}
				out[k] = nm
			case schemaValueKeys.Has(k):
				out[k] = normalizeTypes(val, conv)
			default:
				out[k] = copyValue(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalizeTypes(t[i], conv)
		}
		return out
	default:
		return t
	}
}

func convertType(v any, conv func(string) string) any {
	switch t := v.(type) {
	case string:
		return conv(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			if s, ok := t[i].(string); ok {
				out[i] = conv(s)
			} else {
				out[i] = t[i]
			}
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = conv(t[i])
		}
		return out
	default:
		return t
	}
}
