package gemini

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// ObjectAsStringNote is appended to the description of free-form objects,
// which the structured-output subset cannot express.
const ObjectAsStringNote = "(JSON object encoded as a string)"

// ToSchema converts a sanitized JSON Schema map into a *genai.Schema.
func ToSchema(v map[string]any) (*genai.Schema, error) {
	if v == nil {
		return nil, nil
	}
	return convertSchema(v, "$")
}

func convertSchema(m map[string]any, path string) (*genai.Schema, error) {
	out := &genai.Schema{}
	typ, nullable := schemaType(m["type"])
	out.Nullable = nullable
	if d, ok := m["description"].(string); ok {
		out.Description = d
	}
	if enum := stringList(m["enum"]); len(enum) > 0 {
		out.Enum = enum
		if typ == "" {
			typ = "string"
		}
	}
	if typ == "" {
		switch {
		case m["properties"] != nil:
			typ = "object"
		case m["items"] != nil:
			typ = "array"
		default:
			typ = "string"
		}
	}

	switch typ {
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		items, _ := m["items"].(map[string]any)
		if items == nil {
			items = map[string]any{"type": "string"}
		}
		sub, err := convertSchema(items, path+"[]")
		if err != nil {
			return nil, err
		}
		out.Items = sub
	case "object":
		props, _ := m["properties"].(map[string]any)
		if len(props) == 0 {
			out.Type = genai.TypeString
			out.Description = strings.TrimSpace(out.Description + " " + ObjectAsStringNote)
			return out, nil
		}
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(props))
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			pm, ok := props[name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("gemini schema: property %s.%s is not an object", path, name)
			}
			sub, err := convertSchema(pm, path+"."+name)
			if err != nil {
				return nil, err
			}
			out.Properties[name] = sub
		}
		for _, r := range stringList(m["required"]) {
			if _, ok := out.Properties[r]; ok {
				out.Required = append(out.Required, r)
			}
		}
	default:
		return nil, fmt.Errorf("gemini schema: unsupported type %q at %s", typ, path)
	}
	return out, nil
}

func schemaType(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t)), false
	case []any:
		nullable := false
		primary := ""
		for _, x := range t {
			s, _ := x.(string)
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "null" {
				nullable = true
				continue
			}
			if primary == "" {
				primary = s
			}
		}
		return primary, nullable
	case []string:
		anyList := make([]any, len(t))
		for i := range t {
			anyList[i] = t[i]
		}
		return schemaType(anyList)
	default:
		return "", false
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
