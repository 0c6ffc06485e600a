package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nestedSchema() map[string]any {
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"plan"},
		"properties": map[string]any{
			"plan": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"title": map[string]any{"type": "string", "minLength": 3},
					"sections": map[string]any{
						"type":     "array",
						"minItems": 4,
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []any{"id"},
							"properties": map[string]any{
								"id":   map[string]any{"type": "string", "pattern": "^s"},
								"kind": map[string]any{"type": "string", "enum": []any{"a", "b"}},
								"url":  map[string]any{"type": "string", "format": "uri"},
							},
						},
					},
				},
			},
		},
	}
}

func collectKeys(v any, into map[string]int) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			into[k]++
			collectKeys(val, into)
		}
	case []any:
		for _, val := range t {
			collectKeys(val, into)
		}
	}
}

func TestSanitizeStripsForbiddenAtEveryDepth(t *testing.T) {
	in := nestedSchema()
	out := SanitizeMap(in, nil)
	require.NotNil(t, out)

	keys := map[string]int{}
	collectKeys(out, keys)
	for _, k := range []string{"additionalProperties", "$schema", "pattern", "format", "minItems", "minLength"} {
		assert.Zerof(t, keys[k], "keyword %q survived", k)
	}

	assert.Equal(t, "object", out["type"])
	assert.Equal(t, []any{"plan"}, out["required"])
	plan := out["properties"].(map[string]any)["plan"].(map[string]any)
	props := plan["properties"].(map[string]any)
	// a property literally named "title" is a name, not the keyword
	require.Contains(t, props, "title")
	item := props["sections"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, []any{"id"}, item["required"])
	kind := item["properties"].(map[string]any)["kind"].(map[string]any)
	assert.Equal(t, []any{"a", "b"}, kind["enum"])

	// input untouched
	assert.Contains(t, in, "additionalProperties")
}

func TestSanitizeCustomKeySet(t *testing.T) {
	out := SanitizeMap(nestedSchema(), NewKeySet("required"))
	keys := map[string]int{}
	collectKeys(out, keys)
	assert.Zero(t, keys["required"])
	assert.NotZero(t, keys["additionalProperties"])
}

func TestNormalizeTypeCase(t *testing.T) {
	in := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{"type": []any{"string", "null"}},
			"list": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		},
	}
	up := NormalizeTypeCase(in, true).(map[string]any)
	assert.Equal(t, "OBJECT", up["type"])
	props := up["properties"].(map[string]any)
	assert.Equal(t, []any{"STRING", "NULL"}, props["type"].(map[string]any)["type"])
	assert.Equal(t, "INTEGER", props["list"].(map[string]any)["items"].(map[string]any)["type"])

	down := NormalizeTypeCase(up, false).(map[string]any)
	assert.Equal(t, "object", down["type"])
	assert.Equal(t, "object", in["type"])
}

func TestWithHistoryDoesNotAlias(t *testing.T) {
	base := make([]Message, 1, 4)
	base[0] = TextMessage(RoleUser, "oi")
	a := WithHistory(base, TextMessage(RoleModel, "a"))
	b := WithHistory(base, TextMessage(RoleModel, "b"))
	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.Equal(t, "a", a[1].Parts[0].Text)
	assert.Equal(t, "b", b[1].Parts[0].Text)
	assert.Len(t, base, 1)
}
