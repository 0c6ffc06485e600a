package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSchemaNested(t *testing.T) {
	s, err := ToSchema(map[string]any{
		"type":     "OBJECT",
		"required": []any{"tasks", "missing"},
		"properties": map[string]any{
			"tasks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":       map[string]any{"type": "string", "enum": []any{"quiz", "lecture"}},
						"difficulty": map[string]any{"type": []any{"integer", "null"}},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"tasks"}, s.Required)
	item := s.Properties["tasks"].Items
	require.NotNil(t, item)
	assert.Equal(t, genai.TypeObject, item.Type)
	assert.Equal(t, []string{"quiz", "lecture"}, item.Properties["type"].Enum)
	diff := item.Properties["difficulty"]
	assert.Equal(t, genai.TypeInteger, diff.Type)
	assert.True(t, diff.Nullable)
}

func TestToSchemaFreeFormObjectBecomesString(t *testing.T) {
	s, err := ToSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"self_assessment": map[string]any{"type": "object", "description": "Auto avaliacao"},
		},
	})
	require.NoError(t, err)
	sa := s.Properties["self_assessment"]
	assert.Equal(t, genai.TypeString, sa.Type)
	assert.Contains(t, sa.Description, ObjectAsStringNote)
}
