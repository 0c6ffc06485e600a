package payload

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/yungbote/studyplan-backend/internal/llm"
)

// ExtractText returns the response text, falling back to the newline-joined
// text parts of the first candidate.
func ExtractText(resp *llm.Response) string {
	if resp == nil {
		return ""
	}
	if strings.TrimSpace(resp.Text) != "" {
		return resp.Text
	}
	return resp.FirstCandidateText()
}

// decodeObject parses text as one JSON object. Markdown code fences some
// models wrap around JSON are tolerated.
func decodeObject(stage, text string) (map[string]any, error) {
	raw := strings.TrimSpace(text)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		return nil, &MalformedGenerationError{Stage: stage, Err: errors.New("empty response")}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &MalformedGenerationError{Stage: stage, Err: err}
	}
	if out == nil {
		return nil, &MalformedGenerationError{Stage: stage, Err: errors.New("response is not a JSON object")}
	}
	return out, nil
}
