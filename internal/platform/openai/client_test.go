package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m", EmbedModel: "e", EmbedDimensions: 3}, logger.Nop())
	require.NoError(t, err)
	return c
}

func TestGenerateSendsSchemaAndParsesFunctionCalls(t *testing.T) {
	var got map[string]any
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = w.Write([]byte(`{"output":[
			{"type":"function_call","name":"commit_user_context","call_id":"c1","arguments":"{\"goal\":\"ENEM\"}"},
			{"type":"message","role":"assistant","content":[{"type":"output_text","text":"ok"}]}
		]}`))
	})

	resp, err := c.Generate(context.Background(), llm.Request{
		System:     "sys",
		History:    []llm.Message{llm.TextMessage(llm.RoleUser, "oi")},
		Schema:     map[string]any{"type": "OBJECT", "properties": map[string]any{"a": map[string]any{"type": "STRING"}}},
		SchemaName: "outline",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ok", resp.Text)
	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, "c1", resp.FunctionCalls[0].ID)
	assert.Equal(t, "ENEM", resp.FunctionCalls[0].Args["goal"])

	format := got["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "outline", format["name"])
	assert.Equal(t, "object", format["schema"].(map[string]any)["type"])
	assert.Equal(t, "sys", got["instructions"])
}

func TestGenerateKeepsUndecodableArguments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[
			{"type":"function_call","name":"commit_user_context","call_id":"c1","arguments":"{\"goal\": \"ENEM\""}
		]}`))
	})

	resp, err := c.Generate(context.Background(), llm.Request{History: []llm.Message{llm.TextMessage(llm.RoleUser, "oi")}})
	require.NoError(t, err)
	require.Len(t, resp.FunctionCalls, 1)
	call := resp.FunctionCalls[0]
	assert.Equal(t, "commit_user_context", call.Name)
	assert.Empty(t, call.Args)
	assert.NotEmpty(t, call.ArgsError)
}

func TestGenerateDoesNotRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"busy"}`))
	})
	_, err := c.Generate(context.Background(), llm.Request{History: []llm.Message{llm.TextMessage(llm.RoleUser, "x")}})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var he *httpError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusServiceUnavailable, he.HTTPStatusCode())
}

func TestStreamForwardsDeltas(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: response.output_text.delta\ndata: {\"delta\":\"Ol\"}\n\n")
		_, _ = io.WriteString(w, "event: response.output_text.delta\ndata: {\"delta\":\"a\"}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})
	var sb strings.Builder
	err := c.Stream(context.Background(), llm.Request{History: []llm.Message{llm.TextMessage(llm.RoleUser, "x")}}, func(s string) error {
		sb.WriteString(s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Ola", sb.String())
}

func TestEmbedOrdersByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2,2,2]},{"index":0,"embedding":[1,1,1]}]}`))
	})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 2, 2}, vecs[1])
}
