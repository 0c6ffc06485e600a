package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/platform/envutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
	// EmbedDimensions must match the chunk embedding column.
	EmbedDimensions int
	Timeout         time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:          envutil.String("OPENAI_API_KEY", ""),
		BaseURL:         envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:           envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
		EmbedModel:      envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimensions: envutil.Int("OPENAI_EMBED_DIMENSIONS", 768),
		Timeout:         envutil.Duration("OPENAI_TIMEOUT_SECONDS", 180*time.Second, time.Second),
	}
}

// Client speaks the Responses API over plain HTTP and implements llm.Backend.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	embedDims  int
	httpClient *http.Client
}

func NewClient(cfg Config, baseLog *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		log:        baseLog.With("component", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		embedDims:  cfg.EmbedDimensions,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// doOnce performs a single JSON request. There is no retry loop: failures
// surface to the caller as-is.
func (c *Client) doOnce(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("openai decode error: %w; raw=%s", err, string(raw))
	}
	return nil
}

// -------------------- Responses API --------------------

type responsesRequest struct {
	Model        string           `json:"model"`
	Instructions string           `json:"instructions,omitempty"`
	Input        []map[string]any `json:"input"`
	Text         *struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Tools  []map[string]any `json:"tools,omitempty"`
	Stream bool             `json:"stream,omitempty"`
}

type outputItem struct {
	Type      string `json:"type"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content,omitempty"`
}

type responsesResponse struct {
	Output  []outputItem `json:"output"`
	Refusal string       `json:"refusal,omitempty"`
}

func (c *Client) buildRequest(req llm.Request, stream bool) (*responsesRequest, error) {
	out := &responsesRequest{
		Model:        c.model,
		Instructions: strings.TrimSpace(req.System),
		Stream:       stream,
	}
	for _, msg := range req.History {
		role := "user"
		if msg.Role == llm.RoleModel {
			role = "assistant"
		}
		var text strings.Builder
		for _, p := range msg.Parts {
			switch {
			case p.FunctionCall != nil:
				args, _ := json.Marshal(p.FunctionCall.Args)
				out.Input = append(out.Input, map[string]any{
					"type":      "function_call",
					"call_id":   callID(p.FunctionCall.ID, p.FunctionCall.Name),
					"name":      p.FunctionCall.Name,
					"arguments": string(args),
				})
			case p.FunctionResponse != nil:
				body, _ := json.Marshal(p.FunctionResponse.Response)
				out.Input = append(out.Input, map[string]any{
					"type":    "function_call_output",
					"call_id": callID(p.FunctionResponse.ID, p.FunctionResponse.Name),
					"output":  string(body),
				})
			default:
				text.WriteString(p.Text)
			}
		}
		if text.Len() > 0 {
			out.Input = append(out.Input, map[string]any{"role": role, "content": text.String()})
		}
	}
	if len(out.Input) == 0 {
		return nil, errors.New("openai: empty history")
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		out.Text = &struct {
			Format map[string]any `json:"format,omitempty"`
		}{Format: map[string]any{
			"type":   "json_schema",
			"name":   name,
			"schema": llm.NormalizeTypeCase(req.Schema, false),
			// strict mode needs additionalProperties:false everywhere, which the
			// sanitizer removes
			"strict": false,
		}}
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, map[string]any{
			"type":        "function",
			"name":        t.Name,
			"description": t.Description,
			"parameters":  llm.NormalizeTypeCase(t.Parameters, false),
		})
	}
	return out, nil
}

func callID(id, name string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return "call_" + name
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body, err := c.buildRequest(req, false)
	if err != nil {
		return nil, err
	}
	var resp responsesResponse
	if err := c.doOnce(ctx, http.MethodPost, "/v1/responses", body, &resp); err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", resp.Refusal)
	}
	return toResponse(resp), nil
}

func toResponse(resp responsesResponse) *llm.Response {
	out := &llm.Response{}
	msg := llm.Message{Role: llm.RoleModel}
	var text strings.Builder
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			if item.Role != "assistant" {
				continue
			}
			for _, part := range item.Content {
				if part.Type == "output_text" && part.Text != "" {
					text.WriteString(part.Text)
					msg.Parts = append(msg.Parts, llm.Part{Text: part.Text})
				}
			}
		case "function_call":
			fc := llm.FunctionCall{ID: item.CallID, Name: item.Name, Args: map[string]any{}}
			if strings.TrimSpace(item.Arguments) != "" {
				if err := json.Unmarshal([]byte(item.Arguments), &fc.Args); err != nil {
					fc.Args = map[string]any{}
					fc.ArgsError = err.Error()
				}
			}
			out.FunctionCalls = append(out.FunctionCalls, fc)
			msg.Parts = append(msg.Parts, llm.Part{FunctionCall: &fc})
		}
	}
	out.Text = text.String()
	out.Candidates = []llm.Candidate{{Content: msg}}
	return out
}

// Stream forwards output_text deltas to onChunk.
func (c *Client) Stream(ctx context.Context, req llm.Request, onChunk func(string) error) error {
	body, err := c.buildRequest(req, true)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", &buf)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return streamSSE(resp.Body, func(event string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil
		}
		evt := strings.TrimSpace(event)
		if t, ok := obj["type"].(string); ok && strings.TrimSpace(t) != "" {
			evt = strings.TrimSpace(t)
		}
		if r, ok := obj["refusal"].(string); ok && strings.TrimSpace(r) != "" {
			return fmt.Errorf("model refused: %s", r)
		}
		if eAny, ok := obj["error"]; ok && eAny != nil {
			b, _ := json.Marshal(eAny)
			return fmt.Errorf("openai stream error: %s", string(b))
		}
		d, ok := obj["delta"].(string)
		if !ok || !strings.Contains(evt, "output_text.delta") {
			return nil
		}
		d = strings.TrimRight(d, "\u0000")
		if d == "" {
			return nil
		}
		return onChunk(d)
	})
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}
	var resp embeddingsResponse
	req := embeddingsRequest{Model: c.embedModel, Input: clean, Dimensions: c.embedDims}
	if err := c.doOnce(ctx, http.MethodPost, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}
	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("openai embeddings missing index %d: requested=%d returned=%d", i, len(clean), len(resp.Data))
		}
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

var _ llm.Backend = (*Client)(nil)
