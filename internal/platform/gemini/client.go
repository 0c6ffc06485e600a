package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type Config struct {
	APIKey     string
	Model      string
	EmbedModel string
}

// Backend implements llm.Backend on top of the Gemini SDK.
type Backend struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func New(ctx context.Context, cfg Config, baseLog *logger.Logger) (*Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Backend{client: cl, model: model, log: baseLog.With("component", "GeminiBackend")}, nil
}

func (b *Backend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

func (b *Backend) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	cs, last, err := b.session(req)
	if err != nil {
		return nil, err
	}
	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return fromGenai(resp), nil
}

func (b *Backend) Stream(ctx context.Context, req llm.Request, onChunk func(string) error) error {
	cs, last, err := b.session(req)
	if err != nil {
		return err
	}
	it := cs.SendMessageStream(ctx, last...)
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		text := fromGenai(resp).FirstCandidateText()
		if text == "" {
			continue
		}
		if err := onChunk(text); err != nil {
			return err
		}
	}
}

// session builds a chat session holding every message but the last one,
// which is returned as the parts to send.
func (b *Backend) session(req llm.Request) (*genai.ChatSession, []genai.Part, error) {
	if len(req.History) == 0 {
		return nil, nil, errors.New("gemini: empty history")
	}
	m := b.client.GenerativeModel(b.model)
	if strings.TrimSpace(req.System) != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Schema != nil {
		schema, err := ToSchema(req.Schema)
		if err != nil {
			return nil, nil, err
		}
		m.ResponseMIMEType = "application/json"
		m.ResponseSchema = schema
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			params, err := ToSchema(t.Parameters)
			if err != nil {
				return nil, nil, fmt.Errorf("tool %s: %w", t.Name, err)
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			})
		}
		m.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		m.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto},
		}
	}

	cs := m.StartChat()
	n := len(req.History)
	cs.History = make([]*genai.Content, 0, n-1)
	for _, msg := range req.History[:n-1] {
		cs.History = append(cs.History, toContent(msg))
	}
	return cs, toContent(req.History[n-1]).Parts, nil
}

func toContent(msg llm.Message) *genai.Content {
	role := string(msg.Role)
	if role != string(llm.RoleModel) {
		role = string(llm.RoleUser)
	}
	c := &genai.Content{Role: role}
	for _, p := range msg.Parts {
		switch {
		case p.FunctionCall != nil:
			c.Parts = append(c.Parts, genai.FunctionCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args})
		case p.FunctionResponse != nil:
			c.Parts = append(c.Parts, genai.FunctionResponse{Name: p.FunctionResponse.Name, Response: p.FunctionResponse.Response})
		default:
			c.Parts = append(c.Parts, genai.Text(p.Text))
		}
	}
	return c
}

func fromGenai(resp *genai.GenerateContentResponse) *llm.Response {
	out := &llm.Response{}
	if resp == nil {
		return out
	}
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		msg := llm.Message{Role: llm.RoleModel}
		var text strings.Builder
		for _, p := range cand.Content.Parts {
			switch v := p.(type) {
			case genai.Text:
				msg.Parts = append(msg.Parts, llm.Part{Text: string(v)})
				text.WriteString(string(v))
			case genai.FunctionCall:
				fc := llm.FunctionCall{Name: v.Name, Args: v.Args}
				msg.Parts = append(msg.Parts, llm.Part{FunctionCall: &fc})
				if i == 0 {
					out.FunctionCalls = append(out.FunctionCalls, fc)
				}
			}
		}
		if i == 0 {
			out.Text = text.String()
		}
		out.Candidates = append(out.Candidates, llm.Candidate{Content: msg})
	}
	return out
}

var _ llm.Backend = (*Backend)(nil)
