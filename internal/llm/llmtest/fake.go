// Package llmtest provides a scripted llm.Backend for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/yungbote/studyplan-backend/internal/llm"
)

type Step struct {
	Resp *llm.Response
	Err  error
}

// Backend replays Steps in order and records every request it receives.
// When Steps run out the last one is repeated.
type Backend struct {
	mu       sync.Mutex
	Steps    []Step
	Requests []llm.Request

	StreamChunks []string
	StreamErr    error
	Streams      []llm.Request
}

func (b *Backend) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Requests = append(b.Requests, req)
	if len(b.Steps) == 0 {
		return nil, errors.New("llmtest: no scripted response")
	}
	idx := len(b.Requests) - 1
	if idx >= len(b.Steps) {
		idx = len(b.Steps) - 1
	}
	st := b.Steps[idx]
	return st.Resp, st.Err
}

func (b *Backend) Stream(ctx context.Context, req llm.Request, onChunk func(string) error) error {
	b.mu.Lock()
	b.Streams = append(b.Streams, req)
	chunks := append([]string(nil), b.StreamChunks...)
	streamErr := b.StreamErr
	b.mu.Unlock()
	for _, c := range chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return streamErr
}

func (b *Backend) Calls() []llm.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]llm.Request(nil), b.Requests...)
}

// JSON builds a text response holding v encoded as JSON.
func JSON(v any) *llm.Response {
	raw, _ := json.Marshal(v)
	return Text(string(raw))
}

func Text(s string) *llm.Response {
	return &llm.Response{
		Text: s,
		Candidates: []llm.Candidate{{
			Content: llm.Message{Role: llm.RoleModel, Parts: []llm.Part{{Text: s}}},
		}},
	}
}

func Call(name string, args map[string]any) *llm.Response {
	fc := llm.FunctionCall{Name: name, Args: args}
	return &llm.Response{
		FunctionCalls: []llm.FunctionCall{fc},
		Candidates: []llm.Candidate{{
			Content: llm.Message{Role: llm.RoleModel, Parts: []llm.Part{{FunctionCall: &fc}}},
		}},
	}
}
