package llm

import (
	"context"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type FunctionCall struct {
	// ID is the backend's call id, echoed back on the matching response.
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	// ArgsError is set when the backend could not decode the arguments.
	ArgsError string `json:"-"`
}

type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// Part is one element of a message. Exactly one field is expected to be set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

// Tool declares a callable function. Parameters is a JSON Schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Request struct {
	System  string
	History []Message
	// Schema, when set, constrains the response to JSON matching it.
	Schema     map[string]any
	SchemaName string
	Tools      []Tool
}

type Candidate struct {
	Content Message
}

type Response struct {
	Text          string
	Candidates    []Candidate
	FunctionCalls []FunctionCall
}

// Backend is the raw transport to a language model. Implementations make
// exactly one attempt per call.
type Backend interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, onChunk func(string) error) error
}

// WithHistory returns a copy of h with msgs appended; h is never mutated.
func WithHistory(h []Message, msgs ...Message) []Message {
	out := make([]Message, 0, len(h)+len(msgs))
	out = append(out, h...)
	return append(out, msgs...)
}

// FirstCandidateText joins the text parts of the first candidate.
func (r *Response) FirstCandidateText() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Candidates[0].Content.Parts))
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ModelContent returns the message the model produced, to be appended to the
// history before function responses.
func (r *Response) ModelContent() Message {
	if r != nil && len(r.Candidates) > 0 {
		msg := r.Candidates[0].Content
		msg.Role = RoleModel
		return msg
	}
	msg := Message{Role: RoleModel}
	if r == nil {
		return msg
	}
	for i := range r.FunctionCalls {
		fc := r.FunctionCalls[i]
		msg.Parts = append(msg.Parts, Part{FunctionCall: &fc})
	}
	if r.Text != "" {
		msg.Parts = append(msg.Parts, Part{Text: r.Text})
	}
	return msg
}
