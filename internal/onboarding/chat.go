// Package onboarding runs the conversational profile wizard: a bounded
// tool-calling loop against the model, in a blocking and a streaming flavor.
package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/platform/envutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

const (
	EventMeta      = "meta"
	EventHeartbeat = "heartbeat"
	EventToken     = "token"
	EventError     = "error"

	MetaSessionStarted          = "session_started"
	MetaContextCommitted        = "context_committed"
	MetaPlanGenerationStarted   = "plan_generation_started"
	MetaPlanGenerationCompleted = "plan_generation_completed"
	MetaSessionFinished         = "session_finished"

	StageToolCall          = "tool_call"
	StageStudyPlan         = "study_plan"
	StageAssistantResponse = "assistant_response"
)

type Config struct {
	MaxRounds  int
	ChunkChars int
	ChunkDelay time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		MaxRounds:  envutil.Int("AI_MAX_TOOL_ROUNDS", 8),
		ChunkChars: envutil.Int("AI_STREAM_CHUNK", 10),
		ChunkDelay: envutil.Duration("AI_STREAM_DELAY_MS", 22*time.Millisecond, time.Millisecond),
	}
}

// Turn is one message of the client-side transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sink receives stream events. realtime.Writer satisfies it.
type Sink interface {
	Write(event string, data any) error
}

type ChatResult struct {
	Reply         string `json:"reply"`
	Committed     bool   `json:"committed"`
	UserContextID string `json:"user_context_id,omitempty"`
	PlanID        string `json:"plan_id,omitempty"`
	PlanStatus    string `json:"plan_status,omitempty"`
}

type Service struct {
	llm   *llm.Client
	tools *Registry
	log   *logger.Logger
	cfg   Config
}

func NewService(client *llm.Client, tools *Registry, baseLog *logger.Logger, cfg Config) *Service {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 8
	}
	if cfg.ChunkChars <= 0 {
		cfg.ChunkChars = 10
	}
	return &Service{
		llm:   client,
		tools: tools,
		log:   baseLog.With("service", "Onboarding"),
		cfg:   cfg,
	}
}

func historyFrom(turns []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if strings.EqualFold(t.Role, "assistant") || strings.EqualFold(t.Role, "model") {
			role = llm.RoleModel
		}
		out = append(out, llm.TextMessage(role, t.Content))
	}
	return out
}

func (s *Service) request(history []llm.Message) llm.Request {
	return llm.Request{
		System:  systemPrompt,
		History: history,
		Tools:   s.tools.Declarations(),
	}
}

// commitState tracks what the commit tool reported during one session.
type commitState struct {
	committed  bool
	contextID  string
	planID     string
	planStatus string
}

func (c *commitState) observe(name string, res map[string]any) bool {
	if name != ToolCommitUserContext && name != ToolCommitStudyContext {
		return false
	}
	if res["status"] != toolStatusOK {
		return false
	}
	c.committed = true
	c.contextID, _ = res["user_context_id"].(string)
	c.planID, _ = res["plan_id"].(string)
	c.planStatus, _ = res["plan_status"].(string)
	return true
}

func isCommit(name string) bool {
	return name == ToolCommitUserContext || name == ToolCommitStudyContext
}

// Chat runs the tool loop to completion and returns the model's final text.
// A *ValidationError from the commit tool is returned unchanged.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, turns []Turn) (*ChatResult, error) {
	history := historyFrom(turns)
	resp, err := s.llm.Generate(ctx, s.request(history))
	if err != nil {
		return nil, err
	}
	var state commitState
	for round := 0; len(resp.FunctionCalls) > 0; round++ {
		if round >= s.cfg.MaxRounds {
			return nil, ErrTooManyToolRounds
		}
		responses := make([]llm.Part, 0, len(resp.FunctionCalls))
		for _, call := range resp.FunctionCalls {
			res, err := s.tools.DispatchCall(ctx, userID, call)
			if err != nil {
				return nil, err
			}
			state.observe(call.Name, res)
			responses = append(responses, functionResponse(call, res))
		}
		history = llm.WithHistory(history, resp.ModelContent(), llm.Message{Role: llm.RoleUser, Parts: responses})
		if resp, err = s.llm.Generate(ctx, s.request(history)); err != nil {
			return nil, err
		}
	}
	return &ChatResult{
		Reply:         resp.Text,
		Committed:     state.committed,
		UserContextID: state.contextID,
		PlanID:        state.planID,
		PlanStatus:    state.planStatus,
	}, nil
}

func functionResponse(call llm.FunctionCall, res map[string]any) llm.Part {
	return llm.Part{FunctionResponse: &llm.FunctionResponse{ID: call.ID, Name: call.Name, Response: res}}
}

// session writes the events of one stream and guarantees a single trailing
// session_finished.
type session struct {
	id       string
	sink     Sink
	tokens   int
	state    commitState
	finished bool
}

func (ss *session) emit(event string, data map[string]any) error {
	if ss.id != "" {
		if _, ok := data["session_id"]; !ok {
			data["session_id"] = ss.id
		}
	}
	return ss.sink.Write(event, data)
}

func (ss *session) meta(kind string, extra map[string]any) error {
	data := map[string]any{"type": kind}
	for k, v := range extra {
		data[k] = v
	}
	return ss.emit(EventMeta, data)
}

func (ss *session) contextFields() map[string]any {
	var id any
	if ss.state.contextID != "" {
		id = ss.state.contextID
	}
	return map[string]any{"study_context_id": id, "user_context_id": id}
}

func (ss *session) token(stage, text string) error {
	ss.tokens++
	return ss.emit(EventToken, map[string]any{"index": ss.tokens, "stage": stage, "text": text})
}

func (ss *session) finish(errPayload map[string]any) error {
	if ss.finished {
		return nil
	}
	ss.finished = true
	data := ss.contextFields()
	data["total_tokens"] = ss.tokens
	data["committed"] = ss.state.committed
	if ss.state.planID != "" {
		data["plan_id"] = ss.state.planID
	}
	if errPayload != nil {
		data["error"] = errPayload
	}
	return ss.meta(MetaSessionFinished, data)
}

func (ss *session) fail(payload map[string]any) error {
	if err := ss.emit(EventError, payload); err != nil {
		return err
	}
	return ss.finish(payload)
}

// Stream runs the same loop as Chat and reports progress as events on sink.
// Failures after session_started are reported as an error event followed by
// session_finished; the returned error is only a sink write failure.
func (s *Service) Stream(ctx context.Context, userID uuid.UUID, sessionID string, turns []Turn, sink Sink) error {
	ss := &session{id: sessionID, sink: sink}
	if err := ss.meta(MetaSessionStarted, nil); err != nil {
		return err
	}
	log := s.log.WithContext(ctx).With("session_id", sessionID)

	history := historyFrom(turns)
	resp, err := s.llm.Generate(ctx, s.request(history))
	if err != nil {
		return ss.fail(map[string]any{"stage": "generate", "message": err.Error()})
	}
	for round := 0; len(resp.FunctionCalls) > 0; round++ {
		if round >= s.cfg.MaxRounds {
			return ss.fail(map[string]any{"stage": StageToolCall, "message": ErrTooManyToolRounds.Error()})
		}
		responses := make([]llm.Part, 0, len(resp.FunctionCalls))
		for _, call := range resp.FunctionCalls {
			if err := ss.emit(EventHeartbeat, map[string]any{"stage": StageToolCall, "tool": call.Name}); err != nil {
				return err
			}
			res, err := s.tools.DispatchCall(ctx, userID, call)
			if err != nil {
				payload := map[string]any{"stage": StageToolCall, "tool": call.Name, "message": err.Error()}
				var verr *ValidationError
				if errors.As(err, &verr) {
					payload["fields"] = verr.Fields
				}
				log.Warn("tool call failed", "tool", call.Name, "error", err)
				return ss.fail(payload)
			}
			if isCommit(call.Name) {
				if !ss.state.observe(call.Name, res) {
					return ss.fail(map[string]any{
						"stage":   StageToolCall,
						"tool":    call.Name,
						"message": call.Name + " returned a non-ok status",
						"payload": res,
					})
				}
				if err := ss.meta(MetaContextCommitted, ss.contextFields()); err != nil {
					return err
				}
			}
			responses = append(responses, functionResponse(call, res))
		}
		history = llm.WithHistory(history, resp.ModelContent(), llm.Message{Role: llm.RoleUser, Parts: responses})
		if resp, err = s.llm.Generate(ctx, s.request(history)); err != nil {
			return ss.fail(map[string]any{"stage": "generate", "message": err.Error()})
		}
	}
	history = llm.WithHistory(history, resp.ModelContent())

	if ss.state.committed {
		if err := s.streamPlanSummary(ctx, ss, history); err != nil {
			return err
		}
		return ss.finish(nil)
	}

	text := resp.Text
	if text == "" {
		text = fallbackReply
	}
	for _, piece := range chunkText(text, s.cfg.ChunkChars) {
		if err := ss.token(StageAssistantResponse, piece); err != nil {
			return err
		}
		if !s.pause(ctx) {
			return ss.fail(map[string]any{"stage": StageAssistantResponse, "message": ctx.Err().Error()})
		}
	}
	return ss.finish(nil)
}

func (s *Service) streamPlanSummary(ctx context.Context, ss *session, history []llm.Message) error {
	if err := ss.meta(MetaPlanGenerationStarted, ss.contextFields()); err != nil {
		return err
	}
	req := llm.Request{
		System:  systemPrompt,
		History: llm.WithHistory(history, llm.TextMessage(llm.RoleUser, planSummaryPrompt)),
	}
	var sinkErr error
	err := s.llm.Stream(ctx, req, func(piece string) error {
		if piece == "" {
			return nil
		}
		if sinkErr = ss.token(StageStudyPlan, piece); sinkErr != nil {
			return sinkErr
		}
		if !s.pause(ctx) {
			return ctx.Err()
		}
		return nil
	})
	if sinkErr != nil {
		return sinkErr
	}
	if err != nil {
		return ss.fail(map[string]any{"stage": StageStudyPlan, "message": err.Error()})
	}
	done := ss.contextFields()
	done["tokens_streamed"] = ss.tokens
	return ss.meta(MetaPlanGenerationCompleted, done)
}

// pause waits the configured delay between tokens. It reports false when ctx
// ended first.
func (s *Service) pause(ctx context.Context) bool {
	if s.cfg.ChunkDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.cfg.ChunkDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func chunkText(s string, n int) []string {
	r := []rune(s)
	out := make([]string, 0, len(r)/n+1)
	for i := 0; i < len(r); i += n {
		end := i + n
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}
