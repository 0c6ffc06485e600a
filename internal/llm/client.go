package llm

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/studyplan-backend/internal/observability"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

// Client is the structured generation client used by prompts, jobs and chat.
// It sanitizes schemas before handing the request to the backend and never retries.
type Client struct {
	backend   Backend
	log       *logger.Logger
	forbidden KeySet
}

func NewClient(backend Backend, baseLog *logger.Logger) *Client {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Client{
		backend:   backend,
		log:       baseLog.With("component", "LLMClient"),
		forbidden: DefaultForbidden,
	}
}

// WithForbidden overrides the keyword set stripped from schemas.
func (c *Client) WithForbidden(ks KeySet) *Client {
	cp := *c
	cp.forbidden = ks
	return &cp
}

var ErrNoBackend = errors.New("llm: no backend configured")

func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	if c == nil || c.backend == nil {
		return nil, ErrNoBackend
	}
	ctx, span := otel.Tracer("studyplan/llm").Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.schema", req.SchemaName),
		attribute.Int("llm.tools", len(req.Tools)),
		attribute.Int("llm.history", len(req.History)),
	)

	start := time.Now()
	resp, err := c.backend.Generate(ctx, c.prepare(req))
	observability.Current().ObserveLLM(req.SchemaName, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.WithContext(ctx).Warn("generation failed", "schema", req.SchemaName, "elapsed", time.Since(start).String(), "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("llm.function_calls", len(resp.FunctionCalls)))
	c.log.WithContext(ctx).Debug("generation done", "schema", req.SchemaName, "elapsed", time.Since(start).String(), "function_calls", len(resp.FunctionCalls))
	return resp, nil
}

func (c *Client) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	if c == nil || c.backend == nil {
		return ErrNoBackend
	}
	ctx, span := otel.Tracer("studyplan/llm").Start(ctx, "llm.stream")
	defer span.End()
	if err := c.backend.Stream(ctx, c.prepare(req), onChunk); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Client) prepare(req Request) Request {
	out := req
	if req.Schema != nil {
		out.Schema = SanitizeMap(req.Schema, c.forbidden)
	}
	if len(req.Tools) > 0 {
		out.Tools = make([]Tool, len(req.Tools))
		for i, t := range req.Tools {
			t.Parameters = SanitizeMap(t.Parameters, c.forbidden)
			out.Tools[i] = t
		}
	}
	return out
}
