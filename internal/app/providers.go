package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/db"
	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/platform/gemini"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/platform/objectstore"
	"github.com/yungbote/studyplan-backend/internal/platform/openai"
	"github.com/yungbote/studyplan-backend/internal/retrieval"
)

type ProviderBootstrapErrorCode string

const (
	ProviderErrorUnknownLLM     ProviderBootstrapErrorCode = "unknown_llm_provider"
	ProviderErrorLLMInit        ProviderBootstrapErrorCode = "llm_init_failed"
	ProviderErrorEmbedderInit   ProviderBootstrapErrorCode = "embedder_init_failed"
	ProviderErrorStorageInit    ProviderBootstrapErrorCode = "storage_init_failed"
	ProviderErrorVectorPoolInit ProviderBootstrapErrorCode = "vector_pool_init_failed"
)

type ProviderBootstrapError struct {
	Code      ProviderBootstrapErrorCode
	Component string
	Mode      string
	Cause     error
}

func (e *ProviderBootstrapError) Error() string {
	if e == nil {
		return "provider bootstrap failed"
	}
	return fmt.Sprintf("%s bootstrap failed (code=%s mode=%q): %v", e.Component, e.Code, e.Mode, e.Cause)
}

func (e *ProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Providers are the external clients the domain services sit on.
type Providers struct {
	LLM      *llm.Client
	Embedder retrieval.Embedder
	Store    objectstore.Store
	Searcher retrieval.Searcher

	closers []io.Closer
}

func (p *Providers) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		_ = p.closers[i].Close()
	}
	p.closers = nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func wireProviders(ctx context.Context, cfg Config, gdb *gorm.DB, dsn string, log *logger.Logger) (*Providers, error) {
	p := &Providers{}
	if err := p.wireLLM(ctx, cfg, log); err != nil {
		p.Close()
		return nil, err
	}
	store, err := objectstore.New(ctx, cfg.Storage, log)
	if err != nil {
		p.Close()
		return nil, &ProviderBootstrapError{Code: ProviderErrorStorageInit, Component: "object storage", Mode: string(cfg.Storage.Mode), Cause: err}
	}
	p.Store = store
	if err := p.wireSearcher(ctx, gdb, dsn, log); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// wireLLM picks the generation backend and the embedder. Both come from the
// same provider so the chunk vectors and query vectors share a model.
func (p *Providers) wireLLM(ctx context.Context, cfg Config, log *logger.Logger) error {
	switch cfg.LLMProvider {
	case ProviderGemini:
		backend, err := gemini.New(ctx, cfg.Gemini, log)
		if err != nil {
			return &ProviderBootstrapError{Code: ProviderErrorLLMInit, Component: "llm", Mode: ProviderGemini, Cause: err}
		}
		p.closers = append(p.closers, backend)
		embedder, err := gemini.NewEmbedder(ctx, cfg.Gemini)
		if err != nil {
			return &ProviderBootstrapError{Code: ProviderErrorEmbedderInit, Component: "embedder", Mode: ProviderGemini, Cause: err}
		}
		p.closers = append(p.closers, embedder)
		p.LLM = llm.NewClient(backend, log)
		p.Embedder = embedder
	case ProviderOpenAI:
		client, err := openai.NewClient(cfg.OpenAI, log)
		if err != nil {
			return &ProviderBootstrapError{Code: ProviderErrorLLMInit, Component: "llm", Mode: ProviderOpenAI, Cause: err}
		}
		p.LLM = llm.NewClient(client, log)
		p.Embedder = client
	default:
		return &ProviderBootstrapError{Code: ProviderErrorUnknownLLM, Component: "llm", Mode: cfg.LLMProvider, Cause: fmt.Errorf("supported: %s, %s", ProviderGemini, ProviderOpenAI)}
	}
	log.Info("LLM provider ready", "provider", cfg.LLMProvider)
	return nil
}

// wireSearcher uses pgvector over a pgx pool on postgres and the portable
// gorm searcher everywhere else.
func (p *Providers) wireSearcher(ctx context.Context, gdb *gorm.DB, dsn string, log *logger.Logger) error {
	if db.IsSQLite(gdb) || strings.HasPrefix(dsn, "sqlite:") {
		p.Searcher = retrieval.NewGormSearcher(gdb, p.Embedder, log)
		return nil
	}
	pool, err := retrieval.NewPool(ctx, dsn)
	if err != nil {
		return &ProviderBootstrapError{Code: ProviderErrorVectorPoolInit, Component: "vector search", Mode: "pgvector", Cause: err}
	}
	p.closers = append(p.closers, closerFunc(func() error { pool.Close(); return nil }))
	p.Searcher = retrieval.NewPGSearcher(pool, p.Embedder, log)
	return nil
}
