// Package retrievaltest provides fake embedders and searchers for tests.
package retrievaltest

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/yungbote/studyplan-backend/internal/retrieval"
)

// Embedder returns small deterministic vectors derived from a text hash.
type Embedder struct {
	Dim int
	Err error

	mu    sync.Mutex
	Calls int
}

func (e *Embedder) vector(text string) []float32 {
	dim := e.Dim
	if dim <= 0 {
		dim = 8
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	out := make([]float32, dim)
	for i := range out {
		seed = seed*6364136223846793005 + 1442695040888963407
		out[i] = float32(seed>>40)/float32(1<<24) + 0.01
	}
	return out
}

func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.Calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.vector(text), nil
}

// Searcher returns Hits for every query and records the queries.
type Searcher struct {
	Hits []retrieval.Hit
	Err  error

	mu      sync.Mutex
	Queries []string
}

func (s *Searcher) Search(_ context.Context, query string, k int, _ ...retrieval.Option) ([]retrieval.Hit, error) {
	s.mu.Lock()
	s.Queries = append(s.Queries, query)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if k > 0 && len(s.Hits) > k {
		return append([]retrieval.Hit(nil), s.Hits[:k]...), nil
	}
	return append([]retrieval.Hit(nil), s.Hits...), nil
}
