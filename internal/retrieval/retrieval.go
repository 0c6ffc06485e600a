// Package retrieval finds passages of a learner's materials that are close to
// a query, by cosine similarity over chunk embeddings.
package retrieval

import (
	"context"

	"github.com/google/uuid"
)

type Hit struct {
	Text       string    `json:"text"`
	Score      float64   `json:"score"`
	DocumentID uuid.UUID `json:"document_id"`
	Order      int       `json:"order"`
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, k int, opts ...Option) ([]Hit, error)
}

type scope struct {
	owner     uuid.UUID
	documents []uuid.UUID
}

type Option func(*scope)

// WithOwner limits hits to documents of one owner.
func WithOwner(id uuid.UUID) Option { return func(s *scope) { s.owner = id } }

// WithDocuments limits hits to the given documents. An empty list is ignored.
func WithDocuments(ids []uuid.UUID) Option {
	return func(s *scope) { s.documents = append([]uuid.UUID(nil), ids...) }
}

func resolve(opts []Option) scope {
	var s scope
	for _, o := range opts {
		o(&s)
	}
	return s
}

const DefaultK = 5

func clampK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	if k > 50 {
		return 50
	}
	return k
}
