package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

// GormSearcher loads candidate chunks through gorm and ranks them in process.
// It serves sqlite deployments, where pgvector is unavailable.
type GormSearcher struct {
	db    *gorm.DB
	embed Embedder
	log   *logger.Logger
}

func NewGormSearcher(db *gorm.DB, embed Embedder, baseLog *logger.Logger) *GormSearcher {
	return &GormSearcher{db: db, embed: embed, log: baseLog.With("component", "GormSearcher")}
}

func (s *GormSearcher) Search(ctx context.Context, query string, k int, opts ...Option) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Hit{}, nil
	}
	qvec, err := s.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sc := resolve(opts)

	q := s.db.WithContext(ctx).Model(&studyplan.Chunk{}).
		Joins("JOIN study_document ON study_document.id = study_chunk.document_id")
	if sc.owner != uuid.Nil {
		q = q.Where("study_document.owner_id = ?", sc.owner)
	}
	if len(sc.documents) > 0 {
		q = q.Where("study_chunk.document_id IN ?", sc.documents)
	}
	var chunks []studyplan.Chunk
	if err := q.Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	hits := make([]Hit, 0, len(chunks))
	for _, c := range chunks {
		vec := c.Embedding.Slice()
		if len(vec) == 0 {
			continue
		}
		hits = append(hits, Hit{Text: c.Text, Score: Cosine(qvec, vec), DocumentID: c.DocumentID, Order: c.Position})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k = clampK(k); len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty
// or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
