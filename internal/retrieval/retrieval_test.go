package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

// keywordEmbedder maps text onto three axes by keyword.
type keywordEmbedder struct{}

func vectorFor(text string) []float32 {
	t := strings.ToLower(text)
	v := []float32{0.01, 0.01, 0.01}
	if strings.Contains(t, "algebra") {
		v[0] = 1
	}
	if strings.Contains(t, "biologia") {
		v[1] = 1
	}
	if strings.Contains(t, "historia") {
		v[2] = 1
	}
	return v
}

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

func (keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return vectorFor(text), nil
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestGormSearcherRanksAndScopes(t *testing.T) {
	db := testutil.DB(t)
	owner, other := uuid.New(), uuid.New()

	mine := &studyplan.Document{OwnerID: owner, Title: "Apostila", Source: studyplan.DocumentSourceText, IngestStatus: "succeeded"}
	theirs := &studyplan.Document{OwnerID: other, Title: "Outro", Source: studyplan.DocumentSourceText, IngestStatus: "succeeded"}
	require.NoError(t, db.Create(mine).Error)
	require.NoError(t, db.Create(theirs).Error)

	texts := []string{"Algebra linear basica", "Biologia celular", "Historia do Brasil"}
	for i, txt := range texts {
		require.NoError(t, db.Create(&studyplan.Chunk{DocumentID: mine.ID, Position: i, Text: txt, Embedding: pgvector.NewVector(vectorFor(txt))}).Error)
	}
	require.NoError(t, db.Create(&studyplan.Chunk{DocumentID: theirs.ID, Position: 0, Text: "Algebra avancada", Embedding: pgvector.NewVector(vectorFor("algebra"))}).Error)

	s := NewGormSearcher(db, keywordEmbedder{}, testutil.Logger(t))

	hits, err := s.Search(context.Background(), "exercicios de algebra", 2, WithOwner(owner))
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Algebra linear basica", hits[0].Text)
	assert.Equal(t, mine.ID, hits[0].DocumentID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = s.Search(context.Background(), "algebra", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 4)

	hits, err = s.Search(context.Background(), "  ", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuildSearchSQLNumbersArguments(t *testing.T) {
	sql, args := buildSearchSQL(pgvector.NewVector([]float32{1}), 5, scope{owner: uuid.New(), documents: []uuid.UUID{uuid.New()}})
	assert.Contains(t, sql, "d.owner_id = $2::uuid")
	assert.Contains(t, sql, "ANY($3::uuid[])")
	assert.Contains(t, sql, "LIMIT $4")
	assert.Len(t, args, 4)
	assert.Equal(t, 5, args[3])
}
