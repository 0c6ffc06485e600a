package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/objectstore"
	"github.com/yungbote/studyplan-backend/internal/retrieval/retrievaltest"
)

func TestChunkGroupsLines(t *testing.T) {
	text := strings.Repeat("a", 700) + "\n" + strings.Repeat("b", 700) + "\n" + "c"
	parts := Chunk(text, 1200)
	require.Len(t, parts, 2)
	assert.Equal(t, strings.Repeat("a", 700), parts[0])
	assert.Equal(t, strings.Repeat("b", 700)+"\nc", parts[1])

	long := strings.Repeat("x", 2000)
	assert.Equal(t, []string{long}, Chunk(long, 1200))
	assert.Empty(t, Chunk("\n\n", 1200))
}

func TestExtractText(t *testing.T) {
	got, err := Extract([]byte("Funcoes afins"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Funcoes afins", got)

	got, err = Extract([]byte{'F', 0xe9, 'l', 'i', 'x'}, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "Félix", got)

	_, err = Extract(nil, "text/plain")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

type fixture struct {
	svc   *Service
	docs  repos.DocumentRepo
	embed *retrievaltest.Embedder
	plan  *studyplan.StudyPlan
	owner uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	owner := uuid.New()
	profile := &studyplan.UserProfile{UserID: owner, Persona: studyplan.PersonaStudent, Goal: "ENEM"}
	require.NoError(t, db.Create(profile).Error)
	plan := &studyplan.StudyPlan{UserProfileID: profile.ID, Title: "Plano"}
	require.NoError(t, db.Create(plan).Error)

	docs := repos.NewDocumentRepo(db, log)
	embed := &retrievaltest.Embedder{}
	return fixture{
		svc:   NewService(db, log, docs, objectstore.NewMemory(), embed),
		docs:  docs,
		embed: embed,
		plan:  plan,
		owner: owner,
	}
}

func TestUploadAndIngestLinksPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	body := strings.Repeat("linha de estudo\n", 200)
	doc, err := f.svc.Upload(ctx, f.owner, "", "apostila.txt", "text/plain", []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "apostila.txt", doc.Title)
	assert.Equal(t, StatusPending, doc.IngestStatus)

	n, err := f.svc.IngestDocument(ctx, doc.ID, &f.plan.ID, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := f.docs.GetByID(dbctx.Context{Ctx: ctx}, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.IngestStatus)
	assert.Equal(t, 3, got.ChunkCount)
	assert.Equal(t, "job-1", got.JobID)
	assert.NotNil(t, got.IngestedAt)

	chunks, err := f.docs.ListChunks(dbctx.Context{Ctx: ctx}, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Position)
	assert.NotEmpty(t, chunks[0].Embedding.Slice())

	var linked []studyplan.Document
	require.NoError(t, f.svc.db.Model(f.plan).Association("RagDocuments").Find(&linked))
	require.Len(t, linked, 1)
	assert.Equal(t, doc.ID, linked[0].ID)
}

func TestIngestFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.Upload(ctx, f.owner, "Notas", "notas.txt", "text/plain", []byte("conteudo"))
	require.NoError(t, err)

	f.embed.Err = errors.New("quota exceeded")
	_, err = f.svc.IngestDocument(ctx, doc.ID, nil, "job-2")
	require.Error(t, err)

	got, err := f.docs.GetByID(dbctx.Context{Ctx: ctx}, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.IngestStatus)
	assert.Contains(t, got.LastError, "quota exceeded")
}

func TestIndexTextReindexesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, n, err := f.svc.IndexText(ctx, f.owner, nil, "Resumo", "primeira versao")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	again, n, err := f.svc.IndexText(ctx, f.owner, &doc.ID, "", strings.Repeat("x", 1000)+"\n"+strings.Repeat("y", 1000))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
	assert.Equal(t, 2, n)

	chunks, err := f.docs.ListChunks(dbctx.Context{Ctx: ctx}, doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	_, _, err = f.svc.IndexText(ctx, uuid.New(), &doc.ID, "", "roubo")
	assert.Error(t, err)
}

func TestEmbedBatchesKeepsOrder(t *testing.T) {
	f := newFixture(t)
	parts := make([]string, embedBatchSize*2+5)
	for i := range parts {
		parts[i] = strings.Repeat("p", i+1)
	}
	vecs, err := f.svc.embedBatches(context.Background(), parts)
	require.NoError(t, err)
	require.Len(t, vecs, len(parts))
	for i, p := range parts {
		want, err := f.embed.EmbedQuery(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, want, vecs[i])
	}
	assert.Equal(t, 3, f.embed.Calls)
}
