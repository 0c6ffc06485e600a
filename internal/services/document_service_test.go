package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/ingest"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/studyplan-backend/internal/platform/objectstore"
	"github.com/yungbote/studyplan-backend/internal/retrieval"
	"github.com/yungbote/studyplan-backend/internal/retrieval/retrievaltest"
)

func TestUploadQueuesIngestJob(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	docs := repos.NewDocumentRepo(db, log)
	jobRepo := repos.NewJobRunRepo(db, log)
	search := &retrievaltest.Searcher{Hits: []retrieval.Hit{{Text: "funções afins", Score: 0.9}}}
	svc := NewDocumentService(
		db, log,
		ingest.NewService(db, log, docs, objectstore.NewMemory(), &retrievaltest.Embedder{}),
		docs,
		repos.NewProfileRepo(db, log),
		repos.NewPlanRepo(db, log),
		search,
		NewJobService(db, log, jobRepo, nil, nil, ""),
	)
	profile := testutil.SeedProfile(t, context.Background(), db, "ENEM")
	plan := testutil.SeedPlan(t, context.Background(), db, profile, nil)
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: profile.UserID})

	doc, job, err := svc.Upload(ctx, UploadRequest{
		Filename: "apostila.txt",
		MimeType: "text/plain",
		Raw:      []byte(strings.Repeat("linha\n", 10)),
		PlanID:   &plan.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeDocumentIngest, job.JobType)
	assert.Equal(t, job.ID.String(), doc.JobID)

	stored, err := docs.GetByID(dbctx.Context{Ctx: ctx}, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID.String(), stored.JobID)
	assert.Equal(t, ingest.StatusPending, stored.IngestStatus)

	other := uuid.New()
	_, _, err = svc.Upload(ctx, UploadRequest{Raw: []byte("x"), PlanID: &other})
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	hits, err := svc.Search(ctx, " funções ", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, []string{"funções"}, search.Queries)

	_, err = svc.Search(ctx, "", 5)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)

	indexed, n, err := svc.IndexText(ctx, nil, "Resumo", "texto curto de estudo")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, studyplan.DocumentSourceText, indexed.Source)

	list, err := svc.ListForRequestUser(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
