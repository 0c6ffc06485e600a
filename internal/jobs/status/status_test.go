package status

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/realtime"
)

type event struct {
	name string
	data any
}

type recorder struct{ events []event }

func (r *recorder) Write(name string, data any) error {
	r.events = append(r.events, event{name, data})
	return nil
}

func (r *recorder) names() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

func fast(polls int) Config { return Config{Interval: time.Millisecond, MaxPolls: polls} }

func TestStreamTimesOutOnRunningJob(t *testing.T) {
	job := &domain.JobRun{ID: uuid.New(), Status: domain.StatusRunning}
	var polls atomic.Int32
	load := func(context.Context) (*domain.JobRun, error) {
		polls.Add(1)
		return job, nil
	}
	rec := &recorder{}
	require.NoError(t, Stream(context.Background(), fast(4), job.ID.String(), load, rec))

	assert.Equal(t, []string{EventStatus, EventTimeout}, rec.names())
	assert.EqualValues(t, 4, polls.Load())
}

func TestStreamEmitsTransitionsThenResult(t *testing.T) {
	id := uuid.New()
	states := []*domain.JobRun{
		{ID: id, Status: domain.StatusQueued},
		{ID: id, Status: domain.StatusRunning},
		{ID: id, Status: domain.StatusRunning},
		{ID: id, Status: domain.StatusSucceeded, Result: datatypes.JSON(`{"plan_id":"p1"}`)},
	}
	i := 0
	load := func(context.Context) (*domain.JobRun, error) {
		j := states[min(i, len(states)-1)]
		i++
		return j, nil
	}
	rec := &recorder{}
	require.NoError(t, Stream(context.Background(), fast(10), id.String(), load, rec))

	assert.Equal(t, []string{EventStatus, EventStatus, EventStatus, EventResult}, rec.names())
	assert.Equal(t, "pending", rec.events[0].data.(map[string]any)["status"])
	assert.Equal(t, map[string]any{"plan_id": "p1"}, rec.events[3].data.(map[string]any)["result"])
}

func TestStreamFailedJobEmitsError(t *testing.T) {
	job := &domain.JobRun{ID: uuid.New(), Status: domain.StatusFailed, Error: "json invalido"}
	rec := &recorder{}
	err := Stream(context.Background(), fast(5), job.ID.String(), func(context.Context) (*domain.JobRun, error) { return job, nil }, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{EventStatus, EventError}, rec.names())
	assert.Equal(t, "json invalido", rec.events[1].data.(map[string]any)["error"])
}

func TestStreamLoaderErrorAndMissingJob(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, Stream(context.Background(), fast(3), "x", func(context.Context) (*domain.JobRun, error) {
		return nil, errors.New("db down")
	}, rec))
	assert.Equal(t, []string{EventError}, rec.names())

	rec = &recorder{}
	require.NoError(t, Stream(context.Background(), fast(3), "x", func(context.Context) (*domain.JobRun, error) { return nil, nil }, rec))
	assert.Equal(t, []string{EventError}, rec.names())
}

func TestStreamOverSSEWriter(t *testing.T) {
	job := &domain.JobRun{ID: uuid.New(), Status: domain.StatusRunning}
	w := httptest.NewRecorder()
	sse, err := realtime.NewWriter(w)
	require.NoError(t, err)

	require.NoError(t, Stream(context.Background(), fast(2), job.ID.String(), func(context.Context) (*domain.JobRun, error) { return job, nil }, sse))

	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event: timeout"))
	assert.NotContains(t, body, "event: result")
	assert.NotContains(t, body, "event: error")
	assert.Contains(t, body, "id: 2\nevent: timeout\n")
}

func TestViewOf(t *testing.T) {
	id := uuid.New()
	v := ViewOf(&domain.JobRun{ID: id, Status: domain.StatusQueued})
	assert.Equal(t, View{JobID: id.String(), Status: "pending"}, v)

	v = ViewOf(&domain.JobRun{ID: id, Status: domain.StatusSucceeded})
	assert.Equal(t, map[string]any{}, v.Result)
}
