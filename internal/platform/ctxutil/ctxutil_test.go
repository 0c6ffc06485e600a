package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLogFields(t *testing.T) {
	assert.Empty(t, LogFields(context.Background()))
	assert.Equal(t, uuid.Nil, UserID(context.Background()))

	id := uuid.New()
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t1"})
	ctx = WithRequestData(ctx, &RequestData{UserID: id, SessionID: "s1"})
	assert.Equal(t, id, UserID(ctx))
	assert.Equal(t, []interface{}{"trace_id", "t1", "user_id", id.String(), "session_id", "s1"}, LogFields(ctx))
}
