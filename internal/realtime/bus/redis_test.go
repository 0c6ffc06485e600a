package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/realtime"
)

func TestEnvelope(t *testing.T) {
	msg := realtime.SSEMessage{Channel: "u1", Event: realtime.SSEEventJobDone, Data: map[string]any{"job_id": "j1"}}
	raw, err := encode(msg, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	got, err := decode(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Channel)
	assert.Equal(t, realtime.SSEEventJobDone, got.Event)
	assert.Equal(t, map[string]any{"job_id": "j1"}, got.Data)

	_, err = decode(`{"v":2,"msg":{"channel":"u1"}}`)
	assert.Error(t, err)
	_, err = decode(`{"v":1,"msg":{"event":"JobDone"}}`)
	assert.Error(t, err)
	_, err = decode(`not json`)
	assert.Error(t, err)
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	_, err := NewRedisBus(Config{}, nil)
	assert.Error(t, err)
}
