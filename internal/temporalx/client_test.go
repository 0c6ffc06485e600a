package temporalx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Backoff(100*time.Millisecond, time.Second, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(100*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, Backoff(100*time.Millisecond, time.Second, 10))
	assert.Equal(t, 250*time.Millisecond, Backoff(0, 0, 1))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	cfg := LoadConfig()
	assert.False(t, cfg.Enabled())
	assert.Equal(t, "studyplan", cfg.Namespace)
	assert.Equal(t, "studyplan", cfg.TaskQueue)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestLoadTLSConfigRequiresKeyPair(t *testing.T) {
	_, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both TEMPORAL_CLIENT_CERT_PATH")
}

func TestRetryStopsWhenNotRetryable(t *testing.T) {
	calls := 0
	err := retry(Config{Backoff: time.Millisecond}, logger.Nop(), "test", func(attempt int) (bool, error) {
		calls++
		if attempt < 3 {
			return true, assert.AnError
		}
		return false, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 3, calls)
}
