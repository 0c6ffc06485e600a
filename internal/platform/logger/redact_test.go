package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubKVs(t *testing.T) {
	s := &scrubber{enabled: true, salt: "pepper"}
	jwt := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"

	assert.Equal(t, "[REDACTED]", s.value("access_token", "abc"))
	assert.Equal(t, "n", s.value("max_tokens", "n"))
	assert.Equal(t, "[REDACTED]", s.value("goal", "passar no ENEM"))
	assert.Equal(t, "[REDACTED]", s.value("note", jwt))
	assert.Equal(t, "", s.value("user_id", ""))

	h := s.value("user_id", "u-1")
	assert.Regexp(t, `^hash:[0-9a-f]{12}$`, h)
	assert.Equal(t, h, s.value("session_id", "u-1"))

	nested := s.value("payload", map[string]interface{}{"password": "x", "plan_id": "p1"})
	assert.Equal(t, map[string]interface{}{"password": "[REDACTED]", "plan_id": "p1"}, nested)
}
