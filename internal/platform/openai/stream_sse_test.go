package openai

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSSE(t *testing.T) {
	in := ": keep-alive\r\n\r\n" +
		"event: delta\r\ndata: {\"a\":1}\r\n\r\n" +
		"data: line1\ndata: line2\n\n" +
		"event: empty\n\n" +
		"data: [DONE]"

	type got struct{ event, data string }
	var seen []got
	err := streamSSE(strings.NewReader(in), func(event, data string) error {
		seen = append(seen, got{event, data})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []got{
		{"delta", `{"a":1}`},
		{"", "line1\nline2"},
		{"", "[DONE]"},
	}, seen)
}

func TestStreamSSEStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := streamSSE(strings.NewReader("data: 1\n\ndata: 2\n\n"), func(string, string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
