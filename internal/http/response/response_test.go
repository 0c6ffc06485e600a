package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
)

func TestRespondAPIErrorMapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{fmt.Errorf("plan x: %w", pkgerrors.ErrNotFound), http.StatusNotFound, "not_found", "plan x: not found"},
		{pkgerrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "unauthorized"},
		{fmt.Errorf("bad: %w", pkgerrors.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument", "bad: invalid argument"},
		{errors.New("db exploded"), http.StatusInternalServerError, "internal_error", "internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		RespondAPIError(c, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var env ErrorEnvelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, tc.code, env.Error.Code)
		assert.Equal(t, tc.msg, env.Error.Message)
	}
}
