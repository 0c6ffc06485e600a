package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/ctxutil"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	svc, err := NewAuthService(testutil.Logger(t), "secret", "studyplan")
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.IssueToken(userID, "sess-1", time.Minute)
	require.NoError(t, err)

	ctx, err := svc.SetContextFromToken(context.Background(), token)
	require.NoError(t, err)
	rd := ctxutil.GetRequestData(ctx)
	require.NotNil(t, rd)
	assert.Equal(t, userID, rd.UserID)
	assert.Equal(t, "sess-1", rd.SessionID)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	svc, err := NewAuthService(testutil.Logger(t), "secret", "")
	require.NoError(t, err)
	other, err := NewAuthService(testutil.Logger(t), "other-secret", "")
	require.NoError(t, err)

	forged, err := other.IssueToken(uuid.New(), "", time.Minute)
	require.NoError(t, err)
	_, err = svc.SetContextFromToken(context.Background(), forged)
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)

	as := svc.(*authService)
	as.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.IssueToken(uuid.New(), "", time.Minute)
	require.NoError(t, err)
	as.now = time.Now
	_, err = svc.SetContextFromToken(context.Background(), expired)
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)

	_, err = svc.SetContextFromToken(context.Background(), "")
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)

	_, err = NewAuthService(testutil.Logger(t), " ", "")
	assert.Error(t, err)
}
