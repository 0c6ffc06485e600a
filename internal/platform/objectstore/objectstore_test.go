package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := New(ctx, Config{Mode: ModeMemory}, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, st.Put(ctx, "materials/a.txt", strings.NewReader("algebra"), "text/plain"))
	b, err := ReadAll(ctx, st, "materials/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "algebra", string(b))

	require.NoError(t, st.Delete(ctx, "materials/a.txt"))
	_, err = st.Get(ctx, "materials/a.txt")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestNewRejectsMissingBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Mode: ModeS3}, logger.Nop())
	require.Error(t, err)

	_, err = New(context.Background(), Config{Mode: "ftp", Bucket: "b"}, logger.Nop())
	require.Error(t, err)
}
