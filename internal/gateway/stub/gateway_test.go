package stub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instagram-agent/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled", Format: "json"})
}

func TestStageCommitRoundTrip(t *testing.T) {
	g := New(testLogger())
	ctx := context.Background()

	handle, err := g.Stage(ctx, "https://example.com/a.jpg", "hello world")
	require.NoError(t, err)
	assert.Contains(t, handle, "test_container_")
	assert.Equal(t, 1, g.StagedCount())

	postID, err := g.Commit(ctx, handle)
	require.NoError(t, err)
	assert.Contains(t, postID, "test_post_")
	assert.Equal(t, 0, g.StagedCount())
}

func TestCommitUnknownHandle(t *testing.T) {
	g := New(testLogger())

	_, err := g.Commit(context.Background(), "test_container_0_deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown staging handle")
}

func TestHandlesAreUnique(t *testing.T) {
	g := New(testLogger())
	ctx := context.Background()

	first, err := g.Stage(ctx, "https://example.com/a.jpg", "one")
	require.NoError(t, err)
	second, err := g.Stage(ctx, "https://example.com/b.jpg", "two")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestFailureInjection(t *testing.T) {
	g := New(testLogger())
	ctx := context.Background()

	g.StageErr = errors.New("stage boom")
	_, err := g.Stage(ctx, "https://example.com/a.jpg", "caption")
	assert.EqualError(t, err, "stage boom")

	g.StageErr = nil
	handle, err := g.Stage(ctx, "https://example.com/a.jpg", "caption")
	require.NoError(t, err)

	g.CommitErr = errors.New("commit boom")
	_, err = g.Commit(ctx, handle)
	assert.EqualError(t, err, "commit boom")
}

func TestVerifyAlwaysPasses(t *testing.T) {
	g := New(testLogger())
	assert.NoError(t, g.Verify(context.Background()))
}
