package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoflix/backend/internal/models"
)

func TestThumbnailSuccess(t *testing.T) {
	root := t.TempDir()
	store := newMemStore(newSourceVideo(t, root, 5))
	runner := &fakeRunner{}
	p := NewProcessor(store, runner, root, nil)

	require.NoError(t, p.Thumbnail(context.Background(), 5))

	v := store.get(5)
	assert.Equal(t, "videos/5/thumbnail.jpg", v.ThumbnailPath)
	assert.Equal(t, 1, runner.callCount())
	// Thumbnail alone never advances processing state.
	assert.Equal(t, models.StatusPending, v.Status)
}

func TestThumbnailSkipsWhenAlreadySet(t *testing.T) {
	root := t.TempDir()
	v := newSourceVideo(t, root, 5)
	v.ThumbnailPath = "videos/5/thumbnail.jpg"
	store := newMemStore(v)
	runner := &fakeRunner{}
	p := NewProcessor(store, runner, root, nil)

	require.NoError(t, p.Thumbnail(context.Background(), 5))

	// Re-enqueue with an existing thumbnail: no transcoder invocation, no
	// store mutation.
	assert.Equal(t, 0, runner.callCount())
	assert.Equal(t, 0, store.updates)
	assert.Equal(t, "videos/5/thumbnail.jpg", store.get(5).ThumbnailPath)
}

func TestThumbnailFailureNeverFailsVideo(t *testing.T) {
	root := t.TempDir()
	store := newMemStore(newSourceVideo(t, root, 5))
	runner := &fakeRunner{err: errors.New("exit status 1")}
	p := NewProcessor(store, runner, root, nil)

	err := p.Thumbnail(context.Background(), 5)
	require.Error(t, err)
	// The error propagates for the queue's retry policy, but a missing
	// thumbnail must not block streaming.
	assert.Equal(t, models.StatusPending, store.get(5).Status)
	assert.Empty(t, store.get(5).ThumbnailPath)
}

func TestThumbnailVideoGone(t *testing.T) {
	p := NewProcessor(newMemStore(), &fakeRunner{}, t.TempDir(), nil)
	err := p.Thumbnail(context.Background(), 99)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
