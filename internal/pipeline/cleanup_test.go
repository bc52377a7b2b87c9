package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupRemovesArtifactTree(t *testing.T) {
	mediaRoot := t.TempDir()
	root := filepath.Join(mediaRoot, "videos", "5")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "hls", "720p"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "original.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "hls", "720p", "segment_000.ts"), []byte("x"), 0o644))

	store := newMemStore()
	p := NewProcessor(store, &fakeRunner{}, mediaRoot, nil)

	require.NoError(t, p.Cleanup(context.Background(), 5, root))
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))

	// The reaper runs after the row is gone and must never consult it.
	assert.Equal(t, 0, store.gets)
	assert.Equal(t, 0, store.updates)
}

func TestCleanupRedeliveryIsNoOp(t *testing.T) {
	mediaRoot := t.TempDir()
	root := filepath.Join(mediaRoot, "videos", "5")
	require.NoError(t, os.MkdirAll(root, 0o750))
	p := NewProcessor(newMemStore(), &fakeRunner{}, mediaRoot, nil)

	require.NoError(t, p.Cleanup(context.Background(), 5, root))
	require.NoError(t, p.Cleanup(context.Background(), 5, root))
}

func TestCleanupRejectsEmptyRoot(t *testing.T) {
	p := NewProcessor(newMemStore(), &fakeRunner{}, t.TempDir(), nil)
	err := p.Cleanup(context.Background(), 5, "")
	assert.ErrorContains(t, err, "empty artifact root")
}
