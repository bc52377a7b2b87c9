package ffmpeg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoflix/backend/internal/hls"
)

func TestHLSArgs(t *testing.T) {
	r, ok := hls.LadderRendition("480p")
	require.True(t, ok)

	args := HLSArgs("/media/videos/3/original.mp4", r, "/media/videos/3/hls/480p")
	assert.Equal(t, []string{
		"-y",
		"-i", "/media/videos/3/original.mp4",
		"-vf", "scale=854:480",
		"-c:v", "libx264",
		"-b:v", "800k",
		"-c:a", "aac",
		"-b:a", "96k",
		"-hls_time", "10",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join("/media/videos/3/hls/480p", "segment_%03d.ts"),
		filepath.Join("/media/videos/3/hls/480p", "index.m3u8"),
	}, args)
}

func TestThumbnailArgs(t *testing.T) {
	args := ThumbnailArgs("/media/videos/3/original.mp4", "/media/videos/3/thumbnail.jpg")
	assert.Equal(t, []string{
		"-y",
		"-i", "/media/videos/3/original.mp4",
		"-ss", "00:00:01",
		"-vframes", "1",
		"-q:v", "2",
		"/media/videos/3/thumbnail.jpg",
	}, args)
}

func TestStderrTail(t *testing.T) {
	assert.Equal(t, "a | b", stderrTail("a\nb\n"))
	assert.Equal(t, "2 | 3 | 4 | 5 | 6", stderrTail("1\n2\n3\n4\n5\n6"))
}
