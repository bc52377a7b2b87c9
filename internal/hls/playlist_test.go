package hls

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterPlaylistAllRenditions(t *testing.T) {
	renditions := map[string]string{
		"480p":  "videos/1/hls/480p/index.m3u8",
		"720p":  "videos/1/hls/720p/index.m3u8",
		"1080p": "videos/1/hls/1080p/index.m3u8",
	}
	got := MasterPlaylist(renditions)

	want := "#EXTM3U\n#EXT-X-VERSION:3\n\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=854x480\n480p/index.m3u8\n\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720\n720p/index.m3u8\n\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080\n1080p/index.m3u8\n\n"
	assert.Equal(t, want, got)
}

func TestMasterPlaylistPartialSetKeepsLadderOrder(t *testing.T) {
	// 720p missing: exactly two stream-inf blocks, 480p before 1080p,
	// no 720p reference anywhere.
	got := MasterPlaylist(map[string]string{
		"480p":  "videos/1/hls/480p/index.m3u8",
		"1080p": "videos/1/hls/1080p/index.m3u8",
	})

	assert.Equal(t, 2, strings.Count(got, "#EXT-X-STREAM-INF"))
	assert.NotContains(t, got, "720p")
	assert.Less(t, strings.Index(got, "480p/index.m3u8"), strings.Index(got, "1080p/index.m3u8"))
	assert.Contains(t, got, "#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=854x480\n480p/index.m3u8")
	assert.Contains(t, got, "#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080\n1080p/index.m3u8")
}

func TestMasterPlaylistEmptySet(t *testing.T) {
	// All encoders failing still produces a valid header-only playlist.
	got := MasterPlaylist(nil)
	assert.Equal(t, "#EXTM3U\n#EXT-X-VERSION:3\n\n", got)
}

func TestValidateLadder(t *testing.T) {
	require.NoError(t, ValidateLadder())
}

func TestLadderRendition(t *testing.T) {
	r, ok := LadderRendition("720p")
	require.True(t, ok)
	assert.Equal(t, "1280:720", r.Scale)
	assert.Equal(t, 2800000, r.Bandwidth)

	_, ok = LadderRendition("240p")
	assert.False(t, ok)
}
