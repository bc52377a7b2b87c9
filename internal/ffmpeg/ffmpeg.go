// Package ffmpeg wraps the external ffmpeg binary used for HLS encoding
// and thumbnail extraction.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/videoflix/backend/internal/hls"
)

// segmentDuration is the fixed HLS segment length in seconds.
const segmentDuration = "10"

// Runner executes a transcoder invocation. The production implementation
// shells out to ffmpeg; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// Exec runs ffmpeg as a subprocess.
type Exec struct {
	bin    string
	logger *zap.Logger
}

// NewExec creates a Runner invoking the given ffmpeg binary.
func NewExec(bin string, logger *zap.Logger) *Exec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{bin: bin, logger: logger}
}

// Run invokes ffmpeg and waits for it to finish. A non-zero exit is
// returned as an error carrying the tail of stderr.
func (e *Exec) Run(ctx context.Context, args ...string) error {
	start := time.Now()
	cmd := exec.CommandContext(ctx, e.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	e.logger.Debug("ffmpeg finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Strings("args", args),
		zap.Error(err),
	)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr.String()))
	}
	return nil
}

// stderrTail keeps the last few lines of ffmpeg output; the interesting
// error is always at the end.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}

// HLSArgs builds the ffmpeg arguments encoding input into one segmented
// VOD rendition under outputDir (index.m3u8 + segment_%03d.ts). -y makes a
// re-run overwrite leftovers from a failed attempt.
func HLSArgs(input string, r hls.Rendition, outputDir string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", "scale=" + r.Scale,
		"-c:v", "libx264",
		"-b:v", r.VideoBitrate,
		"-c:a", "aac",
		"-b:a", r.AudioBitrate,
		"-hls_time", segmentDuration,
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outputDir, "segment_%03d.ts"),
		filepath.Join(outputDir, "index.m3u8"),
	}
}

// ThumbnailArgs builds the ffmpeg arguments extracting a single frame one
// second into the source.
func ThumbnailArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-q:v", "2",
		output,
	}
}
