package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/videoflix/backend/internal/ffmpeg"
	"github.com/videoflix/backend/internal/hls"
	"github.com/videoflix/backend/internal/models"
)

// Transcode encodes the source into one HLS rendition. The encode itself
// runs without any lock; only the read-modify-write on the row afterwards
// takes the row lock. Output paths are deterministic per label, so a retry
// overwrites whatever a failed attempt left behind.
func (p *Processor) Transcode(ctx context.Context, videoID int64, label string) error {
	rendition, ok := hls.LadderRendition(label)
	if !ok {
		return fmt.Errorf("unknown rendition label %q", label)
	}

	v, err := p.store.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video %d: %w", videoID, err)
	}
	if v == nil {
		return fmt.Errorf("transcode %s: %w: %d", label, ErrVideoNotFound, videoID)
	}

	input := filepath.Join(p.mediaRoot, filepath.FromSlash(v.OriginalPath))
	if _, err := os.Stat(input); err != nil {
		p.failVideo(ctx, videoID)
		return fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, input, err)
	}

	outDir := filepath.Join(v.HLSDir(p.mediaRoot), label)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		p.failVideo(ctx, videoID)
		return fmt.Errorf("create rendition dir: %w", err)
	}

	if err := p.runner.Run(ctx, ffmpeg.HLSArgs(input, rendition, outDir)...); err != nil {
		// Record the failure durably before propagating, so the queue's
		// retry policy never observes an ambiguous state.
		p.failVideo(ctx, videoID)
		return fmt.Errorf("transcode %s for video %d: %w", label, videoID, err)
	}

	rel := path.Join("videos", strconv.FormatInt(videoID, 10), "hls", label, "index.m3u8")
	err = p.store.Update(ctx, videoID, func(v *models.Video) error {
		v.BeginProcessing()
		v.RecordRendition(label, rel)
		return nil
	})
	if err != nil {
		p.failVideo(ctx, videoID)
		return fmt.Errorf("record rendition %s for video %d: %w", label, videoID, err)
	}

	p.logger.Info("rendition encoded",
		zap.Int64("video_id", videoID),
		zap.String("label", label),
		zap.String("playlist", rel),
	)
	return nil
}

// failVideo records a durable failure in a separate transaction. Errors
// here are logged only; the original job error is the one that matters.
func (p *Processor) failVideo(ctx context.Context, videoID int64) {
	if err := p.store.MarkFailed(ctx, videoID); err != nil {
		p.logger.Error("mark failed", zap.Int64("video_id", videoID), zap.Error(err))
	}
}
