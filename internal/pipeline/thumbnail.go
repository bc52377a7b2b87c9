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
	"github.com/videoflix/backend/internal/models"
)

// Thumbnail extracts a still frame from the source. Safe to re-enqueue: a
// video with an existing thumbnail reference is skipped without touching
// the filesystem. Failures propagate to the queue for retry but never mark
// the video failed; a missing thumbnail is cosmetic and must not block
// streaming.
func (p *Processor) Thumbnail(ctx context.Context, videoID int64) error {
	v, err := p.store.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video %d: %w", videoID, err)
	}
	if v == nil {
		return fmt.Errorf("thumbnail: %w: %d", ErrVideoNotFound, videoID)
	}
	if v.ThumbnailPath != "" {
		p.logger.Info("thumbnail already exists, skipping", zap.Int64("video_id", videoID))
		return nil
	}

	input := filepath.Join(p.mediaRoot, filepath.FromSlash(v.OriginalPath))
	output := v.ThumbnailFile(p.mediaRoot)
	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return fmt.Errorf("create video dir: %w", err)
	}
	if err := p.runner.Run(ctx, ffmpeg.ThumbnailArgs(input, output)...); err != nil {
		return fmt.Errorf("thumbnail for video %d: %w", videoID, err)
	}

	rel := path.Join("videos", strconv.FormatInt(videoID, 10), "thumbnail.jpg")
	err = p.store.Update(ctx, videoID, func(v *models.Video) error {
		v.RecordThumbnail(rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record thumbnail for video %d: %w", videoID, err)
	}

	p.logger.Info("thumbnail created", zap.Int64("video_id", videoID), zap.String("path", rel))
	return nil
}
