package pipeline

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/videoflix/backend/internal/models"
	"github.com/videoflix/backend/pkg/storage"
)

// ArchiveSource streams the uploaded source file to cold storage. No-op
// when no archiver or bucket is configured, and when the video already has
// an archive URL (safe to re-enqueue).
func (p *Processor) ArchiveSource(ctx context.Context, videoID int64) error {
	if p.archiver == nil || p.archiver.ArchiveBucket() == "" {
		p.logger.Debug("source archiving not configured, skipping", zap.Int64("video_id", videoID))
		return nil
	}

	v, err := p.store.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video %d: %w", videoID, err)
	}
	if v == nil {
		return fmt.Errorf("archive source: %w: %d", ErrVideoNotFound, videoID)
	}
	if v.ArchiveURL != "" {
		p.logger.Info("source already archived, skipping", zap.Int64("video_id", videoID))
		return nil
	}

	input := filepath.Join(p.mediaRoot, filepath.FromSlash(v.OriginalPath))
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, input, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(input))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.SourceKey(videoID, filepath.Base(input))
	url, err := p.archiver.Upload(ctx, p.archiver.ArchiveBucket(), key, contentType, f)
	if err != nil {
		return fmt.Errorf("archive source for video %d: %w", videoID, err)
	}

	err = p.store.Update(ctx, videoID, func(v *models.Video) error {
		v.ArchiveURL = url
		return nil
	})
	if err != nil {
		return fmt.Errorf("record archive url for video %d: %w", videoID, err)
	}

	p.logger.Info("source archived", zap.Int64("video_id", videoID), zap.String("key", key))
	return nil
}
