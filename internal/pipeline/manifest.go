package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/videoflix/backend/internal/hls"
	"github.com/videoflix/backend/internal/models"
)

// ComposeMasterPlaylist writes the master manifest from the rendition
// paths accumulated on the row and finalizes the video. The queue's
// dependency wiring guarantees every encoder job has finished first; the
// composer itself does no waiting. It finalizes unconditionally, so a
// video whose encoders partially (or entirely) failed still completes with
// whatever renditions exist.
func (p *Processor) ComposeMasterPlaylist(ctx context.Context, videoID int64) error {
	var entries int
	err := p.store.Update(ctx, videoID, func(v *models.Video) error {
		entries = len(v.Renditions)
		dir := v.HLSDir(p.mediaRoot)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create hls dir: %w", err)
		}
		content := hls.MasterPlaylist(v.Renditions)
		if err := os.WriteFile(filepath.Join(dir, "master.m3u8"), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write master playlist: %w", err)
		}
		v.Finalize()
		return nil
	})
	if err != nil {
		p.failVideo(ctx, videoID)
		return fmt.Errorf("compose master playlist for video %d: %w", videoID, err)
	}

	p.logger.Info("master playlist composed",
		zap.Int64("video_id", videoID),
		zap.Int("renditions", entries),
	)
	return nil
}
