package pipeline

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Cleanup removes every on-disk artifact for a deleted video. The row is
// already gone when this runs, so the artifact root arrives in the payload
// and the store is never consulted. An already-absent directory is a
// success (redelivery is a no-op). Removal errors are logged and swallowed:
// the deletion itself succeeded, and a leftover directory is an acceptable
// degraded outcome rather than something to retry.
func (p *Processor) Cleanup(ctx context.Context, videoID int64, root string) error {
	if root == "" {
		return fmt.Errorf("cleanup for video %d: empty artifact root", videoID)
	}
	if err := os.RemoveAll(root); err != nil {
		p.logger.Error("cleanup failed, artifacts left behind",
			zap.Int64("video_id", videoID),
			zap.String("root", root),
			zap.Error(err),
		)
		return nil
	}
	p.logger.Info("artifacts removed", zap.Int64("video_id", videoID), zap.String("root", root))
	return nil
}
