package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/videoflix/backend/internal/hls"
	"github.com/videoflix/backend/pkg/queue"
)

// Enqueuer is the queue client the orchestrator submits jobs through.
// *queue.Queue implements it; tests substitute a fake.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, payload interface{}, deps ...queue.Handle) (queue.Handle, error)
}

// Orchestrator builds and submits the processing job graph for a video.
// It holds an injected queue client; triggers call it explicitly from the
// upload and delete paths.
type Orchestrator struct {
	queue  Enqueuer
	logger *zap.Logger
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(q Enqueuer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{queue: q, logger: logger}
}

// EnqueueProcessing submits the full job graph for a newly uploaded video:
// one transcode job per ladder entry, a thumbnail job, a source-archive
// job, and a master playlist job that depends on every transcode job.
// The playlist deliberately does not depend on the thumbnail or the
// archive: neither may ever block completion. Must be called only after
// the creating transaction has committed, so workers never observe a
// missing row.
func (o *Orchestrator) EnqueueProcessing(ctx context.Context, videoID int64) error {
	encoders := make([]queue.Handle, 0, len(hls.Ladder))
	for _, r := range hls.Ladder {
		h, err := o.queue.Enqueue(ctx, queue.JobTypeTranscode, queue.TranscodePayload{VideoID: videoID, Label: r.Label})
		if err != nil {
			return fmt.Errorf("enqueue transcode %s: %w", r.Label, err)
		}
		encoders = append(encoders, h)
	}

	if _, err := o.queue.Enqueue(ctx, queue.JobTypeThumbnail, queue.ThumbnailPayload{VideoID: videoID}); err != nil {
		return fmt.Errorf("enqueue thumbnail: %w", err)
	}
	if _, err := o.queue.Enqueue(ctx, queue.JobTypeArchiveSource, queue.ArchiveSourcePayload{VideoID: videoID}); err != nil {
		return fmt.Errorf("enqueue archive: %w", err)
	}
	if _, err := o.queue.Enqueue(ctx, queue.JobTypeMasterPlaylist, queue.MasterPlaylistPayload{VideoID: videoID}, encoders...); err != nil {
		return fmt.Errorf("enqueue master playlist: %w", err)
	}

	o.logger.Info("processing pipeline enqueued",
		zap.Int64("video_id", videoID),
		zap.Int("encoder_jobs", len(encoders)),
	)
	return nil
}

// EnqueueCleanup submits the artifact removal job for a deleted video.
// The artifact root is captured by the caller before the row disappears.
func (o *Orchestrator) EnqueueCleanup(ctx context.Context, videoID int64, root string) error {
	if _, err := o.queue.Enqueue(ctx, queue.JobTypeCleanup, queue.CleanupPayload{VideoID: videoID, Root: root}); err != nil {
		return fmt.Errorf("enqueue cleanup: %w", err)
	}
	o.logger.Info("cleanup enqueued", zap.Int64("video_id", videoID), zap.String("root", root))
	return nil
}
