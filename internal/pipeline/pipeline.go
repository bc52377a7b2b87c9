// Package pipeline contains the HLS processing job bodies: rendition
// encoding, thumbnail extraction, master playlist composition, artifact
// cleanup and source archiving. Job bodies run out of process in the
// worker pool; the only shared mutable state is the video row, serialized
// through the store's row lock.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/videoflix/backend/internal/ffmpeg"
	"github.com/videoflix/backend/internal/models"
	"github.com/videoflix/backend/pkg/queue"
)

// ErrVideoNotFound reports a job referencing a row that no longer exists.
var ErrVideoNotFound = errors.New("video not found")

// ErrSourceUnreadable reports a missing or unreadable source file. Fatal:
// the video is marked failed and the error propagates to the queue.
var ErrSourceUnreadable = errors.New("source file unreadable")

// Store is the subset of the video repository the pipeline mutates through.
// Update holds an exclusive row lock for the duration of the mutate
// callback; MarkFailed commits in its own transaction.
type Store interface {
	GetByID(ctx context.Context, id int64) (*models.Video, error)
	Update(ctx context.Context, id int64, mutate func(*models.Video) error) error
	MarkFailed(ctx context.Context, id int64) error
}

// Archiver uploads source files to cold storage. *storage.S3 implements
// it; nil disables archiving.
type Archiver interface {
	ArchiveBucket() string
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
}

// Processor executes pipeline jobs against the store and the filesystem.
type Processor struct {
	store     Store
	runner    ffmpeg.Runner
	archiver  Archiver
	mediaRoot string
	logger    *zap.Logger
}

// NewProcessor creates a pipeline processor rooted at mediaRoot.
func NewProcessor(store Store, runner ffmpeg.Runner, mediaRoot string, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: store, runner: runner, mediaRoot: mediaRoot, logger: logger}
}

// SetArchiver sets the optional cold-storage archiver.
func (p *Processor) SetArchiver(a Archiver) { p.archiver = a }

// Process executes one pipeline job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeTranscode:
		var pl queue.TranscodePayload
		if err := json.Unmarshal(job.Payload, &pl); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.Transcode(ctx, pl.VideoID, pl.Label)
	case queue.JobTypeThumbnail:
		var pl queue.ThumbnailPayload
		if err := json.Unmarshal(job.Payload, &pl); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.Thumbnail(ctx, pl.VideoID)
	case queue.JobTypeMasterPlaylist:
		var pl queue.MasterPlaylistPayload
		if err := json.Unmarshal(job.Payload, &pl); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.ComposeMasterPlaylist(ctx, pl.VideoID)
	case queue.JobTypeCleanup:
		var pl queue.CleanupPayload
		if err := json.Unmarshal(job.Payload, &pl); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.Cleanup(ctx, pl.VideoID, pl.Root)
	case queue.JobTypeArchiveSource:
		var pl queue.ArchiveSourcePayload
		if err := json.Unmarshal(job.Payload, &pl); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.ArchiveSource(ctx, pl.VideoID)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
