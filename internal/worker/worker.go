// Package worker runs the background job pool that drains the pipeline
// queue: rendition encoding, thumbnails, playlist composition, cleanup.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/videoflix/backend/pkg/queue"
)

// JobSource is the queue side the pool consumes from. *queue.Queue
// implements it.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Finish(ctx context.Context, jobID string) error
	Retry(ctx context.Context, job *queue.Job) (dead bool, err error)
}

// JobProcessor executes one job body. *pipeline.Processor implements it.
type JobProcessor interface {
	Process(ctx context.Context, job *queue.Job) error
}

// Pool drains the job queue with a fixed number of concurrent workers.
type Pool struct {
	source      JobSource
	processor   JobProcessor
	concurrency int
	backoff     time.Duration
	logger      *zap.Logger
}

// NewPool creates a worker pool. Concurrency below 1 is treated as 1.
func NewPool(source JobSource, processor JobProcessor, concurrency int, logger *zap.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		source:      source,
		processor:   processor,
		concurrency: concurrency,
		backoff:     queue.RetryBackoff,
		logger:      logger,
	}
}

// Run starts the workers and blocks until ctx is cancelled and every
// worker has drained its current job.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	p.logger.Info("worker pool started", zap.Int("concurrency", p.concurrency))
	wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	log := p.logger.With(zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		log.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.processor.Process(ctx, job); err != nil {
			log.Error("job failed",
				zap.String("job_id", job.ID),
				zap.String("type", string(job.Type)),
				zap.Int("attempt", job.Attempt),
				zap.Error(err),
			)
			dead, reErr := p.source.Retry(ctx, job)
			if reErr != nil {
				log.Error("retry enqueue failed", zap.Error(reErr), zap.String("job_id", job.ID))
				p.sleep(ctx)
				continue
			}
			if dead {
				// Dead-lettered jobs still count as finished so dependents
				// are released instead of waiting forever.
				if fErr := p.source.Finish(ctx, job.ID); fErr != nil {
					log.Error("finish after dead-letter failed", zap.Error(fErr), zap.String("job_id", job.ID))
				}
			}
			p.sleep(ctx)
			continue
		}

		if err := p.source.Finish(ctx, job.ID); err != nil {
			log.Error("finish failed", zap.Error(err), zap.String("job_id", job.ID))
		}
	}
}

// sleep waits out the retry backoff but wakes early on cancellation.
func (p *Pool) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
