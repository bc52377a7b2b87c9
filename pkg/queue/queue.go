package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// keyPrefix namespaces all queue keys in Redis.
	keyPrefix = "pipeline:"
	// keyReady is the Redis list of job IDs ready to run.
	keyReady = keyPrefix + "ready"
	// keyDLQ is the dead-letter list for jobs that exhausted retries.
	keyDLQ = keyPrefix + "dlq"
	// keyFinished is the set of finished job IDs (success or dead-lettered).
	keyFinished = keyPrefix + "finished"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeTranscode      JobType = "transcode"
	JobTypeThumbnail      JobType = "thumbnail"
	JobTypeMasterPlaylist JobType = "master_playlist"
	JobTypeCleanup        JobType = "cleanup"
	JobTypeArchiveSource  JobType = "archive_source"
)

// TranscodePayload is the payload for one rendition encoding job.
type TranscodePayload struct {
	VideoID int64  `json:"video_id"`
	Label   string `json:"label"`
}

// ThumbnailPayload is the payload for thumbnail extraction jobs.
type ThumbnailPayload struct {
	VideoID int64 `json:"video_id"`
}

// MasterPlaylistPayload is the payload for master manifest composition jobs.
type MasterPlaylistPayload struct {
	VideoID int64 `json:"video_id"`
}

// CleanupPayload is the payload for artifact cleanup jobs. Root is the
// artifact directory captured before the row was deleted; the job must not
// look the video up again.
type CleanupPayload struct {
	VideoID int64  `json:"video_id"`
	Root    string `json:"root"`
}

// ArchiveSourcePayload is the payload for source cold-storage archive jobs.
type ArchiveSourcePayload struct {
	VideoID int64 `json:"video_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	DependsOn []string        `json:"depends_on,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Handle identifies an enqueued job and can be passed as a dependency of a
// later enqueue. A dependent job is not started until every dependency has
// finished, whether it succeeded or was dead-lettered.
type Handle string

// enqueueScript stores the job body and either pushes it onto the ready
// list or parks it behind its unfinished dependencies. Runs atomically so
// a dependency finishing concurrently cannot strand the job.
//
// KEYS: ready list, finished set. ARGV: prefix, job id, job json, dep ids.
var enqueueScript = redis.NewScript(`
redis.call('SET', ARGV[1] .. 'job:' .. ARGV[2], ARGV[3])
local pending = ARGV[1] .. 'pending:' .. ARGV[2]
local remaining = 0
for i = 4, #ARGV do
  if redis.call('SISMEMBER', KEYS[2], ARGV[i]) == 0 then
    redis.call('SADD', pending, ARGV[i])
    redis.call('SADD', ARGV[1] .. 'dependents:' .. ARGV[i], ARGV[2])
    remaining = remaining + 1
  end
end
if remaining == 0 then
  redis.call('RPUSH', KEYS[1], ARGV[2])
end
return remaining
`)

// finishScript marks a job finished and releases every dependent whose
// pending set drains to empty.
//
// KEYS: ready list, finished set. ARGV: prefix, job id.
var finishScript = redis.NewScript(`
redis.call('SADD', KEYS[2], ARGV[2])
redis.call('DEL', ARGV[1] .. 'job:' .. ARGV[2])
local dependents = redis.call('SMEMBERS', ARGV[1] .. 'dependents:' .. ARGV[2])
for _, dep in ipairs(dependents) do
  local pending = ARGV[1] .. 'pending:' .. dep
  redis.call('SREM', pending, ARGV[2])
  if redis.call('SCARD', pending) == 0 then
    redis.call('DEL', pending)
    redis.call('RPUSH', KEYS[1], dep)
  end
end
redis.call('DEL', ARGV[1] .. 'dependents:' .. ARGV[2])
return #dependents
`)

// Queue enqueues and dequeues pipeline jobs via Redis, with optional
// job-to-job dependency ordering.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// Enqueue submits a job. With no deps the job is immediately runnable;
// otherwise it stays parked until every dependency has finished.
func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload interface{}, deps ...Handle) (Handle, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	for _, d := range deps {
		job.DependsOn = append(job.DependsOn, string(d))
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	args := make([]interface{}, 0, 3+len(deps))
	args = append(args, keyPrefix, job.ID, string(raw))
	for _, d := range deps {
		args = append(args, string(d))
	}
	remaining, err := enqueueScript.Run(ctx, q.client, []string{keyReady, keyFinished}, args...).Int()
	if err != nil {
		return "", fmt.Errorf("enqueue script: %w", err)
	}
	q.logger.Debug("enqueued job",
		zap.String("job_id", job.ID),
		zap.String("type", string(jobType)),
		zap.Int("unfinished_deps", remaining),
	)
	return Handle(job.ID), nil
}

// Dequeue blocks until a runnable job is available or ctx is done.
// Returns nil (no error) for spurious wakeups the caller should skip.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, keyReady).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	raw, err := q.client.Get(ctx, keyPrefix+"job:"+result[1]).Result()
	if err != nil {
		if err == redis.Nil {
			// Body already gone; treat as consumed.
			return nil, nil
		}
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", raw), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Finish marks the job as finished and releases dependents whose
// dependencies have all finished. Must be called after terminal success
// and after a job is dead-lettered, never between retries.
func (q *Queue) Finish(ctx context.Context, jobID string) error {
	released, err := finishScript.Run(ctx, q.client, []string{keyReady, keyFinished}, keyPrefix, jobID).Int()
	if err != nil {
		return fmt.Errorf("finish script: %w", err)
	}
	q.logger.Debug("job finished", zap.String("job_id", jobID), zap.Int("dependents_notified", released))
	return nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries,
// pushes to DLQ instead and reports the job dead.
func (q *Queue) Retry(ctx context.Context, job *Job) (dead bool, err error) {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, keyDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return false, err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	pipe := q.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+"job:"+job.ID, raw, 0)
	pipe.RPush(ctx, keyReady, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}
