package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/videoflix/backend/internal/models"
	"github.com/videoflix/backend/pkg/queue"
)

// memStore is an in-memory Store. A single mutex stands in for the
// database row lock: Update holds it across the whole read-modify-write,
// matching the serialization the pgx repository provides.
type memStore struct {
	mu      sync.Mutex
	videos  map[int64]*models.Video
	gets    int
	updates int
}

func newMemStore(vs ...*models.Video) *memStore {
	s := &memStore{videos: make(map[int64]*models.Video)}
	for _, v := range vs {
		s.videos[v.ID] = cloneVideo(v)
	}
	return s
}

func cloneVideo(v *models.Video) *models.Video {
	c := *v
	if v.Renditions != nil {
		c.Renditions = make(map[string]string, len(v.Renditions))
		for k, val := range v.Renditions {
			c.Renditions[k] = val
		}
	}
	return &c
}

func (s *memStore) GetByID(_ context.Context, id int64) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	v, ok := s.videos[id]
	if !ok {
		return nil, nil
	}
	return cloneVideo(v), nil
}

func (s *memStore) Update(_ context.Context, id int64, mutate func(*models.Video) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	v, ok := s.videos[id]
	if !ok {
		return fmt.Errorf("video %d not found", id)
	}
	c := cloneVideo(v)
	if err := mutate(c); err != nil {
		return err
	}
	s.videos[id] = c
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil
	}
	if v.Status != models.StatusCompleted {
		v.Status = models.StatusFailed
	}
	return nil
}

func (s *memStore) get(id int64) *models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneVideo(s.videos[id])
}

// fakeRunner records transcoder invocations instead of running ffmpeg.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *fakeRunner) Run(_ context.Context, args ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, args)
	r.mu.Unlock()
	return r.err
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeQueue records enqueued jobs for orchestrator tests.
type enqueued struct {
	jobType queue.JobType
	payload interface{}
	deps    []queue.Handle
}

type fakeQueue struct {
	jobs []enqueued
}

func (q *fakeQueue) Enqueue(_ context.Context, jobType queue.JobType, payload interface{}, deps ...queue.Handle) (queue.Handle, error) {
	q.jobs = append(q.jobs, enqueued{jobType: jobType, payload: payload, deps: deps})
	return queue.Handle(fmt.Sprintf("job-%d", len(q.jobs))), nil
}

func TestProcessUnknownJobType(t *testing.T) {
	p := NewProcessor(newMemStore(), &fakeRunner{}, t.TempDir(), nil)
	err := p.Process(context.Background(), &queue.Job{Type: "frobnicate"})
	assert.ErrorContains(t, err, "unknown job type")
}
