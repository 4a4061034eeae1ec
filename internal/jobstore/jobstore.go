// Package jobstore tracks transcription jobs so a caller can poll a
// long-running transcription instead of holding a connection open. The
// pipeline itself stays stateless; this is the only stateful surface.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/audiospine/internal/timeline"
)

// ErrJobNotFound is returned when a job id is unknown or already expired.
var ErrJobNotFound = errors.New("job not found")

// DefaultRetention is how long a finished job stays retrievable.
const DefaultRetention = time.Hour

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one transcription request and, once done, its result.
type Job struct {
	ID        string
	Input     string
	Status    Status
	Result    *timeline.Timeline
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists jobs across their lifecycle.
type Store interface {
	Create(ctx context.Context, input string) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	Update(ctx context.Context, job Job) error
	Expire(ctx context.Context, olderThan time.Duration) (int, error)
}

// MemoryStore keeps jobs in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]Job
	now  func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// withClock injects a deterministic clock. Test-only.
func withClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		jobs: make(map[string]Job),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new pending job and returns it with a fresh id.
func (s *MemoryStore) Create(_ context.Context, input string) (Job, error) {
	now := s.now()
	job := Job{
		ID:        uuid.NewString(),
		Input:     input,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job, nil
}

// Get returns the job with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	return job, nil
}

// Update replaces the stored job, bumping its UpdatedAt.
func (s *MemoryStore) Update(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %q: %w", job.ID, ErrJobNotFound)
	}

	job.UpdatedAt = s.now()
	s.jobs[job.ID] = job
	return nil
}

// Expire drops jobs not touched within olderThan and reports how many
// were removed. Running jobs are kept regardless of age.
func (s *MemoryStore) Expire(_ context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultRetention
	}
	cutoff := s.now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status == StatusRunning || job.Status == StatusPending {
			continue
		}
		if job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many jobs are currently stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
