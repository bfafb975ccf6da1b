package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps jobs in memory. Jobs expire ttl after their last update.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]Job
	ttl  time.Duration
	now  func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A ttl of zero keeps jobs forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(job) {
		delete(m.jobs, id)
		return nil, ErrNotFound
	}
	return &job, nil
}

func (m *MemoryStore) Put(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

// Cleanup removes expired jobs.
func (m *MemoryStore) Cleanup(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, job := range m.jobs {
		if m.expired(job) {
			delete(m.jobs, id)
		}
	}
	return nil
}

func (m *MemoryStore) expired(job Job) bool {
	return m.ttl > 0 && m.now().Sub(job.UpdatedAt) > m.ttl
}
