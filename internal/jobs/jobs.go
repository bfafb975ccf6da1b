// Package jobs runs document generations in the background.
//
// A Queue hands submitted requests to a fixed pool of workers and records
// each job's progress in a Store. Two stores are provided:
//   - MemoryStore keeps jobs in process memory
//   - RedisStore keeps them in Redis so several service instances share state
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/sistemadual/docgen/internal/pipeline"
)

// Sentinel errors for job operations.
var (
	// ErrNotFound is returned when a job does not exist or has expired.
	ErrNotFound = errors.New("job not found")

	// ErrQueueFull is returned when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")

	// ErrClosed is returned when submitting to a stopped queue.
	ErrClosed = errors.New("job queue is closed")
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Finished reports whether the job will not change any more.
func (s Status) Finished() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is the recorded state of one background generation.
type Job struct {
	ID        string           `json:"id"`
	Status    Status           `json:"status"`
	Template  string           `json:"template"`
	Result    *pipeline.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store persists job state.
type Store interface {
	// Get returns a job, or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	// Put creates or replaces a job.
	Put(ctx context.Context, job *Job) error
}

// DefaultTTL is how long finished jobs are kept.
const DefaultTTL = 24 * time.Hour
