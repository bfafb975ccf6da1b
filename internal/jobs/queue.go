package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sistemadual/docgen/internal/pipeline"
)

// Generator produces documents.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type task struct {
	job *Job
	req pipeline.Request
}

// Queue runs generations on a bounded pool of workers.
type Queue struct {
	gen     Generator
	store   Store
	workers int
	logger  *log.Logger
	now     func() time.Time

	mu     sync.Mutex
	tasks  chan task
	closed bool
	wg     sync.WaitGroup
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithWorkers sets the number of concurrent generations.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets how many submitted jobs may wait for a worker.
func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.tasks = make(chan task, n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// NewQueue returns a stopped queue; call Start to run workers.
func NewQueue(gen Generator, store Store, opts ...QueueOption) *Queue {
	q := &Queue{
		gen:     gen,
		store:   store,
		workers: 2,
		logger:  log.Default(),
		now:     time.Now,
		tasks:   make(chan task, 16),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the workers. Generations run under ctx.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for t := range q.tasks {
				q.run(ctx, t)
			}
		}()
	}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit records a queued job for req and hands it to a worker. It does not
// block: when every slot is taken it returns ErrQueueFull.
func (q *Queue) Submit(ctx context.Context, req pipeline.Request) (*Job, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := q.now()
	job := &Job{
		ID:        req.ID,
		Status:    StatusQueued,
		Template:  req.Template,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	if len(q.tasks) == cap(q.tasks) {
		return nil, ErrQueueFull
	}
	if err := q.store.Put(ctx, job); err != nil {
		return nil, err
	}
	snapshot := *job
	q.tasks <- task{job: job, req: req}
	q.logger.Debug("job queued", "job", job.ID, "template", job.Template)
	return &snapshot, nil
}

// Get returns the current state of a job.
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	return q.store.Get(ctx, id)
}

func (q *Queue) run(ctx context.Context, t task) {
	job := t.job
	logger := q.logger.With("job", job.ID)
	q.update(ctx, job, func(j *Job) { j.Status = StatusRunning })

	res, err := q.generate(ctx, t.req)
	q.update(ctx, job, func(j *Job) {
		j.Result = &res
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
			return
		}
		j.Status = StatusDone
	})
	if err != nil {
		logger.Warn("job failed", "err", err)
		return
	}
	logger.Info("job done", "path", res.Path, "converted", res.Converted)
}

func (q *Queue) generate(ctx context.Context, req pipeline.Request) (res pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in generation: %v", r)
		}
	}()
	return q.gen.Generate(ctx, req)
}

// update records job state even after ctx is cancelled.
func (q *Queue) update(ctx context.Context, job *Job, mutate func(*Job)) {
	mutate(job)
	job.UpdatedAt = q.now()
	if err := q.store.Put(context.WithoutCancel(ctx), job); err != nil {
		q.logger.Error("could not record job state", "job", job.ID, "status", job.Status, "err", err)
	}
}
