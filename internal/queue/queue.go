// Package queue provides an in-memory job queue with a worker pool that
// persists finished workouts off the request path.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/workout-tracker/internal/workout"
)

// JobStatus represents the state of a persistence job
type JobStatus string

// Job status constants define the lifecycle states
const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

const (
	defaultCapacity  = 100
	defaultRetention = time.Hour
)

// Queue errors
var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is shut down")
	ErrJobNotFound = errors.New("job not found")
)

// Job represents one workout waiting to be persisted
type Job struct {
	ID           string
	Workout      workout.Record
	Status       JobStatus
	Attempts     int
	QueuedAt     time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Result       *JobResult
}

// JobResult contains the output of a completed job
type JobResult struct {
	WorkoutID        string
	ProcessingTimeMS int64
}

// ProcessFunc is a function that processes a job
type ProcessFunc func(ctx context.Context, job *Job) (*JobResult, error)

// Option configures a Queue
type Option func(*Queue)

// WithRetry makes a failing job run up to attempts times, waiting backoff
// after the first failure and doubling it after each further one
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(q *Queue) {
		if attempts > 0 {
			q.attempts = attempts
		}
		q.backoff = backoff
	}
}

// WithRetention sets how long finished jobs stay visible to GetJob
func WithRetention(d time.Duration) Option {
	return func(q *Queue) {
		q.retention = d
	}
}

// WithCapacity sets how many jobs may wait for a worker
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// Queue manages persistence jobs with a worker pool
type Queue struct {
	mu           sync.RWMutex
	jobs         map[string]*Job
	pendingQueue chan *Job
	closed       bool
	workers      int
	capacity     int
	attempts     int
	backoff      time.Duration
	retention    time.Duration
	processor    ProcessFunc
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewQueue creates a new job queue with the specified number of workers
func NewQueue(workers int, processor ProcessFunc, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:      make(map[string]*Job),
		workers:   workers,
		capacity:  defaultCapacity,
		attempts:  1,
		retention: defaultRetention,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.pendingQueue = make(chan *Job, q.capacity)

	// Start worker pool
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	return q
}

// Enqueue adds a workout to be persisted and returns the job ID
func (q *Queue) Enqueue(rec workout.Record) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrQueueClosed
	}
	q.pruneLocked(time.Now().UTC())

	job := &Job{
		ID:       uuid.New().String(),
		Workout:  rec,
		Status:   StatusQueued,
		QueuedAt: time.Now().UTC(),
	}
	q.jobs[job.ID] = job

	// Add to pending queue (non-blocking)
	select {
	case q.pendingQueue <- job:
		return job.ID, nil
	default:
		job.Status = StatusFailed
		job.ErrorMessage = ErrQueueFull.Error()
		job.CompletedAt = &job.QueuedAt
		return "", ErrQueueFull
	}
}

// Record enqueues a finished workout; it lets the queue act as the session
// recorder
func (q *Queue) Record(_ context.Context, rec workout.Record) (string, error) {
	return q.Enqueue(rec)
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(jobID string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	return copyJob(job), nil
}

// ListJobs returns jobs filtered by status, newest first. A negative offset
// counts as zero and a non-positive limit yields no jobs.
func (q *Queue) ListJobs(status JobStatus, limit, offset int) []*Job {
	q.mu.RLock()
	var filtered []*Job
	for _, job := range q.jobs {
		if status == "" || job.Status == status {
			filtered = append(filtered, copyJob(job))
		}
	}
	q.mu.RUnlock()

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].QueuedAt.After(filtered[j].QueuedAt)
	})

	offset = max(offset, 0)
	if limit <= 0 || offset >= len(filtered) {
		return []*Job{}
	}
	end := min(offset+limit, len(filtered))
	return filtered[offset:end]
}

// GetStats returns job counts by status, plus the total
func (q *Queue) GetStats() map[string]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := map[string]int{"total": len(q.jobs)}
	for _, status := range []JobStatus{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed} {
		stats[string(status)] = 0
	}
	for _, job := range q.jobs {
		stats[string(job.Status)]++
	}
	return stats
}

// worker processes jobs until the pending queue is closed and drained
func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for job := range q.pendingQueue {
		q.processJob(id, job)
	}
}

// processJob runs a job, retrying failures as configured
func (q *Queue) processJob(workerID int, job *Job) {
	startTime := time.Now()

	q.mu.Lock()
	job.Status = StatusProcessing
	now := time.Now().UTC()
	job.StartedAt = &now
	q.mu.Unlock()

	var (
		result *JobResult
		err    error
	)
	backoff := q.backoff
	for attempt := 1; attempt <= q.attempts; attempt++ {
		q.mu.Lock()
		job.Attempts = attempt
		q.mu.Unlock()

		result, err = q.processor(q.ctx, job)
		if err == nil || attempt == q.attempts {
			break
		}

		log.Warn().
			Err(err).
			Str("job_id", job.ID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Workout persistence failed, retrying")

		select {
		case <-q.ctx.Done():
			err = fmt.Errorf("%w after %d attempts", q.ctx.Err(), attempt)
		case <-time.After(backoff):
			backoff *= 2
			continue
		}
		break
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = StatusFailed
		job.ErrorMessage = err.Error()
		log.Error().
			Err(err).
			Int("worker", workerID).
			Str("job_id", job.ID).
			Str("workout_id", job.Workout.ID).
			Int("attempts", job.Attempts).
			Msg("Workout persistence failed")
		return
	}

	job.Status = StatusCompleted
	job.Result = result
	if result != nil {
		result.ProcessingTimeMS = time.Since(startTime).Milliseconds()
	}
}

// pruneLocked forgets finished jobs older than the retention period
func (q *Queue) pruneLocked(now time.Time) {
	if q.retention <= 0 {
		return
	}
	for id, job := range q.jobs {
		if job.CompletedAt != nil && now.Sub(*job.CompletedAt) > q.retention {
			delete(q.jobs, id)
		}
	}
}

// Shutdown stops accepting jobs and lets the workers drain the pending
// queue. Jobs still running when timeout expires are cancelled.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.pendingQueue)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	defer q.cancel()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func copyJob(job *Job) *Job {
	jobCopy := *job
	if job.StartedAt != nil {
		startedCopy := *job.StartedAt
		jobCopy.StartedAt = &startedCopy
	}
	if job.CompletedAt != nil {
		completedCopy := *job.CompletedAt
		jobCopy.CompletedAt = &completedCopy
	}
	if job.Result != nil {
		resultCopy := *job.Result
		jobCopy.Result = &resultCopy
	}
	return &jobCopy
}
