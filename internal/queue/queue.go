// Package queue implements the bounded worker pool that funnels bulk
// task start/end writes from many concurrent array-task workers into
// short transactions (spec.md §4.5, §5: "the store must avoid
// lock-waits that exceed the per-task wallclock by batching or
// queuing writes behind short critical sections"). Grounded on the
// teacher's queue/coordinator naming (internal/scheduler's queue
// tests, internal/coordinator) generalized from DAG-run dispatch to
// store-write serialization.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/jobweave/jobweave/internal/backoff"
)

// Job is one unit of store work submitted to the queue.
type Job func(ctx context.Context) error

// Queue serializes Job execution across a bounded pool of workers,
// retrying each job under backoff.Retry when it returns a retryable
// error (e.g. store.ErrLockTimeout).
type Queue struct {
	jobs      chan jobRequest
	workers   int
	policy    backoff.Policy
	retryable func(error) bool

	wg      sync.WaitGroup
	closeCh chan struct{}
	once    sync.Once
}

type jobRequest struct {
	job    Job
	result chan error
}

// Option configures a Queue.
type Option func(*Queue)

// WithPolicy overrides the default backoff policy used for retryable
// job failures.
func WithPolicy(p backoff.Policy) Option {
	return func(q *Queue) { q.policy = p }
}

// WithRetryable overrides which errors are retried (default: none are
// retried — callers typically pass store.IsRetryable or similar).
func WithRetryable(fn func(error) bool) Option {
	return func(q *Queue) { q.retryable = fn }
}

// New creates a Queue with the given number of worker goroutines
// (spec.md §4.5 "bounded worker pool"). Workers start immediately and
// run until Close is called.
func New(workers int, opts ...Option) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		jobs:      make(chan jobRequest),
		workers:   workers,
		policy:    backoff.Default,
		retryable: func(error) bool { return false },
		closeCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case req := <-q.jobs:
			req.result <- backoff.Retry(context.Background(), q.policy, q.retryable, func() error {
				return req.job(context.Background())
			})
		case <-q.closeCh:
			return
		}
	}
}

// Submit enqueues job and blocks until a worker has run it (and
// exhausted retries, if any), returning its final error. Submit
// itself is safe to call from many concurrent goroutines — that is
// the point: hundreds of array-task processes call Submit and the
// fixed worker count bounds how many short transactions run against
// the store at once.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	req := jobRequest{job: job, result: make(chan error, 1)}
	select {
	case q.jobs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeCh:
		return fmt.Errorf("queue closed")
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new work and waits for in-flight jobs to
// finish. Safe to call multiple times.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.closeCh) })
	q.wg.Wait()
}
