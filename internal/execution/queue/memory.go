package queue

import (
	"context"
	"sync"
	"time"

	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
)

const memoryPollInterval = 50 * time.Millisecond

// MemoryQueue is a process-local FIFO for single-node deployments and tests.
type MemoryQueue struct {
	mu       sync.Mutex
	jobs     []*model.Job
	inflight int
	closed   bool
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job *model.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return appErr.New(appErr.QueueClosed)
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.Job, error) {
	deadline := time.Now().Add(wait)
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, appErr.New(appErr.QueueClosed)
		}
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			q.inflight++
			q.mu.Unlock()
			return job, nil
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(memoryPollInterval):
		}
	}
}

func (q *MemoryQueue) Complete(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight > 0 {
		q.inflight--
	}
	return nil
}

func (q *MemoryQueue) Depth(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) + q.inflight, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.jobs = nil
	return nil
}
