package delivery

import (
	"context"
	"sync"
	"time"

	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
)

// DefaultSyncWait bounds how long a synchronous request holds its
// connection open waiting for a result.
const DefaultSyncWait = 120 * time.Second

// Waiter parks synchronous requests until a worker resolves their job.
// Each job gets a one-shot channel; Resolve for an unknown job is a no-op
// because nobody is waiting for it.
type Waiter struct {
	mu      sync.Mutex
	pending map[string]chan *model.ExecutionResult
}

func NewWaiter() *Waiter {
	return &Waiter{pending: make(map[string]chan *model.ExecutionResult)}
}

// Register creates a waiting slot for the job. It must be called before the
// job is enqueued, otherwise a fast worker could resolve into nothing.
func (w *Waiter) Register(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[jobID]; ok {
		return
	}
	w.pending[jobID] = make(chan *model.ExecutionResult, 1)
}

// Resolve delivers the result to the registered waiter, if any. The slot
// stays registered so a result arriving before Await starts is buffered,
// not dropped; Await releases the slot when it consumes the result.
func (w *Waiter) Resolve(jobID string, result *model.ExecutionResult) {
	w.mu.Lock()
	ch, ok := w.pending[jobID]
	w.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- result:
	default:
	}
}

// Await blocks until the job resolves, the timeout passes, or the context
// is canceled. The slot is always released before returning.
func (w *Waiter) Await(ctx context.Context, jobID string, timeout time.Duration) (*model.ExecutionResult, error) {
	if timeout <= 0 {
		timeout = DefaultSyncWait
	}

	w.mu.Lock()
	ch, ok := w.pending[jobID]
	w.mu.Unlock()
	if !ok {
		return nil, appErr.Newf(appErr.InternalError, "no waiter registered for job %s", jobID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		w.Release(jobID)
		return result, nil
	case <-timer.C:
		w.Release(jobID)
		return nil, appErr.Newf(appErr.WaitTimeout,
			"job %s did not finish within %s; poll the status endpoint instead", jobID, timeout)
	case <-ctx.Done():
		w.Release(jobID)
		return nil, ctx.Err()
	}
}

// Release drops the slot for a job that will not be awaited, such as a
// submission that failed before it was enqueued.
func (w *Waiter) Release(jobID string) {
	w.mu.Lock()
	delete(w.pending, jobID)
	w.mu.Unlock()
}

// PendingCount reports how many requests are currently parked.
func (w *Waiter) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
