// Package queue provides the job queue behind the execution pipeline with
// interchangeable memory, Redis and Kafka backends.
package queue

import (
	"context"
	"time"

	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
)

// ErrDepthUnknown is returned by Depth when the backend cannot report how
// many jobs it holds. Admission treats an unknown depth as open.
var ErrDepthUnknown = appErr.New(appErr.DepthUnknown)

// Queue moves jobs from the API to the workers. Depth counts waiting plus
// in-flight jobs; a dequeued job stays in-flight until Complete is called
// for it.
type Queue interface {
	// Enqueue adds a job to the tail of the queue.
	Enqueue(ctx context.Context, job *model.Job) error

	// Dequeue removes the oldest job, blocking up to wait. It returns
	// (nil, nil) when no job arrives in time.
	Dequeue(ctx context.Context, wait time.Duration) (*model.Job, error)

	// Complete marks one previously dequeued job as finished.
	Complete(ctx context.Context) error

	// Depth reports waiting plus in-flight jobs, or ErrDepthUnknown.
	Depth(ctx context.Context) (int, error)

	Close() error
}
