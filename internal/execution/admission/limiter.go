// Package admission gates job submission on queue depth. Depth checks fail
// open: when the backend cannot report depth, jobs are admitted rather than
// rejected on infrastructure noise.
package admission

import (
	"context"
	"fmt"

	"kodecompiler/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	// DefaultMaxDepth bounds waiting plus in-flight jobs.
	DefaultMaxDepth = 1000

	// jobsPerMinute drives the wait estimate shown to rejected clients.
	jobsPerMinute = 100
)

// DepthReader reports the number of jobs the queue currently holds,
// waiting and in-flight combined.
type DepthReader interface {
	Depth(ctx context.Context) (int, error)
}

// Limiter decides whether new jobs may enter the queue.
type Limiter struct {
	queue    DepthReader
	maxDepth int
}

func NewLimiter(queue DepthReader, maxDepth int) *Limiter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Limiter{queue: queue, maxDepth: maxDepth}
}

// CanAcceptJob returns whether a job may be enqueued, the observed depth
// (-1 when unknown), and a human-readable reason when rejected.
func (l *Limiter) CanAcceptJob(ctx context.Context) (bool, int, string) {
	depth, err := l.queue.Depth(ctx)
	if err != nil {
		logger.Warn(ctx, "queue depth unavailable, admitting job", zap.Error(err))
		return true, -1, ""
	}
	if depth < l.maxDepth {
		return true, depth, ""
	}
	waitMinutes := l.estimatedWaitMinutes(depth)
	reason := fmt.Sprintf(
		"Queue is full (%d/%d jobs). Estimated wait time: %d minute(s). Please try again later.",
		depth, l.maxDepth, waitMinutes)
	return false, depth, reason
}

func (l *Limiter) estimatedWaitMinutes(depth int) int {
	minutes := depth / jobsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// StatusReport describes queue pressure for the status endpoint.
type StatusReport struct {
	Status               string `json:"status"`
	QueueDepth           int    `json:"queue_depth"`
	MaxDepth             int    `json:"max_depth"`
	UtilizationPercent   int    `json:"utilization_percent"`
	Message              string `json:"message"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes,omitempty"`
}

// Status buckets utilization into healthy, medium, high and full bands.
func (l *Limiter) Status(ctx context.Context) StatusReport {
	depth, err := l.queue.Depth(ctx)
	if err != nil {
		return StatusReport{
			Status:   "unknown",
			MaxDepth: l.maxDepth,
			Message:  "Queue depth is currently unavailable.",
		}
	}

	utilization := depth * 100 / l.maxDepth
	report := StatusReport{
		QueueDepth:         depth,
		MaxDepth:           l.maxDepth,
		UtilizationPercent: utilization,
	}

	switch {
	case utilization < 50:
		report.Status = "healthy"
		report.Message = "Queue is accepting jobs normally."
	case utilization < 80:
		report.Status = "medium"
		report.Message = "Queue load is moderate. Jobs may take longer than usual."
		report.EstimatedWaitMinutes = l.estimatedWaitMinutes(depth)
	case utilization < 100:
		report.Status = "high"
		report.Message = "Queue load is high. Expect delays."
		report.EstimatedWaitMinutes = l.estimatedWaitMinutes(depth)
	default:
		report.Status = "full"
		report.Message = "Queue is full. New jobs are being rejected."
		report.EstimatedWaitMinutes = l.estimatedWaitMinutes(depth)
	}
	return report
}
