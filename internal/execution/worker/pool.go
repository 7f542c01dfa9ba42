// Package worker runs the dequeue/execute/publish loop that turns queued
// jobs into delivered results.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kodecompiler/internal/execution/delivery"
	"kodecompiler/internal/execution/model"
	"kodecompiler/internal/execution/queue"
	"kodecompiler/pkg/utils/contextkey"
	"kodecompiler/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultIdleWait  = 1 * time.Second
	defaultErrorWait = 5 * time.Second
)

// Runner executes one job's code. Satisfied by executor.Executor.
type Runner interface {
	Execute(ctx context.Context, language, source, stdin string) model.ExecutionResult
}

// Config tunes the pool.
type Config struct {
	Size      int           `yaml:"size"`
	IdleWait  time.Duration `yaml:"idleWait"`
	ErrorWait time.Duration `yaml:"errorWait"`
}

// Pool drains the queue with a fixed set of workers. Every dequeued job
// produces exactly one terminal result, even when execution panics.
type Pool struct {
	queue  queue.Queue
	runner Runner
	store  *delivery.Store
	bus    delivery.Bus
	cfg    Config
}

func NewPool(q queue.Queue, runner Runner, store *delivery.Store, bus delivery.Bus, cfg Config) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = defaultIdleWait
	}
	if cfg.ErrorWait <= 0 {
		cfg.ErrorWait = defaultErrorWait
	}
	return &Pool{queue: q, runner: runner, store: store, bus: bus, cfg: cfg}
}

// Run blocks until ctx is canceled and all workers have drained.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	logger.Info(ctx, "worker started", zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "worker stopping", zap.Int("worker", id))
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, p.cfg.IdleWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "dequeue failed", zap.Int("worker", id), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.ErrorWait):
			}
			continue
		}
		if job == nil {
			continue
		}

		p.process(ctx, job)
		if err := p.queue.Complete(ctx); err != nil {
			logger.Warn(ctx, "complete failed", zap.Int("worker", id), zap.Error(err))
		}
	}
}

func (p *Pool) process(ctx context.Context, job *model.Job) {
	ctx = context.WithValue(ctx, contextkey.JobID, job.ID)
	ctx = context.WithValue(ctx, contextkey.Language, job.Language)

	result := p.execute(ctx, job)
	if result.Success {
		result.Status = model.StatusCompleted
	} else {
		result.Status = model.StatusFailed
	}

	if err := p.store.Put(ctx, &result); err != nil {
		logger.Error(ctx, "store result failed", zap.Error(err))
	}

	env := &model.Envelope{JobID: job.ID, Result: &result}
	if result.Success {
		env.Type = model.EventJobCompleted
	} else {
		env.Type = model.EventJobFailed
		env.Error = result.Error
	}
	if err := p.bus.Publish(ctx, model.ChannelJobResults, env); err != nil {
		logger.Warn(ctx, "publish result event failed", zap.Error(err))
	}
}

// execute isolates a single job; a panic becomes a failed result instead of
// killing the worker.
func (p *Pool) execute(ctx context.Context, job *model.Job) (result model.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "job processing panicked", zap.Any("panic", r))
			result = model.FailureResult(job.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	started := &model.Envelope{Type: model.EventJobStarted, JobID: job.ID}
	if err := p.bus.Publish(ctx, model.ChannelJobStatus, started); err != nil {
		logger.Warn(ctx, "publish start event failed", zap.Error(err))
	}
	logger.Info(ctx, "executing job")

	result = p.runner.Execute(ctx, job.Language, job.SourceCode, job.Stdin)
	result.JobID = job.ID

	logger.Info(ctx, "job finished",
		zap.Bool("success", result.Success),
		zap.Float64("execution_time", result.ExecutionTime))
	return result
}
