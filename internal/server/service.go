// Package server exposes the execution pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"time"

	"kodecompiler/internal/execution/admission"
	"kodecompiler/internal/execution/delivery"
	"kodecompiler/internal/execution/executor"
	"kodecompiler/internal/execution/model"
	"kodecompiler/internal/execution/queue"
	"kodecompiler/internal/execution/wrapper"
	appErr "kodecompiler/pkg/errors"
	"kodecompiler/pkg/utils/contextkey"
	"kodecompiler/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecuteRequest is a submission from any transport (HTTP or WebSocket).
type ExecuteRequest struct {
	Language  string           `json:"language" binding:"required"`
	Code      string           `json:"code" binding:"required"`
	Input     string           `json:"input"`
	TestCases []model.TestCase `json:"test_cases"`

	// ConnectionID binds the job to a WebSocket for push delivery.
	ConnectionID string `json:"-"`

	// jobID preassigns the job id so the sync path can register its
	// waiter before the job enters the queue.
	jobID string
}

// SubmitResponse tells the client where its job went.
type SubmitResponse struct {
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	PollURL string `json:"poll_url,omitempty"`

	// Set on rejection only.
	QueueDepth        int `json:"queue_depth,omitempty"`
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// StatusResponse is the polling answer for a job.
type StatusResponse struct {
	JobID  string                 `json:"job_id"`
	Status string                 `json:"status"`
	Result *model.ExecutionResult `json:"result,omitempty"`
}

// ExecuteService wires admission, wrapping, queueing and delivery into the
// operations the transport handlers call.
type ExecuteService struct {
	registry *executor.Registry
	queue    queue.Queue
	limiter  *admission.Limiter
	store    *delivery.Store
	waiter   *delivery.Waiter
	conns    *delivery.ConnRegistry
	syncWait time.Duration
}

func NewExecuteService(
	registry *executor.Registry,
	q queue.Queue,
	limiter *admission.Limiter,
	store *delivery.Store,
	waiter *delivery.Waiter,
	conns *delivery.ConnRegistry,
	syncWait time.Duration,
) *ExecuteService {
	if syncWait <= 0 {
		syncWait = delivery.DefaultSyncWait
	}
	return &ExecuteService{
		registry: registry,
		queue:    q,
		limiter:  limiter,
		store:    store,
		waiter:   waiter,
		conns:    conns,
		syncWait: syncWait,
	}
}

// Submit validates, optionally wraps, and enqueues a job. A full queue
// rejects the job before any work is done on it.
func (s *ExecuteService) Submit(ctx context.Context, req *ExecuteRequest) (*SubmitResponse, error) {
	if _, ok := s.registry.Get(req.Language); !ok {
		return nil, appErr.Newf(appErr.UnsupportedLanguage,
			"unsupported language: %s", req.Language)
	}

	ctx = context.WithValue(ctx, contextkey.Language, req.Language)

	// Admission runs before any job exists, so rejected load pays neither
	// the wrapping cost nor a queue touch.
	ok, depth, reason := s.limiter.CanAcceptJob(ctx)
	if !ok {
		logger.Warn(ctx, "job rejected by admission", zap.Int("queue_depth", depth))
		return &SubmitResponse{
			Status:            model.StatusRejected,
			Message:           reason,
			QueueDepth:        depth,
			RetryAfterSeconds: 60,
		}, nil
	}

	code := req.Code
	if len(req.TestCases) > 0 {
		wrapped, err := wrapper.Wrap(code, req.TestCases, req.Language)
		if err != nil {
			return nil, err
		}
		code = wrapped
	}

	jobID := req.jobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := &model.Job{
		ID:           jobID,
		Language:     req.Language,
		SourceCode:   code,
		Stdin:        req.Input,
		SubmittedAt:  time.Now().UTC(),
		ConnectionID: req.ConnectionID,
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, contextkey.JobID, job.ID)

	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	if job.ConnectionID != "" {
		s.conns.BindJob(job.ID, job.ConnectionID)
	}

	logger.Info(ctx, "job queued", zap.Int("queue_depth", depth))
	return &SubmitResponse{
		JobID:   job.ID,
		Status:  model.StatusQueued,
		Message: "Job queued for execution",
		PollURL: "/api/execute/" + job.ID + "/status",
	}, nil
}

// Status reports where a job is. A result in the store means the job
// finished; anything else is reported as still processing.
func (s *ExecuteService) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	if jobID == "" {
		return nil, appErr.ValidationError("job_id", "required")
	}

	result, err := s.store.Poll(ctx, jobID)
	if err != nil {
		if appErr.Is(err, appErr.ResultNotReady) {
			return &StatusResponse{JobID: jobID, Status: model.StatusProcessing}, nil
		}
		return nil, err
	}
	return &StatusResponse{JobID: jobID, Status: result.Status, Result: result}, nil
}

// ExecuteSync submits a job and blocks until its result arrives or the
// sync wait elapses. The waiter is registered before enqueue so a fast
// worker cannot race past it.
func (s *ExecuteService) ExecuteSync(ctx context.Context, req *ExecuteRequest) (*model.ExecutionResult, error) {
	if _, ok := s.registry.Get(req.Language); !ok {
		return nil, appErr.Newf(appErr.UnsupportedLanguage,
			"unsupported language: %s", req.Language)
	}

	req.jobID = uuid.NewString()
	s.waiter.Register(req.jobID)

	resp, err := s.Submit(ctx, req)
	if err != nil {
		s.waiter.Release(req.jobID)
		return nil, err
	}
	if resp.Status == model.StatusRejected {
		s.waiter.Release(req.jobID)
		return nil, appErr.New(appErr.AdmissionRejected).WithMessage(resp.Message)
	}

	result, err := s.waiter.Await(ctx, resp.JobID, s.syncWait)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, appErr.New(appErr.InternalError).WithMessage("job resolved without a result")
	}
	return result, nil
}

// QueueStatus reports queue pressure.
func (s *ExecuteService) QueueStatus(ctx context.Context) admission.StatusReport {
	return s.limiter.Status(ctx)
}

// Languages lists the supported language tags.
func (s *ExecuteService) Languages() []string {
	return s.registry.Languages()
}
