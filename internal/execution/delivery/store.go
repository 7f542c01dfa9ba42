// Package delivery hands finished results back to clients over three paths
// that share one source of truth: a TTL-bounded result store for polling, a
// pub/sub bus for push, and in-process waiters for synchronous requests.
package delivery

import (
	"context"
	"encoding/json"
	"time"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
)

// Store keeps finished results under result:<job_id> until their TTL runs
// out. Consume removes the result it returns, so each result is read at
// most once.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewStore(c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = model.DefaultResultTTL
	}
	return &Store{cache: c, ttl: ttl}
}

func (s *Store) Put(ctx context.Context, result *model.ExecutionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalError, "marshal result: %v", err)
	}
	if err := s.cache.Set(ctx, model.ResultKey(result.JobID), string(data), s.ttl); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "store result: %v", err)
	}
	return nil
}

// Poll reads a result without removing it. A missing key yields a
// ResultNotReady error so callers can distinguish pending from failed.
func (s *Store) Poll(ctx context.Context, jobID string) (*model.ExecutionResult, error) {
	raw, err := s.cache.Get(ctx, model.ResultKey(jobID))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "read result: %v", err)
	}
	return s.decode(jobID, raw)
}

// Consume atomically reads and removes a result.
func (s *Store) Consume(ctx context.Context, jobID string) (*model.ExecutionResult, error) {
	raw, err := s.cache.GetDel(ctx, model.ResultKey(jobID))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "consume result: %v", err)
	}
	return s.decode(jobID, raw)
}

func (s *Store) decode(jobID, raw string) (*model.ExecutionResult, error) {
	if raw == "" {
		return nil, appErr.New(appErr.ResultNotReady).WithDetail("job_id", jobID)
	}
	var result model.ExecutionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalError, "unmarshal result: %v", err)
	}
	return &result, nil
}
