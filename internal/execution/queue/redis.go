package queue

import (
	"context"
	"encoding/json"
	"time"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
)

const (
	// DefaultRedisQueueKey is the list holding serialized waiting jobs.
	DefaultRedisQueueKey = "execution_queue"

	redisPollInterval = 1 * time.Second
)

// RedisQueue is a shared FIFO over a Redis list. An in-flight counter key
// sits next to the list so Depth can count jobs a worker has picked up but
// not yet finished.
type RedisQueue struct {
	cache       cache.Cache
	queueKey    string
	inflightKey string
}

func NewRedisQueue(c cache.Cache, queueKey string) *RedisQueue {
	if queueKey == "" {
		queueKey = DefaultRedisQueueKey
	}
	return &RedisQueue{
		cache:       c,
		queueKey:    queueKey,
		inflightKey: queueKey + ":inflight",
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalError, "marshal job: %v", err)
	}
	if err := q.cache.LPush(ctx, q.queueKey, string(data)); err != nil {
		return appErr.Wrapf(err, appErr.QueueUnavailable, "enqueue job: %v", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.Job, error) {
	deadline := time.Now().Add(wait)
	for {
		raw, err := q.cache.RPop(ctx, q.queueKey)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.QueueUnavailable, "dequeue job: %v", err)
		}
		if raw != "" {
			var job model.Job
			if err := json.Unmarshal([]byte(raw), &job); err != nil {
				return nil, appErr.Wrapf(err, appErr.InternalError, "unmarshal job: %v", err)
			}
			if _, err := q.cache.Incr(ctx, q.inflightKey); err != nil {
				return nil, appErr.Wrapf(err, appErr.QueueUnavailable, "track in-flight job: %v", err)
			}
			return &job, nil
		}

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisPollInterval):
		}
	}
}

func (q *RedisQueue) Complete(ctx context.Context) error {
	if _, err := q.cache.Decr(ctx, q.inflightKey); err != nil {
		return appErr.Wrapf(err, appErr.QueueUnavailable, "untrack in-flight job: %v", err)
	}
	return nil
}

func (q *RedisQueue) Depth(ctx context.Context) (int, error) {
	waiting, err := q.cache.LLen(ctx, q.queueKey)
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.DepthUnknown, "queue length: %v", err)
	}
	inflight := int64(0)
	if raw, err := q.cache.Get(ctx, q.inflightKey); err == nil && raw != "" {
		var n int64
		if err := json.Unmarshal([]byte(raw), &n); err == nil && n > 0 {
			inflight = n
		}
	}
	return int(waiting + inflight), nil
}

func (q *RedisQueue) Close() error {
	return nil
}
