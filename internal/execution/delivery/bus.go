package delivery

import (
	"context"
	"encoding/json"
	"sync"

	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
	"kodecompiler/pkg/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler receives one published envelope. Handlers run on bus goroutines
// and are recovered, so a panicking subscriber cannot take the bus down.
type Handler func(ctx context.Context, env *model.Envelope)

// Bus fans job lifecycle events out to subscribers on named channels.
type Bus interface {
	Publish(ctx context.Context, channel string, env *model.Envelope) error
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// RedisBus publishes through Redis pub/sub so events cross process
// boundaries between workers and API servers.
type RedisBus struct {
	client *redis.Client

	mu   sync.Mutex
	subs []*redis.PubSub
	wg   sync.WaitGroup
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalError, "marshal event: %v", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "publish event: %v", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string, handler Handler) error {
	sub := b.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return appErr.Wrapf(err, appErr.CacheError, "subscribe %s: %v", channel, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	ch := sub.Channel()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env model.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Warn(ctx, "dropping malformed event", zap.String("channel", channel), zap.Error(err))
					continue
				}
				dispatch(ctx, handler, &env)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Close()
	}
	b.wg.Wait()
	return nil
}

// MemoryBus delivers events in process for single-node deployments and
// tests. Publish blocks until every subscriber's handler has returned.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

func (b *MemoryBus) Publish(ctx context.Context, channel string, env *model.Envelope) error {
	b.mu.RLock()
	handlers := b.handlers[channel]
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return appErr.New(appErr.QueueClosed).WithMessage("bus is closed")
	}
	for _, h := range handlers {
		dispatch(ctx, h, env)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, channel string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return appErr.New(appErr.QueueClosed).WithMessage("bus is closed")
	}
	b.handlers[channel] = append(b.handlers[channel], handler)
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]Handler)
	return nil
}

func dispatch(ctx context.Context, handler Handler, env *model.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "event handler panicked",
				zap.String("job_id", env.JobID), zap.Any("panic", r))
		}
	}()
	handler(ctx, env)
}
