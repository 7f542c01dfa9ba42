package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"kodecompiler/internal/execution/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryBusDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	for i := 0; i < 3; i++ {
		err := bus.Subscribe(ctx, model.ChannelJobResults, func(ctx context.Context, env *model.Envelope) {
			mu.Lock()
			got = append(got, env.JobID)
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	if err := bus.Publish(ctx, model.ChannelJobResults, &model.Envelope{Type: model.EventJobCompleted, JobID: "j"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("delivered to %d subscribers, want 3", len(got))
	}
}

func TestMemoryBusChannelsAreIsolated(t *testing.T) {
	t.Parallel()

	bus := NewMemoryBus()
	ctx := context.Background()

	resultEvents := 0
	_ = bus.Subscribe(ctx, model.ChannelJobResults, func(ctx context.Context, env *model.Envelope) {
		resultEvents++
	})

	_ = bus.Publish(ctx, model.ChannelJobStatus, &model.Envelope{Type: model.EventJobStarted, JobID: "j"})
	if resultEvents != 0 {
		t.Fatalf("status event leaked into results channel")
	}
}

func TestMemoryBusSurvivesPanickingHandler(t *testing.T) {
	t.Parallel()

	bus := NewMemoryBus()
	ctx := context.Background()

	delivered := false
	_ = bus.Subscribe(ctx, "ch", func(ctx context.Context, env *model.Envelope) {
		panic("bad handler")
	})
	_ = bus.Subscribe(ctx, "ch", func(ctx context.Context, env *model.Envelope) {
		delivered = true
	})

	if err := bus.Publish(ctx, "ch", &model.Envelope{JobID: "j"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !delivered {
		t.Fatal("panic in one handler blocked the next")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := NewRedisBus(client)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *model.Envelope, 1)
	err := bus.Subscribe(ctx, model.ChannelJobResults, func(ctx context.Context, env *model.Envelope) {
		received <- env
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := &model.Envelope{
		Type:   model.EventJobCompleted,
		JobID:  "job-9",
		Result: &model.ExecutionResult{JobID: "job-9", Success: true, Output: "hi"},
	}
	if err := bus.Publish(ctx, model.ChannelJobResults, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case env := <-received:
		if env.Type != want.Type || env.JobID != want.JobID {
			t.Fatalf("envelope mismatch: %+v", env)
		}
		if env.Result == nil || env.Result.Output != "hi" {
			t.Fatalf("result mismatch: %+v", env.Result)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event not delivered")
	}
}
