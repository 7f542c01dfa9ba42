package delivery

import (
	"context"
	"testing"
	"time"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"

	"github.com/alicebob/miniredis/v2"
)

func TestStorePutAndPoll(t *testing.T) {
	t.Parallel()

	store := NewStore(cache.NewMemoryCache(), 0)
	ctx := context.Background()

	in := &model.ExecutionResult{
		JobID:         "job-1",
		Status:        model.StatusCompleted,
		Success:       true,
		Output:        "42",
		ExecutionTime: 0.17,
	}
	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	out, err := store.Poll(ctx, "job-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if out.Output != "42" || !out.Success || out.ExecutionTime != 0.17 {
		t.Fatalf("result mismatch: %+v", out)
	}

	// Poll does not consume.
	if _, err := store.Poll(ctx, "job-1"); err != nil {
		t.Fatalf("second poll: %v", err)
	}
}

func TestStorePollMissingIsNotReady(t *testing.T) {
	t.Parallel()

	store := NewStore(cache.NewMemoryCache(), 0)
	_, err := store.Poll(context.Background(), "nope")
	if !appErr.Is(err, appErr.ResultNotReady) {
		t.Fatalf("expected ResultNotReady, got %v", err)
	}
}

func TestStoreConsumeIsAtMostOnce(t *testing.T) {
	t.Parallel()

	store := NewStore(cache.NewMemoryCache(), 0)
	ctx := context.Background()

	_ = store.Put(ctx, &model.ExecutionResult{JobID: "job-1", Status: model.StatusCompleted, Success: true})

	if _, err := store.Consume(ctx, "job-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := store.Consume(ctx, "job-1"); !appErr.Is(err, appErr.ResultNotReady) {
		t.Fatalf("second consume should miss, got %v", err)
	}
}

func TestStoreResultExpires(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(mr.Addr())
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	store := NewStore(c, 300*time.Second)
	ctx := context.Background()

	_ = store.Put(ctx, &model.ExecutionResult{JobID: "job-1", Status: model.StatusCompleted, Success: true})

	if _, err := store.Poll(ctx, "job-1"); err != nil {
		t.Fatalf("poll before expiry: %v", err)
	}

	mr.FastForward(301 * time.Second)

	if _, err := store.Poll(ctx, "job-1"); !appErr.Is(err, appErr.ResultNotReady) {
		t.Fatalf("expected ResultNotReady after TTL, got %v", err)
	}
}

func TestStoreUsesResultKeyConvention(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(mr.Addr())
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	store := NewStore(c, 0)
	_ = store.Put(context.Background(), &model.ExecutionResult{JobID: "abc", Status: model.StatusCompleted})

	if !mr.Exists("result:abc") {
		t.Fatal("result not stored under result:<job_id>")
	}
}
