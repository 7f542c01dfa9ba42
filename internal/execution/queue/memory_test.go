package queue

import (
	"context"
	"testing"
	"time"

	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"
)

func TestMemoryQueueFIFO(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, &model.Job{ID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx, time.Second)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if job == nil || job.ID != want {
			t.Fatalf("dequeue = %v, want %s", job, want)
		}
	}
}

func TestMemoryQueueDequeueEmptyReturnsNil(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	job, err := q.Dequeue(context.Background(), 60*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job on empty queue, got %v", job)
	}
}

func TestMemoryQueueDepthCountsInFlight(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	ctx := context.Background()

	_ = q.Enqueue(ctx, &model.Job{ID: "a"})
	_ = q.Enqueue(ctx, &model.Job{ID: "b"})

	if depth, _ := q.Depth(ctx); depth != 2 {
		t.Fatalf("depth = %d, want 2", depth)
	}

	if _, err := q.Dequeue(ctx, time.Second); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	// One waiting, one in-flight.
	if depth, _ := q.Depth(ctx); depth != 2 {
		t.Fatalf("depth after dequeue = %d, want 2", depth)
	}

	if err := q.Complete(ctx); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if depth, _ := q.Depth(ctx); depth != 1 {
		t.Fatalf("depth after complete = %d, want 1", depth)
	}
}

func TestMemoryQueueDequeueUnblocksOnEnqueue(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	ctx := context.Background()

	done := make(chan *model.Job, 1)
	go func() {
		job, _ := q.Dequeue(ctx, 5*time.Second)
		done <- job
	}()

	time.Sleep(20 * time.Millisecond)
	_ = q.Enqueue(ctx, &model.Job{ID: "late"})

	select {
	case job := <-done:
		if job == nil || job.ID != "late" {
			t.Fatalf("dequeue = %v, want late", job)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue did not pick up the enqueued job")
	}
}

func TestMemoryQueueClosed(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	_ = q.Close()

	if err := q.Enqueue(context.Background(), &model.Job{ID: "x"}); !appErr.Is(err, appErr.QueueClosed) {
		t.Fatalf("expected QueueClosed, got %v", err)
	}
	if _, err := q.Dequeue(context.Background(), time.Millisecond); !appErr.Is(err, appErr.QueueClosed) {
		t.Fatalf("expected QueueClosed, got %v", err)
	}
}

func TestMemoryQueueDequeueHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx, 5*time.Second)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
