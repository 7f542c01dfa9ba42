package admission

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeDepth struct {
	depth int
	err   error
}

func (f fakeDepth) Depth(ctx context.Context) (int, error) {
	return f.depth, f.err
}

func TestCanAcceptJobBelowLimit(t *testing.T) {
	t.Parallel()

	l := NewLimiter(fakeDepth{depth: 999}, 1000)
	ok, depth, reason := l.CanAcceptJob(context.Background())
	if !ok {
		t.Fatalf("expected acceptance at depth 999: %s", reason)
	}
	if depth != 999 {
		t.Fatalf("depth = %d, want 999", depth)
	}
}

func TestCanAcceptJobAtLimit(t *testing.T) {
	t.Parallel()

	l := NewLimiter(fakeDepth{depth: 1000}, 1000)
	ok, depth, reason := l.CanAcceptJob(context.Background())
	if ok {
		t.Fatal("expected rejection at the limit")
	}
	if depth != 1000 {
		t.Fatalf("depth = %d, want 1000", depth)
	}
	if !strings.Contains(reason, "1000/1000") {
		t.Fatalf("reason should show depth and limit: %s", reason)
	}
	if !strings.Contains(reason, "10 minute") {
		t.Fatalf("reason should estimate wait from depth: %s", reason)
	}
}

func TestCanAcceptJobFailsOpen(t *testing.T) {
	t.Parallel()

	l := NewLimiter(fakeDepth{err: errors.New("backend down")}, 1000)
	ok, depth, _ := l.CanAcceptJob(context.Background())
	if !ok {
		t.Fatal("depth errors must not reject jobs")
	}
	if depth != -1 {
		t.Fatalf("unknown depth should report -1, got %d", depth)
	}
}

func TestEstimatedWaitNeverZero(t *testing.T) {
	t.Parallel()

	l := NewLimiter(fakeDepth{}, 1000)
	if got := l.estimatedWaitMinutes(5); got != 1 {
		t.Fatalf("wait for depth 5 = %d, want 1", got)
	}
	if got := l.estimatedWaitMinutes(250); got != 2 {
		t.Fatalf("wait for depth 250 = %d, want 2", got)
	}
}

func TestStatusBuckets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		depth int
		want  string
	}{
		{0, "healthy"},
		{499, "healthy"},
		{500, "medium"},
		{799, "medium"},
		{800, "high"},
		{999, "high"},
		{1000, "full"},
		{1500, "full"},
	}
	for _, tc := range cases {
		l := NewLimiter(fakeDepth{depth: tc.depth}, 1000)
		report := l.Status(context.Background())
		if report.Status != tc.want {
			t.Fatalf("depth %d: status = %s, want %s", tc.depth, report.Status, tc.want)
		}
		if report.QueueDepth != tc.depth {
			t.Fatalf("depth %d: reported %d", tc.depth, report.QueueDepth)
		}
	}
}

func TestStatusUnknownDepth(t *testing.T) {
	t.Parallel()

	l := NewLimiter(fakeDepth{err: errors.New("no depth")}, 1000)
	report := l.Status(context.Background())
	if report.Status != "unknown" {
		t.Fatalf("status = %s, want unknown", report.Status)
	}
}
