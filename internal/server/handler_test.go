package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/admission"
	"kodecompiler/internal/execution/delivery"
	"kodecompiler/internal/execution/executor"
	"kodecompiler/internal/execution/model"
	"kodecompiler/internal/execution/queue"
	"kodecompiler/internal/execution/worker"

	"github.com/gin-gonic/gin"
)

type scriptedRunner struct{}

// Execute interprets the source as a directive so tests control outcomes
// without a real toolchain: "ok:<output>" succeeds, "fail:<err>" fails,
// "sleep:<dur>" stalls. Like the real executor it reports only success and
// output; the terminal status is the pool's job.
func (scriptedRunner) Execute(ctx context.Context, language, source, stdin string) model.ExecutionResult {
	switch {
	case strings.HasPrefix(source, "ok:"):
		return model.ExecutionResult{Success: true, Output: strings.TrimPrefix(source, "ok:")}
	case strings.HasPrefix(source, "fail:"):
		return model.ExecutionResult{Success: false, Error: strings.TrimPrefix(source, "fail:")}
	case strings.HasPrefix(source, "sleep:"):
		d, _ := time.ParseDuration(strings.TrimPrefix(source, "sleep:"))
		time.Sleep(d)
		return model.ExecutionResult{Success: true, Output: "late"}
	}
	return model.ExecutionResult{Success: true, Output: stdin}
}

type testStack struct {
	router *gin.Engine
	queue  queue.Queue
	cancel context.CancelFunc
}

func newTestStack(t *testing.T, maxDepth int, syncWait time.Duration, withWorker bool) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	q := queue.NewMemoryQueue()
	store := delivery.NewStore(cache.NewMemoryCache(), 0)
	bus := delivery.NewMemoryBus()
	waiter := delivery.NewWaiter()
	conns := delivery.NewConnRegistry()
	limiter := admission.NewLimiter(q, maxDepth)
	registry := executor.DefaultRegistry()

	svc := NewExecuteService(registry, q, limiter, store, waiter, conns, syncWait)
	handler := NewHandler(svc, NewWSHandler(svc, conns))

	router := gin.New()
	handler.RegisterRoutes(router)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	_ = bus.Subscribe(ctx, model.ChannelJobResults, func(ctx context.Context, env *model.Envelope) {
		if env.Result != nil {
			waiter.Resolve(env.JobID, env.Result)
		}
	})

	if withWorker {
		pool := worker.NewPool(q, scriptedRunner{}, store, bus, worker.Config{Size: 1, IdleWait: 10 * time.Millisecond})
		go pool.Run(ctx)
	}

	return &testStack{router: router, queue: q, cancel: cancel}
}

func (s *testStack) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestExecuteQueuesJob(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{"language": "python", "code": "ok:hi"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SubmitResponse
	decode(t, w, &resp)
	if resp.Status != model.StatusQueued || resp.JobID == "" {
		t.Fatalf("response = %+v", resp)
	}

	if depth, _ := s.queue.Depth(context.Background()); depth != 1 {
		t.Fatalf("queue depth = %d, want 1", depth)
	}
}

func TestExecuteRejectsMissingFields(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{"language": "python"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestExecuteRejectsUnsupportedLanguage(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{"language": "cobol", "code": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "unsupported language") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestExecuteRejectsOversizedSource(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{
		"language": "python",
		"code":     strings.Repeat("x", model.MaxSourceLen+1),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestExecuteRejectsWhenQueueFull(t *testing.T) {
	s := newTestStack(t, 2, 0, false)

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/execute", gin.H{"language": "python", "code": fmt.Sprintf("ok:%d", i)})
		if w.Code != http.StatusAccepted {
			t.Fatalf("job %d: status = %d", i, w.Code)
		}
	}

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{"language": "python", "code": "ok:overflow"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SubmitResponse
	decode(t, w, &resp)
	if resp.Status != model.StatusRejected {
		t.Fatalf("response = %+v", resp)
	}
	if !strings.Contains(resp.Message, "Queue is full") {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestExecuteAdmissionRunsBeforeJobConstruction(t *testing.T) {
	s := newTestStack(t, 1, 0, false)

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{"language": "python", "code": "ok:fill"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("fill job: status = %d", w.Code)
	}

	// An oversized submission against a full queue is turned away at
	// admission; it is never wrapped or validated into a job.
	w = s.do(t, http.MethodPost, "/api/execute", gin.H{
		"language": "python",
		"code":     strings.Repeat("x", model.MaxSourceLen+1),
		"test_cases": []gin.H{
			{"input": "a", "expected": "a"},
		},
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SubmitResponse
	decode(t, w, &resp)
	if resp.Status != model.StatusRejected {
		t.Fatalf("response = %+v", resp)
	}

	if depth, _ := s.queue.Depth(context.Background()); depth != 1 {
		t.Fatalf("queue depth = %d, want 1", depth)
	}
}

func TestStatusLifecycle(t *testing.T) {
	s := newTestStack(t, 1000, 0, true)

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{"language": "python", "code": "ok:done"})
	var submit SubmitResponse
	decode(t, w, &submit)

	deadline := time.After(5 * time.Second)
	for {
		w := s.do(t, http.MethodGet, "/api/execute/"+submit.JobID+"/status", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status endpoint = %d", w.Code)
		}
		var status StatusResponse
		decode(t, w, &status)
		if status.Status == model.StatusCompleted {
			if status.Result == nil || status.Result.Output != "done" {
				t.Fatalf("result = %+v", status.Result)
			}
			return
		}
		if status.Status != model.StatusProcessing {
			t.Fatalf("unexpected status %q", status.Status)
		}
		select {
		case <-deadline:
			t.Fatal("job never completed")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestStatusUnknownJobIsProcessing(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodGet, "/api/execute/no-such-job/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status StatusResponse
	decode(t, w, &status)
	if status.Status != model.StatusProcessing {
		t.Fatalf("status = %q", status.Status)
	}
}

func TestExecuteSyncReturnsResult(t *testing.T) {
	s := newTestStack(t, 1000, 5*time.Second, true)

	w := s.do(t, http.MethodPost, "/api/execute/sync", gin.H{"language": "python", "code": "ok:sync-output"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result model.ExecutionResult
	decode(t, w, &result)
	if !result.Success || result.Output != "sync-output" {
		t.Fatalf("result = %+v", result)
	}
}

func TestExecuteSyncReportsFailure(t *testing.T) {
	s := newTestStack(t, 1000, 5*time.Second, true)

	w := s.do(t, http.MethodPost, "/api/execute/sync", gin.H{"language": "python", "code": "fail:division by zero"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result model.ExecutionResult
	decode(t, w, &result)
	if result.Success || result.Error != "division by zero" {
		t.Fatalf("result = %+v", result)
	}
}

func TestExecuteSyncTimesOut(t *testing.T) {
	s := newTestStack(t, 1000, 100*time.Millisecond, true)

	w := s.do(t, http.MethodPost, "/api/execute/sync", gin.H{"language": "python", "code": "sleep:2s"})
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "poll the status endpoint") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestQueueStatusEndpoint(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodGet, "/api/queue/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var report admission.StatusReport
	decode(t, w, &report)
	if report.Status != "healthy" || report.MaxDepth != 1000 {
		t.Fatalf("report = %+v", report)
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodGet, "/api/languages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Languages []string `json:"languages"`
	}
	decode(t, w, &resp)
	found := false
	for _, lang := range resp.Languages {
		if lang == "python" {
			found = true
		}
	}
	if !found {
		t.Fatalf("languages = %v", resp.Languages)
	}
}

func TestExecuteWithTestCasesWrapsSource(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodPost, "/api/execute", gin.H{
		"language": "python",
		"code":     "print(input())",
		"test_cases": []gin.H{
			{"input": "a", "expected": "a"},
			{"input": "b", "expected_output": "b"},
		},
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	job, err := s.queue.Dequeue(context.Background(), time.Second)
	if err != nil || job == nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !strings.Contains(job.SourceCode, "test_cases = json.loads(") {
		t.Fatalf("source was not wrapped:\n%s", job.SourceCode)
	}
	if !strings.Contains(job.SourceCode, `\"expected\":\"b\"`) {
		t.Fatalf("expected_output key not resolved:\n%s", job.SourceCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestStack(t, 1000, 0, false)

	w := s.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
