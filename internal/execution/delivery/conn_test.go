package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kodecompiler/internal/execution/model"

	"github.com/gorilla/websocket"
)

// dialTestConn spins up a server that registers every incoming connection
// under the given id and returns the client side.
func dialTestConn(t *testing.T, registry *ConnRegistry, connectionID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		if err := registry.Add(connectionID, ws); err != nil {
			t.Errorf("add: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	return client
}

func TestConnRegistryAcknowledgesConnection(t *testing.T) {
	t.Parallel()

	registry := NewConnRegistry()
	client := dialTestConn(t, registry, "conn-1")

	var ack map[string]string
	if err := client.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack["type"] != "connection" || ack["connection_id"] != "conn-1" {
		t.Fatalf("ack = %v", ack)
	}
	if registry.Count() != 1 {
		t.Fatalf("count = %d, want 1", registry.Count())
	}
}

func TestConnRegistrySendToJobAndUnbind(t *testing.T) {
	t.Parallel()

	registry := NewConnRegistry()
	client := dialTestConn(t, registry, "conn-1")

	var ack map[string]string
	if err := client.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}

	registry.BindJob("job-1", "conn-1")

	env := &model.Envelope{
		Type:   model.EventJobCompleted,
		JobID:  "job-1",
		Result: &model.ExecutionResult{JobID: "job-1", Success: true, Output: "hi"},
	}
	if err := registry.SendToJob(context.Background(), "job-1", env, true); err != nil {
		t.Fatalf("send: %v", err)
	}

	var got model.Envelope
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("read push: %v", err)
	}
	if got.JobID != "job-1" || got.Result == nil || got.Result.Output != "hi" {
		t.Fatalf("pushed envelope = %+v", got)
	}

	// Terminal delivery releases the binding; a second send goes nowhere
	// and is not an error.
	if err := registry.SendToJob(context.Background(), "job-1", env, true); err != nil {
		t.Fatalf("send after unbind: %v", err)
	}
}

func TestConnRegistrySendToUnboundJobIsNoop(t *testing.T) {
	t.Parallel()

	registry := NewConnRegistry()
	if err := registry.SendToJob(context.Background(), "ghost", &model.Envelope{}, true); err != nil {
		t.Fatalf("send to unbound job: %v", err)
	}
}

func TestConnRegistryRemoveDropsBindings(t *testing.T) {
	t.Parallel()

	registry := NewConnRegistry()
	client := dialTestConn(t, registry, "conn-1")

	var ack map[string]string
	_ = client.ReadJSON(&ack)

	registry.BindJob("job-1", "conn-1")
	registry.BindJob("job-2", "conn-1")
	registry.Remove("conn-1")

	if registry.Count() != 0 {
		t.Fatalf("count = %d, want 0", registry.Count())
	}
	if err := registry.SendToJob(context.Background(), "job-1", &model.Envelope{}, true); err != nil {
		t.Fatalf("send after remove: %v", err)
	}
}
