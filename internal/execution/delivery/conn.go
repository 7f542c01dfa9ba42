package delivery

import (
	"context"
	"sync"

	appErr "kodecompiler/pkg/errors"
	"kodecompiler/pkg/utils/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnRegistry tracks live WebSocket connections and which connection is
// waiting on which job. Writes to a connection are serialized; gorilla
// conns do not allow concurrent writers.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[string]*wsConn
	jobs  map[string]string // job_id -> connection_id
}

type wsConn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		conns: make(map[string]*wsConn),
		jobs:  make(map[string]string),
	}
}

// Add registers a connection and acknowledges it with its assigned id.
func (r *ConnRegistry) Add(connectionID string, ws *websocket.Conn) error {
	conn := &wsConn{id: connectionID, ws: ws}

	r.mu.Lock()
	r.conns[connectionID] = conn
	r.mu.Unlock()

	return conn.writeJSON(map[string]string{
		"type":          "connection",
		"connection_id": connectionID,
		"message":       "Connected to execution service",
	})
}

// Remove drops the connection and any job bindings pointing at it.
func (r *ConnRegistry) Remove(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connectionID)
	for jobID, connID := range r.jobs {
		if connID == connectionID {
			delete(r.jobs, jobID)
		}
	}
}

// Send pushes a payload to one connection, serialized against concurrent
// pushes from the bus dispatcher.
func (r *ConnRegistry) Send(connectionID string, payload interface{}) error {
	r.mu.RLock()
	conn := r.conns[connectionID]
	r.mu.RUnlock()
	if conn == nil {
		return appErr.Newf(appErr.ConnectionClosed, "connection %s is gone", connectionID)
	}
	return conn.writeJSON(payload)
}

// BindJob routes future events for the job to the connection.
func (r *ConnRegistry) BindJob(jobID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[jobID] = connectionID
}

// SendToJob pushes a payload to the connection bound to the job and, on a
// terminal event, releases the binding. An unbound job is not an error;
// the client may have disconnected and will poll instead.
func (r *ConnRegistry) SendToJob(ctx context.Context, jobID string, payload interface{}, terminal bool) error {
	r.mu.RLock()
	connID, bound := r.jobs[jobID]
	conn := r.conns[connID]
	r.mu.RUnlock()

	if !bound || conn == nil {
		return nil
	}
	if terminal {
		r.mu.Lock()
		delete(r.jobs, jobID)
		r.mu.Unlock()
	}

	if err := conn.writeJSON(payload); err != nil {
		logger.Warn(ctx, "websocket push failed",
			zap.String("job_id", jobID), zap.String("connection_id", connID), zap.Error(err))
		r.Remove(connID)
		return appErr.Wrapf(err, appErr.ConnectionClosed, "push to connection %s: %v", connID, err)
	}
	return nil
}

// Count reports live connections.
func (r *ConnRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
