package server

import (
	"net/http"

	"kodecompiler/internal/execution/delivery"
	"kodecompiler/internal/execution/model"
	"kodecompiler/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsMessage is an inbound client frame.
type wsMessage struct {
	Type      string           `json:"type"`
	Language  string           `json:"language"`
	Code      string           `json:"code"`
	Input     string           `json:"input"`
	TestCases []model.TestCase `json:"test_cases"`
}

// WSHandler upgrades connections and feeds execute frames into the same
// service the HTTP routes use. Results come back asynchronously through the
// connection registry when the bus dispatcher sees the job finish.
type WSHandler struct {
	service  *ExecuteService
	conns    *delivery.ConnRegistry
	upgrader websocket.Upgrader
}

func NewWSHandler(service *ExecuteService, conns *delivery.ConnRegistry) *WSHandler {
	return &WSHandler{
		service: service,
		conns:   conns,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	connectionID := uuid.NewString()
	ctx := c.Request.Context()

	if err := h.conns.Add(connectionID, ws); err != nil {
		logger.Warn(ctx, "websocket ack failed",
			zap.String("connection_id", connectionID), zap.Error(err))
		h.conns.Remove(connectionID)
		_ = ws.Close()
		return
	}
	defer func() {
		h.conns.Remove(connectionID)
		_ = ws.Close()
	}()

	logger.Info(ctx, "websocket connected", zap.String("connection_id", connectionID))

	for {
		var msg wsMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn(ctx, "websocket read failed",
					zap.String("connection_id", connectionID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "execute":
			req := &ExecuteRequest{
				Language:     msg.Language,
				Code:         msg.Code,
				Input:        msg.Input,
				TestCases:    msg.TestCases,
				ConnectionID: connectionID,
			}
			resp, err := h.service.Submit(ctx, req)
			if err != nil {
				h.writeError(connectionID, err)
				continue
			}
			if err := h.conns.Send(connectionID, resp); err != nil {
				return
			}
		case "ping":
			if err := h.conns.Send(connectionID, gin.H{"type": "pong"}); err != nil {
				return
			}
		default:
			h.writeErrorMessage(connectionID, "unknown message type: "+msg.Type)
		}
	}
}

func (h *WSHandler) writeError(connectionID string, err error) {
	h.writeErrorMessage(connectionID, err.Error())
}

func (h *WSHandler) writeErrorMessage(connectionID, msg string) {
	_ = h.conns.Send(connectionID, gin.H{"type": "error", "error": msg})
}
