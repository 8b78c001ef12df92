package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/cratedig-go/internal/progress"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// ProgressWebSocketHandler streams progress snapshots to WebSocket clients
type ProgressWebSocketHandler struct {
	hub    *progress.Hub
	logger *zap.Logger
}

// NewProgressWebSocketHandler creates a new WebSocket handler
func NewProgressWebSocketHandler(hub *progress.Hub, log *zap.Logger) *ProgressWebSocketHandler {
	return &ProgressWebSocketHandler{
		hub:    hub,
		logger: log,
	}
}

// HandleWebSocket handles GET /api/v1/progress/ws. The optional session_id and
// batch_id query parameters narrow the stream.
func (h *ProgressWebSocketHandler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	batchID := c.Query("batch_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer sub.Close()

	h.logger.Info("Progress client connected",
		zap.String("session_id", sessionID),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Read messages from client so close frames and pongs are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-sub.C():
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeTimeout))
				return
			}
			if sessionID != "" && snap.SessionID != sessionID {
				continue
			}
			if batchID != "" && snap.BatchID != batchID {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				h.logger.Debug("Failed to send progress snapshot", zap.Error(err))
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}

		case <-done:
			h.logger.Debug("Progress client disconnected",
				zap.String("remote_addr", c.Request.RemoteAddr),
				zap.Int64("dropped", sub.Dropped()))
			return
		}
	}
}
