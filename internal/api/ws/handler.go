package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/monitoring"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin checks belong to the reverse proxy
	},
}

// Handler streams save results and window lifecycle notices to
// connected clients.
type Handler struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHandler creates a WebSocket handler.
func NewHandler(logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		metrics: metrics,
		conns:   make(map[*websocket.Conn]bool),
	}
}

// HandleConnection upgrades the request and serves the stream until the
// client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.register(conn)
	defer h.unregister(conn)

	h.write(conn, gin.H{
		"type":    "system",
		"message": "connected to holodesk save stream",
	})

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "ping":
			h.write(conn, gin.H{"type": "pong", "timestamp": time.Now().Unix()})
		default:
			h.write(conn, gin.H{"type": "error", "message": "unknown message type"})
		}
	}
}

// BroadcastSaveResult pushes one save outcome to every client. Wired as
// the pipeline's result hook.
func (h *Handler) BroadcastSaveResult(res types.SaveResult) {
	h.broadcast(gin.H{"type": "save_result", "result": res})
}

// BroadcastWindowOpened notifies clients that a restored window should
// be rendered. Wired as the workspace store's opener callback.
func (h *Handler) BroadcastWindowOpened(windowID int) {
	h.broadcast(gin.H{"type": "window_opened", "window_id": windowID})
}

func (h *Handler) broadcast(payload gin.H) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.write(conn, payload)
	}
}

func (h *Handler) write(conn *websocket.Conn, payload gin.H) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteJSON(payload); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	n := len(h.conns)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(n))
	}
}

func (h *Handler) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	conn.Close()
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(n))
	}
}
