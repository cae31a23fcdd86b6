package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat_relay/internal/service"
)

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	hub      *service.Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler，checkOrigin 與 CORS 使用相同的來源清單
func NewWebSocketHandler(hub *service.Hub, checkOrigin func(r *http.Request) bool, log *slog.Logger) *WebSocketHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

// HandleWebSocket 把 HTTP 連接升級為 WebSocket 後交給 Hub
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失敗時已經寫出 HTTP 錯誤回應
		h.log.Warn("websocket upgrade failed",
			"error", err,
			"origin", c.GetHeader("Origin"),
			"client_ip", c.ClientIP(),
		)
		return
	}

	h.hub.Serve(conn)
}
