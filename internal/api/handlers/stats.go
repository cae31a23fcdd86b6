package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat_relay/internal/service"
)

// StatsHandler 回報 Hub 的連線數與事件計數
type StatsHandler struct {
	hub *service.Hub
}

func NewStatsHandler(hub *service.Hub) *StatsHandler {
	return &StatsHandler{hub: hub}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Stats())
}
