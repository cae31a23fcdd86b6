package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chat_relay/internal/repository"
)

const maxListLimit = 500

// MessageHandler 提供訊息的唯讀查詢
type MessageHandler struct {
	repo         repository.MessageRepository
	historyLimit int
	opTimeout    time.Duration
}

// NewMessageHandler 創建一個新的 MessageHandler 實例
func NewMessageHandler(repo repository.MessageRepository, historyLimit int, opTimeout time.Duration) *MessageHandler {
	return &MessageHandler{
		repo:         repo,
		historyLimit: historyLimit,
		opTimeout:    opTimeout,
	}
}

// ListMessages 回傳最新的未刪除訊息，依時間由舊到新
func (h *MessageHandler) ListMessages(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必須是 1 到 500 之間的整數"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	messages, err := h.repo.RecentActive(ctx, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "讀取訊息失敗"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// GetMessage 依 id 取得單則訊息
func (h *MessageHandler) GetMessage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	message, err := h.repo.FindByID(ctx, c.Param("id"))
	switch {
	case errors.Is(err, repository.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "訊息不存在"})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "讀取訊息失敗"})
	default:
		c.JSON(http.StatusOK, message)
	}
}
