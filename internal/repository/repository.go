package repository

import (
	"context"

	"chat_relay/internal/models"
)

// DefaultHistoryLimit 是新連線取得的歷史訊息數量
const DefaultHistoryLimit = 50

// MessageRepository 是訊息存儲的契約，所有後端行為一致
type MessageRepository interface {
	// Append 建立並持久化新訊息，寫入失敗時回傳 ErrStorage
	Append(ctx context.Context, username, avatar, body string) (*models.Message, error)
	// RecentActive 回傳最新的 limit 則未刪除訊息，依時間由舊到新排序
	RecentActive(ctx context.Context, limit int) ([]models.Message, error)
	// SoftDelete 將訊息標記為已刪除，找不到時回傳 ErrMessageNotFound，id 格式不合時回傳 ErrInvalidID
	SoftDelete(ctx context.Context, id string) error
	// Edit 覆寫訊息內容並標記 edited，找不到時回傳 ErrMessageNotFound，id 格式不合時回傳 ErrInvalidID
	Edit(ctx context.Context, id, body string) error
	// FindByID 讀取單一訊息（包含已刪除的），找不到時回傳 ErrMessageNotFound
	FindByID(ctx context.Context, id string) (*models.Message, error)
}

type Repositories struct {
	Message MessageRepository
}

func NewRepositories(message MessageRepository) *Repositories {
	return &Repositories{
		Message: message,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
