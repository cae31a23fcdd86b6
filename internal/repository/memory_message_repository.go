package repository

import (
	"context"
	"sync"

	"chat_relay/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// memoryMessageRepository 把訊息保存在行程內，用於開發與測試，重啟後資料消失
type memoryMessageRepository struct {
	mu       sync.RWMutex
	messages []models.Message // 依 Timestamp 遞增排列
	index    map[string]int
	clock    *Clock
}

func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{
		index: make(map[string]int),
		clock: NewClock(),
	}
}

func (r *memoryMessageRepository) Append(ctx context.Context, username, avatar, body string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("memory append", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := models.NewMessage(uuid.NewString(), username, avatar, body, r.clock.Now())
	r.index[m.ID] = len(r.messages)
	r.messages = append(r.messages, m)

	out := m
	return &out, nil
}

func (r *memoryMessageRepository) RecentActive(ctx context.Context, limit int) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("memory recent", err)
	}
	limit = normalizeLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	// 由新到舊收集，再反轉成由舊到新
	out := make([]models.Message, 0, limit)
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if !r.messages[i].IsDeleted {
			out = append(out, r.messages[i])
		}
	}
	return lo.Reverse(out), nil
}

func (r *memoryMessageRepository) SoftDelete(ctx context.Context, id string) error {
	return r.update(ctx, id, func(m *models.Message) {
		m.IsDeleted = true
	})
}

func (r *memoryMessageRepository) Edit(ctx context.Context, id, body string) error {
	return r.update(ctx, id, func(m *models.Message) {
		m.Body = body
		m.Edited = true
	})
}

func (r *memoryMessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("memory find", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	out := r.messages[i]
	return &out, nil
}

func (r *memoryMessageRepository) update(ctx context.Context, id string, fn func(m *models.Message)) error {
	if err := ctx.Err(); err != nil {
		return storageErr("memory update", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return ErrMessageNotFound
	}
	fn(&r.messages[i])
	return nil
}
