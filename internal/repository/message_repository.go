package repository

import (
	"context"
	"errors"

	"chat_relay/internal/models"
	"chat_relay/internal/storage"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db    *storage.PostgresDB
	clock *Clock
}

// NewMessageRepository 使用 gorm + PostgreSQL 存放訊息
func NewMessageRepository(db *storage.PostgresDB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db, clock: NewClock()}
}

// SeedClock 讓時鐘從資料表中最新的時間戳之後開始
func (r *PostgresMessageRepository) SeedClock(ctx context.Context) error {
	var m models.Message
	err := r.db.WithContext(ctx).Order("timestamp desc").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return storageErr("postgres latest", err)
	}
	r.clock.Observe(m.Timestamp)
	return nil
}

func (r *PostgresMessageRepository) Append(ctx context.Context, username, avatar, body string) (*models.Message, error) {
	m := models.NewMessage(uuid.NewString(), username, avatar, body, r.clock.Now())
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, storageErr("postgres append", err)
	}
	return &m, nil
}

func (r *PostgresMessageRepository) RecentActive(ctx context.Context, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("timestamp desc").
		Limit(normalizeLimit(limit)).
		Find(&messages).Error
	if err != nil {
		return nil, storageErr("postgres recent", err)
	}
	return lo.Reverse(messages), nil
}

func (r *PostgresMessageRepository) SoftDelete(ctx context.Context, id string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"is_deleted": true,
	})
}

func (r *PostgresMessageRepository) Edit(ctx context.Context, id, body string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"message": body,
		"edited":  true,
	})
}

func (r *PostgresMessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, storageErr("postgres find", err)
	}
	return &m, nil
}

func (r *PostgresMessageRepository) updates(ctx context.Context, id string, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return storageErr("postgres update", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
