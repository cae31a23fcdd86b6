package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chat_relay/internal/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	badgerMsgPrefix = "msg:"
	badgerIDPrefix  = "id:"
)

type badgerMessageRepository struct {
	db    *badger.DB
	clock *Clock
}

// NewBadgerMessageRepository 使用嵌入式 Badger 存放訊息
// 主鍵格式為 "msg:{毫秒時間戳補零至 19 位}:{uuid}"，字典序即時間順序；
// "id:{uuid}" 指回主鍵，供刪除與編輯查找
func NewBadgerMessageRepository(db *badger.DB) (MessageRepository, error) {
	r := &badgerMessageRepository{db: db, clock: NewClock()}

	// 重啟後讓時鐘接續最新一筆訊息
	latest, err := r.latest()
	if err != nil {
		return nil, err
	}
	if latest != nil {
		r.clock.Observe(latest.Timestamp)
	}
	return r, nil
}

func msgKey(m models.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", badgerMsgPrefix, m.Timestamp.UnixMilli(), m.ID))
}

func idKey(id string) []byte {
	return []byte(badgerIDPrefix + id)
}

func (r *badgerMessageRepository) Append(ctx context.Context, username, avatar, body string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("badger append", err)
	}

	m := models.NewMessage(uuid.NewString(), username, avatar, body, r.clock.Now())
	value, err := json.Marshal(m)
	if err != nil {
		return nil, storageErr("badger encode", err)
	}

	key := msgKey(m)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(idKey(m.ID), key)
	})
	if err != nil {
		return nil, storageErr("badger append", err)
	}
	return &m, nil
}

func (r *badgerMessageRepository) RecentActive(ctx context.Context, limit int) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("badger recent", err)
	}
	limit = normalizeLimit(limit)

	out := make([]models.Message, 0, limit)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(badgerMsgPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// 反向迭代需要從前綴範圍的最大鍵開始
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var m models.Message
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &m)
			}); err != nil {
				return err
			}
			if !m.IsDeleted {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("badger recent", err)
	}
	return lo.Reverse(out), nil
}

func (r *badgerMessageRepository) SoftDelete(ctx context.Context, id string) error {
	return r.update(ctx, id, func(m *models.Message) {
		m.IsDeleted = true
	})
}

func (r *badgerMessageRepository) Edit(ctx context.Context, id, body string) error {
	return r.update(ctx, id, func(m *models.Message) {
		m.Body = body
		m.Edited = true
	})
}

func (r *badgerMessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("badger find", err)
	}

	var m models.Message
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := loadByID(txn, id, &m)
		return err
	})
	if errors.Is(err, ErrMessageNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, storageErr("badger find", err)
	}
	return &m, nil
}

func (r *badgerMessageRepository) update(ctx context.Context, id string, fn func(m *models.Message)) error {
	if err := ctx.Err(); err != nil {
		return storageErr("badger update", err)
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		var m models.Message
		key, err := loadByID(txn, id, &m)
		if err != nil {
			return err
		}
		fn(&m)
		value, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return txn.Set(key, value)
	})
	if errors.Is(err, ErrMessageNotFound) {
		return err
	}
	if err != nil {
		return storageErr("badger update", err)
	}
	return nil
}

// latest 讀取時間戳最新的一筆訊息（包含已刪除的），沒有資料時回傳 nil
func (r *badgerMessageRepository) latest() (*models.Message, error) {
	var found *models.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(badgerMsgPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(prefix, 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		var m models.Message
		if err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &m)
		}); err != nil {
			return err
		}
		found = &m
		return nil
	})
	if err != nil {
		return nil, storageErr("badger latest", err)
	}
	return found, nil
}

func loadByID(txn *badger.Txn, id string, dst *models.Message) ([]byte, error) {
	ref, err := txn.Get(idKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	key, err := ref.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, dst)
	}); err != nil {
		return nil, err
	}
	return key, nil
}
