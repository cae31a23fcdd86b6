package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageNotFound 表示指定 id 的訊息不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidID 表示 id 不符合後端的格式，寫入操作無法執行
	ErrInvalidID = errors.New("invalid message id")
	// ErrStorage 表示底層存儲讀寫失敗（連線中斷、逾時、寫入被拒絕等）
	ErrStorage = errors.New("storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
