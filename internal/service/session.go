package service

import (
	"log/slog"
	"sync/atomic"
)

// SessionRegistry 記錄目前連線中的客戶端數量
// 只有 Hub 會修改計數；讀取可以來自任何 goroutine（例如 /api/stats）
type SessionRegistry struct {
	count atomic.Int64
	log   *slog.Logger
}

func NewSessionRegistry(log *slog.Logger) *SessionRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &SessionRegistry{log: log}
}

// Increment 增加一個連線並回傳新的數量
func (r *SessionRegistry) Increment() int {
	return int(r.count.Add(1))
}

// Decrement 減少一個連線並回傳新的數量，數量不會低於 0
func (r *SessionRegistry) Decrement() int {
	for {
		cur := r.count.Load()
		if cur <= 0 {
			r.log.Warn("session count decrement below zero ignored")
			return 0
		}
		if r.count.CompareAndSwap(cur, cur-1) {
			return int(cur - 1)
		}
	}
}

func (r *SessionRegistry) Current() int {
	return int(r.count.Load())
}
