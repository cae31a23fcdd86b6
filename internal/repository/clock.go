package repository

import (
	"sync"
	"time"
)

// Clock 產生嚴格遞增的毫秒級時間戳
// 毫秒是所有後端（MongoDB date）都能無損保存的精度，排序在讀回後仍然成立
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Now 回傳下一個時間戳，必定晚於先前回傳過的值
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

// Observe 讓時鐘不早於已存在的時間戳，用於重啟後接續既有資料
func (c *Clock) Observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t = t.UTC().Truncate(time.Millisecond)
	if t.After(c.last) {
		c.last = t
	}
}
