package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock_StrictlyIncreasing(t *testing.T) {
	req := require.New(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	c := &Clock{now: func() time.Time { return fixed }}

	a := c.Now()
	b := c.Now()
	d := c.Now()

	req.Equal(fixed.Truncate(time.Millisecond), a)
	req.Equal(a.Add(time.Millisecond), b)
	req.Equal(b.Add(time.Millisecond), d)
}

func TestClock_ObserveMovesForward(t *testing.T) {
	req := require.New(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &Clock{now: func() time.Time { return fixed }}

	future := fixed.Add(time.Hour)
	c.Observe(future)
	req.Equal(future.Add(time.Millisecond), c.Now())

	// 較舊的時間不會讓時鐘倒退
	c.Observe(fixed)
	req.True(c.Now().After(future))
}
