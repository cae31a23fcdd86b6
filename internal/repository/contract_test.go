package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// runContract 驗證所有後端共同遵守的行為
func runContract(t *testing.T, newRepo func(t *testing.T) MessageRepository) {
	ctx := context.Background()

	t.Run("append assigns id and increasing timestamps", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		first, err := repo.Append(ctx, "alice", "a.png", "hello")
		req.NoError(err)
		second, err := repo.Append(ctx, "bob", "", "world")
		req.NoError(err)

		req.NotEmpty(first.ID)
		req.NotEqual(first.ID, second.ID)
		req.True(second.Timestamp.After(first.Timestamp))
		req.False(first.IsDeleted)
		req.False(first.Edited)
		req.Equal("alice", first.Username)
		req.Equal("a.png", first.Avatar)
		req.Equal("hello", first.Body)
	})

	t.Run("empty fields are accepted", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		m, err := repo.Append(ctx, "", "", "")
		req.NoError(err)

		got, err := repo.FindByID(ctx, m.ID)
		req.NoError(err)
		req.Equal("", got.Body)
	})

	t.Run("recent active keeps the newest slice in ascending order", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		for i := 0; i < 60; i++ {
			_, err := repo.Append(ctx, "alice", "", fmt.Sprintf("m%02d", i))
			req.NoError(err)
		}

		history, err := repo.RecentActive(ctx, 50)
		req.NoError(err)
		req.Len(history, 50)
		req.Equal("m10", history[0].Body)
		req.Equal("m59", history[49].Body)
		for i := 1; i < len(history); i++ {
			req.True(history[i].Timestamp.After(history[i-1].Timestamp))
		}
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		for i := 0; i < DefaultHistoryLimit+5; i++ {
			_, err := repo.Append(ctx, "alice", "", fmt.Sprintf("m%02d", i))
			req.NoError(err)
		}

		history, err := repo.RecentActive(ctx, 0)
		req.NoError(err)
		req.Len(history, DefaultHistoryLimit)
	})

	t.Run("soft delete hides the message but keeps the record", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		keep, err := repo.Append(ctx, "alice", "", "keep")
		req.NoError(err)
		gone, err := repo.Append(ctx, "alice", "", "gone")
		req.NoError(err)

		req.NoError(repo.SoftDelete(ctx, gone.ID))

		history, err := repo.RecentActive(ctx, 50)
		req.NoError(err)
		req.Len(history, 1)
		req.Equal(keep.ID, history[0].ID)

		stored, err := repo.FindByID(ctx, gone.ID)
		req.NoError(err)
		req.True(stored.IsDeleted)
		req.Equal(gone.Timestamp.UnixMilli(), stored.Timestamp.UnixMilli())

		// 重複刪除不是錯誤
		req.NoError(repo.SoftDelete(ctx, gone.ID))
	})

	t.Run("deleted messages do not count toward the limit", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		a, err := repo.Append(ctx, "u", "", "a")
		req.NoError(err)
		b, err := repo.Append(ctx, "u", "", "b")
		req.NoError(err)
		c, err := repo.Append(ctx, "u", "", "c")
		req.NoError(err)
		req.NoError(repo.SoftDelete(ctx, c.ID))

		history, err := repo.RecentActive(ctx, 2)
		req.NoError(err)
		req.Len(history, 2)
		req.Equal(a.ID, history[0].ID)
		req.Equal(b.ID, history[1].ID)
	})

	t.Run("edit overwrites body and marks edited", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		m, err := repo.Append(ctx, "alice", "", "first")
		req.NoError(err)

		req.NoError(repo.Edit(ctx, m.ID, "second"))
		req.NoError(repo.Edit(ctx, m.ID, "third"))

		got, err := repo.FindByID(ctx, m.ID)
		req.NoError(err)
		req.True(got.Edited)
		req.Equal("third", got.Body)
		req.Equal(m.ID, got.ID)
		req.Equal(m.Timestamp.UnixMilli(), got.Timestamp.UnixMilli())

		history, err := repo.RecentActive(ctx, 50)
		req.NoError(err)
		req.Len(history, 1)
		req.Equal("third", history[0].Body)
	})

	t.Run("missing id reports not found", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		req.ErrorIs(repo.SoftDelete(ctx, "does-not-exist"), ErrMessageNotFound)
		req.ErrorIs(repo.Edit(ctx, "does-not-exist", "x"), ErrMessageNotFound)
		_, err := repo.FindByID(ctx, "does-not-exist")
		req.ErrorIs(err, ErrMessageNotFound)
	})

	t.Run("cancelled context is a storage failure", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.Append(cctx, "alice", "", "late")
		req.ErrorIs(err, ErrStorage)
	})
}
