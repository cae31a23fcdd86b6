package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_relay/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var messageColumns = []string{"id", "username", "avatar", "message", "is_deleted", "edited", "timestamp"}

func newMockedPostgres(t *testing.T) (*PostgresMessageRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, mock.ExpectationsWereMet()) })
	return NewMessageRepository(&storage.PostgresDB{DB: db}), mock
}

func TestPostgresMessageRepository_RecentActiveAscending(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockedPostgres(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// 資料庫依 timestamp 遞減回傳
	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE is_deleted = \$1 ORDER BY timestamp desc LIMIT`).
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("m3", "alice", "", "third", false, false, base.Add(2*time.Second)).
			AddRow("m2", "alice", "", "second", false, true, base.Add(time.Second)))

	history, err := repo.RecentActive(context.Background(), 2)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("m2", history[0].ID)
	req.True(history[0].Edited)
	req.Equal("m3", history[1].ID)
}

func TestPostgresMessageRepository_MissingIDIsNotFound(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockedPostgres(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "messages" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}
	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(messageColumns))

	req.ErrorIs(repo.SoftDelete(ctx, "missing"), ErrMessageNotFound)
	req.ErrorIs(repo.Edit(ctx, "missing", "x"), ErrMessageNotFound)
	_, err := repo.FindByID(ctx, "missing")
	req.ErrorIs(err, ErrMessageNotFound)
}

func TestPostgresMessageRepository_EditExisting(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockedPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "messages" SET .*"edited".*"message".* WHERE id = \$`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req.NoError(repo.Edit(context.Background(), "m1", "fixed"))
}

func TestPostgresMessageRepository_DriverErrorIsStorage(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockedPostgres(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "messages" SET`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()
	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE is_deleted`).WillReturnError(errors.New("connection reset"))

	err := repo.SoftDelete(ctx, "m1")
	req.ErrorIs(err, ErrStorage)
	req.NotErrorIs(err, ErrMessageNotFound)

	_, err = repo.RecentActive(ctx, 10)
	req.ErrorIs(err, ErrStorage)
}

func TestPostgresMessageRepository_SeedClock(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockedPostgres(t)
	ctx := context.Background()

	stored := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	mock.ExpectQuery(`SELECT \* FROM "messages" ORDER BY timestamp desc`).
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("m9", "alice", "", "latest", false, false, stored))

	req.NoError(repo.SeedClock(ctx))
	req.True(repo.clock.Now().After(stored))
}

func TestPostgresMessageRepository_SeedClockEmptyTable(t *testing.T) {
	repo, mock := newMockedPostgres(t)

	mock.ExpectQuery(`SELECT \* FROM "messages" ORDER BY timestamp desc`).
		WillReturnRows(sqlmock.NewRows(messageColumns))

	require.NoError(t, repo.SeedClock(context.Background()))
}
