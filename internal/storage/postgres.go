package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type PostgresDB struct {
	*gorm.DB
}

// NewPostgresDB 建立 gorm 連線池
// 不在這裡連線，資料庫不可用時服務仍可啟動，第一次連線由 Warmup 負責
func NewPostgresDB(dsn string) (*PostgresDB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// Warmup 確認連線並自動遷移資料表結構
func (db *PostgresDB) Warmup(ctx context.Context, models ...interface{}) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return db.AutoMigrate(ctx, models...)
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 自動遷移資料庫結構
func (db *PostgresDB) AutoMigrate(ctx context.Context, models ...interface{}) error {
	return db.DB.WithContext(ctx).AutoMigrate(models...)
}
