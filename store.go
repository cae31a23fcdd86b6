package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat_relay/internal/models"
	"chat_relay/internal/repository"
	"chat_relay/internal/storage"
	"chat_relay/pkg/config"
)

const warmupTimeout = 30 * time.Second

type messageStore struct {
	messages repository.MessageRepository
	close    func()
}

// openStore 依 store.driver 建立訊息儲存
// mongo 與 postgres 在背景完成第一次連線，資料庫暫時不可用時服務仍會啟動
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*messageStore, error) {
	log = log.With("store", cfg.Store.Driver)

	switch cfg.Store.Driver {
	case "mongo":
		db, err := storage.NewMongoDB(ctx, cfg.Store.Mongo.URI, cfg.Store.Mongo.Database)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoMessageRepository(db.Database.Collection(cfg.Store.Mongo.Collection))

		go func() {
			wctx, cancel := context.WithTimeout(ctx, warmupTimeout)
			defer cancel()
			if err := db.Ping(wctx); err != nil {
				log.Error("mongo not reachable, messages will fail until it recovers", "error", err)
				return
			}
			if err := repo.EnsureIndexes(wctx); err != nil {
				log.Error("mongo index creation failed", "error", err)
				return
			}
			if err := repo.SeedClock(wctx); err != nil {
				log.Error("mongo clock seeding failed", "error", err)
				return
			}
			log.Info("mongo connected", "database", cfg.Store.Mongo.Database, "collection", cfg.Store.Mongo.Collection)
		}()

		return &messageStore{messages: repo, close: func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Close(cctx); err != nil {
				log.Warn("mongo disconnect failed", "error", err)
			}
		}}, nil

	case "postgres":
		db, err := storage.NewPostgresDB(cfg.Store.Postgres.DSN())
		if err != nil {
			return nil, err
		}

		repo := repository.NewMessageRepository(db)

		go func() {
			wctx, cancel := context.WithTimeout(ctx, warmupTimeout)
			defer cancel()
			// 自動遷移資料庫結構
			if err := db.Warmup(wctx, &models.Message{}); err != nil {
				log.Error("postgres not ready, messages will fail until it recovers", "error", err)
				return
			}
			if err := repo.SeedClock(wctx); err != nil {
				log.Error("postgres clock seeding failed", "error", err)
				return
			}
			log.Info("postgres connected", "host", cfg.Store.Postgres.Host, "database", cfg.Store.Postgres.Name)
		}()

		return &messageStore{messages: repo, close: func() {
			if err := db.Close(); err != nil {
				log.Warn("postgres close failed", "error", err)
			}
		}}, nil

	case "badger":
		db, err := storage.NewBadgerDB(cfg.Store.Badger.Path, log)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		repo, err := repository.NewBadgerMessageRepository(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("badger opened", "path", cfg.Store.Badger.Path)

		return &messageStore{messages: repo, close: func() {
			if err := db.Close(); err != nil {
				log.Warn("badger close failed", "error", err)
			}
		}}, nil

	case "memory":
		log.Warn("using in-memory store, messages are lost on restart")
		return &messageStore{messages: repository.NewMemoryMessageRepository(), close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
