package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"chat_relay/internal/api"
	"chat_relay/internal/repository"
	"chat_relay/internal/service"
	"chat_relay/pkg/config"
	"chat_relay/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("chat relay stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Init(logger.Config{
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化訊息儲存
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	// 初始化 services
	repos := repository.NewRepositories(store.messages)
	services := service.NewServices(repos, service.Options{
		HistoryLimit:  cfg.Chat.HistoryLimit,
		EchoSender:    cfg.Chat.EchoSender,
		SendBuffer:    cfg.Chat.SendBuffer,
		OpTimeout:     cfg.Store.OpTimeout,
		MaxFrameBytes: cfg.Chat.MaxFrameBytes,
		MaxBodyLength: cfg.Chat.MaxBodyLength,
		PingInterval:  cfg.Chat.PingInterval,
		PongWait:      cfg.Chat.PongWait,
		WriteWait:     cfg.Chat.WriteWait,
	}, log)

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go services.Hub.Run(hubCtx)

	// 設置 Gin 路由
	gin.SetMode(cfg.Server.Mode)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.NewRouter(services, cfg, log),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "address", cfg.Server.Address, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	// 先停止接受新連線，再關閉所有 WebSocket
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown incomplete", "error", err)
	}
	if err := services.Hub.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		log.Warn("hub shutdown incomplete", "error", err)
	}

	log.Info("chat relay stopped")
	return nil
}
