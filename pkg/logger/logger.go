// Package logger 建立整個服務共用的 slog.Logger。
//
// dev 環境預設使用文字輸出，其他環境使用 zap 的 JSON 輸出。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init 依設定建立 logger 並設為 slog 的預設 logger
func Init(cfg Config) *slog.Logger {
	return New(os.Stdout, cfg)
}

// New 與 Init 相同，但輸出到指定的 writer
func New(w io.Writer, cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "chat-relay"
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(w, cfg)
	default:
		h = newStdHandler(w, cfg)
	}

	l := slog.New(h.WithAttrs(commonAttrs(cfg)))
	slog.SetDefault(l)
	return l
}
