package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // dev 使用文字輸出
	BackendZap Backend = "zap" // stage/prod 使用 slog-zap JSON 輸出
)

// Config 描述 logger 的初始化參數
type Config struct {
	// 每行日誌都會帶上的中繼資料
	Service    string
	Version    string
	InstanceID string

	Level     slog.Level
	Env       Env
	Backend   Backend // 空值時依 Env 決定
	AddSource bool

	// zap 取樣設定，<= 0 時使用預設值
	SampleInitial    int
	SampleThereafter int
}
