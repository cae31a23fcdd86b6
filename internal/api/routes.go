package api

import (
	"embed"
	"log/slog"
	"net/http"

	"chat_relay/internal/api/handlers"
	"chat_relay/internal/middleware"
	"chat_relay/internal/service"
	"chat_relay/pkg/config"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var static embed.FS

// NewRouter 建立完整的 HTTP handler：gin 路由外層再包上 CORS
func NewRouter(services *service.Services, cfg *config.Config, log *slog.Logger) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))

	SetupRoutes(r, services, cfg, log)

	return middleware.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods)(r)
}

func SetupRoutes(r *gin.Engine, services *service.Services, cfg *config.Config, log *slog.Logger) {
	// 初始化 handlers
	wsHandler := handlers.NewWebSocketHandler(services.Hub, middleware.OriginChecker(cfg.CORS.AllowedOrigins), log)
	messageHandler := handlers.NewMessageHandler(services.Messages, cfg.Chat.HistoryLimit, cfg.Store.OpTimeout)
	statsHandler := handlers.NewStatsHandler(services.Hub)

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 測試用頁面
	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("static/", http.FS(static))
	})

	// WebSocket 連接點
	r.GET("/ws", wsHandler.HandleWebSocket)

	api := r.Group("/api")
	{
		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		api.GET("/stats", statsHandler.GetStats)

		messages := api.Group("/messages")
		{
			messages.GET("", messageHandler.ListMessages)   // 與新連線收到的歷史相同
			messages.GET("/:id", messageHandler.GetMessage) // 單則訊息（包含已刪除）
		}
	}
}
