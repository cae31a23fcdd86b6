package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, "{}\n"))

	cfg, err := Load()
	req.NoError(err)

	req.Equal(":3000", cfg.Server.Address)
	req.Equal(10*time.Second, cfg.Server.ShutdownTimeout)
	req.Equal("mongo", cfg.Store.Driver)
	req.Equal(5*time.Second, cfg.Store.OpTimeout)
	req.Equal("mongodb://localhost:27017", cfg.Store.Mongo.URI)
	req.Equal("chat-app", cfg.Store.Mongo.Database)
	req.Equal("messages", cfg.Store.Mongo.Collection)
	req.Equal(50, cfg.Chat.HistoryLimit)
	req.False(cfg.Chat.EchoSender)
	req.Equal(256, cfg.Chat.SendBuffer)
	req.Equal(int64(65536), cfg.Chat.MaxFrameBytes)
	req.Equal([]string{"*"}, cfg.CORS.AllowedOrigins)
	req.Equal([]string{"GET", "POST", "PUT", "DELETE"}, cfg.CORS.AllowedMethods)
	req.Equal("info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, `
store:
  driver: Badger
  badger:
    path: /tmp/chat
chat:
  echo_sender: true
  history_limit: 20
  ping_interval: 5s
  pong_wait: 12s
`))

	cfg, err := Load()
	req.NoError(err)
	req.Equal("badger", cfg.Store.Driver)
	req.Equal("/tmp/chat", cfg.Store.Badger.Path)
	req.True(cfg.Chat.EchoSender)
	req.Equal(20, cfg.Chat.HistoryLimit)
	req.Equal(5*time.Second, cfg.Chat.PingInterval)
	req.Equal(12*time.Second, cfg.Chat.PongWait)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, "store:\n  driver: postgres\n"))
	t.Setenv("CHAT_STORE_DRIVER", "memory")
	t.Setenv("CHAT_CHAT_HISTORY_LIMIT", "7")
	t.Setenv("CHAT_SERVER_ADDRESS", ":9999")
	t.Setenv("CHAT_CORS_ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := Load()
	req.NoError(err)
	req.Equal("memory", cfg.Store.Driver)
	req.Equal(7, cfg.Chat.HistoryLimit)
	req.Equal(":9999", cfg.Server.Address)
	req.Equal([]string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown driver":      "store:\n  driver: redis\n",
		"zero history":        "chat:\n  history_limit: 0\n",
		"pong before ping":    "chat:\n  ping_interval: 10s\n  pong_wait: 5s\n",
		"negative op timeout": "store:\n  op_timeout: -1s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", writeConfig(t, body))
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "u", Password: "p", Name: "chat", Port: 5433, SSLMode: "disable"}
	require.Equal(t, "host=db user=u password=p dbname=chat port=5433 sslmode=disable", p.DSN())
}
