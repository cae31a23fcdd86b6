package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CHAT"

type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Chat    ChatConfig
	CORS    CORSConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Address         string
	Mode            string // gin 模式: debug / release / test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver    string // mongo / postgres / badger / memory
	OpTimeout time.Duration `mapstructure:"op_timeout"`
	Mongo     MongoConfig
	Postgres  PostgresConfig
	Badger    BadgerConfig
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type PostgresConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
	SSLMode  string `mapstructure:"sslmode"`
}

type BadgerConfig struct {
	Path string
}

type ChatConfig struct {
	HistoryLimit  int           `mapstructure:"history_limit"`
	EchoSender    bool          `mapstructure:"echo_sender"`
	SendBuffer    int           `mapstructure:"send_buffer"`
	MaxFrameBytes int64         `mapstructure:"max_frame_bytes"`
	MaxBodyLength int           `mapstructure:"max_body_length"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`
	PongWait      time.Duration `mapstructure:"pong_wait"`
	WriteWait     time.Duration `mapstructure:"write_wait"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

type LoggingConfig struct {
	Env       string
	Service   string
	Version   string
	Backend   string // std / zap，空值時依 env 決定
	Level     string
	AddSource bool `mapstructure:"add_source"`
}

var drivers = map[string]struct{}{
	"mongo":    {},
	"postgres": {},
	"badger":   {},
	"memory":   {},
}

// Load 載入應用程式配置
// 順序: .env -> config.yaml -> CHAT_ 開頭的環境變數，未設定的項目使用預設值
func Load() (*Config, error) {
	// .env 不存在時直接使用系統環境變數
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./pkg/config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.op_timeout", 5*time.Second)
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "chat-app")
	v.SetDefault("store.mongo.collection", "messages")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.name", "chat")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.badger.path", "./data/badger")

	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.echo_sender", false)
	v.SetDefault("chat.send_buffer", 256)
	v.SetDefault("chat.max_frame_bytes", 64*1024)
	v.SetDefault("chat.max_body_length", 4000)
	v.SetDefault("chat.ping_interval", 54*time.Second)
	v.SetDefault("chat.pong_wait", 60*time.Second)
	v.SetDefault("chat.write_wait", 10*time.Second)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE"})

	v.SetDefault("logging.env", "dev")
	v.SetDefault("logging.service", "chat-relay")
	v.SetDefault("logging.version", "v0.1.0")
	v.SetDefault("logging.backend", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.add_source", false)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("server.address is required")
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if _, ok := drivers[c.Store.Driver]; !ok {
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	if c.Store.OpTimeout <= 0 {
		return errors.New("store.op_timeout must be positive")
	}
	if c.Chat.HistoryLimit <= 0 {
		return errors.New("chat.history_limit must be positive")
	}
	if c.Chat.SendBuffer <= 0 {
		return errors.New("chat.send_buffer must be positive")
	}
	if c.Chat.MaxFrameBytes <= 0 {
		return errors.New("chat.max_frame_bytes must be positive")
	}
	if c.Chat.MaxBodyLength <= 0 {
		return errors.New("chat.max_body_length must be positive")
	}
	if c.Chat.PingInterval <= 0 || c.Chat.PongWait <= c.Chat.PingInterval {
		return errors.New("chat.pong_wait must be greater than chat.ping_interval")
	}
	if c.Chat.WriteWait <= 0 {
		return errors.New("chat.write_wait must be positive")
	}
	return nil
}

// DSN 組出 gorm postgres driver 使用的連線字串
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		p.Host, p.User, p.Password, p.Name, p.Port, p.SSLMode)
}
