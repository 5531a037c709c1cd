package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Bots     BotConfig      `yaml:"bots"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	BasePath        string        `yaml:"base_path"`
	Env             string        `yaml:"env"`
	LogLevel        string        `yaml:"log_level"`
	CORSOrigins     string        `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	SecretKey string `yaml:"secret_key"`
}

// RealtimeConfig tunes the change-feed client, presence tracker and
// fallback poller.
type RealtimeConfig struct {
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	ErrorRetryDelay   time.Duration `yaml:"error_retry_delay"`
	TimeoutRetryDelay time.Duration `yaml:"timeout_retry_delay"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	PresenceGrace     time.Duration `yaml:"presence_grace"`
	PresenceSweep     time.Duration `yaml:"presence_sweep"`

	PollerInterval time.Duration `yaml:"poller_interval"`
}

type BotConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	MinVoteDelay time.Duration `yaml:"min_vote_delay"`
	MaxVoteDelay time.Duration `yaml:"max_vote_delay"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            8004,
			BasePath:        "/api/polls",
			Env:             "dev",
			LogLevel:        "debug",
			CORSOrigins:     "*",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			URL: "redis://localhost:6379/3",
		},
		Realtime: RealtimeConfig{
			FetchTimeout:      7 * time.Second,
			ErrorRetryDelay:   5 * time.Second,
			TimeoutRetryDelay: 10 * time.Second,
			MaxRetryDelay:     60 * time.Second,
			HeartbeatInterval: 15 * time.Second,
			PresenceGrace:     60 * time.Second,
			PresenceSweep:     10 * time.Second,
			PollerInterval:    3 * time.Second,
		},
		Bots: BotConfig{
			BatchSize:    5,
			MinVoteDelay: 500 * time.Millisecond,
			MaxVoteDelay: 2000 * time.Millisecond,
		},
	}

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if basePath := os.Getenv("SERVER_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Server.Env = env
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if secretKey := os.Getenv("SECRET_KEY"); secretKey != "" {
		cfg.Auth.SecretKey = secretKey
	}

	return cfg, nil
}
