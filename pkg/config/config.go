package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vote policies for repeated votes by the same identity within a round.
const (
	VotePolicySingle     = "single"
	VotePolicyPermissive = "permissive"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowRequest     time.Duration `yaml:"slow_request"`
		CORS            bool          `yaml:"cors"`
		TrustProxy      bool          `yaml:"trust_proxy"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Game struct {
		VoteDuration  time.Duration `yaml:"vote_duration"`
		TickInterval  time.Duration `yaml:"tick_interval"`
		DriftInterval time.Duration `yaml:"drift_interval"`
		InitialPrice  float64       `yaml:"initial_price"`
		ChartWindow   int           `yaml:"chart_window"`
		VotePolicy    string        `yaml:"vote_policy"`
		Seed          int64         `yaml:"seed"`
	} `yaml:"game"`
	Backend struct {
		Type       string        `yaml:"type"`
		BufferSize int           `yaml:"buffer_size"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Archiver struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
		} `yaml:"archiver"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		Table        string        `yaml:"table"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Cache struct {
		Type        string        `yaml:"type"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
		Redis       struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		Capacity      float64       `yaml:"capacity"`
		RefillPerSec  float64       `yaml:"refill_per_sec"`
		MaxKeys       int           `yaml:"max_keys"`
		IdleTTL       time.Duration `yaml:"idle_ttl"`
		PruneInterval time.Duration `yaml:"prune_interval"`
	} `yaml:"rate_limit"`
	Wallet struct {
		ChallengeTTL     time.Duration `yaml:"challenge_ttl"`
		MaxPendingNonces int           `yaml:"max_pending_nonces"`
	} `yaml:"wallet"`
	WebSocket struct {
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		SendBuffer     int           `yaml:"send_buffer"`
	} `yaml:"websocket"`
}

// Default returns the configuration used when a field is left empty in YAML.
func Default() *Config {
	c := &Config{Environment: "development"}
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stdout"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.SlowRequest = 500 * time.Millisecond
	c.Server.CORS = true
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Game.VoteDuration = 8 * time.Minute
	c.Game.TickInterval = time.Second
	c.Game.DriftInterval = 5 * time.Second
	c.Game.InitialPrice = 0.00004
	c.Game.ChartWindow = 10
	c.Game.VotePolicy = VotePolicySingle
	c.Backend.Type = "none"
	c.Backend.BufferSize = 1024
	c.Backend.Timeout = 5 * time.Second
	c.Kafka.Topic = "pumpdump.events"
	c.Kafka.LogsTopic = "pumpdump.logs"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.Linger = 200 * time.Millisecond
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Archiver.GroupID = "pumpdump-archiver"
	c.Kafka.Archiver.Workers = 2
	c.Kafka.Archiver.RetryMax = 3
	c.Kafka.Archiver.BackoffMin = 50 * time.Millisecond
	c.Kafka.Archiver.BackoffMax = 2 * time.Second
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "pumpdump"
	c.ClickHouse.Table = "events"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 10 * time.Second
	c.ClickHouse.WriteTimeout = 10 * time.Second
	c.Cache.Type = "memory"
	c.Cache.SnapshotTTL = time.Minute
	c.Cache.Redis.Host = "localhost"
	c.Cache.Redis.Port = 6379
	c.Cache.Redis.Prefix = "pumpdump"
	c.RateLimit.Capacity = 5
	c.RateLimit.RefillPerSec = 2
	c.RateLimit.MaxKeys = 10000
	c.RateLimit.IdleTTL = 10 * time.Minute
	c.RateLimit.PruneInterval = time.Minute
	c.Wallet.ChallengeTTL = 5 * time.Minute
	c.Wallet.MaxPendingNonces = 1024
	c.WebSocket.WriteTimeout = 10 * time.Second
	c.WebSocket.ReadTimeout = 60 * time.Second
	c.WebSocket.PingInterval = 30 * time.Second
	c.WebSocket.MaxMessageSize = 1024
	c.WebSocket.SendBuffer = 256
	return c
}

// Load reads and parses a YAML configuration file on top of Default().
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads a .env file if present, then the YAML config, then
// applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("CACHE_TYPE"); v != "" {
		c.Cache.Type = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("VOTE_POLICY"); v != "" {
		c.Game.VotePolicy = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Game.VoteDuration < time.Second {
		return fmt.Errorf("game.vote_duration must be at least 1s")
	}
	if c.Game.TickInterval <= 0 || c.Game.DriftInterval <= 0 {
		return fmt.Errorf("game.tick_interval and game.drift_interval must be positive")
	}
	if c.Game.InitialPrice <= 0 {
		return fmt.Errorf("game.initial_price must be positive")
	}
	if c.Game.ChartWindow <= 0 {
		return fmt.Errorf("game.chart_window must be positive")
	}
	if c.Game.VotePolicy != VotePolicySingle && c.Game.VotePolicy != VotePolicyPermissive {
		return fmt.Errorf("game.vote_policy must be '%s' or '%s', got '%s'", VotePolicySingle, VotePolicyPermissive, c.Game.VotePolicy)
	}
	switch c.Backend.Type {
	case "none":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when backend.type is kafka")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when backend.type is kafka")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when backend.type is clickhouse")
		}
	default:
		return fmt.Errorf("backend.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Kafka.Archiver.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka.archiver is enabled")
		}
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when kafka.archiver is enabled")
		}
	}
	switch c.Cache.Type {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.type must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Type)
	}
	return nil
}

// StoresEvents reports whether event history can be queried from ClickHouse.
func (c *Config) StoresEvents() bool {
	return c.Backend.Type == "clickhouse" || c.Kafka.Archiver.Enabled
}
