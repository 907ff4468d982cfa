package config

import (
	"time"

	redisclient "github.com/vietddude/curator/internal/infra/redis"
	"github.com/vietddude/curator/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	AniList     AniListConfig      `yaml:"anilist"`
	Collector   CollectorConfig    `yaml:"collector"`
	Checkpoint  CheckpointConfig   `yaml:"checkpoint"`
	Cursor      CursorConfig       `yaml:"cursor"`
	Recommender RecommenderConfig  `yaml:"recommender"`
	Redis       redisclient.Config `yaml:"redis"`
	Database    postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// AniListConfig holds settings for the upstream GraphQL API.
type AniListConfig struct {
	Endpoint string        `yaml:"endpoint"`
	PerPage  int           `yaml:"per_page"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

// RetryConfig bounds the attempts made for a single page.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// CollectorConfig controls the paginated collector.
type CollectorConfig struct {
	StartPage          int           `yaml:"start_page"`
	CheckpointInterval int           `yaml:"checkpoint_interval"`
	PageDelay          time.Duration `yaml:"page_delay"`
	MaxPageRetries     int           `yaml:"max_page_retries"` // negative = retry forever
	Resume             bool          `yaml:"resume"`
}

// CheckpointConfig selects where checkpoints are written.
type CheckpointConfig struct {
	Backend string `yaml:"backend"` // file, postgres, memory
	Dir     string `yaml:"dir"`
}

// CursorConfig selects where collector cursors are persisted.
type CursorConfig struct {
	Backend string `yaml:"backend"` // memory, postgres, redis
}

// RecommenderConfig holds settings for the external recommender and merge step.
type RecommenderConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout"`
	Limit             int           `yaml:"limit"`
	MetadataPath      string        `yaml:"metadata_path"`
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 0 = unlimited
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
}
