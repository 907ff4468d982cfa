package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.AniList.Endpoint == "" {
		cfg.AniList.Endpoint = "https://graphql.anilist.co"
	}
	if cfg.AniList.PerPage == 0 {
		cfg.AniList.PerPage = 100
	}
	if cfg.AniList.Timeout == 0 {
		cfg.AniList.Timeout = 30 * time.Second
	}
	if cfg.AniList.Retry.MaxAttempts == 0 {
		cfg.AniList.Retry.MaxAttempts = 5
	}
	if cfg.AniList.Retry.InitialBackoff == 0 {
		cfg.AniList.Retry.InitialBackoff = 3 * time.Second
	}
	if cfg.AniList.Retry.MaxBackoff == 0 {
		cfg.AniList.Retry.MaxBackoff = 60 * time.Second
	}

	if cfg.Collector.StartPage == 0 {
		cfg.Collector.StartPage = 1
	}
	if cfg.Collector.CheckpointInterval == 0 {
		cfg.Collector.CheckpointInterval = 1000
	}
	if cfg.Collector.PageDelay == 0 {
		cfg.Collector.PageDelay = 3 * time.Second
	}
	if cfg.Collector.MaxPageRetries == 0 {
		cfg.Collector.MaxPageRetries = 10
	}

	if cfg.Checkpoint.Backend == "" {
		cfg.Checkpoint.Backend = "file"
	}
	if cfg.Checkpoint.Dir == "" {
		cfg.Checkpoint.Dir = "data"
	}
	if cfg.Cursor.Backend == "" {
		cfg.Cursor.Backend = "memory"
	}

	if cfg.Recommender.Timeout == 0 {
		cfg.Recommender.Timeout = 30 * time.Second
	}
	if cfg.Recommender.Limit == 0 {
		cfg.Recommender.Limit = 10
	}
	if cfg.Recommender.MetadataPath == "" {
		cfg.Recommender.MetadataPath = "data/raw/mal_anime_data.json"
	}
	if cfg.Recommender.RateLimitCooldown == 0 {
		cfg.Recommender.RateLimitCooldown = 5 * time.Minute
	}
}

// Validate checks values that have no sensible default.
func (c *AppConfig) Validate() error {
	if c.AniList.PerPage < 1 {
		return fmt.Errorf("anilist.per_page must be positive, got %d", c.AniList.PerPage)
	}
	if c.AniList.Retry.MaxAttempts < 1 {
		return fmt.Errorf("anilist.retry.max_attempts must be positive, got %d", c.AniList.Retry.MaxAttempts)
	}
	if c.Collector.StartPage < 1 {
		return fmt.Errorf("collector.start_page must be positive, got %d", c.Collector.StartPage)
	}
	if c.Collector.CheckpointInterval < 1 {
		return fmt.Errorf("collector.checkpoint_interval must be positive, got %d", c.Collector.CheckpointInterval)
	}

	switch c.Checkpoint.Backend {
	case "file", "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("checkpoint.backend postgres requires database.url")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}

	switch c.Cursor.Backend {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("cursor.backend postgres requires database.url")
		}
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("cursor.backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown cursor backend %q", c.Cursor.Backend)
	}
	return nil
}
