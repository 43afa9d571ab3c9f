// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

// Duration lets YAML carry human-readable values like "15s" or "10m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // memory | redis | postgres
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorefrontConfig struct {
	Host          string `yaml:"host"`
	AccessToken   string `yaml:"access_token"`
	APIVersion    string `yaml:"api_version"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type GatewayConfig struct {
	BaseURL       string        `yaml:"base_url"`
	AccessToken   string        `yaml:"access_token"`
	WebhookSecret string   `yaml:"webhook_secret"` // empty = unverified (see web.Verify docs)
	Timeout       Duration `yaml:"timeout"`
}

type SweeperConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Interval   Duration `yaml:"interval"`
	StaleAfter Duration `yaml:"stale_after"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storefront StorefrontConfig `yaml:"storefront"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Storefront.APIVersion == "" {
		cfg.Storefront.APIVersion = "2024-07"
	}
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = Duration(15 * time.Second)
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = Duration(time.Minute)
	}
	if cfg.Sweeper.StaleAfter <= 0 {
		cfg.Sweeper.StaleAfter = Duration(10 * time.Minute)
	}

	// Minimal validation
	if cfg.Storefront.Host == "" {
		return nil, errors.New("storefront.host is required")
	}
	if cfg.Storefront.AccessToken == "" {
		return nil, errors.New("storefront.access_token is required")
	}
	if cfg.Storefront.WebhookSecret == "" {
		return nil, errors.New("storefront.webhook_secret is required")
	}
	if cfg.Gateway.BaseURL == "" {
		return nil, errors.New("gateway.base_url is required")
	}
	if cfg.Gateway.AccessToken == "" {
		return nil, errors.New("gateway.access_token is required")
	}
	switch cfg.Store.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, errors.New("redis.url is required for the redis store backend")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, errors.New("database.url is required for the postgres store backend")
		}
	default:
		return nil, fmt.Errorf("unknown store.backend %q", cfg.Store.Backend)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
