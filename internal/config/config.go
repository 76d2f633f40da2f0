package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all bridge configuration.
type Config struct {
	Server    ServerConfig
	Peer      PeerConfig
	Page      PageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8400" yaml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" yaml:"host"`
}

// PeerConfig holds assistant peer configuration.
type PeerConfig struct {
	// ManifestPath points at the TOML manifest describing how to launch
	// the assistant process.
	ManifestPath   string        `envconfig:"PEER_MANIFEST" default:"peer.toml" yaml:"manifest_path"`
	RequestTimeout time.Duration `envconfig:"PEER_TIMEOUT" default:"2m" yaml:"request_timeout"`
	MaxFrameSize   int           `envconfig:"PEER_MAX_FRAME" default:"10485760" yaml:"max_frame_size"`
}

// PageConfig holds page fetching configuration.
type PageConfig struct {
	ContentLimit int           `envconfig:"PAGE_CONTENT_LIMIT" default:"50000" yaml:"content_limit"`
	HTMLLimit    int           `envconfig:"PAGE_HTML_LIMIT" default:"20000" yaml:"html_limit"`
	FetchTimeout time.Duration `envconfig:"PAGE_FETCH_TIMEOUT" default:"30s" yaml:"fetch_timeout"`
	// AllowedHosts holds doublestar patterns matched against request hosts.
	// Empty means any host is permitted.
	AllowedHosts []string `envconfig:"PAGE_ALLOWED_HOSTS" yaml:"allowed_hosts"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("FIREBRIDGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from environment variables, then overlays
// values from a YAML file. File values win over environment defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8400",
			Host: "127.0.0.1",
		},
		Peer: PeerConfig{
			ManifestPath:   "peer.toml",
			RequestTimeout: 2 * time.Minute,
			MaxFrameSize:   10 * 1024 * 1024,
		},
		Page: PageConfig{
			ContentLimit: 50000,
			HTMLLimit:    20000,
			FetchTimeout: 30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
