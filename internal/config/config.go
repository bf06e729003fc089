// Package config loads the application configuration from YAML with
// validated defaults for every section.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marketmate/marketmate/internal/position"
	"github.com/marketmate/marketmate/internal/scan"
	"github.com/marketmate/marketmate/internal/scheduler"
)

// StorageBackend selects where score history and the trade archive live.
type StorageBackend string

const (
	BackendFile     StorageBackend = "file"
	BackendRedis    StorageBackend = "redis"
	BackendPostgres StorageBackend = "postgres"
)

// StorageConfig configures the persistence layer.
type StorageConfig struct {
	Backend  StorageBackend `yaml:"backend"`
	DataDir  string         `yaml:"data_dir"`  // file backend
	RedisURL string         `yaml:"redis_url"` // redis backend
	DSN      string         `yaml:"dsn"`       // postgres backend
}

// Config is the full application configuration.
type Config struct {
	Mode          string           `yaml:"mode"` // signal mode label
	Universe      []string         `yaml:"universe"`
	SectorMapPath string           `yaml:"sector_map_path"` // optional override
	WindowDays    int              `yaml:"window_days"`
	LedgerPath    string           `yaml:"ledger_path"`
	LogLevel      string           `yaml:"log_level"`
	Costs         position.Costs   `yaml:"costs"`
	Scan          scan.Config      `yaml:"scan"`
	Schedule      scheduler.Config `yaml:"schedule"`
	Storage       StorageConfig    `yaml:"storage"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Mode:       "conservative",
		WindowDays: 30,
		LedgerPath: "data/ledger.json",
		LogLevel:   "info",
		Costs:      position.DefaultCosts(),
		Scan:       scan.DefaultConfig(),
		Schedule:   scheduler.DefaultConfig(),
		Storage: StorageConfig{
			Backend: BackendFile,
			DataDir: "data",
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that would fail at first use.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir required for file backend")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url required for redis backend")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn required for postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.WindowDays <= 0 {
		return fmt.Errorf("window_days must be positive, got %d", c.WindowDays)
	}
	if c.Costs.Slippage < 0 || c.Costs.Commission < 0 {
		return fmt.Errorf("costs must be non-negative")
	}
	return nil
}
