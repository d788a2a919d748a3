// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config controls the construction of the orchestrator.
type Config struct {
	MemoryPath    string
	SQLitePath    string
	GraphCacheTTL time.Duration
}

// DefaultConfig places both stores under a local data directory with a
// thirty-second graph cache.
func DefaultConfig() Config {
	return Config{
		MemoryPath:    filepath.Join("data", "snapshots"),
		SQLitePath:    filepath.Join("data", "catalog.db"),
		GraphCacheTTL: 30 * time.Second,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("BEANSHIFT_MEMORY_PATH")); value != "" {
		cfg.MemoryPath = value
	}
	if value := strings.TrimSpace(os.Getenv("BEANSHIFT_CATALOG_PATH")); value != "" {
		cfg.SQLitePath = value
	}
	if value := strings.TrimSpace(os.Getenv("BEANSHIFT_GRAPH_CACHE_TTL")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse BEANSHIFT_GRAPH_CACHE_TTL: %w", err)
		}
		cfg.GraphCacheTTL = dur
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.MemoryPath) == "" {
		cfg.MemoryPath = defaults.MemoryPath
	}
	if strings.TrimSpace(cfg.SQLitePath) == "" {
		cfg.SQLitePath = defaults.SQLitePath
	}
	if cfg.GraphCacheTTL <= 0 {
		cfg.GraphCacheTTL = defaults.GraphCacheTTL
	}
	return cfg
}

func (c Config) validate() error {
	if strings.TrimSpace(c.MemoryPath) == "" {
		return fmt.Errorf("memory path required")
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("sqlite path required")
	}
	if c.GraphCacheTTL <= 0 {
		return fmt.Errorf("graph cache ttl must be positive")
	}
	return nil
}
