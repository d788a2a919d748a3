// File path: internal/sqlite/config_test.go
package sqlite

import (
	"testing"
	"time"
)

func TestConfigMergeKeepsBaseForZeroOverrides(t *testing.T) {
	base := Config{
		Path:            "/data/catalog.db",
		MaxOpenConns:    8,
		MaxIdleConns:    8,
		ConnMaxLifetime: 15 * time.Minute,
		BusyTimeout:     5 * time.Second,
	}
	merged := base.Merge(Config{MaxOpenConns: 16, Path: "  "})
	if merged.MaxOpenConns != 16 {
		t.Fatalf("max open conns = %d, want 16", merged.MaxOpenConns)
	}
	if merged.Path != "/data/catalog.db" {
		t.Fatalf("blank path override replaced base: %q", merged.Path)
	}
	if merged.BusyTimeout != base.BusyTimeout || merged.ConnMaxLifetime != base.ConnMaxLifetime {
		t.Fatalf("zero overrides changed base: %+v", merged)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("SQLITE_MAX_OPEN_CONNS", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxOpenConns != 8 || cfg.MaxIdleConns != 8 {
		t.Fatalf("pool defaults = %d/%d", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.BusyTimeout != 5*time.Second {
		t.Fatalf("busy timeout = %s", cfg.BusyTimeout)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/custom.db")
	t.Setenv("SQLITE_MAX_OPEN_CONNS", "4")
	t.Setenv("SQLITE_BUSY_TIMEOUT", "2s")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Path != "/tmp/custom.db" || cfg.MaxOpenConns != 4 || cfg.BusyTimeout != 2*time.Second {
		t.Fatalf("config = %+v", cfg)
	}

	t.Setenv("SQLITE_MAX_OPEN_CONNS", "many")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("invalid SQLITE_MAX_OPEN_CONNS accepted")
	}
}
