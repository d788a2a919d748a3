// File path: internal/sqlite/store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps a pooled sqlx.DB connection to the analysis catalog.
type Store struct {
	db *sqlx.DB
}

// Open returns a catalog Store for the database at path, creating the file
// and migrating the schema on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig is Open with full control over pooling and busy timeout.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close shuts down the connection pool. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureReady() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not initialised")
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`PRAGMA journal_mode = WAL;`,
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS projects (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                project_id TEXT NOT NULL UNIQUE,
                source_path TEXT,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS runs (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                project_id TEXT NOT NULL,
                passes INTEGER NOT NULL,
                converged INTEGER NOT NULL,
                outcome TEXT NOT NULL,
                node_count INTEGER NOT NULL,
                failure_count INTEGER NOT NULL,
                duration_ms INTEGER NOT NULL,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS nodes (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                project_id TEXT NOT NULL,
                node_id TEXT NOT NULL,
                kind TEXT NOT NULL,
                properties TEXT,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                UNIQUE(project_id, node_id)
        );`,
	`CREATE TABLE IF NOT EXISTS node_tags (
                node_id INTEGER NOT NULL,
                tag TEXT NOT NULL,
                PRIMARY KEY (node_id, tag),
                FOREIGN KEY(node_id) REFERENCES nodes(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS run_failures (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                run_id INTEGER NOT NULL,
                inspector TEXT NOT NULL,
                node_id TEXT NOT NULL,
                message TEXT,
                FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS audit (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                project_id TEXT,
                action TEXT NOT NULL,
                detail TEXT,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE INDEX IF NOT EXISTS idx_runs_project_created ON runs(project_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_project_kind ON nodes(project_id, kind);`,
	`CREATE INDEX IF NOT EXISTS idx_node_tags_tag ON node_tags(tag);`,
	`CREATE INDEX IF NOT EXISTS idx_failures_run ON run_failures(run_id);`,
	`CREATE VIEW IF NOT EXISTS project_run_stats AS
                SELECT
                        project_id,
                        COUNT(*) AS run_count,
                        SUM(CASE WHEN converged = 1 THEN 1 ELSE 0 END) AS converged_count,
                        MAX(created_at) AS last_run_at
                FROM runs
                GROUP BY project_id;`,
	`CREATE VIEW IF NOT EXISTS tag_usage_view AS
                SELECT
                        n.project_id,
                        nt.tag,
                        COUNT(*) AS node_count
                FROM node_tags nt
                INNER JOIN nodes n ON n.id = nt.node_id
                GROUP BY n.project_id, nt.tag;`,
	`INSERT INTO audit(project_id, action, detail)
        SELECT '', 'schema_created', 'initial schema loaded'
        WHERE NOT EXISTS (SELECT 1 FROM audit WHERE action = 'schema_created');`,
}
