// File path: internal/sqlite/types.go
package sqlite

import "time"

// Project represents a registered analysis target.
type Project struct {
	ID         int64     `db:"id"`
	ProjectID  string    `db:"project_id"`
	SourcePath string    `db:"source_path"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Run records a single convergence run over a project.
type Run struct {
	ID           int64     `db:"id"`
	ProjectID    string    `db:"project_id"`
	Passes       int       `db:"passes"`
	Converged    bool      `db:"converged"`
	Outcome      string    `db:"outcome"`
	NodeCount    int       `db:"node_count"`
	FailureCount int       `db:"failure_count"`
	DurationMS   int64     `db:"duration_ms"`
	CreatedAt    time.Time `db:"created_at"`
}

// NodeRow is a persisted converged node with its property bag serialized as JSON.
type NodeRow struct {
	ID         int64     `db:"id"`
	ProjectID  string    `db:"project_id"`
	NodeID     string    `db:"node_id"`
	Kind       string    `db:"kind"`
	Properties string    `db:"properties"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// FailureRow is one recorded inspector failure within a run.
type FailureRow struct {
	ID        int64  `db:"id"`
	RunID     int64  `db:"run_id"`
	Inspector string `db:"inspector"`
	NodeID    string `db:"node_id"`
	Message   string `db:"message"`
}

// ProjectSummary aggregates catalog state for one project.
type ProjectSummary struct {
	ProjectID      string         `json:"project_id"`
	SourcePath     string         `json:"source_path"`
	RunCount       int            `json:"run_count"`
	ConvergedCount int            `json:"converged_count"`
	LastRun        *Run           `json:"last_run,omitempty"`
	NodeCount      int            `json:"node_count"`
	TagCounts      map[string]int `json:"tag_counts,omitempty"`
}
