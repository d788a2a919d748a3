// File path: internal/sqlite/queries.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mbartelsen/beanshift/internal/inspect"
	"github.com/mbartelsen/beanshift/internal/memory"
)

// RegisterProject upserts the project row, refreshing the source path.
func (s *Store) RegisterProject(ctx context.Context, projectID, sourcePath string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return errors.New("project id required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(project_id, source_path)
                VALUES (?, ?)
                ON CONFLICT(project_id) DO UPDATE SET
                        source_path = excluded.source_path,
                        updated_at = CURRENT_TIMESTAMP`, projectID, sourcePath)
	if err != nil {
		return fmt.Errorf("register project: %w", err)
	}
	return nil
}

// RecordRun persists a convergence report and its failures, returning the run id.
func (s *Store) RecordRun(ctx context.Context, projectID string, report *inspect.Report) (int64, error) {
	if err := s.ensureReady(); err != nil {
		return 0, err
	}
	if report == nil {
		return 0, errors.New("report required")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin run insert: %w", err)
	}
	result, err := tx.ExecContext(ctx, `INSERT INTO runs
                (project_id, passes, converged, outcome, node_count, failure_count, duration_ms)
                VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, report.Passes, report.Converged, string(report.Outcome()),
		report.Nodes, len(report.Failures), report.Duration.Milliseconds())
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("run id: %w", err)
	}
	for _, failure := range report.Failures {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_failures(run_id, inspector, node_id, message)
                        VALUES (?, ?, ?, ?)`, runID, failure.Inspector, failure.NodeID, failure.Message); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert failure: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO audit(project_id, action, detail)
                VALUES (?, 'run_recorded', ?)`, projectID,
		fmt.Sprintf("passes=%d outcome=%s", report.Passes, report.Outcome())); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("insert audit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run insert: %w", err)
	}
	return runID, nil
}

// PersistNodes replaces the catalog rows for a project with the given snapshot.
func (s *Store) PersistNodes(ctx context.Context, projectID string, records []memory.Record) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin node persist: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE project_id = ?`, projectID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear nodes: %w", err)
	}
	for _, record := range records {
		props, err := json.Marshal(record.Properties)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode properties for %s: %w", record.ID, err)
		}
		result, err := tx.ExecContext(ctx, `INSERT INTO nodes(project_id, node_id, kind, properties)
                        VALUES (?, ?, ?, ?)`, projectID, record.ID, string(record.Kind), string(props))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert node %s: %w", record.ID, err)
		}
		rowID, err := result.LastInsertId()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("node row id: %w", err)
		}
		for _, tag := range record.Tags {
			if _, err := tx.ExecContext(ctx, `INSERT INTO node_tags(node_id, tag) VALUES (?, ?)`, rowID, tag); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert tag %s on %s: %w", tag, record.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit node persist: %w", err)
	}
	return nil
}

// RunHistory returns the most recent runs for a project, newest first.
func (s *Store) RunHistory(ctx context.Context, projectID string, limit int) ([]Run, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	runs := []Run{}
	if err := s.db.SelectContext(ctx, &runs, `SELECT * FROM runs
                WHERE project_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, projectID, limit); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

// FailuresForRun returns the recorded inspector failures for a run.
func (s *Store) FailuresForRun(ctx context.Context, runID int64) ([]FailureRow, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	failures := []FailureRow{}
	if err := s.db.SelectContext(ctx, &failures, `SELECT * FROM run_failures
                WHERE run_id = ? ORDER BY inspector, node_id`, runID); err != nil {
		return nil, fmt.Errorf("select failures: %w", err)
	}
	return failures, nil
}

// NodesByTag returns the node identifiers carrying a tag within a project.
func (s *Store) NodesByTag(ctx context.Context, projectID, tag string) ([]string, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, `SELECT n.node_id FROM nodes n
                INNER JOIN node_tags nt ON nt.node_id = n.id
                WHERE n.project_id = ? AND nt.tag = ?
                ORDER BY n.node_id`, projectID, tag); err != nil {
		return nil, fmt.Errorf("select nodes by tag: %w", err)
	}
	return ids, nil
}

// Summary aggregates the catalog view of one project.
func (s *Store) Summary(ctx context.Context, projectID string) (*ProjectSummary, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	summary := &ProjectSummary{ProjectID: projectID, TagCounts: map[string]int{}}

	var project Project
	err := s.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE project_id = ?`, projectID)
	switch {
	case err == nil:
		summary.SourcePath = project.SourcePath
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("select project: %w", err)
	}

	var stats struct {
		RunCount       int            `db:"run_count"`
		ConvergedCount int            `db:"converged_count"`
		LastRunAt      sql.NullString `db:"last_run_at"`
	}
	err = s.db.GetContext(ctx, &stats, `SELECT run_count, converged_count, last_run_at
                FROM project_run_stats WHERE project_id = ?`, projectID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select run stats: %w", err)
	}
	summary.RunCount = stats.RunCount
	summary.ConvergedCount = stats.ConvergedCount

	runs, err := s.RunHistory(ctx, projectID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		run := runs[0]
		summary.LastRun = &run
	}

	if err := s.db.GetContext(ctx, &summary.NodeCount, `SELECT COUNT(*) FROM nodes
                WHERE project_id = ?`, projectID); err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}

	rows := []struct {
		Tag   string `db:"tag"`
		Count int    `db:"node_count"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT tag, node_count FROM tag_usage_view
                WHERE project_id = ?`, projectID); err != nil {
		return nil, fmt.Errorf("select tag usage: %w", err)
	}
	for _, row := range rows {
		summary.TagCounts[row.Tag] = row.Count
	}
	return summary, nil
}

// Projects lists the registered project identifiers.
func (s *Store) Projects(ctx context.Context) ([]Project, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	projects := []Project{}
	if err := s.db.SelectContext(ctx, &projects, `SELECT * FROM projects ORDER BY project_id`); err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	return projects, nil
}
