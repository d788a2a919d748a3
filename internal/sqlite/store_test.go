// File path: internal/sqlite/store_test.go
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mbartelsen/beanshift/internal/inspect"
	"github.com/mbartelsen/beanshift/internal/memory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport() *inspect.Report {
	return &inspect.Report{
		Passes:     3,
		Converged:  true,
		Nodes:      7,
		Executions: map[string]int{"bean-kind": 7},
		Failures: []inspect.Failure{
			{Inspector: "ejb-descriptor", NodeID: "META-INF/ejb-jar.xml", Message: "parse ejb-jar descriptor: truncated"},
		},
		Duration: 750 * time.Millisecond,
	}
}

func TestRegisterProjectUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.RegisterProject(ctx, "orders", "/repos/orders"); err != nil {
		t.Fatalf("RegisterProject: %v", err)
	}
	if err := store.RegisterProject(ctx, "orders", "/repos/orders-v2"); err != nil {
		t.Fatalf("RegisterProject (update): %v", err)
	}

	projects, err := store.Projects(ctx)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(projects))
	}
	if projects[0].SourcePath != "/repos/orders-v2" {
		t.Fatalf("source path = %q, want updated value", projects[0].SourcePath)
	}
	if err := store.RegisterProject(ctx, "  ", "/x"); err == nil {
		t.Fatal("blank project id succeeded")
	}
}

func TestRecordRunAndHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.RegisterProject(ctx, "orders", "/repos/orders"); err != nil {
		t.Fatalf("RegisterProject: %v", err)
	}

	runID, err := store.RecordRun(ctx, "orders", sampleReport())
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if runID == 0 {
		t.Fatal("run id not assigned")
	}
	clean := sampleReport()
	clean.Failures = nil
	if _, err := store.RecordRun(ctx, "orders", clean); err != nil {
		t.Fatalf("RecordRun (second): %v", err)
	}

	runs, err := store.RunHistory(ctx, "orders", 10)
	if err != nil {
		t.Fatalf("RunHistory: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// newest first
	if runs[0].FailureCount != 0 || runs[1].FailureCount != 1 {
		t.Fatalf("run order wrong: %+v", runs)
	}
	if runs[1].Passes != 3 || !runs[1].Converged {
		t.Fatalf("run row = %+v", runs[1])
	}
	if runs[1].Outcome != string(inspect.OutcomeConvergedWithFailures) {
		t.Fatalf("outcome = %q", runs[1].Outcome)
	}

	failures, err := store.FailuresForRun(ctx, runID)
	if err != nil {
		t.Fatalf("FailuresForRun: %v", err)
	}
	if len(failures) != 1 || failures[0].Inspector != "ejb-descriptor" {
		t.Fatalf("failures = %+v", failures)
	}

	if _, err := store.RecordRun(ctx, "orders", nil); err == nil {
		t.Fatal("nil report succeeded")
	}
}

func TestPersistNodesReplacesAndIndexesTags(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.RegisterProject(ctx, "orders", "/repos/orders"); err != nil {
		t.Fatalf("RegisterProject: %v", err)
	}

	records := []memory.Record{
		{
			ID:   "com.acme.OrderBean",
			Kind: inspect.KindClass,
			Tags: []string{"class", "session-bean", "spring-service-candidate"},
			Properties: map[string]inspect.Value{
				"spring_target": inspect.StringValue("service"),
			},
		},
		{
			ID:   "com.acme.CustomerBean",
			Kind: inspect.KindClass,
			Tags: []string{"class", "entity-bean"},
		},
	}
	if err := store.PersistNodes(ctx, "orders", records); err != nil {
		t.Fatalf("PersistNodes: %v", err)
	}

	ids, err := store.NodesByTag(ctx, "orders", "session-bean")
	if err != nil {
		t.Fatalf("NodesByTag: %v", err)
	}
	if diff := cmp.Diff([]string{"com.acme.OrderBean"}, ids); diff != "" {
		t.Fatalf("tagged nodes mismatch (-want +got):\n%s", diff)
	}

	// a later snapshot fully replaces the previous rows
	if err := store.PersistNodes(ctx, "orders", records[:1]); err != nil {
		t.Fatalf("PersistNodes (replace): %v", err)
	}
	ids, err = store.NodesByTag(ctx, "orders", "entity-bean")
	if err != nil {
		t.Fatalf("NodesByTag: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("stale tag rows survived replace: %v", ids)
	}
}

func TestSummaryAggregates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.RegisterProject(ctx, "orders", "/repos/orders"); err != nil {
		t.Fatalf("RegisterProject: %v", err)
	}
	if _, err := store.RecordRun(ctx, "orders", sampleReport()); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	records := []memory.Record{
		{ID: "com.acme.OrderBean", Kind: inspect.KindClass, Tags: []string{"class", "session-bean"}},
		{ID: "com.acme.CustomerBean", Kind: inspect.KindClass, Tags: []string{"class", "entity-bean"}},
	}
	if err := store.PersistNodes(ctx, "orders", records); err != nil {
		t.Fatalf("PersistNodes: %v", err)
	}

	summary, err := store.Summary(ctx, "orders")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.SourcePath != "/repos/orders" {
		t.Fatalf("source path = %q", summary.SourcePath)
	}
	if summary.RunCount != 1 || summary.ConvergedCount != 1 {
		t.Fatalf("run stats = %d/%d, want 1/1", summary.RunCount, summary.ConvergedCount)
	}
	if summary.LastRun == nil || summary.LastRun.Passes != 3 {
		t.Fatalf("last run = %+v", summary.LastRun)
	}
	if summary.NodeCount != 2 {
		t.Fatalf("node count = %d, want 2", summary.NodeCount)
	}
	wantTags := map[string]int{"class": 2, "session-bean": 1, "entity-bean": 1}
	if diff := cmp.Diff(wantTags, summary.TagCounts); diff != "" {
		t.Fatalf("tag counts mismatch (-want +got):\n%s", diff)
	}
}
