// File path: internal/inspect/engine_test.go
package inspect

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubInspector struct {
	desc Descriptor
	fn   func(ctx context.Context, node *Node, eff *Effects) error
}

func (s stubInspector) Descriptor() Descriptor { return s.desc }

func (s stubInspector) Inspect(ctx context.Context, node *Node, eff *Effects) error {
	return s.fn(ctx, node, eff)
}

func tagger(name, requires, produces string) Inspector {
	return stubInspector{
		desc: Descriptor{Name: name, Requires: []string{requires}, Produces: []string{produces}},
		fn: func(_ context.Context, _ *Node, eff *Effects) error {
			return eff.SetTag(produces)
		},
	}
}

func seededStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	store := NewStore()
	for _, id := range ids {
		if err := store.Add(NewNode(id, KindClass).SeedTag("root")); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}
	return store
}

func TestEngineSingleInspectorConvergesInTwoPasses(t *testing.T) {
	store := seededStore(t, "a")
	engine, err := NewEngine(store, []string{"root"}, []Inspector{tagger("mark", "root", "marked")})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Converged || report.Passes != 2 {
		t.Fatalf("Passes = %d, Converged = %v, want 2/true", report.Passes, report.Converged)
	}
	if report.Executions["mark"] != 2 {
		t.Fatalf("Executions[mark] = %d, want 2", report.Executions["mark"])
	}
	if report.Outcome() != OutcomeConverged {
		t.Fatalf("Outcome = %s, want %s", report.Outcome(), OutcomeConverged)
	}
	node, _ := store.Get("a")
	if !node.HasTag("marked") {
		t.Fatal("tag not applied")
	}
}

func TestEngineChainedInspectorsConvergeInThreePasses(t *testing.T) {
	store := seededStore(t, "a")
	engine, err := NewEngine(store, []string{"root"}, []Inspector{
		tagger("first", "root", "t1"),
		tagger("second", "t1", "t2"),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Converged || report.Passes != 3 {
		t.Fatalf("Passes = %d, Converged = %v, want 3/true", report.Passes, report.Converged)
	}
	node, _ := store.Get("a")
	if !node.HasTags([]string{"t1", "t2"}) {
		t.Fatalf("tags = %v, want t1 and t2", node.Tags())
	}
}

func TestEnginePreflightRejectsDeadInspector(t *testing.T) {
	store := seededStore(t, "a")
	engine, err := NewEngine(store, []string{"root"}, []Inspector{tagger("orphan", "never-produced", "t1")})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	var pre *PreflightError
	if err := engine.Preflight(); !errors.As(err, &pre) {
		t.Fatalf("Preflight error = %v, want *PreflightError", err)
	}
	// Run without an explicit Preflight must hit the same validation.
	if _, err := engine.Run(context.Background()); !errors.As(err, &pre) {
		t.Fatalf("Run error = %v, want *PreflightError", err)
	}
}

func TestEngineFailureIsIsolatedAndRecordedOnce(t *testing.T) {
	store := seededStore(t, "a")
	failing := stubInspector{
		desc: Descriptor{Name: "broken", Requires: []string{"root"}, Produces: []string{"never"}},
		fn: func(context.Context, *Node, *Effects) error {
			return fmt.Errorf("parse exploded")
		},
	}
	engine, err := NewEngine(store, []string{"root"}, []Inspector{
		failing,
		tagger("mark", "root", "marked"),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Converged || report.Passes != 2 {
		t.Fatalf("Passes = %d, Converged = %v, want 2/true", report.Passes, report.Converged)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("Failures = %+v, want exactly one", report.Failures)
	}
	got := report.Failures[0]
	if got.Inspector != "broken" || got.NodeID != "a" || got.Message != "parse exploded" {
		t.Fatalf("unexpected failure record: %+v", got)
	}
	if report.Outcome() != OutcomeConvergedWithFailures {
		t.Fatalf("Outcome = %s, want %s", report.Outcome(), OutcomeConvergedWithFailures)
	}
	node, _ := store.Get("a")
	if !node.HasTag("marked") {
		t.Fatal("healthy inspector was starved by the failing one")
	}
}

func TestEngineOnlyFailingInspectorConvergesFirstPass(t *testing.T) {
	store := seededStore(t, "a")
	failing := stubInspector{
		desc: Descriptor{Name: "broken", Requires: []string{"root"}, Produces: []string{"never"}},
		fn: func(context.Context, *Node, *Effects) error {
			return fmt.Errorf("boom")
		},
	}
	engine, err := NewEngine(store, []string{"root"}, []Inspector{failing})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A failed execution is not a change, so the very first pass settles.
	if !report.Converged || report.Passes != 1 {
		t.Fatalf("Passes = %d, Converged = %v, want 1/true", report.Passes, report.Converged)
	}
	if report.Outcome() != OutcomeConvergedWithFailures || len(report.Failures) != 1 {
		t.Fatalf("Outcome = %s, Failures = %+v", report.Outcome(), report.Failures)
	}
}

func TestEngineHitsPassCeilingOnOscillation(t *testing.T) {
	store := seededStore(t, "a")
	flipper := stubInspector{
		desc: Descriptor{Name: "flipper", Requires: []string{"root"}, Properties: []string{"state"}},
		fn: func(_ context.Context, node *Node, eff *Effects) error {
			next := "on"
			if node.PropertyString("state") == "on" {
				next = "off"
			}
			return eff.SetProperty("state", StringValue(next))
		},
	}
	engine, err := NewEngine(store, []string{"root"}, []Inspector{flipper}, WithMaxPasses(5))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Converged || report.Passes != 5 {
		t.Fatalf("Passes = %d, Converged = %v, want 5/false", report.Passes, report.Converged)
	}
	if report.Outcome() != OutcomeNotConverged {
		t.Fatalf("Outcome = %s, want %s", report.Outcome(), OutcomeNotConverged)
	}
}

func TestEngineSecondRunIsIdle(t *testing.T) {
	store := seededStore(t, "a", "b")
	inspectors := []Inspector{tagger("mark", "root", "marked")}
	engine, err := NewEngine(store, []string{"root"}, inspectors)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	again, err := NewEngine(store, []string{"root"}, inspectors)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report, err := again.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !report.Converged || report.Passes != 1 {
		t.Fatalf("Passes = %d, Converged = %v, want 1/true", report.Passes, report.Converged)
	}
	if len(report.Executions) != 0 {
		t.Fatalf("second run executed inspectors: %v", report.Executions)
	}
}

func TestEngineRefiresWhenAnotherInspectorModifiesNode(t *testing.T) {
	// watcher runs before writer in pass order but also after it in later
	// passes: every writer change must make watcher stale again.
	store := seededStore(t, "a")
	watcherRuns := 0
	watcher := stubInspector{
		desc: Descriptor{Name: "a-watcher", Requires: []string{"root"}},
		fn: func(context.Context, *Node, *Effects) error {
			watcherRuns++
			return nil
		},
	}
	engine, err := NewEngine(store, []string{"root"}, []Inspector{
		watcher,
		tagger("b-writer", "root", "written"),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Converged {
		t.Fatal("run did not converge")
	}
	// Pass 1: watcher runs, then writer changes the node behind its stamp.
	// Pass 2: both are stale again, both run, nothing changes.
	if watcherRuns != 2 {
		t.Fatalf("watcher ran %d times, want 2", watcherRuns)
	}
}

func TestEngineParallelMatchesSequential(t *testing.T) {
	build := func(workers int) map[string][]string {
		store := NewStore()
		for i := 0; i < 12; i++ {
			node := NewNode(fmt.Sprintf("node-%02d", i), KindClass).SeedTag("root")
			if i%3 == 0 {
				node.SeedTag("session")
			}
			if err := store.Add(node); err != nil {
				t.Fatalf("Add: %v", err)
			}
		}
		inspectors := []Inspector{
			tagger("first", "root", "t1"),
			tagger("second", "t1", "t2"),
			tagger("session-grade", "session", "candidate"),
		}
		engine, err := NewEngine(store, []string{"root", "session"}, inspectors, WithWorkers(workers))
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		report, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("Run (workers=%d): %v", workers, err)
		}
		if !report.Converged {
			t.Fatalf("run with %d workers did not converge", workers)
		}
		out := make(map[string][]string)
		for _, node := range store.All() {
			out[node.ID()] = node.Tags()
		}
		return out
	}

	sequential := build(1)
	parallel := build(4)
	if diff := cmp.Diff(sequential, parallel); diff != "" {
		t.Fatalf("parallel run diverged from sequential (-seq +par):\n%s", diff)
	}
}

func TestEngineRespectsContextCancellation(t *testing.T) {
	store := seededStore(t, "a")
	engine, err := NewEngine(store, []string{"root"}, []Inspector{tagger("mark", "root", "marked")})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Preflight(); err != nil {
		t.Fatalf("Preflight: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}
