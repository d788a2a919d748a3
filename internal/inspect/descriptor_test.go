// File path: internal/inspect/descriptor_test.go
package inspect

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEffectsRejectUndeclaredWrites(t *testing.T) {
	store := NewStore()
	node := NewNode("a", KindClass)
	if err := store.Add(node); err != nil {
		t.Fatalf("Add: %v", err)
	}
	desc := Descriptor{Name: "narrow", Produces: []string{"allowed"}, Properties: []string{"score"}}
	eff := newEffects(store, node, desc)

	if err := eff.SetTag("forbidden"); !errors.Is(err, ErrUndeclaredTag) {
		t.Fatalf("SetTag undeclared = %v, want ErrUndeclaredTag", err)
	}
	if err := eff.SetTagAnd("forbidden", true); !errors.Is(err, ErrUndeclaredTag) {
		t.Fatalf("SetTagAnd undeclared = %v, want ErrUndeclaredTag", err)
	}
	if err := eff.SetProperty("grade", StringValue("a")); !errors.Is(err, ErrUndeclaredProperty) {
		t.Fatalf("SetProperty undeclared = %v, want ErrUndeclaredProperty", err)
	}
	if eff.Changed() {
		t.Fatal("rejected writes must not count as changes")
	}
	if node.HasTag("forbidden") {
		t.Fatal("undeclared tag leaked onto the node")
	}

	if err := eff.SetTag("allowed"); err != nil {
		t.Fatalf("SetTag declared: %v", err)
	}
	if err := eff.SetProperty("score", NumberValue(3)); err != nil {
		t.Fatalf("SetProperty declared: %v", err)
	}
	if !eff.Changed() {
		t.Fatal("declared writes must count as changes")
	}
}

func TestEngineRecordsUndeclaredWriteAsFailure(t *testing.T) {
	store := seededStore(t, "a")
	rogue := stubInspector{
		desc: Descriptor{Name: "rogue", Requires: []string{"root"}, Produces: []string{"declared"}},
		fn: func(_ context.Context, _ *Node, eff *Effects) error {
			return eff.SetTag("undeclared")
		},
	}
	engine, err := NewEngine(store, []string{"root"}, []Inspector{rogue})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("Failures = %+v, want exactly one", report.Failures)
	}
	failure := report.Failures[0]
	if failure.Inspector != "rogue" || failure.NodeID != "a" {
		t.Fatalf("failure attributed to %s/%s", failure.Inspector, failure.NodeID)
	}
	if !strings.Contains(failure.Message, ErrUndeclaredTag.Error()) {
		t.Fatalf("failure message %q does not carry the contract violation", failure.Message)
	}
	if report.Outcome() != OutcomeConvergedWithFailures {
		t.Fatalf("Outcome = %s, want %s", report.Outcome(), OutcomeConvergedWithFailures)
	}
	node, _ := store.Get("a")
	if node.HasTag("undeclared") {
		t.Fatal("undeclared tag leaked onto the node")
	}
}
