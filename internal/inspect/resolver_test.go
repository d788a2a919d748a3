// File path: internal/inspect/resolver_test.go
package inspect

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func preflightErrors(t *testing.T, err error) []ConfigError {
	t.Helper()
	var pre *PreflightError
	if !errors.As(err, &pre) {
		t.Fatalf("error %v is not a *PreflightError", err)
	}
	return pre.Errors
}

func TestResolverValidatesCleanConfiguration(t *testing.T) {
	r := NewResolver([]string{"java-source"}, []Descriptor{
		{Name: "classifier", Requires: []string{"java-source"}, Produces: []string{"session-bean"}},
		{Name: "grader", Requires: []string{"session-bean"}, Produces: []string{"candidate"}},
	})
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestResolverFlagsDuplicateNames(t *testing.T) {
	r := NewResolver([]string{"java-source"}, []Descriptor{
		{Name: "classifier", Requires: []string{"java-source"}, Produces: []string{"session-bean"}},
		{Name: "classifier", Requires: []string{"java-source"}, Produces: []string{"entity-bean"}},
	})
	errs := preflightErrors(t, r.Validate())
	if len(errs) != 1 || errs[0].Kind != ConfigDuplicateInspector || errs[0].Inspector != "classifier" {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestResolverFlagsDeadInspector(t *testing.T) {
	r := NewResolver([]string{"java-source"}, []Descriptor{
		{Name: "grader", Requires: []string{"session-bean"}, Produces: []string{"candidate"}},
	})
	errs := preflightErrors(t, r.Validate())
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %+v", len(errs), errs)
	}
	if errs[0].Kind != ConfigDeadInspector || errs[0].Inspector != "grader" || errs[0].Tag != "session-bean" {
		t.Fatalf("unexpected error: %+v", errs[0])
	}
}

func TestResolverDetectsCycle(t *testing.T) {
	descriptors := []Descriptor{
		{Name: "first", Requires: []string{"t2"}, Produces: []string{"t1"}},
		{Name: "second", Requires: []string{"t1"}, Produces: []string{"t2"}},
	}

	r := NewResolver(nil, descriptors)
	errs := preflightErrors(t, r.Validate())
	var cycles int
	for _, cfgErr := range errs {
		if cfgErr.Kind == ConfigDependencyCycle {
			cycles++
			if len(cfgErr.Cycle) < 3 {
				t.Fatalf("cycle too short: %v", cfgErr.Cycle)
			}
		}
	}
	if cycles != 1 {
		t.Fatalf("got %d cycle errors, want 1: %+v", cycles, errs)
	}

	// A collector seeding t1 breaks the chain: second is satisfiable from a
	// root and first depends on second without closing a loop.
	r = NewResolver([]string{"t1"}, descriptors)
	if err := r.Validate(); err != nil {
		t.Fatalf("root tag did not break the cycle: %v", err)
	}
}

func TestResolverAcceptsCycleWithAlternateProducer(t *testing.T) {
	// first and second form a production loop over t1/t2, but seeder produces
	// t1 unconditionally: seeder fires pass one, second pass two, first pass
	// three. The configuration converges, so preflight must pass it.
	r := NewResolver(nil, []Descriptor{
		{Name: "first", Requires: []string{"t2"}, Produces: []string{"t1"}},
		{Name: "second", Requires: []string{"t1"}, Produces: []string{"t2"}},
		{Name: "seeder", Produces: []string{"t1"}},
	})
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate rejected a convergent configuration: %v", err)
	}
}

func TestResolverStillFlagsCycleBesideUnrelatedProducer(t *testing.T) {
	// The extra producer feeds a different tag, so the t1/t2 deadlock stays
	// unsatisfiable and must still be reported.
	r := NewResolver(nil, []Descriptor{
		{Name: "first", Requires: []string{"t2"}, Produces: []string{"t1"}},
		{Name: "second", Requires: []string{"t1"}, Produces: []string{"t2"}},
		{Name: "seeder", Produces: []string{"t3"}},
	})
	errs := preflightErrors(t, r.Validate())
	var cycles int
	for _, cfgErr := range errs {
		if cfgErr.Kind == ConfigDependencyCycle {
			cycles++
		}
	}
	if cycles != 1 {
		t.Fatalf("got %d cycle errors, want 1: %+v", cycles, errs)
	}
}

func TestResolverTransitiveDependencies(t *testing.T) {
	r := NewResolver([]string{"java-source"}, []Descriptor{
		{Name: "classifier", Requires: []string{"java-source"}, Produces: []string{"session-bean"}},
		{Name: "grader", Requires: []string{"session-bean"}, Produces: []string{"candidate"}},
		{Name: "reporter", Requires: []string{"candidate", "session-bean"}, Produces: []string{"reported"}},
	})
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	deps, err := r.Dependencies("reporter")
	if err != nil {
		t.Fatalf("Dependencies: %v", err)
	}
	want := []string{"candidate", "java-source", "session-bean"}
	if diff := cmp.Diff(want, deps); diff != "" {
		t.Fatalf("dependency mismatch (-want +got):\n%s", diff)
	}

	// Memoized results must not alias internal state.
	deps[0] = "mutated"
	again, err := r.Dependencies("reporter")
	if err != nil {
		t.Fatalf("Dependencies (cached): %v", err)
	}
	if diff := cmp.Diff(want, again); diff != "" {
		t.Fatalf("cached dependency mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.Dependencies("missing"); err == nil {
		t.Fatal("Dependencies for unknown inspector succeeded")
	}
}
