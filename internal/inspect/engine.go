// File path: internal/inspect/engine.go
package inspect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mbartelsen/beanshift/internal/common"
	"github.com/mbartelsen/beanshift/internal/common/telemetry"
)

const defaultMaxPasses = 16

// Failure records one inspector error against one node. The pair is never
// retried, so each failure appears exactly once per run.
type Failure struct {
	Inspector string `json:"inspector"`
	NodeID    string `json:"node_id"`
	Message   string `json:"message"`
}

// Outcome is the trust level of a finished run. The three levels are
// materially different for consumers of the tag data and are deliberately
// not collapsed into a single success flag.
type Outcome string

const (
	OutcomeConverged             Outcome = "converged"
	OutcomeConvergedWithFailures Outcome = "converged-with-failures"
	OutcomeNotConverged          Outcome = "not-converged"
)

// Report summarizes a convergence run.
type Report struct {
	Passes     int            `json:"passes"`
	Converged  bool           `json:"converged"`
	Nodes      int            `json:"nodes"`
	Executions map[string]int `json:"executions"`
	Failures   []Failure      `json:"failures,omitempty"`
	Duration   time.Duration  `json:"duration"`
}

// Outcome reduces the report to its trust level.
func (r *Report) Outcome() Outcome {
	switch {
	case !r.Converged:
		return OutcomeNotConverged
	case len(r.Failures) > 0:
		return OutcomeConvergedWithFailures
	default:
		return OutcomeConverged
	}
}

// Engine repeatedly applies eligible inspectors to every node until a full
// pass changes nothing, or the pass ceiling is hit. Eligibility is decided
// from a snapshot taken at the start of each pass, so cross-inspector
// ordering is only ever expressed through tags across passes, never within
// one.
type Engine struct {
	store      *Store
	inspectors []Inspector
	resolver   *Resolver
	maxPasses  int
	workers    int
	logger     *slog.Logger

	validated bool
}

// Option customizes engine construction.
type Option func(*Engine)

// WithMaxPasses bounds pathological non-converging configurations.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// WithWorkers enables within-pass parallelism across disjoint nodes. Each
// node is owned by one goroutine for the whole pass; passes always join
// before the next begins.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger overrides the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine wires a store, the collector root tags and an explicit inspector
// list. There is no runtime discovery: the caller constructs the full set.
func NewEngine(store *Store, rootTags []string, inspectors []Inspector, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	descriptors := make([]Descriptor, 0, len(inspectors))
	for _, ins := range inspectors {
		descriptors = append(descriptors, ins.Descriptor())
	}
	eng := &Engine{
		store:      store,
		inspectors: inspectors,
		resolver:   NewResolver(rootTags, descriptors),
		maxPasses:  defaultMaxPasses,
		workers:    1,
		logger:     common.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(eng)
		}
	}
	return eng, nil
}

// Resolver exposes the dependency resolver for reporting layers.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Preflight validates the inspector configuration. Configuration errors are
// fatal to the batch: nothing expensive has happened yet.
func (e *Engine) Preflight() error {
	if err := e.resolver.Validate(); err != nil {
		return err
	}
	e.validated = true
	return nil
}

type workUnit struct {
	node      *Node
	inspector Inspector
	name      string
}

// Run executes passes until convergence or the pass ceiling.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	if !e.validated {
		if err := e.Preflight(); err != nil {
			return nil, err
		}
	}
	started := time.Now()
	report := &Report{Executions: make(map[string]int)}
	failed := make(map[string]struct{})

	for pass := 1; pass <= e.maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Passes = pass
		changed, err := e.runPass(ctx, pass, report, failed)
		if err != nil {
			return report, err
		}
		e.logger.Debug("inspect: pass finished", "pass", pass, "changed_nodes", changed)
		if changed == 0 {
			report.Converged = true
			break
		}
	}
	report.Nodes = e.store.Len()
	report.Duration = time.Since(started)
	if !report.Converged {
		e.logger.Warn("inspect: run did not converge within pass limit",
			"passes", report.Passes, "max_passes", e.maxPasses)
	}
	telemetry.RecordConvergence(report.Passes, report.Converged, len(report.Failures))
	return report, nil
}

// planPass snapshots eligibility for every node before anything executes.
// Tags written during the pass only influence the next one.
func (e *Engine) planPass(failed map[string]struct{}) [][]workUnit {
	var plan [][]workUnit
	for _, node := range e.store.All() {
		lastModified := node.lastModified
		var units []workUnit
		for _, ins := range e.inspectors {
			desc := ins.Descriptor()
			if !desc.AppliesTo(node.kind) {
				continue
			}
			if !node.HasTags(desc.Requires) {
				continue
			}
			if _, gone := failed[pairKey(desc.Name, node.id)]; gone {
				continue
			}
			if stamp, ran := node.execLog[desc.Name]; ran && stamp >= lastModified {
				continue
			}
			units = append(units, workUnit{node: node, inspector: ins, name: desc.Name})
		}
		if len(units) > 0 {
			plan = append(plan, units)
		}
	}
	return plan
}

// runPass executes one full sweep and returns the count of nodes that
// actually changed.
func (e *Engine) runPass(ctx context.Context, pass int, report *Report, failed map[string]struct{}) (int, error) {
	plan := e.planPass(failed)
	if len(plan) == 0 {
		return 0, nil
	}

	var mu sync.Mutex
	changedNodes := 0

	runNode := func(units []workUnit) {
		nodeChanged := false
		var execs []string
		var failures []Failure
		for _, unit := range units {
			if ctx.Err() != nil {
				break
			}
			stamp := e.store.Clock()
			eff := newEffects(e.store, unit.node, unit.inspector.Descriptor())
			err := unit.inspector.Inspect(ctx, unit.node, eff)
			if err != nil {
				failures = append(failures, Failure{Inspector: unit.name, NodeID: unit.node.id, Message: err.Error()})
				e.logger.Error("inspect: inspector failed",
					"inspector", unit.name, "node", unit.node.id, "pass", pass, "error", err)
				continue
			}
			e.store.recordExecution(unit.node, unit.name, stamp)
			execs = append(execs, unit.name)
			if eff.Changed() {
				nodeChanged = true
			}
		}
		mu.Lock()
		if nodeChanged {
			changedNodes++
		}
		for _, name := range execs {
			report.Executions[name]++
		}
		for _, failure := range failures {
			report.Failures = append(report.Failures, failure)
			failed[pairKey(failure.Inspector, failure.NodeID)] = struct{}{}
		}
		mu.Unlock()
		for _, name := range execs {
			telemetry.RecordInspectorRun(name)
		}
	}

	if e.workers <= 1 {
		for _, units := range plan {
			if err := ctx.Err(); err != nil {
				return changedNodes, err
			}
			runNode(units)
		}
		return changedNodes, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)
	for _, units := range plan {
		units := units
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			runNode(units)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return changedNodes, err
	}
	return changedNodes, nil
}

func pairKey(inspector, nodeID string) string {
	return inspector + "\x00" + nodeID
}
