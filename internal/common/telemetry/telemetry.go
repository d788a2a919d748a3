// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"expvar"
	"sync"
	"time"
)

var (
	initOnce sync.Once

	convergenceRuns      *expvar.Int
	convergencePasses    *expvar.Int
	convergenceFailures  *expvar.Int
	nonConvergedRuns     *expvar.Int
	inspectorRunsByName  *expvar.Map
	workflowRunsByStatus *expvar.Map
	scanArtifactsTotal   *expvar.Int
	scanNodesTotal       *expvar.Int
	adviceRequests       *expvar.Int
	adviceLatencyMS      *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		convergenceRuns = expvar.NewInt("beanshift_convergence_runs_total")
		convergencePasses = expvar.NewInt("beanshift_convergence_passes_total")
		convergenceFailures = expvar.NewInt("beanshift_inspector_failures_total")
		nonConvergedRuns = expvar.NewInt("beanshift_non_converged_runs_total")
		inspectorRunsByName = expvar.NewMap("beanshift_inspector_runs")
		workflowRunsByStatus = expvar.NewMap("beanshift_workflow_runs")
		scanArtifactsTotal = expvar.NewInt("beanshift_scan_artifacts_total")
		scanNodesTotal = expvar.NewInt("beanshift_scan_nodes_total")
		adviceRequests = expvar.NewInt("beanshift_advice_requests_total")
		adviceLatencyMS = expvar.NewInt("beanshift_advice_latency_ms")
	})
}

// RecordConvergence accumulates run-level engine counters.
func RecordConvergence(passes int, converged bool, failures int) {
	ensureInit()
	convergenceRuns.Add(1)
	convergencePasses.Add(int64(passes))
	convergenceFailures.Add(int64(failures))
	if !converged {
		nonConvergedRuns.Add(1)
	}
}

// RecordInspectorRun counts one execution of the named inspector.
func RecordInspectorRun(name string) {
	ensureInit()
	inspectorRunsByName.Add(name, 1)
}

// RecordScan counts artifacts visited and nodes created during collection.
func RecordScan(artifacts, nodes int) {
	ensureInit()
	scanArtifactsTotal.Add(int64(artifacts))
	scanNodesTotal.Add(int64(nodes))
}

// RecordWorkflow counts one finished workflow by terminal status.
func RecordWorkflow(status string) {
	ensureInit()
	if status == "" {
		status = "unknown"
	}
	workflowRunsByStatus.Add(status, 1)
}

// RecordAdvice tracks LLM advice calls and their latency.
func RecordAdvice(elapsed time.Duration) {
	ensureInit()
	adviceRequests.Add(1)
	adviceLatencyMS.Add(elapsed.Milliseconds())
}
