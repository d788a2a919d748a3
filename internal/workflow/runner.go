// File path: internal/workflow/runner.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbartelsen/beanshift/internal/common/telemetry"
	"github.com/mbartelsen/beanshift/internal/generate"
	"github.com/mbartelsen/beanshift/internal/inspect"
	"github.com/mbartelsen/beanshift/internal/llm"
	"github.com/mbartelsen/beanshift/internal/memory"
	"github.com/mbartelsen/beanshift/internal/scan"
)

const (
	stepCollect  = "Collect sources"
	stepValidate = "Validate inspector configuration"
	stepConverge = "Converge analysis"
	stepPersist  = "Persist results"
	stepGraph    = "Refresh dependency graph"
	stepGenerate = "Generate Spring scaffold"
	stepAdvise   = "Produce migration advice"
)

const maxAdviceBeans = 10

func buildWorkflowSteps(req Request) []Step {
	names := []string{stepCollect, stepValidate, stepConverge, stepPersist, stepGraph}
	if req.Generate {
		names = append(names, stepGenerate)
	}
	if req.Advise {
		names = append(names, stepAdvise)
	}
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		steps = append(steps, Step{Name: name, Status: StepPending})
	}
	return steps
}

func (m *Manager) runWorkflow(ctx context.Context, projectID string, req Request) {
	if m.workflowCanceled(ctx, projectID) {
		return
	}
	step := 0

	m.setWorkflowStep(projectID, step, StepRunning, "Walking repository and collecting artifacts")
	store := inspect.NewStore()
	created, err := m.scanner.Scan(ctx, req.Repo, store)
	if err != nil {
		m.stepFailed(ctx, projectID, step, err)
		return
	}
	m.setWorkflowStep(projectID, step, StepCompleted, fmt.Sprintf("Collected %d nodes", created))
	if m.workflowCanceled(ctx, projectID) {
		return
	}
	step++

	m.setWorkflowStep(projectID, step, StepRunning, "Checking inspector contracts")
	var opts []inspect.Option
	if req.MaxPasses > 0 {
		opts = append(opts, inspect.WithMaxPasses(req.MaxPasses))
	}
	if req.Workers > 0 {
		opts = append(opts, inspect.WithWorkers(req.Workers))
	}
	engine, err := inspect.NewEngine(store, m.scanner.RootTags(), scan.DefaultInspectors(), opts...)
	if err != nil {
		m.stepFailed(ctx, projectID, step, err)
		return
	}
	if err := engine.Preflight(); err != nil {
		m.stepFailed(ctx, projectID, step, err)
		return
	}
	m.setWorkflowStep(projectID, step, StepCompleted, "Inspector configuration valid")
	if m.workflowCanceled(ctx, projectID) {
		return
	}
	step++

	m.setWorkflowStep(projectID, step, StepRunning, "Running convergence passes")
	report, err := engine.Run(ctx)
	if err != nil {
		m.stepFailed(ctx, projectID, step, err)
		return
	}
	m.setWorkflowReport(projectID, report)
	m.setWorkflowStep(projectID, step, StepCompleted,
		fmt.Sprintf("Outcome %s after %d passes (%d failures)", report.Outcome(), report.Passes, len(report.Failures)))
	if m.workflowCanceled(ctx, projectID) {
		return
	}
	step++

	m.setWorkflowStep(projectID, step, StepRunning, "Persisting snapshot and catalog rows")
	records := memory.Snapshot(store)
	if err := m.persistResults(ctx, projectID, req, records, report); err != nil {
		m.stepFailed(ctx, projectID, step, err)
		return
	}
	m.setWorkflowStep(projectID, step, StepCompleted, fmt.Sprintf("Persisted %d nodes", len(records)))
	if m.workflowCanceled(ctx, projectID) {
		return
	}
	step++

	if m.graph != nil {
		m.setWorkflowStep(projectID, step, StepRunning, "Rebuilding bean dependency graph")
		m.graph.Refresh(store.All())
		m.setWorkflowStep(projectID, step, StepCompleted, "Graph refreshed")
	} else {
		m.setWorkflowStep(projectID, step, StepSkipped, "No graph service configured")
	}
	if m.workflowCanceled(ctx, projectID) {
		return
	}
	step++

	plans := buildBeanPlans(store.All())

	if req.Generate {
		m.setWorkflowStep(projectID, step, StepRunning, "Generating Spring Boot skeleton")
		artifact, err := m.generateScaffold(ctx, projectID, req, plans)
		if err != nil {
			m.stepFailed(ctx, projectID, step, err)
			return
		}
		m.setWorkflowArtifact(projectID, artifact)
		m.setWorkflowStep(projectID, step, StepCompleted, fmt.Sprintf("Scaffold written to %s", artifact))
		if m.workflowCanceled(ctx, projectID) {
			return
		}
		step++
	}

	if req.Advise {
		m.setWorkflowStep(projectID, step, StepRunning, "Requesting migration advice")
		count, err := m.adviseBeans(ctx, projectID, plans)
		if err != nil {
			m.stepFailed(ctx, projectID, step, err)
			return
		}
		m.setWorkflowStep(projectID, step, StepCompleted, fmt.Sprintf("Advice produced for %d beans", count))
		if m.workflowCanceled(ctx, projectID) {
			return
		}
	}

	m.completeWorkflow(projectID)
}

func (m *Manager) persistResults(ctx context.Context, projectID string, req Request, records []memory.Record, report *inspect.Report) error {
	if m.store != nil {
		if err := m.store.Replace(ctx, projectID, records); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	if m.catalog != nil {
		if err := m.catalog.RegisterProject(ctx, projectID, req.Repo); err != nil {
			return err
		}
		if _, err := m.catalog.RecordRun(ctx, projectID, report); err != nil {
			return err
		}
		if err := m.catalog.PersistNodes(ctx, projectID, records); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) generateScaffold(ctx context.Context, projectID string, req Request, plans []generate.BeanPlan) (string, error) {
	if m.artifactRoot == "" {
		return "", errors.New("artifact root unavailable")
	}
	generator := generate.NewSpringGenerator(m.AppendLog)
	// a fresh id per generation keeps repeated runs from clobbering each other
	target := filepath.Join(m.artifactRoot, fmt.Sprintf("%s-spring-%s", projectID, uuid.NewString()))
	return generator.Generate(ctx, generate.Options{
		ProjectID:   projectID,
		TargetDir:   target,
		PackageName: req.PackageName,
		ArtifactID:  req.ArtifactID,
	}, plans)
}

func (m *Manager) adviseBeans(ctx context.Context, projectID string, plans []generate.BeanPlan) (int, error) {
	if m.provider == nil {
		return 0, errors.New("no llm provider configured")
	}
	advisor := llm.NewAdvisor(m.provider)
	advice := make(map[string]string)
	limit := len(plans)
	if limit > maxAdviceBeans {
		limit = maxAdviceBeans
		m.AppendLog("warn", "Limiting advice to the first %d of %d beans", maxAdviceBeans, len(plans))
	}
	for _, plan := range plans[:limit] {
		if err := ctx.Err(); err != nil {
			return len(advice), err
		}
		answer, err := advisor.Advise(ctx, llm.BeanContext{
			Class:        plan.Class,
			Kind:         plan.Kind,
			SpringTarget: plan.Target,
			Dependencies: plan.Dependencies,
			Resources:    plan.Resources,
			Remote:       plan.Remote,
		})
		if err != nil {
			m.AppendLog("warn", "Advice failed for %s: %v", plan.Class, err)
			continue
		}
		advice[plan.Class] = answer
	}
	m.setWorkflowAdvice(projectID, advice)
	return len(advice), nil
}

// buildBeanPlans folds class and descriptor nodes into per-bean migration
// plans, joining descriptor refs back to classes through ejb-name mappings.
func buildBeanPlans(nodes []*inspect.Node) []generate.BeanPlan {
	nameToClass := make(map[string]string)
	for _, node := range nodes {
		if node.Kind() != inspect.KindFile || !node.HasTag(scan.TagEJBDescriptor) {
			continue
		}
		if classes, ok := node.Property(scan.PropBeanClasses); ok {
			if record, ok := classes.Record(); ok {
				for name, class := range record {
					if class != "" {
						nameToClass[name] = class
					}
				}
			}
		}
	}
	resolve := func(ref string) string {
		ref = strings.TrimSpace(ref)
		if class, ok := nameToClass[ref]; ok {
			return class
		}
		return ref
	}

	deps := make(map[string][]string)
	resources := make(map[string][]string)
	for _, node := range nodes {
		if node.Kind() != inspect.KindFile || !node.HasTag(scan.TagEJBDescriptor) {
			continue
		}
		if refs, ok := node.Property(scan.PropEJBRefs); ok {
			if list, ok := refs.List(); ok {
				for _, edge := range list {
					if from, to, ok := splitPlanRef(edge); ok {
						fromID := resolve(from)
						deps[fromID] = append(deps[fromID], resolve(to))
					}
				}
			}
		}
		if refs, ok := node.Property(scan.PropResourceRefs); ok {
			if list, ok := refs.List(); ok {
				for _, edge := range list {
					if from, resource, ok := splitPlanRef(edge); ok {
						fromID := resolve(from)
						resources[fromID] = append(resources[fromID], resource)
					}
				}
			}
		}
	}

	remotePrefixes := make(map[string]struct{})
	for _, node := range nodes {
		if node.Kind() != inspect.KindClass {
			continue
		}
		if node.HasTag(scan.TagEJBHome) || node.HasTag(scan.TagEJBRemote) {
			remotePrefixes[remotingKey(node.PropertyString(scan.PropPackage), node.PropertyString(scan.PropClassName))] = struct{}{}
		}
	}

	var plans []generate.BeanPlan
	for _, node := range nodes {
		if node.Kind() != inspect.KindClass {
			continue
		}
		kind := node.PropertyString(scan.PropBeanKind)
		if kind == "" {
			continue
		}
		class := node.ID()
		pkg := node.PropertyString(scan.PropPackage)
		name := node.PropertyString(scan.PropClassName)
		_, remote := remotePrefixes[remotingKey(pkg, name)]
		plans = append(plans, generate.BeanPlan{
			Class:        class,
			Package:      pkg,
			Kind:         kind,
			Target:       node.PropertyString(scan.PropSpringTarget),
			Remote:       remote,
			Dependencies: dedupeSorted(deps[class]),
			Resources:    dedupeSorted(resources[class]),
		})
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Class < plans[j].Class })
	return plans
}

// remotingKey normalizes bean and interface names to their shared stem, so
// CustomerBean matches CustomerHome and Customer.
func remotingKey(pkg, name string) string {
	for _, suffix := range []string{"Bean", "Home", "LocalHome", "Local", "Remote", "EJB"} {
		if trimmed := strings.TrimSuffix(name, suffix); trimmed != name && trimmed != "" {
			name = trimmed
			break
		}
	}
	return pkg + "." + name
}

func splitPlanRef(edge string) (string, string, bool) {
	parts := strings.SplitN(edge, "->", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

func dedupeSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) stepFailed(ctx context.Context, projectID string, index int, err error) {
	if isCanceledErr(err) || ctx.Err() != nil {
		m.markWorkflowCanceled(projectID, err)
		return
	}
	m.failWorkflow(projectID, index, err)
}

func (m *Manager) setWorkflowStep(projectID string, index int, status StepStatus, message string) {
	m.workflowMu.Lock()
	defer m.workflowMu.Unlock()
	session, ok := m.workflows[projectID]
	if !ok {
		return
	}
	if session.state.Status == "canceled" {
		return
	}
	if index < 0 || index >= len(session.state.Steps) {
		return
	}
	now := time.Now().UTC()
	step := &session.state.Steps[index]
	switch status {
	case StepRunning:
		step.StartedAt = &now
	case StepCompleted, StepSkipped, StepError:
		if step.StartedAt == nil {
			step.StartedAt = &now
		}
		step.CompletedAt = &now
	}
	step.Status = status
	if message != "" {
		step.Message = message
	}
}

func (m *Manager) setWorkflowReport(projectID string, report *inspect.Report) {
	m.workflowMu.Lock()
	defer m.workflowMu.Unlock()
	if session, ok := m.workflows[projectID]; ok {
		session.state.Report = report
	}
}

func (m *Manager) setWorkflowArtifact(projectID, artifact string) {
	m.workflowMu.Lock()
	defer m.workflowMu.Unlock()
	if session, ok := m.workflows[projectID]; ok {
		session.state.SpringArtifact = artifact
	}
}

func (m *Manager) setWorkflowAdvice(projectID string, advice map[string]string) {
	m.workflowMu.Lock()
	defer m.workflowMu.Unlock()
	if session, ok := m.workflows[projectID]; ok {
		session.state.Advice = advice
	}
}

func (m *Manager) failWorkflow(projectID string, index int, err error) {
	m.AppendLog("error", "Workflow failed for project %s: %v", projectID, err)
	m.setWorkflowStep(projectID, index, StepError, err.Error())
	m.workflowMu.Lock()
	session, ok := m.workflows[projectID]
	if !ok {
		m.workflowMu.Unlock()
		return
	}
	if session.state.Status == "canceled" {
		m.workflowMu.Unlock()
		return
	}
	now := time.Now().UTC()
	session.state.Status = "error"
	session.state.Running = false
	session.state.CompletedAt = &now
	if err != nil {
		session.state.Error = err.Error()
	} else {
		session.state.Error = ""
	}
	session.cancel = nil
	snapshot := cloneState(session.state)
	m.workflowMu.Unlock()
	telemetry.RecordWorkflow("error")
	m.persistProjectState(projectID, snapshot)
}

func (m *Manager) completeWorkflow(projectID string) {
	m.AppendLog("info", "Workflow completed successfully for project %s", projectID)
	m.workflowMu.Lock()
	session, ok := m.workflows[projectID]
	if !ok {
		m.workflowMu.Unlock()
		return
	}
	if session.state.Status == "canceled" {
		m.workflowMu.Unlock()
		return
	}
	now := time.Now().UTC()
	session.state.Status = "completed"
	session.state.Running = false
	session.state.CompletedAt = &now
	session.state.Error = ""
	session.cancel = nil
	snapshot := cloneState(session.state)
	m.workflowMu.Unlock()
	telemetry.RecordWorkflow("completed")
	m.persistProjectState(projectID, snapshot)
}

func (m *Manager) workflowCanceled(ctx context.Context, projectID string) bool {
	select {
	case <-ctx.Done():
		m.markWorkflowCanceled(projectID, ctx.Err())
		return true
	default:
		return false
	}
}

func (m *Manager) markWorkflowCanceled(projectID string, cause error) {
	m.workflowMu.Lock()
	session, ok := m.workflows[projectID]
	if !ok {
		m.workflowMu.Unlock()
		return
	}
	if session.state.Status == "canceled" {
		m.workflowMu.Unlock()
		return
	}
	now := time.Now().UTC()
	session.state.Status = "canceled"
	session.state.Running = false
	session.state.CompletedAt = &now
	if cause != nil && !isCanceledErr(cause) {
		session.state.Error = cause.Error()
	} else {
		session.state.Error = ""
	}
	for i := range session.state.Steps {
		step := &session.state.Steps[i]
		if step.Status == StepRunning {
			if step.StartedAt == nil {
				step.StartedAt = &now
			}
			step.CompletedAt = &now
			step.Status = StepError
			if step.Message == "" {
				step.Message = "Canceled"
			}
			break
		}
	}
	cancel := session.cancel
	session.cancel = nil
	snapshot := cloneState(session.state)
	m.workflowMu.Unlock()
	if cancel != nil {
		cancel()
	}
	if cause != nil && !isCanceledErr(cause) {
		m.AppendLog("error", "Workflow canceled for project %s: %v", projectID, cause)
	} else {
		m.AppendLog("info", "Workflow canceled for project %s", projectID)
	}
	telemetry.RecordWorkflow("canceled")
	m.persistProjectState(projectID, snapshot)
}

func isCanceledErr(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
