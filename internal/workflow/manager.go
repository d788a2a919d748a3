// File path: internal/workflow/manager.go
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mbartelsen/beanshift/internal/common"
	graphmem "github.com/mbartelsen/beanshift/internal/graph/memory"
	"github.com/mbartelsen/beanshift/internal/inspect"
	"github.com/mbartelsen/beanshift/internal/llm"
	"github.com/mbartelsen/beanshift/internal/memory"
	"github.com/mbartelsen/beanshift/internal/scan"
	"github.com/mbartelsen/beanshift/internal/sqlite"
)

const maxLogEntries = 500

var (
	ErrWorkflowRunning    = errors.New("workflow already running")
	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrWorkflowNotRunning = errors.New("workflow not running")
	ErrArtifactNotFound   = errors.New("artifact not available")
	ErrArtifactInvalid    = errors.New("artifact invalid")
)

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
	StepError     StepStatus = "error"
)

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

type Step struct {
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	Message     string     `json:"message,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type State struct {
	Status         string            `json:"status"`
	Running        bool              `json:"running"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Steps          []Step            `json:"steps"`
	Error          string            `json:"error,omitempty"`
	Report         *inspect.Report   `json:"report,omitempty"`
	SpringArtifact string            `json:"spring_artifact,omitempty"`
	Advice         map[string]string `json:"advice,omitempty"`
	Request        Request           `json:"request"`
}

type session struct {
	state  State
	cancel context.CancelFunc
}

// Manager coordinates analysis workflows: one running session per project,
// with durable history and a shared activity log.
type Manager struct {
	store    *memory.Store
	catalog  *sqlite.Store
	graph    *graphmem.Service
	provider llm.Provider
	scanner  *scan.Scanner

	historyPath string
	historyMu   sync.Mutex
	history     map[string]State

	logMu sync.Mutex
	logs  []LogEntry

	workflowMu sync.Mutex
	workflows  map[string]*session

	artifactRoot string
}

func NewManager(store *memory.Store, catalog *sqlite.Store, graphSvc *graphmem.Service, provider llm.Provider, scanner *scan.Scanner) *Manager {
	if scanner == nil {
		scanner = scan.NewScanner()
	}
	mgr := &Manager{
		store:     store,
		catalog:   catalog,
		graph:     graphSvc,
		provider:  provider,
		scanner:   scanner,
		logs:      make([]LogEntry, 0, 32),
		workflows: make(map[string]*session),
		history:   make(map[string]State),
	}
	if store != nil {
		mgr.historyPath = filepath.Join(store.Root(), "projects_history.json")
		mgr.artifactRoot = filepath.Join(store.Root(), "artifacts")
	} else {
		mgr.artifactRoot = filepath.Join(os.TempDir(), "beanshift_artifacts")
	}
	if mgr.artifactRoot != "" {
		if err := os.MkdirAll(mgr.artifactRoot, 0o755); err != nil {
			common.Logger().Warn("workflow: create artifact root failed", "error", err, "path", mgr.artifactRoot)
			mgr.artifactRoot = ""
		}
	}
	if err := mgr.loadHistory(); err != nil {
		common.Logger().Warn("workflow: load history failed", "error", err)
	}
	return mgr
}

// AppendLog records an activity entry, keeping only the newest maxLogEntries,
// and mirrors it to the process logger at the matching level.
func (m *Manager) AppendLog(level, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	m.logMu.Lock()
	m.logs = append(m.logs, LogEntry{Time: time.Now().UTC(), Level: level, Message: text})
	if excess := len(m.logs) - maxLogEntries; excess > 0 {
		m.logs = m.logs[excess:]
	}
	m.logMu.Unlock()
	logger := common.Logger()
	switch level {
	case "error":
		logger.Error(text)
	case "warn":
		logger.Warn(text)
	case "debug":
		logger.Debug(text)
	default:
		logger.Info(text)
	}
}

func (m *Manager) Logs() []LogEntry {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	entries := make([]LogEntry, len(m.logs))
	copy(entries, m.logs)
	return entries
}

// Start launches a workflow in the background. Only one session per project
// can run at a time.
func (m *Manager) Start(req Request) error {
	normalized, err := normalizeRequest(req)
	if err != nil {
		return err
	}
	steps := buildWorkflowSteps(normalized)
	now := time.Now().UTC()
	state := State{
		Status:    "running",
		Running:   true,
		StartedAt: &now,
		Steps:     steps,
		Request:   normalized,
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.workflowMu.Lock()
	if existing, ok := m.workflows[normalized.ProjectID]; ok && existing.state.Running {
		m.workflowMu.Unlock()
		cancel()
		return ErrWorkflowRunning
	}
	m.workflows[normalized.ProjectID] = &session{state: state, cancel: cancel}
	m.workflowMu.Unlock()
	go m.runWorkflow(ctx, normalized.ProjectID, normalized)
	m.AppendLog("info", "Workflow started for project %s over %s", normalized.ProjectID, normalized.Repo)
	return nil
}

func (m *Manager) Stop(projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return fmt.Errorf("project id required")
	}
	m.workflowMu.Lock()
	session, ok := m.workflows[projectID]
	if !ok {
		m.workflowMu.Unlock()
		return ErrWorkflowNotFound
	}
	if !session.state.Running || session.cancel == nil {
		m.workflowMu.Unlock()
		return ErrWorkflowNotRunning
	}
	if session.state.Status != "canceling" {
		session.state.Status = "canceling"
	}
	cancel := session.cancel
	m.workflowMu.Unlock()
	cancel()
	m.AppendLog("info", "Cancellation requested for project %s", projectID)
	return nil
}

func (m *Manager) Status(projectID string) State {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return newState()
	}

	m.workflowMu.Lock()
	if session, ok := m.workflows[projectID]; ok {
		snapshot := cloneState(session.state)
		m.workflowMu.Unlock()
		return snapshot
	}
	m.workflowMu.Unlock()

	m.historyMu.Lock()
	if historyState, ok := m.history[projectID]; ok {
		snapshot := cloneState(historyState)
		m.historyMu.Unlock()
		return snapshot
	}
	m.historyMu.Unlock()

	result := newState()
	result.Request.ProjectID = projectID
	return result
}

// SpringArtifactPath resolves the generated scaffold directory for download,
// rejecting paths outside the artifact root.
func (m *Manager) SpringArtifactPath(projectID string) (string, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", fmt.Errorf("project id required")
	}
	state := m.Status(projectID)
	artifact := strings.TrimSpace(state.SpringArtifact)
	if artifact == "" {
		return "", ErrArtifactNotFound
	}
	return m.validateArtifactPath(artifact)
}

func (m *Manager) validateArtifactPath(path string) (string, error) {
	absPath, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("resolve artifact path: %w", err)
	}
	root := strings.TrimSpace(m.artifactRoot)
	if root != "" {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("resolve artifact root: %w", err)
		}
		rel, err := filepath.Rel(rootAbs, absPath)
		if err != nil {
			return "", fmt.Errorf("resolve artifact path: %w", err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return "", ErrArtifactInvalid
		}
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	return absPath, nil
}

func (m *Manager) ProjectStates() map[string]State {
	result := make(map[string]State)
	m.historyMu.Lock()
	for id, state := range m.history {
		result[id] = cloneState(state)
	}
	m.historyMu.Unlock()
	m.workflowMu.Lock()
	for id, session := range m.workflows {
		result[id] = cloneState(session.state)
	}
	m.workflowMu.Unlock()
	return result
}

func newState() State {
	return State{Status: "idle", Steps: []Step{}}
}

func cloneState(src State) State {
	clone := src
	if len(src.Steps) > 0 {
		clone.Steps = append([]Step(nil), src.Steps...)
	}
	if src.Report != nil {
		report := *src.Report
		if len(src.Report.Executions) > 0 {
			report.Executions = make(map[string]int, len(src.Report.Executions))
			for name, count := range src.Report.Executions {
				report.Executions[name] = count
			}
		}
		if len(src.Report.Failures) > 0 {
			report.Failures = append([]inspect.Failure(nil), src.Report.Failures...)
		}
		clone.Report = &report
	}
	if len(src.Advice) > 0 {
		clone.Advice = make(map[string]string, len(src.Advice))
		for class, answer := range src.Advice {
			clone.Advice[class] = answer
		}
	}
	return clone
}

func (m *Manager) loadHistory() error {
	if m.historyPath == "" {
		return nil
	}
	data, err := os.ReadFile(m.historyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var stored map[string]State
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	for id, state := range stored {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		snapshot := cloneState(state)
		if snapshot.Request.ProjectID == "" {
			snapshot.Request.ProjectID = trimmed
		}
		m.history[trimmed] = snapshot
	}
	return nil
}

// saveHistoryLocked writes the history map through a temp file and rename so
// a crash mid-write never corrupts the stored history. Callers hold historyMu.
func (m *Manager) saveHistoryLocked() error {
	if m.historyPath == "" {
		return nil
	}
	data, err := json.Marshal(m.history)
	if err != nil {
		return err
	}
	tmpPath := m.historyPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, m.historyPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (m *Manager) persistProjectState(projectID string, state State) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return
	}
	snapshot := cloneState(state)
	if snapshot.Request.ProjectID == "" {
		snapshot.Request.ProjectID = projectID
	}
	m.historyMu.Lock()
	if m.history == nil {
		m.history = make(map[string]State)
	}
	m.history[projectID] = snapshot
	if err := m.saveHistoryLocked(); err != nil {
		common.Logger().Warn("workflow: save history failed", "error", err)
	}
	m.historyMu.Unlock()
}
