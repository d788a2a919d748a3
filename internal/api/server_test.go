// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbartelsen/beanshift/internal/data/orchestrator"
	"github.com/mbartelsen/beanshift/internal/graph"
	"github.com/mbartelsen/beanshift/internal/llm/providers"
	"github.com/mbartelsen/beanshift/internal/workflow"
)

const apiBeanSource = `package com.acme.orders;

import javax.ejb.SessionBean;
import javax.ejb.SessionContext;

public class OrderBean implements SessionBean {
    public void setSessionContext(SessionContext ctx) {}
}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	orch, err := orchestrator.New(context.Background(), orchestrator.Config{
		MemoryPath: filepath.Join(root, "snapshots"),
		SQLitePath: filepath.Join(root, "catalog.db"),
	}, orchestrator.WithProvider(providers.NewLocalProvider()))
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(func() { orch.Close() })

	srv, err := NewServer(orch, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func writeAPIRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	srcDir := filepath.Join(repo, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "OrderBean.java"), []byte(apiBeanSource), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return repo
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestDebugVarsExposed(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/debug/vars", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("debug vars = %d", rec.Code)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("debug vars not JSON: %v", err)
	}
}

func TestWorkflowStartValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/workflow/start", workflow.Request{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty request = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/workflow/start", workflow.Request{Repo: "/does/not/exist"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing repo = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestWorkflowLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	repo := writeAPIRepo(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/workflow/start", workflow.Request{ProjectID: "orders", Repo: repo})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start = %d, body %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(30 * time.Second)
	var state workflow.State
	for time.Now().Before(deadline) {
		rec = doJSON(t, srv, http.MethodGet, "/v1/workflow/status?project_id=orders", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if !state.Running && state.Status != "idle" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if state.Status != "completed" {
		t.Fatalf("final status = %q, error %q", state.Status, state.Error)
	}
	if state.Report == nil || !state.Report.Converged {
		t.Fatalf("report = %+v", state.Report)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/projects", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("projects = %d", rec.Code)
	}
	var projects []struct {
		ID    string `json:"project_id"`
		Nodes int    `json:"nodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &projects); err != nil {
		t.Fatalf("decode projects: %v", err)
	}
	found := false
	for _, p := range projects {
		if p.ID == "orders" && p.Nodes > 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("orders project missing from %v", projects)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/report?project_id=orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodGet, "/v1/summary?project_id=orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestWorkflowStatusRequiresProjectID(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/workflow/status", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status without project_id = %d", rec.Code)
	}
}

func TestGraphEndpointsValidateInput(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/graph/dependencies", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("dependencies without bean = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/v1/graph/dependencies?bean=com.acme.Missing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown bean = %d", rec.Code)
	}
	var neighbors []graph.Neighbor
	if err := json.Unmarshal(rec.Body.Bytes(), &neighbors); err != nil {
		t.Fatalf("decode neighbors: %v", err)
	}
	if len(neighbors) != 0 {
		t.Fatalf("unknown bean produced neighbors: %v", neighbors)
	}
}

func TestAdviseWithLocalProvider(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/advise", map[string]interface{}{
		"class":         "com.acme.OrderBean",
		"kind":          "session",
		"spring_target": "service",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("advise = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode advice: %v", err)
	}
	if payload["advice"] == "" {
		t.Fatalf("advice empty: %v", payload)
	}
}

func TestAdviseRequiresClass(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/advise", map[string]interface{}{"kind": "session"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("advise without class = %d", rec.Code)
	}
}

func TestParseBoundedInt(t *testing.T) {
	cases := []struct {
		raw      string
		fallback int
		ceiling  int
		want     int
	}{
		{"", 2, 5, 2},
		{"3", 2, 5, 3},
		{"99", 2, 5, 5},
		{"-1", 2, 5, 2},
		{"junk", 2, 5, 2},
	}
	for _, tc := range cases {
		if got := parseBoundedInt(tc.raw, tc.fallback, tc.ceiling); got != tc.want {
			t.Errorf("parseBoundedInt(%q, %d, %d) = %d, want %d", tc.raw, tc.fallback, tc.ceiling, got, tc.want)
		}
	}
}
