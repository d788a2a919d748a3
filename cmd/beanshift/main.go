// File path: cmd/beanshift/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbartelsen/beanshift/internal/api"
	"github.com/mbartelsen/beanshift/internal/common"
	"github.com/mbartelsen/beanshift/internal/data/orchestrator"
	"github.com/mbartelsen/beanshift/internal/workflow"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("beanshift: .env file not loaded", "error", err)
	} else {
		logger.Info("beanshift: environment loaded from .env")
	}

	addr := flag.String("addr", ":8081", "listen address")
	storePath := flag.String("store", defaultStorePath(), "directory for project snapshots")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite catalog database")
	repo := flag.String("repo", "", "analyze this legacy source tree once and exit")
	projectID := flag.String("project", "", "project identifier for one-shot analysis")
	maxPasses := flag.Int("max-passes", 0, "convergence pass ceiling (0 uses the default)")
	workers := flag.Int("workers", 0, "parallel node workers per pass (0 runs sequentially)")
	generateScaffold := flag.Bool("generate", false, "generate a Spring Boot scaffold after analysis")
	advise := flag.Bool("advise", false, "request migration advice after analysis")
	graphDepth := flag.Int("graph-depth", 0, "maximum traversal depth served by the graph endpoints")

	flag.Parse()

	logger.Info("beanshift: startup initiated", "addr", *addr, "store", *storePath)

	orchCfg, err := orchestrator.LoadConfig()
	if err != nil {
		logger.Error("beanshift: orchestrator config load failed", "error", err)
		fmt.Println("orchestrator config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*storePath); trimmed != "" {
		orchCfg.MemoryPath = trimmed
	}
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		orchCfg.SQLitePath = trimmed
	}

	orch, err := orchestrator.New(ctx, orchCfg)
	if err != nil {
		logger.Error("beanshift: orchestrator initialization failed", "error", err)
		fmt.Println("orchestrator error:", err)
		os.Exit(1)
	}
	defer orch.Close()
	logger.Info("beanshift: llm provider ready", "provider", orch.Provider().Name())

	cfg := api.DefaultConfig()
	if *graphDepth > 0 {
		cfg.MaxGraphDepth = *graphDepth
	}
	server, err := api.NewServer(orch, &cfg)
	if err != nil {
		logger.Error("beanshift: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	if strings.TrimSpace(*repo) != "" {
		code := runOnce(server.Workflow(), workflow.Request{
			ProjectID: *projectID,
			Repo:      *repo,
			MaxPasses: *maxPasses,
			Workers:   *workers,
			Generate:  *generateScaffold,
			Advise:    *advise,
		})
		os.Exit(code)
	}

	logger.Info("beanshift: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("beanshift: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

// runOnce drives a single workflow to completion and reports the outcome on
// stdout, for CI and scripted use.
func runOnce(manager *workflow.Manager, req workflow.Request) int {
	if err := manager.Start(req); err != nil {
		fmt.Println("analysis error:", err)
		return 1
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		derived, err := workflow.DefaultProjectID(req.Repo)
		if err != nil {
			fmt.Println("analysis error:", err)
			return 1
		}
		projectID = derived
	}
	for {
		state := manager.Status(projectID)
		if !state.Running && state.Status != "idle" {
			printState(state)
			if state.Status != "completed" {
				return 1
			}
			return 0
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func printState(state workflow.State) {
	fmt.Printf("Status: %s\n", state.Status)
	for _, step := range state.Steps {
		fmt.Printf("  [%s] %s", step.Status, step.Name)
		if step.Message != "" {
			fmt.Printf(" - %s", step.Message)
		}
		fmt.Println()
	}
	if state.Report != nil {
		fmt.Printf("Outcome: %s (passes=%d, nodes=%d, failures=%d)\n",
			state.Report.Outcome(), state.Report.Passes, state.Report.Nodes, len(state.Report.Failures))
		for _, failure := range state.Report.Failures {
			fmt.Printf("  failure: %s on %s: %s\n", failure.Inspector, failure.NodeID, failure.Message)
		}
	}
	if state.SpringArtifact != "" {
		fmt.Printf("Scaffold: %s\n", state.SpringArtifact)
	}
	for class, answer := range state.Advice {
		fmt.Printf("Advice for %s:\n%s\n", class, answer)
	}
	if state.Error != "" {
		fmt.Println("Error:", state.Error)
	}
}

func defaultStorePath() string {
	return filepath.Join("data", "snapshots")
}

func defaultCatalogPath() string {
	return filepath.Join("data", "catalog.db")
}
