// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/mbartelsen/beanshift/internal/common"
	"github.com/mbartelsen/beanshift/internal/data/orchestrator"
	graphmem "github.com/mbartelsen/beanshift/internal/graph/memory"
	"github.com/mbartelsen/beanshift/internal/llm"
	"github.com/mbartelsen/beanshift/internal/memory"
	"github.com/mbartelsen/beanshift/internal/sqlite"
	"github.com/mbartelsen/beanshift/internal/workflow"
)

type Server struct {
	router   chi.Router
	store    *memory.Store
	catalog  *sqlite.Store
	graph    *graphmem.Service
	provider llm.Provider
	workflow *workflow.Manager
	cfg      Config

	orchestrator *orchestrator.Orchestrator
}

// Config bounds the traversal parameters accepted by the graph endpoints.
type Config struct {
	MaxGraphDepth int
	MaxRelated    int
}

// DefaultConfig caps graph traversals at depth 5 and related lookups at 25
// entries.
func DefaultConfig() Config {
	return Config{
		MaxGraphDepth: 5,
		MaxRelated:    25,
	}
}

// Merge overlays positive overrides onto the base configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if override.MaxGraphDepth > 0 {
		result.MaxGraphDepth = override.MaxGraphDepth
	}
	if override.MaxRelated > 0 {
		result.MaxRelated = override.MaxRelated
	}
	return result
}

func NewServer(orch *orchestrator.Orchestrator, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	store := orch.Memory()
	if store == nil {
		return nil, fmt.Errorf("memory store unavailable")
	}
	catalog := orch.Catalog()
	if catalog == nil {
		return nil, fmt.Errorf("catalog store unavailable")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	provider := orch.Provider()
	providerName := "unknown"
	if provider != nil {
		providerName = provider.Name()
	}
	logger.Info("api: building server", "provider", providerName)
	manager := workflow.NewManager(store, catalog, orch.Graph(), provider, nil)
	srv := &Server{
		router:       chi.NewRouter(),
		store:        store,
		catalog:      catalog,
		graph:        orch.Graph(),
		provider:     provider,
		workflow:     manager,
		cfg:          configuration,
		orchestrator: orch,
	}
	srv.routes()
	logger.Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Workflow exposes the workflow manager, primarily for the CLI one-shot mode.
func (s *Server) Workflow() *workflow.Manager {
	if s == nil {
		return nil
	}
	return s.workflow
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/debug/vars", expvar.Handler().ServeHTTP)

	s.router.Post("/v1/workflow/start", s.handleWorkflowStart)
	s.router.Post("/v1/workflow/stop", s.handleWorkflowStop)
	s.router.Get("/v1/workflow/status", s.handleWorkflowStatus)
	s.router.Get("/v1/workflow/download", s.handleWorkflowDownload)
	s.router.Get("/v1/logs", s.handleLogs)
	s.router.Get("/v1/projects", s.handleProjects)
	s.router.Get("/v1/report", s.handleReport)
	s.router.Get("/v1/summary", s.handleSummary)
	s.router.Get("/v1/beans", s.handleBeans)
	s.router.Get("/v1/graph/dependencies", s.handleGraphDependencies)
	s.router.Get("/v1/graph/impacts", s.handleGraphImpacts)
	s.router.Get("/v1/graph/related", s.handleGraphRelated)
	s.router.Post("/v1/advise", s.handleAdvise)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
