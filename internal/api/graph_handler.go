// File path: internal/api/graph_handler.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mbartelsen/beanshift/internal/graph"
)

func (s *Server) handleBeans(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("graph service unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"beans": s.graph.Beans()})
}

func (s *Server) handleGraphDependencies(w http.ResponseWriter, r *http.Request) {
	s.handleTraversal(w, r, func(ctx context.Context, bean string, depth int) ([]graph.Neighbor, error) {
		return s.graph.Dependencies(ctx, bean, depth)
	})
}

func (s *Server) handleGraphImpacts(w http.ResponseWriter, r *http.Request) {
	s.handleTraversal(w, r, func(ctx context.Context, bean string, depth int) ([]graph.Neighbor, error) {
		return s.graph.Impacts(ctx, bean, depth)
	})
}

func (s *Server) handleGraphRelated(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("graph service unavailable"))
		return
	}
	bean := strings.TrimSpace(r.URL.Query().Get("bean"))
	if bean == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bean query parameter required"))
		return
	}
	limit := parseBoundedInt(r.URL.Query().Get("limit"), 10, s.cfg.MaxRelated)
	neighbors, err := s.graph.Related(r.Context(), bean, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bean": bean, "related": neighbors})
}

func (s *Server) handleTraversal(w http.ResponseWriter, r *http.Request, traverse func(context.Context, string, int) ([]graph.Neighbor, error)) {
	if s.graph == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("graph service unavailable"))
		return
	}
	bean := strings.TrimSpace(r.URL.Query().Get("bean"))
	if bean == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bean query parameter required"))
		return
	}
	depth := parseBoundedInt(r.URL.Query().Get("depth"), 2, s.cfg.MaxGraphDepth)
	neighbors, err := traverse(r.Context(), bean, depth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bean": bean, "neighbors": neighbors})
}

func parseBoundedInt(raw string, fallback, ceiling int) int {
	value := fallback
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			value = parsed
		}
	}
	if ceiling > 0 && value > ceiling {
		value = ceiling
	}
	return value
}
