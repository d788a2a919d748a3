// File path: internal/api/advice_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mbartelsen/beanshift/internal/llm"
)

// handleAdvise answers an ad-hoc migration question for one bean, enriching
// the request with graph context when available.
func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("no llm provider configured"))
		return
	}
	var req llm.BeanContext
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Class) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("class is required"))
		return
	}
	if s.graph != nil && len(req.Dependencies) == 0 {
		if neighbors, err := s.graph.Dependencies(r.Context(), req.Class, 1); err == nil {
			for _, neighbor := range neighbors {
				req.Dependencies = append(req.Dependencies, neighbor.Bean)
			}
		}
	}
	advisor := llm.NewAdvisor(s.provider)
	answer, err := advisor.Advise(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"class": req.Class, "advice": answer})
}
