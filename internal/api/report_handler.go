// File path: internal/api/report_handler.go
package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mbartelsen/beanshift/internal/sqlite"
)

type reportEntry struct {
	Run      sqlite.Run          `json:"run"`
	Failures []sqlite.FailureRow `json:"failures,omitempty"`
}

// handleReport returns the recorded run history with per-run failures.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("project_id query parameter required"))
		return
	}
	limit := parseBoundedInt(r.URL.Query().Get("limit"), 10, 100)
	runs, err := s.catalog.RunHistory(r.Context(), projectID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entries := make([]reportEntry, 0, len(runs))
	for _, run := range runs {
		entry := reportEntry{Run: run}
		if run.FailureCount > 0 {
			failures, err := s.catalog.FailuresForRun(r.Context(), run.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			entry.Failures = failures
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"project_id": projectID, "runs": entries})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("project_id query parameter required"))
		return
	}
	summary, err := s.catalog.Summary(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
