// File path: internal/api/projects_handler.go
package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/mbartelsen/beanshift/internal/workflow"
)

type projectSummary struct {
	ID    string          `json:"project_id"`
	Nodes int             `json:"nodes"`
	State *workflow.State `json:"state,omitempty"`
}

// handleProjects lists every known project: those with a persisted snapshot
// and those only known to the workflow manager, merged and sorted by id.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.Projects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list projects: %w", err))
		return
	}
	byID := make(map[string]projectSummary)
	for _, info := range infos {
		id := strings.TrimSpace(info.ID)
		if id == "" {
			continue
		}
		byID[id] = projectSummary{ID: id, Nodes: info.Nodes}
	}
	for id, state := range s.workflow.ProjectStates() {
		summary := byID[id]
		summary.ID = id
		stateCopy := state
		summary.State = &stateCopy
		byID[id] = summary
	}
	summaries := make([]projectSummary, 0, len(byID))
	for _, summary := range byID {
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	writeJSON(w, http.StatusOK, summaries)
}
