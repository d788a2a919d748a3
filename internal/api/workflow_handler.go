// File path: internal/api/workflow_handler.go
package api

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbartelsen/beanshift/internal/common"
	"github.com/mbartelsen/beanshift/internal/workflow"
)

func (s *Server) handleWorkflowStart(w http.ResponseWriter, r *http.Request) {
	var req workflow.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.workflow.Start(req); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, workflow.ErrWorkflowRunning):
			status = http.StatusConflict
		case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
			status = http.StatusBadRequest
		default:
			if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "not a directory") {
				status = http.StatusBadRequest
			}
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleWorkflowStop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("project_id is required"))
		return
	}
	if err := s.workflow.Stop(projectID); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, workflow.ErrWorkflowNotFound):
			status = http.StatusNotFound
		case errors.Is(err, workflow.ErrWorkflowNotRunning):
			status = http.StatusConflict
		default:
			if strings.Contains(err.Error(), "required") {
				status = http.StatusBadRequest
			}
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("project_id query parameter required"))
		return
	}
	state := s.workflow.Status(projectID)
	writeJSON(w, http.StatusOK, state)
}

// handleLogs returns the workflow activity log alongside the tail of the
// process logger.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":    s.workflow.Logs(),
		"process": common.LogHistory(),
	})
}

// handleWorkflowDownload streams the generated scaffold directory as a zip.
func (s *Server) handleWorkflowDownload(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("project_id query parameter required"))
		return
	}
	artifact, err := s.workflow.SpringArtifactPath(projectID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, workflow.ErrArtifactNotFound):
			status = http.StatusNotFound
		case errors.Is(err, workflow.ErrArtifactInvalid):
			status = http.StatusBadRequest
		case errors.Is(err, os.ErrNotExist):
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	name := fmt.Sprintf("%s-spring.zip", projectID)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := zipDirectory(w, artifact); err != nil {
		// headers are already sent, only log
		common.Logger().Error("api: stream artifact failed", "project", projectID, "error", err)
	}
}

func zipDirectory(w io.Writer, root string) error {
	zw := zip.NewWriter(w)
	defer zw.Close()
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		writer, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
}
