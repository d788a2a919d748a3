// File path: internal/workflow/request.go
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Request describes one analysis workflow over a legacy source tree.
type Request struct {
	ProjectID string `json:"project_id"`
	Repo      string `json:"repo"`

	MaxPasses int `json:"max_passes,omitempty"`
	Workers   int `json:"workers,omitempty"`

	Generate    bool   `json:"generate"`
	Advise      bool   `json:"advise"`
	PackageName string `json:"package_name,omitempty"`
	ArtifactID  string `json:"artifact_id,omitempty"`
}

const (
	maxPassesCeiling = 64
	maxWorkers       = 32
)

// DefaultProjectID derives the project identifier used when a request names
// none: the base name of the resolved repository path. Callers polling a
// workflow they started without an explicit id must use the same derivation.
func DefaultProjectID(repo string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(repo))
	if err != nil {
		return "", fmt.Errorf("resolve repo path: %w", err)
	}
	return filepath.Base(abs), nil
}

func normalizeRequest(req Request) (Request, error) {
	req.Repo = strings.TrimSpace(req.Repo)
	if req.Repo == "" {
		return Request{}, fmt.Errorf("repo path required")
	}
	abs, err := filepath.Abs(req.Repo)
	if err != nil {
		return Request{}, fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Request{}, fmt.Errorf("inspect repo path: %w", err)
	}
	if !info.IsDir() {
		return Request{}, fmt.Errorf("repo path %s is not a directory", abs)
	}
	req.Repo = abs

	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.ProjectID == "" {
		req.ProjectID = filepath.Base(abs)
	}

	if req.MaxPasses < 0 {
		return Request{}, fmt.Errorf("max_passes must not be negative")
	}
	if req.MaxPasses > maxPassesCeiling {
		req.MaxPasses = maxPassesCeiling
	}
	if req.Workers < 0 {
		return Request{}, fmt.Errorf("workers must not be negative")
	}
	if req.Workers > maxWorkers {
		req.Workers = maxWorkers
	}

	req.PackageName = strings.TrimSpace(req.PackageName)
	req.ArtifactID = strings.TrimSpace(req.ArtifactID)
	return req, nil
}
