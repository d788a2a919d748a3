// File path: internal/scan/scanner.go
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mbartelsen/beanshift/internal/common"
	"github.com/mbartelsen/beanshift/internal/common/telemetry"
	"github.com/mbartelsen/beanshift/internal/inspect"
)

// skipDirs are directory names never descended into during a repository walk.
var skipDirs = map[string]struct{}{
	".git":         {},
	"target":       {},
	"build":        {},
	"node_modules": {},
}

// Scanner drives the collection phase: it walks a repository once and offers
// every artifact to each collector, populating the store with the initial
// node graph. Inspectors never see the filesystem; everything they need is
// on the nodes.
type Scanner struct {
	collectors []inspect.Collector
}

// NewScanner builds a scanner over the default collector set.
func NewScanner() *Scanner {
	return &Scanner{collectors: DefaultCollectors()}
}

// NewScannerWith builds a scanner over an explicit collector list.
func NewScannerWith(collectors []inspect.Collector) *Scanner {
	return &Scanner{collectors: collectors}
}

// RootTags returns the union of every collector's produced tags; these anchor
// the dependency resolver's satisfiability analysis.
func (s *Scanner) RootTags() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, collector := range s.collectors {
		for _, tag := range collector.Spec().Produces {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// Scan walks repoPath and registers every collected node. It returns the
// number of nodes created.
func (s *Scanner) Scan(ctx context.Context, repoPath string, store *inspect.Store) (int, error) {
	if len(s.collectors) == 0 {
		return 0, errors.New("no collectors configured")
	}
	logger := common.Logger()
	created := 0
	artifacts := 0
	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != repoPath {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		artifacts++
		for _, collector := range s.collectors {
			nodes, err := collector.Collect(ctx, path)
			if err != nil {
				return fmt.Errorf("collect %s with %s: %w", path, collector.Spec().Name, err)
			}
			for _, node := range nodes {
				if err := store.Add(node); err != nil {
					if errors.Is(err, inspect.ErrDuplicateNode) {
						logger.Warn("scan: duplicate node skipped", "id", node.ID(), "collector", collector.Spec().Name)
						continue
					}
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return created, err
	}
	telemetry.RecordScan(artifacts, created)
	logger.Info("scan: collection complete", "repo", repoPath, "artifacts", artifacts, "nodes", created)
	return created, nil
}

// normalizeID turns an artifact path into a stable node identifier.
func normalizeID(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
