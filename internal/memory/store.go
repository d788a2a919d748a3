// File path: internal/memory/store.go
package memory

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mbartelsen/beanshift/internal/inspect"
)

// Record is the persisted form of a converged node: identifier, kind, tags
// and the typed property bag. Execution logs are deliberately not persisted;
// they only have meaning within the run that produced them.
type Record struct {
	ID           string                   `json:"id"`
	Kind         inspect.Kind             `json:"kind"`
	Tags         []string                 `json:"tags,omitempty"`
	Properties   map[string]inspect.Value `json:"properties,omitempty"`
	LastModified uint64                   `json:"last_modified"`
}

// RecordFromNode captures a node's converged state.
func RecordFromNode(n *inspect.Node) Record {
	return Record{
		ID:           n.ID(),
		Kind:         n.Kind(),
		Tags:         n.Tags(),
		Properties:   n.Properties(),
		LastModified: n.LastModified(),
	}
}

// Snapshot captures every node in the store.
func Snapshot(store *inspect.Store) []Record {
	nodes := store.All()
	records := make([]Record, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, RecordFromNode(n))
	}
	return records
}

// Store persists per-project node snapshots as JSONL files under a root
// directory. It is the cheap durable layer; the SQLite catalog holds the
// queryable form.
type Store struct {
	root string
	mu   sync.RWMutex
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("snapshot root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory used for persistence.
func (s *Store) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Replace overwrites the project's snapshot with the given records.
func (s *Store) Replace(ctx context.Context, projectID string, records []Record) error {
	path, err := s.projectFile(projectID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(path, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

// Load reads the project's snapshot. A missing snapshot is not an error; it
// returns an empty slice.
func (s *Store) Load(ctx context.Context, projectID string) ([]Record, error) {
	if s == nil {
		return nil, errors.New("snapshot store not initialized")
	}
	path, err := s.projectFile(projectID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), 8<<20)
	var records []Record
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return records, nil
}

// ProjectInfo summarizes one stored project.
type ProjectInfo struct {
	ID    string `json:"id"`
	Nodes int    `json:"nodes"`
}

// Projects enumerates stored snapshots with their node counts.
func (s *Store) Projects(ctx context.Context) ([]ProjectInfo, error) {
	if s == nil {
		return nil, errors.New("snapshot store not initialized")
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	var infos []ProjectInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		projectID, ok := decodeProjectFile(entry.Name())
		if !ok {
			continue
		}
		records, err := s.Load(ctx, projectID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, ProjectInfo{ID: projectID, Nodes: len(records)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func (s *Store) projectFile(projectID string) (string, error) {
	trimmed := strings.TrimSpace(projectID)
	if trimmed == "" {
		return "", errors.New("project id required")
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(trimmed))
	return filepath.Join(s.root, "snapshot_"+encoded+".jsonl"), nil
}

func decodeProjectFile(name string) (string, bool) {
	if !strings.HasPrefix(name, "snapshot_") || !strings.HasSuffix(name, ".jsonl") {
		return "", false
	}
	encoded := strings.TrimSuffix(strings.TrimPrefix(name, "snapshot_"), ".jsonl")
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(data), true
}
