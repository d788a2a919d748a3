// File path: internal/inspect/store.go
package inspect

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrDuplicateNode is returned when a collector emits an ID that is
	// already registered.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrNilNode is returned when Add receives a nil node.
	ErrNilNode = errors.New("nil node")
)

// Store holds every node of an analysis run. Nodes are created once by
// collectors and only mutated through Effects handles afterwards. The store
// is not generally thread safe: during a pass each node is owned by exactly
// one goroutine, and only the logical clock is shared, so the clock is the
// one piece that uses atomics.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	clock atomic.Uint64
}

// NewStore constructs an empty store with the logical clock at zero.
func NewStore() *Store {
	return &Store{nodes: make(map[string]*Node)}
}

// Add registers a collector-created node. The node's lastModified is stamped
// so inspectors that have never run against it are immediately stale.
func (s *Store) Add(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	if n.id == "" {
		return errors.New("node id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[n.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.id)
	}
	n.attached = true
	n.lastModified = s.tick()
	s.nodes[n.id] = n
	return nil
}

// Get returns the node registered under id.
func (s *Store) Get(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// All returns every node sorted by ID. The sorted order is what makes pass
// execution deterministic.
func (s *Store) All() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ByKind returns the nodes of one kind, sorted by ID.
func (s *Store) ByKind(kind Kind) []*Node {
	all := s.All()
	out := make([]*Node, 0, len(all))
	for _, n := range all {
		if n.kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of registered nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Clock returns the current logical clock value.
func (s *Store) Clock() uint64 {
	return s.clock.Load()
}

func (s *Store) tick() uint64 {
	return s.clock.Add(1)
}

// setTag applies OR aggregation: once present a tag stays present, and
// re-setting is a no-op that must not bump lastModified. A tag latched by an
// AND veto can never be set.
func (s *Store) setTag(n *Node, tag string) bool {
	if tag == "" || n.vetoed(tag) {
		return false
	}
	if _, ok := n.tags[tag]; ok {
		return false
	}
	n.tags[tag] = struct{}{}
	n.lastModified = s.tick()
	return true
}

// setTagAnd applies AND aggregation: every writer must assert the tag for it
// to be set, and a single dissent latches it off for the rest of the run. A
// tag that is already present never regresses, matching the monotonicity
// invariant, so a late dissent only blocks nodes that had not yet gained it.
func (s *Store) setTagAnd(n *Node, tag string, assert bool) bool {
	if tag == "" {
		return false
	}
	if !assert {
		n.vetoes[tag] = struct{}{}
		return false
	}
	return s.setTag(n, tag)
}

// setProperty stores a value under key, bumping lastModified only when the
// value actually differs from what is already there.
func (s *Store) setProperty(n *Node, key string, value Value) bool {
	if key == "" {
		return false
	}
	if existing, ok := n.props[key]; ok && existing.Equal(value) {
		return false
	}
	n.props[key] = value
	n.lastModified = s.tick()
	return true
}

// recordExecution stamps the inspector's execution log for a node.
func (s *Store) recordExecution(n *Node, inspector string, stamp uint64) {
	n.execLog[inspector] = stamp
}
