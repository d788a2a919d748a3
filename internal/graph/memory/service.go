// File path: internal/graph/memory/service.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mbartelsen/beanshift/internal/graph"
	"github.com/mbartelsen/beanshift/internal/inspect"
	"github.com/mbartelsen/beanshift/internal/scan"
)

// Service synthesizes a bean reference graph from a converged node set.
// Bean-to-bean edges come from ejb-ref declarations in deployment
// descriptors plus import edges between classified bean classes; resource
// refs feed the Related scoring.
type Service struct {
	mu        sync.RWMutex
	beans     map[string]*beanInfo
	outgoing  map[string]map[string]struct{}
	incoming  map[string]map[string]struct{}
	resources map[string]map[string]struct{}

	cacheMu  sync.Mutex
	cacheTTL time.Duration
	cache    map[string]cacheEntry
}

type beanInfo struct {
	Name   string
	Class  string
	Source string
	Kind   string
}

type cacheEntry struct {
	neighbors []graph.Neighbor
	expires   time.Time
}

// Option customizes service construction.
type Option func(*Service)

// WithCacheTTL overrides how long traversal results stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// NewService constructs an empty service. Call Refresh with the converged
// node set before issuing queries.
func NewService(opts ...Option) *Service {
	svc := &Service{cacheTTL: time.Minute}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	svc.reset()
	return svc
}

func (s *Service) reset() {
	s.beans = make(map[string]*beanInfo)
	s.outgoing = make(map[string]map[string]struct{})
	s.incoming = make(map[string]map[string]struct{})
	s.resources = make(map[string]map[string]struct{})
	s.cacheMu.Lock()
	s.cache = make(map[string]cacheEntry)
	s.cacheMu.Unlock()
}

// Refresh rebuilds the graph from converged nodes, replacing prior state.
func (s *Service) Refresh(nodes []*inspect.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()

	// ejb-name -> implementing class, learned from descriptors, so
	// descriptor edges land on class-keyed vertices when possible
	nameToClass := make(map[string]string)

	for _, node := range nodes {
		switch node.Kind() {
		case inspect.KindClass:
			if kind := node.PropertyString(scan.PropBeanKind); kind != "" {
				id := node.ID()
				s.beans[id] = &beanInfo{
					Name:   node.PropertyString(scan.PropClassName),
					Class:  id,
					Source: node.PropertyString(scan.PropPath),
					Kind:   kind,
				}
			}
		case inspect.KindFile:
			if !node.HasTag(scan.TagEJBDescriptor) {
				continue
			}
			if classes, ok := node.Property(scan.PropBeanClasses); ok {
				if record, ok := classes.Record(); ok {
					for name, class := range record {
						if class != "" {
							nameToClass[name] = class
						}
					}
				}
			}
		}
	}

	resolve := func(ref string) string {
		ref = strings.TrimSpace(ref)
		if class, ok := nameToClass[ref]; ok {
			return class
		}
		return ref
	}

	ensureBean := func(id, kind string) {
		if _, ok := s.beans[id]; !ok {
			s.beans[id] = &beanInfo{Name: simpleName(id), Class: id, Kind: kind}
		}
	}

	for _, node := range nodes {
		if node.Kind() != inspect.KindFile || !node.HasTag(scan.TagEJBDescriptor) {
			continue
		}
		if refs, ok := node.Property(scan.PropEJBRefs); ok {
			if list, ok := refs.List(); ok {
				for _, edge := range list {
					from, to, ok := splitRef(edge)
					if !ok {
						continue
					}
					fromID, toID := resolve(from), resolve(to)
					if fromID == toID {
						continue
					}
					ensureBean(fromID, "")
					ensureBean(toID, "")
					addEdge(s.outgoing, fromID, toID)
					addEdge(s.incoming, toID, fromID)
				}
			}
		}
		if refs, ok := node.Property(scan.PropResourceRefs); ok {
			if list, ok := refs.List(); ok {
				for _, edge := range list {
					from, resource, ok := splitRef(edge)
					if !ok {
						continue
					}
					fromID := resolve(from)
					ensureBean(fromID, "")
					addEdge(s.resources, fromID, resource)
				}
			}
		}
	}

	// import edges between known bean classes
	for _, node := range nodes {
		if node.Kind() != inspect.KindClass {
			continue
		}
		fromID := node.ID()
		if _, isBean := s.beans[fromID]; !isBean {
			continue
		}
		imports, ok := node.Property(scan.PropImports)
		if !ok {
			continue
		}
		list, ok := imports.List()
		if !ok {
			continue
		}
		for _, imported := range list {
			imported = strings.TrimSuffix(imported, ".*")
			if imported == fromID {
				continue
			}
			if _, isBean := s.beans[imported]; !isBean {
				continue
			}
			addEdge(s.outgoing, fromID, imported)
			addEdge(s.incoming, imported, fromID)
		}
	}
}

// Beans returns the known beans sorted by identifier.
func (s *Service) Beans() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.beans))
	for id := range s.beans {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Dependencies returns downstream beans reached via reference edges.
func (s *Service) Dependencies(ctx context.Context, bean string, depth int) ([]graph.Neighbor, error) {
	return s.traverse(ctx, bean, depth, graph.NeighborKindDependency, s.outgoing)
}

// Impacts returns upstream beans that reference the given bean.
func (s *Service) Impacts(ctx context.Context, bean string, depth int) ([]graph.Neighbor, error) {
	return s.traverse(ctx, bean, depth, graph.NeighborKindImpact, s.incoming)
}

// Related returns beans coupled by direct references or shared resources,
// heaviest coupling first.
func (s *Service) Related(ctx context.Context, bean string, limit int) ([]graph.Neighbor, error) {
	bean = strings.TrimSpace(bean)
	if bean == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("related|%s|%d", bean, limit)
	if cached, ok := s.cached(key); ok {
		return cached, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.beans[bean]; !ok {
		return nil, nil
	}
	weights := make(map[string]float64)
	for peer := range s.outgoing[bean] {
		weights[peer]++
	}
	for peer := range s.incoming[bean] {
		weights[peer]++
	}
	mine := s.resources[bean]
	for peer := range s.beans {
		if peer == bean {
			continue
		}
		shared := intersectCount(mine, s.resources[peer])
		if shared > 0 {
			weights[peer] += float64(shared)
		}
	}
	neighbors := make([]graph.Neighbor, 0, len(weights))
	for peer, weight := range weights {
		info := s.beans[peer]
		if info == nil {
			continue
		}
		neighbors = append(neighbors, graph.Neighbor{
			Bean:     peer,
			Class:    info.Class,
			Source:   info.Source,
			Distance: 1,
			Weight:   weight,
			Chain:    []string{bean, peer},
			Kind:     graph.NeighborKindRelated,
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Weight == neighbors[j].Weight {
			return neighbors[i].Bean < neighbors[j].Bean
		}
		return neighbors[i].Weight > neighbors[j].Weight
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	s.storeCache(key, neighbors)
	return neighbors, nil
}

func (s *Service) traverse(ctx context.Context, bean string, depth int, kind graph.NeighborKind, edges map[string]map[string]struct{}) ([]graph.Neighbor, error) {
	bean = strings.TrimSpace(bean)
	if bean == "" {
		return nil, nil
	}
	if depth <= 0 {
		depth = 3
	}
	key := fmt.Sprintf("%s|%s|%d", kind, bean, depth)
	if cached, ok := s.cached(key); ok {
		return cached, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.beans[bean]; !ok {
		return nil, nil
	}

	type hop struct {
		id    string
		depth int
		chain []string
	}
	queue := []hop{{id: bean, chain: []string{bean}}}
	visited := map[string]struct{}{bean: {}}
	var results []graph.Neighbor

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		current := queue[0]
		queue = queue[1:]
		if current.depth >= depth {
			continue
		}
		for next := range edges[current.id] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			chain := append(append([]string(nil), current.chain...), next)
			neighbor := graph.Neighbor{
				Bean:     next,
				Distance: current.depth + 1,
				Weight:   1,
				Chain:    chain,
				Kind:     kind,
			}
			if info := s.beans[next]; info != nil {
				neighbor.Class = info.Class
				neighbor.Source = info.Source
			}
			results = append(results, neighbor)
			queue = append(queue, hop{id: next, depth: current.depth + 1, chain: chain})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].Bean < results[j].Bean
		}
		return results[i].Distance < results[j].Distance
	})
	s.storeCache(key, results)
	return results, nil
}

func (s *Service) cached(key string) ([]graph.Neighbor, bool) {
	if s.cacheTTL <= 0 {
		return nil, false
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	entry, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(s.cache, key)
		return nil, false
	}
	return append([]graph.Neighbor(nil), entry.neighbors...), true
}

func (s *Service) storeCache(key string, neighbors []graph.Neighbor) {
	if s.cacheTTL <= 0 || len(neighbors) == 0 {
		return
	}
	s.cacheMu.Lock()
	s.cache[key] = cacheEntry{
		neighbors: append([]graph.Neighbor(nil), neighbors...),
		expires:   time.Now().Add(s.cacheTTL),
	}
	s.cacheMu.Unlock()
}

func addEdge(edges map[string]map[string]struct{}, from, to string) {
	if from == "" || to == "" {
		return
	}
	peers := edges[from]
	if peers == nil {
		peers = make(map[string]struct{})
		edges[from] = peers
	}
	peers[to] = struct{}{}
}

func splitRef(edge string) (string, string, bool) {
	parts := strings.SplitN(edge, "->", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

func simpleName(id string) string {
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

func intersectCount(left, right map[string]struct{}) int {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	if len(right) < len(left) {
		left, right = right, left
	}
	count := 0
	for key := range left {
		if _, ok := right[key]; ok {
			count++
		}
	}
	return count
}
