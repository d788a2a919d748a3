// File path: internal/graph/types.go
package graph

import "context"

// NeighborKind enumerates the relationship categories surfaced by the bean
// dependency service.
type NeighborKind string

const (
	NeighborKindDependency NeighborKind = "dependency"
	NeighborKindImpact     NeighborKind = "impact"
	NeighborKindRelated    NeighborKind = "related"
)

// Neighbor is a bean discovered by graph traversal. Chain is the traversal
// path from the query bean to this neighbor, both endpoints included.
type Neighbor struct {
	Bean     string       `json:"bean"`
	Class    string       `json:"class,omitempty"`
	Source   string       `json:"source,omitempty"`
	Distance int          `json:"distance,omitempty"`
	Weight   float64      `json:"weight,omitempty"`
	Chain    []string     `json:"chain,omitempty"`
	Kind     NeighborKind `json:"kind,omitempty"`
}

// DependencyService exposes read-only traversals over the bean reference
// graph for reporting and API layers.
type DependencyService interface {
	// Dependencies lists beans this bean references, to the given depth.
	Dependencies(ctx context.Context, bean string, depth int) ([]Neighbor, error)
	// Impacts lists beans that reference this bean, to the given depth.
	Impacts(ctx context.Context, bean string, depth int) ([]Neighbor, error)
	// Related lists beans coupled by references or shared resources.
	Related(ctx context.Context, bean string, limit int) ([]Neighbor, error)
}

type noopService struct{}

// NoopService returns a DependencyService that always yields empty
// traversals, for callers running without a populated graph.
func NoopService() DependencyService { return noopService{} }

func (noopService) Dependencies(context.Context, string, int) ([]Neighbor, error) {
	return nil, nil
}

func (noopService) Impacts(context.Context, string, int) ([]Neighbor, error) {
	return nil, nil
}

func (noopService) Related(context.Context, string, int) ([]Neighbor, error) {
	return nil, nil
}
