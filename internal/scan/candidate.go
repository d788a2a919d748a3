// File path: internal/scan/candidate.go
package scan

import (
	"context"

	"github.com/mbartelsen/beanshift/internal/inspect"
)

// CandidateInspector maps classified beans to their Spring Boot migration
// targets and scores migration complexity. It requires only the class tag:
// bean kind tags land in an earlier pass, bump the node's clock and re-fire
// this inspector on the following pass, which is exactly the convergence
// cascade the engine exists for.
type CandidateInspector struct{}

func (i *CandidateInspector) Descriptor() inspect.Descriptor {
	return inspect.Descriptor{
		Name:     "spring-candidate",
		Requires: []string{TagClass},
		Produces: []string{
			TagServiceCandidate, TagRepositoryCandidate, TagListenerCandidate,
		},
		Properties: []string{PropSpringTarget, PropComplexity},
		Kinds:      []inspect.Kind{inspect.KindClass},
	}
}

func (i *CandidateInspector) Inspect(ctx context.Context, node *inspect.Node, eff *inspect.Effects) error {
	var tag, target string
	switch {
	case node.HasTag(TagSessionBean):
		tag, target = TagServiceCandidate, "service"
	case node.HasTag(TagEntityBean):
		tag, target = TagRepositoryCandidate, "repository"
	case node.HasTag(TagMessageDriven):
		tag, target = TagListenerCandidate, "jms-listener"
	default:
		return nil
	}
	if err := eff.SetTag(tag); err != nil {
		return err
	}
	if err := eff.SetProperty(PropSpringTarget, inspect.StringValue(target)); err != nil {
		return err
	}
	return eff.SetProperty(PropComplexity, inspect.NumberValue(complexityScore(node)))
}

// complexityScore is a coarse effort signal: imports pull in collaborators,
// extra interfaces mean extra contracts to untangle, and remoting surfaces
// add boilerplate removal work.
func complexityScore(node *inspect.Node) float64 {
	score := 1.0
	if imports, ok := node.Property(PropImports); ok {
		if list, ok := imports.List(); ok {
			score += float64(len(list)) * 0.5
		}
	}
	if interfaces, ok := node.Property(PropInterfaces); ok {
		if list, ok := interfaces.List(); ok {
			score += float64(len(list))
		}
	}
	if node.HasTag(TagEJBHome) || node.HasTag(TagEJBRemote) {
		score += 2
	}
	return score
}
