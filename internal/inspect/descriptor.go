// File path: internal/inspect/descriptor.go
package inspect

import (
	"context"
	"errors"
	"fmt"
)

// Descriptor declares an inspector's contract: the tags that must already be
// present for it to be eligible on a node, and the tags and property keys it
// is allowed to write. The resolver validates the full descriptor set before
// any pass runs.
type Descriptor struct {
	Name       string
	Requires   []string
	Produces   []string
	Properties []string
	Kinds      []Kind
}

// AppliesTo reports whether the descriptor covers nodes of the given kind.
// An empty Kinds list means every kind.
func (d Descriptor) AppliesTo(kind Kind) bool {
	if len(d.Kinds) == 0 {
		return true
	}
	for _, k := range d.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Inspector reads required tags on a node and writes produced tags and
// properties through the Effects handle. Implementations must be pure
// functions of the tags and properties currently present on the node: they
// must not depend on another inspector having already run within the same
// pass, and must not touch nodes other than the one passed in.
type Inspector interface {
	Descriptor() Descriptor
	Inspect(ctx context.Context, node *Node, eff *Effects) error
}

// CollectorSpec declares a collector's name and the root tags it seeds.
// Root tags anchor the resolver's satisfiability analysis.
type CollectorSpec struct {
	Name     string
	Produces []string
}

// Collector turns a source artifact reference into zero or more new nodes
// with an initial tag set. Collectors never touch existing nodes.
type Collector interface {
	Spec() CollectorSpec
	Collect(ctx context.Context, artifact string) ([]*Node, error)
}

var (
	// ErrUndeclaredTag flags an inspector writing a tag missing from its
	// Produces declaration.
	ErrUndeclaredTag = errors.New("tag not declared in produces")
	// ErrUndeclaredProperty flags an inspector writing a property key
	// missing from its Properties declaration.
	ErrUndeclaredProperty = errors.New("property not declared in produces")
)

// Effects is the write handle an inspector receives for a single node. It is
// restricted to the tags and property keys the inspector declared, so an
// undeclared write surfaces as a contract violation instead of silently
// corrupting the graph.
type Effects struct {
	store   *Store
	node    *Node
	tags    map[string]struct{}
	props   map[string]struct{}
	changed bool
}

func newEffects(store *Store, node *Node, desc Descriptor) *Effects {
	eff := &Effects{
		store: store,
		node:  node,
		tags:  make(map[string]struct{}, len(desc.Produces)),
		props: make(map[string]struct{}, len(desc.Properties)),
	}
	for _, tag := range desc.Produces {
		eff.tags[tag] = struct{}{}
	}
	for _, key := range desc.Properties {
		eff.props[key] = struct{}{}
	}
	return eff
}

// SetTag sets a tag with OR aggregation: once present it stays present and
// re-setting is a no-op.
func (e *Effects) SetTag(tag string) error {
	if _, ok := e.tags[tag]; !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredTag, tag)
	}
	if e.store.setTag(e.node, tag) {
		e.changed = true
	}
	return nil
}

// SetTagAnd sets a tag with AND aggregation: the tag appears only if every
// writer asserts it, and one dissent blocks it for the rest of the run.
func (e *Effects) SetTagAnd(tag string, assert bool) error {
	if _, ok := e.tags[tag]; !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredTag, tag)
	}
	if e.store.setTagAnd(e.node, tag, assert) {
		e.changed = true
	}
	return nil
}

// SetProperty stores a typed value under key. Writing an equal value is not
// a change.
func (e *Effects) SetProperty(key string, value Value) error {
	if _, ok := e.props[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredProperty, key)
	}
	if e.store.setProperty(e.node, key, value) {
		e.changed = true
	}
	return nil
}

// Changed reports whether any write since creation actually altered the node.
func (e *Effects) Changed() bool { return e.changed }
