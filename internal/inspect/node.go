// File path: internal/inspect/node.go
package inspect

import "sort"

// Kind distinguishes the concrete node variants held in a store.
type Kind string

const (
	KindFile  Kind = "file"
	KindClass Kind = "class"
)

// Node is a unit of analysis: a source file or a Java class. Tags are boolean
// flags that only ever accumulate; properties carry typed analysis data.
// lastModified is a logical clock value bumped by the owning store on every
// effective write, and execLog records the clock value at which each
// inspector last ran against this node. An inspector is fresh for a node when
// its log entry is at least lastModified.
type Node struct {
	id   string
	kind Kind

	tags    map[string]struct{}
	vetoes  map[string]struct{}
	props   map[string]Value
	execLog map[string]uint64

	lastModified uint64
	attached     bool
}

// NewNode constructs a detached node. Collectors seed initial tags and
// properties before handing the node to Store.Add; after that, the only write
// path is an Effects handle issued by the engine.
func NewNode(id string, kind Kind) *Node {
	return &Node{
		id:      id,
		kind:    kind,
		tags:    make(map[string]struct{}),
		vetoes:  make(map[string]struct{}),
		props:   make(map[string]Value),
		execLog: make(map[string]uint64),
	}
}

// SeedTag sets an initial tag on a node that has not yet been added to a
// store. Seeding after Add is a contract violation and is ignored.
func (n *Node) SeedTag(tag string) *Node {
	if n.attached || tag == "" {
		return n
	}
	n.tags[tag] = struct{}{}
	return n
}

// SeedProperty sets an initial property on a detached node.
func (n *Node) SeedProperty(key string, value Value) *Node {
	if n.attached || key == "" {
		return n
	}
	n.props[key] = value
	return n
}

func (n *Node) ID() string { return n.id }

func (n *Node) Kind() Kind { return n.kind }

// HasTag reports whether the tag is present.
func (n *Node) HasTag(tag string) bool {
	_, ok := n.tags[tag]
	return ok
}

// HasTags reports whether every listed tag is present.
func (n *Node) HasTags(tags []string) bool {
	for _, tag := range tags {
		if !n.HasTag(tag) {
			return false
		}
	}
	return true
}

// Tags returns the present tags in sorted order.
func (n *Node) Tags() []string {
	out := make([]string, 0, len(n.tags))
	for tag := range n.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Property returns the value stored under key, if any.
func (n *Node) Property(key string) (Value, bool) {
	v, ok := n.props[key]
	return v, ok
}

// Properties returns a copy of the property bag.
func (n *Node) Properties() map[string]Value {
	out := make(map[string]Value, len(n.props))
	for k, v := range n.props {
		out[k] = v
	}
	return out
}

// PropertyString is a convenience accessor for string-valued properties.
func (n *Node) PropertyString(key string) string {
	v, ok := n.props[key]
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

// LastModified returns the logical clock value of the latest effective write.
func (n *Node) LastModified() uint64 { return n.lastModified }

// LastExecuted returns the clock value at which the named inspector last ran
// against this node, and whether it has run at all.
func (n *Node) LastExecuted(inspector string) (uint64, bool) {
	ts, ok := n.execLog[inspector]
	return ts, ok
}

// vetoed reports whether an AND-aggregated write has permanently blocked the
// tag for this node.
func (n *Node) vetoed(tag string) bool {
	_, ok := n.vetoes[tag]
	return ok
}
