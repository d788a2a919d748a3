// File path: internal/inspect/resolver.go
package inspect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ConfigErrorKind classifies a preflight validation failure.
type ConfigErrorKind string

const (
	ConfigDuplicateInspector ConfigErrorKind = "duplicate-inspector"
	ConfigDeadInspector      ConfigErrorKind = "dead-inspector"
	ConfigDependencyCycle    ConfigErrorKind = "dependency-cycle"
)

// ConfigError describes one configuration problem found before any pass ran.
type ConfigError struct {
	Kind      ConfigErrorKind
	Inspector string
	Tag       string
	Cycle     []string
}

func (e ConfigError) Error() string {
	switch e.Kind {
	case ConfigDuplicateInspector:
		return fmt.Sprintf("duplicate inspector name %q", e.Inspector)
	case ConfigDeadInspector:
		return fmt.Sprintf("inspector %q requires tag %q which no collector or inspector produces", e.Inspector, e.Tag)
	case ConfigDependencyCycle:
		return fmt.Sprintf("inspector dependency cycle: %s", strings.Join(e.Cycle, " -> "))
	}
	return fmt.Sprintf("configuration error for inspector %q", e.Inspector)
}

// PreflightError aggregates every configuration error so the whole batch can
// be reported at once instead of failing one finding at a time.
type PreflightError struct {
	Errors []ConfigError
}

func (e *PreflightError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, cfgErr := range e.Errors {
		parts = append(parts, cfgErr.Error())
	}
	return fmt.Sprintf("preflight validation failed: %s", strings.Join(parts, "; "))
}

// Resolver walks the requires/produces graph over a static descriptor set.
// It answers transitive prerequisite queries and detects unsatisfiable or
// cyclic configurations before the engine touches a single node. The
// descriptor set is read-only after construction, so resolved results are
// safe to memoize for the lifetime of a run.
type Resolver struct {
	descriptors []Descriptor
	byName      map[string]Descriptor
	roots       map[string]struct{}
	producers   map[string][]string

	mu   sync.Mutex
	deps map[string][]string

	duplicates []ConfigError
}

// NewResolver builds a resolver from the collector-produced root tags and
// the full inspector descriptor set.
func NewResolver(rootTags []string, descriptors []Descriptor) *Resolver {
	r := &Resolver{
		byName:    make(map[string]Descriptor, len(descriptors)),
		roots:     make(map[string]struct{}, len(rootTags)),
		producers: make(map[string][]string),
		deps:      make(map[string][]string),
	}
	for _, tag := range rootTags {
		if tag != "" {
			r.roots[tag] = struct{}{}
		}
	}
	for _, desc := range descriptors {
		if _, exists := r.byName[desc.Name]; exists {
			r.duplicates = append(r.duplicates, ConfigError{Kind: ConfigDuplicateInspector, Inspector: desc.Name})
			continue
		}
		r.byName[desc.Name] = desc
		r.descriptors = append(r.descriptors, desc)
		for _, tag := range desc.Produces {
			r.producers[tag] = append(r.producers[tag], desc.Name)
		}
	}
	return r
}

// Validate runs the full preflight check. A nil return means the
// configuration can converge; otherwise the returned *PreflightError lists
// every duplicate name, dead inspector and genuine cycle found.
func (r *Resolver) Validate() error {
	var errs []ConfigError
	errs = append(errs, r.duplicates...)
	errs = append(errs, r.deadInspectors()...)
	errs = append(errs, r.detectCycles()...)
	if len(errs) == 0 {
		return nil
	}
	return &PreflightError{Errors: errs}
}

// Dependencies returns the full transitive set of prerequisite tags for the
// named inspector, following chains where another inspector produces a tag
// this one requires. Results are memoized.
func (r *Resolver) Dependencies(name string) ([]string, error) {
	desc, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown inspector %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.deps[name]; ok {
		return append([]string(nil), cached...), nil
	}
	tags := make(map[string]struct{})
	visited := make(map[string]struct{})
	r.collectPrereqs(desc, tags, visited)
	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	r.deps[name] = out
	return append([]string(nil), out...), nil
}

func (r *Resolver) collectPrereqs(desc Descriptor, tags, visited map[string]struct{}) {
	if _, seen := visited[desc.Name]; seen {
		return
	}
	visited[desc.Name] = struct{}{}
	for _, tag := range desc.Requires {
		tags[tag] = struct{}{}
		if _, root := r.roots[tag]; root {
			continue
		}
		for _, producer := range r.producers[tag] {
			if upstream, ok := r.byName[producer]; ok {
				r.collectPrereqs(upstream, tags, visited)
			}
		}
	}
}

// deadInspectors finds inspectors requiring a tag nothing ever produces.
// They are flagged at startup instead of letting a zero-progress pass reveal
// them implicitly.
func (r *Resolver) deadInspectors() []ConfigError {
	var errs []ConfigError
	for _, desc := range r.descriptors {
		for _, tag := range desc.Requires {
			if _, root := r.roots[tag]; root {
				continue
			}
			if len(r.producers[tag]) > 0 {
				continue
			}
			errs = append(errs, ConfigError{Kind: ConfigDeadInspector, Inspector: desc.Name, Tag: tag})
		}
	}
	return errs
}

// satisfiableTags computes the fixed point of tags reachable from the
// collector roots: a tag is satisfiable once any inspector whose requirements
// are all satisfiable produces it.
func (r *Resolver) satisfiableTags() map[string]struct{} {
	satisfied := make(map[string]struct{}, len(r.roots))
	for tag := range r.roots {
		satisfied[tag] = struct{}{}
	}
	fired := make(map[string]struct{}, len(r.descriptors))
	for {
		progress := false
		for _, desc := range r.descriptors {
			if _, done := fired[desc.Name]; done {
				continue
			}
			ready := true
			for _, tag := range desc.Requires {
				if _, ok := satisfied[tag]; !ok {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			fired[desc.Name] = struct{}{}
			progress = true
			for _, tag := range desc.Produces {
				satisfied[tag] = struct{}{}
			}
		}
		if !progress {
			return satisfied
		}
	}
}

// detectCycles reports mutual production chains that cannot be satisfied from
// collector-produced tags. Edges run from a consumer to the producers of each
// required tag, but only over tags that never become satisfiable: a tag with
// a producer outside the loop breaks the chain, so only genuine ordering
// deadlocks survive as cycles.
func (r *Resolver) detectCycles() []ConfigError {
	const (
		white = iota
		gray
		black
	)
	satisfied := r.satisfiableTags()
	color := make(map[string]int, len(r.descriptors))
	var stack []string
	var errs []ConfigError
	seen := make(map[string]struct{})

	var visit func(name string)
	visit = func(name string) {
		color[name] = gray
		stack = append(stack, name)
		desc := r.byName[name]
		for _, tag := range desc.Requires {
			if _, ok := satisfied[tag]; ok {
				continue
			}
			for _, producer := range r.producers[tag] {
				switch color[producer] {
				case white:
					visit(producer)
				case gray:
					cycle := extractCycle(stack, producer)
					key := cycleKey(cycle)
					if _, dup := seen[key]; !dup {
						seen[key] = struct{}{}
						errs = append(errs, ConfigError{Kind: ConfigDependencyCycle, Inspector: producer, Cycle: cycle})
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
	}

	for _, desc := range r.descriptors {
		if color[desc.Name] == white {
			visit(desc.Name)
		}
	}
	return errs
}

func extractCycle(stack []string, start string) []string {
	for i, name := range stack {
		if name == start {
			cycle := append([]string(nil), stack[i:]...)
			return append(cycle, start)
		}
	}
	return []string{start, start}
}

// cycleKey normalizes a cycle so the same loop entered from different nodes
// is reported once.
func cycleKey(cycle []string) string {
	if len(cycle) <= 1 {
		return strings.Join(cycle, ">")
	}
	members := append([]string(nil), cycle[:len(cycle)-1]...)
	sort.Strings(members)
	return strings.Join(members, ">")
}
