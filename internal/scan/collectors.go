// File path: internal/scan/collectors.go
package scan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbartelsen/beanshift/internal/inspect"
)

// maxFileBytes bounds how much artifact content is attached to a node.
// EJB 2.x sources and descriptors are small; anything larger is almost
// certainly a binary that inspectors have no use for.
const maxFileBytes = 1 << 20

// DefaultCollectors returns the collectors used for a standard repository
// scan, in registration order.
func DefaultCollectors() []inspect.Collector {
	return []inspect.Collector{
		&FileCollector{},
		&ClassCollector{},
	}
}

// FileCollector emits one file node per textual artifact, carrying the path,
// extension and content as properties.
type FileCollector struct{}

func (c *FileCollector) Spec() inspect.CollectorSpec {
	return inspect.CollectorSpec{Name: "file-collector", Produces: []string{TagFile}}
}

func (c *FileCollector) Collect(ctx context.Context, artifact string) ([]*inspect.Node, error) {
	data, err := os.ReadFile(artifact)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", artifact, err)
	}
	if len(data) > maxFileBytes || bytes.IndexByte(data, 0) >= 0 {
		return nil, nil
	}
	node := inspect.NewNode(normalizeID(artifact), inspect.KindFile).
		SeedTag(TagFile).
		SeedProperty(PropPath, inspect.StringValue(filepath.ToSlash(artifact))).
		SeedProperty(PropExtension, inspect.StringValue(extension(artifact))).
		SeedProperty(PropContent, inspect.StringValue(string(data)))
	return []*inspect.Node{node}, nil
}

// ClassCollector emits one class node per top-level Java type, identified by
// its fully qualified name. Structural facts (package, superclass,
// interfaces, imports) are seeded as properties so downstream inspectors
// never reparse the source.
type ClassCollector struct{}

func (c *ClassCollector) Spec() inspect.CollectorSpec {
	return inspect.CollectorSpec{Name: "class-collector", Produces: []string{TagClass}}
}

func (c *ClassCollector) Collect(ctx context.Context, artifact string) ([]*inspect.Node, error) {
	if extension(artifact) != "java" {
		return nil, nil
	}
	data, err := os.ReadFile(artifact)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", artifact, err)
	}
	unit, err := parseJavaUnit(ctx, data)
	if err != nil {
		return nil, err
	}
	var nodes []*inspect.Node
	for _, javaType := range unit.Types {
		if strings.TrimSpace(javaType.Name) == "" {
			continue
		}
		qualified := javaType.Name
		if unit.Package != "" {
			qualified = unit.Package + "." + javaType.Name
		}
		node := inspect.NewNode(qualified, inspect.KindClass).
			SeedTag(TagClass).
			SeedProperty(PropPath, inspect.StringValue(filepath.ToSlash(artifact))).
			SeedProperty(PropPackage, inspect.StringValue(unit.Package)).
			SeedProperty(PropClassName, inspect.StringValue(javaType.Name)).
			SeedProperty(PropQualifiedName, inspect.StringValue(qualified)).
			SeedProperty(PropImports, inspect.ListValue(unit.Imports)).
			SeedProperty(PropInterfaces, inspect.ListValue(javaType.Interfaces))
		if javaType.Superclass != "" {
			node.SeedProperty(PropSuperclass, inspect.StringValue(javaType.Superclass))
		}
		if javaType.IsInterface {
			node.SeedProperty(PropIsInterface, inspect.StringValue("true"))
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
