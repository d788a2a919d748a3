// File path: internal/scan/javaparser.go
package scan

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// JavaType is one top-level type declaration found in a compilation unit.
type JavaType struct {
	Name        string
	IsInterface bool
	Superclass  string
	Interfaces  []string
}

// JavaUnit is the structural summary of a parsed Java source file.
type JavaUnit struct {
	Package string
	Imports []string
	Types   []JavaType
}

// parseJavaUnit extracts the package clause, imports and top-level type
// declarations from Java source using the tree-sitter grammar. It is a
// structural read only; method bodies are never walked.
func parseJavaUnit(ctx context.Context, source []byte) (*JavaUnit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse java source: %w", err)
	}
	defer tree.Close()

	unit := &JavaUnit{}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				if part.Type() == "scoped_identifier" || part.Type() == "identifier" {
					unit.Package = part.Content(source)
				}
			}
		case "import_declaration":
			imported := importPath(child, source)
			if imported != "" {
				unit.Imports = append(unit.Imports, imported)
			}
		case "class_declaration":
			unit.Types = append(unit.Types, javaTypeFromClass(child, source))
		case "interface_declaration":
			unit.Types = append(unit.Types, javaTypeFromInterface(child, source))
		}
	}
	return unit, nil
}

func importPath(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			path := child.Content(source)
			// wildcard imports keep the trailing asterisk for visibility
			if strings.Contains(node.Content(source), ".*") {
				return path + ".*"
			}
			return path
		}
	}
	return ""
}

func javaTypeFromClass(node *sitter.Node, source []byte) JavaType {
	jt := JavaType{}
	if name := node.ChildByFieldName("name"); name != nil {
		jt.Name = name.Content(source)
	}
	if super := node.ChildByFieldName("superclass"); super != nil {
		types := collectTypeNames(super, source)
		if len(types) > 0 {
			jt.Superclass = types[0]
		}
	}
	if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
		jt.Interfaces = collectTypeNames(ifaces, source)
	}
	return jt
}

func javaTypeFromInterface(node *sitter.Node, source []byte) JavaType {
	jt := JavaType{IsInterface: true}
	if name := node.ChildByFieldName("name"); name != nil {
		jt.Name = name.Content(source)
	}
	// interfaces extend other interfaces; tree-sitter exposes the clause as
	// an extends_interfaces child rather than a field
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "extends_interfaces" {
			jt.Interfaces = collectTypeNames(child, source)
		}
	}
	return jt
}

// collectTypeNames gathers every plain or qualified type name under node.
func collectTypeNames(node *sitter.Node, source []byte) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "type_identifier", "scoped_type_identifier":
			names = append(names, n.Content(source))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)
	return names
}
