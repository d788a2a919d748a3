// File path: internal/scan/filetype.go
package scan

import (
	"context"
	"strings"

	"github.com/mbartelsen/beanshift/internal/inspect"
)

// DefaultInspectors returns the standard inspector set, in registration
// order. The order never affects converged results; it only decides logging
// order within a pass.
func DefaultInspectors() []inspect.Inspector {
	return []inspect.Inspector{
		&FileTypeInspector{},
		&ImportsInspector{},
		&DescriptorInspector{},
		&BeanKindInspector{},
		&RemotingInspector{},
		&CandidateInspector{},
	}
}

// FileTypeInspector is the root-level detector: it has no required tags, so
// it is eligible on every file node, and its produced tags gate the rest of
// the file-side cascade.
type FileTypeInspector struct{}

func (i *FileTypeInspector) Descriptor() inspect.Descriptor {
	return inspect.Descriptor{
		Name:     "file-type",
		Produces: []string{TagJavaSource, TagXML, TagJSP, TagProperties},
		Kinds:    []inspect.Kind{inspect.KindFile},
	}
}

func (i *FileTypeInspector) Inspect(ctx context.Context, node *inspect.Node, eff *inspect.Effects) error {
	switch node.PropertyString(PropExtension) {
	case "java":
		return eff.SetTag(TagJavaSource)
	case "xml":
		return eff.SetTag(TagXML)
	case "jsp":
		return eff.SetTag(TagJSP)
	case "properties":
		return eff.SetTag(TagProperties)
	}
	return nil
}

// ImportsInspector flags Java sources that declare imports.
type ImportsInspector struct{}

func (i *ImportsInspector) Descriptor() inspect.Descriptor {
	return inspect.Descriptor{
		Name:     "imports",
		Requires: []string{TagJavaSource},
		Produces: []string{TagHasImports},
		Kinds:    []inspect.Kind{inspect.KindFile},
	}
}

func (i *ImportsInspector) Inspect(ctx context.Context, node *inspect.Node, eff *inspect.Effects) error {
	content := node.PropertyString(PropContent)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "import ") {
			return eff.SetTag(TagHasImports)
		}
	}
	return nil
}
