// File path: internal/scan/beankind.go
package scan

import (
	"context"
	"strings"

	"github.com/mbartelsen/beanshift/internal/inspect"
)

// ejbContracts maps javax.ejb lifecycle interfaces to the bean kind they
// imply for an implementing class.
var ejbContracts = map[string]struct {
	tag  string
	kind string
}{
	"javax.ejb.SessionBean":       {TagSessionBean, "session"},
	"javax.ejb.EntityBean":        {TagEntityBean, "entity"},
	"javax.ejb.MessageDrivenBean": {TagMessageDriven, "message-driven"},
}

// BeanKindInspector classifies class nodes by the EJB 2.x lifecycle
// interface they implement. Interface names may appear fully qualified in
// the implements clause, or as simple names resolved through the unit's
// imports.
type BeanKindInspector struct{}

func (i *BeanKindInspector) Descriptor() inspect.Descriptor {
	return inspect.Descriptor{
		Name:       "bean-kind",
		Requires:   []string{TagClass},
		Produces:   []string{TagSessionBean, TagEntityBean, TagMessageDriven},
		Properties: []string{PropBeanKind},
		Kinds:      []inspect.Kind{inspect.KindClass},
	}
}

func (i *BeanKindInspector) Inspect(ctx context.Context, node *inspect.Node, eff *inspect.Effects) error {
	interfaces := resolvedTypeNames(node, PropInterfaces)
	for _, iface := range interfaces {
		contract, ok := ejbContracts[iface]
		if !ok {
			continue
		}
		if err := eff.SetTag(contract.tag); err != nil {
			return err
		}
		if err := eff.SetProperty(PropBeanKind, inspect.StringValue(contract.kind)); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// resolvedTypeNames reads a list-valued property of type names and qualifies
// simple names against the node's import list.
func resolvedTypeNames(node *inspect.Node, key string) []string {
	value, ok := node.Property(key)
	if !ok {
		return nil
	}
	names, ok := value.List()
	if !ok {
		return nil
	}
	var imports []string
	if imported, ok := node.Property(PropImports); ok {
		imports, _ = imported.List()
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, qualifyType(name, imports))
	}
	return out
}

// qualifyType resolves a simple type name through explicit imports. A name
// that is already qualified passes through; a simple name with no matching
// import is assumed to live in javax.ejb only when a javax.ejb wildcard
// import is present.
func qualifyType(name string, imports []string) string {
	if strings.Contains(name, ".") {
		return name
	}
	for _, imported := range imports {
		if strings.HasSuffix(imported, "."+name) {
			return imported
		}
	}
	for _, imported := range imports {
		if strings.HasSuffix(imported, ".*") {
			prefix := strings.TrimSuffix(imported, "*")
			if strings.HasPrefix(prefix, "javax.ejb") {
				return prefix + name
			}
		}
	}
	return name
}
