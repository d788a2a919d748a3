// File path: internal/scan/remoting.go
package scan

import (
	"context"

	"github.com/mbartelsen/beanshift/internal/inspect"
)

// remotingContracts maps javax.ejb component interfaces to the tag implied
// for an interface extending them.
var remotingContracts = map[string]string{
	"javax.ejb.EJBHome":        TagEJBHome,
	"javax.ejb.EJBLocalHome":   TagEJBHome,
	"javax.ejb.EJBObject":      TagEJBRemote,
	"javax.ejb.EJBLocalObject": TagEJBRemote,
}

// RemotingInspector tags home and component interfaces of EJB 2.x beans.
// These interfaces disappear entirely in a Spring migration, so downstream
// reporting needs them called out.
type RemotingInspector struct{}

func (i *RemotingInspector) Descriptor() inspect.Descriptor {
	return inspect.Descriptor{
		Name:     "remoting",
		Requires: []string{TagClass},
		Produces: []string{TagEJBHome, TagEJBRemote},
		Kinds:    []inspect.Kind{inspect.KindClass},
	}
}

func (i *RemotingInspector) Inspect(ctx context.Context, node *inspect.Node, eff *inspect.Effects) error {
	if node.PropertyString(PropIsInterface) != "true" {
		return nil
	}
	for _, iface := range resolvedTypeNames(node, PropInterfaces) {
		if tag, ok := remotingContracts[iface]; ok {
			if err := eff.SetTag(tag); err != nil {
				return err
			}
		}
	}
	return nil
}
