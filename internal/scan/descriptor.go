// File path: internal/scan/descriptor.go
package scan

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/mbartelsen/beanshift/internal/inspect"
)

// DescriptorInspector parses ejb-jar.xml deployment descriptors and records
// the declared beans, their transaction attributes and their external
// references as properties on the descriptor's file node. XML files that are
// not EJB descriptors are left untouched.
type DescriptorInspector struct{}

func (i *DescriptorInspector) Descriptor() inspect.Descriptor {
	return inspect.Descriptor{
		Name:     "ejb-descriptor",
		Requires: []string{TagXML},
		Produces: []string{TagEJBDescriptor},
		Properties: []string{
			PropBeanClasses, PropBeanKinds, PropTransactions, PropEJBRefs, PropResourceRefs,
		},
		Kinds: []inspect.Kind{inspect.KindFile},
	}
}

type ejbRefXML struct {
	Name string `xml:"ejb-ref-name"`
	Link string `xml:"ejb-link"`
}

type resourceRefXML struct {
	Name string `xml:"res-ref-name"`
	Type string `xml:"res-type"`
}

type sessionBeanXML struct {
	EJBName         string           `xml:"ejb-name"`
	Home            string           `xml:"home"`
	Remote          string           `xml:"remote"`
	EJBClass        string           `xml:"ejb-class"`
	SessionType     string           `xml:"session-type"`
	TransactionType string           `xml:"transaction-type"`
	EJBRefs         []ejbRefXML      `xml:"ejb-ref"`
	ResourceRefs    []resourceRefXML `xml:"resource-ref"`
}

type entityBeanXML struct {
	EJBName      string           `xml:"ejb-name"`
	Home         string           `xml:"home"`
	Remote       string           `xml:"remote"`
	EJBClass     string           `xml:"ejb-class"`
	Persistence  string           `xml:"persistence-type"`
	PrimKeyClass string           `xml:"prim-key-class"`
	EJBRefs      []ejbRefXML      `xml:"ejb-ref"`
	ResourceRefs []resourceRefXML `xml:"resource-ref"`
}

type messageDrivenXML struct {
	EJBName         string           `xml:"ejb-name"`
	EJBClass        string           `xml:"ejb-class"`
	TransactionType string           `xml:"transaction-type"`
	Destination     string           `xml:"message-driven-destination>destination-type"`
	ResourceRefs    []resourceRefXML `xml:"resource-ref"`
}

type containerTransactionXML struct {
	Methods []struct {
		EJBName    string `xml:"ejb-name"`
		MethodName string `xml:"method-name"`
	} `xml:"method"`
	TransAttribute string `xml:"trans-attribute"`
}

type ejbJarXML struct {
	XMLName       xml.Name                  `xml:"ejb-jar"`
	Session       []sessionBeanXML          `xml:"enterprise-beans>session"`
	Entity        []entityBeanXML           `xml:"enterprise-beans>entity"`
	MessageDriven []messageDrivenXML        `xml:"enterprise-beans>message-driven"`
	Transactions  []containerTransactionXML `xml:"assembly-descriptor>container-transaction"`
}

func (i *DescriptorInspector) Inspect(ctx context.Context, node *inspect.Node, eff *inspect.Effects) error {
	content := node.PropertyString(PropContent)
	if !strings.Contains(content, "<ejb-jar") {
		return nil
	}
	var jar ejbJarXML
	if err := xml.Unmarshal([]byte(content), &jar); err != nil {
		return fmt.Errorf("parse ejb-jar descriptor: %w", err)
	}

	classes := make(map[string]string)
	kinds := make(map[string]string)
	var ejbRefs []string
	var resourceRefs []string

	record := func(name, class, kind string, refs []ejbRefXML, resources []resourceRefXML) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		classes[name] = strings.TrimSpace(class)
		kinds[name] = kind
		for _, ref := range refs {
			target := strings.TrimSpace(ref.Link)
			if target == "" {
				target = strings.TrimSpace(ref.Name)
			}
			if target != "" {
				ejbRefs = append(ejbRefs, name+"->"+target)
			}
		}
		for _, res := range resources {
			if trimmed := strings.TrimSpace(res.Name); trimmed != "" {
				resourceRefs = append(resourceRefs, name+"->"+trimmed)
			}
		}
	}

	for _, bean := range jar.Session {
		kind := "session"
		if strings.EqualFold(strings.TrimSpace(bean.SessionType), "Stateful") {
			kind = "stateful-session"
		}
		record(bean.EJBName, bean.EJBClass, kind, bean.EJBRefs, bean.ResourceRefs)
	}
	for _, bean := range jar.Entity {
		record(bean.EJBName, bean.EJBClass, "entity", bean.EJBRefs, bean.ResourceRefs)
	}
	for _, bean := range jar.MessageDriven {
		record(bean.EJBName, bean.EJBClass, "message-driven", nil, bean.ResourceRefs)
	}
	if len(classes) == 0 {
		return nil
	}

	transactions := make(map[string]string)
	for _, ct := range jar.Transactions {
		attr := strings.TrimSpace(ct.TransAttribute)
		if attr == "" {
			continue
		}
		for _, method := range ct.Methods {
			key := strings.TrimSpace(method.EJBName)
			if key == "" {
				continue
			}
			if method.MethodName != "" && method.MethodName != "*" {
				key = key + "." + strings.TrimSpace(method.MethodName)
			}
			transactions[key] = attr
		}
	}

	if err := eff.SetTag(TagEJBDescriptor); err != nil {
		return err
	}
	if err := eff.SetProperty(PropBeanClasses, inspect.RecordValue(classes)); err != nil {
		return err
	}
	if err := eff.SetProperty(PropBeanKinds, inspect.RecordValue(kinds)); err != nil {
		return err
	}
	if len(transactions) > 0 {
		if err := eff.SetProperty(PropTransactions, inspect.RecordValue(transactions)); err != nil {
			return err
		}
	}
	if len(ejbRefs) > 0 {
		if err := eff.SetProperty(PropEJBRefs, inspect.ListValue(ejbRefs)); err != nil {
			return err
		}
	}
	if len(resourceRefs) > 0 {
		if err := eff.SetProperty(PropResourceRefs, inspect.ListValue(resourceRefs)); err != nil {
			return err
		}
	}
	return nil
}
