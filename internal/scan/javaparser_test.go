// File path: internal/scan/javaparser_test.go
package scan

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const orderBeanSource = `package com.acme.orders;

import javax.ejb.SessionBean;
import javax.ejb.SessionContext;
import java.util.*;

public class OrderBean extends BaseBean implements SessionBean, java.io.Serializable {

    private SessionContext ctx;

    public void setSessionContext(SessionContext ctx) {
        this.ctx = ctx;
    }

    public List findOrders(String customerId) {
        return new ArrayList();
    }
}
`

const orderHomeSource = `package com.acme.orders;

import javax.ejb.EJBHome;

public interface OrderHome extends EJBHome {
    Order create() throws javax.ejb.CreateException;
}
`

func TestParseJavaUnitClass(t *testing.T) {
	unit, err := parseJavaUnit(context.Background(), []byte(orderBeanSource))
	if err != nil {
		t.Fatalf("parseJavaUnit: %v", err)
	}
	if unit.Package != "com.acme.orders" {
		t.Fatalf("package = %q", unit.Package)
	}
	wantImports := []string{"javax.ejb.SessionBean", "javax.ejb.SessionContext", "java.util.*"}
	if diff := cmp.Diff(wantImports, unit.Imports); diff != "" {
		t.Fatalf("imports mismatch (-want +got):\n%s", diff)
	}
	if len(unit.Types) != 1 {
		t.Fatalf("got %d types, want 1", len(unit.Types))
	}
	jt := unit.Types[0]
	if jt.Name != "OrderBean" || jt.IsInterface {
		t.Fatalf("type = %+v", jt)
	}
	if jt.Superclass != "BaseBean" {
		t.Fatalf("superclass = %q", jt.Superclass)
	}
	wantInterfaces := []string{"SessionBean", "java.io.Serializable"}
	if diff := cmp.Diff(wantInterfaces, jt.Interfaces); diff != "" {
		t.Fatalf("interfaces mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJavaUnitInterface(t *testing.T) {
	unit, err := parseJavaUnit(context.Background(), []byte(orderHomeSource))
	if err != nil {
		t.Fatalf("parseJavaUnit: %v", err)
	}
	if len(unit.Types) != 1 {
		t.Fatalf("got %d types, want 1", len(unit.Types))
	}
	jt := unit.Types[0]
	if jt.Name != "OrderHome" || !jt.IsInterface {
		t.Fatalf("type = %+v", jt)
	}
	if diff := cmp.Diff([]string{"EJBHome"}, jt.Interfaces); diff != "" {
		t.Fatalf("extends mismatch (-want +got):\n%s", diff)
	}
}

func TestQualifyType(t *testing.T) {
	imports := []string{"javax.ejb.SessionBean", "java.util.List"}
	cases := []struct {
		name    string
		imports []string
		want    string
	}{
		{"SessionBean", imports, "javax.ejb.SessionBean"},
		{"javax.ejb.EntityBean", imports, "javax.ejb.EntityBean"},
		{"Unknown", imports, "Unknown"},
		{"EntityBean", []string{"javax.ejb.*"}, "javax.ejb.EntityBean"},
		{"Widget", []string{"com.acme.*"}, "Widget"},
	}
	for _, tc := range cases {
		if got := qualifyType(tc.name, tc.imports); got != tc.want {
			t.Errorf("qualifyType(%q, %v) = %q, want %q", tc.name, tc.imports, got, tc.want)
		}
	}
}
