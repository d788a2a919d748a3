// File path: internal/inspect/value_test.go
package inspect

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal strings", StringValue("x"), StringValue("x"), true},
		{"different strings", StringValue("x"), StringValue("y"), false},
		{"equal numbers", NumberValue(1.5), NumberValue(1.5), true},
		{"different kinds", StringValue("1.5"), NumberValue(1.5), false},
		{"equal records", RecordValue(map[string]string{"a": "1"}), RecordValue(map[string]string{"a": "1"}), true},
		{"different records", RecordValue(map[string]string{"a": "1"}), RecordValue(map[string]string{"a": "2"}), false},
		{"equal lists", ListValue([]string{"a", "b"}), ListValue([]string{"a", "b"}), true},
		{"different list order", ListValue([]string{"a", "b"}), ListValue([]string{"b", "a"}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Fatalf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestListValuePreservesOrder(t *testing.T) {
	items := []string{"gamma", "alpha", "beta"}
	value := ListValue(items)
	got, ok := value.List()
	if !ok {
		t.Fatalf("List() reported not a list")
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Fatalf("list order mismatch (-want +got):\n%s", diff)
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	original := RecordValue(map[string]string{"class": "CustomerBean", "kind": "session"})
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !original.Equal(decoded) {
		t.Fatalf("round trip mismatch: %v != %v", original, decoded)
	}
	if decoded.Kind() != ValueRecord {
		t.Fatalf("kind = %q, want %q", decoded.Kind(), ValueRecord)
	}
}
