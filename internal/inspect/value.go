// File path: internal/inspect/value.go
package inspect

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ValueKind identifies the variant stored in a Value.
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueNumber ValueKind = "number"
	ValueRecord ValueKind = "record"
)

// Value is the typed payload of a node property. Properties carry analysis
// data rather than flags, so each value is one of a closed set of variants
// instead of an untyped interface. Value equality is what decides whether a
// property write counts as a change.
type Value struct {
	kind   ValueKind
	str    string
	num    float64
	record map[string]string
}

// StringValue wraps a string property value.
func StringValue(s string) Value {
	return Value{kind: ValueString, str: s}
}

// NumberValue wraps a numeric property value.
func NumberValue(n float64) Value {
	return Value{kind: ValueNumber, num: n}
}

// RecordValue wraps a structured property value. The map is copied so later
// mutation by the caller cannot bypass change tracking.
func RecordValue(fields map[string]string) Value {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Value{kind: ValueRecord, record: copied}
}

// ListValue wraps a list of strings as a record keyed by position. It keeps
// import lists and interface lists inside the closed variant set.
func ListValue(items []string) Value {
	fields := make(map[string]string, len(items))
	for i, item := range items {
		fields[fmt.Sprintf("%04d", i)] = item
	}
	return Value{kind: ValueRecord, record: fields}
}

func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload when the value holds one.
func (v Value) Str() (string, bool) {
	if v.kind != ValueString {
		return "", false
	}
	return v.str, true
}

// Num returns the numeric payload when the value holds one.
func (v Value) Num() (float64, bool) {
	if v.kind != ValueNumber {
		return 0, false
	}
	return v.num, true
}

// Record returns a copy of the structured payload when the value holds one.
func (v Value) Record() (map[string]string, bool) {
	if v.kind != ValueRecord {
		return nil, false
	}
	copied := make(map[string]string, len(v.record))
	for k, val := range v.record {
		copied[k] = val
	}
	return copied, true
}

// List reverses ListValue, returning items in positional order.
func (v Value) List() ([]string, bool) {
	record, ok := v.Record()
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, record[k])
	}
	return items, true
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.str == other.str
	case ValueNumber:
		return v.num == other.num
	case ValueRecord:
		if len(v.record) != len(other.record) {
			return false
		}
		for k, val := range v.record {
			if otherVal, ok := other.record[k]; !ok || otherVal != val {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v.num), "0"), ".")
	case ValueRecord:
		keys := make([]string, 0, len(v.record))
		for k := range v.record {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v.record[k]))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

type valueEnvelope struct {
	Kind   ValueKind         `json:"kind"`
	Str    string            `json:"str,omitempty"`
	Num    float64           `json:"num,omitempty"`
	Record map[string]string `json:"record,omitempty"`
}

// MarshalJSON encodes the value with an explicit kind discriminator so
// snapshots survive a round trip without collapsing numbers and strings.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueEnvelope{Kind: v.kind, Str: v.str, Num: v.num, Record: v.record})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var env valueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Kind {
	case ValueString, ValueNumber, ValueRecord:
	default:
		return fmt.Errorf("unknown value kind %q", env.Kind)
	}
	v.kind = env.Kind
	v.str = env.Str
	v.num = env.Num
	v.record = env.Record
	return nil
}
