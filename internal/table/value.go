package table

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the two shapes a field value can take.
type ValueKind int

const (
	// KindScalar is a plain string value.
	KindScalar ValueKind = iota
	// KindList is an ordered sequence of nested records.
	KindList
)

// Value is a closed variant over {scalar, list of nested records}, so a
// field can hold either a plain string or nested dictionary-like data.
type Value struct {
	Kind ValueKind
	Str  string
	List []Record
}

// Scalar wraps a plain string as a field value.
func Scalar(s string) Value {
	return Value{Kind: KindScalar, Str: s}
}

// ListOf wraps an ordered sequence of nested records as a field value.
func ListOf(recs ...Record) Value {
	return Value{Kind: KindList, List: recs}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	if v.Kind == KindScalar {
		return v
	}
	out := Value{Kind: KindList}
	if v.List != nil {
		out.List = make([]Record, len(v.List))
		for i, rec := range v.List {
			out.List[i] = rec.Clone()
		}
	}
	return out
}

// String renders the value for display.
func (v Value) String() string {
	if v.Kind == KindScalar {
		return v.Str
	}
	data, err := json.Marshal(v.List)
	if err != nil {
		return fmt.Sprintf("%v", v.List)
	}
	return string(data)
}

// MarshalJSON renders a scalar as a JSON string and a list as a JSON array
// of objects, matching the wire shape the HTTP glue accepts.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindScalar {
		return json.Marshal(v.Str)
	}
	if v.List == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.List)
}

// UnmarshalJSON accepts either a JSON string or an array of objects.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Scalar(s)
		return nil
	}
	var list []Record
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("field value must be a string or an array of objects: %w", err)
	}
	*v = Value{Kind: KindList, List: list}
	return nil
}

// Record is one row of a table. Key = field name.
type Record map[string]Value

// Clone creates a deep copy of the record to prevent mutation
// through aliased references.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

// mergeValue applies a changed value on top of the current one.
// When both sides are lists the new entries append onto the existing
// sequence instead of discarding it; everything else is a replacement.
func mergeValue(cur, change Value) Value {
	if cur.Kind == KindList && change.Kind == KindList {
		merged := Value{Kind: KindList, List: make([]Record, 0, len(cur.List)+len(change.List))}
		for _, rec := range cur.List {
			merged.List = append(merged.List, rec.Clone())
		}
		for _, rec := range change.List {
			merged.List = append(merged.List, rec.Clone())
		}
		return merged
	}
	return change.Clone()
}
