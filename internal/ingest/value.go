package ingest

import (
	"encoding/json"
	"strings"
)

// Kind discriminates the two shapes a record field can take.
type Kind int

const (
	// KindText is a single text value. Everything the parser produces is text.
	KindText Kind = iota
	// KindList is an ordered list of text values, used for multi-valued
	// fields such as Infoblox extensible attributes.
	KindList
)

// Value is a tagged variant holding either a single text value or a list of
// text values. The shape is fixed at construction; callers never need to
// inspect a field dynamically to re-serialize it.
type Value struct {
	kind Kind
	text string
	list []string
}

// Text returns a single-valued Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// List returns a list-valued Value. The slice is copied.
func List(vs ...string) Value {
	return Value{kind: KindList, list: append([]string(nil), vs...)}
}

// Kind reports whether the value is text or list shaped.
func (v Value) Kind() Kind { return v.kind }

// String renders the value as text. List values join with commas.
func (v Value) String() string {
	if v.kind == KindList {
		return strings.Join(v.list, ",")
	}
	return v.text
}

// Items returns the list elements, or a single-element slice for text values.
func (v Value) Items() []string {
	if v.kind == KindList {
		return append([]string(nil), v.list...)
	}
	return []string{v.text}
}

// IsEmpty reports whether the value carries no data.
func (v Value) IsEmpty() bool {
	if v.kind == KindList {
		return len(v.list) == 0
	}
	return v.text == ""
}

// Equal compares two values by kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindText {
		return v.text == o.text
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes text values as JSON strings and list values as JSON
// arrays, so persisted records keep their shape.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindList {
		return json.Marshal(v.list)
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON restores the variant from its JSON encoding.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Text(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*v = Value{kind: KindList, list: list}
	return nil
}

// Record is one data row: a mapping from schema field name to value.
// Records are immutable once handed to a sink.
type Record map[string]Value

// Equal compares two records field by field.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for k, v := range r {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
