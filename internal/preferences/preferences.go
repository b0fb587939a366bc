// Package preferences holds the partner-preference answer set of a profile and
// encodes it into "questionKey:value" keywords used for compatibility scoring.
package preferences

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is one answer: either a single scalar or an ordered list of scalars.
type Value struct {
	items []string
	list  bool
}

// Scalar builds a single-valued answer.
func Scalar(v string) Value {
	return Value{items: []string{v}}
}

// List builds a multi-valued answer.
func List(vs ...string) Value {
	items := make([]string, len(vs))
	copy(items, vs)
	return Value{items: items, list: true}
}

func (v Value) IsList() bool { return v.list }

// Values returns the answers in their original order.
func (v Value) Values() []string {
	out := make([]string, len(v.items))
	copy(out, v.items)
	return out
}

func (v Value) IsEmpty() bool { return len(v.items) == 0 }

func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		if v.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.items)
	}
	if len(v.items) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(v.items[0])
}

// UnmarshalJSON accepts strings, numbers and booleans (kept verbatim), arrays of
// those, and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			s, ok, err := decodeScalar(r)
			if err != nil {
				return err
			}
			if ok {
				items = append(items, s)
			}
		}
		*v = Value{items: items, list: true}
		return nil
	}

	s, ok, err := decodeScalar(data)
	if err != nil {
		return err
	}
	if !ok {
		*v = Value{}
		return nil
	}
	*v = Scalar(s)
	return nil
}

func decodeScalar(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return "", false, nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case data[0] == '{' || data[0] == '[':
		return "", false, fmt.Errorf("preferences: nested value %s is not supported", data)
	default:
		// numbers and booleans
		return string(data), true, nil
	}
}

// Map is a full answer set keyed by question.
type Map map[string]Value

// IsEmpty reports whether the set carries no usable answer.
func (m Map) IsEmpty() bool {
	for _, v := range m {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

// KeywordSet is a set of "questionKey:value" tokens.
type KeywordSet map[string]struct{}

func (s KeywordSet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// Intersect returns the number of keywords present in both sets.
func (s KeywordSet) Intersect(other KeywordSet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for k := range small {
		if large.Has(k) {
			n++
		}
	}
	return n
}

// Keywords encodes an answer set; one keyword per scalar or per list element.
func Keywords(m Map) KeywordSet {
	set := make(KeywordSet)
	for key, value := range m {
		for _, item := range value.items {
			set[keyword(key, item)] = struct{}{}
		}
	}
	return set
}

func keyword(key, value string) string {
	var b strings.Builder
	b.Grow(len(key) + len(value) + 1)
	b.WriteString(key)
	b.WriteByte(':')
	b.WriteString(value)
	return b.String()
}
