// Package record holds the loosely typed rows returned by remote providers and
// the dotted field paths used to read values out of them.
package record

import (
	"fmt"
	"strings"
)

// IDField is the identifier column every provider row carries.
const IDField = "Id"

// Record is a single row keyed by field name. Relationship hops are nested
// records (or plain maps when decoded from JSON).
type Record map[string]any

// ID returns the row identifier, or "" when absent.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	return Stringify(r[IDField])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AsRecord converts a nested relationship value into a Record.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, m != nil
	case map[string]any:
		return Record(m), m != nil
	default:
		return nil, false
	}
}

// FieldPath is a dotted reference into a record, e.g. "Account.Owner.Name".
type FieldPath []string

// ParsePath splits a dotted path. Surrounding whitespace is trimmed.
func ParsePath(s string) FieldPath {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return FieldPath(strings.Split(s, "."))
}

// String joins the segments back into dotted form.
func (p FieldPath) String() string {
	return strings.Join(p, ".")
}

// IsDotted reports whether the path traverses a relationship.
func (p FieldPath) IsDotted() bool {
	return len(p) > 1
}

// Resolve walks the path against rec. Each segment is looked up on the value
// produced by the previous one; an absent or non-record intermediate value
// ends the walk with ok == false.
func (p FieldPath) Resolve(rec Record) (any, bool) {
	if len(p) == 0 || rec == nil {
		return nil, false
	}
	cur := rec
	for i, seg := range p {
		v, ok := cur[seg]
		if !ok || v == nil {
			return nil, false
		}
		if i == len(p)-1 {
			return v, true
		}
		next, ok := AsRecord(v)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// ParseFieldList splits a comma separated display field list, trimming each
// entry and dropping empty ones.
func ParseFieldList(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Stringify renders a field value for display. nil becomes "".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
