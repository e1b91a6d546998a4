// Package records defines the nested key/value tree built from a single CSV
// data row. Dotted header paths such as "name.firstName" address nested
// Records; leaves are strings for parsed cells or Undefined for header
// positions the row never reached.
package records

import (
	"encoding/json"
	"strings"
)

// Record is one parsed row. Values are string, Undefined, or a nested Record.
// Records handed in from other sources (JSON, normalized output fed back in)
// may also carry numbers, bools, nil, []any or map[string]any; every accessor
// in this package tolerates those shapes.
type Record map[string]any

// Missing is the type of Undefined.
type Missing struct{}

// Undefined marks a header whose data row was too short to supply a value.
var Undefined = Missing{}

// String renders the placeholder the way it surfaces in joined text.
func (Missing) String() string { return "undefined" }

// MarshalJSON renders a stray Undefined as null. Record.MarshalJSON drops
// Undefined keys entirely, so this only matters inside foreign containers.
func (Missing) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// IsUndefined reports whether v is the Undefined placeholder.
func IsUndefined(v any) bool {
	_, ok := v.(Missing)
	return ok
}

// Path is an ordered list of non-empty field names.
type Path []string

// ParsePath splits a header on "." and drops empty segments. A header without
// any non-empty segment is kept verbatim as a single-segment path.
func ParsePath(header string) Path {
	parts := strings.Split(header, ".")
	out := make(Path, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return Path{header}
	}
	return out
}

// String joins the path back with dots.
func (p Path) String() string { return strings.Join(p, ".") }

// Nested reports whether the path addresses a field below the top level.
func (p Path) Nested() bool { return len(p) > 1 }

// Set writes v at path, creating intermediate Records as needed. A non-record
// value sitting where an intermediate Record is required is replaced.
func (r Record) Set(path Path, v any) {
	if len(path) == 0 {
		return
	}
	cur := r
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg].(Record)
		if !ok {
			if m, isMap := cur[seg].(map[string]any); isMap {
				next = Record(m)
			} else {
				next = Record{}
			}
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = v
}

// Get walks path through nested Records (or map[string]any) and returns the
// value found there. ok is false when any segment is absent or a non-map value
// is encountered before the end of the path.
func (r Record) Get(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = r
	for _, seg := range path {
		m, ok := AsRecord(cur)
		if !ok {
			return nil, false
		}
		v, found := m[seg]
		if !found {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// AsRecord returns v as a Record when it is a Record or a map[string]any.
func AsRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, t != nil
	case map[string]any:
		return Record(t), t != nil
	default:
		return nil, false
	}
}

// Clone returns a deep copy. Nested map[string]any values come back as Records.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return Record(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the record as a JSON object, leaving out keys whose
// value is Undefined.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if IsUndefined(v) {
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}
