package rtdb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Snapshot is the immutable value of a path at one instant.
//
// A snapshot of an absent path has Exists() == false and decodes as the
// zero value of the target.
type Snapshot struct {
	path  string
	value any
}

// NewSnapshot builds a snapshot from an already-decoded JSON value.
// Tests and the simulator use it; stores build snapshots themselves.
func NewSnapshot(path string, value any) (Snapshot, error) {
	v, err := normalize(value)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{path: CleanPath(path), value: v}, nil
}

// Path returns the store path this snapshot was taken at.
func (s Snapshot) Path() string { return s.path }

// Key returns the last path segment ("" for the root).
func (s Snapshot) Key() string {
	segs := splitPath(s.path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Exists reports whether the path holds a value.
func (s Snapshot) Exists() bool { return s.value != nil }

// Value returns the raw decoded JSON value. Callers must not modify it.
func (s Snapshot) Value() any { return s.value }

// Decode unmarshals the value into v using encoding/json rules.
// An absent value leaves v untouched.
func (s Snapshot) Decode(v any) error {
	if s.value == nil {
		return nil
	}
	b, err := json.Marshal(s.value)
	if err != nil {
		return fmt.Errorf("rtdb: re-encoding %q: %w", s.path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("rtdb: decoding %q: %w", s.path, err)
	}
	return nil
}

// Child returns the snapshot of a relative path.
func (s Snapshot) Child(rel string) Snapshot {
	return Snapshot{
		path:  JoinPath(s.path, rel),
		value: getAt(s.value, splitPath(rel)),
	}
}

// Keys returns the child keys in lexicographic order. Arrays yield the
// indexes of their non-null elements.
func (s Snapshot) Keys() []string {
	var keys []string
	switch t := s.value.(type) {
	case map[string]any:
		keys = make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	case []any:
		for i, v := range t {
			if v != nil {
				keys = append(keys, strconv.Itoa(i))
			}
		}
	}
	return keys
}

// Children returns the child snapshots in Keys order.
func (s Snapshot) Children() []Snapshot {
	keys := s.Keys()
	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Child(k))
	}
	return out
}

// Text returns the value if it is a string.
func (s Snapshot) Text() (string, bool) {
	v, ok := s.value.(string)
	return v, ok
}

// Float returns the value as a number. JSON numbers and numeric strings
// are accepted; sensor firmware is not consistent about which it sends.
func (s Snapshot) Float() (float64, bool) {
	switch t := s.value.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the value if it is a boolean.
func (s Snapshot) Bool() (bool, bool) {
	v, ok := s.value.(bool)
	return v, ok
}
