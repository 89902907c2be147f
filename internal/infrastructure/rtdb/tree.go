package rtdb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Trees are decoded JSON values (map[string]any, []any, float64, string,
// bool). They are never mutated in place: every write copies the maps on
// the path from the root, so a value handed to a subscriber stays valid.

// normalize converts v into the tree representation by a JSON round trip
// and prunes null leaves and empty objects, which the store does not keep.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return prune(out), nil
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			if p := prune(c); p != nil {
				out[k] = p
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, len(t))
		empty := true
		for i, c := range t {
			out[i] = prune(c)
			if out[i] != nil {
				empty = false
			}
		}
		if empty {
			return nil
		}
		return out
	default:
		return v
	}
}

func child(node any, key string) any {
	switch t := node.(type) {
	case map[string]any:
		return t[key]
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(t) {
			return nil
		}
		return t[i]
	default:
		return nil
	}
}

func getAt(root any, segs []string) any {
	node := root
	for _, s := range segs {
		node = child(node, s)
		if node == nil {
			return nil
		}
	}
	return node
}

// asMap returns a writable copy of node as an object. Arrays become
// objects keyed by index, matching how the store treats them.
func asMap(node any) map[string]any {
	switch t := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(t)+1)
		for k, v := range t {
			out[k] = v
		}
		return out
	case []any:
		out := make(map[string]any, len(t)+1)
		for i, v := range t {
			if v != nil {
				out[strconv.Itoa(i)] = v
			}
		}
		return out
	default:
		return map[string]any{}
	}
}

// setAt returns a new tree with value placed at segs. A nil value deletes
// the key and prunes parents left empty.
func setAt(root any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	m := asMap(root)
	next := setAt(child(root, segs[0]), segs[1:], value)
	if next == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = next
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// patchAt applies a multi-location update relative to segs. Keys of
// patch may themselves be slash-separated paths.
func patchAt(root any, segs []string, patch map[string]any) any {
	for k, v := range patch {
		full := append(append([]string{}, segs...), splitPath(k)...)
		root = setAt(root, full, prune(v))
	}
	return root
}
