// Package valuepath resolves dotted paths ("a.b.0.c") against decoded JSON/YAML trees.
package valuepath

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Get walks root along path. Map keys are matched exactly, slice elements by
// decimal index. Structs and other typed values met on the way are normalized
// through a JSON round trip.
func Get(root any, path string) (any, bool) {
	if path == "" {
		return root, root != nil
	}
	cur := Normalize(root)
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = Normalize(next)
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = Normalize(node[idx])
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the value at path when it is a string.
func GetString(root any, path string) string {
	v, ok := Get(root, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Normalize converts v into the plain map/slice/scalar shape produced by
// encoding/json. Values that are already plain are returned unchanged.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64, int, int64, map[string]any, []any:
		return t
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// Array returns v as a slice: nil becomes empty, a slice is returned as is
// and any other value is wrapped.
func Array(v any) []any {
	switch t := Normalize(v).(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// Merge deep-merges trees left to right into a new map; later trees win on
// scalar conflicts and nested maps are merged key by key. Inputs are not
// modified.
func Merge(trees ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, t := range trees {
		mergeInto(out, t)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, ok := Normalize(v).(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		mergeInto(dstMap, srcMap)
	}
}
