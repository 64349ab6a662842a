package locale

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/convskills/internal/valuepath"
)

// Bundle is a nested key/value tree of localized strings.
type Bundle map[string]any

// Lookup returns the raw node at a dotted path.
func (b Bundle) Lookup(path string) (any, bool) {
	if b == nil {
		return nil, false
	}
	return valuepath.Get(map[string]any(b), path)
}

// String returns the literal at path. A missing key resolves to the path itself.
func (b Bundle) String(path string) string {
	v, ok := b.Lookup(path)
	if !ok || v == nil {
		return path
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		return path
	default:
		return fmt.Sprint(t)
	}
}

// Strings returns the literal list at path. A scalar entry yields a single
// element list and a missing key yields nil.
func (b Bundle) Strings(path string) []string {
	v, ok := b.Lookup(path)
	if !ok {
		return nil
	}
	items := valuepath.Array(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// Merge deep-merges bundles left to right; later bundles win on key conflicts.
// The inputs are not modified.
func Merge(bundles ...Bundle) Bundle {
	trees := make([]map[string]any, len(bundles))
	for i, b := range bundles {
		trees[i] = b
	}
	return Bundle(valuepath.Merge(trees...))
}

// =============================================================================
// 🧩 Template filling
// =============================================================================

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Fill replaces {{dotted.path}} placeholders with values taken from the
// given tree. Unresolvable placeholders render as empty strings.
func Fill(template string, values any) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	tree := valuepath.Normalize(values)
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholderPattern.FindStringSubmatch(m)[1]
		v, ok := valuepath.Get(tree, key)
		if !ok || v == nil {
			return ""
		}
		switch t := v.(type) {
		case string:
			return t
		case float64:
			if t == float64(int64(t)) {
				return fmt.Sprintf("%d", int64(t))
			}
			return fmt.Sprint(t)
		default:
			return fmt.Sprint(t)
		}
	})
}
