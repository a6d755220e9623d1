package records

import (
	"strconv"
	"strings"
)

// DefaultSeparator joins path segments in flattened keys.
const DefaultSeparator = "_"

// recordListCap bounds how many elements of a nested record sequence are
// expanded into columns. Longer sequences get a single "<key>_count" column
// instead of unbounded row width. Intentional product rule; do not raise.
const recordListCap = 3

// Flatten converts a nested record into a flat row whose keys are path
// segments joined by sep. Key order follows the source record. The result
// contains only leaf scalars:
//
//   - nested records recurse with the key appended to the prefix
//   - an empty sequence flattens to nil
//   - a sequence of records expands its first three elements with 0-based
//     index segments, plus a "_count" entry when there are more than three
//   - any other sequence is joined into one ", "-separated string
//   - scalars (including nil) pass through unchanged
//
// Flatten is pure: it never modifies its input and is deterministic.
func Flatten(r *Record, prefix, sep string) *Record {
	out := NewRecord()
	flattenInto(out, r, prefix, sep)
	return out
}

// FlattenRecord flattens with no prefix and the default separator.
func FlattenRecord(r *Record) *Record {
	return Flatten(r, "", DefaultSeparator)
}

func flattenInto(out, r *Record, prefix, sep string) {
	for _, key := range r.Keys() {
		v, _ := r.Get(key)

		newKey := key
		if prefix != "" {
			newKey = prefix + sep + key
		}

		switch t := v.(type) {
		case *Record:
			flattenInto(out, t, newKey, sep)
		case []any:
			flattenList(out, t, newKey, sep)
		default:
			out.Set(newKey, v)
		}
	}
}

func flattenList(out *Record, list []any, key, sep string) {
	if len(list) == 0 {
		out.Set(key, nil)
		return
	}

	if allRecords(list) {
		limit := len(list)
		if limit > recordListCap {
			limit = recordListCap
		}
		for i := 0; i < limit; i++ {
			flattenInto(out, list[i].(*Record), key+sep+strconv.Itoa(i), sep)
		}
		if len(list) > recordListCap {
			out.Set(key+sep+"count", len(list))
		}
		return
	}

	parts := make([]string, len(list))
	for i, el := range list {
		parts[i] = Stringify(el)
	}
	out.Set(key, strings.Join(parts, ", "))
}

func allRecords(list []any) bool {
	for _, el := range list {
		if _, ok := el.(*Record); !ok {
			return false
		}
	}
	return true
}
