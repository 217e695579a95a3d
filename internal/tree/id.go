package tree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// CanonicalID sorts ids numerically and joins them with underscores.
// The input slice is left untouched.
func CanonicalID(ids []int) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	buf := make([]byte, 0, len(sorted)*4)
	for i, id := range sorted {
		if i > 0 {
			buf = append(buf, '_')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return string(buf)
}

// ParseID splits an underscore-joined id into target indices, in the order
// they appear.
func ParseID(id string) ([]int, error) {
	if id == "" {
		return nil, fmt.Errorf("empty group id")
	}
	parts := strings.Split(id, "_")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("group id %q: invalid target %q", id, p)
		}
		out[i] = v
	}
	return out, nil
}

// SortID rewrites an id in canonical (numerically sorted) form.
func SortID(id string) (string, error) {
	ids, err := ParseID(id)
	if err != nil {
		return "", err
	}
	return CanonicalID(ids), nil
}
