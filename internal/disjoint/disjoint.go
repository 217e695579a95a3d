// Package disjoint implements a union-find structure over dense integer
// elements. The root of every set is its smallest element, so a set's root
// doubles as its anchor.
package disjoint

// Set is a disjoint-set forest over the elements [0, n).
// It is not safe for concurrent use; each pass owns its own Set.
type Set struct {
	parent []int
	size   []int
}

// New returns a Set of n singletons.
func New(n int) *Set {
	s := &Set{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range s.parent {
		s.parent[i] = i
		s.size[i] = 1
	}
	return s
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return len(s.parent)
}

// Find returns the root of x, compressing the path walked.
func (s *Set) Find(x int) int {
	root := x
	for s.parent[root] != root {
		root = s.parent[root]
	}
	for s.parent[x] != root {
		next := s.parent[x]
		s.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets containing a and b and returns the new root, which
// is the smaller of the two roots.
func (s *Set) Union(a, b int) int {
	ra, rb := s.Find(a), s.Find(b)
	if ra == rb {
		return ra
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	s.parent[rb] = ra
	s.size[ra] += s.size[rb]
	return ra
}

// Same reports whether a and b share a set.
func (s *Set) Same(a, b int) bool {
	return s.Find(a) == s.Find(b)
}

// SizeOf returns the size of the set containing x.
func (s *Set) SizeOf(x int) int {
	return s.size[s.Find(x)]
}

// Groups returns every set with at least minSize members, keyed by root.
// Members are listed in ascending order.
func (s *Set) Groups(minSize int) map[int][]int {
	groups := make(map[int][]int)
	for x := range s.parent {
		r := s.Find(x)
		if s.size[r] < minSize {
			continue
		}
		groups[r] = append(groups[r], x)
	}
	return groups
}

// Roots returns the roots of every set with at least minSize members, in
// ascending order.
func (s *Set) Roots(minSize int) []int {
	var roots []int
	for x := range s.parent {
		if s.parent[x] == x && s.size[x] >= minSize {
			roots = append(roots, x)
		}
	}
	return roots
}
