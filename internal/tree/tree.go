// Package tree models the merge history of a transcript group as a binary
// tree. Leaves wrap a single target index; every internal node is created
// once, when two groups merge, and owns its two children exclusively.
//
// All traversals are iterative so that arbitrarily deep trees (long chains
// of single-transcript merges) never exhaust the goroutine stack.
package tree

import (
	"strconv"
)

// Node is a leaf or an internal node of a merge tree.
type Node struct {
	target int
	left   *Node
	right  *Node
	anchor int
	size   int
}

// Leaf returns a leaf for target t.
func Leaf(t int) *Node {
	return &Node{target: t, anchor: t, size: 1}
}

// Join returns an internal node owning left and right. The caller must not
// reuse either child in another tree.
func Join(left, right *Node) *Node {
	return &Node{
		target: -1,
		left:   left,
		right:  right,
		anchor: min(left.anchor, right.anchor),
		size:   left.size + right.size,
	}
}

// IsLeaf reports whether n wraps a single target.
func (n *Node) IsLeaf() bool {
	return n.left == nil
}

// Target returns the target index of a leaf, or -1 for internal nodes.
func (n *Node) Target() int {
	return n.target
}

// Left returns the left child, nil for leaves.
func (n *Node) Left() *Node {
	return n.left
}

// Right returns the right child, nil for leaves.
func (n *Node) Right() *Node {
	return n.right
}

// Anchor returns the lowest target index under n.
func (n *Node) Anchor() int {
	return n.anchor
}

// Size returns the number of leaves under n.
func (n *Node) Size() int {
	return n.size
}

// Walk calls fn for n and every descendant in pre-order, left before right.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)
		if !cur.IsLeaf() {
			stack = append(stack, cur.right, cur.left)
		}
	}
}

// Leaves returns the target indices under n in left-to-right order.
func (n *Node) Leaves() []int {
	out := make([]int, 0, n.size)
	Walk(n, func(c *Node) {
		if c.IsLeaf() {
			out = append(out, c.target)
		}
	})
	return out
}

// ID returns the canonical id of n: its leaf indices sorted numerically and
// joined with underscores. Swapping children never changes it.
func (n *Node) ID() string {
	return CanonicalID(n.Leaves())
}

// Newick renders n as a bracketed tree terminated by a semicolon, e.g.
// "((1,2),3);". A leaf renders as "3;".
func (n *Node) Newick() string {
	return string(append(n.AppendBody(nil), ';'))
}

// AppendBody appends the Newick rendering of n without the trailing
// semicolon.
func (n *Node) AppendBody(buf []byte) []byte {
	// An item with a nil node emits lit.
	type item struct {
		node *Node
		lit  byte
	}
	stack := []item{{node: n}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch {
		case it.node == nil:
			buf = append(buf, it.lit)
		case it.node.IsLeaf():
			buf = strconv.AppendInt(buf, int64(it.node.target), 10)
		default:
			stack = append(stack,
				item{lit: ')'},
				item{node: it.node.right},
				item{lit: ','},
				item{node: it.node.left},
				item{lit: '('},
			)
		}
	}
	return buf
}

// Equal reports whether a and b have the same shape and leaves, child order
// included.
func Equal(a, b *Node) bool {
	type pair struct{ a, b *Node }
	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a == nil || p.b == nil {
			if p.a != p.b {
				return false
			}
			continue
		}
		if p.a.IsLeaf() != p.b.IsLeaf() || p.a.size != p.b.size {
			return false
		}
		if p.a.IsLeaf() {
			if p.a.target != p.b.target {
				return false
			}
			continue
		}
		stack = append(stack, pair{p.a.left, p.b.left}, pair{p.a.right, p.b.right})
	}
	return true
}

// Bipartitions maps a group id to the occurrence count of each internal
// node id (sub-bipartition) seen under that group.
type Bipartitions map[string]map[string]uint32

// Tally counts every internal node of n, the root included, into counts.
// Leaves carry no split information and are skipped.
func Tally(n *Node, counts map[string]uint32) {
	Walk(n, func(c *Node) {
		if !c.IsLeaf() {
			counts[c.ID()]++
		}
	})
}

// Add tallies the group tree n under its own id.
func (b Bipartitions) Add(n *Node) {
	id := n.ID()
	counts, ok := b[id]
	if !ok {
		counts = make(map[string]uint32)
		b[id] = counts
	}
	Tally(n, counts)
}

// Merge sums other into b under key.
func (b Bipartitions) Merge(key string, other map[string]uint32) {
	counts, ok := b[key]
	if !ok {
		counts = make(map[string]uint32, len(other))
		b[key] = counts
	}
	for sub, c := range other {
		counts[sub] += c
	}
}
