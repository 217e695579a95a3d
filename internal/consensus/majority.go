package consensus

import (
	"cmp"
	"context"
	"fmt"
	"math/bits"
	"slices"
	"strconv"
)

// MajorityRule computes an extended majority-rule consensus in process.
// Clusters are counted across the input trees and accepted greedily, most
// frequent first, whenever they are compatible with every cluster accepted
// so far. Each internal node of the result carries its support count as a
// branch length.
type MajorityRule struct{}

var _ Synthesizer = MajorityRule{}

// bitset is a fixed-size set of leaf indices.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int) { b[i/64] |= 1 << (uint(i) % 64) }

func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

func (b bitset) or(o bitset) {
	for i := range b {
		b[i] |= o[i]
	}
}

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b bitset) key() string {
	buf := make([]byte, 0, len(b)*8)
	for _, w := range b {
		for s := 0; s < 64; s += 8 {
			buf = append(buf, byte(w>>s))
		}
	}
	return string(buf)
}

// compatible reports whether a and b are disjoint or nested.
func compatible(a, b bitset) bool {
	var disjoint, aInB, bInA = true, true, true
	for i := range a {
		x := a[i] & b[i]
		if x != 0 {
			disjoint = false
		}
		if x != a[i] {
			aInB = false
		}
		if x != b[i] {
			bInA = false
		}
	}
	return disjoint || aInB || bInA
}

func subset(a, b bitset) bool {
	for i := range a {
		if a[i]&^b[i] != 0 {
			return false
		}
	}
	return true
}

type cluster struct {
	bits  bitset
	size  int
	count int
	first int // lowest leaf index
}

// Synthesize implements Synthesizer.
func (MajorityRule) Synthesize(ctx context.Context, trees []string) (string, error) {
	if len(trees) == 0 {
		return "", fmt.Errorf("no input trees")
	}
	clades := make([]*Clade, len(trees))
	for i, t := range trees {
		c, err := ParseNewick(t)
		if err != nil {
			return "", fmt.Errorf("tree %d: %w", i, err)
		}
		clades[i] = c
	}

	names := clades[0].Leaves()
	slices.SortFunc(names, compareLabels)
	index := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := index[n]; dup {
			return "", fmt.Errorf("leaf %s appears twice", n)
		}
		index[n] = i
	}

	counts := make(map[string]*cluster)
	for ti, c := range clades {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seen, err := clusters(c, index)
		if err != nil {
			return "", fmt.Errorf("tree %d: %w", ti, err)
		}
		for k, b := range seen {
			cl, ok := counts[k]
			if !ok {
				cl = &cluster{bits: b, size: b.count(), first: firstBit(b)}
				counts[k] = cl
			}
			cl.count++
		}
	}

	ordered := make([]*cluster, 0, len(counts))
	for _, cl := range counts {
		ordered = append(ordered, cl)
	}
	slices.SortFunc(ordered, func(a, b *cluster) int {
		return cmp.Or(
			cmp.Compare(b.count, a.count),
			cmp.Compare(b.size, a.size),
			cmp.Compare(a.first, b.first),
			cmp.Compare(a.bits.key(), b.bits.key()),
		)
	})
	var accepted []*cluster
	for _, cl := range ordered {
		ok := true
		for _, a := range accepted {
			if !compatible(cl.bits, a.bits) {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, cl)
		}
	}
	return render(names, accepted), nil
}

// clusters returns the non-trivial clusters of c keyed by bitset, checking
// that c covers exactly the leaves in index.
func clusters(root *Clade, index map[string]int) (map[string]bitset, error) {
	n := len(index)
	out := make(map[string]bitset)
	sets := make(map[*Clade]bitset)
	leaves := 0

	type item struct {
		c    *Clade
		done bool
	}
	stack := []item{{c: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.c.IsLeaf() {
			b := newBitset(n)
			if it.c.Name != "" {
				i, ok := index[it.c.Name]
				if !ok {
					return nil, fmt.Errorf("leaf %s not in the first tree", it.c.Name)
				}
				b.set(i)
				leaves++
			}
			sets[it.c] = b
			continue
		}
		if !it.done {
			stack = append(stack, item{c: it.c, done: true})
			for _, ch := range it.c.Children {
				stack = append(stack, item{c: ch})
			}
			continue
		}
		b := newBitset(n)
		for _, ch := range it.c.Children {
			b.or(sets[ch])
			delete(sets, ch)
		}
		sets[it.c] = b
		if size := b.count(); size > 1 && size < n {
			out[b.key()] = b
		}
	}
	if leaves != n || sets[root].count() != n {
		return nil, fmt.Errorf("covers %d leaves, the first tree %d", leaves, n)
	}
	return out, nil
}

func firstBit(b bitset) int {
	for i, w := range b {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// render writes the consensus tree. Children are ordered by their lowest
// leaf.
func render(names []string, accepted []*cluster) string {
	n := len(names)
	all := newBitset(n)
	for i := range n {
		all.set(i)
	}
	// Parents come before children when sorted by size.
	nodes := append([]*cluster{{bits: all, size: n}}, accepted...)
	slices.SortStableFunc(nodes[1:], func(a, b *cluster) int { return cmp.Compare(b.size, a.size) })

	children := make([][]int, len(nodes))
	parentOfLeaf := make([]int, n)
	for i := 1; i < len(nodes); i++ {
		p := 0
		for j := i - 1; j >= 1; j-- {
			if nodes[j].size > nodes[i].size && subset(nodes[i].bits, nodes[j].bits) {
				p = j
				break
			}
		}
		children[p] = append(children[p], i)
	}
	for leaf := range n {
		p := 0
		for j := len(nodes) - 1; j >= 1; j-- {
			if nodes[j].bits.has(leaf) {
				p = j
				break
			}
		}
		parentOfLeaf[leaf] = p
	}
	leafKids := make([][]int, len(nodes))
	for leaf, p := range parentOfLeaf {
		leafKids[p] = append(leafKids[p], leaf)
	}

	type child struct {
		first int
		node  int // -1 for a leaf
		leaf  int
	}
	kids := func(i int) []child {
		var out []child
		for _, c := range children[i] {
			out = append(out, child{first: firstBit(nodes[c].bits), node: c})
		}
		for _, l := range leafKids[i] {
			out = append(out, child{first: l, node: -1, leaf: l})
		}
		slices.SortFunc(out, func(a, b child) int { return cmp.Compare(a.first, b.first) })
		return out
	}

	type item struct {
		node int
		lit  string
	}
	var buf []byte
	stack := []item{{node: 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.node < 0 {
			buf = append(buf, it.lit...)
			continue
		}
		ks := kids(it.node)
		if len(ks) == 1 && ks[0].node < 0 {
			buf = append(buf, names[ks[0].leaf]...)
			continue
		}
		closing := ")"
		if it.node > 0 {
			closing += ":" + strconv.FormatFloat(float64(nodes[it.node].count), 'f', 1, 64)
		}
		buf = append(buf, '(')
		stack = append(stack, item{node: -1, lit: closing})
		for i := len(ks) - 1; i >= 0; i-- {
			k := ks[i]
			if k.node >= 0 {
				stack = append(stack, item{node: k.node})
			} else {
				stack = append(stack, item{node: -1, lit: names[k.leaf]})
			}
			if i > 0 {
				stack = append(stack, item{node: -1, lit: ","})
			}
		}
	}
	return string(append(buf, ';'))
}

// compareLabels orders numeric labels by value and the rest lexically,
// numbers first.
func compareLabels(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(x, y)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return cmp.Compare(a, b)
}
