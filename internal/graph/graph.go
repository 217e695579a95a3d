// Package graph builds the similarity graph over targets: nodes carry the
// inferential-variance statistics of each target, edges join targets that
// share an equivalence class with near-identical weights.
package graph

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/salmon"
	"github.com/dusk-indust/treeterminus/internal/stats"
)

// Node holds the per-target statistics used to seed collapsing.
type Node struct {
	Target int     `json:"target"`
	InfRV  float64 `json:"infRV"`
	Spread float64 `json:"spread"`
	// Active is false for targets below the infRV percentile; they never
	// receive edges.
	Active bool `json:"active"`
}

// Edge is an undirected merge candidate with Source < Target. Edges are
// created once and never mutated.
type Edge struct {
	Source     int     `json:"source"`
	Target     int     `json:"target"`
	WeightDiff float64 `json:"weightDiff"` // smallest |w_a - w_b| over tied classes
	Shared     uint64  `json:"shared"`     // reads in tied classes
	Golden     bool    `json:"golden"`     // both targets occur in exactly the same classes
	Allele     bool    `json:"allele"`     // both targets are alleles of one transcript
	Score      float64 `json:"score"`      // initial pooling delta
}

// Graph is the similarity graph of one grouping run.
type Graph struct {
	Nodes       []Node
	Edges       []Edge
	ClassCounts []uint32

	incident [][]int // edge indices per target
}

// Options configures Build.
type Options struct {
	// Classes holds the equivalence classes of every sample, concatenated.
	Classes *salmon.EqClasses
	// Replicates holds one targets-by-replicates matrix per sample.
	Replicates []*mat.Dense
	// P is the infRV percentile gate; targets below it are inactive.
	P float64
	// Tolerance bounds the weight difference of a tied pair.
	Tolerance float64
	// Genes restricts edges to targets of the same gene when set.
	Genes *salmon.Mapping
	// Alleles marks edges between alleles of the same transcript when set.
	Alleles *salmon.Mapping
}

type pairAcc struct {
	classes int
	tied    bool
	minDiff float64
	shared  uint64
}

// Build constructs the graph. Repeated sightings of a pair fold into one
// edge and self-pairs are dropped.
func Build(opts Options) (*Graph, error) {
	eq := opts.Classes
	if eq == nil || len(opts.Replicates) == 0 {
		return nil, errors.NewConfigError("graph needs equivalence classes and replicates", errors.ErrMissingInput)
	}
	n := eq.NumTargets()
	for i, m := range opts.Replicates {
		if r, _ := m.Dims(); r != n {
			return nil, errors.NewConfigError(
				fmt.Sprintf("replicate matrix %d has %d targets, equivalence classes list %d", i, r, n),
				errors.ErrCountMismatch)
		}
	}
	for name, m := range map[string]*salmon.Mapping{"gene": opts.Genes, "allele": opts.Alleles} {
		if m != nil && len(m.Of) != n {
			return nil, errors.NewConfigError(
				fmt.Sprintf("%s map covers %d targets, equivalence classes list %d", name, len(m.Of), n),
				errors.ErrCountMismatch)
		}
	}

	g := &Graph{
		Nodes:       make([]Node, n),
		ClassCounts: slices.Clone(eq.Counts),
		incident:    make([][]int, n),
	}
	for t := range n {
		g.Nodes[t] = nodeStats(t, opts.Replicates)
		g.Nodes[t].Active = g.Nodes[t].InfRV >= opts.P
	}

	occ := make([]int, n)
	pairs := make(map[uint64]*pairAcc)
	for c := 0; c < eq.Len(); c++ {
		labels, weights, count := eq.Class(c)
		for _, t := range labels {
			occ[t]++
		}
		for i := 0; i < len(labels); i++ {
			a := labels[i]
			if !g.Nodes[a].Active {
				continue
			}
			for j := i + 1; j < len(labels); j++ {
				b := labels[j]
				if a == b || !g.Nodes[b].Active {
					continue
				}
				if opts.Genes != nil && !opts.Genes.Same(a, b) {
					continue
				}
				key := pairKey(a, b)
				acc, ok := pairs[key]
				if !ok {
					acc = &pairAcc{minDiff: math.Inf(1)}
					pairs[key] = acc
				}
				acc.classes++
				if d := math.Abs(weights[i] - weights[j]); d <= opts.Tolerance {
					acc.tied = true
					acc.shared += uint64(count)
					acc.minDiff = min(acc.minDiff, d)
				}
			}
		}
	}

	for key, acc := range pairs {
		if !acc.tied {
			continue
		}
		a, b := int(key>>32), int(key&math.MaxUint32)
		g.Edges = append(g.Edges, Edge{
			Source:     a,
			Target:     b,
			WeightDiff: acc.minDiff,
			Shared:     acc.shared,
			Golden:     acc.classes == occ[a] && acc.classes == occ[b],
			Allele:     opts.Alleles != nil && opts.Alleles.Same(a, b),
			Score:      pairScore(a, b, opts.Replicates),
		})
	}
	slices.SortFunc(g.Edges, func(x, y Edge) int {
		return cmp.Or(cmp.Compare(x.Source, y.Source), cmp.Compare(x.Target, y.Target))
	})
	for i, e := range g.Edges {
		g.incident[e.Source] = append(g.incident[e.Source], i)
		g.incident[e.Target] = append(g.incident[e.Target], i)
	}
	return g, nil
}

func pairKey(a, b int) uint64 {
	if b < a {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// nodeStats averages infRV and minimises spread across samples.
func nodeStats(t int, reps []*mat.Dense) Node {
	node := Node{Target: t}
	for i, m := range reps {
		row := stats.Row(m, t)
		node.InfRV += stats.InfRV(row)
		if s := stats.Spread(row); i == 0 || s < node.Spread {
			node.Spread = s
		}
	}
	node.InfRV /= float64(len(reps))
	return node
}

// pairScore is the pooling delta of two targets averaged across samples.
func pairScore(a, b int, reps []*mat.Dense) float64 {
	score := 0.0
	for _, m := range reps {
		score += stats.Delta(stats.Row(m, a), stats.Row(m, b))
	}
	return score / float64(len(reps))
}

// Incident returns the indices into Edges of the edges touching t.
func (g *Graph) Incident(t int) []int {
	return g.incident[t]
}

// Verify checks the structural invariants of g against the number of
// equivalence classes it was built from.
func (g *Graph) Verify(nclasses int) error {
	if len(g.ClassCounts) != nclasses {
		return errors.NewConfigError(
			fmt.Sprintf("graph holds %d class counts, equivalence classes list %d", len(g.ClassCounts), nclasses),
			errors.ErrCountMismatch)
	}
	n := len(g.Nodes)
	for i, node := range g.Nodes {
		if node.Target != i {
			return errors.NewConfigError(fmt.Sprintf("node %d carries target %d", i, node.Target), errors.ErrInvalidValue)
		}
	}
	for _, e := range g.Edges {
		if e.Source < 0 || e.Source >= e.Target || e.Target >= n {
			return errors.NewConfigError(fmt.Sprintf("edge %d-%d outside [0,%d)", e.Source, e.Target, n), errors.ErrInvalidValue)
		}
		if !g.Nodes[e.Source].Active || !g.Nodes[e.Target].Active {
			return errors.NewConfigError(fmt.Sprintf("edge %d-%d touches an inactive target", e.Source, e.Target), errors.ErrInvalidValue)
		}
	}
	return nil
}
