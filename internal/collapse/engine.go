// Package collapse merges targets of the similarity graph into groups. Each
// connected component is collapsed independently: the best-scoring eligible
// pair of groups is merged repeatedly, with scores re-evaluated against the
// pooled replicates of the current groups, until no eligible pair remains.
package collapse

import (
	"container/heap"
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/dusk-indust/treeterminus/internal/disjoint"
	"github.com/dusk-indust/treeterminus/internal/graph"
	"github.com/dusk-indust/treeterminus/internal/logging"
	"github.com/dusk-indust/treeterminus/internal/stats"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

// Options configures Run.
type Options struct {
	// Threshold is the largest score a merge may have.
	Threshold float64
	// MinSpread is the spread both groups must exceed to merge.
	MinSpread float64
	// Workers bounds the number of components collapsed concurrently.
	Workers int
	Logger  *logging.Logger
}

// MergeEvent records one merge.
type MergeEvent struct {
	Component   int     `json:"component"`
	Left        string  `json:"left"`
	Right       string  `json:"right"`
	Group       string  `json:"group"`
	Score       float64 `json:"score"`
	LeftSpread  float64 `json:"leftSpread"`
	RightSpread float64 `json:"rightSpread"`

	leftRoot, rightRoot int
}

// Result is the outcome of collapsing one run.
type Result struct {
	// Groups holds one merge tree per group of two or more targets, in
	// anchor order.
	Groups []*tree.Node
	// Events lists merges component by component, in merge order.
	Events []MergeEvent
	// Set maps every target to its group root (the group anchor).
	Set *disjoint.Set
	// Components counts connected components, singletons included.
	Components   int
	NumCollapses int
}

type componentResult struct {
	groups []*tree.Node
	events []MergeEvent
}

// Run collapses every component of g. reps holds one targets-by-replicates
// matrix per sample; group statistics average infRV and minimise spread
// across them.
func Run(ctx context.Context, g *graph.Graph, reps []*mat.Dense, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	comps := g.Components()
	results := make([]*componentResult, len(comps))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Workers, 1))
	for i, comp := range comps {
		if len(comp) < 2 {
			continue
		}
		eg.Go(func() error {
			r, err := collapseComponent(ctx, i, g, comp, reps, opts)
			if err != nil {
				return err
			}
			results[i] = r
			log.Debug("component collapsed", "component", i, "size", len(comp), "merges", len(r.events))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Set:        disjoint.New(len(g.Nodes)),
		Components: len(comps),
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, ev := range r.events {
			res.Set.Union(ev.leftRoot, ev.rightRoot)
		}
		res.Groups = append(res.Groups, r.groups...)
		res.Events = append(res.Events, r.events...)
	}
	tree.SortByAnchor(res.Groups)
	res.NumCollapses = len(res.Events)
	return res, nil
}

type groupState struct {
	vecs    [][]float64 // pooled replicates per sample
	stat    float64
	spread  float64
	node    *tree.Node
	version int
	nbrs    map[int]struct{} // local targets adjacent to any member
}

type component struct {
	idx   int
	comp  []int
	set   *disjoint.Set
	state []groupState
	heap  candHeap
	opts  Options
}

func collapseComponent(ctx context.Context, idx int, g *graph.Graph, comp []int, reps []*mat.Dense, opts Options) (*componentResult, error) {
	c := &component{
		idx:   idx,
		comp:  comp,
		set:   disjoint.New(len(comp)),
		state: make([]groupState, len(comp)),
		opts:  opts,
	}
	local := make(map[int]int, len(comp))
	for i, t := range comp {
		local[t] = i
		vecs := make([][]float64, len(reps))
		for s, m := range reps {
			vecs[s] = stats.Row(m, t)
		}
		st := &c.state[i]
		st.vecs = vecs
		st.stat, st.spread = summarize(vecs)
		st.node = tree.Leaf(t)
		st.nbrs = make(map[int]struct{})
	}
	for _, ei := range g.ComponentEdges(comp) {
		e := g.Edges[ei]
		a, b := local[e.Source], local[e.Target]
		c.state[a].nbrs[b] = struct{}{}
		c.state[b].nbrs[a] = struct{}{}
		c.heap = append(c.heap, c.score(a, b))
	}
	heap.Init(&c.heap)

	var events []MergeEvent
	for steps := 0; c.heap.Len() > 0; steps++ {
		if steps%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cand := heap.Pop(&c.heap).(candidate)
		if !c.current(cand) || !c.eligible(cand) {
			continue
		}
		events = append(events, c.merge(cand))
	}

	res := &componentResult{events: events}
	for _, r := range c.set.Roots(2) {
		res.groups = append(res.groups, c.state[r].node)
	}
	return res, nil
}

// current reports whether both sides of cand are still the roots and
// versions it was scored against.
func (c *component) current(cand candidate) bool {
	return c.set.Find(cand.a) == cand.a && c.set.Find(cand.b) == cand.b &&
		c.state[cand.a].version == cand.va && c.state[cand.b].version == cand.vb
}

func (c *component) eligible(cand candidate) bool {
	return cand.score <= c.opts.Threshold &&
		c.state[cand.a].spread > c.opts.MinSpread &&
		c.state[cand.b].spread > c.opts.MinSpread
}

// score builds the candidate for roots a and b from their current pooled
// replicates.
func (c *component) score(a, b int) candidate {
	if b < a {
		a, b = b, a
	}
	A, B := &c.state[a], &c.state[b]
	stat, _ := summarize(pool(A.vecs, B.vecs))
	return candidate{
		score: stat - (A.stat+B.stat)/2,
		a:     a,
		b:     b,
		va:    A.version,
		vb:    B.version,
	}
}

// merge unions the two roots of cand. The lower-anchored group becomes the
// left subtree.
func (c *component) merge(cand candidate) MergeEvent {
	A, B := &c.state[cand.a], &c.state[cand.b]
	ev := MergeEvent{
		Component:   c.idx,
		Left:        A.node.ID(),
		Right:       B.node.ID(),
		Score:       cand.score,
		LeftSpread:  A.spread,
		RightSpread: B.spread,
		leftRoot:    c.comp[cand.a],
		rightRoot:   c.comp[cand.b],
	}

	r := c.set.Union(cand.a, cand.b)
	vecs := pool(A.vecs, B.vecs)
	nbrs, extra := A.nbrs, B.nbrs
	if len(nbrs) < len(extra) {
		nbrs, extra = extra, nbrs
	}
	for x := range extra {
		nbrs[x] = struct{}{}
	}
	merged := groupState{
		vecs:    vecs,
		node:    tree.Join(A.node, B.node),
		version: A.version + B.version + 1,
		nbrs:    nbrs,
	}
	merged.stat, merged.spread = summarize(vecs)
	c.state[cand.a], c.state[cand.b] = groupState{}, groupState{}
	c.state[r] = merged
	ev.Group = merged.node.ID()

	seen := make(map[int]struct{})
	for x := range merged.nbrs {
		rx := c.set.Find(x)
		if rx == r {
			delete(merged.nbrs, x)
			continue
		}
		if _, dup := seen[rx]; dup {
			continue
		}
		seen[rx] = struct{}{}
		heap.Push(&c.heap, c.score(r, rx))
	}
	return ev
}

// pool sums two groups' replicate vectors sample by sample.
func pool(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for s := range a {
		out[s] = make([]float64, len(a[s]))
		floats.AddTo(out[s], a[s], b[s])
	}
	return out
}

// summarize returns the infRV averaged across samples and the spread
// minimised across samples.
func summarize(vecs [][]float64) (stat, spread float64) {
	for s, v := range vecs {
		stat += stats.InfRV(v)
		if sp := stats.Spread(v); s == 0 || sp < spread {
			spread = sp
		}
	}
	return stat / float64(len(vecs)), spread
}
