// Package aggregate reconciles the groupings of several samples. Groups
// whose members overlap in any sample are joined into one super-group; for
// each super-group every sample contributes a representative tree over the
// full super-group leaf set, ready for consensus synthesis.
package aggregate

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/treeterminus/internal/disjoint"
	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

// Placeholder is the representative tree of a sample holding no group of a
// super-group.
const Placeholder = "();"

// SampleForest is the grouping produced for one sample.
type SampleForest struct {
	Name   string
	Groups []*tree.Node
}

// SampleView is one sample's contribution to a super-group.
type SampleView struct {
	Sample string
	// Groups lists the sample's groups inside the super-group, in anchor
	// order.
	Groups []*tree.Node
	// Tree is the representative Newick tree, or Placeholder.
	Tree string
}

// SuperGroup is a cross-sample group.
type SuperGroup struct {
	ID      string
	Anchor  int
	Members []int
	// Samples holds one view per input sample, in input order.
	Samples []SampleView
	// Splits sums the sub-bipartition counts of every sample group inside
	// the super-group.
	Splits map[string]uint32
}

// Trees returns the representative trees to hand to a synthesizer,
// skipping placeholders.
func (g *SuperGroup) Trees() []string {
	var out []string
	for _, v := range g.Samples {
		if v.Tree != Placeholder {
			out = append(out, v.Tree)
		}
	}
	return out
}

// Result is the outcome of Merge.
type Result struct {
	// Groups lists the super-groups in anchor order.
	Groups []*SuperGroup
	// PerSample holds each sample's bipartition table keyed by group id, in
	// input order.
	PerSample []tree.Bipartitions
	// Merged holds the summed bipartition table keyed by super-group id.
	Merged tree.Bipartitions
}

// Options configures Merge.
type Options struct {
	// NumTargets sizes the cross-sample union-find.
	NumTargets int
	// Workers bounds the number of super-groups built concurrently.
	Workers int
}

// Merge joins the groups of every sample. The resulting partition does not
// depend on the order of samples.
func Merge(ctx context.Context, samples []SampleForest, opts Options) (*Result, error) {
	set := disjoint.New(opts.NumTargets)
	for _, s := range samples {
		seen := make(map[int]struct{})
		for _, g := range s.Groups {
			if g.IsLeaf() {
				return nil, errors.NewParseError(
					fmt.Sprintf("sample %s group %s has a single target", s.Name, g.ID()),
					errors.ErrCorruptArtifact)
			}
			leaves := g.Leaves()
			for _, t := range leaves {
				if t < 0 || t >= opts.NumTargets {
					return nil, errors.NewConfigError(
						fmt.Sprintf("sample %s group %s names target %d, only %d targets known", s.Name, g.ID(), t, opts.NumTargets),
						errors.ErrCountMismatch)
				}
				if _, dup := seen[t]; dup {
					return nil, errors.NewParseError(
						fmt.Sprintf("sample %s has target %d in more than one group", s.Name, t),
						errors.ErrCorruptArtifact)
				}
				seen[t] = struct{}{}
			}
			for _, t := range leaves {
				set.Union(g.Anchor(), t)
			}
		}
	}

	members := set.Groups(2)
	roots := set.Roots(2)
	supers := make([]*SuperGroup, len(roots))
	slot := make(map[int]int, len(roots))
	for i, r := range roots {
		slot[r] = i
		supers[i] = &SuperGroup{
			ID:      tree.CanonicalID(members[r]),
			Anchor:  r,
			Members: members[r],
			Samples: make([]SampleView, len(samples)),
		}
		for si, s := range samples {
			supers[i].Samples[si].Sample = s.Name
		}
	}
	for si, s := range samples {
		for _, g := range s.Groups {
			i, ok := slot[set.Find(g.Anchor())]
			if !ok {
				return nil, fmt.Errorf("sample %s group %s joined no super-group", s.Name, g.ID())
			}
			sg := supers[i]
			sg.Samples[si].Groups = append(sg.Samples[si].Groups, g)
		}
	}

	perGroup := make([][]map[string]uint32, len(supers))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Workers, 1))
	for i, sg := range supers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perGroup[i] = build(sg)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Groups:    supers,
		PerSample: make([]tree.Bipartitions, len(samples)),
		Merged:    make(tree.Bipartitions, len(supers)),
	}
	for si := range samples {
		res.PerSample[si] = make(tree.Bipartitions)
	}
	for i, sg := range supers {
		res.Merged[sg.ID] = sg.Splits
		idx := 0
		for si, v := range sg.Samples {
			for _, g := range v.Groups {
				res.PerSample[si].Merge(g.ID(), perGroup[i][idx])
				idx++
			}
		}
	}
	return res, nil
}

// build fills in the representative trees and split counts of sg and
// returns the split counts of each sample group, in sample then anchor
// order.
func build(sg *SuperGroup) []map[string]uint32 {
	sg.Splits = make(map[string]uint32)
	var counts []map[string]uint32
	for si := range sg.Samples {
		v := &sg.Samples[si]
		tree.SortByAnchor(v.Groups)
		v.Tree = Representative(sg.Members, v.Groups)
		for _, g := range v.Groups {
			c := make(map[string]uint32)
			tree.Tally(g, c)
			counts = append(counts, c)
			for k, n := range c {
				sg.Splits[k] += n
			}
		}
	}
	return counts
}

// Representative renders the tree a sample contributes for a super-group
// with the given members. Members not covered by any of groups are added as
// singleton leaves in ascending order.
func Representative(members []int, groups []*tree.Node) string {
	switch {
	case len(groups) == 0:
		return Placeholder
	case len(groups) == 1 && groups[0].Size() == len(members):
		return groups[0].Newick()
	}

	covered := make(map[int]struct{}, len(members))
	buf := []byte{'('}
	for i, g := range groups {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = g.AppendBody(buf)
		for _, t := range g.Leaves() {
			covered[t] = struct{}{}
		}
	}
	sorted := slices.Clone(members)
	slices.Sort(sorted)
	for _, t := range sorted {
		if _, ok := covered[t]; ok {
			continue
		}
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(t), 10)
	}
	return string(append(buf, ')', ';'))
}
