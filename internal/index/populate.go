package index

import (
	"context"
	"fmt"

	"github.com/dusk-indust/treeterminus/internal/aggregate"
)

// Populate replaces the contents of store with the groups of agg. names maps
// target indices to transcript names; consensus holds one tree per
// super-group and may be shorter than agg.Groups or contain empty entries.
// Only transcripts that belong to some group are indexed.
func Populate(ctx context.Context, store Store, names []string, agg *aggregate.Result, consensus []string) error {
	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	if err := store.Reset(ctx); err != nil {
		return err
	}

	seen := make(map[int]struct{})
	for _, sg := range agg.Groups {
		for _, t := range sg.Members {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			name := ""
			if t < len(names) {
				name = names[t]
			}
			if err := store.AddTranscript(ctx, TranscriptNode{Index: t, Name: name}); err != nil {
				return fmt.Errorf("index transcript %d: %w", t, err)
			}
		}
	}

	for i, sg := range agg.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		merged := GroupNode{
			Key:  MergedKey(sg.ID),
			ID:   sg.ID,
			Kind: GroupKindMerged,
			Size: len(sg.Members),
		}
		if i < len(consensus) {
			merged.Newick = consensus[i]
		}
		if err := store.AddGroup(ctx, merged); err != nil {
			return fmt.Errorf("index group %s: %w", merged.Key, err)
		}
		if err := addMembers(ctx, store, merged.Key, sg.Members); err != nil {
			return err
		}

		for _, v := range sg.Samples {
			for _, g := range v.Groups {
				node := GroupNode{
					Key:    GroupKey(v.Sample, g.ID()),
					ID:     g.ID(),
					Sample: v.Sample,
					Kind:   GroupKindSample,
					Size:   g.Size(),
					Newick: g.Newick(),
				}
				if err := store.AddGroup(ctx, node); err != nil {
					return fmt.Errorf("index group %s: %w", node.Key, err)
				}
				if err := addMembers(ctx, store, node.Key, g.Leaves()); err != nil {
					return err
				}
				if err := store.AddEdge(ctx, Edge{SourceID: node.Key, TargetID: merged.Key, Kind: EdgeKindMergedInto}); err != nil {
					return fmt.Errorf("index edge %s: %w", node.Key, err)
				}
			}
		}
	}
	return nil
}

func addMembers(ctx context.Context, store Store, key string, members []int) error {
	for _, t := range members {
		if err := store.AddEdge(ctx, Edge{SourceID: TranscriptKey(t), TargetID: key, Kind: EdgeKindMemberOf}); err != nil {
			return fmt.Errorf("index edge %d -> %s: %w", t, key, err)
		}
	}
	return nil
}
