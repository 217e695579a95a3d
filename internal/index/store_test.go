package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treeterminus/internal/aggregate"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

func pair(a, b int) *tree.Node { return tree.Join(tree.Leaf(a), tree.Leaf(b)) }

var names = []string{"ENST0", "ENST1", "ENST2", "ENST3", "ENST4"}

// mergedFixture yields one super-group 1_2_3 built from {1,2}, {2,3} and
// {1,2,3}.
func mergedFixture(t *testing.T) *aggregate.Result {
	t.Helper()
	res, err := aggregate.Merge(context.Background(), []aggregate.SampleForest{
		{Name: "s1", Groups: []*tree.Node{pair(1, 2)}},
		{Name: "s2", Groups: []*tree.Node{pair(2, 3)}},
		{Name: "s3", Groups: []*tree.Node{tree.Join(pair(1, 2), tree.Leaf(3))}},
	}, aggregate.Options{NumTargets: len(names)})
	require.NoError(t, err)
	return res
}

func keys(groups []GroupNode) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

// runStoreSuite checks a Store implementation against a populated index.
func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()
	agg := mergedFixture(t)
	require.NoError(t, Populate(ctx, s, names, agg, []string{"((1,2),3);"}))

	t.Run("Stats", func(t *testing.T) {
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, IndexStats{
			TranscriptCount:  3,
			SampleGroupCount: 3,
			MergedGroupCount: 1,
			EdgeCount:        13,
		}, *st)
	})

	t.Run("GetTranscript", func(t *testing.T) {
		got, err := s.GetTranscript(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, TranscriptNode{Index: 3, Name: "ENST3"}, *got)

		got, err = s.GetTranscript(ctx, 0)
		require.NoError(t, err)
		assert.Nil(t, got, "ungrouped transcripts are not indexed")
	})

	t.Run("GetGroup", func(t *testing.T) {
		got, err := s.GetGroup(ctx, MergedKey("1_2_3"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, GroupNode{
			Key:    "merged:1_2_3",
			ID:     "1_2_3",
			Kind:   GroupKindMerged,
			Size:   3,
			Newick: "((1,2),3);",
		}, *got)

		got, err = s.GetGroup(ctx, GroupKey("s2", "2_3"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "s2", got.Sample)
		assert.Equal(t, GroupKindSample, got.Kind)
		assert.Equal(t, "(2,3);", got.Newick)

		got, err = s.GetGroup(ctx, "s9/0_1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Members", func(t *testing.T) {
		got, err := s.Members(ctx, GroupKey("s2", "2_3"))
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, got)

		got, err = s.Members(ctx, MergedKey("1_2_3"))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	})

	t.Run("GroupsOf", func(t *testing.T) {
		got, err := s.GroupsOf(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"merged:1_2_3", "s1/1_2", "s2/2_3", "s3/1_2_3"}, keys(got))

		got, err = s.GroupsOf(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"merged:1_2_3", "s1/1_2", "s3/1_2_3"}, keys(got))

		got, err = s.GroupsOf(ctx, 4)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("QueryTranscripts", func(t *testing.T) {
		got, err := s.QueryTranscripts(ctx, "enst", 2)
		require.NoError(t, err)
		assert.Equal(t, []TranscriptNode{{1, "ENST1"}, {2, "ENST2"}}, got)

		got, err = s.QueryTranscripts(ctx, "ST3", 0)
		require.NoError(t, err)
		assert.Equal(t, []TranscriptNode{{3, "ENST3"}}, got)

		got, err = s.QueryTranscripts(ctx, "nope", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("UnsupportedEdge", func(t *testing.T) {
		err := s.AddEdge(ctx, Edge{SourceID: "1", TargetID: "merged:1_2_3", Kind: "CALLS"})
		assert.Error(t, err)
	})

	t.Run("PopulateReplaces", func(t *testing.T) {
		require.NoError(t, Populate(ctx, s, names, agg, nil))
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, st.TranscriptCount)
		assert.Equal(t, 13, st.EdgeCount)

		got, err := s.GetGroup(ctx, MergedKey("1_2_3"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.Newick)
	})
}

func TestMemStore(t *testing.T) {
	runStoreSuite(t, NewMemStore())
}

func TestMemStore_EdgeNeedsEndpoints(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.AddGroup(ctx, GroupNode{Key: "merged:0_1", ID: "0_1", Kind: GroupKindMerged}))

	err := s.AddEdge(ctx, Edge{SourceID: "0", TargetID: "merged:0_1", Kind: EdgeKindMemberOf})
	assert.Error(t, err)

	require.NoError(t, s.AddTranscript(ctx, TranscriptNode{Index: 0, Name: "a"}))
	assert.NoError(t, s.AddEdge(ctx, Edge{SourceID: "0", TargetID: "merged:0_1", Kind: EdgeKindMemberOf}))
	assert.Error(t, s.AddEdge(ctx, Edge{SourceID: "0", TargetID: "merged:9", Kind: EdgeKindMemberOf}))
	assert.Error(t, s.AddEdge(ctx, Edge{SourceID: "s/0_1", TargetID: "merged:0_1", Kind: EdgeKindMergedInto}))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "s1/1_2", GroupKey("s1", "1_2"))
	assert.Equal(t, "merged:1_2", MergedKey("1_2"))
	assert.Equal(t, "12", TranscriptKey(12))
}
