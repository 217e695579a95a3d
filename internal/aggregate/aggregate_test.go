package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

func pair(a, b int) *tree.Node { return tree.Join(tree.Leaf(a), tree.Leaf(b)) }

func threeSamples() []SampleForest {
	return []SampleForest{
		{Name: "s1", Groups: []*tree.Node{pair(1, 2)}},
		{Name: "s2", Groups: []*tree.Node{pair(2, 3)}},
		{Name: "s3", Groups: []*tree.Node{tree.Join(pair(1, 2), tree.Leaf(3))}},
	}
}

func TestMerge_OverlappingGroupsJoin(t *testing.T) {
	res, err := Merge(context.Background(), threeSamples(), Options{NumTargets: 5, Workers: 2})
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	sg := res.Groups[0]
	assert.Equal(t, "1_2_3", sg.ID)
	assert.Equal(t, 1, sg.Anchor)
	assert.Equal(t, []int{1, 2, 3}, sg.Members)

	require.Len(t, sg.Samples, 3)
	assert.Equal(t, "((1,2),3);", sg.Samples[0].Tree, "3 is padded in as a singleton leaf")
	assert.Equal(t, "((2,3),1);", sg.Samples[1].Tree)
	assert.Equal(t, "((1,2),3);", sg.Samples[2].Tree)
	assert.Len(t, sg.Trees(), 3)

	assert.Equal(t, map[string]uint32{"1_2": 2, "2_3": 1, "1_2_3": 1}, sg.Splits)
	assert.Equal(t, sg.Splits, res.Merged["1_2_3"])
	assert.Equal(t, map[string]uint32{"1_2": 1}, res.PerSample[0]["1_2"])
	assert.Equal(t, map[string]uint32{"1_2": 1, "1_2_3": 1}, res.PerSample[2]["1_2_3"])
}

func TestMerge_AbsentGroupYieldsPlaceholder(t *testing.T) {
	samples := []SampleForest{
		{Name: "a", Groups: []*tree.Node{pair(0, 4)}},
		{Name: "b"},
	}
	res, err := Merge(context.Background(), samples, Options{NumTargets: 5})
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	sg := res.Groups[0]
	assert.Equal(t, "(0,4);", sg.Samples[0].Tree)
	assert.Equal(t, Placeholder, sg.Samples[1].Tree)
	assert.Equal(t, []string{"(0,4);"}, sg.Trees())
	assert.Empty(t, res.PerSample[1])
}

func TestMerge_SeveralGroupsInOneSample(t *testing.T) {
	samples := []SampleForest{
		{Name: "a", Groups: []*tree.Node{pair(5, 6), pair(1, 2)}},
		{Name: "b", Groups: []*tree.Node{tree.Join(pair(1, 2), tree.Join(pair(5, 6), tree.Leaf(8)))}},
	}
	res, err := Merge(context.Background(), samples, Options{NumTargets: 10})
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	sg := res.Groups[0]
	assert.Equal(t, "1_2_5_6_8", sg.ID)
	assert.Equal(t, "((1,2),(5,6),8);", sg.Samples[0].Tree)
	assert.Equal(t, "((1,2),((5,6),8));", sg.Samples[1].Tree)
}

func TestMerge_OrderIndependent(t *testing.T) {
	samples := threeSamples()
	samples = append(samples, SampleForest{Name: "s4", Groups: []*tree.Node{pair(7, 9), pair(0, 4)}})

	ids := func(res *Result) []string {
		var out []string
		for _, g := range res.Groups {
			out = append(out, g.ID)
		}
		return out
	}

	forward, err := Merge(context.Background(), samples, Options{NumTargets: 10})
	require.NoError(t, err)
	reversed := []SampleForest{samples[3], samples[2], samples[1], samples[0]}
	backward, err := Merge(context.Background(), reversed, Options{NumTargets: 10, Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"0_4", "1_2_3", "7_9"}, ids(forward))
	assert.Equal(t, ids(forward), ids(backward))
	assert.Equal(t, forward.Merged, backward.Merged)
}

func TestMerge_BipartitionsMonotonic(t *testing.T) {
	res, err := Merge(context.Background(), threeSamples(), Options{NumTargets: 5})
	require.NoError(t, err)

	merged := res.Merged["1_2_3"]
	for _, per := range res.PerSample {
		for _, counts := range per {
			for k, n := range counts {
				assert.GreaterOrEqual(t, merged[k], n, "split %s", k)
			}
		}
	}
}

func TestMerge_TargetOutOfRange(t *testing.T) {
	samples := []SampleForest{{Name: "a", Groups: []*tree.Node{pair(1, 9)}}}
	_, err := Merge(context.Background(), samples, Options{NumTargets: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCountMismatch))
	assert.Contains(t, err.Error(), "sample a")
}

func TestMerge_RejectsMalformedGroups(t *testing.T) {
	tests := []struct {
		name   string
		groups []*tree.Node
	}{
		{"singleton alone", []*tree.Node{tree.Leaf(5)}},
		{"singleton beside a group", []*tree.Node{pair(1, 2), tree.Leaf(4)}},
		{"shared target", []*tree.Node{pair(1, 2), pair(2, 3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := []SampleForest{{Name: "a", Groups: tt.groups}}
			_, err := Merge(context.Background(), samples, Options{NumTargets: 6})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCorruptArtifact))
			assert.Contains(t, err.Error(), "sample a")
		})
	}
}

func TestMerge_SameTargetAcrossSamples(t *testing.T) {
	samples := []SampleForest{
		{Name: "a", Groups: []*tree.Node{pair(1, 2)}},
		{Name: "b", Groups: []*tree.Node{pair(2, 3)}},
	}
	res, err := Merge(context.Background(), samples, Options{NumTargets: 6})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "((1,2),3);", res.Groups[0].Samples[0].Tree)
}

func TestRepresentative(t *testing.T) {
	assert.Equal(t, Placeholder, Representative([]int{1, 2}, nil))
	assert.Equal(t, "(2,1);", Representative([]int{1, 2}, []*tree.Node{pair(2, 1)}),
		"a covering group keeps its own shape")
	assert.Equal(t, "((1,2),3,10);", Representative([]int{10, 3, 1, 2}, []*tree.Node{pair(1, 2)}))
}
