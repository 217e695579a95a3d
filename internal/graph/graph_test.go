package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/salmon"
)

// eqClasses builds an EqClasses from a compact text description.
func eqClasses(t *testing.T, ntargets int, classes ...string) *salmon.EqClasses {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%d\n", ntargets, len(classes))
	for i := 0; i < ntargets; i++ {
		fmt.Fprintf(&b, "t%d\n", i)
	}
	for _, c := range classes {
		b.WriteString(c + "\n")
	}
	eq, err := salmon.ReadEqClasses(strings.NewReader(b.String()))
	require.NoError(t, err)
	return eq
}

// noisy returns a replicate matrix where every target varies strongly.
func noisy(ntargets int) *mat.Dense {
	reps := []float64{0, 40, 5, 60, 10, 80}
	data := make([]float64, 0, ntargets*len(reps))
	for i := 0; i < ntargets; i++ {
		for j, v := range reps {
			data = append(data, v+float64((i*j)%3))
		}
	}
	return mat.NewDense(ntargets, len(reps), data)
}

func TestBuild_TiedPair(t *testing.T) {
	eq := eqClasses(t, 8, "2 3 7 0.5 0.4995 12")
	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{noisy(8)}, Tolerance: 0.001})
	require.NoError(t, err)
	require.NoError(t, g.Verify(eq.Len()))

	require.Len(t, g.Edges, 1)
	e := g.Edges[0]
	assert.Equal(t, 3, e.Source)
	assert.Equal(t, 7, e.Target)
	assert.InDelta(t, 0.0005, e.WeightDiff, 1e-9)
	assert.Equal(t, uint64(12), e.Shared)
	assert.True(t, e.Golden)
	assert.False(t, e.Allele)

	comps := g.Components()
	assert.Len(t, comps, 7)
	assert.Contains(t, comps, []int{3, 7})
}

func TestBuild_ToleranceRejects(t *testing.T) {
	eq := eqClasses(t, 2, "2 0 1 0.6 0.4 5")
	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{noisy(2)}, Tolerance: 0.001})
	require.NoError(t, err)
	assert.Empty(t, g.Edges)
	assert.Equal(t, [][]int{{0}, {1}}, g.Components())
}

func TestBuild_DuplicateSightingsFold(t *testing.T) {
	eq := eqClasses(t, 3,
		"2 1 0 0.5 0.5 4",
		"3 0 1 2 0.3 0.3 0.4 6",
		"2 0 1 0.9 0.1 100",
	)
	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{noisy(3)}, Tolerance: 0.001})
	require.NoError(t, err)

	require.Len(t, g.Edges, 1)
	e := g.Edges[0]
	assert.Equal(t, [2]int{0, 1}, [2]int{e.Source, e.Target})
	assert.Equal(t, uint64(10), e.Shared, "only tied classes count")
	assert.True(t, e.Golden, "0 and 1 occur in exactly the same three classes")
}

func TestBuild_NotGoldenWhenClassesDiffer(t *testing.T) {
	eq := eqClasses(t, 3,
		"2 0 1 0.5 0.5 4",
		"2 1 2 0.2 0.8 3",
	)
	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{noisy(3)}, Tolerance: 0.001})
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.False(t, g.Edges[0].Golden)
}

func TestBuild_PercentileGate(t *testing.T) {
	eq := eqClasses(t, 2, "2 0 1 0.5 0.5 4")
	reps := mat.NewDense(2, 3, []float64{
		0, 40, 80,
		10, 10, 10,
	})
	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{reps}, Tolerance: 0.001, P: 0.05})
	require.NoError(t, err)
	assert.True(t, g.Nodes[0].Active)
	assert.False(t, g.Nodes[1].Active, "constant target has infRV 0.01")
	assert.Empty(t, g.Edges)
}

func TestBuild_GeneRestriction(t *testing.T) {
	eq := eqClasses(t, 3, "3 0 1 2 0.3 0.3 0.3 9")
	dir := t.TempDir()
	t2g := filepath.Join(dir, "t2g.tsv")
	require.NoError(t, os.WriteFile(t2g, []byte("t0 gA\nt1 gA\nt2 gB\n"), 0o644))
	genes, err := salmon.ReadMapping(t2g, eq.TargetIndex())
	require.NoError(t, err)
	a2t := filepath.Join(dir, "a2t.tsv")
	require.NoError(t, os.WriteFile(a2t, []byte("t0 T1\nt1 T1\nt2 T2\n"), 0o644))
	alleles, err := salmon.ReadMapping(a2t, eq.TargetIndex())
	require.NoError(t, err)

	g, err := Build(Options{
		Classes: eq, Replicates: []*mat.Dense{noisy(3)}, Tolerance: 0.001,
		Genes: genes, Alleles: alleles,
	})
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 0, g.Edges[0].Source)
	assert.Equal(t, 1, g.Edges[0].Target)
	assert.True(t, g.Edges[0].Allele)
}

func TestBuild_CountMismatch(t *testing.T) {
	eq := eqClasses(t, 3)
	_, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{noisy(2)}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCountMismatch))
	assert.True(t, errors.IsFatal(err))

	_, err = Build(Options{Classes: eq})
	assert.True(t, errors.Is(err, errors.ErrMissingInput))
}

func TestBuild_MultiSampleAveragesStats(t *testing.T) {
	eq := eqClasses(t, 2, "2 0 1 0.5 0.5 4")
	a := mat.NewDense(2, 3, []float64{0, 40, 80, 0, 40, 80})
	b := mat.NewDense(2, 3, []float64{10, 10, 10, 0, 20, 40})

	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{a, b}, Tolerance: 0.001})
	require.NoError(t, err)

	ga, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{a}, Tolerance: 0.001})
	require.NoError(t, err)
	gb, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{b}, Tolerance: 0.001})
	require.NoError(t, err)

	assert.InDelta(t, (ga.Nodes[0].InfRV+gb.Nodes[0].InfRV)/2, g.Nodes[0].InfRV, 1e-12)
	assert.Equal(t, 0.0, g.Nodes[0].Spread, "spread is the minimum across samples")
	assert.InDelta(t, (ga.Edges[0].Score+gb.Edges[0].Score)/2, g.Edges[0].Score, 1e-12)
}

func TestVerify(t *testing.T) {
	eq := eqClasses(t, 3, "2 0 1 0.5 0.5 4")
	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{noisy(3)}, Tolerance: 0.001})
	require.NoError(t, err)

	assert.True(t, errors.Is(g.Verify(2), errors.ErrCountMismatch))

	g.Edges = append(g.Edges, Edge{Source: 2, Target: 1})
	assert.Error(t, g.Verify(1))
}

func TestComponents_Chain(t *testing.T) {
	eq := eqClasses(t, 6,
		"2 4 5 0.5 0.5 1",
		"2 0 2 0.5 0.5 1",
		"2 2 4 0.5 0.5 1",
	)
	g, err := Build(Options{Classes: eq, Replicates: []*mat.Dense{noisy(6)}, Tolerance: 0.001})
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 2, 4, 5}, {1}, {3}}, g.Components())
	assert.Equal(t, []int{0, 1, 2}, g.ComponentEdges([]int{0, 2, 4, 5}))
	assert.Empty(t, g.ComponentEdges([]int{1}))
}
