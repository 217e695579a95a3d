// Package stats computes the inferential-variance statistics that drive
// collapsing: per-vector infRV and spread, the infRV percentile gate and
// the permutation threshold on merge scores.
package stats

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NoThreshold is the merge threshold used when thresholding is disabled.
const NoThreshold = 1e7

const (
	// pseudoCount damps infRV for low-abundance targets.
	pseudoCount = 5.0
	// infRVShift keeps infRV strictly positive.
	infRVShift = 0.01
	// thresholdQuantile is the quantile of random-pair deltas taken as the
	// merge threshold.
	thresholdQuantile = 0.05
	// maxPairs bounds the number of random pairs drawn by Threshold.
	maxPairs = 100000
)

// InfRV returns the inferential relative variance of a replicate vector:
// max(var-mean, 0)/(mean+5) + 0.01.
func InfRV(v []float64) float64 {
	if len(v) == 0 {
		return infRVShift
	}
	mean, variance := stat.MeanVariance(v, nil)
	if len(v) < 2 {
		variance = 0
	}
	return max(variance-mean, 0)/(mean+pseudoCount) + infRVShift
}

// Spread returns max(v)-min(v).
func Spread(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Max(v) - floats.Min(v)
}

// Row returns a copy of row i of m.
func Row(m mat.Matrix, i int) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	return mat.Row(out, i, m)
}

// RowInfRV computes InfRV for every row of m.
func RowInfRV(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = InfRV(Row(m, i))
	}
	return out
}

// Percentile returns the empirical q-quantile of values, q in [0,1].
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

// InfRVPercentile returns the q-quantile of the per-target infRV of m.
func InfRVPercentile(m mat.Matrix, q float64) float64 {
	return Percentile(RowInfRV(m), q)
}

// MinPercentile returns the smallest per-matrix InfRVPercentile.
func MinPercentile(ms []*mat.Dense, q float64) float64 {
	p := 0.0
	for i, m := range ms {
		v := InfRVPercentile(m, q)
		if i == 0 || v < p {
			p = v
		}
	}
	return p
}

// Delta is the change in infRV caused by pooling two replicate vectors:
// infRV(a+b) - (infRV(a)+infRV(b))/2.
func Delta(a, b []float64) float64 {
	sum := make([]float64, len(a))
	floats.AddTo(sum, a, b)
	return InfRV(sum) - (InfRV(a)+InfRV(b))/2
}

// Threshold draws random pairs among the targets of m whose infRV is at
// least p and returns the lower 5% quantile of their pooling deltas. Merges
// scoring above it look no better than pooling unrelated targets. The same
// seed always yields the same threshold.
func Threshold(m mat.Matrix, p float64, seed uint64) float64 {
	infrv := RowInfRV(m)
	var eligible []int
	for i, v := range infrv {
		if v >= p {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) < 2 {
		return NoThreshold
	}

	npairs := min(maxPairs, len(eligible)*(len(eligible)-1)/2)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	deltas := make([]float64, 0, npairs)
	for len(deltas) < npairs {
		a := eligible[rng.IntN(len(eligible))]
		b := eligible[rng.IntN(len(eligible))]
		if a == b {
			continue
		}
		deltas = append(deltas, Delta(Row(m, a), Row(m, b)))
	}
	return Percentile(deltas, thresholdQuantile)
}

// MeanThreshold averages Threshold over several matrices.
func MeanThreshold(ms []*mat.Dense, p float64, seed uint64) float64 {
	if len(ms) == 0 {
		return NoThreshold
	}
	sum := 0.0
	for _, m := range ms {
		sum += Threshold(m, p, seed)
	}
	return sum / float64(len(ms))
}
