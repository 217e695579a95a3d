package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestInfRV(t *testing.T) {
	// mean 2, sample variance 4.
	got := InfRV([]float64{0, 2, 4})
	assert.InDelta(t, (4.0-2.0)/(2.0+5.0)+0.01, got, 1e-12)

	// Variance below the mean clamps to the shift.
	assert.InDelta(t, 0.01, InfRV([]float64{10, 10, 10}), 1e-12)
	assert.InDelta(t, 0.01, InfRV(nil), 1e-12)
	assert.InDelta(t, 0.01, InfRV([]float64{3}), 1e-12)
}

func TestSpread(t *testing.T) {
	assert.Equal(t, 4.0, Spread([]float64{3, 1, 5}))
	assert.Equal(t, 0.0, Spread(nil))
}

func TestRowInfRV(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		0, 2, 4,
		10, 10, 10,
	})
	got := RowInfRV(m)
	assert.Len(t, got, 2)
	assert.InDelta(t, InfRV([]float64{0, 2, 4}), got[0], 1e-12)
	assert.InDelta(t, 0.01, got[1], 1e-12)
}

func TestPercentile(t *testing.T) {
	vals := []float64{5, 1, 3, 2, 4}
	assert.Equal(t, 1.0, Percentile(vals, 0))
	assert.Equal(t, 5.0, Percentile(vals, 1))
	assert.Equal(t, 3.0, Percentile(vals, 0.5))
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, vals, "input untouched")
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}

func TestMinPercentile(t *testing.T) {
	a := mat.NewDense(1, 3, []float64{0, 2, 4})
	b := mat.NewDense(1, 3, []float64{10, 10, 10})
	assert.InDelta(t, 0.01, MinPercentile([]*mat.Dense{a, b}, 0), 1e-12)
	assert.InDelta(t, InfRV([]float64{0, 2, 4}), MinPercentile([]*mat.Dense{a}, 0), 1e-12)
}

func TestDelta(t *testing.T) {
	a := []float64{0, 2, 4}
	b := []float64{4, 2, 0}
	// a+b is constant, so pooling removes all variance.
	assert.InDelta(t, 0.01-InfRV(a), Delta(a, b), 1e-12)
}

func TestThreshold_Deterministic(t *testing.T) {
	data := make([]float64, 0, 20*8)
	for i := 0; i < 20; i++ {
		for j := 0; j < 8; j++ {
			data = append(data, float64((i*7+j*13)%17))
		}
	}
	m := mat.NewDense(20, 8, data)

	t1 := Threshold(m, 0, 10)
	t2 := Threshold(m, 0, 10)
	assert.Equal(t, t1, t2)
	assert.Less(t, t1, NoThreshold)
	assert.Equal(t, t1, MeanThreshold([]*mat.Dense{m, m}, 0, 10))
}

func TestThreshold_TooFewTargets(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 4, 1, 1})
	assert.Equal(t, NoThreshold, Threshold(m, 1e9, 1))
	assert.Equal(t, NoThreshold, MeanThreshold(nil, 0, 1))
}
