package rng

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededSequencesAreReproducible(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestUniformBounds(t *testing.T) {
	r := NewSeeded(1)
	for i := 0; i < 1000; i++ {
		v := r.Uniform(2.0, 6.0)
		assert.GreaterOrEqual(t, v, 2.0)
		assert.Less(t, v, 6.0)
	}
	assert.Equal(t, 3.0, r.Uniform(3.0, 3.0))
}

func TestUniformIntInclusive(t *testing.T) {
	r := NewSeeded(2)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := r.UniformInt(2, 6)
		require.GreaterOrEqual(t, v, 2)
		require.LessOrEqual(t, v, 6)
		seen[v] = true
	}
	// All five values should show up over 1000 draws.
	assert.Len(t, seen, 5)
}

func TestGaussianMoments(t *testing.T) {
	r := NewSeeded(3)
	const n = 20000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		v := r.Gaussian(100, 15)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	assert.InDelta(t, 100.0, mean, 1.0)
	assert.InDelta(t, 15.0, math.Sqrt(variance), 1.0)
}

func TestExGaussianIsRightSkewedAndClamped(t *testing.T) {
	r := NewSeeded(4)
	const n = 20000
	sum := 0.0
	above, below := 0, 0
	for i := 0; i < n; i++ {
		v := r.ExGaussian(40, 15, 20, 15, 10000)
		require.GreaterOrEqual(t, v, 15.0)
		require.LessOrEqual(t, v, 10000.0)
		sum += v
		if v > 60 {
			above++
		}
		if v < 20 {
			below++
		}
	}
	// Expected mean is mu + tau = 60.
	assert.InDelta(t, 60.0, sum/n, 3.0)
	// Right skew: the long tail sits above the mean.
	assert.Greater(t, above, below)
}

func TestLogNormalBounds(t *testing.T) {
	r := NewSeeded(5)
	for i := 0; i < 2000; i++ {
		v := r.LogNormal(4.5, 0.6, 30_000, 600_000)
		require.GreaterOrEqual(t, v, 30_000.0)
		require.LessOrEqual(t, v, 600_000.0)
	}
}

func TestPoissonMean(t *testing.T) {
	r := NewSeeded(6)
	const n = 20000
	total := 0
	for i := 0; i < n; i++ {
		total += r.Poisson(4.0)
	}
	assert.InDelta(t, 4.0, float64(total)/n, 0.1)
	assert.Equal(t, 0, r.Poisson(0))
	assert.Equal(t, 0, r.Poisson(-1))
}

func TestChanceExtremes(t *testing.T) {
	r := NewSeeded(7)
	assert.False(t, r.Chance(0))
	assert.False(t, r.Chance(-0.5))
	assert.True(t, r.Chance(1))
	assert.True(t, r.Chance(1.5))

	hits := 0
	for i := 0; i < 10000; i++ {
		if r.Chance(0.3) {
			hits++
		}
	}
	assert.InDelta(t, 3000, hits, 300)
}

func TestWeightedChoiceDistribution(t *testing.T) {
	r := NewSeeded(8)
	weights := []float64{0.5, 0.3, 0.2}
	counts := make([]int, 3)
	for i := 0; i < 10000; i++ {
		idx := r.WeightedChoice(weights)
		require.GreaterOrEqual(t, idx, 0)
		counts[idx]++
	}
	assert.InDelta(t, 5000, counts[0], 400)
	assert.InDelta(t, 3000, counts[1], 400)
	assert.InDelta(t, 2000, counts[2], 400)
}

func TestWeightedChoiceDegenerateInputs(t *testing.T) {
	r := NewSeeded(9)
	assert.Equal(t, -1, r.WeightedChoice(nil))
	assert.Equal(t, -1, r.WeightedChoice([]float64{0, 0}))
	assert.Equal(t, 1, r.WeightedChoice([]float64{0, 2.5, 0}))
	// Negative weights are ignored, not inverted.
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, r.WeightedChoice([]float64{-1, 1, -3}))
	}
}

func TestMultivariateNormalCorrelation(t *testing.T) {
	r := NewSeeded(10)
	mean := []float64{0, 0}
	cov := [][]float64{
		{1.0, -0.6},
		{-0.6, 1.0},
	}
	const n = 20000
	var sumXY float64
	for i := 0; i < n; i++ {
		v := r.MultivariateNormal(mean, cov)
		sumXY += v[0] * v[1]
	}
	// Sample covariance should track the requested negative correlation.
	assert.InDelta(t, -0.6, sumXY/n, 0.05)
}

func TestMultivariateNormalFallsBackOnBadCovariance(t *testing.T) {
	r := NewSeeded(11)
	mean := []float64{5, 5}
	// Not positive definite.
	cov := [][]float64{
		{1.0, 2.0},
		{2.0, 1.0},
	}
	v := r.MultivariateNormal(mean, cov)
	require.Len(t, v, 2)
	assert.False(t, math.IsNaN(v[0]))
	assert.False(t, math.IsNaN(v[1]))
}

func TestUniformDuration(t *testing.T) {
	r := NewSeeded(12)
	for i := 0; i < 1000; i++ {
		d := r.UniformDuration(200*time.Millisecond, 800*time.Millisecond)
		require.GreaterOrEqual(t, d, 200*time.Millisecond)
		require.Less(t, d, 800*time.Millisecond)
	}
}

func TestClampAndLerp(t *testing.T) {
	assert.Equal(t, 0.7, Clamp(0.5, 0.7, 1.4))
	assert.Equal(t, 1.4, Clamp(2.0, 0.7, 1.4))
	assert.Equal(t, 1.0, Clamp(1.0, 0.7, 1.4))
	assert.Equal(t, 5.0, Lerp(0, 10, 0.5))
	assert.Equal(t, 10.0, Lerp(0, 10, 2.0))
	assert.Equal(t, 0.0, Lerp(0, 10, -1.0))
}
