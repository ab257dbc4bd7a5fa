// Package rng provides the statistical sampling kit used by the behavior
// models. Every stochastic draw in the engine goes through a *Rand so tests
// can seed it explicitly and replay a sequence of decisions.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
	"sync"
	"time"
)

// Rand wraps a math/rand source behind a mutex. Production code seeds it from
// the OS entropy pool once per profile or run; tests use NewSeeded.
type Rand struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// New returns a Rand seeded from the OS entropy pool.
func New() *Rand {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Entropy read failing is effectively impossible; fall back to the
		// wall clock rather than aborting the whole agent.
		return NewSeeded(time.Now().UnixNano())
	}
	return NewSeeded(int64(binary.LittleEndian.Uint64(b[:])))
}

// NewSeeded returns a deterministic Rand for reproducible sequences.
func NewSeeded(seed int64) *Rand {
	return &Rand{r: mrand.New(mrand.NewSource(seed))}
}

// Float64 returns a uniform draw in [0,1).
func (rn *Rand) Float64() float64 {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.r.Float64()
}

// Intn returns a uniform int in [0,n).
func (rn *Rand) Intn(n int) int {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.r.Intn(n)
}

// Chance returns true with probability p (clamped to [0,1]).
func (rn *Rand) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rn.Float64() < p
}

// Uniform returns a uniform draw in [min,max).
func (rn *Rand) Uniform(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rn.Float64()*(max-min)
}

// UniformInt returns a uniform int in [min,max], inclusive on both ends.
func (rn *Rand) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + rn.Intn(max-min+1)
}

// UniformDuration returns a uniform duration in [min,max).
func (rn *Rand) UniformDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rn.Float64()*float64(max-min))
}

// Gaussian returns a normal draw with the given mean and standard deviation.
func (rn *Rand) Gaussian(mean, stdDev float64) float64 {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return mean + rn.r.NormFloat64()*stdDev
}

// GaussianClamped returns a normal draw clamped to [min,max].
func (rn *Rand) GaussianClamped(mean, stdDev, min, max float64) float64 {
	return Clamp(rn.Gaussian(mean, stdDev), min, max)
}

// Exponential returns an exponential draw with the given mean.
func (rn *Rand) Exponential(mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.r.ExpFloat64() * mean
}

// ExGaussian returns mu + Exp(tau) + Gauss(0,sigma), clamped to [min,max].
// The right-skewed sum models human reaction-time delays.
func (rn *Rand) ExGaussian(mu, sigma, tau, min, max float64) float64 {
	v := mu + rn.Exponential(tau) + rn.Gaussian(0, sigma)
	return Clamp(v, min, max)
}

// LogNormal returns exp(Gauss(mu,sigma)) clamped to [min,max]. mu and sigma
// are the parameters of the underlying normal, not the result's moments.
func (rn *Rand) LogNormal(mu, sigma, min, max float64) float64 {
	return Clamp(math.Exp(rn.Gaussian(mu, sigma)), min, max)
}

// Poisson returns a Poisson draw via Knuth's multiplication method.
// Suitable for the small lambdas used here; O(lambda) per call.
func (rn *Rand) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rn.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// WeightedChoice draws an index in [0,len(weights)) proportionally to the
// weights, normalizing internally. Non-positive weights are treated as zero.
// Returns -1 when no weight is positive.
func (rn *Rand) WeightedChoice(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := rn.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if target < acc {
			return i
		}
	}
	// Floating point accumulation can leave target a hair past the last
	// bucket; attribute it to the final positive weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}

// Gaussian2D returns a point scattered around (cx, cy) with independent
// per-axis deviations. Used for click-position style scatter.
func (rn *Rand) Gaussian2D(cx, cy, sigmaX, sigmaY float64) (float64, float64) {
	return rn.Gaussian(cx, sigmaX), rn.Gaussian(cy, sigmaY)
}

// MultivariateNormal draws a vector from N(mean, cov) using a Cholesky
// factorization of the covariance matrix. If cov is not positive definite the
// draw degrades to independent sampling from the diagonal.
func (rn *Rand) MultivariateNormal(mean []float64, cov [][]float64) []float64 {
	n := len(mean)
	out := make([]float64, n)

	chol, ok := cholesky(cov)
	if !ok {
		for i := 0; i < n; i++ {
			sd := 0.0
			if cov[i][i] > 0 {
				sd = math.Sqrt(cov[i][i])
			}
			out[i] = rn.Gaussian(mean[i], sd)
		}
		return out
	}

	z := make([]float64, n)
	for i := range z {
		z[i] = rn.Gaussian(0, 1)
	}
	for i := 0; i < n; i++ {
		v := mean[i]
		for j := 0; j <= i; j++ {
			v += chol[i][j] * z[j]
		}
		out[i] = v
	}
	return out
}

// cholesky returns the lower-triangular factor L with L·Lᵀ = m, or ok=false
// when m is not positive definite.
func cholesky(m [][]float64) ([][]float64, bool) {
	n := len(m)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		if len(m[i]) != n {
			return nil, false
		}
		for j := 0; j <= i; j++ {
			sum := m[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, false
				}
				l[i][j] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, true
}

// Clamp bounds v to [min,max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Lerp linearly interpolates between a and b by t in [0,1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*Clamp(t, 0, 1)
}
