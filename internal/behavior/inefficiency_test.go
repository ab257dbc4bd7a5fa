package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

func newTestInjector(fatigue *FatigueModel, seed int64) (*InefficiencyInjector, *fakeClock) {
	clk := newFakeClock()
	in := NewInefficiencyInjector(fatigue, clk, rng.NewSeeded(seed), zap.NewNop())
	return in, clk
}

func TestInefficiencyDisabled(t *testing.T) {
	in, clk := newTestInjector(nil, 1)
	in.SetEnabled(false)
	assert.False(t, in.Enabled())

	for i := 0; i < 1000; i++ {
		clk.Advance(time.Minute)
		assert.False(t, in.ShouldBacktrack())
		assert.False(t, in.ShouldPerformRedundantAction())
		assert.False(t, in.ShouldHesitate())
		assert.False(t, in.ShouldCancelAndRetry())
	}
	assert.Zero(t, in.TotalCount())
}

func TestInefficiencyRateBands(t *testing.T) {
	cases := []struct {
		name  string
		check func(*InefficiencyInjector) bool
		rate  float64
	}{
		{"backtrack", (*InefficiencyInjector).ShouldBacktrack, backtrackRate},
		{"redundant", (*InefficiencyInjector).ShouldPerformRedundantAction, redundantRate},
		{"hesitation", (*InefficiencyInjector).ShouldHesitate, hesitationRate},
		{"cancellation", (*InefficiencyInjector).ShouldCancelAndRetry, cancelRate},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, clk := newTestInjector(nil, int64(100+i))
			const trials = 5000
			hits := 0
			for n := 0; n < trials; n++ {
				// Step past the anti-clustering window so every trial is a
				// fresh draw at the base rate.
				clk.Advance(time.Minute)
				if tc.check(in) {
					hits++
				}
			}
			got := float64(hits) / trials
			assert.InDelta(t, tc.rate, got, tc.rate*0.5,
				"rate %.4f outside band around %.4f", got, tc.rate)
		})
	}
}

func TestInefficiencyAntiClustering(t *testing.T) {
	in, clk := newTestInjector(nil, 2)

	// Force a hesitation trigger, then verify the window blocks repeats.
	triggered := false
	for i := 0; i < 10000; i++ {
		clk.Advance(11 * time.Second)
		if in.ShouldHesitate() {
			triggered = true
			break
		}
	}
	require.True(t, triggered, "hesitation never triggered")

	for i := 0; i < 50; i++ {
		assert.False(t, in.ShouldHesitate(), "triggered inside the anti-clustering window")
	}
	clk.Advance(11 * time.Second)
	// Outside the window the draw is live again; it may or may not hit, but
	// it must not be structurally blocked. Drive until it hits once more.
	hitAgain := false
	for i := 0; i < 10000 && !hitAgain; i++ {
		hitAgain = in.ShouldHesitate()
		clk.Advance(11 * time.Second)
	}
	assert.True(t, hitAgain)
}

func TestInefficiencyFatigueScalingCapped(t *testing.T) {
	exhausted := NewFatigueModel(nil, newFakeClock(), rng.NewSeeded(3), zap.NewNop())
	exhausted.SetLevel(1.0)
	in, clk := newTestInjector(exhausted, 3)

	// At fatigue 1.0 hesitation runs at 2x base. Verify the doubled band.
	const trials = 5000
	hits := 0
	for n := 0; n < trials; n++ {
		clk.Advance(time.Minute)
		if in.ShouldHesitate() {
			hits++
		}
	}
	got := float64(hits) / trials
	assert.InDelta(t, hesitationRate*2, got, hesitationRate, "fatigue should double the rate")
}

func TestInefficiencyCountersSumToTotal(t *testing.T) {
	in, clk := newTestInjector(nil, 4)

	for i := 0; i < 3000; i++ {
		clk.Advance(time.Minute)
		in.ShouldBacktrack()
		in.ShouldPerformRedundantAction()
		in.ShouldHesitate()
		in.ShouldCancelAndRetry()
	}

	sum := in.Count(InefficiencyBacktrack) +
		in.Count(InefficiencyRedundantAction) +
		in.Count(InefficiencyHesitation) +
		in.Count(InefficiencyCancellation)
	assert.Positive(t, sum)
	assert.Equal(t, sum, in.TotalCount())

	in.ResetCounters()
	assert.Zero(t, in.TotalCount())
	assert.Zero(t, in.Count(InefficiencyHesitation))
}

func TestInefficiencyMagnitudes(t *testing.T) {
	in, _ := newTestInjector(nil, 5)

	for i := 0; i < 500; i++ {
		d := in.BacktrackDistance()
		assert.GreaterOrEqual(t, d, 2)
		assert.LessOrEqual(t, d, 10)

		reps := in.RedundantRepetitions()
		assert.Contains(t, []int{1, 2}, reps)

		h := in.HesitationDelay()
		assert.GreaterOrEqual(t, h, 500*time.Millisecond)
		assert.LessOrEqual(t, h, 1500*time.Millisecond)

		cd := in.CancellationDelay()
		assert.GreaterOrEqual(t, cd, time.Second)
		assert.LessOrEqual(t, cd, 3*time.Second)
	}
}

func TestHesitationDelayLengthensWithFatigue(t *testing.T) {
	tired := NewFatigueModel(nil, newFakeClock(), rng.NewSeeded(6), zap.NewNop())
	tired.SetLevel(1.0)
	in, _ := newTestInjector(tired, 6)

	long := 0
	for i := 0; i < 500; i++ {
		h := in.HesitationDelay()
		assert.LessOrEqual(t, h, 2250*time.Millisecond)
		if h > 1500*time.Millisecond {
			long++
		}
	}
	assert.Positive(t, long, "fatigue never stretched a hesitation past the rested maximum")
}

func TestCheckPointResults(t *testing.T) {
	in, clk := newTestInjector(nil, 7)

	var sawHesitation, sawCancel, sawBacktrack, sawRedundant bool
	for i := 0; i < 5000; i++ {
		clk.Advance(time.Minute)

		if r := in.CheckPreClickInefficiency(); !r.None() {
			switch r.Type {
			case InefficiencyHesitation:
				sawHesitation = true
				assert.Positive(t, r.Delay)
			case InefficiencyCancellation:
				sawCancel = true
				assert.Positive(t, r.Delay)
			default:
				t.Fatalf("unexpected pre-click inefficiency %s", r.Type)
			}
		}
		if r := in.CheckPostWalkInefficiency(); !r.None() {
			require.Equal(t, InefficiencyBacktrack, r.Type)
			sawBacktrack = true
			assert.GreaterOrEqual(t, r.Amount, 2)
		}
		if r := in.CheckBankInefficiency(); !r.None() {
			require.Equal(t, InefficiencyRedundantAction, r.Type)
			sawRedundant = true
			assert.Positive(t, r.Amount)
		}
	}
	assert.True(t, sawHesitation)
	assert.True(t, sawCancel)
	assert.True(t, sawBacktrack)
	assert.True(t, sawRedundant)
}

func TestInefficiencyTypeStrings(t *testing.T) {
	assert.Equal(t, "NONE", InefficiencyNone.String())
	assert.Equal(t, "BACKTRACK", InefficiencyBacktrack.String())
	assert.Equal(t, "REDUNDANT_ACTION", InefficiencyRedundantAction.String())
	assert.Equal(t, "HESITATION", InefficiencyHesitation.String())
	assert.Equal(t, "CANCELLATION", InefficiencyCancellation.String())
}
