package behavior

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

func newTestJitter(seed int64) *TickJitterController {
	return NewTickJitterController(nil, nil, nil, rng.NewSeeded(seed), zap.NewNop())
}

func TestJitterDisabledReturnsZero(t *testing.T) {
	c := newTestJitter(1)
	c.SetEnabled(false)
	assert.False(t, c.Enabled())
	assert.Zero(t, c.CalculateJitter(ActivityMedium))
	assert.Zero(t, c.CalculateJitterWithAnticipation(ActivityCritical, true))
}

func TestJitterBounds(t *testing.T) {
	c := newTestJitter(2)
	for _, activity := range []ActivityType{ActivityIdle, ActivityMedium, ActivityCritical} {
		for i := 0; i < 2000; i++ {
			d := c.CalculateJitter(activity)
			assert.GreaterOrEqual(t, d, jitterFloor)
			assert.LessOrEqual(t, d, jitterCeiling)
		}
	}
}

func TestJitterScalesWithActivityIntensity(t *testing.T) {
	c := newTestJitter(3)

	mean := func(activity ActivityType) float64 {
		const n = 3000
		total := time.Duration(0)
		for i := 0; i < n; i++ {
			total += c.CalculateJitter(activity)
		}
		return float64(total) / n
	}

	critical := mean(ActivityCritical)
	medium := mean(ActivityMedium)
	idle := mean(ActivityIdle)
	assert.Less(t, critical, medium, "critical reactions are sharper than routine ones")
	assert.Less(t, medium, idle, "idling is sluggish")
}

func TestJitterFatigueWidensDelays(t *testing.T) {
	rested := NewFatigueModel(nil, newFakeClock(), rng.NewSeeded(4), zap.NewNop())
	tired := NewFatigueModel(nil, newFakeClock(), rng.NewSeeded(4), zap.NewNop())
	tired.SetLevel(1.0)

	mean := func(f *FatigueModel, seed int64) float64 {
		c := NewTickJitterController(nil, f, nil, rng.NewSeeded(seed), zap.NewNop())
		const n = 3000
		total := time.Duration(0)
		for i := 0; i < n; i++ {
			total += c.CalculateJitter(ActivityMedium)
		}
		return float64(total) / n
	}

	assert.Less(t, mean(rested, 5), mean(tired, 5))
}

func TestEmergencyJitterRange(t *testing.T) {
	c := newTestJitter(6)
	for i := 0; i < 500; i++ {
		d := c.CalculateEmergencyJitter()
		assert.GreaterOrEqual(t, d, emergencyJitterMin)
		assert.LessOrEqual(t, d, emergencyJitterMax)
	}
}

func TestAnticipationCollapsesSomeDelays(t *testing.T) {
	c := newTestJitter(7)

	fast := 0
	const n = 4000
	for i := 0; i < n; i++ {
		if c.CalculateJitterWithAnticipation(ActivityMedium, true) <= 50*time.Millisecond {
			fast++
		}
	}
	frac := float64(fast) / n
	// The 15% anticipation path plus the natural left tail.
	assert.Greater(t, frac, 0.10)
	assert.Less(t, frac, 0.50)
}

func TestScheduleJitteredExecutionSingleSlot(t *testing.T) {
	c := newTestJitter(8)
	defer c.Shutdown()

	done := make(chan struct{})
	require.True(t, c.ScheduleJitteredExecution(ActivityCritical, func() { close(done) }))
	assert.True(t, c.IsJitterPending())
	assert.False(t, c.ScheduleJitteredExecution(ActivityCritical, func() {}),
		"second schedule while one is pending must be rejected")

	select {
	case <-done:
	case <-time.After(12 * time.Second):
		t.Fatal("scheduled action never ran")
	}
	assert.Eventually(t, func() bool { return !c.IsJitterPending() },
		time.Second, 5*time.Millisecond)
}

func TestCancelPendingGuaranteesNonExecution(t *testing.T) {
	c := newTestJitter(9)

	var executed atomic.Bool
	require.True(t, c.ScheduleJitteredExecution(ActivityIdle, func() { executed.Store(true) }))
	c.CancelPending()
	assert.False(t, c.IsJitterPending())

	// Shutdown drains any in-flight callback; afterwards the action must not
	// have run.
	c.Shutdown()
	assert.False(t, executed.Load())
}

func TestScheduleAfterShutdownRejected(t *testing.T) {
	c := newTestJitter(10)
	c.Shutdown()
	c.Shutdown() // idempotent
	assert.False(t, c.ScheduleJitteredExecution(ActivityMedium, func() {}))
}

func TestExecuteImmediateBypassesPendingSlot(t *testing.T) {
	c := newTestJitter(11)
	defer c.Shutdown()

	ran := false
	c.ExecuteImmediate(func() { ran = true })
	assert.True(t, ran)
	assert.False(t, c.IsJitterPending())
}

func TestJitterReset(t *testing.T) {
	c := newTestJitter(12)
	defer c.Shutdown()

	var executed atomic.Bool
	require.True(t, c.ScheduleJitteredExecution(ActivityIdle, func() { executed.Store(true) }))
	c.SetEnabled(false)
	c.Reset()
	assert.False(t, c.IsJitterPending())
	assert.True(t, c.Enabled())
	assert.False(t, executed.Load())
}

func TestJitterRepetitivenessRaisesTickSkips(t *testing.T) {
	clk := newFakeClock()
	tracker := NewActivityTracker(AccountNormal, clk, zap.NewNop())
	tracker.Tick(Snapshot{TaskName: "Mining"})
	clk.Advance(3 * time.Hour)
	tracker.Tick(Snapshot{TaskName: "Mining"})
	require.InDelta(t, 2.0, tracker.RepetitivenessMultiplier(), 1e-9)

	bored := NewTickJitterController(nil, nil, tracker, rng.NewSeeded(13), zap.NewNop())
	fresh := NewTickJitterController(nil, nil, nil, rng.NewSeeded(13), zap.NewNop())

	countSkips := func(c *TickJitterController) int {
		skips := 0
		for i := 0; i < 5000; i++ {
			if c.CalculateJitter(ActivityMedium) >= tickSkipDelay {
				skips++
			}
		}
		return skips
	}

	assert.Greater(t, countSkips(bored), countSkips(fresh))
}
