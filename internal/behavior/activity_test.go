package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestActivityClassification(t *testing.T) {
	clk := newFakeClock()
	tr := NewActivityTracker(AccountNormal, clk, zap.NewNop())

	assert.Equal(t, ActivityIdle, tr.Tick(Snapshot{}))

	assert.Equal(t, ActivityMedium, tr.Tick(Snapshot{TaskName: "Woodcutting"}))

	assert.Equal(t, ActivityHigh, tr.Tick(Snapshot{TargetPresent: true, TargetName: "Goblin"}))
	assert.True(t, tr.InCombat())
	assert.False(t, tr.InBossFight())

	// Combat inside the wilderness escalates.
	assert.Equal(t, ActivityCritical, tr.Tick(Snapshot{
		TargetPresent: true, TargetName: "Goblin", WildernessLevel: 12,
	}))
	assert.Equal(t, 12, tr.WildernessLevel())
	assert.True(t, tr.InDangerousArea())

	// Bosses are critical anywhere.
	assert.Equal(t, ActivityCritical, tr.Tick(Snapshot{
		TargetPresent: true, TargetName: "Zulrah",
	}))
	assert.True(t, tr.InBossFight())

	// Being attacked without a target still counts as combat.
	assert.Equal(t, ActivityHigh, tr.Tick(Snapshot{AggressorCount: 2}))
}

func TestIsBossName(t *testing.T) {
	assert.True(t, IsBossName("ZULRAH"))
	assert.True(t, IsBossName("zulrah"))
	assert.True(t, IsBossName("  Vorkath  "))
	assert.True(t, IsBossName("General Graardor"))
	assert.False(t, IsBossName("Goblin"))
	assert.False(t, IsBossName(""))
}

func TestExplicitActivityOverride(t *testing.T) {
	clk := newFakeClock()
	tr := NewActivityTracker(AccountNormal, clk, zap.NewNop())

	tr.SetExplicitActivity(ActivityLow)
	assert.Equal(t, ActivityLow, tr.Current())
	// Overrides survive contradicting game state.
	assert.Equal(t, ActivityLow, tr.Tick(Snapshot{TargetPresent: true, TargetName: "Zulrah"}))

	tr.ClearExplicitActivity()
	assert.Equal(t, ActivityCritical, tr.Current())
}

func TestInterruptionPolicy(t *testing.T) {
	clk := newFakeClock()

	t.Run("normal account", func(t *testing.T) {
		tr := NewActivityTracker(AccountNormal, clk, zap.NewNop())

		tr.Tick(Snapshot{TargetPresent: true, TargetName: "Goblin"})
		assert.True(t, tr.CanInterrupt(), "regular combat stays interruptible")
		assert.True(t, tr.CanEnterAFK())
		assert.True(t, tr.CanTakeBreak())

		tr.Tick(Snapshot{TargetPresent: true, TargetName: "Zulrah"})
		assert.False(t, tr.CanInterrupt(), "nothing interrupts a boss fight")
		assert.False(t, tr.CanEnterAFK())
		assert.False(t, tr.CanTakeBreak())
	})

	t.Run("hardcore treats all combat as critical for interruption", func(t *testing.T) {
		tr := NewActivityTracker(AccountHardcoreIronman, clk, zap.NewNop())

		tr.Tick(Snapshot{TargetPresent: true, TargetName: "Goblin"})
		assert.False(t, tr.CanInterrupt())
		assert.False(t, tr.CanEnterAFK())
		assert.False(t, tr.CanTakeBreak())

		tr.Tick(Snapshot{TaskName: "Fishing"})
		assert.True(t, tr.CanInterrupt())
	})
}

func TestRepetitivenessMultiplier(t *testing.T) {
	clk := newFakeClock()
	tr := NewActivityTracker(AccountNormal, clk, zap.NewNop())

	assert.InDelta(t, 1.0, tr.RepetitivenessMultiplier(), 1e-9, "idle has no repetition")

	tr.Tick(Snapshot{TaskName: "Mining"})
	assert.InDelta(t, 1.0, tr.RepetitivenessMultiplier(), 1e-9)

	clk.Advance(5 * time.Minute)
	tr.Tick(Snapshot{TaskName: "Mining"})
	assert.InDelta(t, 1.1, tr.RepetitivenessMultiplier(), 1e-9)

	clk.Advance(25 * time.Minute)
	tr.Tick(Snapshot{TaskName: "Mining"})
	assert.InDelta(t, 1.6, tr.RepetitivenessMultiplier(), 1e-9)

	// Grinding forever saturates at the cap.
	clk.Advance(3 * time.Hour)
	tr.Tick(Snapshot{TaskName: "Mining"})
	assert.InDelta(t, repetitivenessMax, tr.RepetitivenessMultiplier(), 1e-9)

	// Switching tasks resets the counter.
	tr.Tick(Snapshot{TaskName: "Fishing"})
	assert.InDelta(t, 1.0, tr.RepetitivenessMultiplier(), 1e-9)
}

func TestActivityTypeProperties(t *testing.T) {
	assert.True(t, ActivityHigh.IsCombat())
	assert.True(t, ActivityCritical.IsCombat())
	assert.False(t, ActivityMedium.IsCombat())

	assert.False(t, ActivityCritical.Interruptible())
	assert.True(t, ActivityHigh.Interruptible())

	// Intensity ordering holds for the fatigue factors and inverts for the
	// jitter scales.
	levels := []ActivityType{ActivityIdle, ActivityLow, ActivityMedium, ActivityHigh, ActivityCritical}
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].FatigueFactor(), levels[i-1].FatigueFactor())
		assert.Less(t, levels[i].JitterScale(), levels[i-1].JitterScale())
		assert.GreaterOrEqual(t, levels[i].CognitiveLoad(), levels[i-1].CognitiveLoad())
	}
}
