package behavior

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateProfileDeterministic(t *testing.T) {
	a := GenerateProfile("acct-123", AccountNormal, zap.NewNop())
	b := GenerateProfile("acct-123", AccountNormal, zap.NewNop())

	assert.Equal(t, a.Motor(), b.Motor())
	assert.Equal(t, a.Prefs(), b.Prefs())
	assert.Equal(t, a.Record().BankingWeights, b.Record().BankingWeights)

	c := GenerateProfile("acct-456", AccountNormal, zap.NewNop())
	assert.NotEqual(t, a.Motor(), c.Motor())
}

func TestGenerateProfileTraitBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := GenerateProfile(fmt.Sprintf("bounds-%d", i), AccountNormal, zap.NewNop())
		m := p.Motor()
		prefs := p.Prefs()

		assert.GreaterOrEqual(t, m.MouseSpeed, mouseSpeedMin)
		assert.LessOrEqual(t, m.MouseSpeed, mouseSpeedMax)
		assert.GreaterOrEqual(t, m.ClickVariance, clickVarianceMin)
		assert.LessOrEqual(t, m.ClickVariance, clickVarianceMax)
		assert.GreaterOrEqual(t, m.ClickDurationMu, clickDurationMuMin)
		assert.LessOrEqual(t, m.ClickDurationMu, clickDurationMuMax)
		assert.GreaterOrEqual(t, m.CognitiveDelayBase, cognitiveDelayMin)
		assert.LessOrEqual(t, m.CognitiveDelayBase, cognitiveDelayMax)
		assert.GreaterOrEqual(t, m.OvershootProb, overshootMin)
		assert.LessOrEqual(t, m.OvershootProb, overshootMax)
		assert.GreaterOrEqual(t, m.TypingWPM, typingWPMMin)
		assert.LessOrEqual(t, m.TypingWPM, typingWPMMax)
		assert.GreaterOrEqual(t, m.MisclickRate, misclickMin)
		assert.LessOrEqual(t, m.MisclickRate, misclickMax)
		assert.GreaterOrEqual(t, m.WalkClickInterval, walkIntervalMin)
		assert.LessOrEqual(t, m.WalkClickInterval, walkIntervalMax)
		assert.GreaterOrEqual(t, m.Handedness, 0.0)
		assert.LessOrEqual(t, m.Handedness, 1.0)

		assert.GreaterOrEqual(t, prefs.BreakThreshold, breakThresholdMin)
		assert.LessOrEqual(t, prefs.BreakThreshold, breakThresholdMax)
		assert.GreaterOrEqual(t, prefs.LearningCapacity, learningCapacityMin)
		assert.LessOrEqual(t, prefs.LearningCapacity, learningCapacityMax)
		assert.GreaterOrEqual(t, prefs.CircadianStrength, 0.15)
		assert.LessOrEqual(t, prefs.CircadianStrength, 0.35)
	}
}

func TestGenerateProfileRunHysteresis(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := GenerateProfile(fmt.Sprintf("run-%d", i), AccountNormal, zap.NewNop())
		prefs := p.Prefs()
		gap := prefs.RunEnableThreshold - prefs.RunDisableThreshold
		assert.GreaterOrEqual(t, gap, runHysteresisGap,
			"enable %d vs disable %d", prefs.RunEnableThreshold, prefs.RunDisableThreshold)
	}
}

func TestGenerateProfileSessionRituals(t *testing.T) {
	pool := make(map[string]struct{}, len(ritualPool))
	for _, r := range ritualPool {
		pool[r] = struct{}{}
	}
	for i := 0; i < 30; i++ {
		p := GenerateProfile(fmt.Sprintf("ritual-%d", i), AccountNormal, zap.NewNop())
		rituals := p.Prefs().SessionRituals
		assert.GreaterOrEqual(t, len(rituals), 2)
		assert.LessOrEqual(t, len(rituals), 4)
		seen := make(map[string]struct{})
		for _, r := range rituals {
			_, inPool := pool[r]
			assert.True(t, inPool, "unknown ritual %s", r)
			_, dup := seen[r]
			assert.False(t, dup, "duplicate ritual %s", r)
			seen[r] = struct{}{}
		}
	}
}

func TestTeleportWeightsByAccountType(t *testing.T) {
	sumWeights := func(w map[TeleportMethod]float64) float64 {
		total := 0.0
		for _, v := range w {
			total += v
		}
		return total
	}

	t.Run("hardcore", func(t *testing.T) {
		for i := 0; i < 30; i++ {
			p := GenerateProfile(fmt.Sprintf("hc-%d", i), AccountHardcoreIronman, zap.NewNop())
			prefs := p.Prefs()
			assert.Equal(t, 1.0, prefs.LawRuneAversion)
			assert.Zero(t, prefs.TeleportWeights[TeleportSpellbook])
			assert.GreaterOrEqual(t, prefs.TeleportWeights[TeleportFairyRing], 0.60)
			assert.LessOrEqual(t, prefs.TeleportWeights[TeleportFairyRing], 0.80)
			assert.InDelta(t, 1.0, sumWeights(prefs.TeleportWeights), 0.01)
		}
	})

	t.Run("ironman", func(t *testing.T) {
		for i := 0; i < 30; i++ {
			p := GenerateProfile(fmt.Sprintf("im-%d", i), AccountIronman, zap.NewNop())
			prefs := p.Prefs()
			assert.GreaterOrEqual(t, prefs.LawRuneAversion, 0.55)
			assert.LessOrEqual(t, prefs.LawRuneAversion, 0.65)
			assert.GreaterOrEqual(t, prefs.TeleportWeights[TeleportFairyRing], 0.45)
			assert.LessOrEqual(t, prefs.TeleportWeights[TeleportFairyRing], 0.55)
			assert.GreaterOrEqual(t, prefs.TeleportWeights[TeleportSpellbook], 0.20)
			assert.LessOrEqual(t, prefs.TeleportWeights[TeleportSpellbook], 0.26)
			assert.InDelta(t, 1.0, sumWeights(prefs.TeleportWeights), 0.01)
		}
	})

	t.Run("normal has no dominant method", func(t *testing.T) {
		for i := 0; i < 30; i++ {
			p := GenerateProfile(fmt.Sprintf("nm-%d", i), AccountNormal, zap.NewNop())
			prefs := p.Prefs()
			assert.LessOrEqual(t, prefs.LawRuneAversion, 0.30)
			for m, w := range prefs.TeleportWeights {
				assert.Less(t, w, 0.7, "method %s dominates", m)
			}
			assert.InDelta(t, 1.0, sumWeights(prefs.TeleportWeights), 0.01)
		}
	})
}

func TestSequenceWeights(t *testing.T) {
	for i := 0; i < 30; i++ {
		p := GenerateProfile(fmt.Sprintf("seq-%d", i), AccountNormal, zap.NewNop())
		rec := p.Record()
		for _, weights := range []map[SequenceType]float64{rec.BankingWeights, rec.CombatWeights} {
			total, max := 0.0, 0.0
			for _, w := range weights {
				total += w
				if w > max {
					max = w
				}
			}
			assert.InDelta(t, 1.0, total, 0.01)
			assert.GreaterOrEqual(t, max, 0.40)
			assert.LessOrEqual(t, max, 0.60)
		}
	}
}

func TestSequenceReinforcement(t *testing.T) {
	p := GenerateProfile("reinforce", AccountNormal, zap.NewNop())
	before := p.Record().BankingWeights[SequenceTypeA]

	p.ReinforceBankingSequence(SequenceTypeA)
	after := p.Record().BankingWeights[SequenceTypeA]
	assert.Greater(t, after, before)

	// Heavy reinforcement saturates at the cap with the others floored.
	for i := 0; i < 500; i++ {
		p.ReinforceBankingSequence(SequenceTypeA)
	}
	weights := p.Record().BankingWeights
	total := 0.0
	for _, w := range weights {
		total += w
		assert.GreaterOrEqual(t, w, sequenceWeightFloor-0.001)
	}
	assert.InDelta(t, 1.0, total, 0.01)
	assert.LessOrEqual(t, weights[SequenceTypeA], sequenceWeightCap+0.01)
}

func TestSelectSequenceRespectsAllowedFilter(t *testing.T) {
	p := GenerateProfile("select", AccountNormal, zap.NewNop())
	for i := 0; i < 100; i++ {
		got := p.SelectBankingSequence(SequenceTypeB, SequenceTypeC)
		assert.NotEqual(t, SequenceTypeA, got)
	}
}

func TestTaskProficiency(t *testing.T) {
	p := GenerateProfile("prof", AccountNormal, zap.NewNop())
	capacity := p.Prefs().LearningCapacity

	assert.InDelta(t, 1.0, p.TaskProficiencyMultiplier("WOODCUTTING"), 1e-9,
		"novice runs at the base multiplier")

	// Saturation: enormous practice approaches 1-capacity.
	p.RecordTaskExperience("WOODCUTTING", 100000)
	assert.InDelta(t, 1.0-capacity, p.TaskProficiencyMultiplier("WOODCUTTING"), 0.01)
}

func TestTaskProficiencyTransfer(t *testing.T) {
	p := GenerateProfile("prof-transfer", AccountNormal, zap.NewNop())
	p.RecordTaskExperience("WOODCUTTING", 600)

	direct := p.TaskProficiencyMultiplier("WOODCUTTING")

	// Same-category transfer: mining benefits at half strength.
	mining := p.TaskProficiencyMultiplier("MINING")
	assert.Less(t, mining, 1.0)
	assert.Greater(t, mining, direct)

	// Cross-category transfer is weaker still.
	cooking := p.TaskProficiencyMultiplier("COOKING")
	assert.Less(t, cooking, 1.0)
	assert.Greater(t, cooking, mining)
}

func TestCircadianPerformanceMultiplier(t *testing.T) {
	p := GenerateProfile("circadian", AccountNormal, zap.NewNop())
	prefs := p.Prefs()

	peak := 14
	switch prefs.Chronotype {
	case "EARLY_BIRD":
		peak = 10
	case "NIGHT_OWL":
		peak = 20
	}
	peak += prefs.PeakHourOffset

	assert.InDelta(t, 1.0, p.CircadianPerformanceMultiplier(((peak%24)+24)%24), 1e-9)
	for hour := 0; hour < 24; hour++ {
		v := p.CircadianPerformanceMultiplier(hour)
		assert.GreaterOrEqual(t, v, 1.0-prefs.CircadianStrength-1e-9)
		assert.LessOrEqual(t, v, 1.0+1e-9)
	}
}

func TestLongTermDrift(t *testing.T) {
	p := GenerateProfile("drift", AccountNormal, zap.NewNop())
	speedBefore := p.Motor().MouseSpeed
	varBefore := p.Motor().ClickVariance

	// Below one full block: no change yet.
	p.ApplyLongTermDrift(10)
	assert.Equal(t, speedBefore, p.Motor().MouseSpeed)

	// Two more blocks accumulate.
	p.ApplyLongTermDrift(35)
	assert.InDelta(t, 45.0, p.TotalDriftHours(), 1e-9)
	m := p.Motor()
	assert.GreaterOrEqual(t, m.MouseSpeed, speedBefore)
	assert.LessOrEqual(t, m.MouseSpeed, mouseSpeedMax)
	assert.LessOrEqual(t, m.ClickVariance, varBefore)
	assert.GreaterOrEqual(t, m.ClickVariance, clickVarianceMin)
}

func TestBeginSession(t *testing.T) {
	p := GenerateProfile("session", AccountNormal, zap.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, p.BeginSession(now), "first session is fresh")
	assert.False(t, p.BeginSession(now.Add(5*time.Minute)), "quick relog is not fresh")
	assert.True(t, p.BeginSession(now.Add(2*time.Hour)), "long gap is fresh")

	drift := p.SessionDrift()
	assert.GreaterOrEqual(t, drift, 0.98)
	assert.LessOrEqual(t, drift, 1.02)
}

func TestProfileRecordRoundTrip(t *testing.T) {
	p := GenerateProfile("roundtrip", AccountIronman, zap.NewNop())
	p.RecordTaskExperience("FISHING", 120)
	p.ApplyLongTermDrift(25)

	rec := p.Record()
	assert.Equal(t, ProfileSchemaVersion, rec.SchemaVersion)

	restored := RestoreProfile(rec, zap.NewNop())
	assert.Equal(t, p.AccountHash(), restored.AccountHash())
	assert.Equal(t, AccountIronman, restored.AccountType())
	assert.Equal(t, p.Motor(), restored.Motor())
	assert.Equal(t, p.Prefs(), restored.Prefs())
	assert.InDelta(t, 120.0, restored.TaskExperience("fishing"), 1e-9)
	assert.InDelta(t, p.TotalDriftHours(), restored.TotalDriftHours(), 1e-9)
}

func TestDefaultProfileSentinel(t *testing.T) {
	p := GenerateProfile("", AccountNormal, zap.NewNop())
	assert.True(t, p.IsDefault())
	assert.True(t, p.Loaded())

	named := GenerateProfile("someone", AccountNormal, zap.NewNop())
	assert.False(t, named.IsDefault())
}

func TestHashAccountStable(t *testing.T) {
	a := HashAccount("player@example.com")
	b := HashAccount("player@example.com")
	require.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, HashAccount("other@example.com"))
}
