package behavior

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

const (
	// Per-action fatigue increment before activity scaling.
	fatigueActionIncrement = 0.0005

	// Passive accumulation per active second, amplified quadratically by
	// session length.
	fatigueTimeIncrement  = 0.00002
	fatigueSessionQuad    = 0.15
	fatigueSessionRecover = 0.3

	// Recovery per minute of recorded break time.
	fatigueBreakRecovery = 0.1

	// Fallback misclick base when no profile is attached.
	defaultMisclickBase = 0.02

	// Fallback break threshold when no profile is attached.
	defaultBreakThreshold = 0.80

	// Attention-crash micro-event: a sudden lapse under fatigue.
	crashPerSecond   = 0.00025
	crashMinFatigue  = 0.20
	crashCooldown    = 300 * time.Second
	crashSpikeMin    = 0.15
	crashSpikeMax    = 0.25

	// Coffee-break micro-event: a short self-initiated recovery.
	coffeePerSecond     = 0.00033
	coffeeMinFatigue    = 0.30
	coffeeCooldown      = 600 * time.Second
	coffeeRecoveryMin   = 0.05
	coffeeRecoveryMax   = 0.12
	coffeeAfterCrashWin = 180 * time.Second
	coffeeAfterCrashMul = 3.0
)

// FatigueEvent is a stochastic micro-event surfaced by Advance.
type FatigueEvent int

const (
	FatigueEventNone FatigueEvent = iota
	// FatigueEventAttentionCrash is a sudden focus lapse; Magnitude carries
	// the severity in [0.15, 0.25].
	FatigueEventAttentionCrash
	// FatigueEventCoffeeBreak is a brief self-recovery that lowers fatigue.
	FatigueEventCoffeeBreak
)

// FatigueEventResult pairs an event with its drawn magnitude.
type FatigueEventResult struct {
	Event     FatigueEvent
	Magnitude float64
}

// FatigueModel tracks a bounded fatigue scalar for one session and exposes
// the multipliers that degrade precision and slow reactions as it grows.
// Every mutation clamps to [0, 1].
type FatigueModel struct {
	mu    sync.Mutex
	log   *zap.Logger
	rnd   *rng.Rand
	clock Clock

	profile     *PlayerProfile
	accountType AccountType

	level   float64
	onBreak bool

	sessionStart time.Time
	lastAdvance  time.Time
	breakStart   time.Time

	lastCrash  time.Time
	lastCoffee time.Time
}

// NewFatigueModel creates the fatigue tracker. profile may be nil, in which
// case conservative normal-account defaults apply.
func NewFatigueModel(profile *PlayerProfile, clock Clock, rnd *rng.Rand, logger *zap.Logger) *FatigueModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rnd == nil {
		rnd = rng.New()
	}
	if clock == nil {
		clock = SystemClock()
	}
	accountType := AccountNormal
	if profile != nil {
		accountType = profile.AccountType()
	}
	now := clock.Now()
	return &FatigueModel{
		log:          logger.Named("fatigue"),
		rnd:          rnd,
		clock:        clock,
		profile:      profile,
		accountType:  accountType,
		sessionStart: now,
		lastAdvance:  now,
	}
}

func (f *FatigueModel) clampLocked() {
	f.level = rng.Clamp(f.level, 0, 1)
}

// Level returns the current fatigue scalar in [0, 1].
func (f *FatigueModel) Level() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// SetLevel overrides the fatigue scalar, clamping to [0, 1]. Intended for
// session restore and tests.
func (f *FatigueModel) SetLevel(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = v
	f.clampLocked()
}

// OnBreak reports whether a break is in progress.
func (f *FatigueModel) OnBreak() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onBreak
}

// RecordAction adds the per-action increment scaled by activity intensity.
// No-op while on break.
func (f *FatigueModel) RecordAction(activity ActivityType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onBreak {
		return
	}
	f.level += fatigueActionIncrement * activity.FatigueFactor()
	f.clampLocked()
}

// OnSessionStart applies the rested-start recovery and resets the session
// clock.
func (f *FatigueModel) OnSessionStart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clock.Now()
	f.level -= fatigueSessionRecover
	f.clampLocked()
	f.sessionStart = now
	f.lastAdvance = now
}

// Advance accumulates time-based fatigue since the previous call and rolls
// the fatigue micro-events. Frozen while on break.
func (f *FatigueModel) Advance() FatigueEventResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	elapsed := now.Sub(f.lastAdvance).Seconds()
	f.lastAdvance = now
	if f.onBreak || elapsed <= 0 {
		return FatigueEventResult{Event: FatigueEventNone}
	}

	// Longer sessions tire faster: quadratic session factor.
	sessionHours := now.Sub(f.sessionStart).Hours()
	f.level += fatigueTimeIncrement * elapsed * (1 + sessionHours*sessionHours*fatigueSessionQuad)
	f.clampLocked()

	// Attention crash: probability grows with fatigue.
	if f.level >= crashMinFatigue && now.Sub(f.lastCrash) >= crashCooldown {
		p := crashPerSecond * elapsed * (1 + 0.5*f.level)
		if f.rnd.Chance(p) {
			f.lastCrash = now
			mag := f.rnd.Uniform(crashSpikeMin, crashSpikeMax)
			f.log.Debug("Attention crash", zap.Float64("magnitude", mag), zap.Float64("fatigue", f.level))
			return FatigueEventResult{Event: FatigueEventAttentionCrash, Magnitude: mag}
		}
	}

	// Coffee break: much more likely shortly after a crash.
	if f.level >= coffeeMinFatigue && now.Sub(f.lastCoffee) >= coffeeCooldown {
		p := coffeePerSecond * elapsed
		if now.Sub(f.lastCrash) <= coffeeAfterCrashWin {
			p *= coffeeAfterCrashMul
		}
		if f.rnd.Chance(p) {
			f.lastCoffee = now
			recovery := f.rnd.Uniform(coffeeRecoveryMin, coffeeRecoveryMax)
			f.level -= recovery
			f.clampLocked()
			f.log.Debug("Coffee break", zap.Float64("recovery", recovery), zap.Float64("fatigue", f.level))
			return FatigueEventResult{Event: FatigueEventCoffeeBreak, Magnitude: recovery}
		}
	}

	return FatigueEventResult{Event: FatigueEventNone}
}

// StartBreak freezes accumulation until EndBreak.
func (f *FatigueModel) StartBreak() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onBreak {
		return
	}
	f.onBreak = true
	f.breakStart = f.clock.Now()
}

// EndBreak applies recovery for the elapsed break and resumes accumulation.
func (f *FatigueModel) EndBreak() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.onBreak {
		return
	}
	now := f.clock.Now()
	f.onBreak = false
	f.applyBreakLocked(now.Sub(f.breakStart))
	f.lastAdvance = now
}

// RecordBreakTime applies recovery for a break tracked elsewhere.
func (f *FatigueModel) RecordBreakTime(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyBreakLocked(d)
}

func (f *FatigueModel) applyBreakLocked(d time.Duration) {
	f.level -= fatigueBreakRecovery * d.Minutes()
	f.clampLocked()
}

// --- Multipliers, all linear in the fatigue level ---

// SigmaMultiplier widens timing noise: 1 + 0.6f.
func (f *FatigueModel) SigmaMultiplier() float64 {
	return 1 + 0.6*f.Level()
}

// TauMultiplier lengthens the reaction tail: 1 + 0.8f.
func (f *FatigueModel) TauMultiplier() float64 {
	return 1 + 0.8*f.Level()
}

// ClickVarianceMultiplier scatters click positions: 1 + 0.4f.
func (f *FatigueModel) ClickVarianceMultiplier() float64 {
	return 1 + 0.4*f.Level()
}

// MisclickMultiplier raises the misclick rate sharply: 1 + 2f.
func (f *FatigueModel) MisclickMultiplier() float64 {
	return 1 + 2.0*f.Level()
}

// EffectiveMisclickRate is the profile's base misclick rate degraded by
// fatigue. Without a profile a conservative default base applies.
func (f *FatigueModel) EffectiveMisclickRate() float64 {
	base := defaultMisclickBase
	if f.profile != nil {
		base = f.profile.MisclickRate()
	}
	return base * f.MisclickMultiplier()
}

// ShouldTakeBreak compares fatigue against the persona's break threshold.
// Hardcore accounts rest earlier via the account-type modifier.
func (f *FatigueModel) ShouldTakeBreak() bool {
	threshold := defaultBreakThreshold
	if f.profile != nil {
		threshold = f.profile.BreakThreshold()
	}
	return f.Level() >= threshold*f.accountType.BreakThresholdModifier()
}
