package behavior

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

const (
	// A gap of six hours or more starts a new performance "day".
	newDayGapHours = 6.0

	// Daily innovation: Gauss(1.0, 0.08) clamped to the daily bounds.
	dailyInnovationSigma = 0.08
	dailyMin             = 0.85
	dailyMax             = 1.15

	// Asymmetric AR(1) coefficients. Bad days arrive fast (low alpha keeps
	// little of yesterday), recovery is slower.
	alphaDegrading  = 0.4
	alphaRecovering = 0.7

	// Hard ceilings on modulated traits.
	overshootCeiling    = 0.40
	wobbleCeiling       = 2.0
	velocityFlowCeiling = 1.0
)

// PerformanceState modulates a profile's base traits into "effective" traits
// for the current moment: daily variance (AR(1)) × circadian curve ×
// task-specific motor learning. One instance lives alongside one profile and
// is re-initialized per session.
type PerformanceState struct {
	mu      sync.Mutex
	log     *zap.Logger
	rnd     *rng.Rand
	clock   Clock
	profile *PlayerProfile

	initialized bool
	daily       float64
	hasPrevious bool
	lastInit    int64 // unix seconds of the previous InitializeSession

	currentTask string
}

// NewPerformanceState creates the modulator for one profile. A nil rnd is
// entropy-seeded, a nil clock uses the wall clock, a nil logger is a no-op.
func NewPerformanceState(profile *PlayerProfile, clock Clock, rnd *rng.Rand, logger *zap.Logger) *PerformanceState {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rnd == nil {
		rnd = rng.New()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &PerformanceState{
		log:     logger.Named("performance"),
		rnd:     rnd,
		clock:   clock,
		profile: profile,
	}
}

// InitializeSession computes the daily performance scalar for this session.
// It fails when the owning profile is not loaded. Sessions separated by less
// than the new-day gap reuse the current daily value; longer gaps chain a
// fresh innovation through the asymmetric AR(1) process.
func (ps *PerformanceState) InitializeSession() error {
	if ps.profile == nil || !ps.profile.Loaded() {
		return ErrProfileNotLoaded
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := ps.clock.Now()
	gapHours := float64(now.Unix()-ps.lastInit) / 3600.0

	switch {
	case !ps.hasPrevious:
		ps.daily = ps.rnd.GaussianClamped(1.0, dailyInnovationSigma, dailyMin, dailyMax)
		ps.hasPrevious = true
	case gapHours >= newDayGapHours:
		innovation := ps.rnd.GaussianClamped(1.0, dailyInnovationSigma, dailyMin, dailyMax)
		alpha := alphaRecovering
		if innovation < ps.daily {
			alpha = alphaDegrading
		}
		ps.daily = rng.Clamp(alpha*ps.daily+(1-alpha)*innovation, dailyMin, dailyMax)
	default:
		// Same performance day; keep the chained value.
	}

	ps.lastInit = now.Unix()
	ps.initialized = true

	prefs := ps.profile.Prefs()
	ps.log.Info("Performance session initialized",
		zap.Float64("dailyPerformance", ps.daily),
		zap.String("chronotype", prefs.Chronotype),
		zap.Float64("circadianStrength", prefs.CircadianStrength))
	return nil
}

// SetCurrentTaskType switches the motor-learning lookup to the given task.
// Names are case-insensitive; empty clears the task (multiplier 1.0).
func (ps *PerformanceState) SetCurrentTaskType(task string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.currentTask = strings.ToUpper(strings.TrimSpace(task))
}

// DailyPerformance returns the AR(1)-chained daily scalar.
func (ps *PerformanceState) DailyPerformance() (float64, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.initialized {
		return 0, ErrSessionNotInitialized
	}
	return ps.daily, nil
}

// CircadianModifier returns the profile's circadian factor for the current
// hour.
func (ps *PerformanceState) CircadianModifier() (float64, error) {
	ps.mu.Lock()
	if !ps.initialized {
		ps.mu.Unlock()
		return 0, ErrSessionNotInitialized
	}
	hour := ps.clock.Now().Hour()
	ps.mu.Unlock()
	return ps.profile.CircadianPerformanceMultiplier(hour), nil
}

// PerformanceModifier is daily × circadian, the overall "how good is the
// player right now" factor. Values below 1.0 mean a worse-than-usual moment.
func (ps *PerformanceState) PerformanceModifier() (float64, error) {
	daily, err := ps.DailyPerformance()
	if err != nil {
		return 0, err
	}
	circadian, err := ps.CircadianModifier()
	if err != nil {
		return 0, err
	}
	return daily * circadian, nil
}

// learningMultiplier returns the motor-learning factor for the current task,
// 1.0 when no task is set.
func (ps *PerformanceState) learningMultiplier() float64 {
	ps.mu.Lock()
	task := ps.currentTask
	ps.mu.Unlock()
	if task == "" {
		return 1.0
	}
	return ps.profile.TaskProficiencyMultiplier(task)
}

// effectiveTiming modulates a lower-is-better (timing) trait: worse moments
// divide, practice multiplies the factor below 1.
func (ps *PerformanceState) effectiveTiming(base float64) (float64, error) {
	mod, err := ps.PerformanceModifier()
	if err != nil {
		return 0, err
	}
	return base / mod * ps.learningMultiplier(), nil
}

// EffectiveCognitiveDelay is the modulated cognitive-delay base in ms.
func (ps *PerformanceState) EffectiveCognitiveDelay() (float64, error) {
	return ps.effectiveTiming(ps.profile.Motor().CognitiveDelayBase)
}

// EffectiveClickDurationMu is the modulated click-hold mean in ms.
func (ps *PerformanceState) EffectiveClickDurationMu() (float64, error) {
	return ps.effectiveTiming(ps.profile.Motor().ClickDurationMu)
}

// EffectiveFittsB is the modulated Fitts'-law slope.
func (ps *PerformanceState) EffectiveFittsB() (float64, error) {
	return ps.effectiveTiming(ps.profile.Motor().FittsB)
}

// EffectiveJitterParams returns the modulated ex-Gaussian jitter parameters.
func (ps *PerformanceState) EffectiveJitterParams() (mu, sigma, tau float64, err error) {
	mod, err := ps.PerformanceModifier()
	if err != nil {
		return 0, 0, 0, err
	}
	learn := ps.learningMultiplier()
	motor := ps.profile.Motor()
	return motor.JitterMu / mod * learn,
		motor.JitterSigma / mod * learn,
		motor.JitterTau / mod * learn,
		nil
}

// EffectiveMouseSpeed is the modulated speed multiplier: a higher-is-better
// trait, so good moments multiply. Clamped to the profile's hard bounds.
func (ps *PerformanceState) EffectiveMouseSpeed() (float64, error) {
	mod, err := ps.PerformanceModifier()
	if err != nil {
		return 0, err
	}
	return rng.Clamp(ps.profile.Motor().MouseSpeed*mod, mouseSpeedMin, mouseSpeedMax), nil
}

// EffectiveOvershootProb is the modulated overshoot probability, ceiling 0.40.
func (ps *PerformanceState) EffectiveOvershootProb() (float64, error) {
	mod, err := ps.PerformanceModifier()
	if err != nil {
		return 0, err
	}
	return rng.Clamp(ps.profile.Motor().OvershootProb/mod, 0, overshootCeiling), nil
}

// EffectiveWobbleAmplitude is the modulated wobble amplitude, ceiling 2.0.
func (ps *PerformanceState) EffectiveWobbleAmplitude() (float64, error) {
	mod, err := ps.PerformanceModifier()
	if err != nil {
		return 0, err
	}
	return rng.Clamp(ps.profile.Motor().WobbleAmplitude/mod, 0, wobbleCeiling), nil
}

// EffectiveVelocityFlow is the modulated velocity-flow factor, ceiling 1.0.
func (ps *PerformanceState) EffectiveVelocityFlow() (float64, error) {
	mod, err := ps.PerformanceModifier()
	if err != nil {
		return 0, err
	}
	return rng.Clamp(ps.profile.Motor().VelocityFlow*mod, 0, velocityFlowCeiling), nil
}
