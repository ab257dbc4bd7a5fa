package behavior

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

const (
	// Default ex-Gaussian parameters (ms) when no profile is attached.
	defaultJitterMu    = 40.0
	defaultJitterSigma = 15.0
	defaultJitterTau   = 20.0

	// Every jitter lands inside this window.
	jitterFloor   = 15 * time.Millisecond
	jitterCeiling = 10 * time.Second

	// One game tick; a "tick skip" misses roughly one of them.
	tickSkipDelay = 600 * time.Millisecond
	tickSkipProb  = 0.05

	// An attention lapse adds a noticeably larger stall.
	lapseProb  = 0.01
	lapseMinMs = 1500.0
	lapseMaxMs = 4000.0

	// Anticipated events can collapse the delay to a fast fixed window.
	anticipationProb  = 0.15
	anticipationMinMs = 25.0
	anticipationMaxMs = 50.0

	// Emergencies react near-instantly.
	emergencyJitterMin = 10 * time.Millisecond
	emergencyJitterMax = 20 * time.Millisecond
)

// TickJitterController synthesizes the delay before each discrete action and
// schedules the action's execution after that delay. At most one jittered
// action may be pending at a time; scheduling is the only genuinely
// concurrent piece of the engine.
type TickJitterController struct {
	mu  sync.Mutex
	log *zap.Logger
	rnd *rng.Rand

	profile *PlayerProfile
	fatigue *FatigueModel
	tracker *ActivityTracker

	enabled bool

	pending    bool
	generation uint64
	timer      *time.Timer
	inflight   sync.WaitGroup
	shutdown   bool
}

// NewTickJitterController wires the jitter synthesizer. profile, fatigue and
// tracker may each be nil; defaults then apply (base parameters 40/15/20,
// no fatigue scaling, repetitiveness 1.0).
func NewTickJitterController(profile *PlayerProfile, fatigue *FatigueModel, tracker *ActivityTracker, rnd *rng.Rand, logger *zap.Logger) *TickJitterController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rnd == nil {
		rnd = rng.New()
	}
	return &TickJitterController{
		log:     logger.Named("jitter"),
		rnd:     rnd,
		profile: profile,
		fatigue: fatigue,
		tracker: tracker,
		enabled: true,
	}
}

// SetEnabled toggles jitter synthesis. Disabled, every calculation returns 0.
func (c *TickJitterController) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Enabled reports whether jitter synthesis is active.
func (c *TickJitterController) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// baseParams returns the persona's ex-Gaussian parameters in ms.
func (c *TickJitterController) baseParams() (mu, sigma, tau float64) {
	if c.profile == nil {
		return defaultJitterMu, defaultJitterSigma, defaultJitterTau
	}
	motor := c.profile.Motor()
	return motor.JitterMu, motor.JitterSigma, motor.JitterTau
}

// CalculateJitter draws the delay before the next action under the given
// activity intensity.
func (c *TickJitterController) CalculateJitter(activity ActivityType) time.Duration {
	return c.CalculateJitterWithAnticipation(activity, false)
}

// CalculateJitterWithAnticipation draws the delay, optionally collapsing to
// the fast anticipation window when the caller signals a predictable
// upcoming event the persona could pre-empt.
func (c *TickJitterController) CalculateJitterWithAnticipation(activity ActivityType, predictableEvent bool) time.Duration {
	if !c.Enabled() {
		return 0
	}

	if predictableEvent && c.rnd.Chance(anticipationProb) {
		return time.Duration(c.rnd.Uniform(anticipationMinMs, anticipationMaxMs)) * time.Millisecond
	}

	mu, sigma, tau := c.baseParams()
	scale := activity.JitterScale()
	mu *= scale
	sigma *= scale
	tau *= scale
	if c.fatigue != nil {
		sigma *= c.fatigue.SigmaMultiplier()
		tau *= c.fatigue.TauMultiplier()
	}

	ms := c.rnd.ExGaussian(mu, sigma, tau, 0, float64(jitterCeiling/time.Millisecond))
	delay := time.Duration(ms) * time.Millisecond

	// Repetitive grinding raises the chance of blowing a whole tick.
	skipProb := tickSkipProb
	if c.tracker != nil {
		skipProb *= c.tracker.RepetitivenessMultiplier()
	}
	if c.rnd.Chance(skipProb) {
		delay += tickSkipDelay
	}
	if c.rnd.Chance(lapseProb) {
		delay += time.Duration(c.rnd.Uniform(lapseMinMs, lapseMaxMs)) * time.Millisecond
	}

	if delay < jitterFloor {
		delay = jitterFloor
	}
	if delay > jitterCeiling {
		delay = jitterCeiling
	}
	return delay
}

// CalculateEmergencyJitter returns the minimal human-plausible reaction
// delay used for emergency responses.
func (c *TickJitterController) CalculateEmergencyJitter() time.Duration {
	return c.rnd.UniformDuration(emergencyJitterMin, emergencyJitterMax)
}

// ScheduleJitteredExecution computes a jitter for the activity and fires
// action after that delay on a background timer. Exactly one action may be
// pending: a second call while one is outstanding returns false rather than
// queuing.
func (c *TickJitterController) ScheduleJitteredExecution(activity ActivityType, action func()) bool {
	delay := c.CalculateJitter(activity)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending || c.shutdown {
		return false
	}
	c.pending = true
	c.generation++
	gen := c.generation

	c.inflight.Add(1)
	c.timer = time.AfterFunc(delay, func() {
		defer c.inflight.Done()

		c.mu.Lock()
		// A cancellation that won the race bumps the generation; the timer
		// then fires into nothing.
		if !c.pending || c.generation != gen || c.shutdown {
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()

		action()
	})
	return true
}

// IsJitterPending reports whether a scheduled action is outstanding.
func (c *TickJitterController) IsJitterPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// CancelPending cancels the outstanding action, if any. After CancelPending
// returns, the previously scheduled action will not run.
func (c *TickJitterController) CancelPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *TickJitterController) cancelLocked() {
	if !c.pending {
		return
	}
	c.pending = false
	c.generation++
	// Stop returning true means the callback will never run, so its
	// in-flight slot must be released here.
	if c.timer != nil && c.timer.Stop() {
		c.inflight.Done()
	}
}

// ExecuteImmediate runs the action synchronously, bypassing the pending
// slot. Used for emergency responses that must not wait behind jitter.
func (c *TickJitterController) ExecuteImmediate(action func()) {
	action()
}

// Reset cancels any pending action and re-enables the controller.
func (c *TickJitterController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.enabled = true
}

// Shutdown cancels pending work and waits for any in-flight timer callback
// to drain. Idempotent.
func (c *TickJitterController) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.shutdown = true
	c.cancelLocked()
	c.mu.Unlock()

	c.inflight.Wait()
}
