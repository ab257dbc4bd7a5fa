package behavior

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

const (
	// Log-normal parameters (seconds) for time between attention
	// transitions, clamped to [30s, 600s].
	attentionSpanMu    = 4.5
	attentionSpanSigma = 0.6
	attentionSpanMinS  = 30.0
	attentionSpanMaxS  = 600.0

	// AFK excursions are short.
	afkMin = 3 * time.Second
	afkMax = 15 * time.Second

	// Stay bias multiplies the weight of remaining in the current state.
	stayBiasFocused    = 1.2
	stayBiasDistracted = 1.1
	stayBiasAFK        = 0.5

	// Distractions arrive at ~4/hour of 600ms ticks, never rolled more
	// often than once per 600ms.
	distractionPerTick  = 4.0 / 6000.0
	distractionMinGap   = 600 * time.Millisecond
	distractionDurMin   = 2 * time.Second
	distractionDurMax   = 15 * time.Second
	chatDistractionProb = 0.30

	// Event lag applies only while distracted.
	eventLagMin = 200 * time.Millisecond
	eventLagMax = 800 * time.Millisecond

	// Post-state-exit probabilities of landing in FOCUSED.
	afkExitFocusProb         = 0.75
	distractionEndFocusProb  = 0.80
	blockedAFKFocusProb      = 0.70

	// Prediction-rate bounds for anticipatory hovering.
	predictionRateMin = 0.10
	predictionRateMax = 0.95
)

// AttentionModel is the focus/distraction/AFK state machine. It governs
// whether the agent can act at all (AFK) or acts with reduced fidelity
// (distracted). AFK entry is gated by the activity tracker and damped for
// hardcore accounts.
type AttentionModel struct {
	mu    sync.Mutex
	log   *zap.Logger
	rnd   *rng.Rand
	clock Clock

	tracker     *ActivityTracker
	accountType AccountType

	state        AttentionState
	stateEntered time.Time

	nextTransition   time.Time
	afkUntil         time.Time
	distractionUntil time.Time
	external         bool

	// limiter spaces distraction rolls at least distractionMinGap apart.
	limiter *rate.Limiter
}

// NewAttentionModel creates the state machine. tracker may be nil, which is
// treated as "AFK always allowed, never in combat" (conservative defaults).
func NewAttentionModel(accountType AccountType, tracker *ActivityTracker, clock Clock, rnd *rng.Rand, logger *zap.Logger) *AttentionModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rnd == nil {
		rnd = rng.New()
	}
	if clock == nil {
		clock = SystemClock()
	}
	m := &AttentionModel{
		log:         logger.Named("attention"),
		rnd:         rnd,
		clock:       clock,
		tracker:     tracker,
		accountType: accountType,
		state:       AttentionFocused,
		limiter:     rate.NewLimiter(rate.Every(distractionMinGap), 1),
	}
	now := clock.Now()
	m.stateEntered = now
	m.nextTransition = now.Add(m.drawSpan())
	return m
}

// drawSpan samples the next attention-span duration.
func (m *AttentionModel) drawSpan() time.Duration {
	secs := m.rnd.LogNormal(attentionSpanMu, attentionSpanSigma, attentionSpanMinS, attentionSpanMaxS)
	return time.Duration(secs * float64(time.Second))
}

func (m *AttentionModel) canEnterAFK() bool {
	return m.tracker == nil || m.tracker.CanEnterAFK()
}

func (m *AttentionModel) inCombat() bool {
	return m.tracker != nil && m.tracker.InCombat()
}

// Tick advances the state machine one game step and returns the resulting
// state. Call once per tick from the decision thread.
func (m *AttentionModel) Tick() AttentionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()

	switch {
	case m.state == AttentionAFK && !now.Before(m.afkUntil):
		next := AttentionDistracted
		if m.rnd.Chance(afkExitFocusProb) {
			next = AttentionFocused
		}
		m.external = false
		m.enterLocked(next, now)

	case m.state == AttentionDistracted && !m.distractionUntil.IsZero() && !now.Before(m.distractionUntil):
		if m.rnd.Chance(distractionEndFocusProb) {
			m.enterLocked(AttentionFocused, now)
		} else {
			// Still absent-minded; extend the distraction a little.
			m.distractionUntil = now.Add(m.rnd.UniformDuration(distractionDurMin, distractionDurMax))
		}

	case !now.Before(m.nextTransition):
		m.enterLocked(m.drawNextStateLocked(), now)
	}

	// Random distractions interrupt focus between scheduled transitions.
	if m.state == AttentionFocused && m.limiter.AllowN(now, 1) && m.rnd.Chance(distractionPerTick) {
		m.enterLocked(AttentionDistracted, now)
		m.distractionUntil = now.Add(m.rnd.UniformDuration(distractionDurMin, distractionDurMax))
		m.log.Debug("Random distraction", zap.Duration("duration", m.distractionUntil.Sub(now)))
	}

	return m.state
}

// drawNextStateLocked picks the next state from the biased weights.
func (m *AttentionModel) drawNextStateLocked() AttentionState {
	states := []AttentionState{AttentionFocused, AttentionDistracted, AttentionAFK}
	weights := make([]float64, len(states))
	for i, s := range states {
		weights[i] = s.BaseWeight()
	}

	// Bias toward staying put.
	switch m.state {
	case AttentionFocused:
		weights[0] *= stayBiasFocused
	case AttentionDistracted:
		weights[1] *= stayBiasDistracted
	case AttentionAFK:
		weights[2] *= stayBiasAFK
	}

	weights[2] *= m.accountType.AFKWeightModifier()
	if m.inCombat() {
		weights[2] = 0
		weights[1] *= 0.5
	}

	idx := m.rnd.WeightedChoice(weights)
	if idx < 0 {
		return AttentionFocused
	}
	next := states[idx]

	// AFK disallowed right now: land in FOCUSED or DISTRACTED instead.
	if next == AttentionAFK && !m.canEnterAFK() {
		if m.rnd.Chance(blockedAFKFocusProb) {
			return AttentionFocused
		}
		return AttentionDistracted
	}
	return next
}

// enterLocked performs the state switch and schedules its exit.
func (m *AttentionModel) enterLocked(next AttentionState, now time.Time) {
	if next != m.state {
		m.log.Debug("Attention transition",
			zap.String("from", m.state.String()),
			zap.String("to", next.String()))
	}
	m.state = next
	m.stateEntered = now
	m.distractionUntil = time.Time{}
	m.nextTransition = now.Add(m.drawSpan())
	if next == AttentionAFK {
		m.afkUntil = now.Add(m.rnd.UniformDuration(afkMin, afkMax))
	} else {
		m.external = false
	}
}

// State returns the current attention state.
func (m *AttentionModel) State() AttentionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CanAct reports whether the agent may issue inputs; false only in AFK.
func (m *AttentionModel) CanAct() bool {
	return m.State().CanAct()
}

// DelayMultiplier scales action delays for the current state.
func (m *AttentionModel) DelayMultiplier() float64 {
	return m.State().DelayMultiplier()
}

// PrecisionMultiplier scales motor precision for the current state.
func (m *AttentionModel) PrecisionMultiplier() float64 {
	return m.State().PrecisionMultiplier()
}

// ShouldApplyEventLag reports whether reaction to a game event should lag;
// true only while distracted.
func (m *AttentionModel) ShouldApplyEventLag() bool {
	return m.State() == AttentionDistracted
}

// EventLag samples the reaction lag applied to events while distracted.
func (m *AttentionModel) EventLag() time.Duration {
	return m.rnd.UniformDuration(eventLagMin, eventLagMax)
}

// TriggerExternalDistraction forces an AFK excursion with the external flag
// set, modeling a doorbell or a phone call. Ignored when the activity
// tracker currently forbids AFK.
func (m *AttentionModel) TriggerExternalDistraction() {
	if !m.canEnterAFK() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	m.enterLocked(AttentionAFK, now)
	m.external = true
}

// IsExternalDistraction reports whether the current AFK excursion came from
// an external stimulus.
func (m *AttentionModel) IsExternalDistraction() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == AttentionAFK && m.external
}

// OnChatMessage reacts to an incoming chat message, which pulls the player
// away with ~30% probability.
func (m *AttentionModel) OnChatMessage() {
	if m.rnd.Chance(chatDistractionProb) {
		m.TriggerExternalDistraction()
	}
}

// CognitiveLoad combines the attention and activity contributions, capped
// at 1.0.
func (m *AttentionModel) CognitiveLoad(activity ActivityType) float64 {
	load := m.State().CognitiveLoad() + activity.CognitiveLoad()
	return rng.Clamp(load, 0, 1)
}

// EffectivePredictionRate converts a base anticipatory-hover accuracy into
// the effective rate for the current moment: fatigue halves it linearly and
// distraction cuts it to 40%. Always clamped to [0.10, 0.95] no matter how
// extreme the inputs.
func (m *AttentionModel) EffectivePredictionRate(base, fatigue float64) float64 {
	fatigue = rng.Clamp(fatigue, 0, 1)
	effective := base * (1 - 0.5*fatigue) * m.State().predictionFactor()
	return rng.Clamp(effective, predictionRateMin, predictionRateMax)
}
