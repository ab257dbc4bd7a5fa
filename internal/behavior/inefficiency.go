package behavior

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

// InefficiencyType tags one kind of injected human-like mistake.
type InefficiencyType int

const (
	InefficiencyNone InefficiencyType = iota
	InefficiencyBacktrack
	InefficiencyRedundantAction
	InefficiencyHesitation
	InefficiencyCancellation
)

func (t InefficiencyType) String() string {
	switch t {
	case InefficiencyBacktrack:
		return "BACKTRACK"
	case InefficiencyRedundantAction:
		return "REDUNDANT_ACTION"
	case InefficiencyHesitation:
		return "HESITATION"
	case InefficiencyCancellation:
		return "CANCELLATION"
	default:
		return "NONE"
	}
}

// InefficiencyResult is the outcome of a composite check-point: which
// mistake to make, how long to stall, and how big it is (tiles or
// repetitions, per type).
type InefficiencyResult struct {
	Type   InefficiencyType
	Delay  time.Duration
	Amount int
}

// None reports whether no inefficiency fired.
func (r InefficiencyResult) None() bool {
	return r.Type == InefficiencyNone
}

const (
	backtrackRate  = 0.02
	redundantRate  = 0.03
	hesitationRate = 0.05
	cancelRate     = 0.01

	// Anti-clustering: minimum spacing between triggers of the same type.
	defaultAntiCluster    = 31 * time.Second
	hesitationAntiCluster = 10 * time.Second

	// Fatigue-adjusted probabilities never exceed this.
	inefficiencyProbCap = 0.3
)

var inefficiencyTypes = []InefficiencyType{
	InefficiencyBacktrack,
	InefficiencyRedundantAction,
	InefficiencyHesitation,
	InefficiencyCancellation,
}

// InefficiencyInjector decides, per check-point, whether to inject a
// human-like mistake: walking back over covered ground, re-opening an
// interface, hovering in hesitation, or cancelling and retrying an action.
// Each type is anti-clustered so mistakes never burst unrealistically.
type InefficiencyInjector struct {
	mu    sync.Mutex
	log   *zap.Logger
	rnd   *rng.Rand
	clock Clock

	fatigue *FatigueModel

	enabled     bool
	lastTrigger map[InefficiencyType]time.Time
	counts      map[InefficiencyType]int
}

// NewInefficiencyInjector wires the injector. fatigue may be nil, removing
// the fatigue scaling.
func NewInefficiencyInjector(fatigue *FatigueModel, clock Clock, rnd *rng.Rand, logger *zap.Logger) *InefficiencyInjector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rnd == nil {
		rnd = rng.New()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &InefficiencyInjector{
		log:         logger.Named("inefficiency"),
		rnd:         rnd,
		clock:       clock,
		fatigue:     fatigue,
		enabled:     true,
		lastTrigger: make(map[InefficiencyType]time.Time),
		counts:      make(map[InefficiencyType]int),
	}
}

// SetEnabled toggles injection; disabled checks always return false.
func (in *InefficiencyInjector) SetEnabled(enabled bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.enabled = enabled
}

// Enabled reports whether injection is active.
func (in *InefficiencyInjector) Enabled() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.enabled
}

func (in *InefficiencyInjector) fatigueLevel() float64 {
	if in.fatigue == nil {
		return 0
	}
	return in.fatigue.Level()
}

// shouldTrigger draws one inefficiency decision: respects the enabled flag
// and the per-type anti-clustering window, scales the base rate by fatigue
// (capped), and on success records the trigger.
func (in *InefficiencyInjector) shouldTrigger(t InefficiencyType, baseRate float64, window time.Duration) bool {
	fatigue := in.fatigueLevel()

	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.enabled {
		return false
	}

	now := in.clock.Now()
	if last, ok := in.lastTrigger[t]; ok && now.Sub(last) < window {
		return false
	}

	p := rng.Clamp(baseRate*(1+fatigue), 0, inefficiencyProbCap)
	if !in.rnd.Chance(p) {
		return false
	}

	in.lastTrigger[t] = now
	in.counts[t]++
	in.log.Debug("Inefficiency triggered", zap.String("type", t.String()))
	return true
}

// ShouldBacktrack decides whether to walk back a few tiles after arriving.
func (in *InefficiencyInjector) ShouldBacktrack() bool {
	return in.shouldTrigger(InefficiencyBacktrack, backtrackRate, defaultAntiCluster)
}

// ShouldPerformRedundantAction decides whether to repeat a pointless
// interaction, e.g. re-opening the bank.
func (in *InefficiencyInjector) ShouldPerformRedundantAction() bool {
	return in.shouldTrigger(InefficiencyRedundantAction, redundantRate, defaultAntiCluster)
}

// ShouldHesitate decides whether to stall before a click.
func (in *InefficiencyInjector) ShouldHesitate() bool {
	return in.shouldTrigger(InefficiencyHesitation, hesitationRate, hesitationAntiCluster)
}

// ShouldCancelAndRetry decides whether to abort an action and redo it.
func (in *InefficiencyInjector) ShouldCancelAndRetry() bool {
	return in.shouldTrigger(InefficiencyCancellation, cancelRate, defaultAntiCluster)
}

// BacktrackDistance samples how many tiles to walk back, 2 to 10.
func (in *InefficiencyInjector) BacktrackDistance() int {
	return in.rnd.UniformInt(2, 10)
}

// RedundantRepetitions samples how many times to repeat: usually once.
func (in *InefficiencyInjector) RedundantRepetitions() int {
	if in.rnd.Chance(0.9) {
		return 1
	}
	return 2
}

// HesitationDelay samples the pre-click stall, lengthened by fatigue.
func (in *InefficiencyInjector) HesitationDelay() time.Duration {
	ms := in.rnd.Uniform(500, 1500) * (1 + 0.5*in.fatigueLevel())
	return time.Duration(ms) * time.Millisecond
}

// CancellationDelay samples the pause between cancelling and retrying.
func (in *InefficiencyInjector) CancellationDelay() time.Duration {
	return in.rnd.UniformDuration(1000*time.Millisecond, 3000*time.Millisecond)
}

// CheckPreClickInefficiency is the check-point before a click: hesitation
// first, then cancellation.
func (in *InefficiencyInjector) CheckPreClickInefficiency() InefficiencyResult {
	if in.ShouldHesitate() {
		return InefficiencyResult{
			Type:  InefficiencyHesitation,
			Delay: in.HesitationDelay(),
		}
	}
	if in.ShouldCancelAndRetry() {
		return InefficiencyResult{
			Type:  InefficiencyCancellation,
			Delay: in.CancellationDelay(),
		}
	}
	return InefficiencyResult{Type: InefficiencyNone}
}

// CheckPostWalkInefficiency is the check-point after arriving somewhere:
// backtracking only.
func (in *InefficiencyInjector) CheckPostWalkInefficiency() InefficiencyResult {
	if in.ShouldBacktrack() {
		return InefficiencyResult{
			Type:   InefficiencyBacktrack,
			Amount: in.BacktrackDistance(),
		}
	}
	return InefficiencyResult{Type: InefficiencyNone}
}

// CheckBankInefficiency is the check-point at a bank interface: redundant
// actions only.
func (in *InefficiencyInjector) CheckBankInefficiency() InefficiencyResult {
	if in.ShouldPerformRedundantAction() {
		return InefficiencyResult{
			Type:   InefficiencyRedundantAction,
			Amount: in.RedundantRepetitions(),
		}
	}
	return InefficiencyResult{Type: InefficiencyNone}
}

// Count returns the trigger count for one inefficiency type.
func (in *InefficiencyInjector) Count(t InefficiencyType) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.counts[t]
}

// TotalCount returns the sum of all per-type counters.
func (in *InefficiencyInjector) TotalCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	total := 0
	for _, t := range inefficiencyTypes {
		total += in.counts[t]
	}
	return total
}

// ResetCounters zeroes all counters and anti-clustering timestamps.
func (in *InefficiencyInjector) ResetCounters() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.lastTrigger = make(map[InefficiencyType]time.Time)
	in.counts = make(map[InefficiencyType]int)
}
