// Package engine assembles the behavioral components into one per-account
// session and drives them tick by tick.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/behavior"
	"github.com/adamsbytes/rocinante-sub014/internal/config"
	"github.com/adamsbytes/rocinante-sub014/internal/profilestore"
	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

// ErrNotStarted is returned when Tick or Stop runs before Start.
var ErrNotStarted = errors.New("session engine not started")

// TickDecision is the engine's per-tick output: everything the input layer
// needs to act like the persona for this step.
type TickDecision struct {
	SessionID string
	Tick      int64

	Activity  behavior.ActivityType
	Attention behavior.AttentionState

	// CanAct is false only while AFK with no emergency pending.
	CanAct bool

	// EmergencyTask preempts everything else when non-nil. EmergencyJitter
	// is the reaction delay to apply before executing it.
	EmergencyTask   behavior.Task
	EmergencyJitter time.Duration

	// Jitter is the synthesized pre-action delay for a routine action.
	Jitter time.Duration

	// Inefficiency is the pre-click mistake to act out, if any.
	Inefficiency behavior.InefficiencyResult

	FatigueLevel    float64
	FatigueEvent    behavior.FatigueEventResult
	ShouldTakeBreak bool

	DelayMultiplier     float64
	PrecisionMultiplier float64
	CognitiveLoad       float64
}

// SessionEngine owns one account's behavioral state. A single goroutine is
// expected to call Tick; the only internal concurrency is the jitter
// controller's timer.
type SessionEngine struct {
	mu  sync.Mutex
	log *zap.Logger

	cfg   config.EngineConfig
	store profilestore.Store
	clock behavior.Clock
	rnd   *rng.Rand

	sessionID string
	tick      int64
	started   bool

	profile     *behavior.PlayerProfile
	performance *behavior.PerformanceState
	fatigue     *behavior.FatigueModel
	tracker     *behavior.ActivityTracker
	attention   *behavior.AttentionModel
	jitter      *behavior.TickJitterController
	injector    *behavior.InefficiencyInjector
	emergencies *behavior.EmergencyHandler

	sessionStart time.Time
	lastTickAt   time.Time
}

// New wires an engine. store may be nil (profiles live only in memory), and
// clock/rnd/logger have the usual nil defaults.
func New(cfg config.EngineConfig, store profilestore.Store, clock behavior.Clock, rnd *rng.Rand, logger *zap.Logger) *SessionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = behavior.SystemClock()
	}
	if rnd == nil {
		rnd = rng.New()
	}
	return &SessionEngine{
		log:   logger.Named("engine"),
		cfg:   cfg,
		store: store,
		clock: clock,
		rnd:   rnd,
	}
}

// Start resolves the profile, initializes the per-session state and builds
// the component graph. Idempotent per engine: a second Start fails.
func (e *SessionEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("session engine already started")
	}

	accountType := behavior.ParseAccountType(e.cfg.AccountType)
	e.profile = e.resolveProfile(ctx, accountType)
	e.sessionID = uuid.NewString()
	e.sessionStart = e.clock.Now()
	e.lastTickAt = e.sessionStart

	fresh := e.profile.BeginSession(e.sessionStart)

	e.performance = behavior.NewPerformanceState(e.profile, e.clock, e.rnd, e.log)
	if err := e.performance.InitializeSession(); err != nil {
		return err
	}

	e.fatigue = behavior.NewFatigueModel(e.profile, e.clock, e.rnd, e.log)
	if fresh {
		e.fatigue.OnSessionStart()
	}

	e.tracker = behavior.NewActivityTracker(accountType, e.clock, e.log)
	e.attention = behavior.NewAttentionModel(accountType, e.tracker, e.clock, e.rnd, e.log)

	e.jitter = behavior.NewTickJitterController(e.profile, e.fatigue, e.tracker, e.rnd, e.log)
	e.jitter.SetEnabled(e.cfg.JitterEnabled)

	e.injector = behavior.NewInefficiencyInjector(e.fatigue, e.clock, e.rnd, e.log)
	e.injector.SetEnabled(e.cfg.InefficiencyEnabled)

	e.emergencies = behavior.NewEmergencyHandler(e.clock, e.log)
	e.emergencies.RegisterCondition(behavior.NewUnderAttackCondition(accountType, nil))
	e.emergencies.RegisterCondition(behavior.NewPoisonCondition(nil))
	e.emergencies.RegisterCondition(behavior.NewLowHitpointsCondition(0.25, nil))

	e.started = true
	e.tick = 0

	e.log.Info("Session started",
		zap.String("sessionID", e.sessionID),
		zap.String("account", e.profile.AccountHash()),
		zap.String("accountType", accountType.String()),
		zap.Bool("fresh", fresh),
		zap.Strings("rituals", e.profile.Prefs().SessionRituals))
	return nil
}

// resolveProfile loads the stored persona, falling back to deterministic
// regeneration. Store failures degrade, they never abort the session.
func (e *SessionEngine) resolveProfile(ctx context.Context, accountType behavior.AccountType) *behavior.PlayerProfile {
	hash := e.cfg.AccountHash
	if hash == "" {
		hash = behavior.DefaultAccountHash
	}

	if e.store != nil && hash != behavior.DefaultAccountHash {
		rec, err := e.store.Load(ctx, hash)
		switch {
		case err == nil:
			e.log.Info("Loaded stored profile", zap.String("account", hash))
			return behavior.RestoreProfile(rec, e.log)
		case errors.Is(err, profilestore.ErrNotFound):
			// First session for this account.
		default:
			e.log.Warn("Profile load failed, regenerating",
				zap.String("account", hash), zap.Error(err))
		}
	}
	return behavior.GenerateProfile(hash, accountType, e.log)
}

// Tick advances every model one step against the given game state and
// returns the synthesized decision.
func (e *SessionEngine) Tick(ctx context.Context, s behavior.Snapshot) (TickDecision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return TickDecision{}, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return TickDecision{}, err
	}

	e.tick++
	now := e.clock.Now()
	s.Tick = e.tick

	activity := e.tracker.Tick(s)
	e.performance.SetCurrentTaskType(s.TaskName)
	if s.TaskName != "" {
		e.profile.RecordTaskExperience(s.TaskName, now.Sub(e.lastTickAt).Minutes())
	}
	e.lastTickAt = now

	fatigueEvent := e.fatigue.Advance()
	attention := e.attention.Tick()

	d := TickDecision{
		SessionID:           e.sessionID,
		Tick:                e.tick,
		Activity:            activity,
		Attention:           attention,
		CanAct:              attention.CanAct(),
		FatigueLevel:        e.fatigue.Level(),
		FatigueEvent:        fatigueEvent,
		DelayMultiplier:     e.attention.DelayMultiplier(),
		PrecisionMultiplier: e.attention.PrecisionMultiplier(),
		CognitiveLoad:       e.attention.CognitiveLoad(activity),
	}

	// Emergencies cut through AFK and breaks.
	if task, ok := e.emergencies.CheckEmergencies(s); ok {
		d.EmergencyTask = task
		d.EmergencyJitter = e.jitter.CalculateEmergencyJitter()
		d.CanAct = true
		return d, nil
	}

	if d.CanAct {
		d.Jitter = e.jitter.CalculateJitter(activity)
		d.Inefficiency = e.injector.CheckPreClickInefficiency()
		e.fatigue.RecordAction(activity)
	}
	d.ShouldTakeBreak = e.fatigue.ShouldTakeBreak() && e.tracker.CanTakeBreak()

	return d, nil
}

// RecordActionOutcome reports an executed action back, reinforcing sequence
// weights when a banking or combat-prep ordering completed.
func (e *SessionEngine) RecordActionOutcome(category behavior.TaskCategory, seq behavior.SequenceType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	switch category {
	case behavior.CategoryBanking:
		e.profile.ReinforceBankingSequence(seq)
	case behavior.CategoryCombat:
		e.profile.ReinforceCombatPrepSequence(seq)
	}
}

// EmergencyResolved reports the outcome of an emergency response task.
func (e *SessionEngine) EmergencyResolved(id string, succeeded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.emergencies == nil {
		return
	}
	if succeeded {
		e.emergencies.EmergencySucceeded(id)
	} else {
		e.emergencies.EmergencyFailed(id)
	}
}

// StartBreak pauses fatigue accumulation; EndBreak resumes it with recovery.
func (e *SessionEngine) StartBreak() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fatigue != nil {
		e.fatigue.StartBreak()
	}
}

func (e *SessionEngine) EndBreak() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fatigue != nil {
		e.fatigue.EndBreak()
	}
}

// Stop credits session playtime to long-term drift, persists the profile and
// shuts the jitter scheduler down. The sentinel persona never persists.
func (e *SessionEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return ErrNotStarted
	}
	e.started = false

	e.jitter.Shutdown()
	e.profile.ApplyLongTermDrift(e.clock.Now().Sub(e.sessionStart).Hours())

	if e.store != nil && !e.profile.IsDefault() {
		if err := e.store.Save(ctx, e.profile.Record()); err != nil {
			e.log.Error("Failed to persist profile",
				zap.String("account", e.profile.AccountHash()), zap.Error(err))
			return err
		}
	}

	e.log.Info("Session stopped",
		zap.String("sessionID", e.sessionID),
		zap.Int64("ticks", e.tick),
		zap.Float64("fatigue", e.fatigue.Level()))
	return nil
}

// SessionID returns the uuid of the running session, empty before Start.
func (e *SessionEngine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Profile exposes the live persona, primarily for inspection commands.
func (e *SessionEngine) Profile() *behavior.PlayerProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// Emergencies exposes the emergency handler for condition registration.
func (e *SessionEngine) Emergencies() *behavior.EmergencyHandler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emergencies
}
