package behavior

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// bossNames is the static lookup of encounter targets that always classify
// as CRITICAL.
var bossNames = map[string]struct{}{
	"GENERAL GRAARDOR":   {},
	"K'RIL TSUTSAROTH":   {},
	"KREE'ARRA":          {},
	"COMMANDER ZILYANA":  {},
	"ZULRAH":             {},
	"VORKATH":            {},
	"TZTOK-JAD":          {},
}

// IsBossName reports whether the target name is on the boss list.
func IsBossName(name string) bool {
	_, ok := bossNames[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

const (
	// Repetitiveness grows by one step per block of unchanged grinding.
	repetitivenessStep  = 0.1
	repetitivenessBlock = 5 * time.Minute
	repetitivenessMax   = 2.0
)

// ActivityTracker classifies the intensity of the agent's current situation
// from live combat/task/danger signals. The classification feeds fatigue,
// attention, jitter, and interruption policy.
type ActivityTracker struct {
	mu    sync.Mutex
	log   *zap.Logger
	clock Clock

	accountType AccountType

	current  ActivityType
	explicit *ActivityType

	wildernessLevel int
	inDanger        bool
	inBossFight     bool
	inCombat        bool

	currentTask string
	taskSince   time.Time
}

// NewActivityTracker creates the classifier for one session.
func NewActivityTracker(accountType AccountType, clock Clock, logger *zap.Logger) *ActivityTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &ActivityTracker{
		log:         logger.Named("activity"),
		clock:       clock,
		accountType: accountType,
		current:     ActivityIdle,
	}
}

// Tick ingests the per-tick game state and resolves the activity type.
func (t *ActivityTracker) Tick(s Snapshot) ActivityType {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.wildernessLevel = s.WildernessLevel
	t.inDanger = s.InDangerousArea || s.WildernessLevel > 0
	t.inCombat = s.TargetPresent || s.AggressorCount > 0
	t.inBossFight = s.TargetPresent && IsBossName(s.TargetName)

	task := strings.ToUpper(strings.TrimSpace(s.TaskName))
	if task != t.currentTask {
		t.currentTask = task
		t.taskSince = t.clock.Now()
	}

	prev := t.current
	t.current = t.resolveLocked()
	if t.current != prev {
		t.log.Debug("Activity changed",
			zap.String("from", prev.String()),
			zap.String("to", t.current.String()))
	}
	return t.current
}

// resolveLocked applies the classification policy. Explicit overrides always
// win until cleared.
func (t *ActivityTracker) resolveLocked() ActivityType {
	if t.explicit != nil {
		return *t.explicit
	}
	switch {
	case t.inBossFight:
		return ActivityCritical
	case t.inCombat && t.wildernessLevel > 0:
		return ActivityCritical
	case t.inCombat:
		return ActivityHigh
	case t.currentTask != "":
		return ActivityMedium
	default:
		return ActivityIdle
	}
}

// Current returns the last resolved activity type.
func (t *ActivityTracker) Current() ActivityType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// SetExplicitActivity pins the classification until ClearExplicitActivity.
func (t *ActivityTracker) SetExplicitActivity(a ActivityType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.explicit = &a
	t.current = a
}

// ClearExplicitActivity removes the override; the next Tick re-resolves.
func (t *ActivityTracker) ClearExplicitActivity() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.explicit = nil
	t.current = t.resolveLocked()
}

// interruptionAllowedLocked is the shared policy behind CanInterrupt,
// CanEnterAFK and CanTakeBreak: nothing interrupts CRITICAL, and hardcore
// accounts treat any combat as non-interruptible.
func (t *ActivityTracker) interruptionAllowedLocked() bool {
	if t.current == ActivityCritical {
		return false
	}
	if t.accountType.IsHardcore() && (t.inCombat || t.current.IsCombat()) {
		return false
	}
	return true
}

// CanInterrupt reports whether the running task may be preempted.
func (t *ActivityTracker) CanInterrupt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interruptionAllowedLocked()
}

// CanEnterAFK reports whether the attention model may go AFK right now.
func (t *ActivityTracker) CanEnterAFK() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interruptionAllowedLocked()
}

// CanTakeBreak reports whether a rest break is acceptable right now.
func (t *ActivityTracker) CanTakeBreak() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interruptionAllowedLocked()
}

// InCombat reports whether any combat signal is live.
func (t *ActivityTracker) InCombat() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inCombat
}

// InBossFight reports whether the current target is a listed boss.
func (t *ActivityTracker) InBossFight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inBossFight
}

// WildernessLevel returns the last observed wilderness level.
func (t *ActivityTracker) WildernessLevel() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wildernessLevel
}

// InDangerousArea reports whether the agent is somewhere hazardous.
func (t *ActivityTracker) InDangerousArea() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inDanger
}

// AccountType returns the session's account risk class.
func (t *ActivityTracker) AccountType() AccountType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accountType
}

// RepetitivenessMultiplier grows from 1.0 toward 2.0 the longer the same
// task grinds on uninterrupted, and resets when the task changes. It feeds
// the jitter controller's tick-skip probability: bored humans miss ticks.
func (t *ActivityTracker) RepetitivenessMultiplier() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentTask == "" || t.taskSince.IsZero() {
		return 1.0
	}
	blocks := float64(t.clock.Now().Sub(t.taskSince) / repetitivenessBlock)
	m := 1.0 + repetitivenessStep*blocks
	if m > repetitivenessMax {
		m = repetitivenessMax
	}
	return m
}
