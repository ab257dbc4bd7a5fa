// Package behavior implements the behavior-synthesis core of the agent: a
// set of interacting statistical models that shape input timing, error
// rates, attention, and task sequencing so they resemble a human operator.
package behavior

import (
	"context"
	"strings"
	"time"
)

// Clock abstracts the current instant so tests can advance time
// programmatically instead of sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// ActivityType classifies the intensity of whatever the agent is doing right
// now. Ordering matters: higher values are more intense.
type ActivityType int

const (
	ActivityIdle ActivityType = iota
	ActivityLow
	ActivityMedium
	ActivityHigh
	ActivityCritical
)

func (a ActivityType) String() string {
	switch a {
	case ActivityIdle:
		return "IDLE"
	case ActivityLow:
		return "LOW"
	case ActivityMedium:
		return "MEDIUM"
	case ActivityHigh:
		return "HIGH"
	case ActivityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// FatigueFactor scales the per-action fatigue increment. Intense activity
// tires faster.
func (a ActivityType) FatigueFactor() float64 {
	switch a {
	case ActivityIdle:
		return 0.5
	case ActivityLow:
		return 0.75
	case ActivityMedium:
		return 1.0
	case ActivityHigh:
		return 1.5
	case ActivityCritical:
		return 2.0
	default:
		return 1.0
	}
}

// JitterScale scales the ex-Gaussian jitter parameters. Critical moments get
// sharp reactions; idling gets sluggish ones.
func (a ActivityType) JitterScale() float64 {
	switch a {
	case ActivityCritical:
		return 0.4
	case ActivityHigh:
		return 0.6
	case ActivityMedium:
		return 1.0
	case ActivityLow:
		return 1.3
	case ActivityIdle:
		return 1.5
	default:
		return 1.0
	}
}

// CognitiveLoad is the activity contribution to overall cognitive load.
func (a ActivityType) CognitiveLoad() float64 {
	switch a {
	case ActivityCritical:
		return 0.5
	case ActivityHigh:
		return 0.3
	case ActivityMedium:
		return 0.15
	case ActivityLow:
		return 0.05
	default:
		return 0.0
	}
}

// IsCombat reports whether the activity counts as combat for interruption
// logic.
func (a ActivityType) IsCombat() bool {
	return a == ActivityHigh || a == ActivityCritical
}

// Interruptible reports whether the activity tolerates interruption at all.
func (a ActivityType) Interruptible() bool {
	return a != ActivityCritical
}

// AttentionState is the agent's current focus level.
type AttentionState int

const (
	AttentionFocused AttentionState = iota
	AttentionDistracted
	AttentionAFK
)

func (s AttentionState) String() string {
	switch s {
	case AttentionFocused:
		return "FOCUSED"
	case AttentionDistracted:
		return "DISTRACTED"
	case AttentionAFK:
		return "AFK"
	default:
		return "UNKNOWN"
	}
}

// BaseWeight is the unconditional transition weight toward this state.
func (s AttentionState) BaseWeight() float64 {
	switch s {
	case AttentionFocused:
		return 0.70
	case AttentionDistracted:
		return 0.25
	case AttentionAFK:
		return 0.05
	default:
		return 0.0
	}
}

// DelayMultiplier scales action delays. AFK returns 0 because no actions
// happen at all in that state.
func (s AttentionState) DelayMultiplier() float64 {
	switch s {
	case AttentionFocused:
		return 1.0
	case AttentionDistracted:
		return 1.3
	default:
		return 0.0
	}
}

// PrecisionMultiplier scales motor precision.
func (s AttentionState) PrecisionMultiplier() float64 {
	switch s {
	case AttentionFocused:
		return 1.0
	case AttentionDistracted:
		return 0.9
	default:
		return 0.0
	}
}

// CognitiveLoad is the attention contribution to overall cognitive load.
// Being distracted is mentally expensive; AFK costs nothing.
func (s AttentionState) CognitiveLoad() float64 {
	switch s {
	case AttentionFocused:
		return 0.1
	case AttentionDistracted:
		return 0.5
	default:
		return 0.0
	}
}

// predictionFactor scales anticipatory hover accuracy per state.
func (s AttentionState) predictionFactor() float64 {
	switch s {
	case AttentionFocused:
		return 1.0
	case AttentionDistracted:
		return 0.40
	default:
		return 0.0
	}
}

// CanAct reports whether the agent may issue inputs in this state.
func (s AttentionState) CanAct() bool {
	return s != AttentionAFK
}

// AccountType is the risk class of the account, immutable per session.
type AccountType int

const (
	AccountNormal AccountType = iota
	AccountIronman
	AccountHardcoreIronman
)

func (t AccountType) String() string {
	switch t {
	case AccountNormal:
		return "NORMAL"
	case AccountIronman:
		return "IRONMAN"
	case AccountHardcoreIronman:
		return "HARDCORE_IRONMAN"
	default:
		return "UNKNOWN"
	}
}

// ParseAccountType maps a config string to an AccountType, defaulting to
// NORMAL for anything unrecognized (missing-collaborator policy).
func ParseAccountType(s string) AccountType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IRONMAN":
		return AccountIronman
	case "HARDCORE_IRONMAN", "HARDCORE", "HCIM":
		return AccountHardcoreIronman
	default:
		return AccountNormal
	}
}

// IsHardcore reports whether death is permanent for this account.
func (t AccountType) IsHardcore() bool {
	return t == AccountHardcoreIronman
}

// BreakThresholdModifier scales the profile's break-fatigue threshold.
// Hardcore accounts rest earlier.
func (t AccountType) BreakThresholdModifier() float64 {
	if t.IsHardcore() {
		return 0.85
	}
	return 1.0
}

// AFKWeightModifier scales the AFK transition weight. Hardcore players do
// not walk away from the keyboard lightly.
func (t AccountType) AFKWeightModifier() float64 {
	if t.IsHardcore() {
		return 0.3
	}
	return 1.0
}

// TaskCategory groups task names for experience transfer.
type TaskCategory int

const (
	CategoryGeneral TaskCategory = iota
	CategoryGathering
	CategoryCombat
	CategoryProcessing
	CategoryReaction
	CategoryBanking
	CategoryNavigation
)

func (c TaskCategory) String() string {
	switch c {
	case CategoryGathering:
		return "GATHERING"
	case CategoryCombat:
		return "COMBAT"
	case CategoryProcessing:
		return "PROCESSING"
	case CategoryReaction:
		return "REACTION"
	case CategoryBanking:
		return "BANKING"
	case CategoryNavigation:
		return "NAVIGATION"
	default:
		return "GENERAL"
	}
}

// CategoryForTask maps a task name (case-insensitive) to its category.
// Unknown tasks land in GENERAL.
func CategoryForTask(task string) TaskCategory {
	switch strings.ToUpper(strings.TrimSpace(task)) {
	case "WOODCUTTING", "MINING", "FISHING":
		return CategoryGathering
	case "COMBAT", "MELEE", "SLAYER":
		return CategoryCombat
	case "COOKING", "SMITHING", "FLETCHING":
		return CategoryProcessing
	case "AGILITY", "THIEVING":
		return CategoryReaction
	case "BANKING":
		return CategoryBanking
	case "NAVIGATION":
		return CategoryNavigation
	default:
		return CategoryGeneral
	}
}

// Task is a unit of work handed back to the task executor, e.g. an emergency
// response. Concrete task implementations live outside this core.
type Task interface {
	Name() string
	Execute(ctx context.Context) error
}

// Snapshot is the per-tick view of the game state consumed by the
// classification and emergency logic. Collaborators fill it from the live
// client; tests construct it directly.
type Snapshot struct {
	WildernessLevel int
	InDangerousArea bool

	TargetPresent bool
	TargetName    string
	AggressorCount int

	Poisoned bool
	Venomed  bool

	HitPoints    int
	MaxHitPoints int

	// TaskName is the currently executing task, empty when idle.
	TaskName string

	Tick int64
}

// EmergencyCondition is one hazard evaluator. Each hazard is a small value
// implementing this fixed capability set; the handler never depends on
// concrete hazard types.
type EmergencyCondition interface {
	ID() string
	Description() string
	// Severity orders simultaneous emergencies; higher wins the active slot.
	Severity() int
	Cooldown() time.Duration
	Triggered(s Snapshot) bool
	ResponseTask(s Snapshot) Task
}
