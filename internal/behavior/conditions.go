package behavior

import (
	"context"
	"fmt"
	"time"
)

// Concrete hazard evaluators for the common dangers. Response tasks are
// built from caller-supplied actions so the core stays decoupled from the
// input layer.

// UnderAttackCondition triggers when aggressors are present and hitpoints
// have fallen below the flee fraction. Hardcore accounts flee earlier.
type UnderAttackCondition struct {
	accountType AccountType
	flee        func(ctx context.Context) error
}

// NewUnderAttackCondition builds the evaluator. flee may be nil; the
// response task then just records the decision.
func NewUnderAttackCondition(accountType AccountType, flee func(ctx context.Context) error) *UnderAttackCondition {
	return &UnderAttackCondition{accountType: accountType, flee: flee}
}

func (c *UnderAttackCondition) ID() string          { return "under_attack" }
func (c *UnderAttackCondition) Description() string { return "taking damage with low hitpoints" }
func (c *UnderAttackCondition) Severity() int       { return 80 }

func (c *UnderAttackCondition) Cooldown() time.Duration { return 30 * time.Second }

// fleeFraction is the hitpoint fraction below which the condition fires.
func (c *UnderAttackCondition) fleeFraction() float64 {
	if c.accountType.IsHardcore() {
		return 0.60
	}
	return 0.35
}

func (c *UnderAttackCondition) Triggered(s Snapshot) bool {
	if s.AggressorCount == 0 || s.MaxHitPoints <= 0 {
		return false
	}
	return float64(s.HitPoints) < c.fleeFraction()*float64(s.MaxHitPoints)
}

func (c *UnderAttackCondition) ResponseTask(s Snapshot) Task {
	return &FuncTask{TaskName: "flee_from_attack", Fn: c.flee}
}

// PoisonCondition triggers on poison or venom. Venom is treated as the
// severe variant.
type PoisonCondition struct {
	cure func(ctx context.Context) error
}

func NewPoisonCondition(cure func(ctx context.Context) error) *PoisonCondition {
	return &PoisonCondition{cure: cure}
}

func (c *PoisonCondition) ID() string              { return "poisoned" }
func (c *PoisonCondition) Description() string     { return "poisoned or envenomed" }
func (c *PoisonCondition) Severity() int           { return 40 }
func (c *PoisonCondition) Cooldown() time.Duration { return 60 * time.Second }

func (c *PoisonCondition) Triggered(s Snapshot) bool {
	return s.Poisoned || s.Venomed
}

func (c *PoisonCondition) ResponseTask(s Snapshot) Task {
	name := "cure_poison"
	if s.Venomed {
		name = "cure_venom"
	}
	return &FuncTask{TaskName: name, Fn: c.cure}
}

// LowHitpointsCondition triggers on low hitpoints regardless of combat,
// e.g. environmental damage. It outranks everything else.
type LowHitpointsCondition struct {
	fraction float64
	eat      func(ctx context.Context) error
}

// NewLowHitpointsCondition builds the evaluator with the trigger fraction
// clamped to (0, 1].
func NewLowHitpointsCondition(fraction float64, eat func(ctx context.Context) error) *LowHitpointsCondition {
	if fraction <= 0 || fraction > 1 {
		fraction = 0.25
	}
	return &LowHitpointsCondition{fraction: fraction, eat: eat}
}

func (c *LowHitpointsCondition) ID() string { return "low_hitpoints" }

func (c *LowHitpointsCondition) Description() string {
	return fmt.Sprintf("hitpoints below %.0f%%", c.fraction*100)
}

func (c *LowHitpointsCondition) Severity() int           { return 100 }
func (c *LowHitpointsCondition) Cooldown() time.Duration { return 10 * time.Second }

func (c *LowHitpointsCondition) Triggered(s Snapshot) bool {
	if s.MaxHitPoints <= 0 {
		return false
	}
	return float64(s.HitPoints) < c.fraction*float64(s.MaxHitPoints)
}

func (c *LowHitpointsCondition) ResponseTask(s Snapshot) Task {
	return &FuncTask{TaskName: "emergency_eat", Fn: c.eat}
}
