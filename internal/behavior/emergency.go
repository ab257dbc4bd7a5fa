package behavior

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EmergencyHandler runs above every other component: each tick it may
// preempt normal behavior entirely with a response task. It owns a registry
// of hazard evaluators, per-id cooldowns, and a single active-emergency
// slot.
type EmergencyHandler struct {
	mu    sync.Mutex
	log   *zap.Logger
	clock Clock

	conditions []EmergencyCondition
	cooldowns  map[string]time.Time

	// activeID is the highest-severity emergency currently being handled;
	// empty when none. While active, an id is skipped even if its cooldown
	// has separately been cleared.
	activeID string

	// suppressed disables all checks, for scenarios that require taking
	// damage or dying on purpose.
	suppressed bool
}

// NewEmergencyHandler creates an empty handler.
func NewEmergencyHandler(clock Clock, logger *zap.Logger) *EmergencyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &EmergencyHandler{
		log:       logger.Named("emergency"),
		clock:     clock,
		cooldowns: make(map[string]time.Time),
	}
}

// RegisterCondition adds a hazard evaluator.
func (h *EmergencyHandler) RegisterCondition(c EmergencyCondition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conditions = append(h.conditions, c)
	h.log.Debug("Registered emergency condition", zap.String("id", c.ID()))
}

// UnregisterCondition removes a previously registered evaluator.
func (h *EmergencyHandler) UnregisterCondition(c EmergencyCondition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.conditions {
		if existing == c {
			h.conditions = append(h.conditions[:i], h.conditions[i+1:]...)
			return
		}
	}
}

// ClearConditions removes every evaluator and cooldown.
func (h *EmergencyHandler) ClearConditions() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conditions = nil
	h.cooldowns = make(map[string]time.Time)
}

// CheckEmergencies evaluates all registered conditions against the current
// game state. Conditions on cooldown or already active are skipped. One
// trigger returns its response task directly; simultaneous triggers are
// ordered by descending severity, the highest becomes the active id, and a
// composite task sequences all responses.
func (h *EmergencyHandler) CheckEmergencies(s Snapshot) (Task, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.suppressed {
		return nil, false
	}

	now := h.clock.Now()
	var triggered []EmergencyCondition
	for _, c := range h.conditions {
		id := c.ID()
		if until, ok := h.cooldowns[id]; ok && now.Before(until) {
			continue
		}
		if id == h.activeID {
			continue
		}
		if h.safeTriggered(c, s) {
			triggered = append(triggered, c)
		}
	}
	if len(triggered) == 0 {
		return nil, false
	}

	sort.SliceStable(triggered, func(i, j int) bool {
		return triggered[i].Severity() > triggered[j].Severity()
	})

	tasks := make([]Task, 0, len(triggered))
	for _, c := range triggered {
		h.cooldowns[c.ID()] = now.Add(c.Cooldown())
		if t := c.ResponseTask(s); t != nil {
			tasks = append(tasks, t)
		}
		h.log.Warn("Emergency triggered",
			zap.String("id", c.ID()),
			zap.String("description", c.Description()),
			zap.Int("severity", c.Severity()))
	}
	h.activeID = triggered[0].ID()

	if len(tasks) == 0 {
		return nil, false
	}
	if len(tasks) == 1 {
		return tasks[0], true
	}
	return &compositeTask{tasks: tasks}, true
}

// safeTriggered isolates misbehaving evaluators: a panic is logged, not
// fatal to the tick loop.
func (h *EmergencyHandler) safeTriggered(c EmergencyCondition, s Snapshot) (triggered bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Emergency condition panicked",
				zap.String("id", c.ID()),
				zap.Any("panic", r))
			triggered = false
		}
	}()
	return c.Triggered(s)
}

// EmergencySucceeded marks the active emergency resolved. Both the active
// slot and the cooldown clear, so the condition may re-trigger immediately
// if the hazard recurs. A non-matching id has no effect.
func (h *EmergencyHandler) EmergencySucceeded(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id != h.activeID {
		return
	}
	h.activeID = ""
	delete(h.cooldowns, id)
	h.log.Debug("Emergency resolved", zap.String("id", id))
}

// EmergencyFailed marks the active emergency's handling as failed. The
// active slot clears but the cooldown is retained, preventing an immediate
// re-trigger of a response that just failed.
func (h *EmergencyHandler) EmergencyFailed(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id != h.activeID {
		return
	}
	h.activeID = ""
	h.log.Warn("Emergency response failed", zap.String("id", id))
}

// ClearCooldown removes the cooldown for one condition id.
func (h *EmergencyHandler) ClearCooldown(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, id)
}

// ClearAllCooldowns removes every cooldown and the active slot.
func (h *EmergencyHandler) ClearAllCooldowns() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cooldowns = make(map[string]time.Time)
	h.activeID = ""
}

// Suppress disables all emergency checks until Unsuppress.
func (h *EmergencyHandler) Suppress() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.suppressed = true
	h.log.Info("Emergency handling suppressed")
}

// Unsuppress resumes emergency checks.
func (h *EmergencyHandler) Unsuppress() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.suppressed = false
	h.log.Info("Emergency handling resumed")
}

// IsSuppressed reports whether checks are disabled.
func (h *EmergencyHandler) IsSuppressed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suppressed
}

// HasActiveEmergency reports whether an emergency is being handled.
func (h *EmergencyHandler) HasActiveEmergency() bool {
	return h.ActiveEmergencyID() != ""
}

// ActiveEmergencyID returns the active emergency id, empty when none.
func (h *EmergencyHandler) ActiveEmergencyID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activeID
}

// ConditionCount returns the number of registered evaluators.
func (h *EmergencyHandler) ConditionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conditions)
}

// Summary returns a one-line state description for logs and overlays.
func (h *EmergencyHandler) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	active := h.activeID
	if active == "" {
		active = "null"
	}
	return fmt.Sprintf("EmergencyHandler[conditions=%d, active=%s, cooldowns=%d, suppressed=%t]",
		len(h.conditions), active, len(h.cooldowns), h.suppressed)
}

// compositeTask sequences multiple emergency responses into one ordered
// unit of work. Execution stops at the first failure.
type compositeTask struct {
	tasks []Task
}

func (c *compositeTask) Name() string {
	names := ""
	for i, t := range c.tasks {
		if i > 0 {
			names += "+"
		}
		names += t.Name()
	}
	return "composite[" + names + "]"
}

func (c *compositeTask) Execute(ctx context.Context) error {
	for _, t := range c.tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Execute(ctx); err != nil {
			return fmt.Errorf("composite step %s: %w", t.Name(), err)
		}
	}
	return nil
}

// FuncTask adapts a plain function into a Task. Collaborators use it to
// build emergency responses without a task framework dependency.
type FuncTask struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t *FuncTask) Name() string { return t.TaskName }

func (t *FuncTask) Execute(ctx context.Context) error {
	if t.Fn == nil {
		return nil
	}
	return t.Fn(ctx)
}
