package behavior

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/rng"
)

// DefaultAccountHash is the sentinel persona used when no account is bound.
// Sentinel profiles are never persisted.
const DefaultAccountHash = "default"

// seedSalt ties profile generation to the account hash so the same account
// always regenerates the same persona.
const seedSalt = "_rocinante_behavioral_v1"

// SequenceType names one of the three interaction-ordering archetypes used
// for banking and combat preparation.
type SequenceType string

const (
	SequenceTypeA SequenceType = "TYPE_A"
	SequenceTypeB SequenceType = "TYPE_B"
	SequenceTypeC SequenceType = "TYPE_C"
)

var sequenceTypes = []SequenceType{SequenceTypeA, SequenceTypeB, SequenceTypeC}

// TeleportMethod is one of the transport options a persona can prefer.
type TeleportMethod string

const (
	TeleportSpellbook    TeleportMethod = "SPELLBOOK"
	TeleportJewelry      TeleportMethod = "JEWELRY"
	TeleportFairyRing    TeleportMethod = "FAIRY_RING"
	TeleportSpiritTree   TeleportMethod = "SPIRIT_TREE"
	TeleportHousePortal  TeleportMethod = "HOUSE_PORTAL"
	TeleportTablets      TeleportMethod = "TABLETS"
)

var teleportMethods = []TeleportMethod{
	TeleportSpellbook, TeleportJewelry, TeleportFairyRing,
	TeleportSpiritTree, TeleportHousePortal, TeleportTablets,
}

// ritualPool is the fixed set of session-start habits a persona can adopt.
var ritualPool = []string{
	"CHECK_STATS",
	"OPEN_WORLD_MAP",
	"CYCLE_INVENTORY_TABS",
	"CHECK_FRIENDS_LIST",
	"ADJUST_CAMERA",
	"HOP_WORLDS",
}

// Hard bounds for every generated motor trait. Mutations clamp against these
// for the lifetime of the profile.
const (
	mouseSpeedMin, mouseSpeedMax             = 0.8, 1.3
	clickVarianceMin, clickVarianceMax       = 0.7, 1.4
	typingWPMMin, typingWPMMax               = 40.0, 80.0
	breakThresholdMin, breakThresholdMax     = 0.60, 0.95
	clickDurationMuMin, clickDurationMuMax   = 65.0, 95.0
	cognitiveDelayMin, cognitiveDelayMax     = 60.0, 180.0
	overshootMin, overshootMax               = 0.08, 0.20
	wobbleMin, wobbleMax                     = 0.7, 1.4
	velocityFlowMin, velocityFlowMax         = 0.2, 0.65
	fittsBMin, fittsBMax                     = 60.0, 180.0
	walkIntervalMin, walkIntervalMax         = 2, 6
	learningCapacityMin, learningCapacityMax = 0.10, 0.30
	learningTauMin, learningTauMax           = 150.0, 700.0
	misclickMin, misclickMax                 = 0.01, 0.03
	typoMin, typoMax                         = 0.005, 0.02
	microCorrectionMin, microCorrectionMax   = 0.15, 0.25

	// Run-energy hysteresis: enable must exceed disable by at least this.
	runHysteresisGap = 15

	// Sequence weight reinforcement.
	sequenceWeightFloor = 0.05
	sequenceWeightCap   = 0.85
	reinforceStep       = 0.005

	// Long-term drift granularity.
	driftBlockHours = 20.0

	// A gap longer than this makes the next session "fresh".
	freshSessionGap = 15 * time.Minute
)

// MotorTraits are the base motor-control parameters of a persona. All values
// are per-profile constants; time-varying modulation happens in
// PerformanceState and FatigueModel.
type MotorTraits struct {
	MouseSpeed         float64 `json:"mouse_speed"`
	ClickVariance      float64 `json:"click_variance"`
	ClickDurationMu    float64 `json:"click_duration_mu"`
	ClickDurationSigma float64 `json:"click_duration_sigma"`
	ClickDurationTau   float64 `json:"click_duration_tau"`
	CognitiveDelayBase float64 `json:"cognitive_delay_base"`
	CognitiveDelayVar  float64 `json:"cognitive_delay_var"`
	OvershootProb      float64 `json:"overshoot_prob"`
	WobbleAmplitude    float64 `json:"wobble_amplitude"`
	VelocityFlow       float64 `json:"velocity_flow"`
	FittsA             float64 `json:"fitts_a"`
	FittsB             float64 `json:"fitts_b"`
	JitterMu           float64 `json:"jitter_mu"`
	JitterSigma        float64 `json:"jitter_sigma"`
	JitterTau          float64 `json:"jitter_tau"`
	WalkClickInterval  int     `json:"walk_click_interval"`
	TypingWPM          float64 `json:"typing_wpm"`
	MisclickRate       float64 `json:"misclick_rate"`
	TypoRate           float64 `json:"typo_rate"`
	MicroCorrection    float64 `json:"micro_correction"`
	FeedbackDelay      int     `json:"feedback_delay_samples"`
	Handedness         float64 `json:"handedness"`
}

// Preferences are the behavioral (non-motor) parameters of a persona.
type Preferences struct {
	BreakThreshold      float64                    `json:"break_threshold"`
	PreferredCompass    float64                    `json:"preferred_compass_angle"`
	SessionRituals      []string                   `json:"session_rituals"`
	TeleportWeights     map[TeleportMethod]float64 `json:"teleport_weights"`
	LawRuneAversion     float64                    `json:"law_rune_aversion"`
	RunEnableThreshold  int                        `json:"run_enable_threshold"`
	RunDisableThreshold int                        `json:"run_disable_threshold"`
	IdlePosition        string                     `json:"idle_position"`
	VoicePitch          string                     `json:"voice_pitch"`
	Chronotype          string                     `json:"chronotype"`
	CircadianStrength   float64                    `json:"circadian_strength"`
	PeakHourOffset      int                        `json:"peak_hour_offset"`
	LearningCapacity    float64                    `json:"motor_learning_capacity"`
	LearningTau         float64                    `json:"motor_learning_tau"`
}

// ProfileRecord is the stable persisted form of a PlayerProfile.
type ProfileRecord struct {
	SchemaVersion    int                          `json:"schema_version"`
	AccountHash      string                       `json:"account_hash"`
	AccountType      string                       `json:"account_type"`
	Motor            MotorTraits                  `json:"motor"`
	Prefs            Preferences                  `json:"preferences"`
	BankingWeights   map[SequenceType]float64     `json:"banking_weights"`
	CombatWeights    map[SequenceType]float64     `json:"combat_prep_weights"`
	TaskExperience   map[string]float64           `json:"task_experience_minutes"`
	DriftHours       float64                      `json:"drift_hours"`
	LastSessionStart time.Time                    `json:"last_session_start"`
}

// ProfileSchemaVersion is bumped whenever ProfileRecord changes shape.
const ProfileSchemaVersion = 1

// PlayerProfile is the persistent persona of one account: fixed motor traits,
// behavioral preferences, sequence weights, and long-term proficiency state.
// All mutation goes through one mutex; profile updates are rare relative to
// the tick rate so no finer-grained locking is warranted.
type PlayerProfile struct {
	mu  sync.Mutex
	log *zap.Logger
	rnd *rng.Rand

	accountHash string
	accountType AccountType
	loaded      bool

	motor MotorTraits
	prefs Preferences

	bankingWeights map[SequenceType]float64
	combatWeights  map[SequenceType]float64

	// taskExperience maps uppercased task names to practiced minutes.
	taskExperience map[string]float64

	driftHours       float64
	pendingDrift     float64
	lastSessionStart time.Time
	sessionDrift     float64
}

// profileSeed derives the deterministic generation seed for an account hash.
func profileSeed(accountHash string) int64 {
	sum := sha256.Sum256([]byte(accountHash + seedSalt))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// HashAccount produces the opaque account hash for an account identifier.
func HashAccount(accountID string) string {
	sum := sha256.Sum256([]byte(accountID))
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i, b := range sum[:8] {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}

// GenerateProfile creates the persona for an account. The same account hash
// and type always produce the same persona. A nil logger is replaced with a
// no-op one.
func GenerateProfile(accountHash string, accountType AccountType, logger *zap.Logger) *PlayerProfile {
	if logger == nil {
		logger = zap.NewNop()
	}
	if accountHash == "" {
		accountHash = DefaultAccountHash
	}

	r := rng.NewSeeded(profileSeed(accountHash))
	p := &PlayerProfile{
		log:            logger.Named("profile"),
		rnd:            r,
		accountHash:    accountHash,
		accountType:    accountType,
		taskExperience: make(map[string]float64),
		sessionDrift:   1.0,
	}

	p.generateMotorTraits()
	p.generatePreferences()
	p.bankingWeights = p.generateSequenceWeights()
	p.combatWeights = p.generateSequenceWeights()
	p.loaded = true

	p.log.Info("Generated player profile",
		zap.String("account", accountHash),
		zap.String("accountType", accountType.String()),
		zap.Float64("mouseSpeed", p.motor.MouseSpeed),
		zap.Float64("breakThreshold", p.prefs.BreakThreshold))
	return p
}

// generateMotorTraits draws the correlated motor traits. The correlated
// subset (speed, click duration, overshoot, walk interval) comes from one
// multivariate-normal draw with weak documented correlations; the rest are
// independent.
func (p *PlayerProfile) generateMotorTraits() {
	// Means sit mid-range; standard deviations cover roughly a third of the
	// range so the clamp rarely bites.
	means := []float64{
		(mouseSpeedMin + mouseSpeedMax) / 2,           // mouse speed
		(clickDurationMuMin + clickDurationMuMax) / 2, // click duration mu
		(overshootMin + overshootMax) / 2,             // overshoot prob
		4.0,                                           // walk-click interval
	}
	sds := []float64{0.12, 7.0, 0.03, 1.0}
	// Weak pairwise correlations: fast mice click shorter, overshoot more,
	// and re-click walks sooner. All |r| < 0.7.
	corr := [][]float64{
		{1.00, -0.40, 0.30, -0.30},
		{-0.40, 1.00, 0.00, 0.00},
		{0.30, 0.00, 1.00, 0.00},
		{-0.30, 0.00, 0.00, 1.00},
	}
	cov := make([][]float64, len(means))
	for i := range cov {
		cov[i] = make([]float64, len(means))
		for j := range cov[i] {
			cov[i][j] = corr[i][j] * sds[i] * sds[j]
		}
	}
	draw := p.rnd.MultivariateNormal(means, cov)

	p.motor.MouseSpeed = rng.Clamp(draw[0], mouseSpeedMin, mouseSpeedMax)
	p.motor.ClickDurationMu = rng.Clamp(draw[1], clickDurationMuMin, clickDurationMuMax)
	p.motor.OvershootProb = rng.Clamp(draw[2], overshootMin, overshootMax)
	p.motor.WalkClickInterval = int(rng.Clamp(math.Round(draw[3]), walkIntervalMin, walkIntervalMax))

	p.motor.ClickDurationSigma = p.rnd.Uniform(8, 18)
	p.motor.ClickDurationTau = p.rnd.Uniform(10, 30)
	p.motor.ClickVariance = p.rnd.Uniform(clickVarianceMin, clickVarianceMax)
	p.motor.CognitiveDelayBase = p.rnd.Uniform(cognitiveDelayMin, cognitiveDelayMax)
	p.motor.CognitiveDelayVar = p.rnd.Uniform(15, 45)
	p.motor.WobbleAmplitude = p.rnd.Uniform(wobbleMin, wobbleMax)
	p.motor.VelocityFlow = p.rnd.Uniform(velocityFlowMin, velocityFlowMax)
	p.motor.FittsA = p.rnd.Uniform(50, 150)
	p.motor.FittsB = p.rnd.Uniform(fittsBMin, fittsBMax)
	p.motor.JitterMu = p.rnd.Uniform(30, 50)
	p.motor.JitterSigma = p.rnd.Uniform(10, 20)
	p.motor.JitterTau = p.rnd.Uniform(15, 25)
	p.motor.TypingWPM = p.rnd.Uniform(typingWPMMin, typingWPMMax)
	p.motor.MisclickRate = p.rnd.Uniform(misclickMin, misclickMax)
	p.motor.TypoRate = p.rnd.Uniform(typoMin, typoMax)
	p.motor.MicroCorrection = p.rnd.Uniform(microCorrectionMin, microCorrectionMax)
	p.motor.FeedbackDelay = p.rnd.UniformInt(10, 25)
	p.motor.Handedness = p.generateHandedness()
}

// generateHandedness draws a bimodal handedness score: most personas are
// firmly right-handed, a minority left-handed, a rare few ambidextrous.
func (p *PlayerProfile) generateHandedness() float64 {
	roll := p.rnd.Float64()
	switch {
	case roll < 0.88:
		return p.rnd.Uniform(0.76, 1.0)
	case roll < 0.96:
		return p.rnd.Uniform(0.0, 0.24)
	default:
		return p.rnd.Uniform(0.25, 0.75)
	}
}

func (p *PlayerProfile) generatePreferences() {
	p.prefs.BreakThreshold = p.rnd.Uniform(breakThresholdMin, breakThresholdMax)
	p.prefs.PreferredCompass = p.rnd.Uniform(0, 360)
	p.prefs.LearningCapacity = p.rnd.Uniform(learningCapacityMin, learningCapacityMax)
	p.prefs.LearningTau = p.rnd.Uniform(learningTauMin, learningTauMax)

	// Run-energy hysteresis: enable strictly above disable by >= 15.
	p.prefs.RunEnableThreshold = p.rnd.UniformInt(25, 65)
	p.prefs.RunDisableThreshold = p.rnd.UniformInt(5, 25)
	if p.prefs.RunEnableThreshold-p.prefs.RunDisableThreshold < runHysteresisGap {
		p.prefs.RunDisableThreshold = p.prefs.RunEnableThreshold - runHysteresisGap
	}

	// Session rituals: 2 to 4 distinct habits out of the fixed pool.
	count := p.rnd.UniformInt(2, 4)
	perm := make([]int, len(ritualPool))
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := p.rnd.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	p.prefs.SessionRituals = make([]string, 0, count)
	for _, idx := range perm[:count] {
		p.prefs.SessionRituals = append(p.prefs.SessionRituals, ritualPool[idx])
	}

	p.prefs.IdlePosition = []string{"CAMERA_DRIFT", "INVENTORY_HOVER", "MINIMAP_HOVER"}[p.rnd.Intn(3)]
	p.prefs.VoicePitch = p.generateVoicePitch()
	p.prefs.Chronotype = p.generateChronotype()
	p.prefs.CircadianStrength = p.rnd.Uniform(0.15, 0.35)
	p.prefs.PeakHourOffset = p.rnd.UniformInt(-2, 2)

	p.generateTeleportWeights()
}

func (p *PlayerProfile) generateVoicePitch() string {
	idx := p.rnd.WeightedChoice([]float64{0.3, 0.4, 0.3})
	return []string{"HIGH", "MEDIUM", "LOW"}[idx]
}

func (p *PlayerProfile) generateChronotype() string {
	idx := p.rnd.WeightedChoice([]float64{0.5, 0.25, 0.25})
	return []string{"NEUTRAL", "EARLY_BIRD", "NIGHT_OWL"}[idx]
}

// generateTeleportWeights biases transport preferences by account risk class.
// Hardcore ironmen avoid law-rune teleports entirely and lean on fairy
// rings; regular ironmen are a moderated version; normal accounts are
// unbiased with no single dominant method.
func (p *PlayerProfile) generateTeleportWeights() {
	w := make(map[TeleportMethod]float64, len(teleportMethods))

	switch p.accountType {
	case AccountHardcoreIronman:
		p.prefs.LawRuneAversion = 1.0
		w[TeleportSpellbook] = 0.0
		w[TeleportFairyRing] = p.rnd.Uniform(0.60, 0.80)
		p.splitRemainder(w, 1.0-w[TeleportFairyRing],
			TeleportJewelry, TeleportSpiritTree, TeleportHousePortal, TeleportTablets)
	case AccountIronman:
		p.prefs.LawRuneAversion = p.rnd.Uniform(0.55, 0.65)
		w[TeleportFairyRing] = p.rnd.Uniform(0.45, 0.55)
		w[TeleportSpellbook] = p.rnd.Uniform(0.20, 0.26)
		p.splitRemainder(w, 1.0-w[TeleportFairyRing]-w[TeleportSpellbook],
			TeleportJewelry, TeleportSpiritTree, TeleportHousePortal, TeleportTablets)
	default:
		p.prefs.LawRuneAversion = p.rnd.Uniform(0.0, 0.30)
		// Uniform-ish draws normalized over six methods never come close to
		// the 0.7 dominance cap, but the invariant gets enforced anyway.
		for {
			total := 0.0
			for _, m := range teleportMethods {
				w[m] = p.rnd.Uniform(0.5, 1.5)
				total += w[m]
			}
			maxW := 0.0
			for _, m := range teleportMethods {
				w[m] /= total
				if w[m] > maxW {
					maxW = w[m]
				}
			}
			if maxW < 0.7 {
				break
			}
		}
	}

	p.prefs.TeleportWeights = w
}

// splitRemainder distributes leftover teleport mass randomly across methods.
func (p *PlayerProfile) splitRemainder(w map[TeleportMethod]float64, remainder float64, methods ...TeleportMethod) {
	if remainder < 0 {
		remainder = 0
	}
	shares := make([]float64, len(methods))
	total := 0.0
	for i := range shares {
		shares[i] = p.rnd.Uniform(0.2, 1.0)
		total += shares[i]
	}
	for i, m := range methods {
		w[m] = remainder * shares[i] / total
	}
}

// generateSequenceWeights draws the three archetype weights so the dominant
// one lands in [0.40, 0.60] after normalization.
func (p *PlayerProfile) generateSequenceWeights() map[SequenceType]float64 {
	dominant := sequenceTypes[p.rnd.Intn(len(sequenceTypes))]
	domWeight := p.rnd.Uniform(0.40, 0.60)

	w := make(map[SequenceType]float64, len(sequenceTypes))
	rest := 1.0 - domWeight
	split := p.rnd.Uniform(0.3, 0.7)
	i := 0
	for _, s := range sequenceTypes {
		if s == dominant {
			w[s] = domWeight
			continue
		}
		if i == 0 {
			w[s] = rest * split
		} else {
			w[s] = rest * (1 - split)
		}
		i++
	}
	return w
}

// RestoreProfile reconstructs a profile from its persisted record.
func RestoreProfile(rec ProfileRecord, logger *zap.Logger) *PlayerProfile {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PlayerProfile{
		log:              logger.Named("profile"),
		rnd:              rng.New(),
		accountHash:      rec.AccountHash,
		accountType:      ParseAccountType(rec.AccountType),
		motor:            rec.Motor,
		prefs:            rec.Prefs,
		bankingWeights:   rec.BankingWeights,
		combatWeights:    rec.CombatWeights,
		taskExperience:   rec.TaskExperience,
		driftHours:       rec.DriftHours,
		lastSessionStart: rec.LastSessionStart,
		sessionDrift:     1.0,
		loaded:           true,
	}
	if p.bankingWeights == nil {
		p.bankingWeights = make(map[SequenceType]float64)
	}
	if p.combatWeights == nil {
		p.combatWeights = make(map[SequenceType]float64)
	}
	if p.taskExperience == nil {
		p.taskExperience = make(map[string]float64)
	}
	return p
}

// Record captures the profile's persistable state.
func (p *PlayerProfile) Record() ProfileRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := ProfileRecord{
		SchemaVersion:    ProfileSchemaVersion,
		AccountHash:      p.accountHash,
		AccountType:      p.accountType.String(),
		Motor:            p.motor,
		Prefs:            p.prefs,
		BankingWeights:   make(map[SequenceType]float64, len(p.bankingWeights)),
		CombatWeights:    make(map[SequenceType]float64, len(p.combatWeights)),
		TaskExperience:   make(map[string]float64, len(p.taskExperience)),
		DriftHours:       p.driftHours,
		LastSessionStart: p.lastSessionStart,
	}
	for k, v := range p.bankingWeights {
		rec.BankingWeights[k] = v
	}
	for k, v := range p.combatWeights {
		rec.CombatWeights[k] = v
	}
	for k, v := range p.taskExperience {
		rec.TaskExperience[k] = v
	}
	return rec
}

// --- Accessors ---

func (p *PlayerProfile) AccountHash() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accountHash
}

func (p *PlayerProfile) AccountType() AccountType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accountType
}

// IsDefault reports whether this is the non-persisting sentinel persona.
func (p *PlayerProfile) IsDefault() bool {
	return p.AccountHash() == DefaultAccountHash
}

func (p *PlayerProfile) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Motor returns a copy of the base motor traits.
func (p *PlayerProfile) Motor() MotorTraits {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.motor
}

// Prefs returns a copy of the behavioral preferences.
func (p *PlayerProfile) Prefs() Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefs := p.prefs
	prefs.SessionRituals = append([]string(nil), p.prefs.SessionRituals...)
	weights := make(map[TeleportMethod]float64, len(p.prefs.TeleportWeights))
	for k, v := range p.prefs.TeleportWeights {
		weights[k] = v
	}
	prefs.TeleportWeights = weights
	return prefs
}

func (p *PlayerProfile) BreakThreshold() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs.BreakThreshold
}

func (p *PlayerProfile) MisclickRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.motor.MisclickRate
}

// SessionDrift is the small per-session wobble applied to dynamic trait
// copies, always within ±2% of 1.0.
func (p *PlayerProfile) SessionDrift() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionDrift
}

func (p *PlayerProfile) LastSessionStart() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSessionStart
}

// --- Circadian curve ---

// CircadianPerformanceMultiplier returns the time-of-day performance factor
// for the given hour [0,24). The curve peaks at the chronotype's peak hour
// shifted by the personal offset and dips by CircadianStrength at the
// opposite point, so the result lies in [1-strength, 1.0].
func (p *PlayerProfile) CircadianPerformanceMultiplier(hour int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	peak := 14
	switch p.prefs.Chronotype {
	case "EARLY_BIRD":
		peak = 10
	case "NIGHT_OWL":
		peak = 20
	}
	peak += p.prefs.PeakHourOffset

	phase := 2 * math.Pi * float64(hour-peak) / 24.0
	dip := 0.5 - 0.5*math.Cos(phase)
	return 1.0 - p.prefs.CircadianStrength*dip
}

// --- Session lifecycle ---

// BeginSession records a session start, re-rolls the per-session drift
// factor, and reports whether the gap since the previous session makes this
// a fresh session.
func (p *PlayerProfile) BeginSession(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fresh := p.lastSessionStart.IsZero() || now.Sub(p.lastSessionStart) > freshSessionGap
	p.lastSessionStart = now
	p.sessionDrift = rng.Clamp(p.rnd.Gaussian(1.0, 0.01), 0.98, 1.02)
	return fresh
}

// --- Sequence selection & reinforcement ---

// SelectBankingSequence draws a banking archetype. Passing allowed types
// filters the draw; the surviving weights are renormalized.
func (p *PlayerProfile) SelectBankingSequence(allowed ...SequenceType) SequenceType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectSequence(p.bankingWeights, allowed)
}

// SelectCombatPrepSequence draws a combat-preparation archetype.
func (p *PlayerProfile) SelectCombatPrepSequence(allowed ...SequenceType) SequenceType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectSequence(p.combatWeights, allowed)
}

func (p *PlayerProfile) selectSequence(weights map[SequenceType]float64, allowed []SequenceType) SequenceType {
	candidates := sequenceTypes
	if len(allowed) > 0 {
		candidates = allowed
	}
	ws := make([]float64, len(candidates))
	for i, s := range candidates {
		ws[i] = weights[s]
	}
	idx := p.rnd.WeightedChoice(ws)
	if idx < 0 {
		return candidates[p.rnd.Intn(len(candidates))]
	}
	return candidates[idx]
}

// ReinforceBankingSequence nudges a banking archetype's weight up after a
// successful use of that ordering.
func (p *PlayerProfile) ReinforceBankingSequence(s SequenceType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reinforce(p.bankingWeights, s)
}

// ReinforceCombatPrepSequence nudges a combat-prep archetype's weight up.
func (p *PlayerProfile) ReinforceCombatPrepSequence(s SequenceType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reinforce(p.combatWeights, s)
}

// reinforce bumps the chosen weight by one step (capped), scales the rest
// down proportionally (floored), and renormalizes so the weights stay a
// distribution.
func reinforce(weights map[SequenceType]float64, chosen SequenceType) {
	if _, ok := weights[chosen]; !ok {
		return
	}
	weights[chosen] = math.Min(sequenceWeightCap, weights[chosen]+reinforceStep)

	otherTotal := 0.0
	for s, w := range weights {
		if s != chosen {
			otherTotal += w
		}
	}
	remaining := 1.0 - weights[chosen]
	if otherTotal > 0 {
		for s, w := range weights {
			if s == chosen {
				continue
			}
			weights[s] = math.Max(sequenceWeightFloor, w*remaining/otherTotal)
		}
	}

	// Flooring can leave the sum slightly off 1.0; renormalize.
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total > 0 {
		for s := range weights {
			weights[s] /= total
		}
	}
}

// --- Task experience & motor learning ---

// RecordTaskExperience accumulates practice minutes for a task. Task names
// are case-insensitive.
func (p *PlayerProfile) RecordTaskExperience(task string, minutes float64) {
	if minutes <= 0 || task == "" {
		return
	}
	key := strings.ToUpper(strings.TrimSpace(task))
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskExperience[key] += minutes
}

// TaskExperience returns the directly practiced minutes for a task.
func (p *PlayerProfile) TaskExperience(task string) float64 {
	key := strings.ToUpper(strings.TrimSpace(task))
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taskExperience[key]
}

// TaskProficiencyMultiplier converts practice into a timing multiplier in
// (1-capacity, 1.0]: 1.0 for a complete novice, saturating toward
// 1-capacity with heavy practice. Experience transfers partially from the
// same skill category (50%) and from everything else (15%), so a veteran
// account is never a total novice at a new task but stays worse than at its
// practiced ones.
func (p *PlayerProfile) TaskProficiencyMultiplier(task string) float64 {
	key := strings.ToUpper(strings.TrimSpace(task))
	category := CategoryForTask(key)

	p.mu.Lock()
	defer p.mu.Unlock()

	direct := p.taskExperience[key]
	bestSameCategory := 0.0
	general := 0.0
	for other, minutes := range p.taskExperience {
		general += minutes
		if other == key {
			continue
		}
		if CategoryForTask(other) == category && minutes > bestSameCategory {
			bestSameCategory = minutes
		}
	}

	effective := direct
	if v := 0.5 * bestSameCategory; v > effective {
		effective = v
	}
	if v := 0.15 * general; v > effective {
		effective = v
	}

	capacity := p.prefs.LearningCapacity
	tau := p.prefs.LearningTau
	return 1.0 - capacity*(1.0-math.Exp(-effective/tau))
}

// --- Long-term drift ---

// ApplyLongTermDrift improves the persona slightly for every 20 hours of
// accumulated play: the mouse speeds up a touch, clicks get steadier. Gains
// diminish by the hard trait bounds.
func (p *PlayerProfile) ApplyLongTermDrift(hours float64) {
	if hours <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.driftHours += hours
	p.pendingDrift += hours
	for p.pendingDrift >= driftBlockHours {
		p.pendingDrift -= driftBlockHours
		p.motor.MouseSpeed = math.Min(mouseSpeedMax,
			p.motor.MouseSpeed+p.rnd.Uniform(0.01, 0.03))
		p.motor.ClickVariance = math.Max(clickVarianceMin,
			p.motor.ClickVariance-p.rnd.Uniform(0.008, 0.02))
	}
}

// TotalDriftHours returns the lifetime play hours counted toward drift.
func (p *PlayerProfile) TotalDriftHours() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.driftHours
}
