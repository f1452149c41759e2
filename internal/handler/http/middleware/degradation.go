package middleware

import (
	"log/slog"
	"sync"
	"time"

	"newsbot/pkg/ratelimit"
)

// DegradationLevel is how far rate limiting has been relaxed to keep the
// API available while the limiter itself is unhealthy.
type DegradationLevel int

const (
	// LevelNormal applies the configured limits as-is.
	LevelNormal DegradationLevel = iota

	// LevelRelaxed doubles limits; entered when the limiter's circuit
	// breaker is open.
	LevelRelaxed

	// LevelMinimal applies 10x limits; entered under store memory
	// pressure.
	LevelMinimal

	// LevelDisabled turns limiting off entirely; entered when both
	// indicators fire at once. Availability over throttling.
	LevelDisabled
)

// String returns the level name.
func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelRelaxed:
		return "relaxed"
	case LevelMinimal:
		return "minimal"
	case LevelDisabled:
		return "disabled"
	}
	return "unknown"
}

// DegradationConfig tunes a DegradationManager.
type DegradationConfig struct {
	// AutoAdjust lets health indicators move the level; off means the
	// level only changes via SetLevel.
	AutoAdjust bool

	// CooldownPeriod is the minimum gap between automatic level
	// changes, against flapping.
	CooldownPeriod time.Duration

	// RelaxedMultiplier and MinimalMultiplier scale the base limit at
	// their levels.
	RelaxedMultiplier int
	MinimalMultiplier int

	// Clock is for tests; nil means SystemClock.
	Clock ratelimit.Clock

	// Metrics records level changes; nil means NoOpMetrics.
	Metrics ratelimit.RateLimitMetrics

	// LimiterType labels metrics and logs: "ip" or "user".
	LimiterType string
}

// DefaultDegradationConfig returns auto-adjusting defaults: 1 minute
// cooldown, 2x relaxed, 10x minimal.
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		AutoAdjust:        true,
		CooldownPeriod:    time.Minute,
		RelaxedMultiplier: 2,
		MinimalMultiplier: 10,
		Clock:             &ratelimit.SystemClock{},
		Metrics:           &ratelimit.NoOpMetrics{},
	}
}

// DegradationManager tracks the limiter's health indicators (circuit
// breaker state, store memory pressure) and grades the rate limits
// accordingly. The limiters feed it breaker observations per request and
// ask it for the effective limit via AdjustLimits; operators can pin a
// level with SetLevel.
type DegradationManager struct {
	config DegradationConfig

	mu              sync.RWMutex
	currentLevel    DegradationLevel
	lastLevelChange time.Time
	circuitOpen     bool
	memoryPressure  bool
	manualOverride  *DegradationLevel
}

// NewDegradationManager builds a manager at LevelNormal, filling zero
// config fields with the defaults.
func NewDegradationManager(config DegradationConfig) *DegradationManager {
	if config.CooldownPeriod <= 0 {
		config.CooldownPeriod = time.Minute
	}
	if config.RelaxedMultiplier <= 0 {
		config.RelaxedMultiplier = 2
	}
	if config.MinimalMultiplier <= 0 {
		config.MinimalMultiplier = 10
	}
	if config.Clock == nil {
		config.Clock = &ratelimit.SystemClock{}
	}
	if config.Metrics == nil {
		config.Metrics = &ratelimit.NoOpMetrics{}
	}

	dm := &DegradationManager{
		config:          config,
		currentLevel:    LevelNormal,
		lastLevelChange: config.Clock.Now(),
	}
	config.Metrics.RecordDegradationLevel(config.LimiterType, int(LevelNormal))
	return dm
}

// GetLevel returns the effective level, honoring a manual override.
func (dm *DegradationManager) GetLevel() DegradationLevel {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.manualOverride != nil {
		return *dm.manualOverride
	}
	return dm.currentLevel
}

// SetLevel pins the level until ClearManualOverride. For incident
// response: force strict limiting during an attack, or disable it while
// debugging the limiter itself.
func (dm *DegradationManager) SetLevel(level DegradationLevel) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.manualOverride = &level
	dm.config.Metrics.RecordDegradationLevel(dm.config.LimiterType, int(level))

	slog.Info("Degradation level manually set",
		slog.String("limiter_type", dm.config.LimiterType),
		slog.String("level", level.String()))
}

// ClearManualOverride resumes automatic adjustment.
func (dm *DegradationManager) ClearManualOverride() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.manualOverride == nil {
		return
	}
	dm.manualOverride = nil
	dm.config.Metrics.RecordDegradationLevel(dm.config.LimiterType, int(dm.currentLevel))

	slog.Info("Degradation manual override cleared, resuming auto-adjustment",
		slog.String("limiter_type", dm.config.LimiterType),
		slog.String("current_level", dm.currentLevel.String()))
}

// AdjustLimits scales baseLimit for the effective level. Zero means
// limiting is disabled and the caller should wave the request through.
func (dm *DegradationManager) AdjustLimits(baseLimit int) int {
	switch dm.GetLevel() {
	case LevelRelaxed:
		return baseLimit * dm.config.RelaxedMultiplier
	case LevelMinimal:
		return baseLimit * dm.config.MinimalMultiplier
	case LevelDisabled:
		return 0
	}
	return baseLimit
}

// ObserveCircuit records the limiter's breaker state as seen on a
// request. The limiters call this every check, so the level follows the
// breaker without the breaker needing a callback hook.
func (dm *DegradationManager) ObserveCircuit(open bool) {
	dm.setIndicator(&dm.circuitOpen, open)
}

// OnCircuitOpen and OnCircuitClose are explicit forms of ObserveCircuit.
func (dm *DegradationManager) OnCircuitOpen()  { dm.ObserveCircuit(true) }
func (dm *DegradationManager) OnCircuitClose() { dm.ObserveCircuit(false) }

// OnHighMemoryPressure marks the store as near capacity; the cleanup
// loop calls it when the store's estimated footprint crosses its
// threshold.
func (dm *DegradationManager) OnHighMemoryPressure() {
	dm.setIndicator(&dm.memoryPressure, true)
}

// OnNormalMemoryPressure clears the memory indicator.
func (dm *DegradationManager) OnNormalMemoryPressure() {
	dm.setIndicator(&dm.memoryPressure, false)
}

// setIndicator updates one health flag (always, for observability) and
// re-grades the level unless auto-adjust is off or an override is
// pinned.
func (dm *DegradationManager) setIndicator(flag *bool, value bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	*flag = value

	if !dm.config.AutoAdjust || dm.manualOverride != nil {
		return
	}
	dm.adjustLevel()
}

// adjustLevel grades the level from the indicators, bounded by the
// cooldown: both firing → disabled, memory pressure → minimal, circuit
// open → relaxed, healthy → normal. Callers hold the write lock.
func (dm *DegradationManager) adjustLevel() {
	now := dm.config.Clock.Now()
	if now.Sub(dm.lastLevelChange) < dm.config.CooldownPeriod {
		return
	}

	var newLevel DegradationLevel
	var reason string
	switch {
	case dm.circuitOpen && dm.memoryPressure:
		newLevel, reason = LevelDisabled, "circuit_open,memory_pressure"
	case dm.memoryPressure:
		newLevel, reason = LevelMinimal, "memory_pressure"
	case dm.circuitOpen:
		newLevel, reason = LevelRelaxed, "circuit_open"
	default:
		newLevel, reason = LevelNormal, "recovery"
	}

	if newLevel == dm.currentLevel {
		return
	}

	oldLevel := dm.currentLevel
	dm.currentLevel = newLevel
	dm.lastLevelChange = now
	dm.config.Metrics.RecordDegradationLevel(dm.config.LimiterType, int(newLevel))

	slog.Warn("degradation level changed",
		slog.String("limiter_type", dm.config.LimiterType),
		slog.String("previous_level", oldLevel.String()),
		slog.String("new_level", newLevel.String()),
		slog.String("reason", reason),
		slog.Bool("circuit_open", dm.circuitOpen),
		slog.Bool("memory_pressure", dm.memoryPressure))
}

// DegradationStats is a monitoring snapshot.
type DegradationStats struct {
	// EffectiveLevel is what AdjustLimits uses (override included).
	EffectiveLevel DegradationLevel

	// InternalLevel is the auto-graded level, ignoring any override.
	InternalLevel DegradationLevel

	ManualOverride  bool
	CircuitOpen     bool
	MemoryPressure  bool
	LastLevelChange time.Time
}

// Stats returns the current snapshot.
func (dm *DegradationManager) Stats() DegradationStats {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	effectiveLevel := dm.currentLevel
	if dm.manualOverride != nil {
		effectiveLevel = *dm.manualOverride
	}
	return DegradationStats{
		EffectiveLevel:  effectiveLevel,
		InternalLevel:   dm.currentLevel,
		ManualOverride:  dm.manualOverride != nil,
		CircuitOpen:     dm.circuitOpen,
		MemoryPressure:  dm.memoryPressure,
		LastLevelChange: dm.lastLevelChange,
	}
}
