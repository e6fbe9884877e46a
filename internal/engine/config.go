package engine

import (
	"fmt"

	"github.com/Norsninja/OilLeak-sub000/internal/domain/hazard"
)

// Config is the full tuning surface of the core. It is set once at
// construction and treated as immutable for the lifetime of a session.
// The defaults come from playtesting, not from a model; keep them
// overridable but do not "correct" them.
type Config struct {
	// Emission curves
	BaseEmissionRate     float64 // particles/sec at run start
	MaxCurveRate         float64 // curve endpoint at CurveDurationSeconds
	MaxEmissionRate      float64 // hard clamp after rubber-band correction
	CurveDurationSeconds float64
	MultiplierStart      float64
	MultiplierEnd        float64

	// Cadence
	TickInterval float64 // seconds between difficulty/burst evaluations

	// Rubber band
	RubberBandEnabled  bool
	TargetBlockPct     float64 // desired blocked/total ratio
	RubberBandStrength float64
	SmoothTimeConstant float64 // seconds, exponential smoothing
	WindowDuration     float64 // seconds per performance window

	// Pressure and bursts
	PressureBuildupRate  float64 // pressure per blocked particle
	PressureThreshold    float64
	BurstCooldown        float64 // seconds between burst triggers
	BurstDuration        float64 // seconds a burst lasts
	BurstMultiplier      float64 // per-source rate factor while bursting
	BurstImpulseRadius   float64
	BurstImpulseStrength float64
	BurstMaxBodies       int
	BurstFalloffExponent float64

	// Sources
	MaxSources       int
	SourceMilestones []float64 // elapsed seconds at which extra sources spawn
	MinSourceSpacing float64
	SpawnRadius      float64
	BasePosition     hazard.Vec2
	AmbientRate      float64 // menu-only aesthetic emission

	// Seed for source placement sampling. Zero means non-deterministic.
	Seed int64
}

// DefaultConfig returns the playtested defaults.
func DefaultConfig() Config {
	return Config{
		BaseEmissionRate:     5,
		MaxCurveRate:         50,
		MaxEmissionRate:      80,
		CurveDurationSeconds: 600,
		MultiplierStart:      1.0,
		MultiplierEnd:        3.0,

		TickInterval: 0.5,

		RubberBandEnabled:  true,
		TargetBlockPct:     0.6,
		RubberBandStrength: 1.0,
		SmoothTimeConstant: 5,
		WindowDuration:     10,

		PressureBuildupRate:  0.5,
		PressureThreshold:    100,
		BurstCooldown:        30,
		BurstDuration:        5,
		BurstMultiplier:      2.5,
		BurstImpulseRadius:   12,
		BurstImpulseStrength: 40,
		BurstMaxBodies:       24,
		BurstFalloffExponent: 2,

		MaxSources:       3,
		SourceMilestones: []float64{120, 300},
		MinSourceSpacing: 6,
		SpawnRadius:      20,
		BasePosition:     hazard.Vec2{X: 0, Y: 0},
		AmbientRate:      1.5,
	}
}

// Validate surfaces configuration errors. These are fatal: the caller must
// refuse to start rather than run with a broken pacing model.
func (c Config) Validate() error {
	if c.CurveDurationSeconds <= 0 {
		return fmt.Errorf("config: curve duration must be positive, got %v", c.CurveDurationSeconds)
	}
	if c.BaseEmissionRate <= 0 || c.MaxCurveRate <= 0 || c.MaxEmissionRate <= 0 {
		return fmt.Errorf("config: emission rates must be positive (base=%v curve=%v max=%v)",
			c.BaseEmissionRate, c.MaxCurveRate, c.MaxEmissionRate)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %v", c.TickInterval)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("config: performance window must be positive, got %v", c.WindowDuration)
	}
	if c.SmoothTimeConstant <= 0 {
		return fmt.Errorf("config: smoothing time constant must be positive, got %v", c.SmoothTimeConstant)
	}
	if c.PressureThreshold <= 0 {
		return fmt.Errorf("config: pressure threshold must be positive, got %v", c.PressureThreshold)
	}
	if c.MaxSources < 1 {
		return fmt.Errorf("config: need at least one hazard source, got %d", c.MaxSources)
	}
	for i := 1; i < len(c.SourceMilestones); i++ {
		if c.SourceMilestones[i] <= c.SourceMilestones[i-1] {
			return fmt.Errorf("config: source milestones must strictly increase, got %v", c.SourceMilestones)
		}
	}
	return nil
}
