package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/domain/hazard"
	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/metrics"
)

// RunState is the hazard manager's own lifecycle. It is distinct from the
// flow phase but strictly driven by it through the session.
type RunState int

const (
	RunStateMenu RunState = iota
	RunStateRunning
	RunStatePaused
	RunStateStopped
)

func (s RunState) String() string {
	switch s {
	case RunStateMenu:
		return "Menu"
	case RunStateRunning:
		return "Running"
	case RunStatePaused:
		return "Paused"
	case RunStateStopped:
		return "Stopped"
	}
	return "Unknown"
}

// ImpulseRequest is what a burst hands to the physics collaborator: an
// outward push around the origin, bounded in body count, with a
// distance falloff. The core never applies forces itself.
type ImpulseRequest struct {
	Origin          hazard.Vec2 `json:"origin"`
	Radius          float64     `json:"radius"`
	Strength        float64     `json:"strength"`
	MaxBodies       int         `json:"max_bodies"`
	FalloffExponent float64     `json:"falloff_exponent"`
}

// ImpulseSink receives burst impulse requests. Fire-and-forget.
type ImpulseSink interface {
	ApplyBurstImpulse(req ImpulseRequest)
}

// HazardSourceManager owns the set of active emission sources: their
// flags, their per-source budget, milestone spawning, and the pressure
// burst cycle.
type HazardSourceManager struct {
	cfg      Config
	logger   *logger.Logger
	eventLog *events.EventLog
	budgeter EmissionBudgeter
	pressure *PressureAccumulator
	rng      *rand.Rand

	state        RunState
	sources      []*hazard.Source
	nextSourceID int
	totalRate    float64
	pausedAt     time.Time
	runID        string
	elapsed      float64

	impulseSink ImpulseSink // optional collaborator
}

// NewHazardSourceManager builds the manager. It starts Stopped; the
// session moves it to Menu once the boot sequence completes.
func NewHazardSourceManager(cfg Config, eventLog *events.EventLog, log *logger.Logger) *HazardSourceManager {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &HazardSourceManager{
		cfg:      cfg,
		logger:   log,
		eventLog: eventLog,
		pressure: NewPressureAccumulator(cfg),
		rng:      rand.New(rand.NewSource(seed)),
		state:    RunStateStopped,
	}
}

// SetImpulseSink wires the physics collaborator. Optional: without one,
// bursts still happen and are recorded, the push is simply not applied.
func (hm *HazardSourceManager) SetImpulseSink(sink ImpulseSink) {
	hm.impulseSink = sink
}

// EnterMenu clears everything and spawns the single ambient source:
// fixed low rate, collisions off, aesthetic only.
func (hm *HazardSourceManager) EnterMenu() {
	hm.clearSources()
	hm.pressure.Reset()
	hm.state = RunStateMenu

	ambient := hm.spawnSource(hm.cfg.BasePosition)
	ambient.Enabled = true
	ambient.CollisionEnabled = false
	ambient.CurrentRate = hm.cfg.AmbientRate
	hm.logger.Info("Hazard manager in menu state, ambient source " + ambient.ID)
}

// StartRun destroys the ambient source, spawns the first managed source
// at the base position, and zeroes pressure and burst state.
func (hm *HazardSourceManager) StartRun(now time.Time, runID string) {
	hm.clearSources()
	hm.pressure.Reset()
	hm.runID = runID
	hm.elapsed = 0
	hm.totalRate = hm.cfg.BaseEmissionRate
	hm.state = RunStateRunning

	first := hm.spawnSource(hm.cfg.BasePosition)
	first.Enabled = true
	first.CollisionEnabled = true
	hm.applyBudget()
	hm.recordSpawn(now, first)
	hm.logger.Event("RUN_SOURCES_READY", "SYSTEM_HAZARD", "First source "+first.ID+" for "+runID)
}

// PauseRun disables emission and collisions on every source without
// altering counts, rates, or pressure. In-flight timers freeze.
func (hm *HazardSourceManager) PauseRun(now time.Time) {
	if hm.state != RunStateRunning {
		hm.logger.Warn("PauseRun ignored in state " + hm.state.String())
		return
	}
	for _, s := range hm.sources {
		s.Enabled = false
		s.CollisionEnabled = false
	}
	hm.pausedAt = now
	hm.state = RunStatePaused
}

// ResumeRun re-enables the sources and shifts burst timers forward by the
// paused span, restoring everything to the pause instant.
func (hm *HazardSourceManager) ResumeRun(now time.Time) {
	if hm.state != RunStatePaused {
		hm.logger.Warn("ResumeRun ignored in state " + hm.state.String())
		return
	}
	hm.pressure.ShiftAnchors(now.Sub(hm.pausedAt))
	for _, s := range hm.sources {
		s.Enabled = true
		s.CollisionEnabled = true
	}
	hm.state = RunStateRunning
}

// EndRun destroys all sources and zeroes pressure and burst state.
// Idempotent: calling it on a stopped manager is safe.
func (hm *HazardSourceManager) EndRun(now time.Time) {
	if hm.state == RunStateStopped {
		return
	}
	count := len(hm.sources)
	hm.clearSources()
	hm.pressure.Reset()
	hm.state = RunStateStopped

	if hm.eventLog != nil {
		hm.eventLog.Append(events.Event{
			ID:         events.GenerateEventID(),
			Timestamp:  now,
			Type:       events.EventTypeSourcesCleared,
			Origin:     "SYSTEM_HAZARD",
			Payload:    map[string]int{"destroyed": count},
			RunID:      hm.runID,
			RunSeconds: hm.elapsed,
		})
	}
}

// SetTotalEmissionRate divides the total evenly across the active managed
// sources and applies it immediately. While bursting, each per-source
// rate carries the burst multiplier on top.
func (hm *HazardSourceManager) SetTotalEmissionRate(rate float64) {
	if hm.state != RunStateRunning && hm.state != RunStatePaused {
		hm.logger.Warn(fmt.Sprintf("Rate-set %.2f ignored in state %s", rate, hm.state.String()))
		return
	}
	hm.totalRate = rate
	hm.applyBudget()
}

// OnParticleBlocked feeds player counter-play into the pressure
// accumulator. Only a running, non-bursting manager builds pressure.
func (hm *HazardSourceManager) OnParticleBlocked(count int) {
	if hm.state != RunStateRunning || hm.pressure.Bursting() {
		return
	}
	hm.pressure.Accumulate(count)
}

// Tick evaluates milestone spawns and the burst cycle. Called at the
// fixed tick cadence while a run is active; elapsedSeconds comes from
// the difficulty controller, the single owner of run time.
func (hm *HazardSourceManager) Tick(now time.Time, elapsedSeconds float64) {
	if hm.state != RunStateRunning {
		return
	}
	hm.elapsed = elapsedSeconds

	hm.checkMilestones(now, elapsedSeconds)

	if hm.pressure.BurstExpired(now) {
		hm.pressure.EndBurst()
		hm.applyBudget()
		hm.appendBurstEvent(now, events.EventTypeBurstEnded, nil)
		hm.logger.Event("BURST_ENDED", "SYSTEM_HAZARD", fmt.Sprintf("Rates reverted at t=%.1fs", elapsedSeconds))
		return
	}

	if hm.pressure.ShouldBurst(now) {
		hm.triggerBurst(now)
	}
}

// ActiveSourceCount returns the number of current sources.
func (hm *HazardSourceManager) ActiveSourceCount() int {
	return len(hm.sources)
}

// Sources returns a copy of the source list for telemetry.
func (hm *HazardSourceManager) Sources() []hazard.Source {
	out := make([]hazard.Source, 0, len(hm.sources))
	for _, s := range hm.sources {
		out = append(out, *s)
	}
	return out
}

// PressurePercent returns pressure relative to the burst threshold.
func (hm *HazardSourceManager) PressurePercent() float64 {
	return hm.pressure.Percent()
}

// BurstActive reports whether a burst is in progress.
func (hm *HazardSourceManager) BurstActive() bool {
	return hm.pressure.Bursting()
}

// State returns the manager lifecycle state.
func (hm *HazardSourceManager) State() RunState {
	return hm.state
}

// checkMilestones spawns additional sources once elapsed time passes each
// configured milestone, up to MaxSources. Exceeding capacity declines
// silently rather than erroring.
func (hm *HazardSourceManager) checkMilestones(now time.Time, elapsedSeconds float64) {
	target := 1
	for _, m := range hm.cfg.SourceMilestones {
		if elapsedSeconds >= m {
			target++
		}
	}
	if target > hm.cfg.MaxSources {
		target = hm.cfg.MaxSources
	}

	changed := false
	for len(hm.sources) < target {
		pos := hazard.PlacePosition(hm.rng, hm.cfg.BasePosition, hm.sources,
			hm.cfg.SpawnRadius, hm.cfg.MinSourceSpacing, len(hm.sources))
		s := hm.spawnSource(pos)
		s.Enabled = true
		s.CollisionEnabled = true
		hm.recordSpawn(now, s)
		changed = true
		hm.logger.Event("MILESTONE_SPAWN", "SYSTEM_HAZARD",
			fmt.Sprintf("%s at t=%.1fs, %d active", s.ID, elapsedSeconds, len(hm.sources)))
	}
	if changed {
		hm.applyBudget()
	}
}

// triggerBurst starts the burst cycle: impulse request outward, burst
// flag set, pressure zeroed, budget re-applied with the multiplier.
func (hm *HazardSourceManager) triggerBurst(now time.Time) {
	hm.pressure.StartBurst(now)
	hm.applyBudget()

	req := ImpulseRequest{
		Origin:          hm.cfg.BasePosition,
		Radius:          hm.cfg.BurstImpulseRadius,
		Strength:        hm.cfg.BurstImpulseStrength,
		MaxBodies:       hm.cfg.BurstMaxBodies,
		FalloffExponent: hm.cfg.BurstFalloffExponent,
	}
	if hm.impulseSink != nil {
		hm.impulseSink.ApplyBurstImpulse(req)
	}

	hm.appendBurstEvent(now, events.EventTypeBurstStarted, nil)
	if hm.eventLog != nil {
		hm.eventLog.Append(events.Event{
			ID:         events.GenerateEventID(),
			Timestamp:  now,
			Type:       events.EventTypeImpulseRequested,
			Origin:     "SYSTEM_HAZARD",
			Payload:    req,
			RunID:      hm.runID,
			RunSeconds: hm.elapsed,
		})
	}
	metrics.Get().RecordBurst()
	hm.logger.Event("BURST_STARTED", "SYSTEM_HAZARD",
		fmt.Sprintf("Duration %.1fs, multiplier x%.2f", hm.cfg.BurstDuration, hm.cfg.BurstMultiplier))
}

// applyBudget recomputes per-source rates from the current total. With
// zero active sources this is a no-op, never a division.
func (hm *HazardSourceManager) applyBudget() {
	per, ok := hm.budgeter.PerSource(hm.totalRate, len(hm.sources))
	if !ok {
		hm.logger.Warn("Budget redistribution skipped: no active sources")
		return
	}
	if hm.pressure.Bursting() {
		per *= hm.cfg.BurstMultiplier
	}
	for _, s := range hm.sources {
		s.CurrentRate = per
	}
}

func (hm *HazardSourceManager) spawnSource(pos hazard.Vec2) *hazard.Source {
	hm.nextSourceID++
	s := hazard.NewSource(fmt.Sprintf("SRC-%03d", hm.nextSourceID), pos)
	hm.sources = append(hm.sources, s)
	metrics.Get().RecordSourceSpawn()
	return s
}

func (hm *HazardSourceManager) clearSources() {
	hm.sources = hm.sources[:0]
}

func (hm *HazardSourceManager) recordSpawn(now time.Time, s *hazard.Source) {
	if hm.eventLog == nil {
		return
	}
	hm.eventLog.Append(events.Event{
		ID:         events.GenerateEventID(),
		Timestamp:  now,
		Type:       events.EventTypeSourceSpawned,
		Origin:     "SYSTEM_HAZARD",
		TargetID:   s.ID,
		Payload:    s.Position,
		RunID:      hm.runID,
		RunSeconds: hm.elapsed,
	})
}

func (hm *HazardSourceManager) appendBurstEvent(now time.Time, t events.EventType, payload interface{}) {
	if hm.eventLog == nil {
		return
	}
	hm.eventLog.Append(events.Event{
		ID:         events.GenerateEventID(),
		Timestamp:  now,
		Type:       t,
		Origin:     "SYSTEM_HAZARD",
		Payload:    payload,
		RunID:      hm.runID,
		RunSeconds: hm.elapsed,
	})
}
