package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/domain/flow"
	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/metrics"
)

// Collaborators is the outbound surface of the core: fire-and-forget
// notifications tied to phase entry and exit. The core never queries a
// collaborator.
type Collaborators interface {
	SetMovementEnabled(enabled bool)
	SetOverlayVisible(overlay string, visible bool)
	SetAmbientEffects(enabled bool)
	ApplyBurstImpulse(req ImpulseRequest)
}

// NopCollaborators is the documented fallback when nothing is wired:
// every notification is absorbed silently.
type NopCollaborators struct{}

func (NopCollaborators) SetMovementEnabled(bool)              {}
func (NopCollaborators) SetOverlayVisible(string, bool)       {}
func (NopCollaborators) SetAmbientEffects(bool)               {}
func (NopCollaborators) ApplyBurstImpulse(req ImpulseRequest) {}

// Overlay names issued to the display collaborator.
const (
	OverlayPause   = "pause"
	OverlayResults = "results"
)

// Telemetry is a pure-read snapshot for a display layer polling at its
// own cadence.
type Telemetry struct {
	Phase           flow.Phase `json:"phase"`
	RunID           string     `json:"run_id"`
	EmissionRate    float64    `json:"emission_rate"`
	Multiplier      float64    `json:"multiplier"`
	RubberBand      float64    `json:"rubber_band"`
	ElapsedMinutes  float64    `json:"elapsed_minutes"`
	ActiveSources   int        `json:"active_sources"`
	PressurePercent float64    `json:"pressure_percent"`
	BurstActive     bool       `json:"burst_active"`
}

// Session is the single owner of one core instance of each component.
// There are no package-level singletons: resetting between runs is a
// lifecycle call on this object, and destroying the session destroys
// the whole core.
//
// Every public method takes the session mutex: the ticker, websocket read
// pumps and HTTP handlers all call in from their own goroutines, and the
// subsystems underneath are single-threaded.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	logger   *logger.Logger
	eventLog *events.EventLog

	flow       *FlowStateMachine
	difficulty *DifficultySystem
	hazards    *HazardSourceManager

	collaborators Collaborators
	clock         func() time.Time
	runID         string
}

// NewSession wires the three subsystems together. Configuration errors
// (a forbidden phase name, a missing curve endpoint) surface here and
// must abort startup.
func NewSession(cfg Config, eventLog *events.EventLog, log *logger.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fsm, err := NewFlowStateMachine(eventLog, log)
	if err != nil {
		return nil, err
	}
	difficulty, err := NewDifficultySystem(cfg, eventLog, log)
	if err != nil {
		return nil, err
	}
	hazards := NewHazardSourceManager(cfg, eventLog, log)

	s := &Session{
		cfg:           cfg,
		logger:        log,
		eventLog:      eventLog,
		flow:          fsm,
		difficulty:    difficulty,
		hazards:       hazards,
		collaborators: NopCollaborators{},
		clock:         time.Now,
	}

	// The emission rate is produced once per difficulty tick and consumed
	// exactly once here; no other writer exists.
	difficulty.SubscribeRates(func(rate, multiplier float64) {
		hazards.SetTotalEmissionRate(rate)
	})
	fsm.Subscribe(s.onPhaseChanged)
	fsm.SetRunIDSource(func() string { return s.runID })

	hazards.EnterMenu()
	return s, nil
}

// SetCollaborators wires the outbound notification surface.
func (s *Session) SetCollaborators(c Collaborators) {
	if c == nil {
		c = NopCollaborators{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collaborators = c
	s.hazards.SetImpulseSink(c)
}

// SetClock overrides the time source. Scenario harnesses use this to
// drive a run deterministically.
func (s *Session) SetClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
	s.flow.SetClock(clock)
}

// Update is the per-frame entry point. Cheap when no tick is due; all
// rate recomputation and burst evaluation happens on the fixed cadence
// inside the difficulty controller.
func (s *Session) Update(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow.Current() != flow.PhaseRunning {
		return
	}
	if s.difficulty.TickIfDue(now) {
		s.hazards.Tick(now, s.difficulty.ElapsedSeconds())
	}
}

// OnParticleBlocked routes a blocked-particle count from the collision
// collaborator into both consumers.
func (s *Session) OnParticleBlocked(count int) {
	if count <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.difficulty.OnBlocked(count)
	s.hazards.OnParticleBlocked(count)
	metrics.Get().RecordParticles(true, int64(count))
}

// OnParticleEscaped routes an escaped-particle count into the
// performance window.
func (s *Session) OnParticleEscaped(count int) {
	if count <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.difficulty.OnEscaped(count)
	metrics.Get().RecordParticles(false, int64(count))
}

// BeginRun walks Menu → Starting → Running. Returns false if the current
// phase does not allow starting a run.
func (s *Session) BeginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.flow.TransitionTo(flow.PhaseStarting) {
		return false
	}
	return s.flow.TransitionTo(flow.PhaseRunning)
}

// PauseRun and ResumeRun toggle the pause phase.
func (s *Session) PauseRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.TransitionTo(flow.PhasePaused)
}

func (s *Session) ResumeRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow.Current() != flow.PhasePaused {
		return false
	}
	return s.flow.TransitionTo(flow.PhaseRunning)
}

// FinishRun walks the terminal chain Ending → Cleaning → ShowingResults.
// Cleanup is instantaneous in the headless core.
func (s *Session) FinishRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.flow.TransitionTo(flow.PhaseEnding) {
		return false
	}
	s.flow.TransitionTo(flow.PhaseCleaning)
	return s.flow.TransitionTo(flow.PhaseShowingResults)
}

// BackToMenu leaves the results screen.
func (s *Session) BackToMenu() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.TransitionTo(flow.PhaseMenu)
}

// CurrentPhase returns the authoritative phase.
func (s *Session) CurrentPhase() flow.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Current()
}

// RunID returns the identifier of the current (or last) run.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Telemetry returns the read-only snapshot for display layers.
func (s *Session) Telemetry() Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Telemetry{
		Phase:           s.flow.Current(),
		RunID:           s.runID,
		EmissionRate:    s.difficulty.CurrentEmissionRate(),
		Multiplier:      s.difficulty.CurrentMultiplier(),
		RubberBand:      s.difficulty.RubberBandAdjustment(),
		ElapsedMinutes:  s.difficulty.ElapsedMinutes(),
		ActiveSources:   s.hazards.ActiveSourceCount(),
		PressurePercent: s.hazards.PressurePercent(),
		BurstActive:     s.hazards.BurstActive(),
	}
}

// onPhaseChanged maps flow phases onto subsystem lifecycles and outbound
// collaborator notifications. This runs synchronously inside the state
// machine's notification step.
func (s *Session) onPhaseChanged(old, next flow.Phase) {
	now := s.clock()

	if old == flow.PhaseMenu {
		s.collaborators.SetAmbientEffects(false)
	}

	switch next {
	case flow.PhaseStarting:
		s.startRun(now)

	case flow.PhaseRunning:
		if old == flow.PhasePaused {
			s.difficulty.Resume(now)
			s.hazards.ResumeRun(now)
			s.collaborators.SetOverlayVisible(OverlayPause, false)
		}
		s.collaborators.SetMovementEnabled(true)

	case flow.PhasePaused:
		s.difficulty.Pause(now)
		s.hazards.PauseRun(now)
		s.collaborators.SetMovementEnabled(false)
		s.collaborators.SetOverlayVisible(OverlayPause, true)

	case flow.PhaseEnding:
		s.endRun(now)
		s.collaborators.SetMovementEnabled(false)

	case flow.PhaseCleaning:
		// Sources are already gone; external layers despawn visuals here.

	case flow.PhaseShowingResults:
		s.collaborators.SetOverlayVisible(OverlayResults, true)

	case flow.PhaseMenu:
		s.collaborators.SetOverlayVisible(OverlayResults, false)
		s.hazards.EnterMenu()
		s.collaborators.SetAmbientEffects(true)
	}
}

func (s *Session) startRun(now time.Time) {
	s.runID = events.GenerateRunID()
	s.difficulty.Reset(now, s.runID)
	s.hazards.StartRun(now, s.runID)
	metrics.Get().RecordRunStart()

	s.eventLog.Append(events.Event{
		ID:        events.GenerateEventID(),
		Timestamp: now,
		Type:      events.EventTypeRunStarted,
		Origin:    "SYSTEM_FLOW",
		Payload:   map[string]float64{"base_rate": s.cfg.BaseEmissionRate},
		RunID:     s.runID,
	})
	s.logger.Event("RUN_STARTED", "SYSTEM_FLOW", s.runID)
}

func (s *Session) endRun(now time.Time) {
	s.hazards.EndRun(now)

	s.eventLog.Append(events.Event{
		ID:         events.GenerateEventID(),
		Timestamp:  now,
		Type:       events.EventTypeRunEnded,
		Origin:     "SYSTEM_FLOW",
		Payload:    map[string]float64{"final_rate": s.difficulty.CurrentEmissionRate()},
		RunID:      s.runID,
		RunSeconds: s.difficulty.ElapsedSeconds(),
	})
	s.logger.Event("RUN_ENDED", "SYSTEM_FLOW",
		fmt.Sprintf("%s after %.1f minutes", s.runID, s.difficulty.ElapsedMinutes()))
}
