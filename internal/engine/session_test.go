package engine

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/domain/flow"
	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
)

// recordingCollaborators captures outbound notifications for assertions.
type recordingCollaborators struct {
	movement []bool
	overlays map[string]bool
	ambient  []bool
	impulses []ImpulseRequest
}

func newRecordingCollaborators() *recordingCollaborators {
	return &recordingCollaborators{overlays: make(map[string]bool)}
}

func (r *recordingCollaborators) SetMovementEnabled(enabled bool) {
	r.movement = append(r.movement, enabled)
}

func (r *recordingCollaborators) SetOverlayVisible(overlay string, visible bool) {
	r.overlays[overlay] = visible
}

func (r *recordingCollaborators) SetAmbientEffects(enabled bool) {
	r.ambient = append(r.ambient, enabled)
}

func (r *recordingCollaborators) ApplyBurstImpulse(req ImpulseRequest) {
	r.impulses = append(r.impulses, req)
}

type sessionFixture struct {
	session *Session
	el      *events.EventLog
	rec     *recordingCollaborators
	clock   time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 7
	el := events.NewEventLog(nil)
	session, err := NewSession(cfg, el, logger.NewLogger())
	if err != nil {
		t.Fatalf("Failed to build session: %v", err)
	}

	f := &sessionFixture{
		session: session,
		el:      el,
		rec:     newRecordingCollaborators(),
		clock:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	session.SetCollaborators(f.rec)
	session.SetClock(func() time.Time { return f.clock })
	return f
}

// advance steps the fake clock and pumps the update loop.
func (f *sessionFixture) advance(d time.Duration) {
	step := 500 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		f.clock = f.clock.Add(step)
		f.session.Update(f.clock)
	}
}

func TestSessionStartsInMenu(t *testing.T) {
	f := newSessionFixture(t)

	tel := f.session.Telemetry()
	if tel.Phase != flow.PhaseMenu {
		t.Errorf("Expected fresh session in Menu, got %s", tel.Phase)
	}
	if tel.ActiveSources != 1 {
		t.Errorf("Expected the ambient menu source, got %d sources", tel.ActiveSources)
	}
}

func TestInvalidConfigRefused(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = 0

	_, err := NewSession(cfg, events.NewEventLog(nil), logger.NewLogger())
	if err == nil {
		t.Errorf("Expected session construction to fail on a broken config")
	}
}

func TestBeginRunWiresEverything(t *testing.T) {
	f := newSessionFixture(t)

	if !f.session.BeginRun() {
		t.Fatalf("Expected BeginRun to succeed from Menu")
	}

	tel := f.session.Telemetry()
	if tel.Phase != flow.PhaseRunning {
		t.Errorf("Expected Running, got %s", tel.Phase)
	}
	if tel.RunID == "" {
		t.Errorf("Expected a run ID to be assigned")
	}
	if tel.EmissionRate != 5 {
		t.Errorf("Expected base emission rate 5, got %v", tel.EmissionRate)
	}

	if got := len(f.el.GetByType(events.EventTypeRunStarted)); got != 1 {
		t.Errorf("Expected one RUN_STARTED event, got %d", got)
	}
	// Run start enables player movement.
	if len(f.rec.movement) == 0 || !f.rec.movement[len(f.rec.movement)-1] {
		t.Errorf("Expected movement enabled on run start")
	}
}

func TestBeginRunRejectedMidRun(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()

	if f.session.BeginRun() {
		t.Errorf("Expected BeginRun to be refused while a run is active")
	}
}

func TestUpdateDrivesEscalation(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()

	base := f.session.Telemetry().EmissionRate
	f.advance(60 * time.Second)

	tel := f.session.Telemetry()
	if tel.EmissionRate <= base {
		t.Errorf("Expected rate above base after a minute, got %v", tel.EmissionRate)
	}
	if math.Abs(tel.ElapsedMinutes-1) > 0.02 {
		t.Errorf("Expected ~1 elapsed minute, got %v", tel.ElapsedMinutes)
	}
}

func TestPauseShowsOverlayAndFreezesState(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()
	f.advance(10 * time.Second)

	if !f.session.PauseRun() {
		t.Fatalf("Expected pause to succeed from Running")
	}
	if !f.rec.overlays[OverlayPause] {
		t.Errorf("Expected pause overlay shown")
	}
	if last := f.rec.movement[len(f.rec.movement)-1]; last {
		t.Errorf("Expected movement disabled on pause")
	}

	pausedElapsed := f.session.Telemetry().ElapsedMinutes

	// Wall-clock time passes; run time must not.
	f.clock = f.clock.Add(30 * time.Second)
	f.session.Update(f.clock)
	if got := f.session.Telemetry().ElapsedMinutes; got != pausedElapsed {
		t.Errorf("Expected elapsed frozen at %v, got %v", pausedElapsed, got)
	}

	if !f.session.ResumeRun() {
		t.Fatalf("Expected resume to succeed from Paused")
	}
	if f.rec.overlays[OverlayPause] {
		t.Errorf("Expected pause overlay hidden after resume")
	}

	f.advance(time.Second)
	if got := f.session.Telemetry().ElapsedMinutes; got < pausedElapsed {
		t.Errorf("Expected elapsed to continue from %v, got %v", pausedElapsed, got)
	}
}

func TestFinishRunWalksTerminalChain(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()
	f.advance(5 * time.Second)

	if !f.session.FinishRun() {
		t.Fatalf("Expected FinishRun to succeed from Running")
	}

	tel := f.session.Telemetry()
	if tel.Phase != flow.PhaseShowingResults {
		t.Errorf("Expected ShowingResults, got %s", tel.Phase)
	}
	if tel.ActiveSources != 0 {
		t.Errorf("Expected all sources destroyed, got %d", tel.ActiveSources)
	}
	if !f.rec.overlays[OverlayResults] {
		t.Errorf("Expected results overlay shown")
	}
	if got := len(f.el.GetByType(events.EventTypeRunEnded)); got != 1 {
		t.Errorf("Expected one RUN_ENDED event, got %d", got)
	}
}

func TestBackToMenuRestoresAmbient(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()
	f.session.FinishRun()

	if !f.session.BackToMenu() {
		t.Fatalf("Expected BackToMenu to succeed from ShowingResults")
	}

	tel := f.session.Telemetry()
	if tel.Phase != flow.PhaseMenu {
		t.Errorf("Expected Menu, got %s", tel.Phase)
	}
	if tel.ActiveSources != 1 {
		t.Errorf("Expected the ambient source back, got %d", tel.ActiveSources)
	}
	if f.rec.overlays[OverlayResults] {
		t.Errorf("Expected results overlay hidden")
	}
}

func TestParticleFeedReachesBothConsumers(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()

	// Enough blocking to cross the pressure threshold on the next tick.
	f.session.OnParticleBlocked(200)
	f.advance(time.Second)

	tel := f.session.Telemetry()
	if !tel.BurstActive {
		t.Errorf("Expected the blocked-particle feed to trigger a burst")
	}
	if len(f.rec.impulses) != 1 {
		t.Errorf("Expected one burst impulse at the collaborator, got %d", len(f.rec.impulses))
	}
}

func TestNonPositiveCountsIgnored(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()

	f.session.OnParticleBlocked(0)
	f.session.OnParticleBlocked(-5)
	f.session.OnParticleEscaped(-1)
	f.advance(time.Second)

	if f.session.Telemetry().PressurePercent != 0 {
		t.Errorf("Expected no pressure from non-positive counts")
	}
}

// Mirrors the shipped wiring: the ticker drives Update on its own
// goroutine while websocket read pumps report particles and HTTP
// handlers read telemetry. Run under the race detector.
func TestConcurrentCallersAreSerialized(t *testing.T) {
	f := newSessionFixture(t)
	f.session.BeginRun()
	base := f.clock

	var wg sync.WaitGroup
	start := make(chan struct{})

	wg.Add(3)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 200; i++ {
			f.session.Update(base.Add(time.Duration(i) * 50 * time.Millisecond))
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 200; i++ {
			f.session.OnParticleBlocked(1)
			f.session.OnParticleEscaped(1)
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 200; i++ {
			_ = f.session.Telemetry()
		}
	}()

	close(start)
	wg.Wait()

	if got := f.session.Telemetry().Phase; got != flow.PhaseRunning {
		t.Errorf("Expected the run to survive concurrent callers, got phase %s", got)
	}
}
