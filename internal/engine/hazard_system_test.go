package engine

import (
	"math"
	"testing"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
)

func newTestHazards(t *testing.T) (*HazardSourceManager, *events.EventLog, time.Time) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 7 // deterministic placement
	el := events.NewEventLog(nil)
	hm := NewHazardSourceManager(cfg, el, logger.NewLogger())
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return hm, el, t0
}

func TestMenuSpawnsAmbientSource(t *testing.T) {
	hm, _, _ := newTestHazards(t)

	hm.EnterMenu()

	sources := hm.Sources()
	if len(sources) != 1 {
		t.Fatalf("Expected exactly one ambient source, got %d", len(sources))
	}
	if !sources[0].Enabled || sources[0].CollisionEnabled {
		t.Errorf("Expected ambient source emitting with collisions off")
	}
	if sources[0].CurrentRate != 1.5 {
		t.Errorf("Expected ambient rate 1.5, got %v", sources[0].CurrentRate)
	}
}

func TestStartRunReplacesAmbientSource(t *testing.T) {
	hm, _, t0 := newTestHazards(t)
	hm.EnterMenu()

	hm.StartRun(t0, "RUN-TEST")

	sources := hm.Sources()
	if len(sources) != 1 {
		t.Fatalf("Expected one managed source after run start, got %d", len(sources))
	}
	if !sources[0].Enabled || !sources[0].CollisionEnabled {
		t.Errorf("Expected managed source emitting with collisions on")
	}
	if sources[0].CurrentRate != 5 {
		t.Errorf("Expected first source to carry the base rate 5, got %v", sources[0].CurrentRate)
	}
	if hm.State() != RunStateRunning {
		t.Errorf("Expected Running state, got %s", hm.State())
	}
}

func TestBudgetRedistribution(t *testing.T) {
	hm, _, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")

	hm.SetTotalEmissionRate(30)
	if rate := hm.Sources()[0].CurrentRate; rate != 30 {
		t.Fatalf("Expected single source to carry 30, got %v", rate)
	}

	// The first milestone doubles the source count; the same total
	// splits evenly.
	hm.Tick(t0.Add(120*time.Second), 120)
	sources := hm.Sources()
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources at the 120s milestone, got %d", len(sources))
	}
	for _, s := range sources {
		if math.Abs(s.CurrentRate-15) > 1e-9 {
			t.Errorf("Expected each of 2 sources at 15, got %v", s.CurrentRate)
		}
	}
}

func TestMilestoneBoundary(t *testing.T) {
	hm, _, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")

	hm.Tick(t0.Add(119*time.Second), 119.9)
	if got := hm.ActiveSourceCount(); got != 1 {
		t.Errorf("Expected 1 source just before the milestone, got %d", got)
	}

	hm.Tick(t0.Add(120*time.Second), 120)
	if got := hm.ActiveSourceCount(); got != 2 {
		t.Errorf("Expected 2 sources at exactly 120s, got %d", got)
	}
}

func TestSourceCountNeverExceedsMax(t *testing.T) {
	hm, _, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")

	// Deep into the run both milestones have passed; the cap holds.
	hm.Tick(t0.Add(1000*time.Second), 1000)
	if got := hm.ActiveSourceCount(); got != 3 {
		t.Errorf("Expected source count capped at 3, got %d", got)
	}

	hm.Tick(t0.Add(2000*time.Second), 2000)
	if got := hm.ActiveSourceCount(); got != 3 {
		t.Errorf("Expected cap to keep holding, got %d", got)
	}
}

func TestSourceSpacingHonored(t *testing.T) {
	hm, _, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")
	hm.Tick(t0.Add(1000*time.Second), 1000)

	sources := hm.Sources()
	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			d := sources[i].Position.DistanceTo(sources[j].Position)
			if d < 6 {
				t.Errorf("Sources %s and %s only %.2f apart, want >= 6",
					sources[i].ID, sources[j].ID, d)
			}
		}
	}
}

func TestBurstCycle(t *testing.T) {
	hm, el, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")
	hm.SetTotalEmissionRate(10)

	// 200 blocked particles at 0.5 pressure each reach the threshold.
	hm.OnParticleBlocked(200)
	hm.Tick(t0.Add(time.Second), 1)

	if !hm.BurstActive() {
		t.Fatalf("Expected burst active after pressure crossed the threshold")
	}
	// During the burst each source rate carries the 2.5x multiplier.
	if rate := hm.Sources()[0].CurrentRate; math.Abs(rate-25) > 1e-9 {
		t.Errorf("Expected burst rate 25 (10 x 2.5), got %v", rate)
	}

	// Blocked particles during the burst build no pressure.
	hm.OnParticleBlocked(100)
	if hm.PressurePercent() != 0 {
		t.Errorf("Expected pressure frozen at 0 during burst, got %v", hm.PressurePercent())
	}

	// Past the 5s duration the burst ends and rates revert.
	hm.Tick(t0.Add(7*time.Second), 7)
	if hm.BurstActive() {
		t.Errorf("Expected burst over after its duration")
	}
	if rate := hm.Sources()[0].CurrentRate; math.Abs(rate-10) > 1e-9 {
		t.Errorf("Expected rate reverted to 10, got %v", rate)
	}

	// The cycle leaves a full audit trail in the ledger.
	if len(el.GetByType(events.EventTypeBurstStarted)) != 1 {
		t.Errorf("Expected one BURST_STARTED event")
	}
	if len(el.GetByType(events.EventTypeImpulseRequested)) != 1 {
		t.Errorf("Expected one IMPULSE_REQUESTED event")
	}
	if len(el.GetByType(events.EventTypeBurstEnded)) != 1 {
		t.Errorf("Expected one BURST_ENDED event")
	}
}

func TestBurstImpulseDelivered(t *testing.T) {
	hm, _, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")

	var got []ImpulseRequest
	hm.SetImpulseSink(impulseSinkFunc(func(req ImpulseRequest) {
		got = append(got, req)
	}))

	hm.OnParticleBlocked(200)
	hm.Tick(t0.Add(time.Second), 1)

	if len(got) != 1 {
		t.Fatalf("Expected one impulse request, got %d", len(got))
	}
	if got[0].Radius != 12 || got[0].MaxBodies != 24 {
		t.Errorf("Expected configured impulse parameters, got %+v", got[0])
	}
}

// impulseSinkFunc adapts a func to the ImpulseSink interface.
type impulseSinkFunc func(req ImpulseRequest)

func (f impulseSinkFunc) ApplyBurstImpulse(req ImpulseRequest) { f(req) }

func TestPauseAndResumePreserveSources(t *testing.T) {
	hm, _, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")
	hm.SetTotalEmissionRate(20)
	hm.OnParticleBlocked(100) // half the threshold

	hm.PauseRun(t0.Add(10 * time.Second))

	for _, s := range hm.Sources() {
		if s.Enabled || s.CollisionEnabled {
			t.Errorf("Expected source %s fully disabled while paused", s.ID)
		}
	}
	if hm.PressurePercent() != 0.5 {
		t.Errorf("Expected pressure preserved at 50%% through pause, got %v", hm.PressurePercent())
	}

	hm.ResumeRun(t0.Add(40 * time.Second))

	for _, s := range hm.Sources() {
		if !s.Enabled || !s.CollisionEnabled {
			t.Errorf("Expected source %s re-enabled after resume", s.ID)
		}
	}
	if hm.State() != RunStateRunning {
		t.Errorf("Expected Running after resume, got %s", hm.State())
	}
}

func TestEndRunIdempotent(t *testing.T) {
	hm, el, t0 := newTestHazards(t)
	hm.StartRun(t0, "RUN-TEST")

	hm.EndRun(t0.Add(time.Minute))
	hm.EndRun(t0.Add(2 * time.Minute)) // second call must be a no-op

	if hm.ActiveSourceCount() != 0 {
		t.Errorf("Expected all sources destroyed, got %d", hm.ActiveSourceCount())
	}
	if hm.State() != RunStateStopped {
		t.Errorf("Expected Stopped state, got %s", hm.State())
	}
	if got := len(el.GetByType(events.EventTypeSourcesCleared)); got != 1 {
		t.Errorf("Expected exactly one SOURCES_CLEARED event, got %d", got)
	}
}

func TestRateSetIgnoredOutsideRun(t *testing.T) {
	hm, _, _ := newTestHazards(t)
	hm.EnterMenu()

	// The ambient source must not pick up run-state rates.
	hm.SetTotalEmissionRate(50)
	if rate := hm.Sources()[0].CurrentRate; rate != 1.5 {
		t.Errorf("Expected ambient rate untouched at 1.5, got %v", rate)
	}
}
