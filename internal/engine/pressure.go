package engine

import "time"

// PressureAccumulator tracks the pressure built up by blocked particles
// and decides when a scripted burst starts and stops. It holds no opinion
// about what a burst does; the hazard manager owns that.
type PressureAccumulator struct {
	buildupRate   float64
	threshold     float64
	cooldown      time.Duration
	burstDuration time.Duration

	current     float64
	bursting    bool
	burstEndsAt time.Time
	lastBurstAt time.Time
}

// NewPressureAccumulator creates the accumulator from the session config.
func NewPressureAccumulator(cfg Config) *PressureAccumulator {
	return &PressureAccumulator{
		buildupRate:   cfg.PressureBuildupRate,
		threshold:     cfg.PressureThreshold,
		cooldown:      secondsToDuration(cfg.BurstCooldown),
		burstDuration: secondsToDuration(cfg.BurstDuration),
	}
}

// Accumulate adds pressure for count blocked particles. The caller gates
// this on run state; the accumulator itself never refuses input.
func (pa *PressureAccumulator) Accumulate(count int) {
	pa.current += float64(count) * pa.buildupRate
}

// ShouldBurst reports whether a burst must trigger now: threshold reached,
// not already bursting, and the cooldown since the last trigger elapsed.
// A run with no prior burst has no cooldown to wait out.
func (pa *PressureAccumulator) ShouldBurst(now time.Time) bool {
	if pa.bursting || pa.current < pa.threshold {
		return false
	}
	if pa.lastBurstAt.IsZero() {
		return true
	}
	return now.Sub(pa.lastBurstAt) >= pa.cooldown
}

// StartBurst marks the burst active and zeroes the accumulated pressure.
func (pa *PressureAccumulator) StartBurst(now time.Time) {
	pa.bursting = true
	pa.burstEndsAt = now.Add(pa.burstDuration)
	pa.lastBurstAt = now
	pa.current = 0
}

// BurstExpired reports whether an active burst has run its course.
func (pa *PressureAccumulator) BurstExpired(now time.Time) bool {
	return pa.bursting && !now.Before(pa.burstEndsAt)
}

// EndBurst clears the bursting flag. The cooldown anchor stays.
func (pa *PressureAccumulator) EndBurst() {
	pa.bursting = false
}

// Reset zeroes all pressure and burst state. Used on run start and stop.
func (pa *PressureAccumulator) Reset() {
	pa.current = 0
	pa.bursting = false
	pa.burstEndsAt = time.Time{}
	pa.lastBurstAt = time.Time{}
}

// ShiftAnchors moves the burst and cooldown timestamps forward by d.
// Called on resume so a pause freezes in-flight timers instead of
// letting them elapse.
func (pa *PressureAccumulator) ShiftAnchors(d time.Duration) {
	if !pa.burstEndsAt.IsZero() {
		pa.burstEndsAt = pa.burstEndsAt.Add(d)
	}
	if !pa.lastBurstAt.IsZero() {
		pa.lastBurstAt = pa.lastBurstAt.Add(d)
	}
}

// Current returns the raw pressure value.
func (pa *PressureAccumulator) Current() float64 {
	return pa.current
}

// Percent returns pressure as a fraction of the threshold, for telemetry.
func (pa *PressureAccumulator) Percent() float64 {
	if pa.threshold <= 0 {
		return 0
	}
	pct := pa.current / pa.threshold
	if pct > 1 {
		pct = 1
	}
	return pct
}

// Bursting reports whether a burst is active.
func (pa *PressureAccumulator) Bursting() bool {
	return pa.bursting
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
