package engine

import (
	"fmt"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/domain/curve"
	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
)

// RateListener consumes the emission rate and multiplier produced once
// per due tick. The hazard manager is the only consumer in practice.
type RateListener func(rate, multiplier float64)

// rubberBandMin and rubberBandMax bound the performance correction.
// The adjustment may soften or sharpen the curve, never dominate it.
const (
	rubberBandMin = 0.5
	rubberBandMax = 1.5
)

// DifficultySystem computes the time-based escalation curve and corrects
// it with a performance-driven rubber band. It is a function of elapsed
// run time plus two counters; it ticks on its own fixed cadence and is
// indifferent to how often the frame loop calls it.
type DifficultySystem struct {
	cfg      Config
	logger   *logger.Logger
	eventLog *events.EventLog

	emissionCurve   curve.Curve
	multiplierCurve curve.Curve

	runStart   time.Time
	lastTickAt time.Time
	paused     bool
	pausedAt   time.Time

	elapsed           float64
	currentRate       float64
	currentMultiplier float64
	rubberRaw         float64
	rubberSmoothed    float64

	windowStart     time.Time
	blockedInWindow int
	totalInWindow   int

	runID     string
	listeners []RateListener
}

// NewDifficultySystem builds the controller from the session config.
func NewDifficultySystem(cfg Config, eventLog *events.EventLog, log *logger.Logger) (*DifficultySystem, error) {
	emission := curve.Curve{
		T0: 0, V0: cfg.BaseEmissionRate,
		T1: cfg.CurveDurationSeconds, V1: cfg.MaxCurveRate,
		Easing: curve.EaseSmoothStep,
	}
	multiplier := curve.Curve{
		T0: 0, V0: cfg.MultiplierStart,
		T1: cfg.CurveDurationSeconds, V1: cfg.MultiplierEnd,
		Easing: curve.EaseSmoothStep,
	}
	if !emission.Valid() || !multiplier.Valid() {
		return nil, fmt.Errorf("difficulty curves missing a usable endpoint (duration=%v)", cfg.CurveDurationSeconds)
	}

	ds := &DifficultySystem{
		cfg:             cfg,
		logger:          log,
		eventLog:        eventLog,
		emissionCurve:   emission,
		multiplierCurve: multiplier,
	}
	ds.zero(time.Time{}, "")
	return ds, nil
}

// SubscribeRates registers a consumer for the per-tick rate output.
func (ds *DifficultySystem) SubscribeRates(l RateListener) {
	ds.listeners = append(ds.listeners, l)
}

// Reset zeroes elapsed time, counters, and smoothing state for a new run.
func (ds *DifficultySystem) Reset(now time.Time, runID string) {
	ds.zero(now, runID)
	ds.logger.Info("Difficulty controller reset for " + runID)
}

func (ds *DifficultySystem) zero(now time.Time, runID string) {
	ds.runStart = now
	ds.lastTickAt = now
	ds.windowStart = now
	ds.paused = false
	ds.elapsed = 0
	ds.currentRate = ds.cfg.BaseEmissionRate
	ds.currentMultiplier = ds.cfg.MultiplierStart
	ds.rubberRaw = 1.0
	ds.rubberSmoothed = 1.0
	ds.blockedInWindow = 0
	ds.totalInWindow = 0
	ds.runID = runID
}

// Pause freezes the controller. Elapsed time, counters, and smoothing
// state are preserved verbatim until Resume.
func (ds *DifficultySystem) Pause(now time.Time) {
	if ds.paused {
		return
	}
	ds.paused = true
	ds.pausedAt = now
}

// Resume shifts every time anchor forward by the paused span, so elapsed
// time and the performance window exclude the pause.
func (ds *DifficultySystem) Resume(now time.Time) {
	if !ds.paused {
		return
	}
	pausedFor := now.Sub(ds.pausedAt)
	ds.runStart = ds.runStart.Add(pausedFor)
	ds.lastTickAt = ds.lastTickAt.Add(pausedFor)
	ds.windowStart = ds.windowStart.Add(pausedFor)
	ds.paused = false
}

// OnBlocked accumulates blocked particles into the current window.
// Cheap: callable arbitrarily often from the collision collaborator.
func (ds *DifficultySystem) OnBlocked(count int) {
	if ds.paused {
		return
	}
	ds.blockedInWindow += count
	ds.totalInWindow += count
}

// OnEscaped accumulates escaped particles into the current window.
func (ds *DifficultySystem) OnEscaped(count int) {
	if ds.paused {
		return
	}
	ds.totalInWindow += count
}

// TickIfDue recomputes the difficulty state if at least one tick interval
// elapsed since the last recompute. This is the only place the emission
// rate and multiplier change.
func (ds *DifficultySystem) TickIfDue(now time.Time) bool {
	if ds.paused {
		return false
	}
	tickDelta := now.Sub(ds.lastTickAt).Seconds()
	if tickDelta < ds.cfg.TickInterval {
		return false
	}
	ds.lastTickAt = now

	ds.elapsed = now.Sub(ds.runStart).Seconds()
	curveEmission := ds.emissionCurve.Evaluate(ds.elapsed)
	ds.currentMultiplier = ds.multiplierCurve.Evaluate(ds.elapsed)

	ds.maybeRecomputeRubberBand(now)

	if ds.cfg.RubberBandEnabled {
		alpha := tickDelta / ds.cfg.SmoothTimeConstant
		if alpha > 1 {
			alpha = 1
		}
		ds.rubberSmoothed += (ds.rubberRaw - ds.rubberSmoothed) * alpha
		ds.rubberSmoothed = clamp(ds.rubberSmoothed, rubberBandMin, rubberBandMax)
		curveEmission *= ds.rubberSmoothed
	}

	newRate := clamp(curveEmission, ds.cfg.BaseEmissionRate, ds.cfg.MaxEmissionRate)
	rateChanged := abs(newRate-ds.currentRate) > 1e-9
	ds.currentRate = newRate

	for _, l := range ds.listeners {
		l(ds.currentRate, ds.currentMultiplier)
	}

	if rateChanged && ds.eventLog != nil {
		ds.eventLog.Append(events.Event{
			ID:        events.GenerateEventID(),
			Timestamp: now,
			Type:      events.EventTypeRateChanged,
			Origin:    "SYSTEM_DIFFICULTY",
			Payload: map[string]float64{
				"rate":        ds.currentRate,
				"multiplier":  ds.currentMultiplier,
				"rubber_band": ds.rubberSmoothed,
			},
			RunID:      ds.runID,
			RunSeconds: ds.elapsed,
		})
	}
	return true
}

// maybeRecomputeRubberBand closes the performance window every
// WindowDuration seconds, independent of the tick cadence. A window with
// no samples keeps the prior value: no activity is not struggling.
func (ds *DifficultySystem) maybeRecomputeRubberBand(now time.Time) {
	if now.Sub(ds.windowStart).Seconds() < ds.cfg.WindowDuration {
		return
	}

	if ds.totalInWindow > 0 {
		blockPct := float64(ds.blockedInWindow) / float64(ds.totalInWindow)
		delta := blockPct - ds.cfg.TargetBlockPct
		ds.rubberRaw = clamp(1-delta*ds.cfg.RubberBandStrength, rubberBandMin, rubberBandMax)

		if ds.eventLog != nil {
			ds.eventLog.Append(events.Event{
				ID:        events.GenerateEventID(),
				Timestamp: now,
				Type:      events.EventTypeRubberBandUpdated,
				Origin:    "SYSTEM_DIFFICULTY",
				Payload: map[string]float64{
					"block_pct": blockPct,
					"raw":       ds.rubberRaw,
					"blocked":   float64(ds.blockedInWindow),
					"total":     float64(ds.totalInWindow),
				},
				RunID:      ds.runID,
				RunSeconds: ds.elapsed,
			})
		}
	}

	ds.blockedInWindow = 0
	ds.totalInWindow = 0
	ds.windowStart = now
}

// CurrentEmissionRate returns the last computed total emission rate.
func (ds *DifficultySystem) CurrentEmissionRate() float64 {
	return ds.currentRate
}

// CurrentMultiplier returns the last computed difficulty multiplier.
func (ds *DifficultySystem) CurrentMultiplier() float64 {
	return ds.currentMultiplier
}

// RubberBandAdjustment returns the smoothed correction factor.
func (ds *DifficultySystem) RubberBandAdjustment() float64 {
	return ds.rubberSmoothed
}

// ElapsedSeconds returns elapsed run time, excluding paused spans.
func (ds *DifficultySystem) ElapsedSeconds() float64 {
	return ds.elapsed
}

// ElapsedMinutes returns elapsed run time in minutes.
func (ds *DifficultySystem) ElapsedMinutes() float64 {
	return ds.elapsed / 60
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
