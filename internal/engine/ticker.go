package engine

import (
	"context"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/metrics"
)

// FrameInterval is the cadence of the outer update loop. It only does
// cheap bookkeeping; the real recomputation happens inside the session
// on its own fixed tick.
const FrameInterval = 50 * time.Millisecond

// Ticker drives the session's update loop in real time. It does NOT know
// about phases or rates, only time progression.
type Ticker struct {
	session  *Session
	logger   *logger.Logger
	stopChan chan struct{}
}

// NewTicker creates a new session ticker.
func NewTicker(session *Session, log *logger.Logger) *Ticker {
	return &Ticker{
		session:  session,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the update loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Session ticker started.")

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Session ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Session ticker stopped manually.")
			return
		case <-ticker.C:
			start := time.Now()
			t.session.Update(start)
			metrics.Get().RecordTick(time.Since(start))
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	close(t.stopChan)
}
