// Package network - replay.go
// Run replay endpoint - JSON export of the run's hazard history.
//
// Spectators and post-run screens use this to replay the immutable
// ledger of a run: every spawn, burst and rate change in order.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
)

// ReplayHandler provides the run replay API.
type ReplayHandler struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(el *events.EventLog, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{
		eventLog: el,
		logger:   log,
	}
}

// ReplayEvent is a sanitized event for public viewing.
type ReplayEvent struct {
	ID         string                 `json:"id"`
	Timestamp  string                 `json:"timestamp"`
	RunSeconds float64                `json:"run_seconds"`
	Type       string                 `json:"type"`
	Origin     string                 `json:"origin"`
	TargetID   string                 `json:"target_id,omitempty"`
	Summary    string                 `json:"summary"`
	Impact     string                 `json:"impact"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ReplayResponse is the API response for a run replay.
type ReplayResponse struct {
	RunID       string        `json:"run_id"`
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// HandleReplay returns the replay for a run.
// GET /api/replay?run_id=XXX&type=BURST_STARTED
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		rh.jsonError(w, "Missing run_id", http.StatusBadRequest)
		return
	}

	eventType := r.URL.Query().Get("type")

	allEvents := rh.eventLog.GetByRun(runID)

	var replayEvents []ReplayEvent
	filterDesc := ""

	for _, e := range allEvents {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if eventType != "" {
			filterDesc = "Type " + eventType
		}
		replayEvents = append(replayEvents, rh.convertToReplayEvent(e))
	}

	response := ReplayResponse{
		RunID:       runID,
		TotalEvents: len(replayEvents),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      replayEvents,
	}

	rh.logger.Event("RUN_REPLAY", "AUDIENCE", "RunID:"+runID+" Events:"+strconv.Itoa(len(replayEvents)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleEventDetail returns details of a specific event.
// GET /api/replay/event?event_id=XXX
func (rh *ReplayHandler) HandleEventDetail(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		rh.jsonError(w, "Missing event_id", http.StatusBadRequest)
		return
	}

	allEvents := rh.eventLog.Replay()
	for _, e := range allEvents {
		if e.ID == eventID {
			detail := rh.convertToReplayEvent(e)
			if payload, ok := e.Payload.(map[string]interface{}); ok {
				detail.Details = payload
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(detail)
			return
		}
	}

	rh.jsonError(w, "Event not found", http.StatusNotFound)
}

// HandleStats returns aggregate statistics over the ledger.
// GET /api/replay/stats
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	allEvents := rh.eventLog.Replay()

	stats := map[string]int{
		"total_events":  len(allEvents),
		"runs_started":  0,
		"runs_ended":    0,
		"bursts":        0,
		"spawns":        0,
		"rate_changes":  0,
		"phase_changes": 0,
	}

	for _, e := range allEvents {
		switch e.Type {
		case events.EventTypeRunStarted:
			stats["runs_started"]++
		case events.EventTypeRunEnded:
			stats["runs_ended"]++
		case events.EventTypeBurstStarted:
			stats["bursts"]++
		case events.EventTypeSourceSpawned:
			stats["spawns"]++
		case events.EventTypeRateChanged:
			stats["rate_changes"]++
		case events.EventTypePhaseChanged:
			stats["phase_changes"]++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/replay", rh.HandleReplay)
	r.Get("/api/replay/event", rh.HandleEventDetail)
	r.Get("/api/replay/stats", rh.HandleStats)
}

// convertToReplayEvent transforms an internal event to public format.
func (rh *ReplayHandler) convertToReplayEvent(e events.Event) ReplayEvent {
	return ReplayEvent{
		ID:         e.ID,
		Timestamp:  e.Timestamp.Format("15:04:05"),
		RunSeconds: e.RunSeconds,
		Type:       string(e.Type),
		Origin:     e.Origin,
		TargetID:   e.TargetID,
		Summary:    rh.summarizeEvent(e),
		Impact:     rh.determineImpact(e),
	}
}

// summarizeEvent creates a human-readable summary.
func (rh *ReplayHandler) summarizeEvent(e events.Event) string {
	switch e.Type {
	case events.EventTypeRunStarted:
		return "The leak began."
	case events.EventTypeRunEnded:
		return "The run ended. The leak always wins."
	case events.EventTypeSourceSpawned:
		return "A new leak source opened."
	case events.EventTypeBurstStarted:
		return "Pressure blew out into a burst."
	case events.EventTypeBurstEnded:
		return "The burst subsided."
	case events.EventTypeRateChanged:
		return "The emission rate shifted."
	case events.EventTypeRubberBandUpdated:
		return "The difficulty adjusted to the player."
	case events.EventTypePhaseChanged:
		return "The session moved to a new phase."
	default:
		return "Something happened in the gulf..."
	}
}

// determineImpact classifies the event impact for the viewer.
func (rh *ReplayHandler) determineImpact(e events.Event) string {
	switch e.Type {
	case events.EventTypeBurstStarted, events.EventTypeSourceSpawned, events.EventTypeImpulseRequested:
		return "ESCALATION"
	case events.EventTypeBurstEnded, events.EventTypeSourcesCleared:
		return "RELIEF"
	default:
		return "NEUTRAL"
	}
}

// jsonError sends an error response.
func (rh *ReplayHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
