package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/engine"
	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/metrics"
)

// telemetryPushInterval matches the control tick cadence so clients see
// every rate update without polling the HTTP API.
const telemetryPushInterval = 500 * time.Millisecond

// Hub maintains the set of active clients and broadcasts messages to them.
// Clients feed particle outcomes into the Session; the Hub fans out ledger
// events and telemetry frames to everyone connected.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	session    *engine.Session
	eventLog   *events.EventLog
	logger     *logger.Logger
}

// NewHub initializes a new WebSocket Hub bound to a Session.
func NewHub(session *engine.Session, el *events.EventLog, log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		session:    session,
		eventLog:   el,
		logger:     log,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					metrics.Get().RecordWSMessage(false)
				default:
					metrics.Get().RecordWSError()
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent serializes a run event to JSON and sends it to all connected clients.
func (h *Hub) BroadcastEvent(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to serialize event for WebSocket broadcast: " + err.Error())
		return
	}
	h.broadcast <- payload
}

// StartEventPoller spawns a goroutine to poll the EventLog and push new events
// to the Hub. This keeps the Hub decoupled from the Session's tick loop while
// still delivering the same ledger to spectators.
func (h *Hub) StartEventPoller(ctx context.Context) {
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		lastProcessedEvent := 0

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				allEvents := h.eventLog.Replay()
				if len(allEvents) > lastProcessedEvent {
					for _, event := range allEvents[lastProcessedEvent:] {
						h.BroadcastEvent(event)
					}
					lastProcessedEvent = len(allEvents)
				}
			}
		}
	}()
}

// telemetryFrame wraps a telemetry snapshot so clients can distinguish it
// from ledger events on the same socket.
type telemetryFrame struct {
	Type      string           `json:"type"`
	Telemetry engine.Telemetry `json:"telemetry"`
}

// StartTelemetryPush spawns a goroutine broadcasting the Session's telemetry
// snapshot at the control tick cadence.
func (h *Hub) StartTelemetryPush(ctx context.Context) {
	go func() {
		push := time.NewTicker(telemetryPushInterval)
		defer push.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-push.C:
				frame := telemetryFrame{Type: "TELEMETRY", Telemetry: h.session.Telemetry()}
				payload, err := json.Marshal(frame)
				if err != nil {
					h.logger.Error("Failed to serialize telemetry frame: " + err.Error())
					continue
				}
				h.broadcast <- payload
			}
		}
	}()
}
