package engine

import (
	"fmt"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/domain/flow"
	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
)

// PhaseListener is invoked synchronously after a phase change, in
// subscription order, with the old and new phase.
type PhaseListener func(old, new flow.Phase)

// FlowStateMachine owns the single authoritative game phase. Every
// transition is validated against a fixed adjacency table, and every
// target name is re-checked against the fail-only rules so a future
// phase addition cannot smuggle in a winnable state.
//
// The notification contract is: exit hook → assign → entry hook →
// listeners, fully ordered. A transition requested from inside a
// listener is queued and executed only after the current one completes.
type FlowStateMachine struct {
	logger    *logger.Logger
	eventLog  *events.EventLog
	adjacency map[flow.Phase][]flow.Phase
	current   flow.Phase
	clock     func() time.Time
	runID     func() string

	listeners  []PhaseListener
	entryHooks map[flow.Phase]func()
	exitHooks  map[flow.Phase]func()

	notifying bool
	queued    []flow.Phase
}

// NewFlowStateMachine builds the machine on the authoritative adjacency
// table, starting in Menu.
func NewFlowStateMachine(eventLog *events.EventLog, log *logger.Logger) (*FlowStateMachine, error) {
	return NewFlowStateMachineWith(flow.DefaultAdjacency(), flow.PhaseMenu, eventLog, log)
}

// NewFlowStateMachineWith builds the machine on a caller-supplied table.
// A forbidden phase name anywhere in the table is a fatal configuration
// error: no usable instance is returned.
func NewFlowStateMachineWith(adjacency map[flow.Phase][]flow.Phase, initial flow.Phase, eventLog *events.EventLog, log *logger.Logger) (*FlowStateMachine, error) {
	if err := flow.ValidateAdjacency(adjacency); err != nil {
		return nil, fmt.Errorf("flow state machine rejected: %w", err)
	}
	if err := flow.ValidateName(initial); err != nil {
		return nil, fmt.Errorf("flow state machine rejected: %w", err)
	}
	return &FlowStateMachine{
		logger:     log,
		eventLog:   eventLog,
		adjacency:  adjacency,
		current:    initial,
		clock:      time.Now,
		entryHooks: make(map[flow.Phase]func()),
		exitHooks:  make(map[flow.Phase]func()),
	}, nil
}

// SetClock overrides the time source used to stamp ledger events.
func (m *FlowStateMachine) SetClock(clock func() time.Time) {
	if clock != nil {
		m.clock = clock
	}
}

// SetRunIDSource wires the run identifier stamped onto phase events.
// Transitions outside a run carry an empty run ID.
func (m *FlowStateMachine) SetRunIDSource(source func() string) {
	m.runID = source
}

// Current returns the authoritative phase.
func (m *FlowStateMachine) Current() flow.Phase {
	return m.current
}

// LegalTransitions returns the phases reachable from the current one.
// Diagnostics only; control flow must go through TransitionTo.
func (m *FlowStateMachine) LegalTransitions() []flow.Phase {
	targets := m.adjacency[m.current]
	out := make([]flow.Phase, len(targets))
	copy(out, targets)
	return out
}

// Subscribe registers a listener for phase changes. Listeners run
// synchronously in registration order.
func (m *FlowStateMachine) Subscribe(l PhaseListener) {
	m.listeners = append(m.listeners, l)
}

// OnEnter registers a hook that runs when the given phase is entered,
// before listeners are notified.
func (m *FlowStateMachine) OnEnter(p flow.Phase, hook func()) {
	m.entryHooks[p] = hook
}

// OnExit registers a hook that runs when the given phase is left.
func (m *FlowStateMachine) OnExit(p flow.Phase, hook func()) {
	m.exitHooks[p] = hook
}

// TransitionTo attempts to move to target. It succeeds iff target is
// adjacent to the current phase. On failure the state is unchanged and
// the legal alternatives are logged. A call made while listeners are
// being notified is queued; it runs (with full validation against the
// then-current phase) once the in-flight transition completes.
func (m *FlowStateMachine) TransitionTo(target flow.Phase) bool {
	if err := flow.ValidateName(target); err != nil {
		m.logger.Error("Transition refused: " + err.Error())
		return false
	}

	if m.notifying {
		m.queued = append(m.queued, target)
		m.logger.Info(fmt.Sprintf("Transition to %s queued behind in-flight notification", target))
		return true
	}

	if !m.isAdjacent(target) {
		m.logger.Warn(fmt.Sprintf("Illegal transition %s → %s (legal: %v)", m.current, target, m.LegalTransitions()))
		return false
	}

	m.execute(target, false)
	m.drainQueue()
	return true
}

// ForceState bypasses the adjacency check entirely. It exists for
// recovery only; the fail-only name check still applies.
func (m *FlowStateMachine) ForceState(target flow.Phase) bool {
	if err := flow.ValidateName(target); err != nil {
		m.logger.Error("Forced transition refused: " + err.Error())
		return false
	}
	m.logger.Warn(fmt.Sprintf("UNSAFE forced phase change %s → %s, bypassing adjacency table", m.current, target))
	m.execute(target, true)
	m.drainQueue()
	return true
}

// Reset forces the machine back to Menu if not already there.
func (m *FlowStateMachine) Reset() {
	if m.current == flow.PhaseMenu {
		return
	}
	m.ForceState(flow.PhaseMenu)
}

func (m *FlowStateMachine) isAdjacent(target flow.Phase) bool {
	for _, p := range m.adjacency[m.current] {
		if p == target {
			return true
		}
	}
	return false
}

// execute performs the ordered exit → assign → enter → notify sequence,
// then appends the change to the event ledger.
func (m *FlowStateMachine) execute(target flow.Phase, forced bool) {
	old := m.current

	if hook := m.exitHooks[old]; hook != nil {
		hook()
	}
	m.current = target
	if hook := m.entryHooks[target]; hook != nil {
		hook()
	}

	m.notifying = true
	for _, l := range m.listeners {
		l(old, target)
	}
	m.notifying = false

	eventType := events.EventTypePhaseChanged
	if forced {
		eventType = events.EventTypePhaseForced
	}
	runID := ""
	if m.runID != nil {
		runID = m.runID()
	}
	m.eventLog.Append(events.Event{
		ID:        events.GenerateEventID(),
		Timestamp: m.clock(),
		Type:      eventType,
		Origin:    "SYSTEM_FLOW",
		TargetID:  string(target),
		Payload:   map[string]string{"from": string(old), "to": string(target)},
		RunID:     runID,
	})
	m.logger.Event(string(eventType), "SYSTEM_FLOW", fmt.Sprintf("%s → %s", old, target))
}

func (m *FlowStateMachine) drainQueue() {
	for len(m.queued) > 0 {
		next := m.queued[0]
		m.queued = m.queued[1:]
		if !m.isAdjacent(next) {
			m.logger.Warn(fmt.Sprintf("Queued transition %s → %s no longer legal (legal: %v)", m.current, next, m.LegalTransitions()))
			continue
		}
		m.execute(next, false)
	}
}
