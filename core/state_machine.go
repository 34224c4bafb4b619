package core

import "sync/atomic"

// State is one phase of the record/replay cycle
type State uint8

const (
	StateIdle State = iota
	StateRecording
	StateSaving
	StateReplaying
)

// String returns the state name used in debug output
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateSaving:
		return "Saving"
	case StateReplaying:
		return "Replaying"
	default:
		return "Unknown(" + utoa(uint32(s)) + ")"
	}
}

// StateMachine tracks the current phase.
// Every field is atomic so interrupt handlers can read it while the main
// loop writes. The previous state and counter are diagnostic and may be
// briefly stale relative to the current state.
type StateMachine struct {
	current  atomic.Uint32
	previous atomic.Uint32
	changes  atomic.Uint32
}

// NewStateMachine returns a machine in the Idle state
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// CurrentState returns the active state
func (m *StateMachine) CurrentState() State {
	return State(m.current.Load())
}

// PreviousState returns the state before the last effective transition
func (m *StateMachine) PreviousState() State {
	return State(m.previous.Load())
}

// TransitionCount returns the number of effective transitions so far.
// Collaborators compare it against a saved value to detect staleness.
func (m *StateMachine) TransitionCount() uint32 {
	return m.changes.Load()
}

// ChangeState moves to target. Requesting the current state is a no-op.
// Returns true if a transition happened.
func (m *StateMachine) ChangeState(target State) bool {
	for {
		cur := m.current.Load()
		if State(cur) == target {
			return false
		}
		if m.current.CompareAndSwap(cur, uint32(target)) {
			m.previous.Store(cur)
			m.changes.Add(1)
			return true
		}
	}
}

// ChangeStateFrom moves to target only if the machine is currently in from
func (m *StateMachine) ChangeStateFrom(from, target State) bool {
	if from == target {
		return false
	}
	if !m.current.CompareAndSwap(uint32(from), uint32(target)) {
		return false
	}
	m.previous.Store(uint32(from))
	m.changes.Add(1)
	return true
}

// SetCurrentState overwrites the current state without bookkeeping.
// Only for bootstrap and recovery.
func (m *StateMachine) SetCurrentState(target State) {
	m.current.Store(uint32(target))
}
