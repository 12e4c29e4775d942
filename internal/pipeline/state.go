package pipeline

// State is the phase of a playback session.
type State int

const (
	// StateIdle means the session has not started, or is about to restart.
	StateIdle State = iota
	// StateSynthesizing means the session is waiting for a chunk's audio.
	StateSynthesizing
	// StatePlaying means a chunk is playing, possibly with the next one
	// being synthesized.
	StatePlaying
	// StateComplete means every chunk was played.
	StateComplete
	// StateCancelled means the session was stopped from outside.
	StateCancelled
	// StateFailed means a chunk could not be synthesized or played.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled || s == StateFailed
}

// StateMachine validates session state transitions.
type StateMachine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
}

// NewStateMachine creates a state machine in StateIdle. A transition back
// to StateIdle restarts the session for a retry.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:         {StateSynthesizing, StateCancelled},
			StateSynthesizing: {StatePlaying, StateIdle, StateCancelled, StateFailed},
			StatePlaying:      {StateSynthesizing, StateComplete, StateIdle, StateCancelled, StateFailed},
		},
		onEnter: make(map[State]func()),
	}
}

// Transition moves to the given state if the move is allowed.
func (sm *StateMachine) Transition(to State) bool {
	if !sm.CanTransition(to) {
		return false
	}
	sm.current = to
	if fn := sm.onEnter[to]; fn != nil {
		fn()
	}
	return true
}

// CanTransition reports whether moving to the given state is allowed.
func (sm *StateMachine) CanTransition(to State) bool {
	for _, s := range sm.transitions[sm.current] {
		if s == to {
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state State, fn func()) {
	sm.onEnter[state] = fn
}
