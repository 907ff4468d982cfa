package cursor

import (
	"errors"
	"slices"
	"time"

	"github.com/vietddude/curator/internal/core/domain"
)

// State is an alias for domain.CursorState for internal use.
type State = domain.CursorState

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[State][]State{
	domain.CursorStateInit: {domain.CursorStateFetching},
	domain.CursorStateFetching: {
		domain.CursorStateRetrying,
		domain.CursorStatePaused,
		domain.CursorStateDone,
		domain.CursorStateAborted,
	},
	domain.CursorStateRetrying: {
		domain.CursorStateFetching,
		domain.CursorStatePaused,
		domain.CursorStateAborted,
	},
	domain.CursorStatePaused:  {domain.CursorStateFetching},
	domain.CursorStateDone:    {domain.CursorStateFetching},
	domain.CursorStateAborted: {domain.CursorStateFetching},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(validTargets, to)
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// IsTerminal reports whether a run in this state has stopped on its own.
func IsTerminal(s State) bool {
	return s == domain.CursorStateDone || s == domain.CursorStateAborted
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.CursorStateInit:
		return "Initializing - cursor created, first page not fetched"
	case domain.CursorStateFetching:
		return "Fetching - walking pages forward"
	case domain.CursorStateRetrying:
		return "Retrying - current page exhausted its attempts, retrying the same page"
	case domain.CursorStatePaused:
		return "Paused - stopped between pages by operator"
	case domain.CursorStateDone:
		return "Done - upstream reported no further pages"
	case domain.CursorStateAborted:
		return "Aborted - page retry budget exhausted"
	default:
		return "Unknown state"
	}
}
