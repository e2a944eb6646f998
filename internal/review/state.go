package review

// State tags a unit's position in the review pipeline. Stage order within
// a unit is fixed; StateFailed is an absorbing state reachable from any
// non-terminal state.
type State string

const (
	StatePending          State = "PENDING"
	StateContextRetrieved State = "CONTEXT_RETRIEVED"
	StateExplained        State = "EXPLAINED"
	StateReviewed         State = "REVIEWED"
	StateValidated        State = "VALIDATED"
	StateFixAttempted     State = "FIX_ATTEMPTED"
	StateDone             State = "DONE"
	StateFailed           State = "FAILED"
)

// transitions is the forward edge set of the per-unit state machine. The
// explanation, validation and fix stages are individually skippable, so a
// state may advance past them.
var transitions = map[State][]State{
	StatePending:          {StateContextRetrieved},
	StateContextRetrieved: {StateExplained, StateReviewed},
	StateExplained:        {StateReviewed},
	StateReviewed:         {StateValidated},
	StateValidated:        {StateFixAttempted, StateDone},
	StateFixAttempted:     {StateDone},
}

// CanAdvance reports whether to is a legal successor of s. Failure is
// legal from every non-terminal state.
func (s State) CanAdvance(to State) bool {
	if s.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a unit in this state has left the pipeline.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
