package review

import "testing"

func TestStateTransitions(t *testing.T) {
	legal := [][2]State{
		{StatePending, StateContextRetrieved},
		{StateContextRetrieved, StateExplained},
		{StateContextRetrieved, StateReviewed},
		{StateExplained, StateReviewed},
		{StateReviewed, StateValidated},
		{StateValidated, StateFixAttempted},
		{StateValidated, StateDone},
		{StateFixAttempted, StateDone},
		{StatePending, StateFailed},
		{StateValidated, StateFailed},
	}
	for _, tc := range legal {
		if !tc[0].CanAdvance(tc[1]) {
			t.Fatalf("%s -> %s must be legal", tc[0], tc[1])
		}
	}

	illegal := [][2]State{
		{StatePending, StateReviewed},
		{StateReviewed, StateContextRetrieved},
		{StateReviewed, StateDone},
		{StateDone, StateFailed},
		{StateFailed, StatePending},
		{StateFailed, StateFailed},
	}
	for _, tc := range illegal {
		if tc[0].CanAdvance(tc[1]) {
			t.Fatalf("%s -> %s must be illegal", tc[0], tc[1])
		}
	}
}

func TestStateTerminal(t *testing.T) {
	if !StateDone.Terminal() || !StateFailed.Terminal() {
		t.Fatalf("DONE and FAILED are terminal")
	}
	if StatePending.Terminal() || StateValidated.Terminal() {
		t.Fatalf("pipeline states are not terminal")
	}
}
