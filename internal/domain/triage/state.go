package triage

import "fmt"

// State is a coordinator run state. Runs only move forward.
type State int

const (
	StateCreated State = iota
	StatePhase1Running
	StatePhase15Running
	StatePhase2Running
	StatePhase3Running
	StateAggregating
	StateDone
)

var stateNames = [...]string{
	"created",
	"phase1_running",
	"phase1_5_running",
	"phase2_running",
	"phase3_running",
	"aggregating",
	"done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// CanAdvance reports whether moving from s to next is a legal forward
// transition. Skipping intermediate states is allowed (a run that hits its
// deadline jumps straight to aggregating).
func (s State) CanAdvance(next State) bool {
	return next > s && next <= StateDone
}

// Machine tracks the state of one run.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Advance moves the machine to next or returns an error for a backward or
// repeated transition.
func (m *Machine) Advance(next State) error {
	if !m.state.CanAdvance(next) {
		return fmt.Errorf("illegal transition %s -> %s", m.state, next)
	}
	m.state = next
	return nil
}
