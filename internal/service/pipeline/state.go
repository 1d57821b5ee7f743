package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a pipeline run.
type State int

const (
	// StateValidating - Input and credentials are checked, no provider call yet.
	StateValidating State = iota
	// StateTranscribing - Audio is with the speech-to-text provider.
	StateTranscribing
	// StateGenerating - Transcript is with the generation provider.
	StateGenerating
	// StateDone - Run completed and its result was handed to the caller.
	StateDone
	// StateFailed - Run stopped at a stage failure. Nothing is returned.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateValidating:
		return "VALIDATING"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateGenerating:
		return "GENERATING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (DONE or FAILED).
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrRunFinished       = errors.New("run already finished")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Lifecycle manages the state machine for a single run.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	VALIDATING → TRANSCRIBING → GENERATING → DONE
//	     │             │             │
//	     │             └─────────────┼──→ DONE (transcribe-only flow)
//	     └──→ GENERATING (generate flow)
//
//	any non-terminal state ──→ FAILED
type Lifecycle struct {
	mu    sync.RWMutex
	runID string
	flow  string
	state State
	stage string
}

var transitions = map[State][]State{
	StateValidating:   {StateTranscribing, StateGenerating},
	StateTranscribing: {StateGenerating, StateDone},
	StateGenerating:   {StateDone},
}

// NewLifecycle creates a new run lifecycle in VALIDATING state.
func NewLifecycle(runID, flow string) *Lifecycle {
	return &Lifecycle{
		runID: runID,
		flow:  flow,
		state: StateValidating,
	}
}

// RunID returns the run ID.
func (l *Lifecycle) RunID() string {
	return l.runID
}

// Flow returns the flow name the run was started for.
func (l *Lifecycle) Flow() string {
	return l.flow
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// FailedStage returns the stage recorded by Fail, if any.
func (l *Lifecycle) FailedStage() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stage
}

// Advance moves the run to next.
func (l *Lifecycle) Advance(next State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrRunFinished
	}
	for _, s := range transitions[l.state] {
		if s == next {
			l.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, next)
}

// Fail transitions the run to FAILED and records the stage that failed.
// Returns true if the run was failed, false if already in a terminal state.
func (l *Lifecycle) Fail(stage string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateFailed
	l.stage = stage
	return true
}
