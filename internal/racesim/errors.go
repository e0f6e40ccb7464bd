package racesim

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoTrack        = errors.New("racesim: agent has no track assigned")
	ErrNonFinitePose  = errors.New("racesim: steering produced a non-finite pose")
	ErrUnknownAgent   = errors.New("racesim: unknown agent")
	ErrDuplicateAgent = errors.New("racesim: duplicate agent id")
	ErrEmptyRoster    = errors.New("racesim: roster is empty")

	ErrLookaheadTooWide = errors.New("racesim: steering lookahead_radius must be smaller than lap_threshold")
)

// InvalidTrackError is returned when a track cannot be built from the supplied points.
type InvalidTrackError struct {
	Reason string
	Index  int
}

func (e *InvalidTrackError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("racesim: invalid track: %s (point %d)", e.Reason, e.Index)
	}

	return fmt.Sprintf("racesim: invalid track: %s", e.Reason)
}

// InvalidTimestepError is returned by Session.Tick for NaN or infinite timesteps.
// The session is left untouched.
type InvalidTimestepError struct {
	DT float64
}

func (e *InvalidTimestepError) Error() string {
	return fmt.Sprintf("racesim: invalid timestep: %v", e.DT)
}

// AgentStepError reports a fault in a single agent's tick. The agent is marked
// inactive, other agents are unaffected.
type AgentStepError struct {
	AgentID string
	Tick    uint64
	Err     error
}

func (e *AgentStepError) Error() string {
	return fmt.Sprintf("racesim: agent %s failed at tick %d: %s", e.AgentID, e.Tick, e.Err)
}

func (e *AgentStepError) Unwrap() error {
	return e.Err
}

// StepErrors is the partial failure list of a tick.
type StepErrors []*AgentStepError

func (e StepErrors) Err() error {
	if len(e) == 0 {
		return nil
	}

	return e
}

func (e StepErrors) Error() string {
	var out []string

	for _, err := range e {
		out = append(out, err.Error())
	}

	return strings.Join(out, "; ")
}
