package racesim

import (
	"fmt"
	"time"
)

type AgentConfig struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Color      string  `json:"color" yaml:"color"`
	LaneOffset float64 `json:"lane_offset" yaml:"lane_offset"`
	MaxLaps    uint    `json:"max_laps" yaml:"max_laps"`

	// Steering overrides the session steering config for this agent.
	Steering *SteeringConfig `json:"steering,omitempty" yaml:"steering,omitempty"`
}

// Pose is where an agent is and which way it is facing. Segment is the index of
// the waypoint the agent last passed.
type Pose struct {
	Position Vector3 `json:"position"`
	Heading  Vector3 `json:"heading"`
	Speed    float64 `json:"speed"`
	Segment  int     `json:"segment"`
}

// AgentPose is a Pose sampled at a tick, for renderers.
type AgentPose struct {
	AgentID string `json:"agent_id"`
	Tick    uint64 `json:"tick"`

	Pose
}

// Agent is a single competitor. It exclusively owns its pose, steering and lap
// state. Its track is either shared with other agents or a lane offset copy.
type Agent struct {
	ID         string
	Name       string
	Color      string
	MaxLaps    uint
	LaneOffset float64

	pose     Pose
	track    *Track
	steering SteeringController
	detector *LapDetector

	lapCount    uint
	lastLapTime time.Duration
	lapTimes    []time.Duration

	active bool
	err    error
}

func newAgent(config *AgentConfig, track *Track, steering SteeringController, detector *LapDetector) *Agent {
	a := &Agent{
		ID:         config.ID,
		Name:       config.Name,
		Color:      config.Color,
		MaxLaps:    config.MaxLaps,
		LaneOffset: config.LaneOffset,
		track:      track,
		steering:   steering,
		detector:   detector,
		active:     true,
	}

	if track != nil {
		a.pose = Pose{Position: track.Start()}
		detector.Prime(0)
	}

	return a
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

func (a *Agent) Pose() Pose {
	return a.pose
}

func (a *Agent) Track() *Track {
	return a.track
}

func (a *Agent) LapCount() uint {
	return a.lapCount
}

// LastLapTime is the session time at which the last lap was completed.
func (a *Agent) LastLapTime() time.Duration {
	return a.lastLapTime
}

func (a *Agent) LapTimes() []time.Duration {
	out := make([]time.Duration, len(a.lapTimes))
	copy(out, a.lapTimes)

	return out
}

func (a *Agent) BestLap() time.Duration {
	var best time.Duration

	for _, lap := range a.lapTimes {
		if best == 0 || lap < best {
			best = lap
		}
	}

	return best
}

func (a *Agent) Finished() bool {
	return a.lapCount >= a.MaxLaps
}

// Active is false once the agent has failed a step.
func (a *Agent) Active() bool {
	return a.active
}

func (a *Agent) Err() error {
	return a.err
}

// Distance is how far the agent is into its current lap. Inside the start zone
// an agent which is still closing on the line counts as on it.
func (a *Agent) Distance() float64 {
	if a.track == nil {
		return 0
	}

	d := a.track.DistanceAlong(a.pose.Segment, a.pose.Position)

	if a.detector.Near() && d > a.track.LapDistance()/2 {
		return 0
	}

	return d
}

// step moves the agent and checks for a lap. The pose is only committed once
// steering has succeeded, so a failed agent keeps its last good state.
func (a *Agent) step(dt float64, now time.Duration, limiter SpeedLimiter) (event *LapEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			event, err = nil, fmt.Errorf("racesim: agent step panicked: %v", r)
		}
	}()

	if a.track == nil {
		return nil, ErrNoTrack
	}

	speedMultiplier := 1.0

	if limiter != nil {
		speedMultiplier = limiter.SpeedMultiplier(a.ID, a.pose.Segment)
	}

	pose, err := a.steering.Step(a.pose, a.track, dt, speedMultiplier)

	if err != nil {
		return nil, err
	}

	if !pose.Position.IsFinite() || !pose.Heading.IsFinite() {
		return nil, ErrNonFinitePose
	}

	a.pose = pose

	if !a.detector.Check(pose.Position.DistanceTo(a.track.Start()), now) {
		return nil, nil
	}

	lapTime := now - a.lastLapTime

	a.lapCount++
	a.lastLapTime = now
	a.lapTimes = append(a.lapTimes, lapTime)

	return &LapEvent{
		AgentID:   a.ID,
		LapNumber: a.lapCount,
		Timestamp: now,
		LapTime:   lapTime,
	}, nil
}

func (a *Agent) deactivate(err error) {
	a.active = false
	a.err = err
}
