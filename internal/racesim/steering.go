package racesim

import (
	"errors"
	"math"
)

// SteeringController moves one agent along its track. Implementations hold the
// steering state of a single agent and must not touch any other agent, so that
// agents can be stepped in parallel.
type SteeringController interface {
	Step(pose Pose, track *Track, dt, speedMultiplier float64) (Pose, error)
}

type SteeringConfig struct {
	// MaxSpeed in track units per second. MaxSpeed*dt must stay below twice the
	// lap threshold or an agent can jump across the start zone in one tick, see
	// SessionConfig.MaxTimestep.
	MaxSpeed float64 `json:"max_speed" yaml:"max_speed"`
	// LookaheadRadius is how close the agent gets to a waypoint before it targets
	// the next one. It must be smaller than the lap threshold.
	LookaheadRadius float64 `json:"lookahead_radius" yaml:"lookahead_radius"`
	// TurnRate is the heading smoothing rate, per second.
	TurnRate float64 `json:"turn_rate" yaml:"turn_rate"`
}

func (c SteeringConfig) Validate() error {
	if !isFinite(c.MaxSpeed) || c.MaxSpeed <= 0 {
		return errors.New("racesim: steering max_speed must be positive")
	}

	if !isFinite(c.LookaheadRadius) || c.LookaheadRadius < 0 {
		return errors.New("racesim: steering lookahead_radius must not be negative")
	}

	if !isFinite(c.TurnRate) || c.TurnRate <= 0 {
		return errors.New("racesim: steering turn_rate must be positive")
	}

	return nil
}

var errBadSpeedMultiplier = errors.New("racesim: speed multiplier must be finite")

// PathFollower steers towards the waypoint ahead of the agent. The target
// advances once the agent is inside the lookahead radius or has passed the
// waypoint, and the heading is eased towards the target so that corners are
// taken without snapping.
type PathFollower struct {
	SteeringConfig

	target      int
	initialised bool
}

func NewPathFollower(config SteeringConfig) *PathFollower {
	return &PathFollower{SteeringConfig: config}
}

// Target is the index of the waypoint currently steered towards.
func (p *PathFollower) Target() int {
	return p.target
}

// Step advances the pose by dt seconds. A dt of zero or less leaves the pose
// untouched, which is what a paused renderer sends.
func (p *PathFollower) Step(pose Pose, track *Track, dt, speedMultiplier float64) (Pose, error) {
	if dt <= 0 {
		return pose, nil
	}

	if track == nil {
		return pose, ErrNoTrack
	}

	if !isFinite(speedMultiplier) {
		return pose, errBadSpeedMultiplier
	}

	if !p.initialised {
		p.target = track.Next(track.Nearest(pose.Position))
		p.initialised = true
	}

	// bounded, a tiny track with a huge lookahead would otherwise spin forever
	for i := 0; i < track.Len(); i++ {
		target := track.PointAt(p.target)
		segment := track.Prev(p.target)

		if pose.Position.DistanceTo(target) > p.LookaheadRadius && track.Projection(segment, pose.Position) < 1 {
			break
		}

		p.target = track.Next(p.target)
	}

	desired := track.PointAt(p.target).Sub(pose.Position).Normalize()
	heading := pose.Heading.Normalize()

	if heading.IsZero() {
		heading = desired
	} else {
		blend := 1 - math.Exp(-p.TurnRate*dt)
		heading = heading.Add(desired.Sub(heading).Mul(blend)).Normalize()

		if heading.IsZero() {
			// desired was exactly opposite the current heading
			heading = desired
		}
	}

	speed := p.MaxSpeed * math.Max(0, math.Min(1, speedMultiplier))

	return Pose{
		Position: pose.Position.Add(heading.Mul(speed * dt)),
		Heading:  heading,
		Speed:    speed,
		Segment:  track.Prev(p.target),
	}, nil
}
