package racesim

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	DefaultLapCooldown  = 2 * time.Second
	DefaultLapThreshold = 0.39
	DefaultMaxLaps      = 2
)

var DefaultSteering = SteeringConfig{
	MaxSpeed:        2,
	LookaheadRadius: 0.2,
	TurnRate:        8,
}

type SessionConfig struct {
	Name string `json:"name" yaml:"name"`

	// LapCooldown is the minimum time between two laps of the same agent.
	LapCooldown time.Duration `json:"lap_cooldown" yaml:"lap_cooldown"`
	// LapThreshold is the distance to the start point under which an agent is on the line.
	LapThreshold float64 `json:"lap_threshold" yaml:"lap_threshold"`
	// MaxLaps is used for agents which do not set their own.
	MaxLaps uint `json:"max_laps" yaml:"max_laps"`

	// Parallel steps agents concurrently within a tick. Results are identical either way.
	Parallel bool `json:"parallel" yaml:"parallel"`

	NumSectors  int     `json:"num_sectors" yaml:"num_sectors"`
	SectorsFile string  `json:"sectors_file" yaml:"sectors_file"`
	Sectors     Sectors `json:"sectors" yaml:"sectors"`

	Steering SteeringConfig `json:"steering" yaml:"steering"`
}

// ApplyDefaults fills in every zero value with the race viewer defaults.
func (c *SessionConfig) ApplyDefaults() {
	if c.LapCooldown == 0 {
		c.LapCooldown = DefaultLapCooldown
	}

	if c.LapThreshold == 0 {
		c.LapThreshold = DefaultLapThreshold
	}

	if c.MaxLaps == 0 {
		c.MaxLaps = DefaultMaxLaps
	}

	if c.NumSectors == 0 && len(c.Sectors) == 0 {
		c.NumSectors = DefaultNumSectors
	}

	if c.Steering.MaxSpeed == 0 {
		c.Steering.MaxSpeed = DefaultSteering.MaxSpeed
	}

	if c.Steering.LookaheadRadius == 0 {
		c.Steering.LookaheadRadius = DefaultSteering.LookaheadRadius
	}

	if c.Steering.TurnRate == 0 {
		c.Steering.TurnRate = DefaultSteering.TurnRate
	}
}

func (c SessionConfig) Validate() error {
	if c.LapCooldown < 0 {
		return errors.New("racesim: lap_cooldown must not be negative")
	}

	if !isFinite(c.LapThreshold) || c.LapThreshold <= 0 {
		return errors.New("racesim: lap_threshold must be positive")
	}

	if err := c.Sectors.Validate(); err != nil {
		return err
	}

	return c.ValidateSteering(c.Steering)
}

// ValidateSteering checks a steering config against the start zone. A lookahead
// radius as wide as the start zone lets the agent turn for the next waypoint
// before it ever enters the zone, and no lap would be counted.
func (c SessionConfig) ValidateSteering(steering SteeringConfig) error {
	if err := steering.Validate(); err != nil {
		return err
	}

	if steering.LookaheadRadius >= c.LapThreshold {
		return fmt.Errorf("%w (%.3f >= %.3f)", ErrLookaheadTooWide, steering.LookaheadRadius, c.LapThreshold)
	}

	return nil
}

// MaxTimestep is the longest dt at which an agent with the given steering
// cannot jump across the start zone in a single tick. Lap detection samples
// distance once per tick, so longer steps can miss the crossing.
func (c SessionConfig) MaxTimestep(steering SteeringConfig) time.Duration {
	if steering.MaxSpeed <= 0 {
		return 0
	}

	return time.Duration(math.Round(2 * c.LapThreshold / steering.MaxSpeed * float64(time.Second)))
}

func (c SessionConfig) String() string {
	return fmt.Sprintf("Name: %s, Max Laps: %d, Lap Cooldown: %s, Lap Threshold: %.3f, Parallel: %t", c.Name, c.MaxLaps, c.LapCooldown, c.LapThreshold, c.Parallel)
}
