package racesim

import "time"

type LapEvent struct {
	AgentID   string        `json:"agent_id"`
	LapNumber uint          `json:"lap_number"`
	Timestamp time.Duration `json:"timestamp"`
	LapTime   time.Duration `json:"lap_time"`
}

// LapDetector decides when an agent crosses the start line. An agent is AWAY or
// NEAR the start point; a lap is counted on the AWAY to NEAR transition, unless
// it is the very first evaluation or the previous lap was less than Cooldown ago.
// Lingering inside the zone never counts twice.
type LapDetector struct {
	Threshold float64
	Cooldown  time.Duration

	near        bool
	initialised bool
	lastLap     time.Duration
}

func NewLapDetector(threshold float64, cooldown time.Duration) *LapDetector {
	return &LapDetector{
		Threshold: threshold,
		Cooldown:  cooldown,
		lastLap:   -cooldown,
	}
}

// Prime records the agent's initial distance to the start point without counting a lap.
func (d *LapDetector) Prime(distance float64) {
	d.near = distance < d.Threshold
	d.initialised = true
}

// Check evaluates the distance to the start point at session time now and
// reports whether a lap was completed.
func (d *LapDetector) Check(distance float64, now time.Duration) bool {
	near := distance < d.Threshold

	if !d.initialised {
		d.Prime(distance)
		return false
	}

	entered := near && !d.near
	d.near = near

	if !entered || now-d.lastLap < d.Cooldown {
		return false
	}

	d.lastLap = now

	return true
}

// Near reports whether the agent was inside the start zone at the last evaluation.
func (d *LapDetector) Near() bool {
	return d.near
}
