package racesim

import (
	"fmt"
	"sort"
	"time"
)

type Standing struct {
	Position int    `json:"position"`
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`

	LapCount uint    `json:"lap_count"`
	MaxLaps  uint    `json:"max_laps"`
	Distance float64 `json:"distance"`
	Sector   int     `json:"sector"`

	Finished bool `json:"finished"`
	Active   bool `json:"active"`

	LastLapTime time.Duration `json:"last_lap_time"`
	BestLap     time.Duration `json:"best_lap"`
}

func (s Standing) String() string {
	return fmt.Sprintf("AgentID: %s, Laps: %d/%d, Distance: %.2f, Finished: %t", s.AgentID, s.LapCount, s.MaxLaps, s.Distance, s.Finished)
}

// Standings ranks every agent: active agents ahead of failed ones, then by laps
// completed. On equal laps, finishers come first in the order they finished,
// and everyone else is ordered by how far into the lap they are. Agent ID breaks
// any remaining tie, so the order never depends on the roster order.
func (s *Session) Standings() []Standing {
	standings := make([]Standing, 0, len(s.agents))

	for _, agent := range s.agents {
		standing := Standing{
			AgentID:     agent.ID,
			Name:        agent.Name,
			Color:       agent.Color,
			LapCount:    agent.LapCount(),
			MaxLaps:     agent.MaxLaps,
			Distance:    agent.Distance(),
			Sector:      -1,
			Finished:    agent.Finished(),
			Active:      agent.Active(),
			LastLapTime: agent.LastLapTime(),
			BestLap:     agent.BestLap(),
		}

		if agent.track != nil && agent.track.LapDistance() > 0 {
			standing.Sector = s.sectors.At(standing.Distance / agent.track.LapDistance())
		}

		standings = append(standings, standing)
	}

	sort.Slice(standings, func(i, j int) bool {
		return standingLess(standings[i], standings[j])
	})

	for i := range standings {
		standings[i].Position = i + 1
	}

	return standings
}

func standingLess(a, b Standing) bool {
	if a.Active != b.Active {
		return a.Active
	}

	if a.LapCount != b.LapCount {
		return a.LapCount > b.LapCount
	}

	if a.Finished != b.Finished {
		return a.Finished
	}

	if a.Finished && a.LastLapTime != b.LastLapTime {
		return a.LastLapTime < b.LastLapTime
	}

	if !a.Finished && a.Distance != b.Distance {
		return a.Distance > b.Distance
	}

	return a.AgentID < b.AgentID
}

// standingsChanged ignores distance, which changes every tick.
func standingsChanged(previous, current []Standing) bool {
	if len(previous) != len(current) {
		return true
	}

	for i := range current {
		prev, cur := previous[i], current[i]

		if prev.AgentID != cur.AgentID || prev.LapCount != cur.LapCount || prev.Active != cur.Active || prev.Finished != cur.Finished {
			return true
		}
	}

	return false
}
