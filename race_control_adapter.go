package livemap

import (
	"fmt"
	"strings"

	"justapengu.in/livemap/internal/racesim"

	"github.com/dustin/go-humanize"
)

// RaceControlAdapter keeps the race control driver map up to date from the
// session's plugin events. Its methods run inside Session.Tick, while race
// control already holds its lock, so it only ever touches the driver map.
type RaceControlAdapter struct {
	*RaceControl

	logger racesim.Logger
}

func NewRaceControlAdapter(raceControl *RaceControl) racesim.Plugin {
	return &RaceControlAdapter{
		RaceControl: raceControl,
	}
}

func (r *RaceControlAdapter) Init(info racesim.SessionInfo, logger racesim.Logger) error {
	r.logger = logger

	for _, agent := range info.Agents {
		r.drivers.Add(agent.ID, NewRaceControlDriver(agent))
	}

	return nil
}

func (r *RaceControlAdapter) OnAgentPose(pose racesim.AgentPose) error {
	driver, ok := r.drivers.Get(pose.AgentID)

	if !ok {
		return fmt.Errorf("livemap: pose for unknown agent %s", pose.AgentID)
	}

	driver.updatePose(pose)

	return nil
}

func (r *RaceControlAdapter) OnLapCompleted(event racesim.LapEvent) error {
	driver, ok := r.drivers.Get(event.AgentID)

	if !ok {
		return fmt.Errorf("livemap: lap for unknown agent %s", event.AgentID)
	}

	driver.completeLap(event)

	return nil
}

func (r *RaceControlAdapter) OnStandingsChanged(standings []racesim.Standing) error {
	r.drivers.applyStandings(standings)

	return nil
}

func (r *RaceControlAdapter) OnAgentFailed(failure *racesim.AgentStepError) error {
	driver, ok := r.drivers.Get(failure.AgentID)

	if !ok {
		return fmt.Errorf("livemap: failure for unknown agent %s", failure.AgentID)
	}

	driver.fail(failure.Err)

	return nil
}

func (r *RaceControlAdapter) OnIncident(incident racesim.Incident) error {
	driver, ok := r.drivers.Get(incident.AgentID)

	if !ok {
		return fmt.Errorf("livemap: incident for unknown agent %s", incident.AgentID)
	}

	driver.addIncident()

	return nil
}

func (r *RaceControlAdapter) OnSessionFinished(standings []racesim.Standing) error {
	r.drivers.applyStandings(standings)

	var results []string

	for _, standing := range standings {
		name := standing.Name

		if name == "" {
			name = standing.AgentID
		}

		if !standing.Active {
			results = append(results, fmt.Sprintf("%s (DNF)", name))
			continue
		}

		results = append(results, fmt.Sprintf("%s: %s", humanize.Ordinal(standing.Position), name))
	}

	r.logger.Infof("Final classification: %s", strings.Join(results, ", "))

	return nil
}
