package racesim

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Logger = logrus.FieldLogger

// Plugin receives the outbound events of a session. Calls are made
// synchronously from Session.Tick, in roster order.
type Plugin interface {
	Init(info SessionInfo, logger Logger) error

	OnAgentPose(pose AgentPose) error
	OnLapCompleted(event LapEvent) error
	OnStandingsChanged(standings []Standing) error
	OnAgentFailed(failure *AgentStepError) error
	OnIncident(incident Incident) error
	OnSessionFinished(standings []Standing) error
}

type SessionInfo struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	TrackPoints int         `json:"track_points"`
	LapDistance float64     `json:"lap_distance"`
	NumSectors  int         `json:"num_sectors"`
	Agents      []AgentInfo `json:"agents"`
}

type AgentInfo struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	MaxLaps    uint    `json:"max_laps"`
	LaneOffset float64 `json:"lane_offset"`
}

type multiPlugin struct {
	plugins []Plugin
}

func MultiPlugin(plugins ...Plugin) Plugin {
	return &multiPlugin{plugins: plugins}
}

func (mp *multiPlugin) each(fn func(plugin Plugin) error) error {
	g, _ := errgroup.WithContext(context.Background())

	for _, plugin := range mp.plugins {
		plugin := plugin
		g.Go(func() error {
			return fn(plugin)
		})
	}

	return g.Wait()
}

func (mp *multiPlugin) Init(info SessionInfo, logger Logger) error {
	return mp.each(func(plugin Plugin) error {
		return plugin.Init(info, logger)
	})
}

func (mp *multiPlugin) OnAgentPose(pose AgentPose) error {
	return mp.each(func(plugin Plugin) error {
		return plugin.OnAgentPose(pose)
	})
}

func (mp *multiPlugin) OnLapCompleted(event LapEvent) error {
	return mp.each(func(plugin Plugin) error {
		return plugin.OnLapCompleted(event)
	})
}

func (mp *multiPlugin) OnStandingsChanged(standings []Standing) error {
	return mp.each(func(plugin Plugin) error {
		return plugin.OnStandingsChanged(standings)
	})
}

func (mp *multiPlugin) OnAgentFailed(failure *AgentStepError) error {
	return mp.each(func(plugin Plugin) error {
		return plugin.OnAgentFailed(failure)
	})
}

func (mp *multiPlugin) OnIncident(incident Incident) error {
	return mp.each(func(plugin Plugin) error {
		return plugin.OnIncident(incident)
	})
}

func (mp *multiPlugin) OnSessionFinished(standings []Standing) error {
	return mp.each(func(plugin Plugin) error {
		return plugin.OnSessionFinished(standings)
	})
}

type nilPlugin struct{}

func (nilPlugin) Init(SessionInfo, Logger) error { return nil }

func (nilPlugin) OnAgentPose(AgentPose) error { return nil }

func (nilPlugin) OnLapCompleted(LapEvent) error { return nil }

func (nilPlugin) OnStandingsChanged([]Standing) error { return nil }

func (nilPlugin) OnAgentFailed(*AgentStepError) error { return nil }

func (nilPlugin) OnIncident(Incident) error { return nil }

func (nilPlugin) OnSessionFinished([]Standing) error { return nil }
