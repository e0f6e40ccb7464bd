package racesim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TickResult is everything that happened in one call to Session.Tick.
type TickResult struct {
	Tick    uint64        `json:"tick"`
	Elapsed time.Duration `json:"elapsed"`

	Poses    []AgentPose `json:"poses"`
	Laps     []LapEvent  `json:"laps"`
	Failures StepErrors  `json:"-"`

	Standings        []Standing `json:"standings"`
	StandingsChanged bool       `json:"standings_changed"`
}

// Readiness replaces push notifications for "is there anything to show yet".
type Readiness struct {
	RosterLoaded       bool `json:"roster_loaded"`
	StandingsAvailable bool `json:"standings_available"`
}

// Session is a race between a fixed roster of agents. It is advanced
// explicitly with Tick and is not safe for concurrent use.
type Session struct {
	ID string

	config  SessionConfig
	track   *Track
	sectors Sectors
	agents  []*Agent
	byID    map[string]*Agent

	incidents    *IncidentBoard
	speedLimiter SpeedLimiter

	elapsed     time.Duration
	tick        uint64
	maxTimestep time.Duration

	lastStandings      []Standing
	standingsAvailable bool
	finishedBroadcast  bool

	plugin Plugin
	logger Logger
}

func NewSession(config SessionConfig, track *Track, roster []*AgentConfig, logger Logger, plugin Plugin) (*Session, error) {
	if plugin == nil {
		plugin = nilPlugin{}
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if track == nil {
		return nil, &InvalidTrackError{Reason: "no track", Index: -1}
	}

	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}

	sectors := config.Sectors

	if len(sectors) == 0 {
		sectors = EvenSectors(config.NumSectors)
	}

	s := &Session{
		ID:           uuid.New().String(),
		config:       config,
		track:        track,
		sectors:      sectors,
		byID:         make(map[string]*Agent),
		incidents:    NewIncidentBoard(len(sectors)),
		speedLimiter: UnlimitedSpeed{},
		plugin:       plugin,
		logger:       logger,
	}

	for _, entrant := range roster {
		agentConfig := *entrant

		if agentConfig.ID == "" {
			agentConfig.ID = uuid.New().String()
		}

		if _, ok := s.byID[agentConfig.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, agentConfig.ID)
		}

		if agentConfig.MaxLaps == 0 {
			agentConfig.MaxLaps = config.MaxLaps
		}

		steeringConfig := config.Steering

		if agentConfig.Steering != nil {
			steeringConfig = *agentConfig.Steering

			if err := config.ValidateSteering(steeringConfig); err != nil {
				return nil, fmt.Errorf("agent %s: %w", agentConfig.ID, err)
			}
		}

		if max := config.MaxTimestep(steeringConfig); s.maxTimestep == 0 || max < s.maxTimestep {
			s.maxTimestep = max
		}

		agentTrack, err := track.Offset(agentConfig.LaneOffset)

		if err != nil {
			return nil, err
		}

		agent := newAgent(&agentConfig, agentTrack, NewPathFollower(steeringConfig), NewLapDetector(config.LapThreshold, config.LapCooldown))

		s.agents = append(s.agents, agent)
		s.byID[agent.ID] = agent

		s.logger.Debugf("Added agent %s to session (lane offset: %.3f, max laps: %d)", agent, agentConfig.LaneOffset, agent.MaxLaps)
	}

	if err := s.plugin.Init(s.Info(), logger); err != nil {
		return nil, err
	}

	s.logger.Infof("Created session %s: %s, %d agents", s.ID, config, len(s.agents))

	return s, nil
}

func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		ID:          s.ID,
		Name:        s.config.Name,
		TrackPoints: s.track.Len(),
		LapDistance: s.track.LapDistance(),
		NumSectors:  len(s.sectors),
	}

	for _, agent := range s.agents {
		info.Agents = append(info.Agents, AgentInfo{
			ID:         agent.ID,
			Name:       agent.Name,
			Color:      agent.Color,
			MaxLaps:    agent.MaxLaps,
			LaneOffset: agent.LaneOffset,
		})
	}

	return info
}

func (s *Session) Track() *Track {
	return s.track
}

func (s *Session) Sectors() Sectors {
	return s.sectors
}

func (s *Session) Agents() []*Agent {
	return append([]*Agent(nil), s.agents...)
}

func (s *Session) Agent(id string) (*Agent, bool) {
	agent, ok := s.byID[id]

	return agent, ok
}

func (s *Session) Elapsed() time.Duration {
	return s.elapsed
}

func (s *Session) TickCount() uint64 {
	return s.tick
}

func (s *Session) Readiness() Readiness {
	return Readiness{
		RosterLoaded:       len(s.agents) > 0,
		StandingsAvailable: s.standingsAvailable,
	}
}

// Finished reports whether no agent has anything left to do.
func (s *Session) Finished() bool {
	for _, agent := range s.agents {
		if agent.Active() && !agent.Finished() {
			return false
		}
	}

	return true
}

// MaxTimestep is the longest dt the configured agents can be stepped with
// without risking a missed start zone crossing.
func (s *Session) MaxTimestep() time.Duration {
	return s.maxTimestep
}

// SetSteering replaces an agent's steering controller.
func (s *Session) SetSteering(agentID string, steering SteeringController) error {
	agent, ok := s.byID[agentID]

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	agent.steering = steering

	return nil
}

func (s *Session) SetSpeedLimiter(limiter SpeedLimiter) {
	if limiter == nil {
		limiter = UnlimitedSpeed{}
	}

	s.speedLimiter = limiter
}

func (s *Session) ReportIncident(agentID string, sectors []SectorSeverity) (Incident, error) {
	if _, ok := s.byID[agentID]; !ok {
		return Incident{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	incident, err := s.incidents.Report(agentID, sectors, s.elapsed)

	if err != nil {
		return Incident{}, err
	}

	s.logger.Infof("Incident %s reported for agent %s in %d sector(s)", incident.ID, agentID, len(incident.Sectors))

	s.notify("incident", func() error {
		return s.plugin.OnIncident(incident)
	})

	return incident, nil
}

func (s *Session) Incidents() []Incident {
	return s.incidents.All()
}

type stepOutcome struct {
	event *LapEvent
	err   error
}

// Tick advances the session by dt seconds. A non-finite dt is rejected with an
// *InvalidTimestepError and nothing changes. A dt of zero or less is a no-op.
// Agent faults do not fail the tick, they are returned in TickResult.Failures
// and the failing agents are taken out of the race.
func (s *Session) Tick(dt float64) (*TickResult, error) {
	if !isFinite(dt) {
		return nil, &InvalidTimestepError{DT: dt}
	}

	if dt <= 0 {
		s.logger.Debugf("Ignoring tick with non-positive timestep %v", dt)

		return &TickResult{Tick: s.tick, Elapsed: s.elapsed, Standings: s.Standings()}, nil
	}

	s.tick++
	s.elapsed += time.Duration(math.Round(dt * float64(time.Second)))

	outcomes := make([]stepOutcome, len(s.agents))
	now := s.elapsed

	step := func(i int) {
		agent := s.agents[i]

		if !agent.Active() || agent.Finished() {
			return
		}

		event, err := agent.step(dt, now, s.speedLimiter)

		outcomes[i] = stepOutcome{event: event, err: err}
	}

	if s.config.Parallel {
		g, _ := errgroup.WithContext(context.Background())

		for i := range s.agents {
			i := i
			g.Go(func() error {
				step(i)
				return nil
			})
		}

		_ = g.Wait()
	} else {
		for i := range s.agents {
			step(i)
		}
	}

	result := &TickResult{
		Tick:    s.tick,
		Elapsed: s.elapsed,
	}

	for i, outcome := range outcomes {
		agent := s.agents[i]

		if outcome.err != nil {
			failure := &AgentStepError{AgentID: agent.ID, Tick: s.tick, Err: outcome.err}
			agent.deactivate(failure)
			result.Failures = append(result.Failures, failure)

			s.logger.WithError(outcome.err).Errorf("Agent %s failed a step and is now inactive", agent)

			s.notify("agent failed", func() error {
				return s.plugin.OnAgentFailed(failure)
			})

			continue
		}

		if !agent.Active() {
			continue
		}

		pose := AgentPose{AgentID: agent.ID, Tick: s.tick, Pose: agent.Pose()}
		result.Poses = append(result.Poses, pose)

		s.notify("agent pose", func() error {
			return s.plugin.OnAgentPose(pose)
		})

		if outcome.event == nil {
			continue
		}

		event := *outcome.event
		result.Laps = append(result.Laps, event)

		s.logger.Infof("Agent %s completed lap %d/%d in %s", agent, event.LapNumber, agent.MaxLaps, event.LapTime)

		s.notify("lap completed", func() error {
			return s.plugin.OnLapCompleted(event)
		})
	}

	result.Standings = s.Standings()

	if !s.standingsAvailable || standingsChanged(s.lastStandings, result.Standings) {
		result.StandingsChanged = true
		standings := result.Standings

		s.notify("standings changed", func() error {
			return s.plugin.OnStandingsChanged(standings)
		})
	}

	s.lastStandings = result.Standings
	s.standingsAvailable = true

	if !s.finishedBroadcast && s.Finished() {
		s.finishedBroadcast = true
		s.logger.Infof("Session %s finished after %s (%d ticks)", s.ID, s.elapsed, s.tick)

		standings := result.Standings

		s.notify("session finished", func() error {
			return s.plugin.OnSessionFinished(standings)
		})
	}

	return result, nil
}

func (s *Session) notify(name string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.WithError(err).Errorf("On %s plugin returned an error", name)
	}
}
