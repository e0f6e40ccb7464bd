package livemap

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"justapengu.in/livemap/internal/racesim"
)

var ErrNoSession = errors.New("livemap: race control has no session, call Setup first")

// RaceControl is the boundary between the race simulation and everything that
// watches it. It owns a single session, serialises access to it and drives it
// from a clock.
type RaceControl struct {
	config        racesim.SessionConfig
	maxFrameDelta time.Duration

	session *racesim.Session
	drivers *DriverMap
	plugin  racesim.Plugin
	logger  racesim.Logger

	mutex sync.RWMutex
}

func NewRaceControl(config racesim.SessionConfig, maxFrameDelta time.Duration, logger racesim.Logger, plugin racesim.Plugin) *RaceControl {
	return &RaceControl{
		config:        config,
		maxFrameDelta: maxFrameDelta,
		drivers:       NewDriverMap(),
		plugin:        plugin,
		logger:        logger,
	}
}

// Setup replaces the current session with a new one on the given track.
func (rc *RaceControl) Setup(trackPoints []racesim.Vector3, roster []*racesim.AgentConfig) error {
	track, err := racesim.NewTrack(trackPoints)

	if err != nil {
		return err
	}

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	plugins := []racesim.Plugin{NewRaceControlAdapter(rc)}

	if rc.plugin != nil {
		plugins = append(plugins, rc.plugin)
	}

	previousDrivers := rc.drivers
	rc.drivers = NewDriverMap()

	session, err := racesim.NewSession(rc.config, track, roster, rc.logger, racesim.MultiPlugin(plugins...))

	if err != nil {
		rc.drivers = previousDrivers
		return err
	}

	rc.session = session

	rc.logger.Infof("Race control set up session %s with %d agents on a %.2f long track", session.ID, len(roster), track.LapDistance())

	if max := session.MaxTimestep(); rc.maxFrameDelta > max {
		rc.logger.Warnf("Max frame delta %s is longer than %s, the fastest agent can skip the start zone in one frame and miss laps", rc.maxFrameDelta, max)
	}

	return nil
}

// Advance moves the session on by dt seconds. Frame deltas longer than the
// configured maximum are clamped, so a suspended process does not teleport
// agents around the track.
func (rc *RaceControl) Advance(dt float64) (*racesim.TickResult, error) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if rc.session == nil {
		return nil, ErrNoSession
	}

	// infinite deltas are left for the session to reject
	if max := rc.maxFrameDelta.Seconds(); rc.maxFrameDelta > 0 && dt > max && !math.IsInf(dt, 1) {
		rc.logger.Debugf("Clamping frame delta %.3fs to %.3fs", dt, max)
		dt = max
	}

	result, err := rc.session.Tick(dt)

	if err != nil {
		return nil, err
	}

	if result.Tick > 0 {
		for _, standing := range result.Standings {
			if driver, ok := rc.drivers.Get(standing.AgentID); ok {
				driver.updateStanding(standing, result.Elapsed)
			}
		}
	}

	return result, nil
}

// Run advances the session every tick of the ticker until the context is done.
func (rc *RaceControl) Run(ctx context.Context, tickRate int, clock racesim.Clock) error {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}

	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	// discard the time spent before the first tick
	clock.Sample()

	finished := false

	for {
		select {
		case <-ctx.Done():
			rc.logger.Infof("Race control loop stopped")
			return nil
		case <-ticker.C:
			_, err := rc.Advance(clock.Sample())

			if err != nil {
				rc.logger.WithError(err).Error("Could not advance session")
				continue
			}

			if !finished && rc.Finished() {
				finished = true
				rc.logger.Infof("All agents are done, the session will be kept until it is set up again")
			}
		}
	}
}

func (rc *RaceControl) Finished() bool {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	return rc.session != nil && rc.session.Finished()
}

func (rc *RaceControl) Readiness() racesim.Readiness {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	if rc.session == nil {
		return racesim.Readiness{}
	}

	return rc.session.Readiness()
}

func (rc *RaceControl) Info() (racesim.SessionInfo, error) {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	if rc.session == nil {
		return racesim.SessionInfo{}, ErrNoSession
	}

	return rc.session.Info(), nil
}

// TrackPoints returns the centre line of the track, for renderers.
func (rc *RaceControl) TrackPoints() ([]racesim.Vector3, error) {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	if rc.session == nil {
		return nil, ErrNoSession
	}

	return rc.session.Track().Points(), nil
}

func (rc *RaceControl) Standings() ([]racesim.Standing, error) {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	if rc.session == nil {
		return nil, ErrNoSession
	}

	return rc.session.Standings(), nil
}

func (rc *RaceControl) Drivers() *DriverMap {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	return rc.drivers
}

func (rc *RaceControl) Incidents() ([]racesim.Incident, error) {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	if rc.session == nil {
		return nil, ErrNoSession
	}

	return rc.session.Incidents(), nil
}

func (rc *RaceControl) ReportIncident(agentID string, sectors []racesim.SectorSeverity) (racesim.Incident, error) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if rc.session == nil {
		return racesim.Incident{}, ErrNoSession
	}

	return rc.session.ReportIncident(agentID, sectors)
}

func (rc *RaceControl) SetSpeedLimiter(limiter racesim.SpeedLimiter) error {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if rc.session == nil {
		return ErrNoSession
	}

	rc.session.SetSpeedLimiter(limiter)

	return nil
}
