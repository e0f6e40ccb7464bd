package livemap

import (
	"context"
	"errors"
	"testing"
	"time"

	"justapengu.in/livemap/internal/racesim"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

var testTrackPoints = []racesim.Vector3{
	{X: 0, Y: 0, Z: 0},
	{X: 10, Y: 0, Z: 0},
	{X: 10, Y: 0, Z: 10},
	{X: 0, Y: 0, Z: 10},
}

var testSessionConfig = racesim.SessionConfig{
	Name:         "Race Control Test",
	LapCooldown:  2 * time.Second,
	LapThreshold: 1,
	MaxLaps:      2,
	Steering: racesim.SteeringConfig{
		MaxSpeed:        5,
		LookaheadRadius: 0.5,
		TurnRate:        8,
	},
}

func testRoster() []*racesim.AgentConfig {
	return []*racesim.AgentConfig{
		{ID: "p1", Name: "Player 1", Color: "#ff0000", LaneOffset: -0.5},
		{ID: "p2", Name: "Player 2", Color: "#0000ff", LaneOffset: 0.5},
	}
}

func newTestRaceControl(t *testing.T, maxFrameDelta time.Duration) *RaceControl {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	rc := NewRaceControl(testSessionConfig, maxFrameDelta, logger, nil)

	if err := rc.Setup(testTrackPoints, testRoster()); err != nil {
		t.Fatal(err)
	}

	return rc
}

func TestRaceControlWithoutSession(t *testing.T) {
	rc := NewRaceControl(testSessionConfig, 0, logrus.New(), nil)

	if _, err := rc.Advance(0.1); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}

	if _, err := rc.Standings(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}

	if _, err := rc.ReportIncident("p1", nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}

	if rc.Readiness() != (racesim.Readiness{}) {
		t.Errorf("Expected nothing to be ready")
	}

	if rc.Finished() {
		t.Errorf("A race control without a session cannot be finished")
	}
}

func TestRaceControlSetupInvalidTrack(t *testing.T) {
	rc := newTestRaceControl(t, 0)

	err := rc.Setup(testTrackPoints[:2], testRoster())

	var trackErr *racesim.InvalidTrackError

	if !errors.As(err, &trackErr) {
		t.Fatalf("Expected an InvalidTrackError, got %v", err)
	}

	// the previous session is kept
	if info, err := rc.Info(); err != nil || len(info.Agents) != 2 {
		t.Errorf("Expected the previous session to survive, got %+v, %v", info, err)
	}

	if err := rc.Setup(testTrackPoints, []*racesim.AgentConfig{{ID: "a"}, {ID: "a"}}); !errors.Is(err, racesim.ErrDuplicateAgent) {
		t.Errorf("Expected ErrDuplicateAgent, got %v", err)
	}

	if rc.Drivers().Len() != 2 {
		t.Errorf("Expected the previous drivers to survive a failed setup")
	}
}

func TestRaceControlClampsFrameDelta(t *testing.T) {
	rc := newTestRaceControl(t, 100*time.Millisecond)

	tests := []struct {
		dt      float64
		elapsed time.Duration
	}{
		{dt: 0.05, elapsed: 50 * time.Millisecond},
		{dt: 5, elapsed: 150 * time.Millisecond},
		{dt: 0.1, elapsed: 250 * time.Millisecond},
		{dt: 0, elapsed: 250 * time.Millisecond},
		{dt: -3, elapsed: 250 * time.Millisecond},
	}

	for _, test := range tests {
		result, err := rc.Advance(test.dt)

		if err != nil {
			t.Fatal(err)
		}

		if result.Elapsed != test.elapsed {
			t.Errorf("Advance(%v): expected %s elapsed, got %s", test.dt, test.elapsed, result.Elapsed)
		}
	}

	var timestepErr *racesim.InvalidTimestepError

	if _, err := rc.Advance(1 / zero()); !errors.As(err, &timestepErr) {
		t.Errorf("Expected an InvalidTimestepError for an infinite delta, got %v", err)
	}
}

func zero() float64 {
	return 0
}

func TestRaceControlDrivers(t *testing.T) {
	rc := newTestRaceControl(t, 0)

	for i := 0; i < 400; i++ {
		if _, err := rc.Advance(0.1); err != nil {
			t.Fatal(err)
		}
	}

	if !rc.Finished() {
		t.Fatalf("Expected the race to be finished")
	}

	drivers := rc.Drivers()

	if drivers.Len() != 2 {
		t.Fatalf("Expected 2 drivers, got %d", drivers.Len())
	}

	standings, err := rc.Standings()

	if err != nil {
		t.Fatal(err)
	}

	position := 0

	err = drivers.Each(func(agentID string, driver *RaceControlDriver) error {
		position++

		data := driver.Data()

		if data.Position != position || standings[position-1].AgentID != agentID {
			t.Errorf("Driver %s is out of order", agentID)
		}

		if data.Laps.NumLaps != 2 || !data.Finished {
			t.Errorf("Driver %s: expected 2 laps, got %d", agentID, data.Laps.NumLaps)
		}

		firstLap := data.Laps.TotalLapTime - data.Laps.LastLap
		expectedBest := data.Laps.LastLap

		if firstLap < expectedBest {
			expectedBest = firstLap
		}

		if data.Laps.BestLap != expectedBest {
			t.Errorf("Driver %s: unexpected best lap %s", agentID, data.Laps.BestLap)
		}

		if data.Laps.TopSpeedBestLap != testSessionConfig.Steering.MaxSpeed {
			t.Errorf("Driver %s: unexpected top speed %f", agentID, data.Laps.TopSpeedBestLap)
		}

		if len(data.Laps.LastLapSplits) != racesim.DefaultNumSectors || len(data.Laps.BestSplits) != racesim.DefaultNumSectors {
			t.Fatalf("Driver %s: expected a split per sector, got %v", agentID, data.Laps.LastLapSplits)
		}

		var total time.Duration

		for _, split := range data.Laps.LastLapSplits {
			total += split.SplitTime
		}

		if total != data.Laps.LastLap {
			t.Errorf("Driver %s: splits add up to %s, last lap was %s", agentID, total, data.Laps.LastLap)
		}

		if len(data.Laps.CurrentLapSplits) != 0 {
			t.Errorf("Driver %s: a finished driver has no current lap", agentID)
		}

		return nil
	})

	if err != nil {
		t.Fatal(err)
	}
}

func TestRaceControlIncidents(t *testing.T) {
	rc := newTestRaceControl(t, 0)

	if _, err := rc.Advance(0.1); err != nil {
		t.Fatal(err)
	}

	incident, err := rc.ReportIncident("p2", []racesim.SectorSeverity{{Sector: 4, Severity: racesim.SeveritySlow}})

	if err != nil {
		t.Fatal(err)
	}

	incidents, err := rc.Incidents()

	if err != nil {
		t.Fatal(err)
	}

	if len(incidents) != 1 || incidents[0].ID != incident.ID {
		t.Errorf("Unexpected incidents: %v", incidents)
	}

	driver, ok := rc.Drivers().Get("p2")

	if !ok || driver.Data().Incidents != 1 {
		t.Errorf("Expected the incident to be counted against p2")
	}

	if _, err := rc.ReportIncident("p3", []racesim.SectorSeverity{{Sector: 4, Severity: racesim.SeveritySlow}}); !errors.Is(err, racesim.ErrUnknownAgent) {
		t.Errorf("Expected ErrUnknownAgent, got %v", err)
	}
}

func TestRaceControlAdapterFailure(t *testing.T) {
	rc := newTestRaceControl(t, 0)
	adapter := NewRaceControlAdapter(rc)

	if err := adapter.OnAgentFailed(&racesim.AgentStepError{AgentID: "p1", Err: errors.New("wheel fell off")}); err != nil {
		t.Fatal(err)
	}

	driver, _ := rc.Drivers().Get("p1")
	data := driver.Data()

	if data.Active || data.Failure != "wheel fell off" {
		t.Errorf("Expected p1 to be marked as failed, got %+v", data)
	}

	if err := adapter.OnAgentPose(racesim.AgentPose{AgentID: "nobody"}); err == nil {
		t.Errorf("Expected an error for an unknown agent")
	}
}

type fixedClock float64

func (c fixedClock) Sample() float64 {
	return float64(c)
}

func TestRaceControlRun(t *testing.T) {
	rc := newTestRaceControl(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := rc.Run(ctx, 100, fixedClock(0.1)); err != nil {
		t.Fatal(err)
	}

	if !rc.Readiness().StandingsAvailable {
		t.Errorf("Expected the loop to have ticked")
	}

	driver, _ := rc.Drivers().Get("p1")

	if driver.Data().LastSeen == 0 {
		t.Errorf("Expected p1 to have moved")
	}
}

func TestRaceControlSetupWarnsAboutLongFrames(t *testing.T) {
	tests := []struct {
		name          string
		maxFrameDelta time.Duration
		warns         bool
	}{
		{name: "within the start zone", maxFrameDelta: 100 * time.Millisecond},
		{name: "exactly the bound", maxFrameDelta: 400 * time.Millisecond},
		{name: "skips the start zone", maxFrameDelta: time.Second, warns: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, hook := logrustest.NewNullLogger()

			rc := NewRaceControl(testSessionConfig, tc.maxFrameDelta, logger, nil)

			if err := rc.Setup(testTrackPoints, testRoster()); err != nil {
				t.Fatal(err)
			}

			warned := false

			for _, entry := range hook.AllEntries() {
				if entry.Level == logrus.WarnLevel {
					warned = true
				}
			}

			if warned != tc.warns {
				t.Errorf("Expected warning: %t, got %t", tc.warns, warned)
			}
		})
	}
}
