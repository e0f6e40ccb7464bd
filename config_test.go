package livemap

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"justapengu.in/livemap/internal/racesim"
)

const testConfig = `
session:
  name: Sunday Race
  lap_cooldown: 3s
  lap_threshold: 0.5
  max_laps: 3
  parallel: true
  sectors_file: sectors.ini
  steering:
    max_speed: 4
track:
  scale_factor: 0.5
  offset_x: 1
  points:
    - [0, 0]
    - [20, 0]
    - [20, 20]
    - [0, 20]
agents:
  - id: p1
    name: Player 1
    color: "#ff0000"
    lane_offset: -0.5
  - id: p2
    name: Player 2
    max_laps: 1
tick_rate: 30
max_frame_delta: 100ms
http:
  address: 127.0.0.1:9000
log_level: debug
`

const testSectors = `[SECTOR_0]
START=0
END=0.5

[SECTOR_1]
START=0.5
END=1
`

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()

	if err := ioutil.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ioutil.WriteFile(filepath.Join(dir, "sectors.ini"), []byte(testSectors), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := ReadConfig(filepath.Join(dir, "config.yml"))

	if err != nil {
		t.Fatal(err)
	}

	if config.Session.LapCooldown != 3*time.Second || config.Session.LapThreshold != 0.5 || config.Session.MaxLaps != 3 || !config.Session.Parallel {
		t.Errorf("Unexpected session config: %s", config.Session)
	}

	if config.Session.Steering.MaxSpeed != 4 || config.Session.Steering.TurnRate != racesim.DefaultSteering.TurnRate {
		t.Errorf("Unexpected steering config: %+v", config.Session.Steering)
	}

	if len(config.Session.Sectors) != 2 || config.Session.Sectors[1] != (racesim.Sector{Start: 0.5, End: 1}) {
		t.Errorf("Unexpected sectors: %v", config.Session.Sectors)
	}

	if len(config.Agents) != 2 || config.Agents[0].LaneOffset != -0.5 || config.Agents[1].MaxLaps != 1 {
		t.Errorf("Unexpected agents: %+v", config.Agents)
	}

	if config.TickRate != 30 || config.MaxFrameDelta != 100*time.Millisecond || config.HTTP.Address != "127.0.0.1:9000" || config.LogLevel != "debug" {
		t.Errorf("Unexpected config: %+v", config)
	}

	waypoints, err := config.Waypoints()

	if err != nil {
		t.Fatal(err)
	}

	expected := []racesim.Vector3{{X: -1}, {X: 9}, {X: 9, Z: 10}, {X: -1, Z: 10}}

	for i := range expected {
		if waypoints[i] != expected[i] {
			t.Errorf("Waypoint %d: expected %v, got %v", i, expected[i], waypoints[i])
		}
	}
}

func TestReadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	if err := ioutil.WriteFile(path, []byte("track:\n  file: track.json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := ReadConfig(path)

	if err != nil {
		t.Fatal(err)
	}

	if config.TickRate != DefaultTickRate || config.MaxFrameDelta != DefaultMaxFrameDelta || config.HTTP.Address != DefaultHTTPAddress || config.LogLevel != "info" {
		t.Errorf("Unexpected defaults: %+v", config)
	}

	if config.Session.LapCooldown != racesim.DefaultLapCooldown || config.Session.MaxLaps != racesim.DefaultMaxLaps {
		t.Errorf("Unexpected session defaults: %s", config.Session)
	}

	if config.Track.File != filepath.Join(dir, "track.json") {
		t.Errorf("Expected the track file to be relative to the config, got %s", config.Track.File)
	}

	if _, err := config.Waypoints(); err == nil {
		t.Errorf("Expected an error for a missing track file")
	}
}

func TestReadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "invalid yaml", content: "session: [oops"},
		{name: "missing sectors file", content: "session:\n  sectors_file: nope.ini\n"},
		{name: "bad duration", content: "session:\n  lap_cooldown: soon\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(dir, "config.yml")

			if err := ioutil.WriteFile(path, []byte(test.content), 0644); err != nil {
				t.Fatal(err)
			}

			if _, err := ReadConfig(path); err == nil {
				t.Errorf("Expected an error")
			}
		})
	}

	if _, err := ReadConfig(filepath.Join(dir, "missing.yml")); err == nil {
		t.Errorf("Expected an error for a missing config")
	}
}
