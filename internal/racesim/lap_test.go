package racesim

import (
	"testing"
	"time"
)

type lapSample struct {
	distance float64
	at       time.Duration
}

type lapDetectorTest struct {
	name         string
	cooldown     time.Duration
	samples      []lapSample
	expectedLaps int
}

func TestLapDetector(t *testing.T) {
	const threshold = 1.0

	tests := []lapDetectorTest{
		{
			name:     "starting on the line is not a lap",
			cooldown: 2 * time.Second,
			samples: []lapSample{
				{distance: 0, at: 0},
				{distance: 0.5, at: 100 * time.Millisecond},
				{distance: 0.2, at: 200 * time.Millisecond},
			},
			expectedLaps: 0,
		},
		{
			name:     "lingering in the zone counts once",
			cooldown: 0,
			samples: []lapSample{
				{distance: 5, at: 0},
				{distance: 0.5, at: time.Second},
				{distance: 0.4, at: 2 * time.Second},
				{distance: 0.9, at: 3 * time.Second},
				{distance: 0.1, at: 4 * time.Second},
			},
			expectedLaps: 1,
		},
		{
			name:     "second crossing inside cooldown is ignored",
			cooldown: 2 * time.Second,
			samples: []lapSample{
				{distance: 5, at: 0},
				{distance: 0.5, at: 500 * time.Millisecond},
				{distance: 5, at: time.Second},
				{distance: 0.5, at: 1500 * time.Millisecond},
			},
			expectedLaps: 1,
		},
		{
			name:     "second crossing exactly at cooldown counts",
			cooldown: 2 * time.Second,
			samples: []lapSample{
				{distance: 5, at: 0},
				{distance: 0.5, at: 500 * time.Millisecond},
				{distance: 5, at: time.Second},
				{distance: 0.5, at: 2500 * time.Millisecond},
			},
			expectedLaps: 2,
		},
		{
			name:     "crossing after cooldown without leaving is ignored",
			cooldown: 2 * time.Second,
			samples: []lapSample{
				{distance: 5, at: 0},
				{distance: 0.5, at: 500 * time.Millisecond},
				{distance: 0.5, at: 5 * time.Second},
			},
			expectedLaps: 1,
		},
		{
			name:     "threshold itself is outside the zone",
			cooldown: 0,
			samples: []lapSample{
				{distance: 5, at: 0},
				{distance: threshold, at: time.Second},
			},
			expectedLaps: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			detector := NewLapDetector(threshold, test.cooldown)
			detector.Prime(test.samples[0].distance)

			laps := 0

			for _, sample := range test.samples[1:] {
				if detector.Check(sample.distance, sample.at) {
					laps++
				}
			}

			if laps != test.expectedLaps {
				t.Errorf("Expected %d laps, got %d", test.expectedLaps, laps)
			}
		})
	}
}

func TestLapDetectorFirstCheckPrimes(t *testing.T) {
	detector := NewLapDetector(1, 0)

	if detector.Check(0, 0) {
		t.Errorf("First check must not count a lap")
	}

	if !detector.Near() {
		t.Errorf("Expected detector to be near the line")
	}
}
