package racesim

import (
	"testing"
	"time"
)

func TestWallClock(t *testing.T) {
	start := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start

	clock := NewWallClock()
	clock.now = func() time.Time {
		return now
	}

	if dt := clock.Sample(); dt != 0 {
		t.Errorf("Expected the first sample to be 0, got %f", dt)
	}

	now = now.Add(16 * time.Millisecond)

	if dt := clock.Sample(); dt != 0.016 {
		t.Errorf("Expected 0.016, got %f", dt)
	}

	// the wall clock went backwards
	now = now.Add(-time.Second)

	if dt := clock.Sample(); dt != 0 {
		t.Errorf("Expected a negative delta to be 0, got %f", dt)
	}

	now = start.Add(time.Minute)

	if dt := clock.Sample(); dt != (time.Minute - 16*time.Millisecond).Seconds() {
		t.Errorf("Long gaps should not be clamped, got %f", dt)
	}

	if clock.Elapsed() != time.Minute {
		t.Errorf("Expected a minute elapsed, got %s", clock.Elapsed())
	}
}

func TestManualClock(t *testing.T) {
	clock := &ManualClock{}

	if dt := clock.Sample(); dt != 0 {
		t.Errorf("Expected 0, got %f", dt)
	}

	clock.Advance(100 * time.Millisecond)
	clock.Advance(-time.Second)
	clock.Advance(150 * time.Millisecond)

	if dt := clock.Sample(); dt != 0.25 {
		t.Errorf("Expected 0.25, got %f", dt)
	}

	if dt := clock.Sample(); dt != 0 {
		t.Errorf("Expected 0 with nothing pending, got %f", dt)
	}

	if clock.Elapsed() != 250*time.Millisecond {
		t.Errorf("Unexpected elapsed time %s", clock.Elapsed())
	}
}
