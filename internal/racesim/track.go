package racesim

import (
	"fmt"
	"math"
)

// minSegmentLength is the distance under which two consecutive waypoints are considered coincident.
const minSegmentLength = 1e-9

// Track is a closed racing line. A Track is immutable once built and may be
// shared between any number of agents.
type Track struct {
	points     []Vector3
	cumulative []float64
	length     float64
}

func NewTrack(points []Vector3) (*Track, error) {
	if len(points) < 3 {
		return nil, &InvalidTrackError{Reason: fmt.Sprintf("need at least 3 points, got %d", len(points)), Index: -1}
	}

	distinct := make(map[Vector3]bool)

	for i, point := range points {
		if !point.IsFinite() {
			return nil, &InvalidTrackError{Reason: "non-finite coordinate", Index: i}
		}

		next := points[(i+1)%len(points)]

		if point.DistanceTo(next) < minSegmentLength {
			return nil, &InvalidTrackError{Reason: "consecutive points coincide", Index: i}
		}

		distinct[point] = true
	}

	if len(distinct) < 3 {
		return nil, &InvalidTrackError{Reason: fmt.Sprintf("need at least 3 distinct points, got %d", len(distinct)), Index: -1}
	}

	t := &Track{
		points:     make([]Vector3, len(points)),
		cumulative: make([]float64, len(points)),
	}

	copy(t.points, points)

	for i := range t.points {
		t.cumulative[i] = t.length
		t.length += t.SegmentLength(i)
	}

	return t, nil
}

// Len is the number of waypoints on the track.
func (t *Track) Len() int {
	return len(t.points)
}

// PointAt returns the waypoint at index, wrapping around the loop in both directions.
func (t *Track) PointAt(index int) Vector3 {
	return t.points[t.wrap(index)]
}

func (t *Track) Next(index int) int {
	return t.wrap(index + 1)
}

func (t *Track) Prev(index int) int {
	return t.wrap(index - 1)
}

func (t *Track) Start() Vector3 {
	return t.points[0]
}

func (t *Track) Points() []Vector3 {
	out := make([]Vector3, len(t.points))
	copy(out, t.points)

	return out
}

// LapDistance is the length of one full loop.
func (t *Track) LapDistance() float64 {
	return t.length
}

// SegmentLength is the distance from waypoint index to the waypoint after it.
func (t *Track) SegmentLength(index int) float64 {
	return t.PointAt(index).DistanceTo(t.PointAt(index + 1))
}

func (t *Track) Nearest(position Vector3) int {
	nearest := 0
	nearestDistance := math.Inf(1)

	for i, point := range t.points {
		if d := point.DistanceTo(position); d < nearestDistance {
			nearest = i
			nearestDistance = d
		}
	}

	return nearest
}

// Projection returns where position falls on the segment starting at waypoint
// segment, as a fraction of the segment. It is not clamped.
func (t *Track) Projection(segment int, position Vector3) float64 {
	a, b := t.PointAt(segment), t.PointAt(segment+1)
	ab := b.Sub(a)

	return position.Sub(a).Dot(ab) / ab.Dot(ab)
}

// DistanceAlong measures how far along the lap position is, assuming it lies on
// the segment starting at waypoint segment.
func (t *Track) DistanceAlong(segment int, position Vector3) float64 {
	segment = t.wrap(segment)
	f := math.Max(0, math.Min(1, t.Projection(segment, position)))

	return t.cumulative[segment] + f*t.SegmentLength(segment)
}

// Offset builds a lane-shifted copy of the track. Every waypoint is moved by
// lateral along up × tangent, mitred at corners so the lane keeps its width.
// An offset of zero returns the receiver.
func (t *Track) Offset(lateral float64) (*Track, error) {
	if lateral == 0 {
		return t, nil
	}

	if !isFinite(lateral) {
		return nil, &InvalidTrackError{Reason: "non-finite lane offset", Index: -1}
	}

	out := make([]Vector3, len(t.points))

	for i, point := range t.points {
		in := point.Sub(t.PointAt(i - 1)).Normalize()
		outgoing := t.PointAt(i + 1).Sub(point).Normalize()

		normalIn := Up.Cross(in).Normalize()
		normalOut := Up.Cross(outgoing).Normalize()

		mitre := normalIn.Add(normalOut).Normalize()

		if mitre.IsZero() {
			mitre = normalIn
		}

		// hairpins would push the mitre out to infinity
		scale := math.Max(mitre.Dot(normalIn), 0.25)

		out[i] = point.Add(mitre.Mul(lateral / scale))
	}

	return NewTrack(out)
}

func (t *Track) wrap(index int) int {
	n := len(t.points)
	index %= n

	if index < 0 {
		index += n
	}

	return index
}
