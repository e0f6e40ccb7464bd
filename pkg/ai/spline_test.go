package ai

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"
	"path/filepath"
	"testing"

	"justapengu.in/livemap/internal/racesim"
)

func encodeSpline(t *testing.T, points []Vector3F, extras int) []byte {
	t.Helper()

	buf := new(bytes.Buffer)

	write := func(data interface{}) {
		if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
			t.Fatal(err)
		}
	}

	write(version)
	write(int32(len(points)))
	write(int32(90000))
	write(int32(0))

	var length float32

	for i, position := range points {
		if i > 0 {
			length += float32(points[i-1].Vector3().DistanceTo(position.Vector3()))
		}

		write(Point{Position: position, Length: length, ID: int32(i)})
	}

	write(int32(extras))

	for i := 0; i < extras; i++ {
		write(Extra{Speed: 50, SideLeft: 5, SideRight: 5})
	}

	// no grid
	write(int32(0))

	return buf.Bytes()
}

func TestReadSpline(t *testing.T) {
	points := []Vector3F{
		{X: -20, Z: -10},
		{X: 20, Z: -10},
		{X: 20, Z: -10},
		{X: 20, Z: 10},
		{X: -20, Z: 10},
		{X: -20, Z: -10},
	}

	path := filepath.Join(t.TempDir(), "fast_lane.ai")

	if err := ioutil.WriteFile(path, encodeSpline(t, points, len(points)), 0644); err != nil {
		t.Fatal(err)
	}

	spline, err := ReadSpline(path)

	if err != nil {
		t.Fatal(err)
	}

	if spline.NumPoints != 6 || len(spline.Points) != 6 || len(spline.ExtraPoints) != 6 || spline.LapTime != 90000 {
		t.Fatalf("Unexpected spline header: %+v", spline)
	}

	if x, z := spline.Dimensions(); x != 40 || z != 20 {
		t.Errorf("Expected dimensions 40x20, got %vx%v", x, z)
	}

	if spline.Length() != 120 {
		t.Errorf("Expected length 120, got %v", spline.Length())
	}

	waypoints := spline.Waypoints()

	if len(waypoints) != 4 {
		t.Fatalf("Expected 4 waypoints, got %v", waypoints)
	}

	track, err := racesim.NewTrack(waypoints)

	if err != nil {
		t.Fatal(err)
	}

	if track.LapDistance() != 120 {
		t.Errorf("Expected a 120 long lap, got %f", track.LapDistance())
	}
}

func TestDecodeSplineErrors(t *testing.T) {
	valid := encodeSpline(t, []Vector3F{{X: 1}, {X: 2}, {Z: 3}}, 3)

	badVersion := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badVersion, 5)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "bad version", data: badVersion},
		{name: "truncated points", data: valid[:40]},
		{name: "truncated extras", data: valid[:len(valid)-12]},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := DecodeSpline(bytes.NewReader(test.data)); err == nil {
				t.Errorf("Expected an error")
			}
		})
	}

	if _, err := ReadSpline(filepath.Join(t.TempDir(), "missing.ai")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}
