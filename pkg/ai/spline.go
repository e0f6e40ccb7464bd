// Package ai reads the racing line out of Assetto Corsa AI spline files
// (fast_lane.ai), the format described at https://github.com/gro-ove/actools
package ai

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"justapengu.in/livemap/internal/racesim"
)

const version = int32(7)

// Vector3F is the on-disk vector layout of a spline.
type Vector3F struct {
	X float32
	Y float32
	Z float32
}

func (v Vector3F) Vector3() racesim.Vector3 {
	return racesim.Vector3{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

type Spline struct {
	Version     int32
	NumPoints   int32
	LapTime     int32
	SampleCount int32

	Points      []Point
	ExtraPoints []Extra
}

type Point struct {
	Position Vector3F
	Length   float32
	ID       int32
}

type Extra struct {
	Speed         float32
	Gas           float32
	Brake         float32
	ObsoleteLatG  float32
	Radius        float32
	SideLeft      float32
	SideRight     float32
	Camber        float32
	Direction     float32
	Normal        Vector3F
	Length        float32
	ForwardVector Vector3F
	Tag           float32
	Grade         float32
}

func (s *Spline) Min() (float32, float32) {
	if len(s.Points) == 0 {
		return 0, 0
	}

	minX, minZ := s.Points[0].Position.X, s.Points[0].Position.Z

	for _, point := range s.Points {
		minX = float32(math.Min(float64(minX), float64(point.Position.X)))
		minZ = float32(math.Min(float64(minZ), float64(point.Position.Z)))
	}

	return minX, minZ
}

func (s *Spline) Max() (float32, float32) {
	if len(s.Points) == 0 {
		return 0, 0
	}

	maxX, maxZ := s.Points[0].Position.X, s.Points[0].Position.Z

	for _, point := range s.Points {
		maxX = float32(math.Max(float64(maxX), float64(point.Position.X)))
		maxZ = float32(math.Max(float64(maxZ), float64(point.Position.Z)))
	}

	return maxX, maxZ
}

func (s *Spline) Dimensions() (float32, float32) {
	minX, minZ := s.Min()
	maxX, maxZ := s.Max()

	return maxX - minX, maxZ - minZ
}

// Length is the racing line length recorded in the spline.
func (s *Spline) Length() float32 {
	if len(s.Points) == 0 {
		return 0
	}

	return s.Points[len(s.Points)-1].Length
}

// Waypoints converts the spline into track waypoints. Repeated points, including
// a closing point equal to the first, are dropped since a track must not have
// zero length segments.
func (s *Spline) Waypoints() []racesim.Vector3 {
	var waypoints []racesim.Vector3

	for _, point := range s.Points {
		position := point.Position.Vector3()

		if len(waypoints) > 0 && waypoints[len(waypoints)-1].DistanceTo(position) < minPointSpacing {
			continue
		}

		waypoints = append(waypoints, position)
	}

	for len(waypoints) > 1 && waypoints[len(waypoints)-1].DistanceTo(waypoints[0]) < minPointSpacing {
		waypoints = waypoints[:len(waypoints)-1]
	}

	return waypoints
}

const minPointSpacing = 1e-6

func ReadSpline(aiFile string) (*Spline, error) {
	f, err := os.Open(aiFile)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	return DecodeSpline(f)
}

// DecodeSpline reads the header, points and extra points of a spline. The
// spatial grid which follows is not needed to follow the line and is skipped.
func DecodeSpline(r io.Reader) (*Spline, error) {
	var spline Spline

	if err := binary.Read(r, binary.LittleEndian, &spline.Version); err != nil {
		return nil, err
	}

	if spline.Version != version {
		return nil, fmt.Errorf("ai: version: %d is not supported", spline.Version)
	}

	if err := binary.Read(r, binary.LittleEndian, &spline.NumPoints); err != nil {
		return nil, err
	}

	if spline.NumPoints < 0 {
		return nil, fmt.Errorf("ai: invalid point count: %d", spline.NumPoints)
	}

	if err := binary.Read(r, binary.LittleEndian, &spline.LapTime); err != nil {
		return nil, err
	}

	if err := binary.Read(r, binary.LittleEndian, &spline.SampleCount); err != nil {
		return nil, err
	}

	for i := 0; i < int(spline.NumPoints); i++ {
		var point Point

		if err := binary.Read(r, binary.LittleEndian, &point); err != nil {
			return nil, err
		}

		spline.Points = append(spline.Points, point)
	}

	var extraPoints int32

	if err := binary.Read(r, binary.LittleEndian, &extraPoints); err != nil {
		return nil, err
	}

	for i := 0; i < int(extraPoints); i++ {
		var extra Extra

		if err := binary.Read(r, binary.LittleEndian, &extra); err != nil {
			return nil, err
		}

		spline.ExtraPoints = append(spline.ExtraPoints, extra)
	}

	return &spline, nil
}
