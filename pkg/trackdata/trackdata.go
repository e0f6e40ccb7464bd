// Package trackdata loads track waypoints from map assets.
package trackdata

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"justapengu.in/livemap/internal/racesim"
	"justapengu.in/livemap/pkg/ai"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultScaleFactor converts map asset units (pixels of the track image) into
// scene units.
const DefaultScaleFactor = 0.03

// DefaultScale is the scale factor used for path when none is configured. AI
// splines are already in world units and are not scaled; point lists are map
// image pixels and use DefaultScaleFactor.
func DefaultScale(path string) float64 {
	if strings.ToLower(filepath.Ext(path)) == ".ai" {
		return 1
	}

	return DefaultScaleFactor
}

// Points is a list of raw map points. Each point is either [x, z] on the
// ground plane or [x, y, z].
type Points [][]float64

// Transform scales the points and shifts them along X, returning waypoints
// ready for racesim.NewTrack.
func (p Points) Transform(scaleFactor, offsetX float64) ([]racesim.Vector3, error) {
	if scaleFactor == 0 {
		scaleFactor = DefaultScaleFactor
	}

	waypoints := make([]racesim.Vector3, 0, len(p))

	for i, point := range p {
		var v racesim.Vector3

		switch len(point) {
		case 2:
			v = racesim.Vector3{X: point[0], Z: point[1]}
		case 3:
			v = racesim.Vector3{X: point[0], Y: point[1], Z: point[2]}
		default:
			return nil, errors.Errorf("trackdata: point %d has %d coordinates, expected 2 or 3", i, len(point))
		}

		waypoints = append(waypoints, transform(v, scaleFactor, offsetX))
	}

	return waypoints, nil
}

func transform(v racesim.Vector3, scaleFactor, offsetX float64) racesim.Vector3 {
	return racesim.Vector3{
		X: v.X*scaleFactor - offsetX,
		Y: v.Y * scaleFactor,
		Z: v.Z * scaleFactor,
	}
}

// Load reads waypoints from a YAML or JSON point list, or from an Assetto Corsa
// AI spline (.ai). The same scale and offset are applied to every format.
func Load(path string, scaleFactor, offsetX float64) ([]racesim.Vector3, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ai":
		spline, err := ai.ReadSpline(path)

		if err != nil {
			return nil, errors.Wrapf(err, "trackdata: could not read spline %s", path)
		}

		if scaleFactor == 0 {
			scaleFactor = DefaultScale(path)
		}

		var waypoints []racesim.Vector3

		for _, point := range spline.Waypoints() {
			waypoints = append(waypoints, transform(point, scaleFactor, offsetX))
		}

		return waypoints, nil
	case ".yml", ".yaml", ".json":
		data, err := ioutil.ReadFile(path)

		if err != nil {
			return nil, errors.Wrapf(err, "trackdata: could not read %s", path)
		}

		var points Points

		// JSON point lists are valid YAML
		if err := yaml.Unmarshal(data, &points); err != nil {
			return nil, errors.Wrapf(err, "trackdata: could not parse %s", path)
		}

		waypoints, err := points.Transform(scaleFactor, offsetX)

		if err != nil {
			return nil, errors.Wrap(err, path)
		}

		return waypoints, nil
	default:
		return nil, errors.Errorf("trackdata: unsupported track file %s", path)
	}
}

// LoadTrack is Load followed by racesim.NewTrack.
func LoadTrack(path string, scaleFactor, offsetX float64) (*racesim.Track, error) {
	waypoints, err := Load(path, scaleFactor, offsetX)

	if err != nil {
		return nil, err
	}

	track, err := racesim.NewTrack(waypoints)

	if err != nil {
		return nil, errors.Wrapf(err, "trackdata: %s", path)
	}

	return track, nil
}
