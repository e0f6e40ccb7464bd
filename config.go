package livemap

import (
	"os"
	"path/filepath"
	"time"

	"justapengu.in/livemap/internal/racesim"
	"justapengu.in/livemap/pkg/trackdata"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	DefaultTickRate      = 60
	DefaultMaxFrameDelta = 250 * time.Millisecond
	DefaultHTTPAddress   = "0.0.0.0:8772"
)

type Config struct {
	Session racesim.SessionConfig  `yaml:"session"`
	Track   TrackConfig            `yaml:"track"`
	Agents  []*racesim.AgentConfig `yaml:"agents"`

	// TickRate is how many times per second the session is advanced.
	TickRate int `yaml:"tick_rate"`
	// MaxFrameDelta caps the time a single tick can cover, e.g. after the process was suspended.
	MaxFrameDelta time.Duration `yaml:"max_frame_delta"`

	HTTP     HTTPConfig `yaml:"http"`
	LogLevel string     `yaml:"log_level"`
}

type TrackConfig struct {
	// File is a YAML or JSON point list, or an AI spline. Relative paths are
	// relative to the config file.
	File string `yaml:"file"`
	// ScaleFactor multiplies every coordinate. Zero picks the default for the
	// source: 0.03 for point lists (inline or file), 1 for AI splines, which are
	// already in world units. See trackdata.DefaultScale.
	ScaleFactor float64          `yaml:"scale_factor"`
	OffsetX     float64          `yaml:"offset_x"`
	Points      trackdata.Points `yaml:"points"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

func ReadConfig(configPath string) (*Config, error) {
	f, err := os.Open(configPath)

	if err != nil {
		return nil, errors.Wrap(err, "livemap: could not open config")
	}

	defer f.Close()

	var config *Config

	if err := yaml.NewDecoder(f).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "livemap: could not decode config %s", configPath)
	}

	if config == nil {
		return nil, errors.Errorf("livemap: config %s is empty", configPath)
	}

	baseDir := filepath.Dir(configPath)

	if config.Track.File != "" && !filepath.IsAbs(config.Track.File) {
		config.Track.File = filepath.Join(baseDir, config.Track.File)
	}

	if config.Session.SectorsFile != "" {
		sectorsFile := config.Session.SectorsFile

		if !filepath.IsAbs(sectorsFile) {
			sectorsFile = filepath.Join(baseDir, sectorsFile)
		}

		sectors, err := racesim.LoadSectors(sectorsFile)

		if err != nil {
			return nil, errors.Wrapf(err, "livemap: could not load sectors from %s", sectorsFile)
		}

		config.Session.Sectors = sectors
	}

	config.ApplyDefaults()

	return config, nil
}

func (c *Config) ApplyDefaults() {
	if c.TickRate <= 0 {
		c.TickRate = DefaultTickRate
	}

	if c.MaxFrameDelta == 0 {
		c.MaxFrameDelta = DefaultMaxFrameDelta
	}

	if c.HTTP.Address == "" {
		c.HTTP.Address = DefaultHTTPAddress
	}

	if c.LogLevel == "" {
		c.LogLevel = logrus.InfoLevel.String()
	}

	c.Session.ApplyDefaults()
}

// Waypoints returns the track waypoints, from the inline points if there are
// any, otherwise from the track file.
func (c *Config) Waypoints() ([]racesim.Vector3, error) {
	if len(c.Track.Points) > 0 {
		return c.Track.Points.Transform(c.Track.ScaleFactor, c.Track.OffsetX)
	}

	if c.Track.File == "" {
		return nil, errors.New("livemap: config has no track points or track file")
	}

	return trackdata.Load(c.Track.File, c.Track.ScaleFactor, c.Track.OffsetX)
}
