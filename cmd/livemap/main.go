package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"justapengu.in/livemap"
	"justapengu.in/livemap/internal/racesim"
	"justapengu.in/livemap/internal/racesim/plugins"
	"justapengu.in/livemap/internal/viewer"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	config, err := livemap.ReadConfig(configPath)

	if err != nil {
		logger.WithError(err).Fatalf("Could not read config at %s", configPath)
	}

	level, err := logrus.ParseLevel(config.LogLevel)

	if err != nil {
		logger.WithError(err).Fatalf("Invalid log level: %s", config.LogLevel)
	}

	logger.SetLevel(level)

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debugf("Loaded config: %s", spew.Sdump(config))
	}

	waypoints, err := config.Waypoints()

	if err != nil {
		logger.WithError(err).Fatal("Could not load track")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	metrics, err := plugins.NewMetricsPlugin(registry)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise metrics")
	}

	live := viewer.NewLiveHub(logger)

	raceControl := livemap.NewRaceControl(config.Session, config.MaxFrameDelta, logger, racesim.MultiPlugin(metrics, live))

	if err := raceControl.Setup(waypoints, config.Agents); err != nil {
		logger.WithError(err).Fatal("Could not set up session")
	}

	httpServer := viewer.NewHTTP(config.HTTP.Address, raceControl, live, registry, livemap.NewDebugger(raceControl, config), logger)

	if err := httpServer.Listen(); err != nil {
		logger.WithError(err).Fatal("Could not start HTTP server")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		for range c {
			cancel()
		}
	}()

	if err := raceControl.Run(ctx, config.TickRate, racesim.NewWallClock()); err != nil {
		logger.WithError(err).Error("Race control stopped unexpectedly")
	}

	if err := httpServer.Close(); err != nil {
		logger.WithError(err).Error("Could not close HTTP server")
	}

	logger.Infof("Stopped. Exiting")
}
