package plugins

import (
	"strconv"

	"justapengu.in/livemap/internal/racesim"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsPlugin exports session progress as Prometheus metrics.
type MetricsPlugin struct {
	logger racesim.Logger

	laps       *prometheus.CounterVec
	lapSeconds *prometheus.HistogramVec
	failures   *prometheus.CounterVec
	incidents  *prometheus.CounterVec
	position   *prometheus.GaugeVec
	speed      *prometheus.GaugeVec
	finished   prometheus.Gauge
}

func NewMetricsPlugin(registerer prometheus.Registerer) (*MetricsPlugin, error) {
	m := &MetricsPlugin{
		laps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livemap",
			Name:      "laps_completed_total",
			Help:      "Laps completed per agent.",
		}, []string{"agent"}),
		lapSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "livemap",
			Name:      "lap_time_seconds",
			Help:      "Lap times per agent.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"agent"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livemap",
			Name:      "agent_failures_total",
			Help:      "Agents taken out of the race by a failed step.",
		}, []string{"agent"}),
		incidents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livemap",
			Name:      "incidents_total",
			Help:      "Incidents reported per sector and severity.",
		}, []string{"sector", "severity"}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "livemap",
			Name:      "agent_position",
			Help:      "Current race position of each agent.",
		}, []string{"agent"}),
		speed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "livemap",
			Name:      "agent_speed",
			Help:      "Current speed of each agent, in track units per second.",
		}, []string{"agent"}),
		finished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livemap",
			Name:      "session_finished",
			Help:      "1 once every agent has finished or failed.",
		}),
	}

	for _, collector := range []prometheus.Collector{m.laps, m.lapSeconds, m.failures, m.incidents, m.position, m.speed, m.finished} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *MetricsPlugin) Init(info racesim.SessionInfo, logger racesim.Logger) error {
	m.logger = logger

	m.finished.Set(0)

	for _, agent := range info.Agents {
		m.laps.WithLabelValues(agent.ID)
		m.failures.WithLabelValues(agent.ID)
	}

	m.logger.Debugf("Exporting metrics for %d agents", len(info.Agents))

	return nil
}

func (m *MetricsPlugin) OnAgentPose(pose racesim.AgentPose) error {
	m.speed.WithLabelValues(pose.AgentID).Set(pose.Speed)

	return nil
}

func (m *MetricsPlugin) OnLapCompleted(event racesim.LapEvent) error {
	m.laps.WithLabelValues(event.AgentID).Inc()
	m.lapSeconds.WithLabelValues(event.AgentID).Observe(event.LapTime.Seconds())

	return nil
}

func (m *MetricsPlugin) OnStandingsChanged(standings []racesim.Standing) error {
	for _, standing := range standings {
		m.position.WithLabelValues(standing.AgentID).Set(float64(standing.Position))
	}

	return nil
}

func (m *MetricsPlugin) OnAgentFailed(failure *racesim.AgentStepError) error {
	m.failures.WithLabelValues(failure.AgentID).Inc()
	m.speed.WithLabelValues(failure.AgentID).Set(0)

	return nil
}

func (m *MetricsPlugin) OnIncident(incident racesim.Incident) error {
	for _, sector := range incident.Sectors {
		m.incidents.WithLabelValues(strconv.Itoa(sector.Sector), string(sector.Severity)).Inc()
	}

	return nil
}

func (m *MetricsPlugin) OnSessionFinished([]racesim.Standing) error {
	m.finished.Set(1)

	return nil
}
