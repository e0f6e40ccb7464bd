// Package viewer serves the race to the browser: a JSON API for the
// leaderboard and a websocket feed for the live map.
package viewer

import (
	"encoding/json"
	"errors"
	"net/http"

	"justapengu.in/livemap"
	"justapengu.in/livemap/internal/racesim"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTP struct {
	server *http.Server
	logger racesim.Logger

	address     string
	raceControl *livemap.RaceControl
	live        *LiveHub
	gatherer    prometheus.Gatherer
	debugger    http.Handler
}

func NewHTTP(address string, raceControl *livemap.RaceControl, live *LiveHub, gatherer prometheus.Gatherer, debugger http.Handler, logger racesim.Logger) *HTTP {
	return &HTTP{
		address:     address,
		raceControl: raceControl,
		live:        live,
		gatherer:    gatherer,
		debugger:    debugger,
		logger:      logger,
	}
}

func (h *HTTP) Listen() error {
	h.logger.Infof("HTTP server listening on: %s", h.address)

	h.server = &http.Server{
		Handler: h.Router(),
		Addr:    h.address,
	}

	go func() {
		err := h.server.ListenAndServe()

		if err == http.ErrServerClosed {
			return
		} else if err != nil {
			h.logger.WithError(err).Errorf("Could not start HTTP server")
		}
	}()

	return nil
}

func (h *HTTP) Router() http.Handler {
	router := chi.NewRouter()

	router.Route("/api", func(r chi.Router) {
		r.Get("/session", h.Session)
		r.Get("/standings", h.Standings)
		r.Get("/drivers", h.Drivers)
		r.Get("/incidents", h.Incidents)
		r.Post("/incidents", h.ReportIncident)

		if h.live != nil {
			r.Handle("/live", h.live)
		}
	})

	if h.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	if h.debugger != nil {
		router.Handle("/debug", h.debugger)
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

type SessionResponse struct {
	Info        racesim.SessionInfo `json:"info"`
	Readiness   racesim.Readiness   `json:"readiness"`
	TrackPoints []racesim.Vector3   `json:"track_points"`
}

func (h *HTTP) Session(w http.ResponseWriter, r *http.Request) {
	info, err := h.raceControl.Info()

	if err != nil {
		h.writeError(w, err)
		return
	}

	points, err := h.raceControl.TrackPoints()

	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SessionResponse{
		Info:        info,
		Readiness:   h.raceControl.Readiness(),
		TrackPoints: points,
	})
}

func (h *HTTP) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.raceControl.Standings()

	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, standings)
}

func (h *HTTP) Drivers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.raceControl.Drivers())
}

func (h *HTTP) Incidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.raceControl.Incidents()

	if err != nil {
		h.writeError(w, err)
		return
	}

	if incidents == nil {
		incidents = make([]racesim.Incident, 0)
	}

	h.writeJSON(w, http.StatusOK, incidents)
}

type IncidentRequest struct {
	AgentID string                   `json:"agent_id"`
	Sectors []racesim.SectorSeverity `json:"sectors"`
}

func (h *HTTP) ReportIncident(w http.ResponseWriter, r *http.Request) {
	var req IncidentRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid incident: "+err.Error(), http.StatusBadRequest)
		return
	}

	incident, err := h.raceControl.ReportIncident(req.AgentID, req.Sectors)

	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, incident)
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Errorf("Could not encode HTTP response")
	}
}

func (h *HTTP) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, livemap.ErrNoSession):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, racesim.ErrUnknownAgent):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *HTTP) Close() error {
	h.logger.Debugf("Closing HTTP listener")

	if h.live != nil {
		h.live.Close()
	}

	if h.server == nil {
		return nil
	}

	return h.server.Close()
}
