// Package api serves the dashboard as a read-only JSON API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kardashev/internal/dashboard"
	"kardashev/internal/kardashev"
	"kardashev/internal/model"
)

var logger = loggo.GetLogger("kardashev.api")

// SnapshotLoader is satisfied by *dashboard.Loader.
type SnapshotLoader interface {
	Load(ctx context.Context) dashboard.Snapshot
}

type Handler struct {
	loader   SnapshotLoader
	gatherer prometheus.Gatherer
}

func NewHandler(loader SnapshotLoader, gatherer prometheus.Gatherer) *Handler {
	return &Handler{loader: loader, gatherer: gatherer}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard", h.HandleDashboard)
	mux.HandleFunc("GET /api/timeline", h.HandleTimeline)
	mux.HandleFunc("GET /api/timeline/nearest", h.HandleNearest)
	mux.HandleFunc("GET /api/types", h.HandleTypes)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

type dashboardResponse struct {
	dashboard.Snapshot
	PopulationTrend model.Series `json:"population_trend"`
	PovertyTrend    model.Series `json:"poverty_trend"`
}

// HandleDashboard loads a fresh snapshot for every request.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot := h.loader.Load(r.Context())
	writeJSON(w, http.StatusOK, dashboardResponse{
		Snapshot:        snapshot,
		PopulationTrend: snapshot.PopulationTrend(),
		PovertyTrend:    snapshot.PovertyTrend(),
	})
}

func (h *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := kardashev.Timeline()
	if err != nil {
		logger.Errorf("loading timeline: %v", err)
		writeError(w, http.StatusInternalServerError, "timeline unavailable")
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

// HandleNearest answers /api/timeline/nearest?year=N with the closest
// milestone.
func (h *Handler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer")
		return
	}

	timeline, err := kardashev.Timeline()
	if err != nil {
		logger.Errorf("loading timeline: %v", err)
		writeError(w, http.StatusInternalServerError, "timeline unavailable")
		return
	}
	milestone, ok := kardashev.Nearest(timeline, year)
	if !ok {
		writeError(w, http.StatusNotFound, "no milestones")
		return
	}
	writeJSON(w, http.StatusOK, milestone)
}

func (h *Handler) HandleTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, kardashev.Types())
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		logger.Warningf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
