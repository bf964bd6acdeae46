package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/internal/perfstats"
	"github.com/wonny/spreadindex/internal/rules"
	"github.com/wonny/spreadindex/internal/service"
	"github.com/wonny/spreadindex/internal/timeseries"
	"github.com/wonny/spreadindex/pkg/logger"
)

// IndexRunner is the part of the index service the API needs
type IndexRunner interface {
	Run(ctx context.Context, end time.Time) (*service.Result, error)
	Latest() (*service.Result, bool)
}

// IndexHandler serves the published index and its signals
// ⭐ SSOT: index API handlers live in this struct
type IndexHandler struct {
	runner IndexRunner
	logger *logger.Logger
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(runner IndexRunner, log *logger.Logger) *IndexHandler {
	return &IndexHandler{runner: runner, logger: log}
}

// SummaryResponse describes the latest run
type SummaryResponse struct {
	RunID      string                    `json:"run_id"`
	ConfigHash string                    `json:"config_hash"`
	Persisted  bool                      `json:"persisted"`
	Summary    *rules.RunResult          `json:"summary"`
	Quality    *marketdata.QualityReport `json:"quality,omitempty"`
}

// SeriesResponse is a named dated series
type SeriesResponse struct {
	Signal    string             `json:"signal"`
	Component string             `json:"component,omitempty"`
	Points    []timeseries.Point `json:"points"`
}

// RunRequest triggers a run up to To (today when empty)
type RunRequest struct {
	To string `json:"to"`
}

func summaryOf(res *service.Result) SummaryResponse {
	return SummaryResponse{
		RunID:      res.RunID,
		ConfigHash: res.ConfigHash,
		Persisted:  res.Persisted,
		Summary:    res.Summary,
		Quality:    res.Quality,
	}
}

// latest writes 404 when nothing has been computed yet
func (h *IndexHandler) latest(w http.ResponseWriter) (*service.Result, bool) {
	res, ok := h.runner.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "No index run available yet")
	}
	return res, ok
}

// window parses from/to, defaulting to the run's own range
func window(w http.ResponseWriter, r *http.Request, res *service.Result) (time.Time, time.Time, bool) {
	from, err := parseDateParam(r, "from", res.Summary.Start)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid from date (expected YYYY-MM-DD)")
		return time.Time{}, time.Time{}, false
	}
	to, err := parseDateParam(r, "to", res.Summary.End)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid to date (expected YYYY-MM-DD)")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "from must not be after to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// GetSummary returns the latest run summary
// GET /api/index
func (h *IndexHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, summaryOf(res))
}

// GetLevels returns published index levels
// GET /api/index/levels?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *IndexHandler) GetLevels(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w)
	if !ok {
		return
	}
	from, to, ok := window(w, r, res)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, SeriesResponse{
		Signal: rules.SignalIndexLevel,
		Points: res.Levels.Range(from, to).Points(),
	})
}

// GetSignal returns any signal or observable the latest run touched
// GET /api/index/signals/{signal}?component=SPX&from=...&to=...
func (h *IndexHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w)
	if !ok {
		return
	}
	from, to, ok := window(w, r, res)
	if !ok {
		return
	}

	signal := mux.Vars(r)["signal"]
	component := r.URL.Query().Get("component")

	series, err := res.Index.Series(signal, from, to, component)
	if err != nil {
		h.logger.WithError(err).WithField("signal", signal).Debug("Signal lookup failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, SeriesResponse{
		Signal:    signal,
		Component: component,
		Points:    series.Points(),
	})
}

// GetStats returns the performance table of the latest run
// GET /api/index/stats
func (h *IndexHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w)
	if !ok {
		return
	}
	if res.Stats == nil {
		respondJSON(w, http.StatusOK, &perfstats.Table{})
		return
	}
	respondJSON(w, http.StatusOK, res.Stats)
}

// Run computes the index synchronously
// POST /api/index/run
func (h *IndexHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var end time.Time
	if req.To != "" {
		t, err := contracts.ParseDay(req.To)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid to date (expected YYYY-MM-DD)")
			return
		}
		end = t
	}

	res, err := h.runner.Run(r.Context(), end)
	if err != nil {
		h.logger.WithError(err).Error("Index run failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, summaryOf(res))
}
