package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/cache"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/charts"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/dashboard"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/snapshots"
)

// Handlers serves the dashboard API endpoints.
type Handlers struct {
	dashboard *dashboard.Service
	charts    *charts.Service
	cache     *cache.Repository
	snapshots *snapshots.Repository
	benchmark *snapshots.Benchmark
	log       zerolog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(
	dash *dashboard.Service,
	chartSvc *charts.Service,
	cacheRepo *cache.Repository,
	snapRepo *snapshots.Repository,
	bench *snapshots.Benchmark,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		dashboard: dash,
		charts:    chartSvc,
		cache:     cacheRepo,
		snapshots: snapRepo,
		benchmark: bench,
		log:       log.With().Str("component", "handlers").Logger(),
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleRefresh runs the full refresh pipeline and returns the new state.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboard.Refresh(r.Context())
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// HandlePortfolio returns the latest computed state.
func (h *Handlers) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboard.Current()
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// HandleRecommendations returns the latest recommendation signals.
func (h *Handlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboard.Current()
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, state.Recommendations)
}

// HandleRebalance returns concrete rebalancing trades.
func (h *Handlers) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.dashboard.Rebalance()
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, suggestions)
}

// HandleCorrelation returns the correlation matrix as JSON for client-side
// heatmap rendering.
func (h *Handlers) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboard.Current()
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	if state.Snapshot.Correlations == nil {
		h.writeError(w, http.StatusNotFound, errors.New("not enough overlapping history for correlations"))
		return
	}
	h.writeJSON(w, http.StatusOK, state.Snapshot.Correlations)
}

func (h *Handlers) writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(img); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart response")
	}
}

// HandleAllocationChart renders the allocation pie chart.
func (h *Handlers) HandleAllocationChart(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboard.Current()
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	img, err := h.charts.Allocation(state.Snapshot)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writePNG(w, img)
}

// HandleDeviationChart renders the target-deviation bar chart.
func (h *Handlers) HandleDeviationChart(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboard.Current()
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	img, err := h.charts.Deviation(state.Snapshot)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writePNG(w, img)
}

// HandleHistoryChart renders one asset's price history line chart.
func (h *Handlers) HandleHistoryChart(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	series, err := h.dashboard.SeriesFor(code)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	img, err := h.charts.History(series)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writePNG(w, img)
}

// HandleListSnapshots lists stored snapshot summaries.
func (h *Handlers) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.snapshots.List(limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []snapshots.Record{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

// HandleTakeSnapshot refreshes and stores a snapshot on demand.
func (h *Handlers) HandleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dashboard.Snapshot()
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	id, err := h.snapshots.Save(snap)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// HandleGetSnapshot returns one stored snapshot in full.
func (h *Handlers) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.snapshots.Get(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		h.writeError(w, http.StatusNotFound, errors.New("snapshot not found"))
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// HandleBenchmark compares portfolio growth against market benchmarks.
func (h *Handlers) HandleBenchmark(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	comparison, err := h.benchmark.Compare(r.Context(), days)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, comparison)
}

// HandleReloadConfig re-reads the portfolio document.
func (h *Handlers) HandleReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.ReloadConfig(); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// HandlePruneCache deletes expired cache entries from every table.
func (h *Handlers) HandlePruneCache(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.cache.DeleteAllExpired()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, deleted)
}
