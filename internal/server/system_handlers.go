package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/database"
)

// SystemHandlers serves health and host resource endpoints.
type SystemHandlers struct {
	db          *database.DB
	log         zerolog.Logger
	startupTime time.Time
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(db *database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:          db,
		log:         log.With().Str("component", "system").Logger(),
		startupTime: time.Now(),
	}
}

// HandleHealth reports liveness plus database reachability.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Database health check failed")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         status,
		"uptime_seconds": int(time.Since(h.startupTime).Seconds()),
	})
}

// HandleSystemStats reports host CPU and memory usage plus database size.
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPct := h.getSystemStats()

	response := map[string]any{
		"cpu_percent": cpuAvg,
		"ram_percent": ramPct,
	}

	if stats, err := h.db.GetStats(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
	} else {
		response["database"] = stats
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// getSystemStats samples CPU over a short window so the endpoint stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
