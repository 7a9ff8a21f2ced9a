package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/quotes"
	"github.com/aristath/folio/internal/modules/reconciliation"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers contains system-related HTTP handlers
type SystemHandlers struct {
	log            zerolog.Logger
	db             *database.DB
	cache          *quotes.Cache
	reconciliation *reconciliation.Job
	scheduler      *scheduler.Scheduler
	startupTime    time.Time
	cpuSample      time.Duration
}

// NewSystemHandlers creates a new system handlers instance. sched may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	db *database.DB,
	cache *quotes.Cache,
	reconciliationJob *reconciliation.Job,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:            log.With().Str("service", "system").Logger(),
		db:             db,
		cache:          cache,
		reconciliation: reconciliationJob,
		scheduler:      sched,
		startupTime:    time.Now(),
		cpuSample:      100 * time.Millisecond,
	}
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status              string                 `json:"status"`
	StartedAt           time.Time              `json:"started_at"`
	UptimeSeconds       int64                  `json:"uptime_seconds"`
	CPUPercent          float64                `json:"cpu_percent"`
	MemoryPercent       float64                `json:"memory_percent"`
	QuoteCacheEntries   int                    `json:"quote_cache_entries"`
	QuoteCacheTTLMs     int64                  `json:"quote_cache_ttl_ms"`
	ReconciliationState reconciliation.State   `json:"reconciliation_state"`
	LastReconciliation  *reconciliation.Report `json:"last_reconciliation"`
	Database            *database.Stats        `json:"database,omitempty"`
}

// HandleSystemStatus returns uptime, host load, cache size and the last reconciliation
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()
	state := h.reconciliation.State()

	response := SystemStatusResponse{
		Status:              "healthy",
		StartedAt:           h.startupTime.UTC(),
		UptimeSeconds:       int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:          cpuPercent,
		MemoryPercent:       memPercent,
		QuoteCacheEntries:   h.cache.Len(),
		QuoteCacheTTLMs:     h.cache.TTL().Milliseconds(),
		ReconciliationState: state,
		LastReconciliation:  h.reconciliation.LastReport(),
	}

	if state == reconciliation.StateFailed {
		response.Status = "degraded"
	}

	if stats, err := h.db.GetStats(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to read database stats")
	} else {
		response.Database = stats
	}

	h.writeJSON(w, response)
}

// HandleJobsStatus lists scheduled jobs with their last and next runs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.scheduler != nil {
		jobs = h.scheduler.Status()
	}
	h.writeJSON(w, map[string]interface{}{"jobs": jobs})
}

// getSystemStats returns CPU and RAM usage percentages.
// The CPU sample is short so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(h.cpuSample, false)
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
