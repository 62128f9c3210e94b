package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aristath/stockfolio/internal/cache"
	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string         `json:"status"` // healthy or degraded
	UptimeSeconds int64          `json:"uptime_seconds"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	Database      DatabaseStatus `json:"database"`
	Cache         cache.Stats    `json:"cache"`
}

// DatabaseStatus describes the holdings database
type DatabaseStatus struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
}

// SystemHandlers serves monitoring and manual job endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	holdingsDB  *database.DB
	cache       *cache.Cache
	sched       *scheduler.Scheduler

	refreshReferenceDataJob  scheduler.Job
	checkHoldingsDatabaseJob scheduler.Job
	backupHoldingsJob        scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, holdingsDB *database.DB, c *cache.Cache, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		holdingsDB:  holdingsDB,
		cache:       c,
		sched:       sched,
	}
}

// SetJobs registers job instances for manual triggering. Nil jobs stay disabled.
func (h *SystemHandlers) SetJobs(refreshReferenceData, checkHoldingsDatabase, backupHoldings scheduler.Job) {
	h.refreshReferenceDataJob = refreshReferenceData
	h.checkHoldingsDatabaseJob = checkHoldingsDatabase
	h.backupHoldingsJob = backupHoldings
}

// HandleSystemStatus returns host load, database health and cache counters
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
	}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	} else if err != nil {
		h.log.Debug().Err(err).Msg("Failed to sample CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response.MemoryPercent = vm.UsedPercent
	} else {
		h.log.Debug().Err(err).Msg("Failed to read memory usage")
	}

	if h.holdingsDB != nil {
		response.Database = h.databaseStatus(r.Context())
		if !response.Database.Healthy {
			response.Status = "degraded"
		}
	}

	if h.cache != nil {
		response.Cache = h.cache.Stats()
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

func (h *SystemHandlers) databaseStatus(ctx context.Context) DatabaseStatus {
	status := DatabaseStatus{
		Name:    h.holdingsDB.Name(),
		Path:    h.holdingsDB.Path(),
		Healthy: true,
	}

	if info, err := os.Stat(h.holdingsDB.Path()); err == nil {
		status.SizeMB = float64(info.Size()) / 1024 / 1024
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.holdingsDB.QuickCheck(ctx); err != nil {
		status.Healthy = false
		status.Error = err.Error()
	}
	return status
}

// HandleTriggerRefreshReferenceData starts a reference data refresh in the background.
// Directory pages are throttled, so the request does not wait for completion.
func (h *SystemHandlers) HandleTriggerRefreshReferenceData(w http.ResponseWriter, r *http.Request) {
	if h.refreshReferenceDataJob == nil || h.sched == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "Refresh reference data job not registered"}, h.log)
		return
	}

	h.log.Info().Msg("Manual reference data refresh triggered")
	job := h.refreshReferenceDataJob
	go func() {
		if err := h.sched.RunNow(job); err != nil {
			h.log.Error().Err(err).Msg("Manual reference data refresh failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "success", "message": "Reference data refresh started"}, h.log)
}

// HandleTriggerCheckHoldingsDatabase runs the integrity check and reports the result
func (h *SystemHandlers) HandleTriggerCheckHoldingsDatabase(w http.ResponseWriter, r *http.Request) {
	if h.checkHoldingsDatabaseJob == nil || h.sched == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "Check holdings database job not registered"}, h.log)
		return
	}

	h.log.Info().Msg("Manual holdings database check triggered")
	if err := h.sched.RunNow(h.checkHoldingsDatabaseJob); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Holdings database is healthy"}, h.log)
}

// HandleTriggerBackupHoldings uploads a holdings backup and waits for the result
func (h *SystemHandlers) HandleTriggerBackupHoldings(w http.ResponseWriter, r *http.Request) {
	if h.backupHoldingsJob == nil || h.sched == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "Backups are not configured"}, h.log)
		return
	}

	h.log.Info().Msg("Manual holdings backup triggered")
	if err := h.sched.RunNow(h.backupHoldingsJob); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "message": err.Error()}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Holdings backup uploaded"}, h.log)
}
