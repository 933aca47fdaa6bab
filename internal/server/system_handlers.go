package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/edifika/edifika/internal/database"
	"github.com/edifika/edifika/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log        zerolog.Logger
	dataDir    string
	taxonomyDB *database.DB
	ledgerDB   *database.DB
	scheduler  *scheduler.Scheduler
	// Jobs (set after job registration in main.go)
	taxonomyRefreshJob scheduler.Job
	integrityCheckJob  scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, taxonomyDB, ledgerDB *database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("component", "system_handlers").Logger(),
		dataDir:    dataDir,
		taxonomyDB: taxonomyDB,
		ledgerDB:   ledgerDB,
		scheduler:  sched,
	}
}

// SetJobs registers job references for manual triggering
func (h *SystemHandlers) SetJobs(taxonomyRefresh, integrityCheck scheduler.Job) {
	h.taxonomyRefreshJob = taxonomyRefresh
	h.integrityCheckJob = integrityCheck
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	MovementCount int     `json:"movement_count"`
	ConceptCount  int     `json:"concept_count"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	LastChecked   string  `json:"last_checked"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	LogsDirMB float64 `json:"logs_dir_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	var movementCount int
	if err := h.ledgerDB.Conn().QueryRow(`SELECT COUNT(*) FROM movements`).Scan(&movementCount); err != nil {
		h.log.Error().Err(err).Msg("Failed to count movements")
	}

	var conceptCount int
	if err := h.taxonomyDB.Conn().QueryRow(`SELECT COUNT(*) FROM concepts`).Scan(&conceptCount); err != nil {
		h.log.Error().Err(err).Msg("Failed to count concepts")
	}

	cpuPercent, ramPercent := h.getSystemStats()

	h.writeJSON(w, SystemStatusResponse{
		MovementCount: movementCount,
		ConceptCount:  conceptCount,
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		LastChecked:   time.Now().Format(time.RFC3339),
	})
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	databases := []DBInfo{}
	totalSizeMB := 0.0

	for _, db := range []*database.DB{h.taxonomyDB, h.ledgerDB} {
		info, err := os.Stat(db.Path())
		if err != nil {
			continue
		}
		sizeMB := float64(info.Size()) / 1024 / 1024
		totalSizeMB += sizeMB
		databases = append(databases, DBInfo{
			Name:   db.Name(),
			Path:   db.Path(),
			SizeMB: sizeMB,
		})
	}

	h.writeJSON(w, DatabaseStatsResponse{
		Databases:   databases,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	dataDirSize := h.getDirSize(h.dataDir)
	logsDirSize := h.getDirSize(filepath.Join(h.dataDir, "logs"))

	h.writeJSON(w, DiskUsageResponse{
		DataDirMB: dataDirSize,
		LogsDirMB: logsDirSize,
		TotalMB:   dataDirSize + logsDirSize,
	})
}

// HandleTriggerTaxonomyRefresh triggers the taxonomy refresh job immediately
// POST /api/system/jobs/taxonomy-refresh
func (h *SystemHandlers) HandleTriggerTaxonomyRefresh(w http.ResponseWriter, r *http.Request) {
	if h.taxonomyRefreshJob == nil {
		h.log.Warn().Msg("Taxonomy refresh job not registered yet")
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "Taxonomy refresh job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual taxonomy refresh triggered")

	if err := h.scheduler.RunNow(h.taxonomyRefreshJob); err != nil {
		h.log.Error().Err(err).Msg("Failed to trigger taxonomy refresh")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": "Taxonomy refresh triggered successfully",
	})
}

// HandleTriggerIntegrityCheck triggers the ledger integrity check job immediately
// POST /api/system/jobs/integrity-check
func (h *SystemHandlers) HandleTriggerIntegrityCheck(w http.ResponseWriter, r *http.Request) {
	if h.integrityCheckJob == nil {
		h.log.Warn().Msg("Integrity check job not registered yet")
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "Integrity check job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual integrity check triggered")

	if err := h.scheduler.RunNow(h.integrityCheckJob); err != nil {
		h.log.Error().Err(err).Msg("Failed to trigger integrity check")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": "Integrity check triggered successfully",
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval so the status endpoint stays responsive.
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

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
