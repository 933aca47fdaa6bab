package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edifika/edifika/internal/events"
	"github.com/edifika/edifika/internal/modules/movements"
	"github.com/edifika/edifika/internal/modules/taxonomy"
)

// TaxonomyRefreshJob reloads the cached concept trees so admin edits made
// outside this service become visible without a restart.
type TaxonomyRefreshJob struct {
	cache *taxonomy.Cache
	bus   *events.Bus
	log   zerolog.Logger
}

// NewTaxonomyRefreshJob creates a new taxonomy refresh job
func NewTaxonomyRefreshJob(cache *taxonomy.Cache, bus *events.Bus, log zerolog.Logger) *TaxonomyRefreshJob {
	return &TaxonomyRefreshJob{
		cache: cache,
		bus:   bus,
		log:   log.With().Str("job", "taxonomy_refresh").Logger(),
	}
}

// Name returns the job name
func (j *TaxonomyRefreshJob) Name() string { return "taxonomy_refresh" }

// Run refreshes every cached organization tree
func (j *TaxonomyRefreshJob) Run() error {
	refreshed := j.cache.RefreshAll()
	if refreshed > 0 {
		j.bus.Emit(events.TaxonomyRefreshed, "taxonomy", map[string]interface{}{
			"organizations": refreshed,
		})
	}
	return nil
}

// IntegrityCheckJob scans the ledger for movement groups that do not
// resolve to exactly two rows and prunes expired audit entries. Orphan
// groups should be impossible now that pair writes are transactional; any
// hit points at state predating that fix and is logged loudly.
type IntegrityCheckJob struct {
	repo       *movements.Repository
	audit      *movements.AuditLog
	bus        *events.Bus
	retainDays int
	log        zerolog.Logger
}

// NewIntegrityCheckJob creates a new integrity check job
func NewIntegrityCheckJob(repo *movements.Repository, audit *movements.AuditLog, bus *events.Bus, retainDays int, log zerolog.Logger) *IntegrityCheckJob {
	return &IntegrityCheckJob{
		repo:       repo,
		audit:      audit,
		bus:        bus,
		retainDays: retainDays,
		log:        log.With().Str("job", "integrity_check").Logger(),
	}
}

// Name returns the job name
func (j *IntegrityCheckJob) Name() string { return "integrity_check" }

// Run scans for orphan groups and prunes old audit rows
func (j *IntegrityCheckJob) Run() error {
	orphans, err := j.repo.OrphanGroups()
	if err != nil {
		return fmt.Errorf("orphan scan failed: %w", err)
	}
	for _, groupID := range orphans {
		j.log.Error().Str("group_id", groupID).Msg("Movement group does not resolve to exactly two rows")
		j.bus.EmitError("movements", fmt.Errorf("orphan movement group %s", groupID), map[string]interface{}{
			"group_id": groupID,
		})
	}

	if _, err := j.audit.Prune(j.retainDays); err != nil {
		return fmt.Errorf("audit prune failed: %w", err)
	}
	return nil
}
