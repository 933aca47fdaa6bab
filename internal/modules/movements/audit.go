package movements

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// AuditLog records before-images of movements on update and delete. The
// snapshot is a msgpack blob of the full row, written inside the same
// transaction as the change it documents.
type AuditLog struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAuditLog creates a new audit log
func NewAuditLog(db *sql.DB, log zerolog.Logger) *AuditLog {
	return &AuditLog{
		db:  db,
		log: log.With().Str("repo", "movement_audit").Logger(),
	}
}

// AuditEntry is one recorded before-image.
type AuditEntry struct {
	ID         int64     `json:"id"`
	MovementID int64     `json:"movement_id"`
	Operation  string    `json:"operation"`
	Snapshot   *Movement `json:"snapshot"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecordTx writes a before-image within the caller's transaction so the
// audit row commits or rolls back together with the change itself.
func (a *AuditLog) RecordTx(tx *sql.Tx, operation string, m *Movement) error {
	blob, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode audit snapshot: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO movement_audit (movement_id, organization_id, operation, snapshot, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.OrganizationID, operation, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ForMovement returns the recorded history of one movement, newest first.
func (a *AuditLog) ForMovement(organizationID string, movementID int64) ([]AuditEntry, error) {
	rows, err := a.db.Query(`
		SELECT id, movement_id, operation, snapshot, recorded_at
		FROM movement_audit
		WHERE movement_id = ? AND organization_id = ?
		ORDER BY id DESC
	`, movementID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var blob []byte
		var recordedAt string

		if err := rows.Scan(&e.ID, &e.MovementID, &e.Operation, &blob, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		var snapshot Movement
		if err := msgpack.Unmarshal(blob, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode audit snapshot %d: %w", e.ID, err)
		}
		e.Snapshot = &snapshot
		e.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// Prune deletes audit rows older than the retention window. Returns the
// number of rows removed.
func (a *AuditLog) Prune(retainDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retainDays).Format(time.RFC3339)

	result, err := a.db.Exec(`DELETE FROM movement_audit WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if removed > 0 {
		a.log.Info().Int64("removed", removed).Str("cutoff", cutoff).Msg("Audit entries pruned")
	}
	return removed, nil
}
