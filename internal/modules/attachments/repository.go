// Package attachments keeps the attachment-link rows of a movement in sync
// with the latest submitted set. The protocol is replace-on-save: delete
// everything for the movement, then insert the new set, in one transaction.
// Calling it twice with the same set is a no-op by construction.
package attachments

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edifika/edifika/internal/domain"
)

// Link associates a movement with another entity (e.g., a subcontract) and
// the amount attributed to it.
type Link struct {
	ID         int64   `json:"id,omitempty"`
	MovementID int64   `json:"movement_id"`
	TargetID   string  `json:"target_id"`
	Amount     float64 `json:"amount"`
}

// Schema for attachment links. Rows are owned by their movement and deleted
// with it.
const Schema = `
CREATE TABLE IF NOT EXISTS movement_attachments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    movement_id INTEGER NOT NULL,
    target_id TEXT NOT NULL,
    amount REAL NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movement_attachments_movement ON movement_attachments(movement_id);
`

// InitSchema ensures the movement_attachments table exists.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Repository handles attachment-link persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new attachment repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "attachments").Logger(),
	}
}

// Sync replaces the full link set for one movement: delete all, insert new.
// An empty set is a pure delete ("link removed"). Referencing a movement
// that does not exist in the caller's organization is an IntegrityError.
func (r *Repository) Sync(organizationID string, movementID int64, links []Link) error {
	var exists int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM movements WHERE id = ? AND organization_id = ?`,
		movementID, organizationID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check movement existence: %w", err)
	}
	if exists == 0 {
		return domain.NewIntegrityError("attachment_link", fmt.Sprint(movementID),
			"movement does not exist in organization")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM movement_attachments WHERE movement_id = ?`, movementID); err != nil {
		return fmt.Errorf("failed to clear attachment links: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, link := range links {
		_, err := tx.Exec(`
			INSERT INTO movement_attachments (movement_id, target_id, amount, created_at)
			VALUES (?, ?, ?, ?)
		`, movementID, link.TargetID, link.Amount, now)
		if err != nil {
			return fmt.Errorf("failed to insert attachment link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attachment sync: %w", err)
	}

	r.log.Info().
		Int64("movement_id", movementID).
		Int("links", len(links)).
		Msg("Attachment links synced")
	return nil
}

// ForMovement returns the current link set of a movement, ordered by id.
func (r *Repository) ForMovement(organizationID string, movementID int64) ([]Link, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.movement_id, a.target_id, a.amount
		FROM movement_attachments a
		JOIN movements m ON m.id = a.movement_id
		WHERE a.movement_id = ? AND m.organization_id = ?
		ORDER BY a.id
	`, movementID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachment links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.MovementID, &l.TargetID, &l.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan attachment link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachment links: %w", err)
	}
	return links, nil
}
