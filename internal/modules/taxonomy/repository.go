package taxonomy

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a concept id does not exist in the caller's
// organization.
var ErrNotFound = errors.New("concept not found")

// Repository reads concept rows. The engine never writes them.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new taxonomy repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "taxonomy").Logger(),
	}
}

const conceptColumns = "id, organization_id, parent_id, name, view_mode, is_subcontract_marker"

// Get retrieves one concept scoped to the organization.
func (r *Repository) Get(organizationID string, id int64) (*Concept, error) {
	query := fmt.Sprintf(`SELECT %s FROM concepts WHERE id = ? AND organization_id = ?`, conceptColumns)

	c, err := scanConcept(r.db.QueryRow(query, id, organizationID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("concept %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get concept: %w", err)
	}
	return c, nil
}

// ChildrenOf retrieves the direct children of a concept, ordered by id.
func (r *Repository) ChildrenOf(organizationID string, parentID int64) ([]*Concept, error) {
	query := fmt.Sprintf(`SELECT %s FROM concepts WHERE parent_id = ? AND organization_id = ? ORDER BY id`, conceptColumns)

	rows, err := r.db.Query(query, parentID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	return scanConcepts(rows)
}

// LoadTree loads and validates the full tree for an organization.
func (r *Repository) LoadTree(organizationID string) (*Tree, error) {
	query := fmt.Sprintf(`SELECT %s FROM concepts WHERE organization_id = ? ORDER BY id`, conceptColumns)

	rows, err := r.db.Query(query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query concepts: %w", err)
	}
	defer rows.Close()

	concepts, err := scanConcepts(rows)
	if err != nil {
		return nil, err
	}

	tree, err := BuildTree(organizationID, concepts)
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("organization_id", organizationID).
		Int("concepts", tree.Len()).
		Msg("Taxonomy tree loaded")
	return tree, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConcept(row rowScanner) (*Concept, error) {
	var c Concept
	var parentID sql.NullInt64
	var marker int

	err := row.Scan(&c.ID, &c.OrganizationID, &parentID, &c.Name, &c.ViewMode, &marker)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	c.IsSubcontractMarker = marker != 0
	return &c, nil
}

func scanConcepts(rows *sql.Rows) ([]*Concept, error) {
	var concepts []*Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan concept: %w", err)
		}
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating concepts: %w", err)
	}
	return concepts, nil
}
