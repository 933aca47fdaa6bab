package movements

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edifika/edifika/internal/domain"
)

// ErrNotFound is returned when a movement id does not exist in the caller's
// organization.
var ErrNotFound = errors.New("movement not found")

// Repository handles movement persistence. Pair writes always run inside a
// single transaction: both rows land or neither does.
type Repository struct {
	db    *sql.DB
	audit *AuditLog
	log   zerolog.Logger
}

// NewRepository creates a new movement repository
func NewRepository(db *sql.DB, audit *AuditLog, log zerolog.Logger) *Repository {
	return &Repository{
		db:    db,
		audit: audit,
		log:   log.With().Str("repo", "movements").Logger(),
	}
}

const movementColumns = `id, organization_id, project_id, type_id, category_id, subcategory_id,
	currency_id, wallet_id, amount, movement_date, created_by, description,
	exchange_rate, conversion_group_id, transfer_group_id, direction, created_at, updated_at`

// CreateSingle writes one singular movement row.
func (r *Repository) CreateSingle(m *Movement) (*Movement, error) {
	if m.ConversionGroupID != nil || m.TransferGroupID != nil {
		return nil, domain.NewIntegrityError("movement", "", "singular movement must not carry a group id")
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	id, err := insertMovement(r.db, m)
	if err != nil {
		return nil, fmt.Errorf("failed to insert movement: %w", err)
	}
	m.ID = id

	r.log.Info().Int64("movement_id", m.ID).Str("organization_id", m.OrganizationID).Msg("Movement created")
	return m, nil
}

// CreatePair generates one fresh group id, stamps both sides with it and
// writes both rows in a single transaction.
func (r *Repository) CreatePair(kind PairKind, egress, ingress *Movement) (*Pair, error) {
	if err := checkSharedFields(egress, ingress); err != nil {
		return nil, err
	}

	groupID := uuid.NewString()
	stampGroup(kind, groupID, egress, ingress)

	now := time.Now().UTC()
	egress.CreatedAt, egress.UpdatedAt = now, now
	ingress.CreatedAt, ingress.UpdatedAt = now, now

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	egressID, err := insertMovement(tx, egress)
	if err != nil {
		return nil, fmt.Errorf("failed to insert egress side: %w", err)
	}
	ingressID, err := insertMovement(tx, ingress)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ingress side: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pair: %w", err)
	}

	egress.ID = egressID
	ingress.ID = ingressID

	r.log.Info().
		Str("group_id", groupID).
		Str("kind", string(kind)).
		Int64("egress_id", egressID).
		Int64("ingress_id", ingressID).
		Msg("Movement pair created")

	return &Pair{Kind: kind, GroupID: groupID, Egress: egress, Ingress: ingress}, nil
}

// GetByID retrieves one movement scoped to the organization.
func (r *Repository) GetByID(organizationID string, id int64) (*Movement, error) {
	query := fmt.Sprintf(`SELECT %s FROM movements WHERE id = ? AND organization_id = ?`, movementColumns)

	m, err := scanMovement(r.db.QueryRow(query, id, organizationID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("movement %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movement: %w", err)
	}
	return m, nil
}

// GetPair resolves a group id to its two member rows. Any other cardinality
// is corrupted state and surfaces as an IntegrityError, never as a
// synthetic single-row result.
func (r *Repository) GetPair(organizationID, groupID string) (*Pair, error) {
	query := fmt.Sprintf(`SELECT %s FROM movements
		WHERE (conversion_group_id = ? OR transfer_group_id = ?) AND organization_id = ?
		ORDER BY id`, movementColumns)

	rows, err := r.db.Query(query, groupID, groupID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pair: %w", err)
	}
	defer rows.Close()

	members, err := scanMovements(rows)
	if err != nil {
		return nil, err
	}

	return assemblePair(groupID, members)
}

// UpdateSingle replaces the mutable columns of a singular movement and
// records a before-image in the audit log, atomically.
func (r *Repository) UpdateSingle(organizationID string, id int64, values *Movement) (*Movement, error) {
	existing, err := r.GetByID(organizationID, id)
	if err != nil {
		return nil, err
	}
	if existing.IsPaired() {
		return nil, domain.NewIntegrityError("movement", fmt.Sprint(id),
			"movement is part of a group; update the pair instead")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.audit.RecordTx(tx, "update", existing); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := updateMovement(tx, organizationID, id, values, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	r.log.Info().Int64("movement_id", id).Msg("Movement updated")
	return r.GetByID(organizationID, id)
}

// UpdatePair applies new values to both sides of a group, preserving the
// group id and directions, in a single transaction. It fails with an
// IntegrityError when the group does not resolve to exactly two rows.
func (r *Repository) UpdatePair(organizationID, groupID string, egressValues, ingressValues *Movement) (*Pair, error) {
	pair, err := r.GetPair(organizationID, groupID)
	if err != nil {
		return nil, err
	}
	if err := checkSharedFields(egressValues, ingressValues); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.audit.RecordTx(tx, "update", pair.Egress); err != nil {
		return nil, err
	}
	if err := r.audit.RecordTx(tx, "update", pair.Ingress); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := updateMovement(tx, organizationID, pair.Egress.ID, egressValues, now); err != nil {
		return nil, err
	}
	if err := updateMovement(tx, organizationID, pair.Ingress.ID, ingressValues, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pair update: %w", err)
	}

	r.log.Info().Str("group_id", groupID).Msg("Movement pair updated")
	return r.GetPair(organizationID, groupID)
}

// DeleteSingle removes a singular movement and its attachment links in one
// transaction.
func (r *Repository) DeleteSingle(organizationID string, id int64) error {
	existing, err := r.GetByID(organizationID, id)
	if err != nil {
		return err
	}
	if existing.IsPaired() {
		return domain.NewIntegrityError("movement", fmt.Sprint(id),
			"movement is part of a group; delete the pair instead")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.audit.RecordTx(tx, "delete", existing); err != nil {
		return err
	}
	if err := deleteMovementRow(tx, organizationID, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	r.log.Info().Int64("movement_id", id).Msg("Movement deleted")
	return nil
}

// DeletePair removes both members of a group and any attachment links on
// either, in one transaction. No orphan remains.
func (r *Repository) DeletePair(organizationID, groupID string) error {
	pair, err := r.GetPair(organizationID, groupID)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range []*Movement{pair.Egress, pair.Ingress} {
		if err := r.audit.RecordTx(tx, "delete", m); err != nil {
			return err
		}
		if err := deleteMovementRow(tx, organizationID, m.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pair delete: %w", err)
	}

	r.log.Info().Str("group_id", groupID).Msg("Movement pair deleted")
	return nil
}

// LoadForEdit resolves a movement id into its edit bundle: the pair when the
// row carries a group id, the single row otherwise.
func (r *Repository) LoadForEdit(organizationID string, id int64) (*EditBundle, error) {
	m, err := r.GetByID(organizationID, id)
	if err != nil {
		return nil, err
	}

	if groupID := m.GroupID(); groupID != nil {
		pair, err := r.GetPair(organizationID, *groupID)
		if err != nil {
			return nil, err
		}
		return &EditBundle{Pair: pair}, nil
	}
	return &EditBundle{Single: m}, nil
}

// ListOptions narrows List queries.
type ListOptions struct {
	ProjectID *string
	Limit     *int
}

// List retrieves an organization's movements, newest first.
func (r *Repository) List(organizationID string, opts ListOptions) ([]*Movement, error) {
	query := fmt.Sprintf(`SELECT %s FROM movements WHERE organization_id = ?`, movementColumns)
	args := []interface{}{organizationID}

	if opts.ProjectID != nil {
		query += " AND project_id = ?"
		args = append(args, *opts.ProjectID)
	}
	query += " ORDER BY movement_date DESC, id DESC"
	if opts.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *opts.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

// OrphanGroups returns group ids that do not resolve to exactly two rows.
// Used by the nightly integrity scan.
func (r *Repository) OrphanGroups() ([]string, error) {
	query := `
		SELECT group_id FROM (
			SELECT COALESCE(conversion_group_id, transfer_group_id) AS group_id, COUNT(*) AS members
			FROM movements
			WHERE conversion_group_id IS NOT NULL OR transfer_group_id IS NOT NULL
			GROUP BY group_id
		)
		WHERE members != 2
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for orphan groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orphan groups: %w", err)
	}
	return groups, nil
}

// execer abstracts *sql.DB and *sql.Tx for shared statement helpers.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertMovement(e execer, m *Movement) (int64, error) {
	query := `
		INSERT INTO movements (
			organization_id, project_id, type_id, category_id, subcategory_id,
			currency_id, wallet_id, amount, movement_date, created_by, description,
			exchange_rate, conversion_group_id, transfer_group_id, direction,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := e.Exec(query,
		m.OrganizationID,
		m.ProjectID,
		m.TypeID,
		m.CategoryID,
		m.SubcategoryID,
		m.CurrencyID,
		m.WalletID,
		m.Amount,
		m.MovementDate,
		m.CreatedBy,
		m.Description,
		m.ExchangeRate,
		m.ConversionGroupID,
		m.TransferGroupID,
		directionValue(m.Direction),
		m.CreatedAt.Format(time.RFC3339),
		m.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// updateMovement rewrites the mutable columns of one row. Group columns and
// direction are deliberately untouched: pairing is immutable after create.
func updateMovement(e execer, organizationID string, id int64, values *Movement, now time.Time) error {
	query := `
		UPDATE movements
		SET project_id = ?,
			type_id = ?,
			category_id = ?,
			subcategory_id = ?,
			currency_id = ?,
			wallet_id = ?,
			amount = ?,
			movement_date = ?,
			description = ?,
			exchange_rate = ?,
			updated_at = ?
		WHERE id = ? AND organization_id = ?
	`

	result, err := e.Exec(query,
		values.ProjectID,
		values.TypeID,
		values.CategoryID,
		values.SubcategoryID,
		values.CurrencyID,
		values.WalletID,
		values.Amount,
		values.MovementDate,
		values.Description,
		values.ExchangeRate,
		now.Format(time.RFC3339),
		id,
		organizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update movement %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("movement %d: %w", id, ErrNotFound)
	}
	return nil
}

// deleteMovementRow removes a movement's attachment links first, then the
// row itself. Links are owned by their movement and never outlive it.
func deleteMovementRow(e execer, organizationID string, id int64) error {
	if _, err := e.Exec(`DELETE FROM movement_attachments WHERE movement_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete attachment links for movement %d: %w", id, err)
	}
	if _, err := e.Exec(`DELETE FROM movements WHERE id = ? AND organization_id = ?`, id, organizationID); err != nil {
		return fmt.Errorf("failed to delete movement %d: %w", id, err)
	}
	return nil
}

// checkSharedFields enforces the group invariant: both members agree on
// date, creator, description and project.
func checkSharedFields(egress, ingress *Movement) error {
	switch {
	case egress.MovementDate != ingress.MovementDate:
		return domain.NewIntegrityError("movement_group", "", "pair members disagree on movement_date")
	case egress.CreatedBy != ingress.CreatedBy:
		return domain.NewIntegrityError("movement_group", "", "pair members disagree on created_by")
	case !equalStringPtr(egress.Description, ingress.Description):
		return domain.NewIntegrityError("movement_group", "", "pair members disagree on description")
	case !equalStringPtr(egress.ProjectID, ingress.ProjectID):
		return domain.NewIntegrityError("movement_group", "", "pair members disagree on project_id")
	}
	return nil
}

// stampGroup writes the group id into the column matching the pair kind and
// fixes the directions.
func stampGroup(kind PairKind, groupID string, egress, ingress *Movement) {
	eg, in := DirectionEgress, DirectionIngress
	egress.Direction = &eg
	ingress.Direction = &in

	if kind == PairConversion {
		egress.ConversionGroupID = &groupID
		ingress.ConversionGroupID = &groupID
		egress.TransferGroupID = nil
		ingress.TransferGroupID = nil
		return
	}
	egress.TransferGroupID = &groupID
	ingress.TransferGroupID = &groupID
	egress.ConversionGroupID = nil
	ingress.ConversionGroupID = nil
}

// assemblePair validates cardinality and side markers for a loaded group.
func assemblePair(groupID string, members []*Movement) (*Pair, error) {
	if len(members) != 2 {
		return nil, domain.NewIntegrityError("movement_group", groupID,
			fmt.Sprintf("group resolves to %d rows, want 2", len(members)))
	}

	var egress, ingress *Movement
	for _, m := range members {
		if m.Direction == nil {
			return nil, domain.NewIntegrityError("movement_group", groupID, "pair member missing direction")
		}
		switch *m.Direction {
		case DirectionEgress:
			egress = m
		case DirectionIngress:
			ingress = m
		}
	}
	if egress == nil || ingress == nil {
		return nil, domain.NewIntegrityError("movement_group", groupID,
			"group must have one egress and one ingress side")
	}

	kind := PairTransfer
	if egress.ConversionGroupID != nil {
		kind = PairConversion
	}
	return &Pair{Kind: kind, GroupID: groupID, Egress: egress, Ingress: ingress}, nil
}

// directionValue unwraps the optional direction for the sql driver.
func directionValue(d *Direction) interface{} {
	if d == nil {
		return nil
	}
	return string(*d)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMovement(row rowScanner) (*Movement, error) {
	var m Movement
	var projectID, description, conversionGroup, transferGroup, direction sql.NullString
	var categoryID, subcategoryID sql.NullInt64
	var exchangeRate sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(
		&m.ID,
		&m.OrganizationID,
		&projectID,
		&m.TypeID,
		&categoryID,
		&subcategoryID,
		&m.CurrencyID,
		&m.WalletID,
		&m.Amount,
		&m.MovementDate,
		&m.CreatedBy,
		&description,
		&exchangeRate,
		&conversionGroup,
		&transferGroup,
		&direction,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if projectID.Valid {
		m.ProjectID = &projectID.String
	}
	if categoryID.Valid {
		m.CategoryID = &categoryID.Int64
	}
	if subcategoryID.Valid {
		m.SubcategoryID = &subcategoryID.Int64
	}
	if description.Valid {
		m.Description = &description.String
	}
	if exchangeRate.Valid {
		m.ExchangeRate = &exchangeRate.Float64
	}
	if conversionGroup.Valid {
		m.ConversionGroupID = &conversionGroup.String
	}
	if transferGroup.Valid {
		m.TransferGroupID = &transferGroup.String
	}
	if direction.Valid {
		d := Direction(direction.String)
		m.Direction = &d
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &m, nil
}

func scanMovements(rows *sql.Rows) ([]*Movement, error) {
	var movements []*Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movements: %w", err)
	}
	return movements, nil
}
