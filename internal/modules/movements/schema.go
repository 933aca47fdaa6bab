package movements

import "database/sql"

// Schema for the movements ledger. The two group-id columns and the
// direction column encode the pairing invariant; the amount CHECK backs up
// the service-level validation.
const Schema = `
CREATE TABLE IF NOT EXISTS movements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    organization_id TEXT NOT NULL,
    project_id TEXT,
    type_id INTEGER NOT NULL,
    category_id INTEGER,
    subcategory_id INTEGER,
    currency_id TEXT NOT NULL,
    wallet_id TEXT NOT NULL,
    amount REAL NOT NULL CHECK(amount > 0),
    movement_date TEXT NOT NULL,
    created_by TEXT NOT NULL,
    description TEXT,
    exchange_rate REAL,
    conversion_group_id TEXT,
    transfer_group_id TEXT,
    direction TEXT CHECK(direction IN ('egress', 'ingress')),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    CHECK (conversion_group_id IS NULL OR transfer_group_id IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_movements_org ON movements(organization_id);
CREATE INDEX IF NOT EXISTS idx_movements_project ON movements(project_id);
CREATE INDEX IF NOT EXISTS idx_movements_conversion_group ON movements(conversion_group_id);
CREATE INDEX IF NOT EXISTS idx_movements_transfer_group ON movements(transfer_group_id);
CREATE INDEX IF NOT EXISTS idx_movements_date ON movements(movement_date);

CREATE TABLE IF NOT EXISTS movement_audit (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    movement_id INTEGER NOT NULL,
    organization_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    snapshot BLOB NOT NULL,
    recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movement_audit_movement ON movement_audit(movement_id);
CREATE INDEX IF NOT EXISTS idx_movement_audit_recorded ON movement_audit(recorded_at);
`

// InitSchema ensures the movements and movement_audit tables exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
