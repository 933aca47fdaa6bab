package taxonomy

import "database/sql"

// Schema for the concepts table. Parent linkage and the subcontract marker
// column encode invariants the engine depends on, so they are owned here
// rather than treated as a store implementation detail.
const Schema = `
CREATE TABLE IF NOT EXISTS concepts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    organization_id TEXT NOT NULL,
    parent_id INTEGER REFERENCES concepts(id),
    name TEXT NOT NULL,
    view_mode TEXT NOT NULL DEFAULT 'normal',
    is_subcontract_marker INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_concepts_org ON concepts(organization_id);
CREATE INDEX IF NOT EXISTS idx_concepts_parent ON concepts(parent_id);
`

// InitSchema ensures the concepts table exists.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
