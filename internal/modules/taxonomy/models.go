// Package taxonomy stores and exposes the 3-level concept classification
// tree per organization: type (root) -> category -> subcategory. The
// transaction engine only ever reads it; taxonomy editing is an admin
// concern that lives outside this service.
package taxonomy

// ViewMode indicates which specialized handling a movement filed under a
// concept should receive.
type ViewMode string

const (
	ViewModeNormal         ViewMode = "normal"
	ViewModeConversion     ViewMode = "conversion"
	ViewModeTransfer       ViewMode = "transfer"
	ViewModeAportes        ViewMode = "aportes"
	ViewModeAportesPropios ViewMode = "aportes_propios"
	ViewModeRetirosPropios ViewMode = "retiros_propios"
	ViewModeMateriales     ViewMode = "materiales"
	ViewModeSubcontratos   ViewMode = "subcontratos"
)

// Level is the depth of a concept in the tree.
type Level int

const (
	LevelType Level = iota
	LevelCategory
	LevelSubcategory
)

func (l Level) String() string {
	switch l {
	case LevelType:
		return "type"
	case LevelCategory:
		return "category"
	case LevelSubcategory:
		return "subcategory"
	}
	return "unknown"
}

// Concept is one node of the classification tree.
//
// IsSubcontractMarker replaces the hardcoded subcategory identifier the
// classifier used to compare against: marking is now an explicit attribute
// of the node instead of a magic constant.
type Concept struct {
	ID                  int64    `json:"id"`
	OrganizationID      string   `json:"organization_id"`
	ParentID            *int64   `json:"parent_id"`
	Name                string   `json:"name"`
	ViewMode            ViewMode `json:"view_mode"`
	IsSubcontractMarker bool     `json:"is_subcontract_marker"`
}

// IsRoot reports whether the concept is a type node.
func (c *Concept) IsRoot() bool {
	return c.ParentID == nil
}
