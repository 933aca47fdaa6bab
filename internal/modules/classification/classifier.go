// Package classification derives the movement kind from a concept selection.
// Classify is the single dispatch point for both the create path (cascading
// selector changes) and the edit path (reconstructing a persisted movement);
// duplicating this logic anywhere else is a defect.
package classification

import (
	"strings"

	"github.com/edifika/edifika/internal/modules/taxonomy"
)

// Kind is the classification result for a movement.
type Kind string

const (
	KindNormal         Kind = "normal"
	KindConversion     Kind = "conversion"
	KindTransfer       Kind = "transfer"
	KindAportes        Kind = "aportes"
	KindAportesPropios Kind = "aportes_propios"
	KindRetirosPropios Kind = "retiros_propios"
	KindMateriales     Kind = "materiales"
	KindSubcontratos   Kind = "subcontratos"

	// KindUnknown marks a movement whose concepts no longer exist in the
	// current taxonomy (edited after the movement was created). Callers
	// treat it as a recoverable state, not an error.
	KindUnknown Kind = "unknown"
)

// IsPaired reports whether the kind is persisted as two linked rows.
func (k Kind) IsPaired() bool {
	return k == KindConversion || k == KindTransfer
}

// Selection is the concept choice driving classification: the type is
// mandatory, category and subcategory narrow it down.
type Selection struct {
	TypeID        int64
	CategoryID    *int64
	SubcategoryID *int64
}

// materialsKeyword is the name fragment that resolves a category to
// materiales even when its view_mode is normal.
const materialsKeyword = "material"

// Classify resolves the movement kind for a selection against a taxonomy
// snapshot. Dispatch order, first match wins:
//
//  1. type view_mode conversion/transfer decides alone
//  2. category view_mode aportes/aportes_propios/retiros_propios/materiales,
//     or a category name containing the materials keyword
//  3. a subcategory carrying the subcontract marker
//  4. normal
//
// A selection referencing concepts missing from the tree yields KindUnknown.
func Classify(tree *taxonomy.Tree, sel Selection) Kind {
	typeNode := tree.Get(sel.TypeID)
	if typeNode == nil || !typeNode.IsRoot() {
		return KindUnknown
	}

	switch typeNode.ViewMode {
	case taxonomy.ViewModeConversion:
		return KindConversion
	case taxonomy.ViewModeTransfer:
		return KindTransfer
	}

	if sel.CategoryID != nil {
		category := tree.Get(*sel.CategoryID)
		if category == nil {
			return KindUnknown
		}

		switch category.ViewMode {
		case taxonomy.ViewModeAportes:
			return KindAportes
		case taxonomy.ViewModeAportesPropios:
			return KindAportesPropios
		case taxonomy.ViewModeRetirosPropios:
			return KindRetirosPropios
		case taxonomy.ViewModeMateriales:
			return KindMateriales
		}
		if strings.Contains(strings.ToLower(category.Name), materialsKeyword) {
			return KindMateriales
		}
	}

	if sel.SubcategoryID != nil {
		subcategory := tree.Get(*sel.SubcategoryID)
		if subcategory == nil {
			return KindUnknown
		}
		if subcategory.IsSubcontractMarker {
			return KindSubcontratos
		}
	}

	return KindNormal
}

// ClassifyStored resolves the kind for a persisted movement. A non-null
// group id decides immediately: the stored pairing is authoritative over
// whatever the taxonomy says today.
func ClassifyStored(tree *taxonomy.Tree, sel Selection, conversionGroupID, transferGroupID *string) Kind {
	if conversionGroupID != nil {
		return KindConversion
	}
	if transferGroupID != nil {
		return KindTransfer
	}
	return Classify(tree, sel)
}
