package classification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edifika/edifika/internal/modules/classification"
	"github.com/edifika/edifika/internal/modules/taxonomy"
)

const org = "org-1"

func ptr(v int64) *int64 { return &v }

// newTree builds a tree covering every dispatch branch.
func newTree(t *testing.T) *taxonomy.Tree {
	t.Helper()
	tree, err := taxonomy.BuildTree(org, []*taxonomy.Concept{
		{ID: 1, OrganizationID: org, Name: "Gastos", ViewMode: taxonomy.ViewModeNormal},
		{ID: 11, OrganizationID: org, ParentID: ptr(1), Name: "Materiales", ViewMode: taxonomy.ViewModeMateriales},
		{ID: 12, OrganizationID: org, ParentID: ptr(1), Name: "Mano de obra", ViewMode: taxonomy.ViewModeNormal},
		{ID: 13, OrganizationID: org, ParentID: ptr(1), Name: "Material de obra", ViewMode: taxonomy.ViewModeNormal},
		{ID: 111, OrganizationID: org, ParentID: ptr(11), Name: "Cemento", ViewMode: taxonomy.ViewModeNormal},
		{ID: 121, OrganizationID: org, ParentID: ptr(12), Name: "Subcontratos", ViewMode: taxonomy.ViewModeNormal, IsSubcontractMarker: true},
		{ID: 2, OrganizationID: org, Name: "Conversión de moneda", ViewMode: taxonomy.ViewModeConversion},
		{ID: 3, OrganizationID: org, Name: "Traspaso", ViewMode: taxonomy.ViewModeTransfer},
		{ID: 4, OrganizationID: org, Name: "Aportes y retiros", ViewMode: taxonomy.ViewModeNormal},
		{ID: 41, OrganizationID: org, ParentID: ptr(4), Name: "Aportes de socios", ViewMode: taxonomy.ViewModeAportes},
		{ID: 42, OrganizationID: org, ParentID: ptr(4), Name: "Aportes propios", ViewMode: taxonomy.ViewModeAportesPropios},
		{ID: 43, OrganizationID: org, ParentID: ptr(4), Name: "Retiros propios", ViewMode: taxonomy.ViewModeRetirosPropios},
	})
	require.NoError(t, err)
	return tree
}

func TestClassify_DispatchTable(t *testing.T) {
	tree := newTree(t)

	tests := []struct {
		name string
		sel  classification.Selection
		want classification.Kind
	}{
		{"type only, normal", classification.Selection{TypeID: 1}, classification.KindNormal},
		{"conversion type decides alone", classification.Selection{TypeID: 2}, classification.KindConversion},
		{"transfer type decides alone", classification.Selection{TypeID: 3}, classification.KindTransfer},
		{"conversion type ignores category", classification.Selection{TypeID: 2, CategoryID: ptr(11)}, classification.KindConversion},
		{"aportes category", classification.Selection{TypeID: 4, CategoryID: ptr(41)}, classification.KindAportes},
		{"aportes propios category", classification.Selection{TypeID: 4, CategoryID: ptr(42)}, classification.KindAportesPropios},
		{"retiros propios category", classification.Selection{TypeID: 4, CategoryID: ptr(43)}, classification.KindRetirosPropios},
		{"materiales view mode", classification.Selection{TypeID: 1, CategoryID: ptr(11)}, classification.KindMateriales},
		{"materiales by name keyword", classification.Selection{TypeID: 1, CategoryID: ptr(13)}, classification.KindMateriales},
		{"category decides before subcategory", classification.Selection{TypeID: 1, CategoryID: ptr(11), SubcategoryID: ptr(111)}, classification.KindMateriales},
		{"subcontract marker subcategory", classification.Selection{TypeID: 1, CategoryID: ptr(12), SubcategoryID: ptr(121)}, classification.KindSubcontratos},
		{"plain subcategory stays normal", classification.Selection{TypeID: 1, CategoryID: ptr(12)}, classification.KindNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classification.Classify(tree, tt.sel))
		})
	}
}

func TestClassify_IsDeterministic(t *testing.T) {
	tree := newTree(t)
	sel := classification.Selection{TypeID: 1, CategoryID: ptr(12), SubcategoryID: ptr(121)}

	first := classification.Classify(tree, sel)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, classification.Classify(tree, sel))
	}
}

func TestClassify_MissingConceptsYieldUnknown(t *testing.T) {
	tree := newTree(t)

	// Type no longer in the taxonomy
	assert.Equal(t, classification.KindUnknown,
		classification.Classify(tree, classification.Selection{TypeID: 999}))

	// Category deleted after the movement was created
	assert.Equal(t, classification.KindUnknown,
		classification.Classify(tree, classification.Selection{TypeID: 1, CategoryID: ptr(999)}))

	// Subcategory deleted after the movement was created
	assert.Equal(t, classification.KindUnknown,
		classification.Classify(tree, classification.Selection{TypeID: 1, CategoryID: ptr(12), SubcategoryID: ptr(999)}))

	// A non-root concept used as type is stale data, not a type
	assert.Equal(t, classification.KindUnknown,
		classification.Classify(tree, classification.Selection{TypeID: 11}))
}

func TestClassifyStored_GroupIDWins(t *testing.T) {
	tree := newTree(t)
	conversionGroup := "group-c"
	transferGroup := "group-t"

	// Even with concepts gone from the taxonomy, the persisted pairing decides
	assert.Equal(t, classification.KindConversion,
		classification.ClassifyStored(tree, classification.Selection{TypeID: 999}, &conversionGroup, nil))
	assert.Equal(t, classification.KindTransfer,
		classification.ClassifyStored(tree, classification.Selection{TypeID: 999}, nil, &transferGroup))

	// Without a group id it falls through to the live classifier
	assert.Equal(t, classification.KindNormal,
		classification.ClassifyStored(tree, classification.Selection{TypeID: 1}, nil, nil))
}

func TestKind_IsPaired(t *testing.T) {
	assert.True(t, classification.KindConversion.IsPaired())
	assert.True(t, classification.KindTransfer.IsPaired())
	assert.False(t, classification.KindNormal.IsPaired())
	assert.False(t, classification.KindMateriales.IsPaired())
	assert.False(t, classification.KindSubcontratos.IsPaired())
	assert.False(t, classification.KindUnknown.IsPaired())
}
