package taxonomy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edifika/edifika/internal/domain"
	"github.com/edifika/edifika/internal/modules/taxonomy"
)

const org = "org-1"

func ptr(v int64) *int64 { return &v }

func concepts() []*taxonomy.Concept {
	return []*taxonomy.Concept{
		{ID: 1, OrganizationID: org, Name: "Gastos", ViewMode: taxonomy.ViewModeNormal},
		{ID: 11, OrganizationID: org, ParentID: ptr(1), Name: "Materiales", ViewMode: taxonomy.ViewModeMateriales},
		{ID: 111, OrganizationID: org, ParentID: ptr(11), Name: "Cemento", ViewMode: taxonomy.ViewModeNormal},
		{ID: 112, OrganizationID: org, ParentID: ptr(11), Name: "Subcontratos", ViewMode: taxonomy.ViewModeNormal, IsSubcontractMarker: true},
		{ID: 2, OrganizationID: org, Name: "Conversión", ViewMode: taxonomy.ViewModeConversion},
	}
}

func TestBuildTree_LevelsAndLookup(t *testing.T) {
	tree, err := taxonomy.BuildTree(org, concepts())
	require.NoError(t, err)

	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, org, tree.OrganizationID())

	level, ok := tree.LevelOf(1)
	require.True(t, ok)
	assert.Equal(t, taxonomy.LevelType, level)

	level, ok = tree.LevelOf(11)
	require.True(t, ok)
	assert.Equal(t, taxonomy.LevelCategory, level)

	level, ok = tree.LevelOf(112)
	require.True(t, ok)
	assert.Equal(t, taxonomy.LevelSubcategory, level)

	assert.Nil(t, tree.Get(999))
}

func TestBuildTree_RootsAndChildrenOrderedByID(t *testing.T) {
	tree, err := taxonomy.BuildTree(org, concepts())
	require.NoError(t, err)

	roots := tree.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, int64(1), roots[0].ID)
	assert.Equal(t, int64(2), roots[1].ID)

	children := tree.ChildrenOf(11)
	require.Len(t, children, 2)
	assert.Equal(t, int64(111), children[0].ID)
	assert.Equal(t, int64(112), children[1].ID)
}

func TestTree_FlattenIsStablePreOrder(t *testing.T) {
	tree, err := taxonomy.BuildTree(org, concepts())
	require.NoError(t, err)

	ids := func() []int64 {
		flat := tree.Flatten()
		out := make([]int64, len(flat))
		for i, c := range flat {
			out[i] = c.ID
		}
		return out
	}

	want := []int64{1, 11, 111, 112, 2}
	assert.Equal(t, want, ids())
	// Same input, same order, every time
	assert.Equal(t, want, ids())
}

func TestBuildTree_OrphanParentIsIntegrityError(t *testing.T) {
	bad := []*taxonomy.Concept{
		{ID: 1, OrganizationID: org, Name: "Gastos"},
		{ID: 11, OrganizationID: org, ParentID: ptr(99), Name: "Huérfano"},
	}

	_, err := taxonomy.BuildTree(org, bad)
	require.Error(t, err)
	assert.True(t, domain.IsIntegrity(err))
}

func TestBuildTree_TooDeepIsIntegrityError(t *testing.T) {
	bad := append(concepts(), &taxonomy.Concept{
		ID: 1111, OrganizationID: org, ParentID: ptr(111), Name: "Nivel 4",
	})

	_, err := taxonomy.BuildTree(org, bad)
	require.Error(t, err)
	assert.True(t, domain.IsIntegrity(err))
}

func TestBuildTree_CycleIsIntegrityError(t *testing.T) {
	bad := []*taxonomy.Concept{
		{ID: 1, OrganizationID: org, ParentID: ptr(2), Name: "A"},
		{ID: 2, OrganizationID: org, ParentID: ptr(1), Name: "B"},
	}

	_, err := taxonomy.BuildTree(org, bad)
	require.Error(t, err)
	assert.True(t, domain.IsIntegrity(err))
}

func TestBuildTree_DuplicateIDIsIntegrityError(t *testing.T) {
	bad := []*taxonomy.Concept{
		{ID: 1, OrganizationID: org, Name: "A"},
		{ID: 1, OrganizationID: org, Name: "B"},
	}

	_, err := taxonomy.BuildTree(org, bad)
	require.Error(t, err)
	assert.True(t, domain.IsIntegrity(err))
}

func TestBuildTree_ForeignOrganizationIsIntegrityError(t *testing.T) {
	bad := []*taxonomy.Concept{
		{ID: 1, OrganizationID: "org-2", Name: "Ajeno"},
	}

	_, err := taxonomy.BuildTree(org, bad)
	require.Error(t, err)
	assert.True(t, domain.IsIntegrity(err))
}
