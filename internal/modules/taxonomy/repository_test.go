package taxonomy_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edifika/edifika/internal/database"
	"github.com/edifika/edifika/internal/modules/taxonomy"
	testhelpers "github.com/edifika/edifika/internal/testing"
)

func newTaxonomyDB(t *testing.T) (*database.DB, func()) {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "taxonomy", taxonomy.Schema)
	testhelpers.SeedConcepts(t, db, testhelpers.NewConceptFixtures())
	return db, cleanup
}

func TestRepository_Get(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())

	c, err := repo.Get(testhelpers.TestOrg, testhelpers.ConceptMaterials)
	require.NoError(t, err)
	assert.Equal(t, "Materiales", c.Name)
	assert.Equal(t, taxonomy.ViewModeMateriales, c.ViewMode)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, testhelpers.ConceptExpenses, *c.ParentID)
}

func TestRepository_GetNotFound(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())

	_, err := repo.Get(testhelpers.TestOrg, 9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, taxonomy.ErrNotFound))

	// Concepts of another organization are invisible, not merely filtered
	_, err = repo.Get("org-other", testhelpers.ConceptExpenses)
	assert.True(t, errors.Is(err, taxonomy.ErrNotFound))
}

func TestRepository_ChildrenOf(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())

	children, err := repo.ChildrenOf(testhelpers.TestOrg, testhelpers.ConceptMaterials)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, testhelpers.ConceptCement, children[0].ID)
	assert.Equal(t, testhelpers.ConceptSubcontracts, children[1].ID)
	assert.True(t, children[1].IsSubcontractMarker)
}

func TestRepository_LoadTree(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())

	tree, err := repo.LoadTree(testhelpers.TestOrg)
	require.NoError(t, err)
	assert.Equal(t, len(testhelpers.NewConceptFixtures()), tree.Len())
	assert.Len(t, tree.Roots(), 4)
}

func TestCache_MissLoadsAndCaches(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())
	cache := taxonomy.NewCache(repo, zerolog.Nop())

	tree1, err := cache.Tree(testhelpers.TestOrg)
	require.NoError(t, err)

	// Second call returns the same snapshot without reloading
	tree2, err := cache.Tree(testhelpers.TestOrg)
	require.NoError(t, err)
	assert.Same(t, tree1, tree2)
}

func TestCache_RefreshSwapsSnapshot(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())
	cache := taxonomy.NewCache(repo, zerolog.Nop())

	tree1, err := cache.Tree(testhelpers.TestOrg)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO concepts (id, organization_id, parent_id, name, view_mode, is_subcontract_marker, created_at)
		VALUES (500, ?, NULL, 'Nuevo tipo', 'normal', 0, '2026-01-01T00:00:00Z')
	`, testhelpers.TestOrg)
	require.NoError(t, err)

	// The admin edit is invisible until a refresh
	tree2, err := cache.Tree(testhelpers.TestOrg)
	require.NoError(t, err)
	assert.Nil(t, tree2.Get(500))

	refreshed, err := cache.Refresh(testhelpers.TestOrg)
	require.NoError(t, err)
	assert.NotNil(t, refreshed.Get(500))
	assert.Equal(t, tree1.Len()+1, refreshed.Len())
}

func TestCache_RefreshAllCountsCachedOrgs(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())
	cache := taxonomy.NewCache(repo, zerolog.Nop())

	assert.Equal(t, 0, cache.RefreshAll())

	_, err := cache.Tree(testhelpers.TestOrg)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.RefreshAll())
}

func TestCache_Invalidate(t *testing.T) {
	db, cleanup := newTaxonomyDB(t)
	defer cleanup()

	repo := taxonomy.NewRepository(db.Conn(), zerolog.Nop())
	cache := taxonomy.NewCache(repo, zerolog.Nop())

	tree1, err := cache.Tree(testhelpers.TestOrg)
	require.NoError(t, err)

	cache.Invalidate(testhelpers.TestOrg)

	tree2, err := cache.Tree(testhelpers.TestOrg)
	require.NoError(t, err)
	assert.NotSame(t, tree1, tree2)
}
