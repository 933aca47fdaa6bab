package movements_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edifika/edifika/internal/domain"
	"github.com/edifika/edifika/internal/events"
	"github.com/edifika/edifika/internal/modules/classification"
	"github.com/edifika/edifika/internal/modules/movements"
	"github.com/edifika/edifika/internal/modules/taxonomy"
	testhelpers "github.com/edifika/edifika/internal/testing"
)

var ident = domain.Identity{OrganizationID: testhelpers.TestOrg, MemberID: "member-7"}

func newService(t *testing.T) (*movements.Service, func()) {
	t.Helper()

	taxDB, taxCleanup := testhelpers.NewTestDB(t, "taxonomy", taxonomy.Schema)
	testhelpers.SeedConcepts(t, taxDB, testhelpers.NewConceptFixtures())

	ledgerDB, ledgerCleanup := newLedgerDB(t)

	cache := taxonomy.NewCache(taxonomy.NewRepository(taxDB.Conn(), zerolog.Nop()), zerolog.Nop())
	audit := movements.NewAuditLog(ledgerDB.Conn(), zerolog.Nop())
	repo := movements.NewRepository(ledgerDB.Conn(), audit, zerolog.Nop())
	svc := movements.NewService(repo, cache, events.NewBus(zerolog.Nop()), zerolog.Nop())

	return svc, func() {
		ledgerCleanup()
		taxCleanup()
	}
}

func TestService_CreateSingleClassifies(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	created, kind, err := svc.CreateSingle(ident, testhelpers.NewSingleInputFixture())
	require.NoError(t, err)
	assert.Equal(t, classification.KindNormal, kind)
	assert.Equal(t, ident.MemberID, created.CreatedBy)
	assert.Equal(t, ident.OrganizationID, created.OrganizationID)
}

func TestService_CreateSingleRejectsPairedKinds(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	for _, typeID := range []int64{testhelpers.ConceptConversion, testhelpers.ConceptTransfer} {
		in := testhelpers.NewSingleInputFixture()
		in.TypeID = typeID
		in.CategoryID = nil

		_, _, err := svc.CreateSingle(ident, in)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	}
}

func TestService_AmountMustBePositiveForEveryKind(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	// Singular kinds
	for _, amount := range []float64{0, -10} {
		in := testhelpers.NewSingleInputFixture()
		in.Amount = amount
		_, _, err := svc.CreateSingle(ident, in)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	}

	// Both sides of a pair
	pin := testhelpers.NewPairInputFixture()
	pin.AmountFrom = 0
	_, err := svc.CreatePair(ident, pin)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	pin = testhelpers.NewPairInputFixture()
	pin.AmountTo = -5
	_, err = svc.CreatePair(ident, pin)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestService_CreatePairRequiresPairedType(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	in := testhelpers.NewPairInputFixture()
	in.TypeID = testhelpers.ConceptExpenses

	_, err := svc.CreatePair(ident, in)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestService_CreatePairSharesCommonFields(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	pair, err := svc.CreatePair(ident, testhelpers.NewPairInputFixture())
	require.NoError(t, err)

	assert.Equal(t, movements.PairConversion, pair.Kind)
	assert.Equal(t, pair.Egress.MovementDate, pair.Ingress.MovementDate)
	assert.Equal(t, pair.Egress.CreatedBy, pair.Ingress.CreatedBy)
	assert.Equal(t, pair.Egress.Description, pair.Ingress.Description)
	assert.Equal(t, "UYU", pair.Egress.CurrencyID)
	assert.Equal(t, "USD", pair.Ingress.CurrencyID)
	assert.Equal(t, 40500.0, pair.Egress.Amount)
	assert.Equal(t, 1000.0, pair.Ingress.Amount)
}

func TestService_TransferPairMayKeepSameCurrencyAndAmount(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	in := testhelpers.NewPairInputFixture()
	in.TypeID = testhelpers.ConceptTransfer
	in.CurrencyIDTo = in.CurrencyIDFrom
	in.AmountTo = in.AmountFrom
	in.WalletIDTo = "wallet-secondary"
	in.ExchangeRate = nil

	pair, err := svc.CreatePair(ident, in)
	require.NoError(t, err)
	assert.Equal(t, movements.PairTransfer, pair.Kind)
	assert.Equal(t, pair.Egress.CurrencyID, pair.Ingress.CurrencyID)
	assert.Equal(t, pair.Egress.Amount, pair.Ingress.Amount)
	assert.NotEqual(t, pair.Egress.WalletID, pair.Ingress.WalletID)
}

func TestService_DeleteRoutesPairMemberToPairDelete(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	pair, err := svc.CreatePair(ident, testhelpers.NewPairInputFixture())
	require.NoError(t, err)

	// Deleting one side removes the whole group
	require.NoError(t, svc.Delete(ident, pair.Ingress.ID))

	_, err = svc.LoadForEdit(ident, pair.Egress.ID)
	assert.True(t, errors.Is(err, movements.ErrNotFound))
	_, err = svc.LoadForEdit(ident, pair.Ingress.ID)
	assert.True(t, errors.Is(err, movements.ErrNotFound))
}

func TestService_UpdatePairKeepsGroup(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	pair, err := svc.CreatePair(ident, testhelpers.NewPairInputFixture())
	require.NoError(t, err)

	in := testhelpers.NewPairInputFixture()
	in.AmountFrom = 81000
	in.AmountTo = 2000

	updated, err := svc.UpdatePair(ident, pair.GroupID, in)
	require.NoError(t, err)
	assert.Equal(t, pair.GroupID, updated.GroupID)
	assert.Equal(t, 81000.0, updated.Egress.Amount)
	assert.Equal(t, 2000.0, updated.Ingress.Amount)
}

func TestService_ClassifyMatchesCreatePath(t *testing.T) {
	svc, cleanup := newService(t)
	defer cleanup()

	category := testhelpers.ConceptMaterials
	kind, err := svc.Classify(ident, classification.Selection{
		TypeID:     testhelpers.ConceptExpenses,
		CategoryID: &category,
	})
	require.NoError(t, err)
	assert.Equal(t, classification.KindMateriales, kind)

	subcategory := testhelpers.ConceptSubcontracts
	kind, err = svc.Classify(ident, classification.Selection{
		TypeID:        testhelpers.ConceptExpenses,
		CategoryID:    &category,
		SubcategoryID: &subcategory,
	})
	require.NoError(t, err)
	// Category-level materiales wins before the subcategory marker
	assert.Equal(t, classification.KindMateriales, kind)
}
