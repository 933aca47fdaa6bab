package movementform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edifika/edifika/internal/modules/classification"
	"github.com/edifika/edifika/internal/modules/movementform"
	"github.com/edifika/edifika/internal/modules/movements"
	"github.com/edifika/edifika/internal/modules/taxonomy"
)

const org = "org-1"

func ptr(v int64) *int64      { return &v }
func strPtr(v string) *string { return &v }
func fptr(v float64) *float64 { return &v }

func newTree(t *testing.T) *taxonomy.Tree {
	t.Helper()
	tree, err := taxonomy.BuildTree(org, []*taxonomy.Concept{
		{ID: 1, OrganizationID: org, Name: "Gastos", ViewMode: taxonomy.ViewModeNormal},
		{ID: 11, OrganizationID: org, ParentID: ptr(1), Name: "Mano de obra", ViewMode: taxonomy.ViewModeNormal},
		{ID: 111, OrganizationID: org, ParentID: ptr(11), Name: "Subcontratos", ViewMode: taxonomy.ViewModeNormal, IsSubcontractMarker: true},
		{ID: 2, OrganizationID: org, Name: "Conversión", ViewMode: taxonomy.ViewModeConversion},
	})
	require.NoError(t, err)
	return tree
}

func TestReconstruct_SingleRoundTrip(t *testing.T) {
	tree := newTree(t)

	m := &movements.Movement{
		ID:             42,
		OrganizationID: org,
		ProjectID:      strPtr("project-9"),
		TypeID:         1,
		CategoryID:     ptr(11),
		SubcategoryID:  ptr(111),
		CurrencyID:     "UYU",
		WalletID:       "wallet-main",
		Amount:         1500,
		MovementDate:   "2026-03-02",
		CreatedBy:      "member-7",
		Description:    strPtr("Weekly payroll"),
	}

	state := movementform.Reconstruct(&movements.EditBundle{Single: m}, tree)

	assert.Equal(t, classification.KindSubcontratos, state.Kind)
	require.NotNil(t, state.Single)
	assert.Nil(t, state.Pair)

	assert.Equal(t, "2026-03-02", state.Common.MovementDate)
	assert.Equal(t, "member-7", state.Common.CreatedBy)
	require.NotNil(t, state.Common.ProjectID)
	assert.Equal(t, "project-9", *state.Common.ProjectID)
	require.NotNil(t, state.Common.Description)
	assert.Equal(t, "Weekly payroll", *state.Common.Description)

	assert.Equal(t, int64(42), state.Single.MovementID)
	assert.Equal(t, int64(1), state.Single.TypeID)
	require.NotNil(t, state.Single.CategoryID)
	assert.Equal(t, int64(11), *state.Single.CategoryID)
	require.NotNil(t, state.Single.SubcategoryID)
	assert.Equal(t, int64(111), *state.Single.SubcategoryID)
	assert.Equal(t, "UYU", state.Single.CurrencyID)
	assert.Equal(t, 1500.0, state.Single.Amount)
}

func TestReconstruct_PairRoundTrip(t *testing.T) {
	tree := newTree(t)

	group := "group-1"
	eg, in := movements.DirectionEgress, movements.DirectionIngress
	egress := &movements.Movement{
		ID: 10, OrganizationID: org, TypeID: 2,
		CurrencyID: "UYU", WalletID: "wallet-main", Amount: 40500,
		MovementDate: "2026-03-02", CreatedBy: "member-7",
		Description: strPtr("USD purchase"), ExchangeRate: fptr(40.5),
		ConversionGroupID: &group, Direction: &eg,
	}
	ingress := &movements.Movement{
		ID: 11, OrganizationID: org, TypeID: 2,
		CurrencyID: "USD", WalletID: "wallet-usd", Amount: 1000,
		MovementDate: "2026-03-02", CreatedBy: "member-7",
		Description: strPtr("USD purchase"), ExchangeRate: fptr(40.5),
		ConversionGroupID: &group, Direction: &in,
	}

	state := movementform.Reconstruct(&movements.EditBundle{Pair: &movements.Pair{
		Kind: movements.PairConversion, GroupID: group, Egress: egress, Ingress: ingress,
	}}, tree)

	assert.Equal(t, classification.KindConversion, state.Kind)
	assert.Nil(t, state.Single)
	require.NotNil(t, state.Pair)

	assert.Equal(t, group, state.Pair.GroupID)
	assert.Equal(t, int64(2), state.Pair.TypeID)
	assert.Equal(t, "UYU", state.Pair.CurrencyIDFrom)
	assert.Equal(t, "wallet-main", state.Pair.WalletIDFrom)
	assert.Equal(t, 40500.0, state.Pair.AmountFrom)
	assert.Equal(t, "USD", state.Pair.CurrencyIDTo)
	assert.Equal(t, "wallet-usd", state.Pair.WalletIDTo)
	assert.Equal(t, 1000.0, state.Pair.AmountTo)
	require.NotNil(t, state.Pair.ExchangeRate)
	assert.Equal(t, 40.5, *state.Pair.ExchangeRate)
	assert.Equal(t, "member-7", state.Common.CreatedBy)
}

func TestReconstruct_DeletedConceptYieldsUnknown(t *testing.T) {
	tree := newTree(t)

	m := &movements.Movement{
		ID: 42, OrganizationID: org, TypeID: 99,
		CurrencyID: "UYU", WalletID: "wallet-main", Amount: 100,
		MovementDate: "2026-03-02", CreatedBy: "member-7",
	}

	state := movementform.Reconstruct(&movements.EditBundle{Single: m}, tree)

	// Recoverable state: the form still renders with all stored values
	assert.Equal(t, classification.KindUnknown, state.Kind)
	require.NotNil(t, state.Single)
	assert.Equal(t, int64(99), state.Single.TypeID)
	assert.Equal(t, 100.0, state.Single.Amount)
}

func TestReconstruct_StoredGroupBeatsTaxonomy(t *testing.T) {
	tree := newTree(t)

	// The conversion type was deleted from the taxonomy after this pair was
	// created; the stored group id still decides the kind
	group := "group-2"
	eg, in := movements.DirectionEgress, movements.DirectionIngress
	egress := &movements.Movement{
		ID: 20, OrganizationID: org, TypeID: 99,
		CurrencyID: "UYU", WalletID: "a", Amount: 1,
		MovementDate: "2026-03-02", CreatedBy: "member-7",
		ConversionGroupID: &group, Direction: &eg,
	}
	ingress := &movements.Movement{
		ID: 21, OrganizationID: org, TypeID: 99,
		CurrencyID: "USD", WalletID: "b", Amount: 1,
		MovementDate: "2026-03-02", CreatedBy: "member-7",
		ConversionGroupID: &group, Direction: &in,
	}

	state := movementform.Reconstruct(&movements.EditBundle{Pair: &movements.Pair{
		Kind: movements.PairConversion, GroupID: group, Egress: egress, Ingress: ingress,
	}}, tree)

	assert.Equal(t, classification.KindConversion, state.Kind)
}
