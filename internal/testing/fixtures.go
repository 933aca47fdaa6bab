package testing

import (
	"testing"
	"time"

	"github.com/edifika/edifika/internal/database"
	"github.com/edifika/edifika/internal/modules/movements"
)

// ConceptFixture describes one concept row to seed.
type ConceptFixture struct {
	ID                  int64
	OrganizationID      string
	ParentID            *int64
	Name                string
	ViewMode            string
	IsSubcontractMarker bool
}

// TestOrg is the organization id used by the standard fixtures.
const TestOrg = "org-1"

// Well-known concept ids seeded by NewConceptFixtures. Tests reference these
// instead of re-reading the table.
const (
	ConceptExpenses       int64 = 1
	ConceptMaterials      int64 = 11
	ConceptCement         int64 = 111
	ConceptSubcontracts   int64 = 112
	ConceptLabor          int64 = 12
	ConceptConversion     int64 = 2
	ConceptTransfer       int64 = 3
	ConceptContributions  int64 = 4
	ConceptPartnerContrib int64 = 41
	ConceptOwnContrib     int64 = 42
	ConceptOwnWithdrawal  int64 = 43
)

// NewConceptFixtures returns a three-level concept tree covering every
// classification branch: plain expenses, a materials category, a subcontract
// marker leaf, conversion and transfer types, and the contribution family.
func NewConceptFixtures() []ConceptFixture {
	ptr := func(v int64) *int64 { return &v }
	return []ConceptFixture{
		{ID: ConceptExpenses, OrganizationID: TestOrg, Name: "Gastos", ViewMode: "normal"},
		{ID: ConceptMaterials, OrganizationID: TestOrg, ParentID: ptr(ConceptExpenses), Name: "Materiales", ViewMode: "materiales"},
		{ID: ConceptCement, OrganizationID: TestOrg, ParentID: ptr(ConceptMaterials), Name: "Cemento", ViewMode: "normal"},
		{ID: ConceptSubcontracts, OrganizationID: TestOrg, ParentID: ptr(ConceptMaterials), Name: "Subcontratos", ViewMode: "normal", IsSubcontractMarker: true},
		{ID: ConceptLabor, OrganizationID: TestOrg, ParentID: ptr(ConceptExpenses), Name: "Mano de obra", ViewMode: "normal"},
		{ID: ConceptConversion, OrganizationID: TestOrg, Name: "Conversión de moneda", ViewMode: "conversion"},
		{ID: ConceptTransfer, OrganizationID: TestOrg, Name: "Traspaso entre billeteras", ViewMode: "transfer"},
		{ID: ConceptContributions, OrganizationID: TestOrg, Name: "Aportes y retiros", ViewMode: "normal"},
		{ID: ConceptPartnerContrib, OrganizationID: TestOrg, ParentID: ptr(ConceptContributions), Name: "Aportes de socios", ViewMode: "aportes"},
		{ID: ConceptOwnContrib, OrganizationID: TestOrg, ParentID: ptr(ConceptContributions), Name: "Aportes propios", ViewMode: "aportes_propios"},
		{ID: ConceptOwnWithdrawal, OrganizationID: TestOrg, ParentID: ptr(ConceptContributions), Name: "Retiros propios", ViewMode: "retiros_propios"},
	}
}

// SeedConcepts inserts the given concepts into a taxonomy database.
func SeedConcepts(t *testing.T, db *database.DB, concepts []ConceptFixture) {
	t.Helper()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range concepts {
		marker := 0
		if c.IsSubcontractMarker {
			marker = 1
		}
		_, err := db.Exec(`
			INSERT INTO concepts (id, organization_id, parent_id, name, view_mode, is_subcontract_marker, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.OrganizationID, c.ParentID, c.Name, c.ViewMode, marker, now)
		if err != nil {
			t.Fatalf("Failed to seed concept %d (%s): %v", c.ID, c.Name, err)
		}
	}
}

// NewSingleInputFixture returns a valid singular movement input against the
// standard concept tree.
func NewSingleInputFixture() movements.SingleInput {
	category := ConceptLabor
	description := "Weekly payroll"
	project := "project-9"
	return movements.SingleInput{
		ProjectID:    &project,
		TypeID:       ConceptExpenses,
		CategoryID:   &category,
		CurrencyID:   "UYU",
		WalletID:     "wallet-main",
		Amount:       1500,
		MovementDate: "2026-03-02",
		Description:  &description,
	}
}

// NewPairInputFixture returns a valid currency conversion input against the
// standard concept tree.
func NewPairInputFixture() movements.PairInput {
	rate := 40.5
	description := "USD purchase"
	return movements.PairInput{
		TypeID:         ConceptConversion,
		CurrencyIDFrom: "UYU",
		WalletIDFrom:   "wallet-main",
		AmountFrom:     40500,
		CurrencyIDTo:   "USD",
		WalletIDTo:     "wallet-usd",
		AmountTo:       1000,
		ExchangeRate:   &rate,
		MovementDate:   "2026-03-02",
		Description:    &description,
	}
}
