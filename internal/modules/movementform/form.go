// Package movementform reconstructs and drives the movement editing form.
// One shared CommonFields struct plus a kind-specific extension replaces the
// old parallel per-kind form objects, so there is nothing to mirror between
// copies.
package movementform

import (
	"github.com/edifika/edifika/internal/modules/classification"
	"github.com/edifika/edifika/internal/modules/movements"
	"github.com/edifika/edifika/internal/modules/taxonomy"
)

// CommonFields are the fields every movement kind shares.
type CommonFields struct {
	MovementDate string  `json:"movement_date"`
	ProjectID    *string `json:"project_id"`
	Description  *string `json:"description"`
	CreatedBy    string  `json:"created_by"`
}

// SingleFields is the extension for singular kinds (normal, aportes,
// aportes_propios, retiros_propios, materiales, subcontratos).
type SingleFields struct {
	MovementID    int64    `json:"movement_id"`
	TypeID        int64    `json:"type_id"`
	CategoryID    *int64   `json:"category_id"`
	SubcategoryID *int64   `json:"subcategory_id"`
	CurrencyID    string   `json:"currency_id"`
	WalletID      string   `json:"wallet_id"`
	Amount        float64  `json:"amount"`
	ExchangeRate  *float64 `json:"exchange_rate"`
}

// PairFields is the extension for conversion and transfer kinds: the from
// side mirrors the egress row, the to side the ingress row.
type PairFields struct {
	GroupID        string   `json:"group_id"`
	TypeID         int64    `json:"type_id"`
	CurrencyIDFrom string   `json:"currency_id_from"`
	WalletIDFrom   string   `json:"wallet_id_from"`
	AmountFrom     float64  `json:"amount_from"`
	CurrencyIDTo   string   `json:"currency_id_to"`
	WalletIDTo     string   `json:"wallet_id_to"`
	AmountTo       float64  `json:"amount_to"`
	ExchangeRate   *float64 `json:"exchange_rate"`
}

// FormState is the reconstructed editing state: common fields plus exactly
// one kind-specific extension.
type FormState struct {
	Kind   classification.Kind `json:"kind"`
	Common CommonFields        `json:"common"`
	Single *SingleFields       `json:"single,omitempty"`
	Pair   *PairFields         `json:"pair,omitempty"`
}

// Reconstruct re-derives the form state for an existing movement. The kind
// always comes from the shared classifier: a persisted group id wins
// immediately, otherwise the stored selection is re-evaluated against the
// current taxonomy. Concepts deleted since creation yield KindUnknown, a
// state the form renders as recoverable rather than failing.
func Reconstruct(bundle *movements.EditBundle, tree *taxonomy.Tree) *FormState {
	if bundle.IsPair() {
		return reconstructPair(bundle.Pair, tree)
	}
	return reconstructSingle(bundle.Single, tree)
}

func reconstructSingle(m *movements.Movement, tree *taxonomy.Tree) *FormState {
	kind := classification.ClassifyStored(tree, classification.Selection{
		TypeID:        m.TypeID,
		CategoryID:    m.CategoryID,
		SubcategoryID: m.SubcategoryID,
	}, m.ConversionGroupID, m.TransferGroupID)

	return &FormState{
		Kind: kind,
		Common: CommonFields{
			MovementDate: m.MovementDate,
			ProjectID:    m.ProjectID,
			Description:  m.Description,
			CreatedBy:    m.CreatedBy,
		},
		Single: &SingleFields{
			MovementID:    m.ID,
			TypeID:        m.TypeID,
			CategoryID:    m.CategoryID,
			SubcategoryID: m.SubcategoryID,
			CurrencyID:    m.CurrencyID,
			WalletID:      m.WalletID,
			Amount:        m.Amount,
			ExchangeRate:  m.ExchangeRate,
		},
	}
}

func reconstructPair(p *movements.Pair, tree *taxonomy.Tree) *FormState {
	egress, ingress := p.Egress, p.Ingress

	kind := classification.ClassifyStored(tree, classification.Selection{
		TypeID:        egress.TypeID,
		CategoryID:    egress.CategoryID,
		SubcategoryID: egress.SubcategoryID,
	}, egress.ConversionGroupID, egress.TransferGroupID)

	return &FormState{
		Kind: kind,
		Common: CommonFields{
			MovementDate: egress.MovementDate,
			ProjectID:    egress.ProjectID,
			Description:  egress.Description,
			CreatedBy:    egress.CreatedBy,
		},
		Pair: &PairFields{
			GroupID:        p.GroupID,
			TypeID:         egress.TypeID,
			CurrencyIDFrom: egress.CurrencyID,
			WalletIDFrom:   egress.WalletID,
			AmountFrom:     egress.Amount,
			CurrencyIDTo:   ingress.CurrencyID,
			WalletIDTo:     ingress.WalletID,
			AmountTo:       ingress.Amount,
			ExchangeRate:   egress.ExchangeRate,
		},
	}
}
