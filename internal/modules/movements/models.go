// Package movements is the sole reader and writer of movement rows and the
// enforcer of the pairing invariant: a conversion or transfer is persisted
// as exactly two rows sharing one group id, written atomically.
package movements

import (
	"time"
)

// Direction marks which side of a pair a row represents. Singular rows
// carry no direction.
type Direction string

const (
	DirectionEgress  Direction = "egress"
	DirectionIngress Direction = "ingress"
)

// Movement is one financial ledger row.
type Movement struct {
	ID                int64      `json:"id,omitempty"`
	OrganizationID    string     `json:"organization_id"`
	ProjectID         *string    `json:"project_id"`         // nil = organization-wide
	TypeID            int64      `json:"type_id"`
	CategoryID        *int64     `json:"category_id"`
	SubcategoryID     *int64     `json:"subcategory_id"`
	CurrencyID        string     `json:"currency_id"`
	WalletID          string     `json:"wallet_id"`
	Amount            float64    `json:"amount"`
	MovementDate      string     `json:"movement_date"`      // YYYY-MM-DD
	CreatedBy         string     `json:"created_by"`
	Description       *string    `json:"description"`
	ExchangeRate      *float64   `json:"exchange_rate"`
	ConversionGroupID *string    `json:"conversion_group_id"`
	TransferGroupID   *string    `json:"transfer_group_id"`
	Direction         *Direction `json:"direction,omitempty"` // set on pair members only
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// GroupID returns the pair group id, or nil for a singular row. At most one
// of the two group columns is ever non-null.
func (m *Movement) GroupID() *string {
	if m.ConversionGroupID != nil {
		return m.ConversionGroupID
	}
	return m.TransferGroupID
}

// IsPaired reports whether the row is half of a conversion or transfer.
func (m *Movement) IsPaired() bool {
	return m.GroupID() != nil
}

// PairKind names which flavour of pair a group id belongs to.
type PairKind string

const (
	PairConversion PairKind = "conversion"
	PairTransfer   PairKind = "transfer"
)

// Pair is the resolved movement group: always exactly two rows agreeing on
// movement_date, created_by, description and project_id.
type Pair struct {
	Kind    PairKind  `json:"kind"`
	GroupID string    `json:"group_id"`
	Egress  *Movement `json:"egress"`
	Ingress *Movement `json:"ingress"`
}

// EditBundle is what LoadForEdit returns: either a singular movement or a
// resolved pair, never both.
type EditBundle struct {
	Single *Movement `json:"single,omitempty"`
	Pair   *Pair     `json:"pair,omitempty"`
}

// IsPair reports whether the bundle resolved to a movement group.
func (b *EditBundle) IsPair() bool {
	return b.Pair != nil
}
