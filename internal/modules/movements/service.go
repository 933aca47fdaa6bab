package movements

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edifika/edifika/internal/domain"
	"github.com/edifika/edifika/internal/events"
	"github.com/edifika/edifika/internal/modules/classification"
	"github.com/edifika/edifika/internal/modules/taxonomy"
)

// SingleInput is the submission shape for a singular movement. Update uses
// the same shape, keyed by the existing id.
type SingleInput struct {
	MovementDate  string   `json:"movement_date" validate:"required,datetime=2006-01-02"`
	ProjectID     *string  `json:"project_id"`
	TypeID        int64    `json:"type_id" validate:"required"`
	CategoryID    *int64   `json:"category_id"`
	SubcategoryID *int64   `json:"subcategory_id"`
	CurrencyID    string   `json:"currency_id" validate:"required"`
	WalletID      string   `json:"wallet_id" validate:"required"`
	Amount        float64  `json:"amount" validate:"required,gt=0"`
	ExchangeRate  *float64 `json:"exchange_rate" validate:"omitempty,gt=0"`
	Description   *string  `json:"description"`
}

// PairInput is the submission shape for a conversion or transfer: one form,
// two resulting rows. TypeID is the selected concept whose view_mode decided
// the pair kind.
type PairInput struct {
	MovementDate   string   `json:"movement_date" validate:"required,datetime=2006-01-02"`
	ProjectID      *string  `json:"project_id"`
	TypeID         int64    `json:"type_id" validate:"required"`
	CurrencyIDFrom string   `json:"currency_id_from" validate:"required"`
	WalletIDFrom   string   `json:"wallet_id_from" validate:"required"`
	AmountFrom     float64  `json:"amount_from" validate:"required,gt=0"`
	CurrencyIDTo   string   `json:"currency_id_to" validate:"required"`
	WalletIDTo     string   `json:"wallet_id_to" validate:"required"`
	AmountTo       float64  `json:"amount_to" validate:"required,gt=0"`
	ExchangeRate   *float64 `json:"exchange_rate" validate:"omitempty,gt=0"`
	Description    *string  `json:"description"`
}

// Service validates submissions, classifies them against the organization's
// taxonomy and drives the repository. All writes are organization-scoped by
// the caller's identity.
type Service struct {
	repo     *Repository
	taxonomy *taxonomy.Cache
	bus      *events.Bus
	log      zerolog.Logger
}

// NewService creates a new movement service
func NewService(repo *Repository, taxonomyCache *taxonomy.Cache, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		taxonomy: taxonomyCache,
		bus:      bus,
		log:      log.With().Str("service", "movements").Logger(),
	}
}

// Classify resolves the movement kind for a selector state. This is the one
// call site shared by the create flow and edit-time reconstruction.
func (s *Service) Classify(ident domain.Identity, sel classification.Selection) (classification.Kind, error) {
	tree, err := s.taxonomy.Tree(ident.OrganizationID)
	if err != nil {
		return classification.KindUnknown, s.wrap("classify", err)
	}
	return classification.Classify(tree, sel), nil
}

// CreateSingle validates and writes one singular movement.
func (s *Service) CreateSingle(ident domain.Identity, in SingleInput) (*Movement, classification.Kind, error) {
	if err := domain.ValidateStruct(in); err != nil {
		return nil, classification.KindUnknown, err
	}

	kind, err := s.Classify(ident, classification.Selection{
		TypeID:        in.TypeID,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
	})
	if err != nil {
		return nil, classification.KindUnknown, err
	}
	if kind.IsPaired() {
		return nil, kind, domain.NewValidationError(domain.FieldError{
			Field:   "type_id",
			Message: "this concept represents a " + string(kind) + "; submit it as a pair",
		})
	}

	m := &Movement{
		OrganizationID: ident.OrganizationID,
		ProjectID:      in.ProjectID,
		TypeID:         in.TypeID,
		CategoryID:     in.CategoryID,
		SubcategoryID:  in.SubcategoryID,
		CurrencyID:     in.CurrencyID,
		WalletID:       in.WalletID,
		Amount:         in.Amount,
		MovementDate:   in.MovementDate,
		CreatedBy:      ident.MemberID,
		Description:    in.Description,
		ExchangeRate:   in.ExchangeRate,
	}

	created, err := s.repo.CreateSingle(m)
	if err != nil {
		return nil, kind, s.wrap("create_single", err)
	}

	s.bus.Emit(events.MovementCreated, "movements", map[string]interface{}{
		"movement_id":     created.ID,
		"organization_id": created.OrganizationID,
		"kind":            string(kind),
	})
	return created, kind, nil
}

// CreatePair validates a conversion/transfer submission and writes both
// sides atomically.
func (s *Service) CreatePair(ident domain.Identity, in PairInput) (*Pair, error) {
	if err := domain.ValidateStruct(in); err != nil {
		return nil, err
	}

	kind, err := s.Classify(ident, classification.Selection{TypeID: in.TypeID})
	if err != nil {
		return nil, err
	}

	var pairKind PairKind
	switch kind {
	case classification.KindConversion:
		pairKind = PairConversion
	case classification.KindTransfer:
		pairKind = PairTransfer
	default:
		return nil, domain.NewValidationError(domain.FieldError{
			Field:   "type_id",
			Message: "selected concept is not a conversion or transfer type",
		})
	}

	egress, ingress := s.buildPairRows(ident, in)

	pair, err := s.repo.CreatePair(pairKind, egress, ingress)
	if err != nil {
		return nil, s.wrap("create_pair", err)
	}

	s.bus.Emit(events.PairCreated, "movements", map[string]interface{}{
		"group_id":        pair.GroupID,
		"kind":            string(pair.Kind),
		"organization_id": ident.OrganizationID,
	})
	return pair, nil
}

// UpdateSingle applies a full new submission to an existing singular row.
func (s *Service) UpdateSingle(ident domain.Identity, id int64, in SingleInput) (*Movement, error) {
	if err := domain.ValidateStruct(in); err != nil {
		return nil, err
	}

	values := &Movement{
		ProjectID:     in.ProjectID,
		TypeID:        in.TypeID,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		CurrencyID:    in.CurrencyID,
		WalletID:      in.WalletID,
		Amount:        in.Amount,
		MovementDate:  in.MovementDate,
		Description:   in.Description,
		ExchangeRate:  in.ExchangeRate,
	}

	updated, err := s.repo.UpdateSingle(ident.OrganizationID, id, values)
	if err != nil {
		return nil, s.wrap("update_single", err)
	}

	s.bus.Emit(events.MovementUpdated, "movements", map[string]interface{}{
		"movement_id":     updated.ID,
		"organization_id": ident.OrganizationID,
	})
	return updated, nil
}

// UpdatePair applies a full new pair submission to an existing group. The
// group id and the side assignment survive the edit.
func (s *Service) UpdatePair(ident domain.Identity, groupID string, in PairInput) (*Pair, error) {
	if err := domain.ValidateStruct(in); err != nil {
		return nil, err
	}

	egress, ingress := s.buildPairRows(ident, in)

	pair, err := s.repo.UpdatePair(ident.OrganizationID, groupID, egress, ingress)
	if err != nil {
		return nil, s.wrap("update_pair", err)
	}

	s.bus.Emit(events.PairUpdated, "movements", map[string]interface{}{
		"group_id":        pair.GroupID,
		"organization_id": ident.OrganizationID,
	})
	return pair, nil
}

// Delete removes a movement. A row that is half of a pair takes its partner
// and all attachment links on either side with it.
func (s *Service) Delete(ident domain.Identity, id int64) error {
	m, err := s.repo.GetByID(ident.OrganizationID, id)
	if err != nil {
		return s.wrap("delete", err)
	}

	if groupID := m.GroupID(); groupID != nil {
		if err := s.repo.DeletePair(ident.OrganizationID, *groupID); err != nil {
			return s.wrap("delete_pair", err)
		}
		s.bus.Emit(events.PairDeleted, "movements", map[string]interface{}{
			"group_id":        *groupID,
			"organization_id": ident.OrganizationID,
		})
		return nil
	}

	if err := s.repo.DeleteSingle(ident.OrganizationID, id); err != nil {
		return s.wrap("delete_single", err)
	}
	s.bus.Emit(events.MovementDeleted, "movements", map[string]interface{}{
		"movement_id":     id,
		"organization_id": ident.OrganizationID,
	})
	return nil
}

// LoadForEdit resolves a movement into its edit bundle.
func (s *Service) LoadForEdit(ident domain.Identity, id int64) (*EditBundle, error) {
	bundle, err := s.repo.LoadForEdit(ident.OrganizationID, id)
	if err != nil {
		return nil, s.wrap("load_for_edit", err)
	}
	return bundle, nil
}

// List returns the organization's movements.
func (s *Service) List(ident domain.Identity, opts ListOptions) ([]*Movement, error) {
	movements, err := s.repo.List(ident.OrganizationID, opts)
	if err != nil {
		return nil, s.wrap("list", err)
	}
	return movements, nil
}

// buildPairRows expands one pair submission into its egress and ingress
// rows. Shared fields are written once here; there is no second copy to
// keep in sync.
func (s *Service) buildPairRows(ident domain.Identity, in PairInput) (*Movement, *Movement) {
	common := Movement{
		OrganizationID: ident.OrganizationID,
		ProjectID:      in.ProjectID,
		TypeID:         in.TypeID,
		MovementDate:   in.MovementDate,
		CreatedBy:      ident.MemberID,
		Description:    in.Description,
		ExchangeRate:   in.ExchangeRate,
	}

	egress := common
	egress.CurrencyID = in.CurrencyIDFrom
	egress.WalletID = in.WalletIDFrom
	egress.Amount = in.AmountFrom

	ingress := common
	ingress.CurrencyID = in.CurrencyIDTo
	ingress.WalletID = in.WalletIDTo
	ingress.Amount = in.AmountTo

	return &egress, &ingress
}

// wrap normalizes repository failures: domain errors and not-found pass
// through untouched, anything else becomes a DownstreamError logged with
// enough context to diagnose.
func (s *Service) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || domain.IsValidation(err) || domain.IsIntegrity(err) || domain.IsAuthz(err) {
		return err
	}
	s.log.Error().Err(err).Str("operation", op).Msg("Backing store failure")
	return domain.NewDownstreamError(fmt.Sprintf("movements.%s", op), err)
}
