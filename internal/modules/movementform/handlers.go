package movementform

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edifika/edifika/internal/domain"
	"github.com/edifika/edifika/internal/modules/attachments"
	"github.com/edifika/edifika/internal/modules/classification"
	"github.com/edifika/edifika/internal/modules/movements"
	"github.com/edifika/edifika/internal/modules/taxonomy"
)

// Handler drives the movement create/edit flows over HTTP.
type Handler struct {
	svc      *movements.Service
	attach   *attachments.Repository
	taxonomy *taxonomy.Cache
	log      zerolog.Logger
}

// NewHandler creates a new movement form handler
func NewHandler(svc *movements.Service, attach *attachments.Repository, taxonomyCache *taxonomy.Cache, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		attach:   attach,
		taxonomy: taxonomyCache,
		log:      log.With().Str("handler", "movementform").Logger(),
	}
}

// Routes mounts the movement endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreateSingle)
	r.Post("/pair", h.HandleCreatePair)
	r.Put("/pair/{groupID}", h.HandleUpdatePair)
	r.Get("/classify", h.HandleClassify)
	r.Route("/{id}", func(r chi.Router) {
		r.Put("/", h.HandleUpdateSingle)
		r.Delete("/", h.HandleDelete)
		r.Get("/form", h.HandleGetForm)
		r.Get("/attachments", h.HandleGetAttachments)
		r.Put("/attachments", h.HandleSyncAttachments)
	})
}

// HandleCreateSingle handles POST / - create a singular movement
func (h *Handler) HandleCreateSingle(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	var in movements.SingleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid JSON body"})
		return
	}

	created, kind, err := h.svc.CreateSingle(ident, in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	domain.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"movement": created,
		"kind":     kind,
	})
}

// HandleCreatePair handles POST /pair - create a conversion or transfer
func (h *Handler) HandleCreatePair(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	var in movements.PairInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid JSON body"})
		return
	}

	pair, err := h.svc.CreatePair(ident, in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	domain.WriteJSON(w, http.StatusCreated, pair)
}

// HandleUpdateSingle handles PUT /{id} - full update of a singular movement
func (h *Handler) HandleUpdateSingle(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	id, err := parseID(r)
	if err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid movement id"})
		return
	}

	var in movements.SingleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid JSON body"})
		return
	}

	updated, err := h.svc.UpdateSingle(ident, id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	domain.WriteJSON(w, http.StatusOK, updated)
}

// HandleUpdatePair handles PUT /pair/{groupID} - full update of a pair
func (h *Handler) HandleUpdatePair(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "missing group id"})
		return
	}

	var in movements.PairInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid JSON body"})
		return
	}

	pair, err := h.svc.UpdatePair(ident, groupID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	domain.WriteJSON(w, http.StatusOK, pair)
}

// HandleDelete handles DELETE /{id} - delete a movement (and its partner
// and attachment links when it is half of a pair)
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	id, err := parseID(r)
	if err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid movement id"})
		return
	}

	if err := h.svc.Delete(ident, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET / - list movements with optional filters
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	var opts movements.ListOptions
	if project := r.URL.Query().Get("project_id"); project != "" {
		opts.ProjectID = &project
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 10000 {
			domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid limit, must be 1-10000"})
			return
		}
		opts.Limit = &limit
	}

	list, err := h.svc.List(ident, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []*movements.Movement{}
	}
	domain.WriteJSON(w, http.StatusOK, list)
}

// HandleGetForm handles GET /{id}/form - reconstruct the editing state for
// an existing movement
func (h *Handler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	id, err := parseID(r)
	if err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid movement id"})
		return
	}

	bundle, err := h.svc.LoadForEdit(ident, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	tree, err := h.taxonomy.Tree(ident.OrganizationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	domain.WriteJSON(w, http.StatusOK, Reconstruct(bundle, tree))
}

// HandleClassify handles GET /classify - resolve the kind for the current
// selector state during creation
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	typeID, err := strconv.ParseInt(r.URL.Query().Get("type_id"), 10, 64)
	if err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "type_id is required"})
		return
	}

	sel := classification.Selection{TypeID: typeID}
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid category_id"})
			return
		}
		sel.CategoryID = &id
	}
	if v := r.URL.Query().Get("subcategory_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid subcategory_id"})
			return
		}
		sel.SubcategoryID = &id
	}

	kind, err := h.svc.Classify(ident, sel)
	if err != nil {
		h.writeError(w, err)
		return
	}
	domain.WriteJSON(w, http.StatusOK, map[string]string{"kind": string(kind)})
}

// HandleSyncAttachments handles PUT /{id}/attachments - full-replace the
// attachment link set
func (h *Handler) HandleSyncAttachments(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	id, err := parseID(r)
	if err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid movement id"})
		return
	}

	var body struct {
		Links []attachments.Link `json:"links"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid JSON body"})
		return
	}
	for _, link := range body.Links {
		if link.TargetID == "" || link.Amount <= 0 {
			domain.WriteError(w, domain.NewValidationError(
				domain.FieldError{Field: "links", Message: "each link needs a target_id and a positive amount"},
			), nil)
			return
		}
	}

	if err := h.attach.Sync(ident.OrganizationID, id, body.Links); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetAttachments handles GET /{id}/attachments
func (h *Handler) HandleGetAttachments(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	id, err := parseID(r)
	if err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid movement id"})
		return
	}

	links, err := h.attach.ForMovement(ident.OrganizationID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if links == nil {
		links = []attachments.Link{}
	}
	domain.WriteJSON(w, http.StatusOK, links)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if domain.IsIntegrity(err) || domain.IsDownstream(err) {
		h.log.Error().Err(err).Msg("Movement operation failed")
	}
	domain.WriteError(w, err, func(e error) bool {
		return errors.Is(e, movements.ErrNotFound) || errors.Is(e, taxonomy.ErrNotFound)
	})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
