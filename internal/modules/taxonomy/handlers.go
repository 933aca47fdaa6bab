package taxonomy

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edifika/edifika/internal/domain"
)

// Handler exposes read-only taxonomy endpoints.
type Handler struct {
	cache *Cache
	log   zerolog.Logger
}

// NewHandler creates a new taxonomy handler
func NewHandler(cache *Cache, log zerolog.Logger) *Handler {
	return &Handler{
		cache: cache,
		log:   log.With().Str("handler", "taxonomy").Logger(),
	}
}

// Routes mounts the taxonomy endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleFlatten)
	r.Get("/roots", h.HandleRoots)
	r.Get("/{id}/children", h.HandleChildren)
}

// HandleFlatten handles GET / - the full tree in stable pre-order
func (h *Handler) HandleFlatten(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	tree, err := h.cache.Tree(ident.OrganizationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	domain.WriteJSON(w, http.StatusOK, tree.Flatten())
}

// HandleRoots handles GET /roots - the type-level concepts
func (h *Handler) HandleRoots(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	tree, err := h.cache.Tree(ident.OrganizationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	domain.WriteJSON(w, http.StatusOK, tree.Roots())
}

// HandleChildren handles GET /{id}/children - direct children of a concept,
// driving the cascading selector
func (h *Handler) HandleChildren(w http.ResponseWriter, r *http.Request) {
	ident, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		domain.WriteError(w, domain.NewAuthzError("missing identity"), nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		domain.WriteJSON(w, http.StatusBadRequest, domain.ErrorBody{Error: "invalid concept id"})
		return
	}

	tree, err := h.cache.Tree(ident.OrganizationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if tree.Get(id) == nil {
		domain.WriteJSON(w, http.StatusNotFound, domain.ErrorBody{Error: "not found"})
		return
	}

	children := tree.ChildrenOf(id)
	if children == nil {
		children = []*Concept{}
	}
	domain.WriteJSON(w, http.StatusOK, children)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if domain.IsIntegrity(err) {
		h.log.Error().Err(err).Msg("Taxonomy read failed")
	}
	domain.WriteError(w, err, func(e error) bool { return errors.Is(e, ErrNotFound) })
}
