package server

import (
	"net/http"

	"github.com/edifika/edifika/internal/domain"
)

// IdentityMiddleware resolves the caller identity from the gateway headers.
// The API gateway authenticates the session and forwards the organization
// and member ids; this service trusts those headers and scopes every query
// by them. Requests without both headers are rejected before reaching any
// handler.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := domain.Identity{
			OrganizationID: r.Header.Get("X-Organization-ID"),
			MemberID:       r.Header.Get("X-Member-ID"),
		}
		if !ident.Valid() {
			domain.WriteError(w, domain.NewAuthzError("missing identity headers"), nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithIdentity(r.Context(), ident)))
	})
}
