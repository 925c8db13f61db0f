package savings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sinoman/superapp/internal/rbac"
)

// MountRoutes attaches savings ledger routes. Posting is restricted to staff
// and additionally rate limited per acting user; reads enforce ownership in
// the handler so members can see their own account.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware, postingLimiter func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(rbac.Staff()...))
		if postingLimiter != nil {
			r.Use(postingLimiter)
		}
		r.Post("/postings", h.Post)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuthenticated())
		r.Get("/members/{memberID}/account", h.ShowAccount)
		r.Get("/members/{memberID}/transactions", h.ListTransactions)
	})
}
