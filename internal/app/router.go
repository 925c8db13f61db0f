package app

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sinoman/superapp/internal/audit"
	"github.com/sinoman/superapp/internal/auth"
	"github.com/sinoman/superapp/internal/members"
	"github.com/sinoman/superapp/internal/observability"
	"github.com/sinoman/superapp/internal/rbac"
	"github.com/sinoman/superapp/internal/savings"
	"github.com/sinoman/superapp/internal/shared"
	"github.com/sinoman/superapp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	MembersHandler *members.Handler
	SavingsHandler *savings.Handler
	AuditHandler   *audit.Handler
	JobHandler     *jobs.Handler
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Sinoman defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.MembersHandler != nil {
		r.Route("/members", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireRole(rbac.Staff()...))
			params.MembersHandler.MountRoutes(r)
		})
	}
	if params.SavingsHandler != nil {
		postingLimit := 0
		if params.Config != nil {
			postingLimit = params.Config.PostingRateLimitPerMinute
		}
		r.Route("/savings", func(r chi.Router) {
			params.SavingsHandler.MountRoutes(r, params.RBACMiddleware, PostingRateLimiter(postingLimit))
		})
	}
	if params.AuditHandler != nil {
		r.Route("/audit", func(r chi.Router) {
			params.AuditHandler.MountRoutes(r, params.RBACMiddleware)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r, params.RBACMiddleware)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
