// Package httpapi assembles the HTTP surface: public verification endpoints,
// admin review endpoints, internal authorization checks, and operational
// routes. Business logic stays in the domain services.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authzhandler "worklink/internal/authz/handler"
	"worklink/internal/platform/middleware"
	"worklink/internal/ratelimit"
	verifhandler "worklink/internal/verification/handler"
	id "worklink/pkg/domain"
	"worklink/pkg/platform/httputil"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts. Optional fields may be nil and
// their routes or checks are skipped.
type Deps struct {
	Verification *verifhandler.Handler
	Authz        *authzhandler.Handler
	Throttle     *ratelimit.Middleware

	TokenValidator middleware.TokenValidator
	InternalToken  string

	// Named health checks, reported individually by /healthz.
	Health map[string]HealthChecker

	Logger *slog.Logger
}

// NewRouter wires the full middleware chain and all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", handleHealthz(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Worker endpoints: any authenticated user may submit and read their own
	// status. Submissions are additionally throttled per user.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
		if deps.Throttle != nil {
			r.With(deps.Throttle.PerUser("submit")).Post("/verify/documents", deps.Verification.HandleSubmit)
		} else {
			r.Post("/verify/documents", deps.Verification.HandleSubmit)
		}
		r.Get("/verify/documents", deps.Verification.HandleStatus)
	})

	// Admin review endpoints.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
		r.Use(middleware.RequireRole(deps.Logger, id.RoleAdmin))
		deps.Verification.RegisterAdmin(r)
	})

	// Service-to-service authorization checks.
	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.RequireInternalToken(deps.InternalToken, deps.Logger))
		deps.Authz.Register(r)
	})

	return r
}

func handleHealthz(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		detail := make(map[string]string, len(checks)+1)
		detail["status"] = "ok"

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				detail[name] = "unreachable"
				detail["status"] = "degraded"
				continue
			}
			detail[name] = "ok"
		}

		httputil.WriteJSON(w, status, detail)
	}
}
