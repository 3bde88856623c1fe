// Package http assembles the API router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	issuancehandler "github.com/mirroredkube/tokenops-sub001/internal/issuance/handler"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/metrics"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/middleware"
	policyhandler "github.com/mirroredkube/tokenops-sub001/internal/policy/handler"
	requirementhandler "github.com/mirroredkube/tokenops-sub001/internal/requirement/handler"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	JWT     middleware.JWTValidator

	Policy      *policyhandler.Handler
	Requirement *requirementhandler.Handler
	Issuance    *issuancehandler.Handler

	// Health reports readiness of downstream dependencies; nil means always
	// healthy.
	Health func() error
}

// New builds the chi router with the full middleware chain.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)

		api.Group(func(g chi.Router) {
			d.Policy.Routes(g)
			d.Requirement.Routes(g)
			d.Issuance.Routes(g)
		})

		// Officer verification requires an authenticated identity.
		api.Group(func(g chi.Router) {
			g.Use(middleware.RequireAuth(d.JWT, d.Logger))
			d.Requirement.VerifyRoutes(g)
		})
	})

	return r
}
