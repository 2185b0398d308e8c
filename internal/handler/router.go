// Package handler exposes the service over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cleared-dev/acctree/internal/observability"
	"github.com/cleared-dev/acctree/internal/service"
)

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.Service, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		// Hierarchy
		r.Post("/hierarchy/compare", compareHandler(svc, logger))
		r.Get("/reports/{reportId}/hierarchy", reportHierarchyHandler(svc, logger))

		// Classifications
		r.Post("/classifications/validate", validateClassificationHandler(svc, logger))
		r.Post("/classifications/recommend", recommendHandler(svc, logger))

		// Rules
		r.Get("/classification-rules", listRulesHandler(svc, logger))
		r.Post("/classification-rules", createRuleHandler(svc, logger))
		r.Post("/classification-rules/updates", updateRulesHandler(svc, logger))

		// Family validation
		r.Get("/reports/{reportId}/families", familiesHandler(svc, logger))
		r.Post("/reports/families", batchFamiliesHandler(svc, logger))
		r.Get("/reports/{reportId}/reconciliation", reconcileHandler(svc, logger))
	})

	return r
}
