package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/auth"
	"github.com/practicehub/ledger/internal/engine"
)

// NewRouter creates the Chi router with all API routes mounted. metrics may
// be nil.
func NewRouter(
	eng *engine.Engine,
	keys auth.KeyStore,
	db Pinger,
	metrics http.Handler,
	logger logrus.FieldLogger,
) http.Handler {
	h := &Handlers{
		engine: eng,
		db:     db,
		logger: logger.WithField("module", "api"),
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(middleware.SetHeader("Content-Type", "application/json")).Get("/healthz", h.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Use(Authenticate(keys))

		// Command endpoint.
		r.Post("/business-hub", h.BusinessHub)

		r.Route("/organizations/{orgID}", func(r chi.Router) {
			// Billing.
			r.Post("/billing-entries", h.CreateBillingEntry)
			r.Get("/billing-entries", h.ListBillingEntries)
			r.Post("/billing-entries/mark-billed", h.MarkBilled)

			// Trust.
			r.Get("/trust/reconciliation", h.GetReconciliation)
			r.Post("/trust-accounts/{accountID}/transactions", h.RecordTrustTransaction)
			r.Post("/trust-accounts/{accountID}/confirm", h.ConfirmTrustAccount)

			// Compliance.
			r.Get("/compliance/report", h.GetComplianceReport)
			r.Get("/compliance/logs", h.ListComplianceLogs)

			// Analytics.
			r.Get("/analytics", h.GetAnalytics)
		})
	})

	return r
}
