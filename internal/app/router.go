package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/terrapos/terrapos/internal/advance"
	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/estimates"
	"github.com/terrapos/terrapos/internal/orders"
	"github.com/terrapos/terrapos/internal/public"
	"github.com/terrapos/terrapos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	CustomersHandler *customers.Handler
	OrdersHandler    *orders.Handler
	EstimatesHandler *estimates.Handler
	AdvanceHandler   *advance.Handler
	PublicHandler    *public.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with TerraPOS defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/estimates", params.EstimatesHandler.MountRoutes)
		r.Route("/advance", params.AdvanceHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	// Public link routes stay at the root because their shapes appear
	// on printed bills and shared estimates.
	if params.PublicHandler != nil {
		params.PublicHandler.MountRoutes(r)
	}

	return r
}
