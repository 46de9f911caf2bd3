package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/lotledger/internal/importer"
	"github.com/odyssey-erp/lotledger/internal/invoices"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/masterdata"
	"github.com/odyssey-erp/lotledger/internal/observability"
	"github.com/odyssey-erp/lotledger/internal/transfers"
	"github.com/odyssey-erp/lotledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	LedgerHandler     *ledger.Handler
	TransfersHandler  *transfers.Handler
	InvoicesHandler   *invoices.Handler
	MasterDataHandler *masterdata.Handler
	ImportHandler     *importer.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with the ledger API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.LedgerHandler != nil {
		params.LedgerHandler.MountRoutes(r)
	}
	if params.MasterDataHandler != nil {
		params.MasterDataHandler.MountRoutes(r)
	}
	if params.TransfersHandler != nil {
		r.Route("/transfers", params.TransfersHandler.MountRoutes)
	}
	if params.InvoicesHandler != nil {
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	}
	if params.ImportHandler != nil {
		r.Route("/imports", params.ImportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
		r.Route("/reconcile", params.JobHandler.MountReconcileRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
