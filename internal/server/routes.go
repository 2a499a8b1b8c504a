package server

import (
	"net/http"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/job"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

// refresher is the part of the scheduler the API drives.
type refresher interface {
	Trigger()
	State() job.State
}

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(cfg Config, rateSvc *rate.Service, jobSvc *job.Service, sched refresher) http.Handler {
	return newMux(cfg, rateSvc, jobSvc, sched)
}

func newMux(cfg Config, rateSvc *rate.Service, jobSvc *job.Service, sched refresher) http.Handler {
	h := &handler{
		rateSvc: rateSvc,
		jobSvc:  jobSvc,
		sched:   sched,
	}

	mux := http.NewServeMux()
	h.mux = mux

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/currencies", h.listCurrencies)
	mux.HandleFunc("GET /api/rates/{code}", h.getRates)
	mux.HandleFunc("GET /api/rates/{code}/monthly", h.getMonthly)
	mux.HandleFunc("GET /api/rates/{code}/yearly", h.getYearly)
	mux.HandleFunc("POST /api/refresh", h.triggerRefresh)
	mux.HandleFunc("GET /api/refresh/status", h.refreshStatus)
	mux.HandleFunc("GET /api/refresh/runs", h.listRuns)
	mux.HandleFunc("GET /api/refresh/runs/{id}", h.getRun)
	mux.HandleFunc("/", h.notFound)

	// Apply middleware stack: recovery -> requestID -> logging -> cors
	var handler http.Handler = mux
	handler = cors(cfg.CORSOrigins)(handler)
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
