package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/job"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

type Config struct {
	Port        string
	CORSOrigins []string
}

type Server struct {
	srv *http.Server
}

// New creates a server. baseCtx is the base context of every request, so
// cancelling it aborts in-flight store queries during graceful shutdown.
func New(baseCtx context.Context, cfg Config, rateSvc *rate.Service, jobSvc *job.Service, sched refresher) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Port),
			Handler: newMux(cfg, rateSvc, jobSvc, sched),
			BaseContext: func(_ net.Listener) context.Context {
				return baseCtx
			},
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	return s.srv.Shutdown(ctx)
}
