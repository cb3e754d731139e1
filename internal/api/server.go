// Package api exposes the planning and render engine over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flona/broll-engine/internal/artifact"
	"github.com/flona/broll-engine/internal/metrics"
	"github.com/flona/broll-engine/internal/plan"
	"github.com/flona/broll-engine/internal/render"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port              int
	Assembler         *plan.Assembler
	Repository        plan.Repository
	RenderManager     *render.Manager
	Artifacts         *artifact.Store
	Doctor            *render.CachedDoctor
	Metrics           *metrics.Metrics
	SampleSourcesPath string
	OracleConfigured  bool
	OracleTimeout     time.Duration
	Logger            *slog.Logger
	StartTime         time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
