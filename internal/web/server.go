// Package web serves the paper trading JSON API and a read-only dashboard.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/camuig/paper-desk/internal/config"
	"github.com/camuig/paper-desk/internal/indicator"
	"github.com/camuig/paper-desk/internal/inference"
	"github.com/camuig/paper-desk/internal/ledger"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/marketdata"
	"github.com/camuig/paper-desk/internal/observability"
	"github.com/camuig/paper-desk/internal/scheduler"
	"github.com/camuig/paper-desk/internal/storage"
)

// ModelLister reports the models available to the signal engine.
type ModelLister interface {
	Models() []inference.ModelInfo
}

// Services are the collaborators behind the API. Only Ledger is required;
// endpoints whose collaborator is nil answer 503.
type Services struct {
	Ledger  *ledger.Ledger
	Prices  marketdata.Source
	Scanner *scheduler.Scanner
	Signals storage.SignalLog
	Models  ModelLister
	Storage storage.Pinger
	Metrics *observability.Metrics
	Stream  http.Handler
	Params  indicator.Params
	Version string
}

type Server struct {
	httpServer *http.Server
	svc        Services
	port       int
	logger     *logger.Logger
}

func NewServer(cfg config.ServerConfig, svc Services, log *logger.Logger) *Server {
	s := &Server{
		svc:    svc,
		port:   cfg.Port,
		logger: log.With("component", "web"),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	return s
}

// Handler returns the full route tree wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/trading/positions", s.handleCreatePosition)
	mux.HandleFunc("GET /api/trading/positions", s.handleListPositions)
	mux.HandleFunc("GET /api/trading/positions/open/with-pnl", s.handleOpenWithPnL)
	mux.HandleFunc("GET /api/trading/positions/{id}", s.handleGetPosition)
	mux.HandleFunc("PUT /api/trading/positions/{id}", s.handleUpdatePosition)
	mux.HandleFunc("POST /api/trading/positions/{id}/close", s.handleClosePosition)
	mux.HandleFunc("DELETE /api/trading/positions/{id}", s.handleDeletePosition)
	mux.HandleFunc("GET /api/trading/portfolio/stats", s.handlePortfolioStats)

	mux.HandleFunc("POST /api/indicators", s.handleIndicators)
	mux.HandleFunc("POST /api/predictions/predict", s.handlePredict)
	mux.HandleFunc("POST /api/predictions/predict/batch", s.handlePredictBatch)
	mux.HandleFunc("GET /api/predictions/models", s.handleModels)
	mux.HandleFunc("GET /api/signals/recent", s.handleRecentSignals)
	mux.HandleFunc("GET /api/signals/{symbol}", s.handleSignal)

	if s.svc.Stream != nil {
		mux.Handle("GET /ws", s.svc.Stream)
	}
	if s.svc.Metrics != nil {
		mux.Handle("GET /metrics", s.svc.Metrics.Handler())
	}

	return s.recoverer(s.requestID(s.instrument(mux)))
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
