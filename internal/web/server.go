package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the read-only dashboard: an HTML overview, the JSON
// status API and the Prometheus metrics endpoint. It never mutates
// trading state.
type Server struct {
	router *http.ServeMux
	server *http.Server
	bot    *usecase.BotService
	pnl    *usecase.PnLService
	stats  *usecase.LedgerStatsService
	ledger domain.LedgerRepository
	logger *zap.Logger
}

func NewServer(
	port int,
	bot *usecase.BotService,
	pnl *usecase.PnLService,
	stats *usecase.LedgerStatsService,
	ledger domain.LedgerRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router: http.NewServeMux(),
		bot:    bot,
		pnl:    pnl,
		stats:  stats,
		ledger: ledger,
		logger: logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Dashboard
	s.router.HandleFunc("GET /", s.handleDashboard)

	// JSON API
	s.router.HandleFunc("GET /api/status", s.handleStatus)
	s.router.HandleFunc("GET /api/trades", s.handleTrades)
	s.router.HandleFunc("GET /api/summary", s.handleSummary)

	// Prometheus
	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
