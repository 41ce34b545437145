package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// summaryTradeLimit bounds how much ledger history the summary endpoint
// aggregates per request.
const summaryTradeLimit = 1000

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	realized, err := s.pnl.RealizedToday(r.Context())
	if err != nil {
		s.logger.Error("Failed to compute realized P&L", zap.Error(err))
	}

	s.writeJSON(w, map[string]interface{}{
		"mode":               s.bot.Mode(),
		"symbols":            s.bot.Statuses(),
		"realized_today_usd": realized,
		"server_time":        time.Now().Unix(),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trades, err := s.ledger.ListTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, trades)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Analyze(r.Context(), summaryTradeLimit)
	if err != nil {
		s.logger.Error("Failed to analyze ledger", zap.Error(err))
		http.Error(w, "Failed to analyze ledger", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
