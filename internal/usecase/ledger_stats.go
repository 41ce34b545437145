package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"go.uber.org/zap"
)

// SymbolStats aggregates the realized trades of one symbol.
type SymbolStats struct {
	Symbol     string  `json:"symbol"`
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`
	StopExits  int     `json:"stop_exits"`
	TotalPnL   float64 `json:"total_pnl_usd"`
	BestTrade  float64 `json:"best_trade_usd"`
	WorstTrade float64 `json:"worst_trade_usd"`
}

// LedgerStats is the full ledger breakdown: per-symbol rows plus the
// combined totals.
type LedgerStats struct {
	Symbols  []SymbolStats `json:"symbols"`
	TotalPnL float64       `json:"total_pnl_usd"`
	Trades   int           `json:"trades"`
}

// LedgerStatsService computes win/loss and P&L aggregates from the
// realized-trade ledger.
type LedgerStatsService struct {
	ledger domain.LedgerRepository
	logger *zap.Logger
}

func NewLedgerStatsService(ledger domain.LedgerRepository, logger *zap.Logger) *LedgerStatsService {
	return &LedgerStatsService{
		ledger: ledger,
		logger: logger,
	}
}

// Analyze reads up to limit recent trades and folds them into
// per-symbol stats, sorted by total P&L descending.
func (s *LedgerStatsService) Analyze(ctx context.Context, limit int) (*LedgerStats, error) {
	trades, err := s.ledger.ListTrades(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("error reading trade ledger: %w", err)
	}

	bySymbol := make(map[string]*SymbolStats)
	stats := &LedgerStats{}

	for _, t := range trades {
		row, ok := bySymbol[t.Symbol]
		if !ok {
			row = &SymbolStats{Symbol: t.Symbol}
			bySymbol[t.Symbol] = row
		}

		row.Trades++
		row.TotalPnL += t.PnLUSD
		if t.PnLUSD >= 0 {
			row.Wins++
		} else {
			row.Losses++
		}
		if t.Side == domain.TradeSideStopExit {
			row.StopExits++
		}
		if row.Trades == 1 || t.PnLUSD > row.BestTrade {
			row.BestTrade = t.PnLUSD
		}
		if row.Trades == 1 || t.PnLUSD < row.WorstTrade {
			row.WorstTrade = t.PnLUSD
		}

		stats.Trades++
		stats.TotalPnL += t.PnLUSD
	}

	for _, row := range bySymbol {
		if row.Trades > 0 {
			row.WinRate = float64(row.Wins) / float64(row.Trades) * 100
		}
		stats.Symbols = append(stats.Symbols, *row)
	}

	sort.Slice(stats.Symbols, func(i, j int) bool {
		if stats.Symbols[i].TotalPnL != stats.Symbols[j].TotalPnL {
			return stats.Symbols[i].TotalPnL > stats.Symbols[j].TotalPnL
		}
		return stats.Symbols[i].Symbol < stats.Symbols[j].Symbol
	})

	s.logger.Debug("Ledger analyzed",
		zap.Int("trades", stats.Trades),
		zap.Int("symbols", len(stats.Symbols)),
		zap.Float64("totalPnL", stats.TotalPnL))

	return stats, nil
}
