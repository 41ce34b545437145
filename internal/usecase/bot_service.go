package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// SymbolStatus is the per-symbol snapshot served by the dashboard.
type SymbolStatus struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	RSI           float64 `json:"rsi"`
	HasRSI        bool    `json:"has_rsi"`
	Phase         string  `json:"phase"`
	AvgEntry      float64 `json:"avg_entry"`
	TotalBase     float64 `json:"total_base"`
	PositionUSD   float64 `json:"position_usd"`
	UnrealizedPnL float64 `json:"unrealized_usd"`
	UnrealizedPct float64 `json:"unrealized_pct"`
	AnchorPrice   float64 `json:"anchor_price"`
	OpenBuys      int     `json:"open_buys"`
	OpenSells     int     `json:"open_sells"`
	UpdatedAt     int64   `json:"updated_at"`
}

// BotService drives one evaluation pass per symbol per poll tick and
// isolates per-symbol failures so one broken symbol never stalls the
// others or the next tick.
type BotService struct {
	cfg        config.TradingConfig
	exchange   domain.Exchange
	market     *MarketService
	states     domain.StateRepository
	reconciler *FillReconciler
	planner    *OrderPlanner
	pnl        *PnLService
	notifier   domain.Notifier
	logger     *zap.Logger

	statuses map[string]SymbolStatus
	mu       sync.Mutex
}

func NewBotService(
	cfg config.TradingConfig,
	exchange domain.Exchange,
	market *MarketService,
	states domain.StateRepository,
	reconciler *FillReconciler,
	planner *OrderPlanner,
	pnl *PnLService,
	notifier domain.Notifier,
	logger *zap.Logger,
) *BotService {
	return &BotService{
		cfg:        cfg,
		exchange:   exchange,
		market:     market,
		states:     states,
		reconciler: reconciler,
		planner:    planner,
		pnl:        pnl,
		notifier:   notifier,
		logger:     logger,
		statuses:   make(map[string]SymbolStatus),
	}
}

func (s *BotService) Mode() string {
	if s.cfg.DryRun {
		return "paper"
	}
	return "live"
}

// Run blocks until ctx is cancelled, evaluating every configured symbol
// once per poll interval.
func (s *BotService) Run(ctx context.Context) {
	s.notifier.Notify(ctx, fmt.Sprintf("🚀 DCA bot started: %d symbols, %s mode",
		len(s.cfg.Symbols), s.Mode()))

	s.exchange.OnPriceUpdate(s.handleTick)
	symbols := make([]string, 0, len(s.cfg.Symbols))
	for _, sc := range s.cfg.Symbols {
		symbols = append(symbols, sc.Symbol)
	}
	if err := s.exchange.SubscribeTickers(symbols); err != nil {
		// The websocket stream only feeds the dashboard price cache;
		// trading runs on REST fetches either way.
		s.logger.Warn("Ticker subscription failed", zap.Error(err))
	}

	s.initialReconcile(ctx)

	ticker := time.NewTicker(time.Duration(s.cfg.PollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		for _, symCfg := range s.cfg.Symbols {
			s.runSymbolSafe(ctx, symCfg)
		}
		s.runSummarySafe(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("Bot loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// initialReconcile catches up on fills that completed while the process
// was down, before any new planning happens.
func (s *BotService) initialReconcile(ctx context.Context) {
	for _, symCfg := range s.cfg.Symbols {
		st, err := s.states.LoadState(ctx, symCfg.Symbol)
		if err != nil {
			s.logger.Error("Startup state load failed", zap.String("symbol", symCfg.Symbol), zap.Error(err))
			continue
		}
		if _, err := s.reconciler.Reconcile(ctx, st); err != nil {
			s.logger.Warn("Startup reconciliation failed", zap.String("symbol", symCfg.Symbol), zap.Error(err))
		}
	}
	s.logger.Info("Initial reconciliation complete", zap.Int("symbols", len(s.cfg.Symbols)))
}

func (s *BotService) runSymbolSafe(ctx context.Context, symCfg config.SymbolConfig) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncCycleError(symCfg.Symbol)
			s.logger.Error("Symbol cycle panicked",
				zap.String("symbol", symCfg.Symbol),
				zap.Any("panic", r))
		}
	}()

	if err := s.runSymbol(ctx, symCfg); err != nil {
		metrics.IncCycleError(symCfg.Symbol)
		s.logger.Error("Symbol cycle failed", zap.String("symbol", symCfg.Symbol), zap.Error(err))
	}
}

func (s *BotService) runSymbol(ctx context.Context, symCfg config.SymbolConfig) error {
	price, ind, err := s.market.Snapshot(ctx, symCfg.Symbol, symCfg.Timeframe)
	if err != nil {
		return err
	}

	st, err := s.states.LoadState(ctx, symCfg.Symbol)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	// A failed fetch leaves the local state stale but consistent; the
	// planner still runs against it.
	if _, err := s.reconciler.Reconcile(ctx, st); err != nil {
		s.logger.Warn("Reconciliation failed", zap.String("symbol", symCfg.Symbol), zap.Error(err))
	}

	if s.planner.Evaluate(ctx, symCfg, st, price, ind) {
		if err := s.states.SaveState(ctx, st); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	metrics.IncCycle(symCfg.Symbol)
	if ind.HasRSI {
		metrics.SetRSI(symCfg.Symbol, ind.RSI)
	}
	metrics.SetPositionUSD(symCfg.Symbol, st.PositionUSD())
	s.updateStatus(symCfg.Symbol, price, ind, st)
	return nil
}

func (s *BotService) runSummarySafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Daily summary panicked", zap.Any("panic", r))
		}
	}()
	if err := s.pnl.MaybeDailySummary(ctx); err != nil {
		s.logger.Error("Daily summary failed", zap.Error(err))
	}
}

func (s *BotService) updateStatus(symbol string, price float64, ind IndicatorSnapshot, st *domain.SymbolState) {
	unrealized, unrealizedPct := unrealizedPnL(price, st.AvgEntry, st.TotalBase)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[symbol] = SymbolStatus{
		Symbol:        symbol,
		Price:         price,
		RSI:           ind.RSI,
		HasRSI:        ind.HasRSI,
		Phase:         string(st.Phase()),
		AvgEntry:      st.AvgEntry,
		TotalBase:     st.TotalBase,
		PositionUSD:   st.PositionUSD(),
		UnrealizedPnL: unrealized,
		UnrealizedPct: unrealizedPct,
		AnchorPrice:   st.AnchorPrice,
		OpenBuys:      len(st.OpenBuyOrders),
		OpenSells:     len(st.OpenSellOrders),
		UpdatedAt:     time.Now().Unix(),
	}
}

func unrealizedPnL(price, avgEntry, totalBase float64) (float64, float64) {
	if totalBase <= 0 || avgEntry <= 0 || price <= 0 {
		return 0, 0
	}
	return (price - avgEntry) * totalBase, (price/avgEntry - 1) * 100
}

// handleTick refreshes the cached price from the websocket stream
// between poll cycles, so the dashboard stays current.
func (s *BotService) handleTick(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[symbol]
	if !ok {
		return
	}
	status.Price = price
	if status.TotalBase > 0 {
		status.UnrealizedPnL = (price - status.AvgEntry) * status.TotalBase
	}
	status.UpdatedAt = time.Now().Unix()
	s.statuses[symbol] = status
}

// Statuses returns the cached per-symbol snapshots, sorted by symbol.
func (s *BotService) Statuses() []SymbolStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SymbolStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
