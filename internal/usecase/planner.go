package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// disarmHysteresis is the RSI recovery margin above the entry threshold
// that clears an armed anchor, preventing re-arm chatter at the boundary.
const disarmHysteresis = 10.0

// IndicatorSnapshot carries the per-cycle indicator values the planner
// evaluates. HasRSI is false when the candle history was too short.
type IndicatorSnapshot struct {
	RSI      float64
	HasRSI   bool
	Hist     float64
	HistPrev float64
}

// OrderPlanner turns indicator signals and position state into concrete
// orders: the DCA buy ladder, the take-profit set and the stop-loss
// exit. Placement failures are logged and skipped; the same action is
// recomputed fresh next cycle.
type OrderPlanner struct {
	exchange  domain.Exchange
	ledger    domain.LedgerRepository
	notifier  domain.Notifier
	logger    *zap.Logger
	mode      string
	autoRearm bool
	now       func() time.Time
}

func NewOrderPlanner(
	exchange domain.Exchange,
	ledger domain.LedgerRepository,
	notifier domain.Notifier,
	logger *zap.Logger,
	mode string,
	autoRearm bool,
) *OrderPlanner {
	return &OrderPlanner{
		exchange:  exchange,
		ledger:    ledger,
		notifier:  notifier,
		logger:    logger,
		mode:      mode,
		autoRearm: autoRearm,
		now:       time.Now,
	}
}

// Evaluate runs one planning pass for the symbol: stop-loss first (a
// terminal action for the cycle), then the take-profit refresh, then
// entry arming and ladder placement. Returns true when the state was
// mutated and needs persisting.
func (p *OrderPlanner) Evaluate(ctx context.Context, cfg config.SymbolConfig, st *domain.SymbolState, price float64, ind IndicatorSnapshot) bool {
	if price <= 0 {
		return false
	}

	if st.Phase() == domain.PhasePositioned && cfg.StopLossEnabled && cfg.StopCloseBelow > 0 && price < cfg.StopCloseBelow {
		return p.executeStopLoss(ctx, cfg, st, price)
	}

	changed := false
	if st.Phase() == domain.PhasePositioned {
		if p.refreshTakeProfits(ctx, cfg, st) {
			changed = true
		}
	}
	if p.evaluateEntry(ctx, cfg, st, price, ind) {
		changed = true
	}
	return changed
}

// executeStopLoss liquidates the whole tracked position at market and
// resets the state to flat/unarmed. Nothing else runs this cycle.
func (p *OrderPlanner) executeStopLoss(ctx context.Context, cfg config.SymbolConfig, st *domain.SymbolState, price float64) bool {
	// Resting orders would keep selling into a position that is about
	// to disappear; drop them first.
	p.cancelTracked(ctx, st.Symbol, st.OpenBuyOrders)
	p.cancelTracked(ctx, st.Symbol, st.OpenSellOrders)

	amount, err := p.exchange.RoundAmount(ctx, st.Symbol, st.TotalBase)
	if err != nil {
		p.logger.Error("Stop-loss sizing failed", zap.String("symbol", st.Symbol), zap.Error(err))
		return false
	}
	if amount <= 0 {
		p.logger.Warn("Stop-loss skipped, position below amount precision",
			zap.String("symbol", st.Symbol), zap.Float64("totalBase", st.TotalBase))
		return false
	}

	clientID := domain.NewClientOrderID("stop")
	if _, err := p.exchange.PlaceMarketOrder(ctx, st.Symbol, domain.SideSell, amount, clientID); err != nil {
		p.logger.Error("Stop-loss market sell failed", zap.String("symbol", st.Symbol), zap.Error(err))
		return false
	}

	pnl := (price - st.AvgEntry) * st.TotalBase
	entry := &domain.TradeEntry{
		Symbol:    st.Symbol,
		Side:      domain.TradeSideStopExit,
		Qty:       st.TotalBase,
		Price:     price,
		PnLUSD:    pnl,
		CreatedAt: p.now().UTC(),
	}
	if err := p.ledger.AppendTrade(ctx, entry); err != nil {
		p.logger.Error("Failed to append stop-loss trade", zap.String("symbol", st.Symbol), zap.Error(err))
	}

	metrics.IncOrderPlaced(p.mode, domain.SideSell)
	metrics.IncStopExit(st.Symbol)
	metrics.AddRealizedPnL(pnl)
	p.logger.Warn("Stop-loss executed",
		zap.String("symbol", st.Symbol),
		zap.Float64("price", price),
		zap.Float64("avgEntry", st.AvgEntry),
		zap.Float64("qty", st.TotalBase),
		zap.Float64("pnl", pnl))
	p.notifier.Notify(ctx, fmt.Sprintf("🛑 %s stop-loss: sold %.6f @ %.6f | P&L %+.2f USDT",
		st.Symbol, st.TotalBase, price, pnl))

	st.Reset()
	return true
}

// refreshTakeProfits keeps exactly one take-profit set resting. The set
// is recomputed only when the cost basis moved away from the basis it
// was priced against; otherwise the resting orders are left alone.
func (p *OrderPlanner) refreshTakeProfits(ctx context.Context, cfg config.SymbolConfig, st *domain.SymbolState) bool {
	if len(cfg.TakeProfits) == 0 || st.AvgEntry <= 0 {
		return false
	}
	if st.TPBasis == st.AvgEntry {
		return false
	}

	changed := false
	for _, o := range append([]domain.OpenOrder(nil), st.OpenSellOrders...) {
		if err := p.exchange.CancelOrder(ctx, st.Symbol, o.ClientID); err != nil {
			// The order may be mid-fill; keep tracking it and retry the
			// refresh next cycle, after reconciliation has seen it.
			p.logger.Warn("Take-profit cancel failed, refresh postponed",
				zap.String("symbol", st.Symbol),
				zap.String("clientID", o.ClientID),
				zap.Error(err))
			return changed
		}
		st.RemoveSellOrder(o.ClientID)
		changed = true
	}

	placeFailed := false
	for _, tgt := range BuildTakeProfits(cfg, st.AvgEntry, st.TotalBase) {
		qty, px, ok := p.sizeOrder(ctx, st.Symbol, cfg, tgt.Amount, tgt.Price)
		if !ok {
			continue
		}

		clientID := domain.NewClientOrderID("tp")
		if _, err := p.exchange.PlaceLimitOrder(ctx, st.Symbol, domain.SideSell, qty, px, clientID); err != nil {
			p.logger.Error("Take-profit placement failed",
				zap.String("symbol", st.Symbol),
				zap.Int("tier", tgt.Tier),
				zap.Error(err))
			placeFailed = true
			continue
		}

		st.AddSellOrder(clientID, p.now().Unix())
		changed = true
		metrics.IncOrderPlaced(p.mode, domain.SideSell)
		p.logger.Info("Take-profit placed",
			zap.String("symbol", st.Symbol),
			zap.Int("tier", tgt.Tier),
			zap.Float64("qty", qty),
			zap.Float64("price", px))
		p.notifier.Notify(ctx, fmt.Sprintf("🎯 %s take-profit %d placed: %.6f @ %.6f",
			st.Symbol, tgt.Tier, qty, px))
	}

	// A failed tier must be retried next cycle, so only mark the set
	// as current when every placement went through.
	if !placeFailed {
		st.TPBasis = st.AvgEntry
		changed = true
	}
	return changed
}

func (p *OrderPlanner) evaluateEntry(ctx context.Context, cfg config.SymbolConfig, st *domain.SymbolState, price float64, ind IndicatorSnapshot) bool {
	if !ind.HasRSI {
		return false
	}

	signal := ind.RSI < cfg.EntryRSILt
	if cfg.SignalMode == config.SignalModeRSIMACD {
		signal = signal && ind.Hist > ind.HistPrev
	}

	changed := false
	if st.Armed() && ind.RSI > cfg.EntryRSILt+disarmHysteresis {
		st.Disarm()
		changed = true
		p.logger.Info("Signal disarmed, RSI recovered",
			zap.String("symbol", st.Symbol),
			zap.Float64("rsi", ind.RSI))
		p.notifier.Notify(ctx, fmt.Sprintf("🔕 %s disarmed: RSI recovered to %.2f", st.Symbol, ind.RSI))
		return changed
	}

	if signal && !st.Armed() && p.armAllowed(st) {
		st.AnchorPrice = price
		st.LastSignalTS = p.now().Unix()
		changed = true
		p.logger.Info("Entry signal armed",
			zap.String("symbol", st.Symbol),
			zap.Float64("anchor", price),
			zap.Float64("rsi", ind.RSI))
		p.notifier.Notify(ctx, fmt.Sprintf("📉 %s signal armed at %.6f (RSI %.2f)", st.Symbol, price, ind.RSI))

		if p.placeLadder(ctx, cfg, st) {
			changed = true
		}
	}
	return changed
}

// armAllowed gates fresh anchors. A positioned symbol may always re-arm
// (the ladder keeps averaging down within the budget); a flat symbol
// re-arms only with auto_rearm on, except for its very first signal.
func (p *OrderPlanner) armAllowed(st *domain.SymbolState) bool {
	if st.TotalBase > 0 {
		return true
	}
	return p.autoRearm || st.LastSignalTS == 0
}

// placeLadder rests the DCA buy ladder below the freshly armed anchor.
// Dust steps are skipped but do not stop the ladder.
func (p *OrderPlanner) placeLadder(ctx context.Context, cfg config.SymbolConfig, st *domain.SymbolState) bool {
	steps := BuildLadder(cfg, st.AnchorPrice, st.PositionUSD())
	if len(steps) < cfg.DCASteps {
		p.logger.Info("DCA ladder capped by budget",
			zap.String("symbol", st.Symbol),
			zap.Int("planned", len(steps)),
			zap.Int("configured", cfg.DCASteps),
			zap.Float64("positionUSD", st.PositionUSD()))
	}

	changed := false
	for i, step := range steps {
		amount := step.BudgetUSD / step.Price
		qty, px, ok := p.sizeOrder(ctx, st.Symbol, cfg, amount, step.Price)
		if !ok {
			continue
		}

		clientID := domain.NewClientOrderID("buy")
		if _, err := p.exchange.PlaceLimitOrder(ctx, st.Symbol, domain.SideBuy, qty, px, clientID); err != nil {
			p.logger.Error("DCA buy placement failed",
				zap.String("symbol", st.Symbol),
				zap.Int("step", i+1),
				zap.Error(err))
			continue
		}

		st.AddBuyOrder(clientID, p.now().Unix())
		changed = true
		metrics.IncOrderPlaced(p.mode, domain.SideBuy)
		p.logger.Info("DCA buy placed",
			zap.String("symbol", st.Symbol),
			zap.Int("step", i+1),
			zap.Float64("qty", qty),
			zap.Float64("price", px))
		p.notifier.Notify(ctx, fmt.Sprintf("🟢 %s DCA buy %d/%d placed: %.6f @ %.6f",
			st.Symbol, i+1, cfg.DCASteps, qty, px))
	}
	return changed
}

// sizeOrder rounds an order to exchange precision and applies the
// minimum-size checks. With strict_sizing the checks run on the rounded
// values (post-rounding notional can fall under a floor that looked
// fine before); without it only the raw notional is checked.
func (p *OrderPlanner) sizeOrder(ctx context.Context, symbol string, cfg config.SymbolConfig, amount, price float64) (float64, float64, bool) {
	if amount <= 0 || price <= 0 {
		return 0, 0, false
	}

	if !cfg.StrictSizing && amount*price < cfg.MinNotionalUSD {
		p.logger.Debug("Order below min notional, skipped",
			zap.String("symbol", symbol),
			zap.Float64("notional", amount*price))
		return 0, 0, false
	}

	qty, err := p.exchange.RoundAmount(ctx, symbol, amount)
	if err != nil {
		p.logger.Error("Amount rounding failed", zap.String("symbol", symbol), zap.Error(err))
		return 0, 0, false
	}
	px, err := p.exchange.RoundPrice(ctx, symbol, price)
	if err != nil {
		p.logger.Error("Price rounding failed", zap.String("symbol", symbol), zap.Error(err))
		return 0, 0, false
	}
	if qty <= 0 || px <= 0 {
		return 0, 0, false
	}

	if cfg.StrictSizing {
		notional := qty * px
		if notional < cfg.MinNotionalUSD {
			p.logger.Debug("Rounded order below min notional, skipped",
				zap.String("symbol", symbol),
				zap.Float64("notional", notional))
			return 0, 0, false
		}
		minNotional, err := p.exchange.MinNotional(ctx, symbol)
		if err == nil && notional < minNotional {
			p.logger.Debug("Rounded order below exchange min notional, skipped",
				zap.String("symbol", symbol),
				zap.Float64("notional", notional))
			return 0, 0, false
		}
		minAmount, err := p.exchange.MinAmount(ctx, symbol)
		if err == nil && qty < minAmount {
			p.logger.Debug("Rounded order below exchange min amount, skipped",
				zap.String("symbol", symbol),
				zap.Float64("qty", qty))
			return 0, 0, false
		}
	}

	return qty, px, true
}

func (p *OrderPlanner) cancelTracked(ctx context.Context, symbol string, orders []domain.OpenOrder) {
	for _, o := range orders {
		if err := p.exchange.CancelOrder(ctx, symbol, o.ClientID); err != nil {
			p.logger.Warn("Cancel failed",
				zap.String("symbol", symbol),
				zap.String("clientID", o.ClientID),
				zap.Error(err))
		}
	}
}
