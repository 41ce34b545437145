package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const reconcileOrderLimit = 100

// FillReconciler applies exchange fill reports to local position
// bookkeeping. It only mutates state after the report list has been
// fetched successfully, so a fetch failure leaves the state untouched.
type FillReconciler struct {
	exchange domain.Exchange
	states   domain.StateRepository
	ledger   domain.LedgerRepository
	notifier domain.Notifier
	logger   *zap.Logger
	window   time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

func NewFillReconciler(
	exchange domain.Exchange,
	states domain.StateRepository,
	ledger domain.LedgerRepository,
	notifier domain.Notifier,
	logger *zap.Logger,
	window time.Duration,
	maxAge time.Duration,
) *FillReconciler {
	return &FillReconciler{
		exchange: exchange,
		states:   states,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		window:   window,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Reconcile matches recent terminal order reports against the tracked
// open order sets and applies fills in report order. Stale tracked
// orders beyond the max age are cancelled best-effort and dropped.
// State is persisted only when something changed.
func (r *FillReconciler) Reconcile(ctx context.Context, st *domain.SymbolState) (bool, error) {
	since := r.now().Add(-r.window)
	reports, err := r.exchange.FetchRecentOrders(ctx, st.Symbol, since, reconcileOrderLimit)
	if err != nil {
		return false, fmt.Errorf("fetch recent orders for %s: %w", st.Symbol, err)
	}

	changed := false
	for _, rep := range reports {
		if rep.Status != domain.OrderStatusFilled {
			continue
		}
		if rep.FilledQty <= 0 || rep.AvgFillPrice <= 0 {
			continue
		}

		switch {
		case st.HasBuyOrder(rep.ClientID):
			r.applyBuyFill(ctx, st, rep)
			changed = true
		case st.HasSellOrder(rep.ClientID):
			r.applySellFill(ctx, st, rep)
			changed = true
		}
	}

	if r.expireStaleOrders(ctx, st) {
		changed = true
	}

	if changed {
		if err := r.states.SaveState(ctx, st); err != nil {
			return true, fmt.Errorf("save state for %s: %w", st.Symbol, err)
		}
	}
	return changed, nil
}

func (r *FillReconciler) applyBuyFill(ctx context.Context, st *domain.SymbolState, rep domain.OrderReport) {
	cost := rep.FilledQty * rep.AvgFillPrice
	st.AvgEntry = (st.AvgEntry*st.TotalBase + cost) / (st.TotalBase + rep.FilledQty)
	st.TotalBase += rep.FilledQty
	st.RemoveBuyOrder(rep.ClientID)

	metrics.IncFill(domain.SideBuy)
	r.logger.Info("Buy fill applied",
		zap.String("symbol", st.Symbol),
		zap.String("clientID", rep.ClientID),
		zap.Float64("qty", rep.FilledQty),
		zap.Float64("price", rep.AvgFillPrice),
		zap.Float64("avgEntry", st.AvgEntry),
		zap.Float64("totalBase", st.TotalBase))
	r.notifier.Notify(ctx, fmt.Sprintf("✅ %s buy filled: %.6f @ %.6f | avg entry %.6f, position %.6f",
		st.Symbol, rep.FilledQty, rep.AvgFillPrice, st.AvgEntry, st.TotalBase))
}

func (r *FillReconciler) applySellFill(ctx context.Context, st *domain.SymbolState, rep domain.OrderReport) {
	// Realized against the basis as of this report, before any later
	// fills in the same pass are applied.
	pnl := rep.FilledQty * (rep.AvgFillPrice - st.AvgEntry)

	st.TotalBase -= rep.FilledQty
	if st.TotalBase <= 0 {
		st.TotalBase = 0
		st.AvgEntry = 0
		st.TPBasis = 0
	}
	st.RemoveSellOrder(rep.ClientID)

	filledAt := r.now().UTC()
	if rep.FinishedAt > 0 {
		filledAt = time.Unix(rep.FinishedAt, 0).UTC()
	}
	entry := &domain.TradeEntry{
		Symbol:    st.Symbol,
		Side:      domain.TradeSideSell,
		Qty:       rep.FilledQty,
		Price:     rep.AvgFillPrice,
		PnLUSD:    pnl,
		CreatedAt: filledAt,
	}
	if err := r.ledger.AppendTrade(ctx, entry); err != nil {
		r.logger.Error("Failed to append trade", zap.String("symbol", st.Symbol), zap.Error(err))
	}

	metrics.IncFill(domain.SideSell)
	metrics.AddRealizedPnL(pnl)
	r.logger.Info("Sell fill applied",
		zap.String("symbol", st.Symbol),
		zap.String("clientID", rep.ClientID),
		zap.Float64("qty", rep.FilledQty),
		zap.Float64("price", rep.AvgFillPrice),
		zap.Float64("pnl", pnl),
		zap.Float64("totalBase", st.TotalBase))
	r.notifier.Notify(ctx, fmt.Sprintf("💰 %s sell filled: %.6f @ %.6f | P&L %+.2f USDT",
		st.Symbol, rep.FilledQty, rep.AvgFillPrice, pnl))
}

// expireStaleOrders drops tracked orders older than the max age. The
// reconciliation window can miss fills on long-resting orders, which
// would otherwise orphan their identifiers in the open sets forever.
func (r *FillReconciler) expireStaleOrders(ctx context.Context, st *domain.SymbolState) bool {
	if r.maxAge <= 0 {
		return false
	}
	cutoff := r.now().Add(-r.maxAge).Unix()
	changed := false

	for _, o := range append([]domain.OpenOrder(nil), st.OpenBuyOrders...) {
		if o.PlacedAt >= cutoff {
			continue
		}
		r.expireOrder(ctx, st, o, domain.SideBuy)
		st.RemoveBuyOrder(o.ClientID)
		changed = true
	}
	for _, o := range append([]domain.OpenOrder(nil), st.OpenSellOrders...) {
		if o.PlacedAt >= cutoff {
			continue
		}
		r.expireOrder(ctx, st, o, domain.SideSell)
		st.RemoveSellOrder(o.ClientID)
		changed = true
	}
	return changed
}

func (r *FillReconciler) expireOrder(ctx context.Context, st *domain.SymbolState, o domain.OpenOrder, side string) {
	if err := r.exchange.CancelOrder(ctx, st.Symbol, o.ClientID); err != nil {
		r.logger.Warn("Cancel of stale order failed",
			zap.String("symbol", st.Symbol),
			zap.String("clientID", o.ClientID),
			zap.Error(err))
	}
	r.logger.Warn("Expired stale order",
		zap.String("symbol", st.Symbol),
		zap.String("side", side),
		zap.String("clientID", o.ClientID),
		zap.Int64("placedAt", o.PlacedAt))
	r.notifier.Notify(ctx, fmt.Sprintf("⌛ %s stale %s order expired and dropped: %s",
		st.Symbol, side, o.ClientID))
}
