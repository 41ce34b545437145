package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// descendingCandles yields strictly falling closes, which drives RSI to
// zero and keeps the entry signal on.
func descendingCandles(n int) []domain.Candle {
	candles := make([]domain.Candle, n)
	price := 100.0 + float64(n)
	for i := range candles {
		price -= 1
		candles[i] = domain.Candle{Time: int64(1700000000 + i*900), Close: price}
	}
	return candles
}

func newTestBotService(ex *mockExchange, states *mockStateRepo, ledger *mockLedger, notifier *mockNotifier) *BotService {
	cfg := config.TradingConfig{
		PollSeconds:     45,
		LookbackCandles: 50,
		RSIPeriod:       14,
		AutoRearm:       true,
		Symbols:         []config.SymbolConfig{testSymbolConfig()},
	}
	market := newTestMarketService(ex)
	reconciler := newTestReconciler(ex, states, ledger, notifier)
	planner := newTestPlanner(ex, ledger, notifier, true)
	pnl := newTestPnLService(ledger, notifier, 21, fixedNow) // 12:00, summary stays quiet
	return NewBotService(cfg, ex, market, states, reconciler, planner, pnl, notifier, zap.NewNop())
}

func TestRunSymbolFullCycle(t *testing.T) {
	ex := newMockExchange()
	ex.candles = descendingCandles(40)
	states := newMockStateRepo()
	s := newTestBotService(ex, states, &mockLedger{}, &mockNotifier{})

	symCfg := s.cfg.Symbols[0]
	require.NoError(t, s.runSymbol(context.Background(), symCfg))

	assert.Len(t, ex.limitOrders, 3, "signal armed and the ladder was placed")
	assert.Equal(t, 1, states.saves)

	st, err := states.LoadState(context.Background(), "BTC_USDT")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseFlatArmed, st.Phase())
	assert.Len(t, st.OpenBuyOrders, 3)

	statuses := s.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "BTC_USDT", statuses[0].Symbol)
	assert.Equal(t, 100.0, statuses[0].Price)
	assert.Equal(t, string(domain.PhaseFlatArmed), statuses[0].Phase)
	assert.True(t, statuses[0].HasRSI)
	assert.Equal(t, 0.0, statuses[0].RSI, "strictly falling closes pin RSI at zero")
}

func TestRunSymbolPriceFailureAborts(t *testing.T) {
	ex := newMockExchange()
	ex.priceErr = errors.New("connection refused")
	states := newMockStateRepo()
	s := newTestBotService(ex, states, &mockLedger{}, &mockNotifier{})

	err := s.runSymbol(context.Background(), s.cfg.Symbols[0])
	require.Error(t, err)
	assert.Empty(t, ex.limitOrders)
	assert.Zero(t, states.saves)
}

func TestRunSymbolContinuesAfterReconcileFailure(t *testing.T) {
	ex := newMockExchange()
	ex.candles = descendingCandles(40)
	ex.reportsErr = errors.New("order history unavailable")
	states := newMockStateRepo()
	s := newTestBotService(ex, states, &mockLedger{}, &mockNotifier{})

	require.NoError(t, s.runSymbol(context.Background(), s.cfg.Symbols[0]))
	assert.Len(t, ex.limitOrders, 3, "stale state still gets planned against")
	assert.Equal(t, 1, states.saves)
}

func TestRunSymbolSafeRecoversPanic(t *testing.T) {
	ex := newMockExchange()
	ex.panicOnPrice = true
	s := newTestBotService(ex, newMockStateRepo(), &mockLedger{}, &mockNotifier{})

	assert.NotPanics(t, func() {
		s.runSymbolSafe(context.Background(), s.cfg.Symbols[0])
	})
}

func TestHandleTickRefreshesCachedPrice(t *testing.T) {
	ex := newMockExchange()
	ex.candles = descendingCandles(40)
	s := newTestBotService(ex, newMockStateRepo(), &mockLedger{}, &mockNotifier{})

	require.NoError(t, s.runSymbol(context.Background(), s.cfg.Symbols[0]))
	s.handleTick("BTC_USDT", 101.5)

	statuses := s.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, 101.5, statuses[0].Price)

	// Unknown symbols are ignored rather than creating phantom entries.
	s.handleTick("DOGE_USDT", 0.1)
	assert.Len(t, s.Statuses(), 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ex := newMockExchange()
	ex.candles = descendingCandles(40)
	notifier := &mockNotifier{}
	s := newTestBotService(ex, newMockStateRepo(), &mockLedger{}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	assert.Equal(t, []string{"BTC_USDT"}, ex.subscribed)
	require.NotEmpty(t, notifier.messages)
	assert.Contains(t, notifier.messages[0], "started")
}

func TestModeReflectsDryRun(t *testing.T) {
	s := newTestBotService(newMockExchange(), newMockStateRepo(), &mockLedger{}, &mockNotifier{})
	assert.Equal(t, "live", s.Mode())

	s.cfg.DryRun = true
	assert.Equal(t, "paper", s.Mode())
}
