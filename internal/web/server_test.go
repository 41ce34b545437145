package web

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExchange struct {
	price float64
}

func (f *fakeExchange) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, nil
}

func (f *fakeExchange) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	return nil, nil
}

func (f *fakeExchange) FetchTickers(ctx context.Context) ([]domain.Ticker, error) {
	return nil, nil
}

func (f *fakeExchange) PlaceLimitOrder(ctx context.Context, symbol, side string, amount, price float64, clientID string) (string, error) {
	return "ex-" + clientID, nil
}

func (f *fakeExchange) PlaceMarketOrder(ctx context.Context, symbol, side string, amount float64, clientID string) (string, error) {
	return "ex-" + clientID, nil
}

func (f *fakeExchange) FetchRecentOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.OrderReport, error) {
	return nil, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, symbol, clientID string) error {
	return nil
}

func (f *fakeExchange) RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error) {
	return amount, nil
}

func (f *fakeExchange) RoundPrice(ctx context.Context, symbol string, price float64) (float64, error) {
	return price, nil
}

func (f *fakeExchange) MinNotional(ctx context.Context, symbol string) (float64, error) {
	return 3, nil
}

func (f *fakeExchange) MinAmount(ctx context.Context, symbol string) (float64, error) {
	return 0.0001, nil
}

func (f *fakeExchange) OnPriceUpdate(callback func(symbol string, price float64)) {}

func (f *fakeExchange) SubscribeTickers(symbols []string) error { return nil }

type fakeStateRepo struct {
	states map[string]*domain.SymbolState
}

func (f *fakeStateRepo) LoadState(ctx context.Context, symbol string) (*domain.SymbolState, error) {
	if st, ok := f.states[symbol]; ok {
		return st, nil
	}
	return domain.NewSymbolState(symbol), nil
}

func (f *fakeStateRepo) SaveState(ctx context.Context, state *domain.SymbolState) error {
	f.states[state.Symbol] = state
	return nil
}

func (f *fakeStateRepo) ListStates(ctx context.Context) ([]*domain.SymbolState, error) {
	var out []*domain.SymbolState
	for _, st := range f.states {
		out = append(out, st)
	}
	return out, nil
}

type fakeLedger struct {
	entries  []*domain.TradeEntry
	lastDate string
}

func (f *fakeLedger) AppendTrade(ctx context.Context, entry *domain.TradeEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedger) ListTrades(ctx context.Context, limit int) ([]*domain.TradeEntry, error) {
	var out []*domain.TradeEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeLedger) TradesSince(ctx context.Context, since time.Time) ([]*domain.TradeEntry, error) {
	var out []*domain.TradeEntry
	for _, e := range f.entries {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedger) LastSummaryDate(ctx context.Context) (string, error) {
	return f.lastDate, nil
}

func (f *fakeLedger) SetLastSummaryDate(ctx context.Context, date string) error {
	f.lastDate = date
	return nil
}

type fakeNotifier struct{}

func (f *fakeNotifier) Notify(ctx context.Context, message string) {}

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		DryRun:          true,
		PollSeconds:     1,
		LookbackCandles: 50,
		RSIPeriod:       14,
		Symbols: []config.SymbolConfig{{
			Symbol:         "BTC_USDT",
			Timeframe:      "15m",
			SignalMode:     config.SignalModeRSI,
			EntryRSILt:     35,
			USDPerEntry:    30,
			DCASteps:       3,
			DCAStepPct:     5,
			MaxPositionUSD: 1000,
			MinNotionalUSD: 3,
		}},
	}
}

// newTestServer wires a full paper-mode stack behind the HTTP layer and
// runs exactly one bot pass so the status cache is populated.
func newTestServer(t *testing.T, ledger *fakeLedger) *Server {
	t.Helper()

	log := zap.NewNop()
	ex := &fakeExchange{price: 100}
	states := &fakeStateRepo{states: make(map[string]*domain.SymbolState)}
	notifier := &fakeNotifier{}
	cfg := testTradingConfig()

	market := usecase.NewMarketService(ex, log, cfg.RSIPeriod, cfg.LookbackCandles)
	reconciler := usecase.NewFillReconciler(ex, states, ledger, notifier, log, 24*time.Hour, 48*time.Hour)
	planner := usecase.NewOrderPlanner(ex, ledger, notifier, log, "paper", true)
	pnl := usecase.NewPnLService(ledger, notifier, log, time.UTC, 21)
	stats := usecase.NewLedgerStatsService(ledger, log)
	bot := usecase.NewBotService(cfg, ex, market, states, reconciler, planner, pnl, notifier, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bot.Run(ctx)

	return NewServer(0, bot, pnl, stats, ledger, log)
}

func seededLedger() *fakeLedger {
	now := time.Now()
	return &fakeLedger{entries: []*domain.TradeEntry{
		{ID: 1, Symbol: "BTC_USDT", Side: domain.TradeSideSell, Qty: 0.001, Price: 51000, PnLUSD: 4.2, CreatedAt: now},
		{ID: 2, Symbol: "ETH_USDT", Side: domain.TradeSideStopExit, Qty: 0.05, Price: 2400, PnLUSD: -2.1, CreatedAt: now},
		{ID: 3, Symbol: "BTC_USDT", Side: domain.TradeSideSell, Qty: 0.002, Price: 52000, PnLUSD: 6.3, CreatedAt: now},
	}}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, seededLedger())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Mode             string                 `json:"mode"`
		Symbols          []usecase.SymbolStatus `json:"symbols"`
		RealizedTodayUSD float64                `json:"realized_today_usd"`
		ServerTime       int64                  `json:"server_time"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "paper", body.Mode)
	require.Len(t, body.Symbols, 1)
	assert.Equal(t, "BTC_USDT", body.Symbols[0].Symbol)
	assert.Equal(t, 100.0, body.Symbols[0].Price)
	assert.InDelta(t, 8.4, body.RealizedTodayUSD, 1e-9)
	assert.Greater(t, body.ServerTime, int64(0))
}

func TestTradesEndpoint(t *testing.T) {
	srv := newTestServer(t, seededLedger())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/trades", nil))
	require.Equal(t, 200, rec.Code)

	var trades []*domain.TradeEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades, 3)
	assert.Equal(t, int64(3), trades[0].ID, "newest first")
}

func TestTradesEndpointHonorsLimit(t *testing.T) {
	srv := newTestServer(t, seededLedger())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/trades?limit=2", nil))
	require.Equal(t, 200, rec.Code)

	var trades []*domain.TradeEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	assert.Len(t, trades, 2)
}

func TestTradesEndpointRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t, seededLedger())

	for _, q := range []string{"limit=0", "limit=-5", "limit=9999", "limit=abc"} {
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/trades?"+q, nil))
		assert.Equal(t, 400, rec.Code, q)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t, seededLedger())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/summary", nil))
	require.Equal(t, 200, rec.Code)

	var stats usecase.LedgerStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))

	assert.Equal(t, 3, stats.Trades)
	assert.InDelta(t, 8.4, stats.TotalPnL, 1e-9)
	require.Len(t, stats.Symbols, 2)
	assert.Equal(t, "BTC_USDT", stats.Symbols[0].Symbol)
	assert.Equal(t, 1, stats.Symbols[1].StopExits)
}

func TestDashboardRenders(t *testing.T) {
	srv := newTestServer(t, seededLedger())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, 200, rec.Code)

	html := rec.Body.String()
	assert.Contains(t, html, "DCA Bot")
	assert.Contains(t, html, "BTC_USDT")
	assert.Contains(t, html, "paper")
	assert.Contains(t, html, "Recent trades")
}

func TestDashboardRendersEmptyLedger(t *testing.T) {
	srv := newTestServer(t, &fakeLedger{})

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "No realized trades yet")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, seededLedger())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}
