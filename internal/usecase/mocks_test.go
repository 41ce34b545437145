package usecase

import (
	"context"
	"math"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
)

type placedOrder struct {
	symbol   string
	side     string
	amount   float64
	price    float64
	clientID string
}

// mockExchange is a hand-rolled fake with programmable market data and
// recorded order flow.
type mockExchange struct {
	price      float64
	priceErr   error
	candles    []domain.Candle
	candlesErr error
	reports    []domain.OrderReport
	reportsErr error

	limitOrders    []placedOrder
	marketOrders   []placedOrder
	placeLimitErr  error
	placeMarketErr error
	cancelled      []string
	cancelErr      error

	minNotional float64
	minAmount   float64
	amountPrec  int
	pricePrec   int

	subscribed []string
	callbacks  []func(symbol string, price float64)

	panicOnPrice bool
}

func newMockExchange() *mockExchange {
	return &mockExchange{
		price:       100,
		minNotional: 3,
		minAmount:   0.0001,
		amountPrec:  6,
		pricePrec:   2,
	}
}

func (m *mockExchange) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if m.panicOnPrice {
		panic("mock price panic")
	}
	return m.price, m.priceErr
}

func (m *mockExchange) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	return m.candles, m.candlesErr
}

func (m *mockExchange) FetchTickers(ctx context.Context) ([]domain.Ticker, error) {
	return nil, nil
}

func (m *mockExchange) PlaceLimitOrder(ctx context.Context, symbol, side string, amount, price float64, clientID string) (string, error) {
	if m.placeLimitErr != nil {
		return "", m.placeLimitErr
	}
	m.limitOrders = append(m.limitOrders, placedOrder{symbol, side, amount, price, clientID})
	return "ex-" + clientID, nil
}

func (m *mockExchange) PlaceMarketOrder(ctx context.Context, symbol, side string, amount float64, clientID string) (string, error) {
	if m.placeMarketErr != nil {
		return "", m.placeMarketErr
	}
	m.marketOrders = append(m.marketOrders, placedOrder{symbol, side, amount, m.price, clientID})
	return "ex-" + clientID, nil
}

func (m *mockExchange) FetchRecentOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.OrderReport, error) {
	if m.reportsErr != nil {
		return nil, m.reportsErr
	}
	return m.reports, nil
}

func (m *mockExchange) CancelOrder(ctx context.Context, symbol, clientID string) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, clientID)
	return nil
}

func (m *mockExchange) RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error) {
	p := math.Pow10(m.amountPrec)
	return math.Trunc(amount*p) / p, nil
}

func (m *mockExchange) RoundPrice(ctx context.Context, symbol string, price float64) (float64, error) {
	p := math.Pow10(m.pricePrec)
	return math.Trunc(price*p) / p, nil
}

func (m *mockExchange) MinNotional(ctx context.Context, symbol string) (float64, error) {
	return m.minNotional, nil
}

func (m *mockExchange) MinAmount(ctx context.Context, symbol string) (float64, error) {
	return m.minAmount, nil
}

func (m *mockExchange) OnPriceUpdate(callback func(symbol string, price float64)) {
	m.callbacks = append(m.callbacks, callback)
}

func (m *mockExchange) SubscribeTickers(symbols []string) error {
	m.subscribed = append(m.subscribed, symbols...)
	return nil
}

type mockNotifier struct {
	messages []string
}

func (m *mockNotifier) Notify(ctx context.Context, message string) {
	m.messages = append(m.messages, message)
}

type mockStateRepo struct {
	states  map[string]*domain.SymbolState
	saves   int
	loadErr error
	saveErr error
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{states: make(map[string]*domain.SymbolState)}
}

func (m *mockStateRepo) LoadState(ctx context.Context, symbol string) (*domain.SymbolState, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if st, ok := m.states[symbol]; ok {
		return st, nil
	}
	return domain.NewSymbolState(symbol), nil
}

func (m *mockStateRepo) SaveState(ctx context.Context, state *domain.SymbolState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.states[state.Symbol] = state
	return nil
}

func (m *mockStateRepo) ListStates(ctx context.Context) ([]*domain.SymbolState, error) {
	var out []*domain.SymbolState
	for _, st := range m.states {
		out = append(out, st)
	}
	return out, nil
}

type mockLedger struct {
	entries   []*domain.TradeEntry
	lastDate  string
	appendErr error
}

func (m *mockLedger) AppendTrade(ctx context.Context, entry *domain.TradeEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLedger) ListTrades(ctx context.Context, limit int) ([]*domain.TradeEntry, error) {
	var out []*domain.TradeEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *mockLedger) TradesSince(ctx context.Context, since time.Time) ([]*domain.TradeEntry, error) {
	var out []*domain.TradeEntry
	for _, e := range m.entries {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLedger) LastSummaryDate(ctx context.Context) (string, error) {
	return m.lastDate, nil
}

func (m *mockLedger) SetLastSummaryDate(ctx context.Context, date string) error {
	m.lastDate = date
	return nil
}
