package domain

import (
	"context"
	"time"
)

// Exchange defines the interface for interacting with a spot exchange.
type Exchange interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
	FetchTickers(ctx context.Context) ([]Ticker, error)

	// PlaceLimitOrder and PlaceMarketOrder return the exchange-assigned
	// order id; fills are matched back by the caller-supplied clientID.
	PlaceLimitOrder(ctx context.Context, symbol, side string, amount, price float64, clientID string) (string, error)
	PlaceMarketOrder(ctx context.Context, symbol, side string, amount float64, clientID string) (string, error)
	FetchRecentOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]OrderReport, error)
	CancelOrder(ctx context.Context, symbol, clientID string) error

	// Sizing helpers backed by the exchange's pair metadata.
	RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error)
	RoundPrice(ctx context.Context, symbol string, price float64) (float64, error)
	MinNotional(ctx context.Context, symbol string) (float64, error)
	MinAmount(ctx context.Context, symbol string) (float64, error)

	// Streaming price feed for dashboard freshness.
	OnPriceUpdate(callback func(symbol string, price float64))
	SubscribeTickers(symbols []string) error
}

// Notifier delivers outbound messages on a best-effort basis. Failures
// are swallowed inside the implementation and never surface to callers.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// StateRepository persists per-symbol position state.
type StateRepository interface {
	// LoadState returns the default flat state when the symbol has never
	// been saved; absence is not an error.
	LoadState(ctx context.Context, symbol string) (*SymbolState, error)
	SaveState(ctx context.Context, state *SymbolState) error
	ListStates(ctx context.Context) ([]*SymbolState, error)
}

// LedgerRepository persists the append-only realized-P&L trade log and
// the daily-summary marker.
type LedgerRepository interface {
	AppendTrade(ctx context.Context, entry *TradeEntry) error
	ListTrades(ctx context.Context, limit int) ([]*TradeEntry, error)
	TradesSince(ctx context.Context, since time.Time) ([]*TradeEntry, error)
	LastSummaryDate(ctx context.Context) (string, error)
	SetLastSummaryDate(ctx context.Context, date string) error
}
