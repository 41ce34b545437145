package domain

import "time"

// Order sides as sent to the exchange.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Ledger trade sides. A stop_exit row marks a stop-loss liquidation as
// opposed to a take-profit sell.
const (
	TradeSideSell     = "sell"
	TradeSideStopExit = "stop_exit"
)

// TradeEntry is one realized-P&L ledger record. Rows are append-only and
// never rewritten.
type TradeEntry struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	PnLUSD    float64   `json:"pnl_usd"`
	CreatedAt time.Time `json:"created_at"`
}
