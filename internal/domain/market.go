package domain

type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type Ticker struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"last_price"`
	HighestBid   float64 `json:"highest_bid"`
	LowestAsk    float64 `json:"lowest_ask"`
	ChangePct24h float64 `json:"change_pct_24h"`
}

// Order report statuses as normalized by the exchange adapter.
const (
	OrderStatusOpen      = "open"
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"
)

// OrderReport is a normalized execution report for one historical order,
// matched against local bookkeeping by ClientID.
type OrderReport struct {
	ClientID     string  `json:"client_id"`
	Side         string  `json:"side"`
	Status       string  `json:"status"`
	FilledQty    float64 `json:"filled_qty"`
	AvgFillPrice float64 `json:"avg_fill_price"`
	FinishedAt   int64   `json:"finished_at"` // unix seconds
}

// PairRules carries the exchange's sizing constraints for a trading pair.
// Amounts and prices must be rounded to these precisions before notional
// checks, since rounding can push an order below a minimum.
type PairRules struct {
	Symbol          string  `json:"symbol"`
	PricePrecision  int     `json:"price_precision"`
	AmountPrecision int     `json:"amount_precision"`
	MinNotionalUSD  float64 `json:"min_notional_usd"`
	MinAmount       float64 `json:"min_amount"`
}
