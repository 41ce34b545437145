package exchange

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"go.uber.org/zap"
)

// PaperExchange wraps a real adapter for dry-run mode. Market data and
// pair rules pass through to the wrapped exchange; order placement is
// simulated locally with immediate fills, so reconciliation sees the
// same report flow as in live trading without touching the account.
type PaperExchange struct {
	real    domain.Exchange
	logger  *zap.Logger
	mu      sync.Mutex
	nextID  int64
	reports map[string][]domain.OrderReport
}

func NewPaperExchange(real domain.Exchange, logger *zap.Logger) *PaperExchange {
	return &PaperExchange{
		real:    real,
		logger:  logger,
		nextID:  1,
		reports: make(map[string][]domain.OrderReport),
	}
}

func (p *PaperExchange) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	return p.real.FetchPrice(ctx, symbol)
}

func (p *PaperExchange) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	return p.real.FetchCandles(ctx, symbol, timeframe, limit)
}

func (p *PaperExchange) FetchTickers(ctx context.Context) ([]domain.Ticker, error) {
	return p.real.FetchTickers(ctx)
}

func (p *PaperExchange) PlaceLimitOrder(ctx context.Context, symbol, side string, amount, price float64, clientID string) (string, error) {
	p.logger.Info("Paper limit order",
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.Float64("amount", amount),
		zap.Float64("price", price),
		zap.String("clientID", clientID))
	return p.recordFill(symbol, side, amount, price, clientID), nil
}

func (p *PaperExchange) PlaceMarketOrder(ctx context.Context, symbol, side string, amount float64, clientID string) (string, error) {
	price, err := p.real.FetchPrice(ctx, symbol)
	if err != nil {
		return "", err
	}
	p.logger.Info("Paper market order",
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.Float64("amount", amount),
		zap.Float64("price", price),
		zap.String("clientID", clientID))
	return p.recordFill(symbol, side, amount, price, clientID), nil
}

// recordFill registers a simulated immediate fill at the given price.
func (p *PaperExchange) recordFill(symbol, side string, amount, price float64, clientID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reports[symbol] = append(p.reports[symbol], domain.OrderReport{
		ClientID:     clientID,
		Side:         side,
		Status:       domain.OrderStatusFilled,
		FilledQty:    amount,
		AvgFillPrice: price,
		FinishedAt:   time.Now().Unix(),
	})

	id := p.nextID
	p.nextID++
	return "paper-" + strconv.FormatInt(id, 10)
}

func (p *PaperExchange) FetchRecentOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.OrderReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var reports []domain.OrderReport
	for _, r := range p.reports[symbol] {
		if !since.IsZero() && r.FinishedAt < since.Unix() {
			continue
		}
		reports = append(reports, r)
	}
	if limit > 0 && len(reports) > limit {
		reports = reports[len(reports)-limit:]
	}
	return reports, nil
}

func (p *PaperExchange) CancelOrder(ctx context.Context, symbol, clientID string) error {
	// Simulated orders fill immediately, nothing is left to cancel.
	return nil
}

func (p *PaperExchange) RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error) {
	return p.real.RoundAmount(ctx, symbol, amount)
}

func (p *PaperExchange) RoundPrice(ctx context.Context, symbol string, price float64) (float64, error) {
	return p.real.RoundPrice(ctx, symbol, price)
}

func (p *PaperExchange) MinNotional(ctx context.Context, symbol string) (float64, error) {
	return p.real.MinNotional(ctx, symbol)
}

func (p *PaperExchange) MinAmount(ctx context.Context, symbol string) (float64, error) {
	return p.real.MinAmount(ctx, symbol)
}

func (p *PaperExchange) OnPriceUpdate(callback func(symbol string, price float64)) {
	p.real.OnPriceUpdate(callback)
}

func (p *PaperExchange) SubscribeTickers(symbols []string) error {
	return p.real.SubscribeTickers(symbols)
}
