package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"go.uber.org/zap"
)

// candleCacheTTL bounds how long a fetched candle series is reused. One
// series per symbol covers a whole poll cycle plus the debug tooling
// without hammering the candlestick endpoint.
const candleCacheTTL = 30 * time.Second

type cachedCandles struct {
	candles []domain.Candle
	expiry  time.Time
}

// MarketService fetches market data and turns candle history into the
// per-cycle indicator snapshot the planner evaluates.
type MarketService struct {
	exchange  domain.Exchange
	logger    *zap.Logger
	rsiPeriod int
	lookback  int

	cache map[string]cachedCandles
	mu    sync.Mutex
	now   func() time.Time
}

func NewMarketService(exchange domain.Exchange, logger *zap.Logger, rsiPeriod, lookback int) *MarketService {
	return &MarketService{
		exchange:  exchange,
		logger:    logger,
		rsiPeriod: rsiPeriod,
		lookback:  lookback,
		cache:     make(map[string]cachedCandles),
		now:       time.Now,
	}
}

// Snapshot returns the current price and indicators for one evaluation
// pass. A failed price fetch aborts the pass; a failed candle fetch only
// degrades the snapshot to "no signal".
func (s *MarketService) Snapshot(ctx context.Context, symbol, timeframe string) (float64, IndicatorSnapshot, error) {
	price, err := s.exchange.FetchPrice(ctx, symbol)
	if err != nil {
		return 0, IndicatorSnapshot{}, fmt.Errorf("fetch price: %w", err)
	}
	return price, s.Indicators(ctx, symbol, timeframe), nil
}

// Indicators computes RSI and the MACD histogram pair from the candle
// history. Too little history leaves HasRSI false, which callers treat
// as "defer, do not signal".
func (s *MarketService) Indicators(ctx context.Context, symbol, timeframe string) IndicatorSnapshot {
	candles, err := s.Candles(ctx, symbol, timeframe)
	if err != nil {
		s.logger.Warn("Candle fetch failed, no signal this cycle",
			zap.String("symbol", symbol), zap.Error(err))
		return IndicatorSnapshot{}
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	var ind IndicatorSnapshot
	if rsi, err := RSI(closes, s.rsiPeriod); err == nil {
		ind.RSI = rsi
		ind.HasRSI = true
	}

	_, _, hist := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	ind.Hist = hist[len(hist)-1]
	if len(hist) >= 2 {
		ind.HistPrev = hist[len(hist)-2]
	}
	return ind
}

// Candles returns the chronological candle series for the symbol,
// reusing a recent fetch when one is still fresh.
func (s *MarketService) Candles(ctx context.Context, symbol, timeframe string) ([]domain.Candle, error) {
	key := symbol + "/" + timeframe

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok && s.now().Before(cached.expiry) {
		return cached.candles, nil
	}

	candles, err := s.exchange.FetchCandles(ctx, symbol, timeframe, s.lookback)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cachedCandles{candles: candles, expiry: s.now().Add(candleCacheTTL)}
	s.mu.Unlock()
	return candles, nil
}
