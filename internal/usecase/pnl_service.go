package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"go.uber.org/zap"
)

// PnLService aggregates the realized-P&L ledger into the once-a-day
// summary notification. The persisted last-summary-date marker keeps
// the send idempotent however often the check runs within the
// triggering hour.
type PnLService struct {
	ledger   domain.LedgerRepository
	notifier domain.Notifier
	logger   *zap.Logger
	loc      *time.Location
	hour     int
	now      func() time.Time
}

func NewPnLService(ledger domain.LedgerRepository, notifier domain.Notifier, logger *zap.Logger, loc *time.Location, hour int) *PnLService {
	return &PnLService{
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		hour:     hour,
		now:      time.Now,
	}
}

// MaybeDailySummary sends the summary once per local calendar day, any
// time the local hour matches the configured one.
func (s *PnLService) MaybeDailySummary(ctx context.Context) error {
	nowLocal := s.now().In(s.loc)
	if nowLocal.Hour() != s.hour {
		return nil
	}

	today := nowLocal.Format("2006-01-02")
	last, err := s.ledger.LastSummaryDate(ctx)
	if err != nil {
		return fmt.Errorf("load summary marker: %w", err)
	}
	if last == today {
		return nil
	}

	trades, err := s.ledger.TradesSince(ctx, s.localMidnight(nowLocal))
	if err != nil {
		return fmt.Errorf("load today's trades: %w", err)
	}

	s.notifier.Notify(ctx, buildSummaryMessage(today, trades))
	if err := s.ledger.SetLastSummaryDate(ctx, today); err != nil {
		return fmt.Errorf("persist summary marker: %w", err)
	}

	s.logger.Info("Daily summary sent", zap.String("date", today), zap.Int("trades", len(trades)))
	return nil
}

// RealizedToday sums realized P&L since local midnight, for the status
// dashboard.
func (s *PnLService) RealizedToday(ctx context.Context) (float64, error) {
	nowLocal := s.now().In(s.loc)
	trades, err := s.ledger.TradesSince(ctx, s.localMidnight(nowLocal))
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, t := range trades {
		total += t.PnLUSD
	}
	return total, nil
}

func (s *PnLService) localMidnight(nowLocal time.Time) time.Time {
	return time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, s.loc)
}

func buildSummaryMessage(date string, trades []*domain.TradeEntry) string {
	if len(trades) == 0 {
		return fmt.Sprintf("📊 Daily P&L %s: no realized P&L yet today.", date)
	}

	type symbolTotal struct {
		pnl   float64
		count int
	}
	bySymbol := make(map[string]*symbolTotal)
	total := 0.0
	for _, t := range trades {
		st, ok := bySymbol[t.Symbol]
		if !ok {
			st = &symbolTotal{}
			bySymbol[t.Symbol] = st
		}
		st.pnl += t.PnLUSD
		st.count++
		total += t.PnLUSD
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily P&L %s\n", date)
	for _, sym := range symbols {
		st := bySymbol[sym]
		fmt.Fprintf(&b, "%s: %+.2f USDT (%d trades)\n", sym, st.pnl, st.count)
	}
	fmt.Fprintf(&b, "Total: %+.2f USDT", total)
	return b.String()
}
