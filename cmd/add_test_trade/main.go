package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/storage"
)

// Seeds the database with a positioned symbol and a few realized trades
// so the dashboard and analyzer can be exercised without a running bot.
func main() {
	store, err := storage.NewSQLiteStore("bot.db")
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	// A position mid-ladder: two fills averaged, one resting buy and
	// two resting take-profits.
	st := domain.NewSymbolState("BTC_USDT")
	st.AvgEntry = 58500.0
	st.TotalBase = 0.001
	st.AnchorPrice = 60000.0
	st.LastSignalTS = now.Add(-90 * time.Minute).Unix()
	st.TPBasis = 58500.0
	st.AddBuyOrder(domain.NewClientOrderID("buy"), now.Add(-90*time.Minute).Unix())
	st.AddSellOrder(domain.NewClientOrderID("tp"), now.Add(-60*time.Minute).Unix())
	st.AddSellOrder(domain.NewClientOrderID("tp"), now.Add(-60*time.Minute).Unix())

	if err := store.SaveState(ctx, st); err != nil {
		log.Fatalf("Failed to save state: %v", err)
	}

	fmt.Printf("✅ Test state added successfully!\n")
	fmt.Printf("Symbol: %s\n", st.Symbol)
	fmt.Printf("Phase: %s\n", st.Phase())
	fmt.Printf("Avg Entry: %.2f\n", st.AvgEntry)
	fmt.Printf("Position: %.6f (%.2f USD)\n", st.TotalBase, st.PositionUSD())

	trades := []*domain.TradeEntry{
		{Symbol: "BTC_USDT", Side: domain.TradeSideSell, Qty: 0.0005, Price: 61500, PnLUSD: 1.5, CreatedAt: now.Add(-26 * time.Hour)},
		{Symbol: "BTC_USDT", Side: domain.TradeSideSell, Qty: 0.0005, Price: 63000, PnLUSD: 2.25, CreatedAt: now.Add(-3 * time.Hour)},
		{Symbol: "ETH_USDT", Side: domain.TradeSideStopExit, Qty: 0.01, Price: 2300, PnLUSD: -1.8, CreatedAt: now.Add(-2 * time.Hour)},
	}
	for _, t := range trades {
		if err := store.AppendTrade(ctx, t); err != nil {
			log.Fatalf("Failed to append trade: %v", err)
		}
	}

	fmt.Printf("\n✅ Ledger seeded with %d trades:\n", len(trades))
	for _, t := range trades {
		fmt.Printf("%s %s: %.6f @ %.2f, P&L %+.2f USD\n", t.Symbol, t.Side, t.Qty, t.Price, t.PnLUSD)
	}
	fmt.Printf("\nRun cmd/analyzer or open the dashboard to see the aggregates.\n")
}
