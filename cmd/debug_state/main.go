package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/infrastructure/storage"
)

func main() {
	dbPath := "bot.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	states, err := store.ListStates(ctx)
	if err != nil {
		fmt.Printf("Failed to list states: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d symbol states:\n", len(states))
	for _, st := range states {
		fmt.Printf("- %s [%s]\n", st.Symbol, st.Phase())
		fmt.Printf("  Position: %f base, avg entry %f (%.2f USD)\n",
			st.TotalBase, st.AvgEntry, st.PositionUSD())
		if st.AnchorPrice > 0 {
			fmt.Printf("  Anchor: %f (signal at %s)\n",
				st.AnchorPrice, time.Unix(st.LastSignalTS, 0).UTC().Format("2006-01-02 15:04:05"))
		}
		if st.TPBasis > 0 {
			fmt.Printf("  TP basis: %f\n", st.TPBasis)
		}
		fmt.Printf("  Open buys: %d\n", len(st.OpenBuyOrders))
		for _, o := range st.OpenBuyOrders {
			fmt.Printf("    %s (placed %s)\n", o.ClientID, time.Unix(o.PlacedAt, 0).UTC().Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("  Open sells: %d\n", len(st.OpenSellOrders))
		for _, o := range st.OpenSellOrders {
			fmt.Printf("    %s (placed %s)\n", o.ClientID, time.Unix(o.PlacedAt, 0).UTC().Format("2006-01-02 15:04:05"))
		}
	}

	trades, err := store.ListTrades(ctx, 10)
	if err != nil {
		fmt.Printf("Failed to list trades: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nLast %d ledger trades:\n", len(trades))
	for _, t := range trades {
		fmt.Printf("- #%d %s %s: %f @ %f, P&L %+.2f USD (%s)\n",
			t.ID, t.Symbol, t.Side, t.Qty, t.Price, t.PnLUSD,
			t.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
}
