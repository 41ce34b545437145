package main

import (
	"context"
	"fmt"
	"os"

	"github.com/akraev/crypto_dca_bot/internal/infrastructure/storage"
	"github.com/akraev/crypto_dca_bot/internal/usecase"
	"go.uber.org/zap"
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

	service := usecase.NewLedgerStatsService(store, zap.NewNop())
	stats, err := service.Analyze(context.Background(), 10000)
	if err != nil {
		fmt.Printf("Failed to analyze ledger: %v\n", err)
		os.Exit(1)
	}

	if stats.Trades == 0 {
		fmt.Println("No realized trades in the ledger yet.")
		return
	}

	fmt.Printf("Analyzing %s: %d realized trades\n\n", dbPath, stats.Trades)
	fmt.Printf("%-12s | %-7s | %-9s | %-6s | %-12s | %-11s | %s\n",
		"Symbol", "Trades", "Win rate", "Stops", "Total P&L", "Best", "Worst")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, row := range stats.Symbols {
		fmt.Printf("%-12s | %-7d | %8.2f%% | %-6d | %+12.2f | %+11.2f | %+.2f\n",
			row.Symbol, row.Trades, row.WinRate, row.StopExits,
			row.TotalPnL, row.BestTrade, row.WorstTrade)
	}

	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("%-12s | %-7d | %-9s | %-6s | %+12.2f |\n", "TOTAL", stats.Trades, "", "", stats.TotalPnL)
}
