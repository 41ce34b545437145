package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/exchange"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/storage"
	"github.com/akraev/crypto_dca_bot/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 3. Init Exchange + Market Data
	adapter := exchange.NewGateAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		time.Duration(cfg.Exchange.TimeoutSec)*time.Second,
	)
	market := usecase.NewMarketService(adapter, zap.NewNop(), cfg.Trading.RSIPeriod, cfg.Trading.LookbackCandles)
	ctx := context.Background()

	fmt.Printf("Analyzing %d configured symbols...\n", len(cfg.Trading.Symbols))

	for _, sc := range cfg.Trading.Symbols {
		fmt.Printf("\n--------------------------------------------------\n")
		fmt.Printf("Symbol: %s, Timeframe: %s, Mode: %s\n", sc.Symbol, sc.Timeframe, sc.SignalMode)

		price, ind, err := market.Snapshot(ctx, sc.Symbol, sc.Timeframe)
		if err != nil {
			fmt.Printf("❌ Failed to fetch market data: %v\n", err)
			continue
		}
		fmt.Printf("Current Market Price: %f\n", price)

		// 4. Signal Analysis
		if !ind.HasRSI {
			fmt.Printf("⚠️ Not enough candle history for RSI(%d)\n", cfg.Trading.RSIPeriod)
		} else {
			fmt.Printf("RSI(%d): %.2f (entry threshold < %.2f)\n", cfg.Trading.RSIPeriod, ind.RSI, sc.EntryRSILt)
		}

		signal := ind.HasRSI && ind.RSI < sc.EntryRSILt
		if sc.SignalMode == config.SignalModeRSIMACD {
			fmt.Printf("MACD hist: %.6f (prev %.6f)\n", ind.Hist, ind.HistPrev)
			signal = signal && ind.Hist > ind.HistPrev
		}
		if signal {
			fmt.Printf("✅ Entry signal ACTIVE\n")
		} else {
			fmt.Printf("❌ No entry signal\n")
		}

		// 5. Position State
		st, err := store.LoadState(ctx, sc.Symbol)
		if err != nil {
			fmt.Printf("❌ Failed to load state: %v\n", err)
			continue
		}
		fmt.Printf("Phase: %s\n", st.Phase())
		fmt.Printf("Position: %f base, avg entry %f (%.2f USD of %.2f max)\n",
			st.TotalBase, st.AvgEntry, st.PositionUSD(), sc.MaxPositionUSD)
		fmt.Printf("Open orders: %d buys, %d sells\n", len(st.OpenBuyOrders), len(st.OpenSellOrders))

		// 6. Ladder Preview
		anchor := st.AnchorPrice
		if anchor > 0 {
			fmt.Printf("Anchor (armed): %f\n", anchor)
		} else {
			anchor = price
			fmt.Printf("Anchor (preview from current price): %f\n", anchor)
		}

		steps := usecase.BuildLadder(sc, anchor, st.PositionUSD())
		fmt.Printf("DCA ladder (%d of %d steps fit the budget):\n", len(steps), sc.DCASteps)
		for i, step := range steps {
			fmt.Printf("  Step %d: buy %.2f USD @ %f\n", i+1, step.BudgetUSD, step.Price)
		}

		// 7. Take-Profit Preview
		if st.TotalBase > 0 {
			fmt.Printf("Take-profit targets:\n")
			for _, tp := range usecase.BuildTakeProfits(sc, st.AvgEntry, st.TotalBase) {
				fmt.Printf("  Tier %d: sell %f @ %f\n", tp.Tier, tp.Amount, tp.Price)
			}
		}
	}
}
