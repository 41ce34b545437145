package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/exchange"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	symbol := cfg.Trading.Symbols[0].Symbol
	fmt.Printf("Testing Gate.io Interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Exchange.RESTEndpoint)
	if len(cfg.Exchange.APIKey) >= 4 {
		fmt.Printf("API Key: %s...\n", cfg.Exchange.APIKey[:4])
	} else {
		fmt.Printf("API Key: (not set)\n")
	}

	adapter := exchange.NewGateAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		time.Duration(cfg.Exchange.TimeoutSec)*time.Second,
	)
	ctx := context.Background()

	// 2. Check Public Endpoints
	price, err := adapter.FetchPrice(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
	} else {
		fmt.Printf("✅ Current Price (%s): %f\n", symbol, price)
	}

	candles, err := adapter.FetchCandles(ctx, symbol, "15m", 5)
	if err != nil {
		fmt.Printf("❌ Failed to get candles: %v\n", err)
	} else {
		fmt.Printf("✅ Candles (%s, 15m): %d fetched, last close %f\n",
			symbol, len(candles), candles[len(candles)-1].Close)
	}

	tickers, err := adapter.FetchTickers(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get tickers: %v\n", err)
	} else {
		fmt.Printf("✅ Tickers: %d pairs listed\n", len(tickers))
	}

	// 3. Check Pair Metadata
	qty, err := adapter.RoundAmount(ctx, symbol, 0.123456789)
	if err != nil {
		fmt.Printf("❌ Failed to round amount: %v\n", err)
	} else {
		fmt.Printf("✅ Amount precision: 0.123456789 -> %v\n", qty)
	}

	minNotional, err := adapter.MinNotional(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get min notional: %v\n", err)
	} else {
		fmt.Printf("✅ Min notional: %v\n", minNotional)
	}

	// 4. Check Private Endpoint (signed request)
	if cfg.Exchange.APIKey == "" {
		fmt.Printf("⚠️ No API key configured, skipping private endpoint check\n")
		return
	}
	orders, err := adapter.FetchRecentOrders(ctx, symbol, time.Now().Add(-24*time.Hour), 10)
	if err != nil {
		fmt.Printf("❌ Failed to list recent orders: %v\n", err)
	} else {
		fmt.Printf("✅ Recent orders (%s, 24h): %d\n", symbol, len(orders))
	}
}
