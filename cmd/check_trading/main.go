package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/exchange"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	sc := cfg.Trading.Symbols[0]
	fmt.Printf("Testing order round trip on %s (paper fills, live market data)...\n", sc.Symbol)

	// Always paper here. The account is never touched.
	gate := exchange.NewGateAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		time.Duration(cfg.Exchange.TimeoutSec)*time.Second,
	)
	paper := exchange.NewPaperExchange(gate, zap.NewNop())
	ctx := context.Background()
	start := time.Now().Add(-time.Minute)

	// 2. Fetch Market Price
	price, err := paper.FetchPrice(ctx, sc.Symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Current Price: %f\n", price)

	// 3. Size the Entry
	qty, err := paper.RoundAmount(ctx, sc.Symbol, sc.USDPerEntry/price)
	if err != nil || qty <= 0 {
		fmt.Printf("❌ Failed to size order (qty=%f): %v\n", qty, err)
		os.Exit(1)
	}
	limitPrice, err := paper.RoundPrice(ctx, sc.Symbol, price)
	if err != nil {
		fmt.Printf("❌ Failed to round price: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Sized entry: %f @ %f (%.2f USD)\n", qty, limitPrice, qty*limitPrice)

	// --- Test BUY ---
	fmt.Println("\n--- Testing BUY ---")
	buyID := domain.NewClientOrderID("buy")
	orderID, err := paper.PlaceLimitOrder(ctx, sc.Symbol, domain.SideBuy, qty, limitPrice, buyID)
	if err != nil {
		fmt.Printf("❌ Failed to buy: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Buy Order Placed: %s (client %s)\n", orderID, buyID)

	buy, ok := waitForFill(ctx, paper, sc.Symbol, buyID, start)
	if !ok {
		fmt.Println("❌ Buy fill never showed up in order history")
		os.Exit(1)
	}
	fmt.Printf("✅ Buy Filled: %f @ %f\n", buy.FilledQty, buy.AvgFillPrice)

	// --- Test SELL ---
	fmt.Println("\n--- Testing SELL ---")
	sellID := domain.NewClientOrderID("sell")
	orderID, err = paper.PlaceMarketOrder(ctx, sc.Symbol, domain.SideSell, buy.FilledQty, sellID)
	if err != nil {
		fmt.Printf("❌ Failed to sell: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Sell Order Placed: %s (client %s)\n", orderID, sellID)

	sell, ok := waitForFill(ctx, paper, sc.Symbol, sellID, start)
	if !ok {
		fmt.Println("❌ Sell fill never showed up in order history")
		os.Exit(1)
	}
	fmt.Printf("✅ Sell Filled: %f @ %f\n", sell.FilledQty, sell.AvgFillPrice)

	pnl := (sell.AvgFillPrice - buy.AvgFillPrice) * sell.FilledQty
	fmt.Printf("\nRound trip complete. Simulated P&L: %+.4f USD\n", pnl)
}

// waitForFill polls the order history the same way the reconciler does.
func waitForFill(ctx context.Context, ex domain.Exchange, symbol, clientID string, since time.Time) (domain.OrderReport, bool) {
	for i := 0; i < 5; i++ {
		reports, err := ex.FetchRecentOrders(ctx, symbol, since, 50)
		if err != nil {
			fmt.Printf("⚠️ Failed to list orders (attempt %d): %v\n", i+1, err)
			time.Sleep(time.Second)
			continue
		}
		for _, r := range reports {
			if r.ClientID == clientID && r.Status == domain.OrderStatusFilled {
				return r, true
			}
		}
		fmt.Printf("⏳ Waiting for fill...\n")
		time.Sleep(time.Second)
	}
	return domain.OrderReport{}, false
}
