package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/config"
	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/exchange"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/logger"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/notifier"
	"github.com/akraev/crypto_dca_bot/internal/infrastructure/storage"
	"github.com/akraev/crypto_dca_bot/internal/usecase"
	"github.com/akraev/crypto_dca_bot/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "dca-bot",
	Short:         "Automated spot DCA trading bot for Gate.io",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cfgFile)
	},
}

func main() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "config/config.yaml", "path to the yaml configuration")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	// 1. Load Config
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Error("Failed to init sqlite", zap.Error(err))
		return err
	}
	defer store.Close()

	// 4. Init Exchange
	gate := exchange.NewGateAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		time.Duration(cfg.Exchange.TimeoutSec)*time.Second,
	)
	var ex domain.Exchange = gate
	mode := "live"
	if cfg.Trading.DryRun {
		// Paper wrapper: real market data, simulated fills.
		ex = exchange.NewPaperExchange(gate, log)
		mode = "paper"
	}
	log.Info("Exchange ready", zap.String("name", cfg.Exchange.Name), zap.String("mode", mode))

	// 5. Init Notifier
	tg := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)

	// 6. Init Services
	market := usecase.NewMarketService(ex, log, cfg.Trading.RSIPeriod, cfg.Trading.LookbackCandles)
	reconciler := usecase.NewFillReconciler(ex, store, store, tg, log,
		time.Duration(cfg.Trading.ReconcileWindowHours)*time.Hour,
		time.Duration(cfg.Trading.OrderMaxAgeHours)*time.Hour)
	planner := usecase.NewOrderPlanner(ex, store, tg, log, mode, cfg.Trading.AutoRearm)
	pnl := usecase.NewPnLService(store, tg, log, cfg.Location(), cfg.Trading.DailySummaryHour)
	stats := usecase.NewLedgerStatsService(store, log)
	bot := usecase.NewBotService(cfg.Trading, ex, market, store, reconciler, planner, pnl, tg, log)

	// 7. Start Bot Loop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	// 8. Start Web Server
	server := web.NewServer(cfg.Server.Port, bot, pnl, stats, store, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	tg.Notify(shutdownCtx, "🛑 DCA bot stopped")
	return server.Shutdown(shutdownCtx)
}
