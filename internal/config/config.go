package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Signal modes for the entry evaluation.
const (
	SignalModeRSI     = "rsi"
	SignalModeRSIMACD = "rsi_macd"
)

// Config is the full application configuration. Load reads it from yaml
// and applies environment overrides for the secret fields.
type Config struct {
	Exchange struct {
		Name         string `yaml:"name"`
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
		APIKey       string `yaml:"api_key"`
		APISecret    string `yaml:"api_secret"`
		TimeoutSec   int    `yaml:"timeout_sec"`
	} `yaml:"exchange"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"` // optional rotating log file
	} `yaml:"logging"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Trading TradingConfig `yaml:"trading"`
}

// TradingConfig holds the global loop parameters shared by all symbols.
type TradingConfig struct {
	DryRun               bool           `yaml:"dry_run"`
	QuoteCurrency        string         `yaml:"quote_currency"`
	PollSeconds          int            `yaml:"poll_seconds"`
	LookbackCandles      int            `yaml:"lookback_candles"`
	RSIPeriod            int            `yaml:"rsi_period"`
	AutoRearm            bool           `yaml:"auto_rearm"`
	DailySummaryHour     int            `yaml:"daily_summary_hour"`
	Timezone             string         `yaml:"timezone"`
	ReconcileWindowHours int            `yaml:"reconcile_window_hours"`
	OrderMaxAgeHours     int            `yaml:"order_max_age_hours"`
	Symbols              []SymbolConfig `yaml:"symbols"`
}

// SymbolConfig is the per-pair strategy surface.
type SymbolConfig struct {
	Symbol          string    `yaml:"symbol"`
	Timeframe       string    `yaml:"timeframe"`
	SignalMode      string    `yaml:"signal_mode"`
	EntryRSILt      float64   `yaml:"entry_rsi_lt"`
	USDPerEntry     float64   `yaml:"usd_per_entry"`
	DCASteps        int       `yaml:"dca_steps"`
	DCAStepPct      float64   `yaml:"dca_step_pct"`
	MaxPositionUSD  float64   `yaml:"max_position_usd"`
	TakeProfits     []float64 `yaml:"take_profits"`
	TPAllocation    []float64 `yaml:"tp_allocation"`
	StopLossEnabled bool      `yaml:"stop_loss_enabled"`
	StopCloseBelow  float64   `yaml:"stop_close_below"`
	MinNotionalUSD  float64   `yaml:"min_notional_usd"`
	StrictSizing    bool      `yaml:"strict_sizing"`
}

// Load reads, defaults, overrides and validates the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange.Name == "" {
		c.Exchange.Name = "gateio"
	}
	if c.Exchange.RESTEndpoint == "" {
		c.Exchange.RESTEndpoint = "https://api.gateio.ws"
	}
	if c.Exchange.WSEndpoint == "" {
		c.Exchange.WSEndpoint = "wss://api.gateio.ws/ws/v4/"
	}
	if c.Exchange.TimeoutSec == 0 {
		c.Exchange.TimeoutSec = 20
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "bot.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Trading.QuoteCurrency == "" {
		c.Trading.QuoteCurrency = "USDT"
	}
	if c.Trading.PollSeconds == 0 {
		c.Trading.PollSeconds = 45
	}
	if c.Trading.LookbackCandles == 0 {
		c.Trading.LookbackCandles = 200
	}
	if c.Trading.RSIPeriod == 0 {
		c.Trading.RSIPeriod = 14
	}
	if c.Trading.DailySummaryHour == 0 {
		c.Trading.DailySummaryHour = 21
	}
	if c.Trading.Timezone == "" {
		c.Trading.Timezone = "UTC"
	}
	if c.Trading.ReconcileWindowHours == 0 {
		c.Trading.ReconcileWindowHours = 24
	}
	if c.Trading.OrderMaxAgeHours == 0 {
		c.Trading.OrderMaxAgeHours = 48
	}
	for i := range c.Trading.Symbols {
		s := &c.Trading.Symbols[i]
		if s.Timeframe == "" {
			s.Timeframe = "15m"
		}
		if s.SignalMode == "" {
			s.SignalMode = SignalModeRSIMACD
		}
		if s.EntryRSILt == 0 {
			s.EntryRSILt = 35
		}
		if s.DCASteps == 0 {
			s.DCASteps = 3
		}
	}
}

// overrideWithEnv replaces secrets from the environment when present, so
// credentials can stay out of the config file.
func (c *Config) overrideWithEnv() {
	if v := os.Getenv("GATEIO_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("GATEIO_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
}

// Validate checks configuration validity. Violations are fatal at
// startup; the trading loop never starts on a bad config.
func (c *Config) Validate() error {
	if !c.Trading.DryRun && (c.Exchange.APIKey == "" || c.Exchange.APISecret == "") {
		return fmt.Errorf("live mode requires exchange api_key and api_secret")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("at least one trading symbol is required")
	}
	if c.Trading.DailySummaryHour < 0 || c.Trading.DailySummaryHour > 23 {
		return fmt.Errorf("daily_summary_hour must be within 0..23, got %d", c.Trading.DailySummaryHour)
	}
	if _, err := time.LoadLocation(c.Trading.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Trading.Timezone, err)
	}

	for _, s := range c.Trading.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("symbol name is required")
		}
		if s.SignalMode != SignalModeRSI && s.SignalMode != SignalModeRSIMACD {
			return fmt.Errorf("%s: unknown signal_mode %q", s.Symbol, s.SignalMode)
		}
		if s.USDPerEntry <= 0 {
			return fmt.Errorf("%s: usd_per_entry must be positive", s.Symbol)
		}
		if s.MaxPositionUSD <= 0 {
			return fmt.Errorf("%s: max_position_usd must be positive", s.Symbol)
		}
		if s.DCASteps < 1 {
			return fmt.Errorf("%s: dca_steps must be at least 1", s.Symbol)
		}
		if s.DCAStepPct < 0 {
			return fmt.Errorf("%s: dca_step_pct must not be negative", s.Symbol)
		}
		if len(s.TakeProfits) != len(s.TPAllocation) {
			return fmt.Errorf("%s: take_profits and tp_allocation must have the same length", s.Symbol)
		}
		for _, a := range s.TPAllocation {
			if a <= 0 || a > 1 {
				return fmt.Errorf("%s: tp_allocation entries must be within (0,1]", s.Symbol)
			}
		}
		if s.StopLossEnabled && s.StopCloseBelow <= 0 {
			return fmt.Errorf("%s: stop_loss_enabled requires a positive stop_close_below", s.Symbol)
		}
	}
	return nil
}

// Location resolves the configured timezone. Validate has already
// checked it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Trading.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
