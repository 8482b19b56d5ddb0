package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/strategy"
	"github.com/web3guy0/solbotx/types"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Strategy
	TradingPair  string
	StrategyType strategy.Type
	OrderAmount  decimal.Decimal
	TradeAction  types.Action // empty: strategy default

	// Mode
	TestMode bool
	Debug    bool

	// Stop loss
	StopLossEnabled bool
	StopLossPct     decimal.Decimal // 2.5 = 2.5%

	// Loop
	TickInterval     time.Duration
	StrategyInterval time.Duration
	SlippagePct      decimal.Decimal
	SlippageExits    bool

	// Venue
	VenueTimeout    time.Duration
	VenueRetries    int
	VenueRetryDelay time.Duration

	// Safety
	ErrorLogCapacity     int
	CircuitMaxStopLosses int // 0 disables the breaker
	CircuitCooldown      time.Duration

	// Wallet
	WalletPrivateKey string
	WalletAddress    string
	SolanaRPCURL     string

	// Database
	DatabasePath string

	// Event stream, empty disables it
	StreamAddr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	p := &envParser{}

	cfg := &Config{
		// Telegram
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		// Strategy
		TradingPair: p.getEnv("TRADING_PAIR", "SOL/USDC"),
		OrderAmount: p.getEnvDecimal("ORDER_AMOUNT", decimal.NewFromFloat(0.5)),

		// Mode
		TestMode: p.getEnvBool("TEST_MODE", true),
		Debug:    p.getEnvBool("DEBUG", false),

		// Stop loss
		StopLossEnabled: p.getEnvBool("STOP_LOSS_ENABLED", true),
		StopLossPct:     p.getEnvDecimal("STOP_LOSS_PCT", decimal.NewFromFloat(2.5)),

		// Loop
		TickInterval:     p.getEnvDuration("TICK_INTERVAL", 10*time.Second),
		StrategyInterval: p.getEnvDuration("STRATEGY_INTERVAL", 30*time.Second),
		SlippagePct:      p.getEnvDecimal("SLIPPAGE_PCT", decimal.NewFromInt(1)),
		SlippageExits:    p.getEnvBool("SLIPPAGE_EXITS", false),

		// Venue
		VenueTimeout:    p.getEnvDuration("VENUE_TIMEOUT", 15*time.Second),
		VenueRetries:    p.getEnvInt("VENUE_RETRIES", 3),
		VenueRetryDelay: p.getEnvDuration("VENUE_RETRY_DELAY", time.Second),

		// Safety
		ErrorLogCapacity:     p.getEnvInt("ERROR_LOG_CAPACITY", 100),
		CircuitMaxStopLosses: p.getEnvInt("CIRCUIT_MAX_STOP_LOSSES", 0),
		CircuitCooldown:      p.getEnvDuration("CIRCUIT_COOLDOWN", 30*time.Minute),

		// Wallet
		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		WalletAddress:    os.Getenv("WALLET_ADDRESS"),
		SolanaRPCURL:     p.getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),

		// Database
		DatabasePath: p.getEnv("DATABASE_PATH", "data/solbotx.db"),

		StreamAddr: os.Getenv("STREAM_ADDR"),
	}

	if st, err := strategy.ParseType(p.getEnv("STRATEGY_TYPE", string(strategy.MultiIndicator))); err != nil {
		p.fail("STRATEGY_TYPE", err)
	} else {
		cfg.StrategyType = st
	}

	if action := os.Getenv("TRADE_ACTION"); action != "" {
		a, err := types.ParseAction(action)
		if err != nil {
			p.fail("TRADE_ACTION", err)
		}
		cfg.TradeAction = a
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			p.fail("TELEGRAM_CHAT_ID", err)
		}
		cfg.TelegramChatID = id
	}

	if err := cfg.StopLoss().Validate(); err != nil {
		p.fail("STOP_LOSS_PCT", err)
	}
	if !cfg.OrderAmount.IsPositive() {
		p.fail("ORDER_AMOUNT", fmt.Errorf("must be positive, got %s", cfg.OrderAmount))
	}
	if cfg.TickInterval <= 0 || cfg.StrategyInterval <= 0 {
		p.fail("TICK_INTERVAL", errors.New("intervals must be positive"))
	}
	if cfg.VenueRetries < 1 {
		p.fail("VENUE_RETRIES", fmt.Errorf("must be at least 1, got %d", cfg.VenueRetries))
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// StopLoss returns the configured stop-loss policy
func (c *Config) StopLoss() types.StopLossConfig {
	return types.StopLossConfig{
		Enabled:    c.StopLossEnabled,
		Percentage: c.StopLossPct,
	}
}

// StrategyParams returns the run parameters with the default indicator set
func (c *Config) StrategyParams() strategy.Params {
	params := strategy.DefaultParams()
	params.Type = c.StrategyType
	params.Pair = c.TradingPair
	params.Amount = c.OrderAmount
	params.Action = c.TradeAction
	return params
}

// Helper functions

type envParser struct {
	errs []error
}

func (p *envParser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p *envParser) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (p *envParser) getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	p.fail(key, fmt.Errorf("not a boolean: %q", value))
	return defaultValue
}

func (p *envParser) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return i
}

func (p *envParser) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return d
}

func (p *envParser) getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return d
}
