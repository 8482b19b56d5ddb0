package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/strategy"
	"github.com/web3guy0/solbotx/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TradingPair != "SOL/USDC" || cfg.StrategyType != strategy.MultiIndicator {
		t.Errorf("strategy defaults = %s %s", cfg.TradingPair, cfg.StrategyType)
	}
	if !cfg.OrderAmount.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("amount = %s", cfg.OrderAmount)
	}
	if !cfg.TestMode || cfg.SlippageExits {
		t.Errorf("mode defaults: test=%v slip=%v", cfg.TestMode, cfg.SlippageExits)
	}
	sl := cfg.StopLoss()
	if !sl.Enabled || !sl.Percentage.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("stop loss = %+v", sl)
	}
	if cfg.TickInterval != 10*time.Second || cfg.StrategyInterval != 30*time.Second {
		t.Errorf("intervals = %s %s", cfg.TickInterval, cfg.StrategyInterval)
	}
	if cfg.VenueRetries != 3 || cfg.VenueRetryDelay != time.Second {
		t.Errorf("retry = %d %s", cfg.VenueRetries, cfg.VenueRetryDelay)
	}
	if cfg.ErrorLogCapacity != 100 {
		t.Errorf("error log capacity = %d", cfg.ErrorLogCapacity)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STRATEGY_TYPE", "mean reversion")
	t.Setenv("TRADE_ACTION", "BUY")
	t.Setenv("ORDER_AMOUNT", "1.25")
	t.Setenv("TEST_MODE", "false")
	t.Setenv("STOP_LOSS_PCT", "4")
	t.Setenv("TICK_INTERVAL", "2s")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	params := cfg.StrategyParams()
	if params.Type != strategy.MeanReversion || params.Action != types.Buy {
		t.Errorf("params = %+v", params)
	}
	if !params.Amount.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("amount = %s", params.Amount)
	}
	if cfg.TestMode {
		t.Error("TEST_MODE=false ignored")
	}
	if cfg.TickInterval != 2*time.Second {
		t.Errorf("tick = %s", cfg.TickInterval)
	}
	if cfg.TelegramChatID != -100123 {
		t.Errorf("chat = %d", cfg.TelegramChatID)
	}
	if err := params.Validate(); err != nil {
		t.Errorf("params invalid: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STOP_LOSS_PCT", "0"},
		{"STOP_LOSS_PCT", "abc"},
		{"ORDER_AMOUNT", "-1"},
		{"STRATEGY_TYPE", "Martingale"},
		{"TRADE_ACTION", "hold"},
		{"TEST_MODE", "maybe"},
		{"TICK_INTERVAL", "soon"},
		{"VENUE_RETRIES", "0"},
		{"TELEGRAM_CHAT_ID", "chat"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}
