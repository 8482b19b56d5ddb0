package types

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"buy", Buy, false},
		{"BUY", Buy, false},
		{" Sell ", Sell, false},
		{"hold", "", true},
		{"", "", true},
		{"long", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAction) {
				t.Errorf("ParseAction(%q) err = %v, want ErrInvalidAction", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseAction(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestOpposite(t *testing.T) {
	if Buy.Opposite() != Sell || Sell.Opposite() != Buy {
		t.Error("Opposite must swap buy and sell")
	}
}

func TestNewPositionValidation(t *testing.T) {
	one := decimal.NewFromInt(1)
	now := time.Now()

	if _, err := NewPosition("p", "SOL/USDC", Buy, one, one, now); err != nil {
		t.Fatalf("valid position rejected: %v", err)
	}

	cases := map[string]func() error{
		"empty id": func() error {
			_, err := NewPosition("", "SOL/USDC", Buy, one, one, now)
			return err
		},
		"empty pair": func() error {
			_, err := NewPosition("p", "", Buy, one, one, now)
			return err
		},
		"bad action": func() error {
			_, err := NewPosition("p", "SOL/USDC", Action("hold"), one, one, now)
			return err
		},
		"zero entry": func() error {
			_, err := NewPosition("p", "SOL/USDC", Sell, decimal.Zero, one, now)
			return err
		},
		"negative amount": func() error {
			_, err := NewPosition("p", "SOL/USDC", Sell, one, one.Neg(), now)
			return err
		},
	}

	for name, fn := range cases {
		if err := fn(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestStopLossConfigValidate(t *testing.T) {
	def := DefaultStopLossConfig()
	if !def.Enabled || !def.Percentage.Equal(decimal.NewFromFloat(2.5)) {
		t.Fatalf("default config = %+v", def)
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	for _, pct := range []string{"0", "-1", "100", "250"} {
		c := StopLossConfig{Enabled: true, Percentage: decimal.RequireFromString(pct)}
		if err := c.Validate(); err == nil {
			t.Errorf("percentage %s accepted", pct)
		}
	}
}
