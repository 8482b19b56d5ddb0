package exec

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/internal/apperr"
	"github.com/web3guy0/solbotx/wallet"
)

func quoteRequest(amount string) QuoteRequest {
	return QuoteRequest{
		InputMint:   "So11111111111111111111111111111111111111112",
		OutputMint:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Amount:      decimal.RequireFromString(amount),
		SlippagePct: decimal.NewFromInt(1),
	}
}

func TestQuotePricing(t *testing.T) {
	c := NewClient(nil, true)
	q, err := c.Quote(context.Background(), quoteRequest("10"))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.OutAmount.Equal(decimal.RequireFromString("10.2")) {
		t.Errorf("out = %s, want 10.2", q.OutAmount)
	}
	if !q.OtherAmountThreshold.Equal(decimal.RequireFromString("10.1")) {
		t.Errorf("threshold = %s, want 10.1", q.OtherAmountThreshold)
	}
	if q.SlippageBps != 100 {
		t.Errorf("slippage bps = %d, want 100", q.SlippageBps)
	}
	if q.Route() != "Orca" {
		t.Errorf("route = %q", q.Route())
	}
}

func TestQuoteRejectsBadRequest(t *testing.T) {
	c := NewClient(nil, true)
	_, err := c.Quote(context.Background(), quoteRequest("0"))
	if apperr.Classify(err) != apperr.KindAPI {
		t.Fatalf("err = %v, want API error", err)
	}
}

func TestExecuteMockSignature(t *testing.T) {
	c := NewClient(nil, true)
	q, _ := c.Quote(context.Background(), quoteRequest("1"))
	res, err := c.Execute(context.Background(), q)
	if err != nil || !res.Success {
		t.Fatalf("Execute = %+v, %v", res, err)
	}
	if !strings.HasPrefix(res.Signature, "mock_transaction_") {
		t.Errorf("signature = %q", res.Signature)
	}
}

func TestExecuteSignsWithWallet(t *testing.T) {
	pk, _ := crypto.GenerateKey()
	w, err := wallet.NewKeyWallet(hexutil.Encode(crypto.FromECDSA(pk)), "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	c := NewClient(w, false)
	q, _ := c.Quote(context.Background(), quoteRequest("2"))
	res, err := c.Execute(context.Background(), q)
	if err != nil || !res.Success {
		t.Fatalf("Execute = %+v, %v", res, err)
	}
	if !strings.HasPrefix(res.Signature, "0x") {
		t.Errorf("expected hex signature, got %q", res.Signature)
	}
}

type slowVenue struct {
	client     *Client
	delay      time.Duration
	quoteFails int
	quotes     int
}

func (s *slowVenue) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	s.quotes++
	if s.quotes <= s.quoteFails {
		return Quote{}, errors.New("503")
	}
	return s.client.Quote(ctx, req)
}

func (s *slowVenue) Execute(ctx context.Context, q Quote) (ExecResult, error) {
	select {
	case <-time.After(s.delay):
		return s.client.Execute(ctx, q)
	case <-ctx.Done():
		return ExecResult{}, ctx.Err()
	}
}

func TestGuardRetriesQuotes(t *testing.T) {
	v := &slowVenue{client: NewClient(nil, true), quoteFails: 2}
	g := NewGuard(v, time.Second, 3, time.Millisecond)

	_, res := g.Swap(context.Background(), quoteRequest("1"))
	if !res.Success {
		t.Fatalf("swap failed: %s", res.Error)
	}
	if v.quotes != 3 {
		t.Errorf("quotes = %d, want 3", v.quotes)
	}
}

func TestGuardTimeoutIsFailure(t *testing.T) {
	v := &slowVenue{client: NewClient(nil, true), delay: time.Second}
	g := NewGuard(v, 20*time.Millisecond, 1, time.Millisecond)

	_, res := g.Swap(context.Background(), quoteRequest("1"))
	if res.Success {
		t.Fatal("timed out swap reported success")
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("error = %q", res.Error)
	}
}
