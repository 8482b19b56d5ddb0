package exec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/internal/apperr"
	"github.com/web3guy0/solbotx/wallet"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SWAP VENUE CLIENT
// ═══════════════════════════════════════════════════════════════════════════════
//
// Quote → Execute against an aggregator-style venue. The bundled Client never
// routes orders: quotes are computed locally and executions are signed by the
// wallet (or given a mock signature) and reported as filled.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Venue is the execution surface used by the live trading loop
type Venue interface {
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
	Execute(ctx context.Context, q Quote) (ExecResult, error)
}

// QuoteRequest asks for a swap of Amount InputMint into OutputMint
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      decimal.Decimal
	SlippagePct decimal.Decimal // 1.0 means 1%
}

// RouteStep is one hop of a quoted route
type RouteStep struct {
	AMMKey     string          `json:"ammKey"`
	Label      string          `json:"label"`
	InputMint  string          `json:"inputMint"`
	OutputMint string          `json:"outputMint"`
	InAmount   decimal.Decimal `json:"inAmount"`
	OutAmount  decimal.Decimal `json:"outAmount"`
	FeeAmount  decimal.Decimal `json:"feeAmount"`
	FeeMint    string          `json:"feeMint"`
}

// Quote is a priced route
type Quote struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             decimal.Decimal `json:"inAmount"`
	OutAmount            decimal.Decimal `json:"outAmount"`
	OtherAmountThreshold decimal.Decimal `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int64           `json:"slippageBps"`
	PriceImpactPct       decimal.Decimal `json:"priceImpactPct"`
	RoutePlan            []RouteStep     `json:"routePlan"`
}

// Route returns the hop labels joined with " > "
func (q Quote) Route() string {
	labels := make([]string, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		labels = append(labels, step.Label)
	}
	return strings.Join(labels, " > ")
}

// ExecResult reports the outcome of an execution
type ExecResult struct {
	Signature    string
	Success      bool
	InputAmount  decimal.Decimal
	OutputAmount decimal.Decimal
	Error        string
}

var (
	outMultiplier       = decimal.NewFromFloat(1.02)
	thresholdMultiplier = decimal.NewFromFloat(1.01)
)

// Client is the mocked venue
type Client struct {
	signer wallet.Signer
	dryRun bool

	mu  sync.Mutex
	rng *rand.Rand
}

// NewClient creates a venue client. signer may be nil, in which case
// executions carry a mock signature.
func NewClient(signer wallet.Signer, dryRun bool) *Client {
	mode := "DRY RUN"
	if !dryRun {
		mode = "LIVE"
	}
	log.Info().Str("mode", mode).Msg("🚀 Venue client initialized")

	return &Client{
		signer: signer,
		dryRun: dryRun,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Quote prices a swap at a fixed 2% premium routed through a single pool
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, apperr.Wrap(apperr.KindNetwork, "quote cancelled", err)
	}
	if !req.Amount.IsPositive() {
		return Quote{}, apperr.API(fmt.Sprintf("invalid quote amount %s", req.Amount), req)
	}
	if req.InputMint == "" || req.OutputMint == "" {
		return Quote{}, apperr.API("quote requires input and output mints", req)
	}

	out := req.Amount.Mul(outMultiplier)
	q := Quote{
		InputMint:            req.InputMint,
		OutputMint:           req.OutputMint,
		InAmount:             req.Amount,
		OutAmount:            out,
		OtherAmountThreshold: req.Amount.Mul(thresholdMultiplier),
		SwapMode:             "ExactIn",
		SlippageBps:          req.SlippagePct.Mul(decimal.NewFromInt(100)).IntPart(),
		PriceImpactPct:       decimal.NewFromFloat(0.1),
		RoutePlan: []RouteStep{{
			AMMKey:     "mock_amm_key",
			Label:      "Orca",
			InputMint:  req.InputMint,
			OutputMint: req.OutputMint,
			InAmount:   req.Amount,
			OutAmount:  out,
			FeeAmount:  decimal.NewFromFloat(0.001),
			FeeMint:    req.InputMint,
		}},
	}

	log.Debug().
		Str("in", q.InAmount.String()).
		Str("out", q.OutAmount.String()).
		Str("route", q.Route()).
		Msg("Quote")

	return q, nil
}

// Execute signs the quote and reports it filled
func (c *Client) Execute(ctx context.Context, q Quote) (ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecResult{Error: err.Error()}, apperr.Wrap(apperr.KindNetwork, "execute cancelled", err)
	}

	signature, err := c.sign(q)
	if err != nil {
		return ExecResult{Error: err.Error()}, apperr.Wrap(apperr.KindTransaction, "sign swap", err)
	}

	if c.dryRun {
		log.Info().
			Str("signature", signature).
			Str("in", q.InAmount.String()).
			Str("out", q.OutAmount.String()).
			Msg("📝 DRY RUN: Swap would be sent")
	} else {
		log.Info().
			Str("signature", signature).
			Str("route", q.Route()).
			Msg("✅ Swap executed")
	}

	return ExecResult{
		Signature:    signature,
		Success:      true,
		InputAmount:  q.InAmount,
		OutputAmount: q.OutAmount,
	}, nil
}

func (c *Client) sign(q Quote) (string, error) {
	if c.signer == nil {
		return c.mockSignature(), nil
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	sig, err := c.signer.Sign(payload)
	if errors.Is(err, wallet.ErrNoKey) {
		return c.mockSignature(), nil
	}
	return sig, err
}

func (c *Client) mockSignature() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	c.mu.Lock()
	defer c.mu.Unlock()
	b := make([]byte, 13)
	for i := range b {
		b[i] = alphabet[c.rng.Intn(len(alphabet))]
	}
	return "mock_transaction_" + string(b)
}

// IsDryRun returns true if in dry run mode
func (c *Client) IsDryRun() bool {
	return c.dryRun
}
