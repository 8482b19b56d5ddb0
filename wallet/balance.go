package wallet

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/internal/apperr"
)

// DefaultRPCURL is the public mainnet JSON-RPC endpoint
const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

// lamportsPerSOL converts the raw getBalance value
var lamportsPerSOL = decimal.NewFromInt(1_000_000_000)

// rpcCaller is the subset of *rpc.Client used here
type rpcCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// BalanceClient reads the native balance over JSON-RPC
type BalanceClient struct {
	rpc        rpcCaller
	attempts   int
	retryDelay time.Duration
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

// DialBalanceClient connects to a JSON-RPC endpoint
func DialBalanceClient(ctx context.Context, url string, attempts int, retryDelay time.Duration) (*BalanceClient, error) {
	if url == "" {
		url = DefaultRPCURL
	}
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "dial rpc "+url, err)
	}
	return newBalanceClient(c, attempts, retryDelay), nil
}

func newBalanceClient(c rpcCaller, attempts int, retryDelay time.Duration) *BalanceClient {
	return &BalanceClient{rpc: c, attempts: attempts, retryDelay: retryDelay}
}

// Balance returns the balance of address in SOL
func (b *BalanceClient) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	res, err := apperr.Retry(ctx, b.attempts, b.retryDelay, func(ctx context.Context) (balanceResult, error) {
		var out balanceResult
		err := b.rpc.CallContext(ctx, &out, "getBalance", address)
		return out, err
	})
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.KindNetwork, "fetch balance", err)
	}

	sol := decimal.NewFromInt(int64(res.Value)).Div(lamportsPerSOL)
	log.Debug().Str("address", address).Str("balance", sol.StringFixed(4)).Msg("Balance fetched")
	return sol, nil
}
