package exec

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/solbotx/internal/apperr"
)

// Guard bounds venue calls: quotes are retried, and the whole swap runs under
// a single timeout. Any failure comes back as Success=false; Swap never
// returns an error so the caller's tick keeps going.
type Guard struct {
	venue      Venue
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
}

// NewGuard wraps venue
func NewGuard(venue Venue, timeout time.Duration, attempts int, retryDelay time.Duration) *Guard {
	return &Guard{
		venue:      venue,
		timeout:    timeout,
		attempts:   attempts,
		retryDelay: retryDelay,
	}
}

// Swap quotes and executes req, returning the quote used (if any) and the result
func (g *Guard) Swap(ctx context.Context, req QuoteRequest) (Quote, ExecResult) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	q, err := apperr.Retry(ctx, g.attempts, g.retryDelay, func(ctx context.Context) (Quote, error) {
		return g.venue.Quote(ctx, req)
	})
	if err != nil {
		return Quote{}, failed("quote", err)
	}

	res, err := g.venue.Execute(ctx, q)
	if err != nil {
		return q, failed("execute", err)
	}
	if ctx.Err() != nil {
		return q, failed("execute", ctx.Err())
	}
	return q, res
}

func failed(stage string, err error) ExecResult {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = stage + " timed out"
	}
	log.Warn().Err(err).Str("stage", stage).Msg("Venue call failed")
	return ExecResult{Success: false, Error: msg}
}
