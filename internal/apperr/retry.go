package apperr

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// Retry calls fn up to attempts times, sleeping delay*(attempt+1) between
// failures. It returns the last error, or ctx.Err() if the context ends first.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		wait := delay * time.Duration(attempt+1)
		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("Retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}

	return zero, lastErr
}
