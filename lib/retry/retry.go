// Package retry adapts non-blocking pool acquisition to callers that cannot
// suspend on the pool's gate, polling under an exponential backoff schedule.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/coachpo/respool/errs"
)

const (
	defaultInitialInterval = 5 * time.Millisecond
	defaultMaxInterval     = 250 * time.Millisecond
)

// TryAcquirer is the non-blocking acquisition surface of a pool.
type TryAcquirer[T any] interface {
	TryAcquire() (T, error)
}

// Acquire polls src.TryAcquire until it yields a token, the pool closes, the
// context ends, or maxElapsed passes. A closed pool propagates immediately; an
// exhausted schedule reports a timeout-coded error.
func Acquire[T any](ctx context.Context, src TryAcquirer[T], maxElapsed time.Duration) (T, error) {
	var zero T
	if src == nil {
		return zero, errs.New("lib/retry", errs.CodeInvalid, errs.WithMessage("acquirer must not be nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = defaultInitialInterval
	backoffCfg.MaxInterval = defaultMaxInterval
	backoffCfg.Reset()

	deadline := time.Now().Add(maxElapsed)
	for {
		tok, err := src.TryAcquire()
		if err == nil {
			return tok, nil
		}
		if errs.CodeOf(err) == errs.CodeClosed {
			return zero, err
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop || !time.Now().Add(sleep).Before(deadline) {
			return zero, errs.New("lib/retry", errs.CodeTimeout,
				errs.WithMessage("no resource freed within retry budget"),
				errs.WithCause(err))
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
