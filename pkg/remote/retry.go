package remote

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts     = 3
	DefaultCallTimeout     = 60 * time.Second
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 8 * time.Second
)

// Policy bounds how a remote call is retried.
type Policy struct {
	MaxAttempts     int
	CallTimeout     time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is three attempts with a one minute per-call timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		CallTimeout:     DefaultCallTimeout,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.CallTimeout <= 0 {
		p.CallTimeout = d.CallTimeout
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// Do runs op with a per-attempt timeout, retrying transient failures with
// exponential backoff. Any failure is returned as *Error.
func Do[T any](ctx context.Context, op string, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	logger := zerolog.Ctx(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	attempts := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()

		out, err := fn(callCtx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() == nil && Transient(err) {
			return out, err
		}
		return out, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn().Err(err).Str("op", op).Int("attempt", attempts).Dur("retryIn", next).Msg("remote call failed, retrying")
		}),
	)
	if err != nil {
		return res, &Error{Op: op, StatusCode: StatusCode(err), Attempts: attempts, Err: err}
	}

	return res, nil
}
