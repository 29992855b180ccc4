package bookings

import (
	"context"
	"errors"
	"time"

	"calbook/internal/store"
)

// RetryPolicy bounds how read-only queries are retried after
// store.ErrUnavailable. Writes are never retried.
type RetryPolicy struct {
	Attempts      int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:      3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}
}

func retryRead[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := p.InitialDelay

	var (
		out T
		err error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out, err
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * factor)
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		out, err = fn(ctx)
		if err == nil || !errors.Is(err, store.ErrUnavailable) {
			return out, err
		}
	}
	return out, err
}
