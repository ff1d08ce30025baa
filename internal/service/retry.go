package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloo-solutions/videochat/internal/domain"
)

// RetryPolicy bounds how often and how long an external service call is tried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Timeout applies to each attempt separately.
	Timeout time.Duration
}

// DefaultRetryPolicy returns 3 attempts with exponential backoff from 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
		Timeout:         30 * time.Second,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// retry runs op until it succeeds, the attempts run out or ctx is done.
// Exhausted attempts are reported as a DomainError with the given code whose
// cause is the last failure; an attempt that hit its own deadline is recorded
// as SERVICE_TIMEOUT, as is the expiry of ctx's own deadline. Rejected
// requests are not retried. Cancellation of ctx is returned as is.
func retry[T any](ctx context.Context, p RetryPolicy, code string, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalize()
	attempts := 0

	attempt := func() (T, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		res, err := op(attemptCtx)
		if err == nil {
			return res, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, backoff.Permanent(ctxErr)
		}
		if errors.Is(err, domain.ErrServiceRejected) {
			return res, backoff.Permanent(err)
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			err = domain.NewDomainErrorWithCause(domain.ErrCodeServiceTimeout,
				fmt.Sprintf("no response within %s", p.Timeout), err)
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		log.Printf("retry: %s attempt %d/%d failed, retrying in %s: %v", code, attempts, p.MaxAttempts, wait, err)
	}

	res, err := backoff.RetryNotifyWithData(attempt, p.backOff(ctx), notify)
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, domain.NewDomainErrorWithCause(code, "deadline exceeded",
				domain.NewDomainErrorWithCause(domain.ErrCodeServiceTimeout, "caller deadline exceeded", ctxErr))
		}
		return res, ctxErr
	}
	if errors.Is(err, domain.ErrServiceRejected) {
		return res, domain.NewDomainErrorWithCause(code, "request rejected", err)
	}
	return res, domain.NewDomainErrorWithCause(code, fmt.Sprintf("failed after %d attempts", attempts), err)
}
