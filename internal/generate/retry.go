package generate

import (
	"context"
	"time"
)

// Defaults for Retry.
const (
	DefaultAttempts  = 2
	DefaultBaseDelay = 500 * time.Millisecond
	DefaultTimeout   = 60 * time.Second
)

// RetryPolicy bounds how long one Generate call may take.
type RetryPolicy struct {
	Attempts  int           // total tries, at least 1
	BaseDelay time.Duration // wait before the second try, doubled after that
	Timeout   time.Duration // deadline per attempt
}

// DefaultRetryPolicy is what the CLI uses unless configured otherwise.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay, Timeout: DefaultTimeout}
}

// WithRetry wraps next so each attempt runs under its own deadline and
// transient failures are retried with exponential backoff. Permanent
// errors and a done parent context stop immediately.
func WithRetry(next Generator, p RetryPolicy) Generator {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return &retrying{next: next, policy: p}
}

type retrying struct {
	next   Generator
	policy RetryPolicy
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.policy.Attempts; i++ {
		text, err := r.attempt(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if IsPermanent(err) {
			return "", err
		}
		last = err
		if i == r.policy.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.policy.BaseDelay * time.Duration(1<<i)):
		}
	}
	return "", last
}

func (r *retrying) attempt(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	return r.next.Generate(ctx, prompt)
}
