// Package backoff computes reconnect delays for the connection manager.
package backoff

import (
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

const (
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 5
)

// Policy is a bounded, jitter-free exponential backoff:
// delay(n) = min(BaseDelay * 2^(n-1), MaxDelay) for the n-th failed attempt.
type Policy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Default returns the policy with a 2s base, 30s cap and 5 attempts.
func Default() Policy {
	return Policy{
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// WithDefaults fills zero fields from Default.
func (p Policy) WithDefaults() Policy {
	d := Default()
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	return p
}

// Delay returns the wait before retrying after the n-th consecutive failure
// (1-indexed). Values of n below 1 are treated as 1.
func (p Policy) Delay(n int) time.Duration {
	p = p.WithDefaults()
	if n < 1 {
		n = 1
	}
	b := p.exponential()
	var d time.Duration
	for i := 0; i < n; i++ {
		d = b.NextBackOff()
	}
	return d
}

// ShouldRetry reports whether another attempt is scheduled after `failed`
// consecutive failures.
func (p Policy) ShouldRetry(failed int) bool {
	return failed < p.WithDefaults().MaxAttempts
}

// Schedule lists the delays for every retry the policy permits.
func (p Policy) Schedule() []time.Duration {
	p = p.WithDefaults()
	out := make([]time.Duration, 0, p.MaxAttempts)
	b := p.exponential()
	for i := 0; i < p.MaxAttempts; i++ {
		out = append(out, b.NextBackOff())
	}
	return out
}

func (p Policy) exponential() *cbackoff.ExponentialBackOff {
	b := cbackoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
