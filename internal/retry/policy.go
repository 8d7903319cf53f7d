// Package retry computes backoff delays for transient filesystem
// failures during the output swap.
package retry

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/homeshow/internal/config"
)

// Policy describes how often and how long to back off between retry
// attempts. Immutable after construction.
type Policy struct {
	// Mode selects the growth curve: fixed, linear, or exponential.
	Mode config.RetryBackoffMode
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay regardless of growth.
	Max time.Duration
	// MaxRetries bounds attempts after the first failure.
	MaxRetries int
}

// DefaultPolicy is linear growth from 1s, capped at 30s, two retries.
func DefaultPolicy() Policy {
	return Policy{
		Mode:       config.RetryBackoffLinear,
		Initial:    time.Second,
		Max:        30 * time.Second,
		MaxRetries: 2,
	}
}

// NewPolicy builds a policy from raw values. Zero or invalid inputs
// fall back to the corresponding default, and Initial is clamped to
// Max so a policy never backs off past its own cap.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds a policy from the application retry configuration.
// Unparsable duration strings resolve to the defaults via NewPolicy.
func FromConfig(cfg config.RetryConfig) Policy {
	initial, _ := time.ParseDuration(cfg.InitialDelay)
	maxDelay, _ := time.ParseDuration(cfg.MaxDelay)
	return NewPolicy(cfg.Backoff, initial, maxDelay, cfg.MaxRetries)
}

// Delay returns the backoff before the given retry (1-based). A
// non-positive attempt number yields no delay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffExponential:
		d = p.Initial << (attempt - 1)
	default:
		d = time.Duration(attempt) * p.Initial
	}
	if d > p.Max || d <= 0 { // shift overflow counts as past the cap
		return p.Max
	}
	return d
}

// Validate reports whether the policy can be applied at all.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial delay must be positive")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max delay must be positive")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}
