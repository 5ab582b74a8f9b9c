package gateway

import (
	"math"
	"time"
)

// RetryPolicy controls the capped exponential backoff between attempts.
// Unset (zero) fields fall back to the defaults; the merged numbers are not
// otherwise validated, degenerate values only produce degenerate timing.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the pause after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the growing pause.
	MaxDelay time.Duration
	// Multiplier scales the pause after each failed attempt.
	Multiplier float64
}

// DefaultRetryPolicy returns the policy used when the caller supplies none:
// 3 attempts, 200ms base delay doubling up to 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2,
	}
}

// withDefaults merges p over the defaults field by field.
func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts > 0 {
		def.MaxAttempts = p.MaxAttempts
	}
	if p.BaseDelay > 0 {
		def.BaseDelay = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		def.MaxDelay = p.MaxDelay
	}
	if p.Multiplier > 0 {
		def.Multiplier = p.Multiplier
	}
	return def
}

// delay returns the pause inserted after failed attempt n (1-indexed):
// min(BaseDelay x Multiplier^(n-1), MaxDelay). The server's own pacing hints
// (Retry-After and the like) are ignored; the delay depends only on the
// attempt number.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
