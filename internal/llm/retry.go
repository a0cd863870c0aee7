package llm

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig defines the retry budget for turn generation. The values are
// empirically chosen defaults, not invariants; callers may override any of
// them through configuration.
type RetryConfig struct {
	// MaxRetries is the number of retry attempts after the first failure.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// Multiplier grows the delay after each retry.
	Multiplier float64
	// JitterFactor adds randomness to delays (0.0-1.0).
	JitterFactor float64
}

// DefaultRetryConfig returns the turn-generation retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// Backoff calculates the delay before the given retry attempt (1-based),
// exponential with jitter.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.InitialDelay
	}
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return addJitter(time.Duration(delay), c.JitterFactor)
}

// addJitter adds randomness to a duration. math/rand is fine here - jitter
// does not require cryptographic randomness.
func addJitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	jitterRange := float64(d) * factor
	jitter := (rand.Float64() - 0.5) * 2 * jitterRange // #nosec G404
	result := time.Duration(float64(d) + jitter)
	if result < 0 {
		result = 0
	}
	return result
}
