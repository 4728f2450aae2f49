package resilience

import "time"

// FromConfig builds a Policy from config values, keeping defaults for any
// value that is not positive.
func FromConfig(maxAttempts, initialDelayMs, maxDelayMs int, factor, jitterFraction float64) Policy {
	p := DefaultPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if initialDelayMs > 0 {
		p.InitialDelay = time.Duration(initialDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		p.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond
	}
	if factor > 0 {
		p.Factor = factor
	}
	if jitterFraction > 0 {
		p.JitterFraction = jitterFraction
	}
	return p
}
