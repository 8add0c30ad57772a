package resilience

import (
	"strings"
	"time"
)

// Config tunes retry and circuit breaking for calls to the model servers
// and the chat transport.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	AttemptTimeout      time.Duration

	// Budgets override attempts and per-attempt timeout for operations whose
	// name starts with the key. The longest matching key wins.
	Budgets map[string]Budget

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

type Budget struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
}

// DefaultConfig retries embeddings and publishes but not answer generation,
// whose single call already runs under the engine's answer deadline.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 200 * time.Millisecond,
		RetryMaxBackoff:     time.Second,
		RetryMultiplier:     2.0,

		Budgets: map[string]Budget{
			"ollama_generate": {MaxAttempts: 1},
			"nats_publish":    {MaxAttempts: 3},
		},

		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// budget resolves attempts and per-attempt timeout for one operation.
func (c Config) budget(operation string) Budget {
	out := Budget{MaxAttempts: c.RetryMaxAttempts, AttemptTimeout: c.AttemptTimeout}
	matched := ""
	for prefix, b := range c.Budgets {
		if !strings.HasPrefix(operation, prefix) || len(prefix) <= len(matched) {
			continue
		}
		matched = prefix
		if b.MaxAttempts > 0 {
			out.MaxAttempts = b.MaxAttempts
		}
		if b.AttemptTimeout > 0 {
			out.AttemptTimeout = b.AttemptTimeout
		}
	}
	return out
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	out.AttemptTimeout = max(out.AttemptTimeout, 0)

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}
