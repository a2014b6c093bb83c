package scheduler

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tailored-agentic-units/orchestrator/task"
)

// ComputeRetryDelay computes the delay before the given attempt (1
// indexed, per §4.8: "exponential: base * 2^(attempt-1), capped at
// max; jitter: uniform in [0.5, 1.5] multiplier"). Fixed and linear are
// computed directly; exponential delegates the doubling arithmetic to
// backoff.ExponentialBackOff, whose RandomizationFactor, set to 0.5,
// reproduces the spec's uniform [0.5, 1.5] jitter multiplier exactly
// (the library defines its random band as
// [interval*(1-factor), interval*(1+factor)]).
func ComputeRetryDelay(cfg task.RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	switch cfg.Strategy {
	case task.BackoffLinear:
		d := cfg.BaseDelay * time.Duration(attempt)
		return capDelay(d, cfg.MaxDelay)
	case task.BackoffExponential:
		return exponentialDelay(cfg, attempt)
	default: // task.BackoffFixed and unset
		return capDelay(cfg.BaseDelay, cfg.MaxDelay)
	}
}

func exponentialDelay(cfg task.RetryConfig, attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.Multiplier = 2
	b.MaxInterval = cfg.MaxDelay
	b.MaxElapsedTime = 0 // disable the elapsed-time cutoff; only MaxInterval bounds us

	if cfg.Jitter {
		b.RandomizationFactor = 0.5
	} else {
		b.RandomizationFactor = 0
	}
	b.Reset()

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return capDelay(d, cfg.MaxDelay)
}

func capDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}
