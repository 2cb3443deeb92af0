package governor

import (
	"context"
	"time"
)

// Outcome is the closed set of ways a gated fetch can conclude. Observe
// notifies both the delay and circuit governors from a single call so
// they can never drift out of sync with each other.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeRateLimited      Outcome = "rate_limited"
	OutcomeClientError      Outcome = "client_error"
	OutcomeServerError      Outcome = "server_error"
	OutcomeTransportFailure Outcome = "transport_failure"
)

// Governor combines the per-domain AdaptiveDelay and CircuitBreaker behind
// a single admit/observe pair, so a caller can never update one without
// the other.
type Governor struct {
	Delay   *AdaptiveDelay
	Circuit *CircuitBreaker
}

// New builds a Governor from the configured delay bounds and circuit
// parameters.
func New(minDelay, maxDelay time.Duration, circuitThreshold int, circuitCooldown time.Duration) *Governor {
	return &Governor{
		Delay:   NewAdaptiveDelay(minDelay, maxDelay),
		Circuit: NewCircuitBreaker(circuitThreshold, circuitCooldown),
	}
}

// Admit reports whether a request to domain may proceed, blocking on the
// adaptive delay if so. It returns false immediately if the circuit is
// open, and false if the wait was cancelled via ctx.
func (g *Governor) Admit(ctx context.Context, domain string) bool {
	if g.Circuit.IsOpen(domain) {
		return false
	}
	return g.Delay.Wait(ctx, domain) == nil
}

// Observe couples the delay and circuit notifications for a single fetch
// outcome, per the design note warning against updating only one of them.
func (g *Governor) Observe(domain string, outcome Outcome, status int) {
	switch outcome {
	case OutcomeSuccess:
		g.Delay.ReportSuccess(domain)
		g.Circuit.RecordSuccess(domain)
	case OutcomeRateLimited:
		g.Delay.ReportError(domain, status)
		g.Circuit.RecordFailure(domain)
	default:
		g.Delay.ReportError(domain, 0)
		g.Circuit.RecordFailure(domain)
	}
}
