package messaging

import (
	"context"
	"time"

	"github.com/macrosim/fincore/pkg/circuit"
)

// Sink is any publisher the guard can wrap; *Client satisfies it.
type Sink interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// GuardedSink wraps a sink in a circuit breaker. When the broker is down
// the breaker opens and publishes fail fast, so audit publication can stay
// on the settlement path without ever stalling it.
type GuardedSink struct {
	sink    Sink
	breaker *circuit.Breaker
}

// NewGuardedSink wraps the sink with default breaker tuning: five
// consecutive failures open the circuit for ten seconds.
func NewGuardedSink(sink Sink) *GuardedSink {
	return &GuardedSink{
		sink: sink,
		breaker: circuit.NewBreaker(circuit.Config{
			Name:        "audit-bus",
			MaxFailures: 5,
			Timeout:     10 * time.Second,
		}),
	}
}

// Publish publishes through the breaker.
func (g *GuardedSink) Publish(ctx context.Context, subject string, data interface{}) error {
	return g.breaker.Execute(ctx, func() error {
		return g.sink.Publish(ctx, subject, data)
	})
}

// State exposes the breaker state for health reporting.
func (g *GuardedSink) State() circuit.State {
	return g.breaker.State()
}
