package notify

import (
	"context"
	"time"

	"github.com/ManuGH/camwatch/internal/resilience"
)

// Guarded stops calling a sink that keeps failing. While the breaker is open
// Send returns resilience.ErrCircuitOpen without contacting the endpoint.
type Guarded struct {
	Notifier
	Breaker *resilience.CircuitBreaker
}

// Guard wraps n with a breaker named after the sink.
func Guard(n Notifier, threshold int, reset time.Duration) Guarded {
	return Guarded{Notifier: n, Breaker: resilience.NewCircuitBreaker("notify_"+n.Name(), threshold, reset)}
}

func (g Guarded) Send(ctx context.Context, text string, mute bool) error {
	return g.Breaker.Execute(func() error {
		return g.Notifier.Send(ctx, text, mute)
	})
}
