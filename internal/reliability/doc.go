// Package reliability guards queue-manager operations with a circuit
// breaker and retries transient transport failures with backoff.
//
// A failure is transient when its native reason code says the queue
// manager or the connection to it is temporarily unusable, e.g.
// 2009 (connection broken) or 2059 (queue manager not available).
// Application errors, empty receives and cancellations are never retried
// and never trip the breaker.
//
//	breaker := reliability.NewBreaker(reliability.WithFailureThreshold(5))
//	err := breaker.Execute(ctx, func() error {
//	    return reliability.Retry(ctx, reliability.NewBackoff(100*time.Millisecond, 5*time.Second, 3), send)
//	})
package reliability
