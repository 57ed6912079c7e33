package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/internal/mapper"
	"github.com/glimte/mmate-jms-go/internal/reliability"
)

var (
	// ErrTimeout is returned when no reply arrives in time.
	ErrTimeout = errors.New("bridge: timed out waiting for reply")

	// ErrNoReplyTo is returned by Reply for requests without a reply-to.
	ErrNoReplyTo = errors.New("bridge: request has no reply-to destination")
)

// Factory is the part of a connection factory the bridge uses.
type Factory interface {
	Send(ctx context.Context, msg *contracts.TextMessage, destination string) error
	Receive(ctx context.Context, destination string, wait time.Duration) (*contracts.TextMessage, error)
	OpenDynamicQueue(ctx context.Context) (string, error)
	CloseDynamicQueue(ctx context.Context, name string) error
}

// Requestor performs request-reply exchanges. It is safe for concurrent
// use; every request gets its own reply queue.
type Requestor struct {
	factory Factory
	breaker *reliability.Breaker
	retry   reliability.Policy
	logger  *slog.Logger
}

// Option configures a Requestor
type Option func(*Requestor)

// WithBreaker guards sends with breaker
func WithBreaker(breaker *reliability.Breaker) Option {
	return func(r *Requestor) {
		r.breaker = breaker
	}
}

// WithRetryPolicy sets the retry policy for sends
func WithRetryPolicy(policy reliability.Policy) Option {
	return func(r *Requestor) {
		r.retry = policy
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Requestor) {
		r.logger = logger
	}
}

// NewRequestor creates a requestor over factory.
func NewRequestor(factory Factory, options ...Option) *Requestor {
	r := &Requestor{
		factory: factory,
		retry:   reliability.NewBackoff(100*time.Millisecond, 2*time.Second, 3),
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = reliability.NewBreaker(reliability.WithName("bridge"), reliability.WithLogger(r.logger))
	}
	return r
}

// Request sends msg to destination and waits up to timeout for the reply.
// msg.ReplyTo is overwritten with the reply queue. Replies whose
// correlation id does not match the request are discarded.
func (r *Requestor) Request(ctx context.Context, msg *contracts.TextMessage, destination string, timeout time.Duration) (*contracts.TextMessage, error) {
	replyQueue, err := r.factory.OpenDynamicQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("bridge: open reply queue: %w", err)
	}
	defer func() {
		// the request context may already be done
		if err := r.factory.CloseDynamicQueue(context.WithoutCancel(ctx), replyQueue); err != nil {
			r.logger.Error("could not close reply queue", "queue", replyQueue, "error", err)
		}
	}()

	msg.ReplyTo = mapper.QueueLocator(replyQueue)
	if err := r.send(ctx, msg, destination); err != nil {
		return nil, err
	}
	r.logger.Debug("request sent", "destination", destination, "messageId", msg.MessageID, "replyTo", replyQueue)

	deadline := time.Now().Add(timeout)
	for {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, msg.MessageID, timeout)
		}

		reply, err := r.factory.Receive(ctx, replyQueue, wait)
		switch {
		case contracts.IsNoMessageAvailable(err):
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, msg.MessageID, timeout)
		case err != nil:
			return nil, fmt.Errorf("bridge: receive reply: %w", err)
		case reply.CorrelationID != msg.MessageID:
			r.logger.Warn("discarding unrelated reply",
				"queue", replyQueue,
				"expected", msg.MessageID,
				"correlationId", reply.CorrelationID)
			continue
		}
		return reply, nil
	}
}

func (r *Requestor) send(ctx context.Context, msg *contracts.TextMessage, destination string) error {
	return r.breaker.Execute(ctx, func() error {
		return reliability.Retry(ctx, r.retry, func() error {
			return r.factory.Send(ctx, msg, destination)
		})
	})
}

// Reply sends reply to the request's reply-to destination, correlated by
// the request's message id.
func Reply(ctx context.Context, factory Factory, request, reply *contracts.TextMessage) error {
	if request.ReplyTo == "" {
		return fmt.Errorf("%w: %s", ErrNoReplyTo, request.MessageID)
	}
	reply.CorrelationID = request.MessageID
	return factory.Send(ctx, reply, request.ReplyTo)
}
