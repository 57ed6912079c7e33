package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/mq"
)

// ErrCircuitOpen is matched by *CircuitOpenError.
var ErrCircuitOpen = errors.New("reliability: circuit is open")

// CircuitOpenError rejects a call made while the breaker is open or its
// half-open probes are used up.
type CircuitOpenError struct {
	Name      string
	State     State
	Failures  int
	NextProbe time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("reliability: circuit %q %s after %d failures, next probe at %s",
		e.Name, e.State, e.Failures, e.NextProbe.Format(time.RFC3339))
}

func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// RetryError reports that every attempt failed.
type RetryError struct {
	Attempts int
	Err      error // last failure
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("reliability: giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

var transientReasons = map[int32]struct{}{
	mq.RCConnectionBroken:     {},
	mq.RCQueueManagerNotAvail: {},
	mq.RCStorageNotAvailable:  {},
	mq.RCQueueManagerQuiesce:  {},
	mq.RCQueueManagerStopping: {},
	mq.RCHostNotAvailable:     {},
}

// IsTransient reports whether err carries a reason code that may clear on
// its own.
func IsTransient(err error) bool {
	reason, ok := contracts.ReasonCode(err)
	if !ok {
		reason, ok = mq.ReasonOf(err)
	}
	if !ok {
		return false
	}
	_, transient := transientReasons[reason]
	return transient
}

// isFailure reports whether err should count against the breaker.
func isFailure(err error) bool {
	switch {
	case err == nil,
		contracts.IsNoMessageAvailable(err),
		errors.Is(err, context.Canceled),
		errors.Is(err, ErrCircuitOpen):
		return false
	}
	return true
}
