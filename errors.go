package jms

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/mq"
)

// mapError normalizes a failure of op into a *contracts.MessagingError,
// keeping the native codes of transport errors. Disconnecting and context
// errors pass through unchanged.
func mapError(op, destination string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, contracts.ErrDisconnecting) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var msgErr *contracts.MessagingError
	if errors.As(err, &msgErr) {
		return err
	}

	out := &contracts.MessagingError{Op: op, Destination: destination, Err: err}
	var mqErr *mq.Error
	if errors.As(err, &mqErr) {
		out.CompletionCode = mqErr.CompCode
		out.ReasonCode = mqErr.Reason
	}
	return out
}

// mapReceiveError turns an empty get into *contracts.NoMessageAvailableError.
func mapReceiveError(destination string, wait time.Duration, err error) error {
	if reason, ok := mq.ReasonOf(err); ok && reason == mq.RCNoMsgAvailable {
		return &contracts.NoMessageAvailableError{Destination: destination, WaitInterval: wait}
	}
	return mapError(OpReceive, destination, err)
}

// errorType labels err for metrics.
func errorType(err error) string {
	switch {
	case contracts.IsNoMessageAvailable(err):
		return "no_message"
	case errors.Is(err, contracts.ErrDisconnecting):
		return "disconnecting"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, contracts.ErrUnknownDeliveryMode),
		errors.Is(err, contracts.ErrUnknownPersistence),
		errors.Is(err, contracts.ErrInvalidIdentifier):
		return "mapping"
	}
	if reason, ok := contracts.ReasonCode(err); ok {
		return "reason_" + strconv.Itoa(int(reason))
	}
	return "error"
}
