package mq

import (
	"errors"
	"fmt"
)

// Error is a native transport failure.
type Error struct {
	Op       string
	CompCode int32
	Reason   int32
	Err      error // optional underlying cause
}

// NewError builds a failed-completion error for op.
func NewError(op string, reason int32) *Error {
	return &Error{Op: op, CompCode: CCFailed, Reason: reason}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mq: %s failed: comp=%d reason=%d (%s): %v", e.Op, e.CompCode, e.Reason, ReasonText(e.Reason), e.Err)
	}
	return fmt.Sprintf("mq: %s failed: comp=%d reason=%d (%s)", e.Op, e.CompCode, e.Reason, ReasonText(e.Reason))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the native reason code from err, if any.
func ReasonOf(err error) (int32, bool) {
	var mqErr *Error
	if errors.As(err, &mqErr) {
		return mqErr.Reason, true
	}
	return RCNone, false
}

// ReasonText returns the symbolic name of a reason code.
func ReasonText(reason int32) string {
	switch reason {
	case RCNone:
		return "MQRC_NONE"
	case RCConnectionBroken:
		return "MQRC_CONNECTION_BROKEN"
	case RCHandleNotAvailable:
		return "MQRC_HANDLE_NOT_AVAILABLE"
	case RCConnHandleError:
		return "MQRC_HCONN_ERROR"
	case RCObjectHandleError:
		return "MQRC_HOBJ_ERROR"
	case RCNoMsgAvailable:
		return "MQRC_NO_MSG_AVAILABLE"
	case RCNotAuthorized:
		return "MQRC_NOT_AUTHORIZED"
	case RCNotOpenForInput:
		return "MQRC_NOT_OPEN_FOR_INPUT"
	case RCNotOpenForOutput:
		return "MQRC_NOT_OPEN_FOR_OUTPUT"
	case RCObjectInUse:
		return "MQRC_OBJECT_IN_USE"
	case RCQueueManagerNameErr:
		return "MQRC_Q_MGR_NAME_ERROR"
	case RCQueueManagerNotAvail:
		return "MQRC_Q_MGR_NOT_AVAILABLE"
	case RCUnknownObjectName:
		return "MQRC_UNKNOWN_OBJECT_NAME"
	case RCStorageNotAvailable:
		return "MQRC_STORAGE_NOT_AVAILABLE"
	case RCQueueManagerQuiesce:
		return "MQRC_Q_MGR_QUIESCING"
	case RCQueueManagerStopping:
		return "MQRC_Q_MGR_STOPPING"
	case RCUnexpectedError:
		return "MQRC_UNEXPECTED_ERROR"
	case RCSSLInitError:
		return "MQRC_SSL_INITIALIZATION_ERROR"
	case RCHostNotAvailable:
		return "MQRC_HOST_NOT_AVAILABLE"
	default:
		return "UNKNOWN"
	}
}
