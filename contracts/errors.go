package contracts

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoMessageAvailable is matched by NoMessageAvailableError.
	ErrNoMessageAvailable = errors.New("jms: no message available")

	// ErrInvalidConfiguration is matched by ConfigurationError.
	ErrInvalidConfiguration = errors.New("jms: invalid configuration")

	// ErrDisconnecting is returned by operations attempted while the
	// connection factory is being torn down.
	ErrDisconnecting = errors.New("jms: connection factory is disconnecting")

	// Mapping errors
	ErrUnknownDeliveryMode = errors.New("jms: unknown delivery mode")
	ErrUnknownPersistence  = errors.New("jms: unknown native persistence value")
	ErrInvalidIdentifier   = errors.New("jms: invalid identifier")
)

// MessagingError is the generic failure of a bridge operation. When the
// failure came from the transport, the native completion and reason codes
// are preserved.
type MessagingError struct {
	Op             string // Operation that failed
	Destination    string // Destination involved, if any
	CompletionCode int32  // Native completion code, 0 when not available
	ReasonCode     int32  // Native reason code, 0 when not available
	Err            error  // Underlying error
}

func (e *MessagingError) Error() string {
	target := ""
	if e.Destination != "" {
		target = fmt.Sprintf(" on %s", e.Destination)
	}
	if e.HasNativeCodes() {
		return fmt.Sprintf("jms: %s failed%s (comp=%d, reason=%d): %v", e.Op, target, e.CompletionCode, e.ReasonCode, e.Err)
	}
	return fmt.Sprintf("jms: %s failed%s: %v", e.Op, target, e.Err)
}

func (e *MessagingError) Unwrap() error {
	return e.Err
}

// HasNativeCodes reports whether the error carries transport codes.
func (e *MessagingError) HasNativeCodes() bool {
	return e.ReasonCode != 0 || e.CompletionCode != 0
}

// NoMessageAvailableError reports an empty receive. It is a normal outcome,
// not a failure.
type NoMessageAvailableError struct {
	Destination  string
	WaitInterval time.Duration
}

func (e *NoMessageAvailableError) Error() string {
	return fmt.Sprintf("jms: no message available for destination [%s], wait interval [%d] ms",
		e.Destination, e.WaitInterval.Milliseconds())
}

func (e *NoMessageAvailableError) Is(target error) bool {
	return target == ErrNoMessageAvailable
}

// ConfigurationError reports an invalid combination of factory options. It
// is raised before any connection attempt.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("jms: invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("jms: invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// IsNoMessageAvailable reports whether err signals an empty receive.
func IsNoMessageAvailable(err error) bool {
	return errors.Is(err, ErrNoMessageAvailable)
}

// ReasonCode extracts the native reason code from err, if any.
func ReasonCode(err error) (int32, bool) {
	var msgErr *MessagingError
	if errors.As(err, &msgErr) && msgErr.HasNativeCodes() {
		return msgErr.ReasonCode, true
	}
	return 0, false
}
