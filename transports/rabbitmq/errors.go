package rabbitmq

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/mmate-jms-go/mq"
)

// reasonFor maps an AMQP failure to the closest MQ reason code.
func reasonFor(err error) int32 {
	// the sentinels are *amqp.Error values whose codes are too broad
	switch {
	case errors.Is(err, amqp.ErrClosed):
		return mq.RCConnectionBroken
	case errors.Is(err, amqp.ErrCredentials):
		return mq.RCNotAuthorized
	case errors.Is(err, amqp.ErrVhost):
		return mq.RCQueueManagerNameErr
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		switch amqpErr.Code {
		case amqp.NotFound:
			return mq.RCUnknownObjectName
		case amqp.AccessRefused:
			return mq.RCNotAuthorized
		case amqp.NotAllowed:
			return mq.RCQueueManagerNameErr
		case amqp.ResourceLocked:
			return mq.RCObjectInUse
		case amqp.ConnectionForced:
			return mq.RCQueueManagerQuiesce
		case amqp.ResourceError:
			return mq.RCStorageNotAvailable
		case amqp.ChannelError, amqp.FrameError, amqp.UnexpectedFrame, amqp.InternalError:
			return mq.RCConnectionBroken
		}
		return mq.RCUnexpectedError
	}

	var (
		netErr     net.Error
		opErr      *net.OpError
		certErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		recordErr  tls.RecordHeaderError
		certVerErr *tls.CertificateVerificationError
	)
	switch {
	case errors.As(err, &certErr), errors.As(err, &hostErr), errors.As(err, &recordErr), errors.As(err, &certVerErr):
		return mq.RCSSLInitError
	case errors.As(err, &opErr), errors.As(err, &netErr):
		return mq.RCHostNotAvailable
	}
	return mq.RCUnexpectedError
}

func wrap(op string, err error) *mq.Error {
	return &mq.Error{Op: op, CompCode: mq.CCFailed, Reason: reasonFor(err), Err: err}
}

// SanitizeURL hides the password of an AMQP URL.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
