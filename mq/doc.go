// Package mq defines the queue-manager primitives the JMS bridge is built on.
//
// The package is deliberately small:
//   - Connector / Conn / Queue: connect, open, put, get and close
//   - Descriptor: the native message descriptor carried alongside every payload
//   - Error: a native failure with completion and reason codes
//   - constants mirroring the transport's C header definitions
//
// Concrete implementations live under transports/.
package mq
