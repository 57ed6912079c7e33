// Package contracts provides the JMS-level message type and the error
// taxonomy shared by every layer of the bridge.
//
// This package defines:
//   - TextMessage: a JMS text message with reserved header fields and properties
//   - DeliveryMode: persistent or non-persistent delivery
//   - Reserved provider property names (JMSX*, JMS_IBM_*)
//   - MessagingError, NoMessageAvailableError and ConfigurationError
//
// Messages are designed to be wire compatible with Java JMS peers talking to
// the same queue manager.
package contracts
