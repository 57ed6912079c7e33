// Package mapper converts between JMS text messages and the native
// descriptor plus RFH2 payload carried by the transport.
//
// Identifiers prefixed with "ID:" are hex encoded bytes, any other
// identifier is plain text padded to the 24-byte descriptor slot.
// Expiration is milliseconds on the message and centiseconds in the
// descriptor; lifetimes the descriptor cannot express become unlimited.
package mapper
