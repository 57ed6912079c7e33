package mq

import (
	"bytes"
	"strings"
)

// Descriptor is the native message descriptor that travels with every
// message. Identifier fields are fixed-width byte slots.
type Descriptor struct {
	Report         int32
	MsgType        int32
	Expiry         int32
	Feedback       int32
	Encoding       int32
	CodedCharSetID int32
	Format         string
	Priority       int32
	Persistence    int32
	MsgID          []byte
	CorrelID       []byte
	BackoutCount   int32
	ReplyToQ       string
	ReplyToQMgr    string
	UserIdentifier string
	PutApplType    int32
	PutApplName    string
	PutDate        string
	PutTime        string
	GroupID        []byte
	MsgSeqNumber   int32
	MsgFlags       int32
}

// NewDescriptor returns a descriptor populated with the transport defaults.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		Report:         ReportNone,
		MsgType:        MsgTypeDatagram,
		Expiry:         ExpiryUnlimited,
		Feedback:       FeedbackNone,
		Encoding:       EncodingNative,
		CodedCharSetID: CCSIDQueueMgr,
		Format:         FormatNone,
		Priority:       PriorityAsQueueDef,
		Persistence:    PersistenceAsQueueDef,
		MsgID:          make([]byte, IDLength),
		CorrelID:       make([]byte, IDLength),
		GroupID:        make([]byte, IDLength),
		MsgSeqNumber:   1,
		MsgFlags:       MsgFlagsNone,
	}
}

// Clone returns a deep copy of d.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.MsgID = append([]byte(nil), d.MsgID...)
	c.CorrelID = append([]byte(nil), d.CorrelID...)
	c.GroupID = append([]byte(nil), d.GroupID...)
	return &c
}

// FixedID copies id into a zero-filled slot of IDLength bytes, truncating
// longer input.
func FixedID(id []byte) []byte {
	slot := make([]byte, IDLength)
	copy(slot, id)
	return slot
}

// IsZeroID reports whether an identifier slot is empty or all zero bytes.
func IsZeroID(id []byte) bool {
	return len(bytes.Trim(id, "\x00")) == 0
}

// Blank reports whether a fixed-width text field carries no value.
func Blank(s string) bool {
	return strings.TrimRight(s, " \x00") == ""
}

// Trim strips the blank and NUL padding of a fixed-width text field.
func Trim(s string) string {
	return strings.Trim(s, " \x00")
}
