package mqrfh2

import (
	"encoding/binary"
	"fmt"

	"github.com/glimte/mmate-jms-go/mq"
)

const (
	StrucID     = "RFH "
	Version2    = 2
	NoFlags     = 0
	FixedLength = 36

	// FolderLengthMultiple is the alignment of every folder body.
	FolderLengthMultiple = 4

	// FolderSizeHeaderLength is the size of the length prefix of a folder.
	FolderSizeHeaderLength = 4

	offsetStrucID   = 0
	offsetVersion   = 4
	offsetLength    = 8
	offsetEncoding  = 12
	offsetCCSID     = 16
	offsetFormat    = 20
	offsetFlags     = 28
	offsetNameCCSID = 32
)

// Prefix is the fixed part of the header.
type Prefix struct {
	StrucID        string
	Version        int32
	Length         int32
	Encoding       int32
	CodedCharSetID int32
	Format         string
	Flags          int32
	NameValueCCSID int32
}

// DefaultPrefix returns the prefix written for every outgoing message. The
// length is filled in by the encoder.
func DefaultPrefix() Prefix {
	return Prefix{
		StrucID:        StrucID,
		Version:        Version2,
		Encoding:       mq.EncodingDefault,
		CodedCharSetID: mq.CCSIDUTF8,
		Format:         mq.FormatString,
		Flags:          NoFlags,
		NameValueCCSID: mq.CCSIDUTF8,
	}
}

func (p *Prefix) encode(buf []byte) error {
	if len(buf) < FixedLength {
		return ErrBufferTooShort
	}
	copy(buf[offsetStrucID:offsetVersion], fixedString(p.StrucID, 4))
	binary.BigEndian.PutUint32(buf[offsetVersion:], uint32(p.Version))
	binary.BigEndian.PutUint32(buf[offsetLength:], uint32(p.Length))
	binary.BigEndian.PutUint32(buf[offsetEncoding:], uint32(p.Encoding))
	binary.BigEndian.PutUint32(buf[offsetCCSID:], uint32(p.CodedCharSetID))
	copy(buf[offsetFormat:offsetFlags], fixedString(p.Format, 8))
	binary.BigEndian.PutUint32(buf[offsetFlags:], uint32(p.Flags))
	binary.BigEndian.PutUint32(buf[offsetNameCCSID:], uint32(p.NameValueCCSID))
	return nil
}

func (p *Prefix) decode(raw []byte) error {
	if len(raw) < FixedLength {
		return fmt.Errorf("%w: %d bytes, need %d", ErrBufferTooShort, len(raw), FixedLength)
	}
	p.StrucID = string(raw[offsetStrucID:offsetVersion])
	if p.StrucID != StrucID {
		return fmt.Errorf("%w: %q", ErrInvalidStrucID, p.StrucID)
	}
	p.Version = int32(binary.BigEndian.Uint32(raw[offsetVersion:]))
	if p.Version != Version2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	p.Length = int32(binary.BigEndian.Uint32(raw[offsetLength:]))
	p.Encoding = int32(binary.BigEndian.Uint32(raw[offsetEncoding:]))
	p.CodedCharSetID = int32(binary.BigEndian.Uint32(raw[offsetCCSID:]))
	p.Format = string(raw[offsetFormat:offsetFlags])
	p.Flags = int32(binary.BigEndian.Uint32(raw[offsetFlags:]))
	p.NameValueCCSID = int32(binary.BigEndian.Uint32(raw[offsetNameCCSID:]))
	return nil
}

// HeaderLength returns the total header length for the given encoded folder
// bodies: the fixed prefix plus a length word and body per folder.
func HeaderLength(bodies ...[]byte) int {
	n := FixedLength
	for _, b := range bodies {
		n += FolderSizeHeaderLength + len(b)
	}
	return n
}

// PadFolder right-pads body with spaces to a multiple of four bytes.
func PadFolder(body []byte) []byte {
	rem := len(body) % FolderLengthMultiple
	if rem == 0 {
		return body
	}
	padded := make([]byte, len(body), len(body)+FolderLengthMultiple-rem)
	copy(padded, body)
	for i := rem; i < FolderLengthMultiple; i++ {
		padded = append(padded, ' ')
	}
	return padded
}

func fixedString(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}
