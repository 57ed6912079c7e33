package mqrfh2

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Codec encodes and decodes RFH2 headers carrying JMS folders.
type Codec struct {
	needsMCD bool
	logger   *slog.Logger
}

// CodecOption configures a Codec
type CodecOption func(*Codec)

// WithMCD controls whether the mcd folder is written and recognised. Queue
// managers before version 7 require it, later ones reject it.
func WithMCD(needsMCD bool) CodecOption {
	return func(c *Codec) {
		c.needsMCD = needsMCD
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) {
		c.logger = logger
	}
}

// NewCodec creates a codec. The mcd folder is enabled by default.
func NewCodec(options ...CodecOption) *Codec {
	c := &Codec{
		needsMCD: true,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NeedsMCD reports whether the codec writes the mcd folder.
func (c *Codec) NeedsMCD() bool {
	return c.needsMCD
}

// MCDFolder returns the constant message-context folder of a text message.
func MCDFolder() Folder {
	f := NewFolder(FolderMCD)
	f.Add("Msd", "jms_text")
	f.AddNil("msgbody")
	return f
}

// Encode builds a header holding the mcd (when enabled), jms and usr
// folders in that order. Folders without leaves are left out entirely.
func (c *Codec) Encode(jms, usr Folder) ([]byte, error) {
	folders := make([]Folder, 0, 3)
	if c.needsMCD {
		folders = append(folders, MCDFolder())
	}
	folders = append(folders, jms, usr)
	return EncodeFolders(DefaultPrefix(), folders...)
}

// EncodeFolders writes prefix followed by every non-empty folder. The
// prefix length is computed.
func EncodeFolders(prefix Prefix, folders ...Folder) ([]byte, error) {
	bodies := make([][]byte, 0, len(folders))
	for _, f := range folders {
		if f.Empty() {
			continue
		}
		raw, err := MarshalFolder(f)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, PadFolder(raw))
	}

	total := HeaderLength(bodies...)
	prefix.Length = int32(total)

	buf := make([]byte, total)
	if err := prefix.encode(buf); err != nil {
		return nil, err
	}

	off := FixedLength
	for _, body := range bodies {
		binary.BigEndian.PutUint32(buf[off:], uint32(len(body)))
		off += FolderSizeHeaderLength
		off += copy(buf[off:], body)
	}
	return buf, nil
}

// Header is a parsed header with every folder in wire order.
type Header struct {
	Prefix  Prefix
	Folders []Folder
	Payload []byte
}

// Parse splits data into the header prefix, its folders and the payload
// that follows. Folders are returned regardless of their root name.
func Parse(data []byte) (*Header, error) {
	h := &Header{}
	if err := h.Prefix.decode(data); err != nil {
		return nil, err
	}

	total := int(h.Prefix.Length)
	if total < FixedLength || total > len(data) {
		return nil, fmt.Errorf("%w: header length %d, buffer %d", ErrInvalidLength, total, len(data))
	}

	region := data[FixedLength:total]
	h.Payload = data[total:]

	for len(region) > 0 {
		if len(region) < FolderSizeHeaderLength {
			return nil, fmt.Errorf("%w: %d trailing bytes in header", ErrBufferTooShort, len(region))
		}
		n := int(binary.BigEndian.Uint32(region))
		region = region[FolderSizeHeaderLength:]
		if n < 0 || n > len(region) {
			return nil, fmt.Errorf("%w: folder length %d, %d bytes left", ErrInvalidLength, n, len(region))
		}
		if n > 0 {
			folder, err := UnmarshalFolder(region[:n])
			if err != nil {
				return nil, err
			}
			h.Folders = append(h.Folders, folder)
		}
		region = region[n:]
	}
	return h, nil
}

// Decoded holds the recognised folders of a message and its payload.
type Decoded struct {
	Prefix  Prefix
	Folders map[string]Folder
	Payload []byte
}

// Folder returns a recognised folder by root name.
func (d *Decoded) Folder(name string) (Folder, bool) {
	f, ok := d.Folders[name]
	return f, ok
}

// Decode parses data and keeps the jms, usr and (when enabled) mcd folders.
// Unrecognised folders are logged and skipped.
func (c *Codec) Decode(data []byte) (*Decoded, error) {
	h, err := Parse(data)
	if err != nil {
		return nil, err
	}

	d := &Decoded{
		Prefix:  h.Prefix,
		Folders: make(map[string]Folder, len(h.Folders)),
		Payload: h.Payload,
	}
	for _, f := range h.Folders {
		if !c.recognised(f.Name) {
			c.logger.Warn("ignoring unrecognized JMS folder", "folder", f.Name, "elements", len(f.Elements))
			continue
		}
		d.Folders[f.Name] = f
	}
	return d, nil
}

func (c *Codec) recognised(name string) bool {
	switch name {
	case FolderJMS, FolderUSR:
		return true
	case FolderMCD:
		return c.needsMCD
	default:
		return false
	}
}
