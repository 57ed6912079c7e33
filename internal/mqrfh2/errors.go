package mqrfh2

import "errors"

var (
	ErrBufferTooShort     = errors.New("mqrfh2: buffer too short")
	ErrInvalidStrucID     = errors.New("mqrfh2: invalid structure id")
	ErrUnsupportedVersion = errors.New("mqrfh2: unsupported header version")
	ErrInvalidLength      = errors.New("mqrfh2: invalid length")
	ErrMalformedFolder    = errors.New("mqrfh2: malformed folder")
	ErrInvalidElementName = errors.New("mqrfh2: invalid element name")
	ErrEmptyFolderName    = errors.New("mqrfh2: folder has no name")
)
