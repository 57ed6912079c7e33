package mapper

import "errors"

var (
	ErrInvalidProperty = errors.New("mapper: invalid property value")
	ErrInvalidField    = errors.New("mapper: invalid header field")
)
