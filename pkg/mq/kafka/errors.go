package kafka

import "errors"

var (
	ErrMissingIdentifier = errors.New("record without identifier")
	ErrMissingDoc        = errors.New("record without document body")
)
