package mongodb

import "errors"

var (
	ErrConnectionFailed = errors.New("failed to connect to mongodb")
	ErrPingFailed       = errors.New("failed to ping mongodb")
	ErrEmptyBatch       = errors.New("empty bulk batch")
	ErrInvalidPayload   = errors.New("payload is not a valid document")
	ErrBulkWriteFailed  = errors.New("bulk write failed")
)
