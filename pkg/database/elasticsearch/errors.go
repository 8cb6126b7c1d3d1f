package elasticsearch

import "errors"

var (
	ErrConnectionFailed  = errors.New("failed to connect to elasticsearch")
	ErrPingFailed        = errors.New("failed to ping elasticsearch")
	ErrEmptyBatch        = errors.New("empty bulk batch")
	ErrMissingPayload    = errors.New("upsert mutation without payload")
	ErrBulkRequestFailed = errors.New("bulk request failed")
	ErrDecodeFailed      = errors.New("failed to decode response")
)
