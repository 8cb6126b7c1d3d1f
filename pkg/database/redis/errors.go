package redis

import "errors"

var (
	ErrConnectionFailed = errors.New("failed to connect to redis")
	ErrPingFailed       = errors.New("failed to ping redis")
	ErrKeyNotFound      = errors.New("key not found")
)
