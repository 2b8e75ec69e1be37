package redis

import "errors"

var (
	ErrEmptyConnectionURL  = errors.New("empty redis connection URL")
	ErrFailedToParseURL    = errors.New("failed to parse redis connection URL")
	ErrRedisNotReady       = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed   = errors.New("redis healthcheck failed")
	ErrSessionEncodeFailed = errors.New("failed to encode session")
	ErrSessionDecodeFailed = errors.New("failed to decode session")
)
