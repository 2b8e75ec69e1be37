package ratelimiter

import "errors"

var (
	// ErrInvalidConfig is returned when queue configuration values are not usable.
	ErrInvalidConfig = errors.New("invalid configuration")
)
