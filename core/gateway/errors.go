package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned when an inbound request names a bootstrap
	// action outside the closed set.
	ErrUnknownAction = errors.New("unknown bootstrap action")
	// ErrMissingSessionKey is returned when a passthrough request carries no
	// session key in either the header or the session cookie.
	ErrMissingSessionKey = errors.New("missing session key")
	// ErrMissingUserID is returned when a login request reaches the gateway
	// without a pre-verified internal user id in its context.
	ErrMissingUserID = errors.New("missing internal user id")
	// ErrUpstreamRequest wraps transport-level failures of outbound calls.
	ErrUpstreamRequest = errors.New("upstream request failed")
)

// LoginError is the structured failure of the login confirmation step. It is
// returned, not panicked, so callers can present a retry path to the user.
type LoginError struct {
	// Reason describes what went wrong in client-presentable terms.
	Reason string
	// Ret is the upstream result code when one was present in the response.
	Ret int
}

func (e *LoginError) Error() string {
	if e.Ret != 0 {
		return fmt.Sprintf("login failed: %s (upstream ret %d)", e.Reason, e.Ret)
	}
	return "login failed: " + e.Reason
}
