package session

import "errors"

var (
	// ErrNotFound is returned when no live session exists for a key. Expired
	// sessions are reported as not found, not as a distinct error.
	ErrNotFound = errors.New("session not found")
	// ErrKeyGeneration is returned when minting a session key fails.
	ErrKeyGeneration = errors.New("failed to generate session key")
	// ErrInvalidSession is returned when a session is persisted or served with
	// missing required fields.
	ErrInvalidSession = errors.New("invalid session")
)
