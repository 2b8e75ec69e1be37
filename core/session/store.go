package session

import "context"

// Store is the durable key-value contract behind the Manager. Implementations
// must return ErrNotFound for missing keys and handle concurrent access
// safely; they are not required to enforce expiry, the Manager does that
// lazily on read.
type Store interface {
	Get(ctx context.Context, key string) (*Session, error)
	Upsert(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, key string) error
}
