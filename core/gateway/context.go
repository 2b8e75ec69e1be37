package gateway

import (
	"context"

	"github.com/google/uuid"
)

// userIDContextKey is an unexported key type to avoid context key collisions.
type userIDContextKey struct{}

// WithUserID returns a context carrying the pre-verified internal user id.
// The authentication layer in front of the gateway is responsible for
// verifying the identity; the gateway consumes it without re-validation.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if userID == uuid.Nil {
		return ctx
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext extracts the internal user id stored with WithUserID.
// The second return value indicates whether an id was present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(userIDContextKey{}).(uuid.UUID)
	return id, ok
}
