// Package redis provides Redis client initialization and the Redis-backed
// session store.
//
// Connect wraps go-redis with URL validation, exponential backoff retries,
// and a ping verification so callers get a working client or an error, never
// a half-connected one. Store persists sessions as JSON values keyed by the
// opaque session key with a TTL matching the session expiry; Redis evicting a
// row early is indistinguishable from a lazy expiry delete, which the session
// manager already treats as a normal miss.
//
//	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: "redis://localhost:6379/0"})
//	if err != nil {
//		return err
//	}
//	store := redis.NewStore(client)
//	mgr := session.NewManager(store)
package redis
