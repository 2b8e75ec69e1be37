package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/session"
)

// keyPrefix namespaces session rows in a shared Redis instance.
const keyPrefix = "wexp:session:"

// Store implements session.Store on Redis. Sessions are stored as JSON with
// a TTL matching their expiry, so Redis reclaims abandoned rows on its own.
type Store struct {
	client *redis.Client
}

// NewStore creates a Redis-backed session store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the stored session for a key, or session.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (*session.Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Join(ErrSessionDecodeFailed, err)
	}
	return &sess, nil
}

// Upsert stores the session under its key with a TTL derived from ExpiresAt.
// An already-expired session is rejected rather than written with no TTL.
func (s *Store) Upsert(ctx context.Context, sess *session.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return session.ErrInvalidSession
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Join(ErrSessionEncodeFailed, err)
	}

	return s.client.Set(ctx, keyPrefix+sess.Key, data, ttl).Err()
}

// Delete removes the session for a key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
