package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/cookiejar"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/session"
)

// Store implements session.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Postgres-backed session store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the stored session for a key, or session.ErrNotFound. Expired
// rows are returned as-is; the caller decides what expiry means.
func (s *Store) Get(ctx context.Context, key string) (*session.Session, error) {
	const query = `
		SELECT key, owner_user_id, token, jar, display_name, avatar_url, created_at, expires_at
		FROM upstream_sessions
		WHERE key = $1`

	var (
		sess    session.Session
		jarJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&sess.Key,
		&sess.OwnerUserID,
		&sess.Token,
		&jarJSON,
		&sess.DisplayName,
		&sess.AvatarURL,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	sess.Jar = cookiejar.New()
	if err := json.Unmarshal(jarJSON, sess.Jar); err != nil {
		return nil, err
	}

	return &sess, nil
}

// Upsert writes the session row, replacing an existing row with the same key.
func (s *Store) Upsert(ctx context.Context, sess *session.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	jarJSON, err := json.Marshal(sess.Jar)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO upstream_sessions (key, owner_user_id, token, jar, display_name, avatar_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET
			owner_user_id = EXCLUDED.owner_user_id,
			token         = EXCLUDED.token,
			jar           = EXCLUDED.jar,
			display_name  = EXCLUDED.display_name,
			avatar_url    = EXCLUDED.avatar_url,
			expires_at    = EXCLUDED.expires_at`

	_, err = s.pool.Exec(ctx, query,
		sess.Key,
		sess.OwnerUserID,
		sess.Token,
		jarJSON,
		sess.DisplayName,
		sess.AvatarURL,
		sess.CreatedAt,
		sess.ExpiresAt,
	)
	return err
}

// Delete removes the session row. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM upstream_sessions WHERE key = $1`, key)
	return err
}
