package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/cookiejar"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/logger"
)

// Manager resolves opaque session keys to upstream credentials through a
// process-local cache backed by a Store.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]*Session
}

// NewManager creates a session manager on top of the given store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ttl:    DefaultTTL,
		logger: noopLogger(),
		now:    time.Now,
		cache:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerFromConfig creates a Manager from configuration. Additional
// options override config values.
func NewManagerFromConfig(store Store, cfg Config, opts ...Option) *Manager {
	base := []Option{WithTTL(cfg.TTL)}
	return NewManager(store, append(base, opts...)...)
}

// GetSession returns the live session for a key, or ErrNotFound. The cache is
// consulted first; on a store hit the entry is cached for subsequent reads.
// An expired row is deleted from the store lazily and reported as not found.
func (m *Manager) GetSession(ctx context.Context, key string) (*Session, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	now := m.now()

	m.mu.RLock()
	cached, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		if cached.IsExpired(now) {
			m.evict(ctx, key)
			return nil, ErrNotFound
		}
		return cached, nil
	}

	sess, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if sess.IsExpired(now) {
		m.evict(ctx, key)
		return nil, ErrNotFound
	}

	m.mu.Lock()
	m.cache[key] = sess
	m.mu.Unlock()

	return sess, nil
}

// CreateOrUpdateSession stores the credential set a completed login produced.
// The raw Set-Cookie values are parsed into a jar and the expiry is set to
// now+TTL. The cache is updated even when the durable upsert fails; the
// failure is logged and the session remains usable on this instance.
func (m *Manager) CreateOrUpdateSession(ctx context.Context, key, token string, rawCookies []string, ownerID uuid.UUID) error {
	now := m.now()
	sess := &Session{
		Key:         key,
		OwnerUserID: ownerID,
		Token:       token,
		Jar:         cookiejar.Parse(rawCookies),
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := sess.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.cache[key] = sess
	m.mu.Unlock()

	if err := m.store.Upsert(ctx, sess); err != nil {
		m.logger.ErrorContext(ctx, "session upsert failed, serving from cache only",
			logger.Component("session"), logger.Error(err))
	}

	return nil
}

// GetToken returns the upstream access token for a key.
func (m *Manager) GetToken(ctx context.Context, key string) (string, error) {
	sess, err := m.GetSession(ctx, key)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// GetCookieString returns the serialized Cookie header for a key.
func (m *Manager) GetCookieString(ctx context.Context, key string) (string, error) {
	sess, err := m.GetSession(ctx, key)
	if err != nil {
		return "", err
	}
	return sess.Jar.Serialize(), nil
}

// ResolveOwnerUserID returns the internal user owning a session key. Used to
// authorize operations performed with only the opaque key.
func (m *Manager) ResolveOwnerUserID(ctx context.Context, key string) (uuid.UUID, error) {
	sess, err := m.GetSession(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}
	return sess.OwnerUserID, nil
}

// UpdateDisplayInfo patches the session's display metadata. Best-effort: a
// missing session or a failed durable write is logged and swallowed.
func (m *Manager) UpdateDisplayInfo(ctx context.Context, key, displayName, avatarURL string) {
	sess, err := m.GetSession(ctx, key)
	if err != nil {
		m.logger.WarnContext(ctx, "display info update skipped",
			logger.Component("session"), logger.Error(err))
		return
	}

	sess.DisplayName = displayName
	sess.AvatarURL = avatarURL

	m.mu.Lock()
	m.cache[key] = sess
	m.mu.Unlock()

	if err := m.store.Upsert(ctx, sess); err != nil {
		m.logger.WarnContext(ctx, "display info persist failed",
			logger.Component("session"), logger.Error(err))
	}
}

// InvalidateCache drops only the in-memory entry, forcing the next read to hit
// the store. The persisted row is untouched.
func (m *Manager) InvalidateCache(key string) {
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()
}

// evict removes an expired session from cache and store. Store failures are
// logged; the next read will retry the delete.
func (m *Manager) evict(ctx context.Context, key string) {
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		m.logger.WarnContext(ctx, "expired session delete failed",
			logger.Component("session"), logger.Error(err))
	}
}
