package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/cookiejar"
)

// keySize is the number of random bytes in a session key (128 bits).
const keySize = 16

// Session is the server-side record an opaque key resolves to.
type Session struct {
	// Key is the opaque session key handed to the client: 32 lower-case hex
	// characters, minted once per successful login.
	Key string `json:"key"`

	// OwnerUserID is the pre-verified internal user the session belongs to.
	OwnerUserID uuid.UUID `json:"owner_user_id"`

	// Token is the upstream access token parsed out of the login redirect URL.
	Token string `json:"token"`

	// Jar holds the authenticated upstream cookie set.
	Jar *cookiejar.Jar `json:"jar"`

	// DisplayName and AvatarURL describe the upstream account. Both are
	// best-effort and may be patched after the session already exists.
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session's absolute expiry has passed.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Validate checks the fields every persisted session must carry.
func (s *Session) Validate() error {
	switch {
	case s.Key == "":
		return errors.Join(ErrInvalidSession, errors.New("empty key"))
	case s.OwnerUserID == uuid.Nil:
		return errors.Join(ErrInvalidSession, errors.New("missing owner"))
	case s.Jar == nil:
		return errors.Join(ErrInvalidSession, errors.New("nil cookie jar"))
	case s.ExpiresAt.IsZero():
		return errors.Join(ErrInvalidSession, errors.New("missing expiry"))
	}
	return nil
}

// NewKey mints a cryptographically random session key: 16 bytes encoded as
// 32 hex characters with no separators.
func NewKey() (string, error) {
	b := make([]byte, keySize)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrKeyGeneration, err)
	}
	return hex.EncodeToString(b), nil
}
