package session_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/cookiejar"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/session"
)

func TestNewKey(t *testing.T) {
	t.Parallel()

	t.Run("format is 32 hex chars", func(t *testing.T) {
		t.Parallel()

		key, err := session.NewKey()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), key)
	})

	t.Run("keys are unique", func(t *testing.T) {
		t.Parallel()

		seen := make(map[string]bool)
		for range 100 {
			key, err := session.NewKey()
			require.NoError(t, err)
			assert.False(t, seen[key])
			seen[key] = true
		}
	})
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	valid := func() *session.Session {
		return &session.Session{
			Key:         "abc",
			OwnerUserID: uuid.New(),
			Jar:         cookiejar.New(),
			ExpiresAt:   time.Now().Add(time.Hour),
		}
	}

	t.Run("valid session passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing fields fail", func(t *testing.T) {
		t.Parallel()

		for name, mutate := range map[string]func(*session.Session){
			"empty key":     func(s *session.Session) { s.Key = "" },
			"missing owner": func(s *session.Session) { s.OwnerUserID = uuid.Nil },
			"nil jar":       func(s *session.Session) { s.Jar = nil },
			"zero expiry":   func(s *session.Session) { s.ExpiresAt = time.Time{} },
		} {
			s := valid()
			mutate(s)
			assert.ErrorIs(t, s.Validate(), session.ErrInvalidSession, name)
		}
	})
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	sess := &session.Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, sess.IsExpired(now))
	assert.True(t, sess.IsExpired(now.Add(2*time.Minute)))
}
