package cookiejar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/cookiejar"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("parses name value and attributes", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"sess=abc123; Path=/; Secure; HttpOnly; SameSite=Lax"})

		c, ok := jar.Get("sess")
		require.True(t, ok)
		assert.Equal(t, "abc123", c.Value)
		assert.Equal(t, "/", c.Attributes["path"])
		assert.Equal(t, "true", c.Attributes["secure"])
		assert.Equal(t, "true", c.Attributes["httponly"])
		assert.Equal(t, "Lax", c.Attributes["samesite"])
	})

	t.Run("value may contain equals signs", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"data=a=b=c; Path=/"})

		c, ok := jar.Get("data")
		require.True(t, ok)
		assert.Equal(t, "a=b=c", c.Value)
	})

	t.Run("parses expires attribute", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"sess=x; Expires=Wed, 21 Oct 2026 07:28:00 GMT"})

		c, ok := jar.Get("sess")
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 10, 21, 7, 28, 0, 0, time.UTC), c.ExpiresAt)
	})

	t.Run("unparseable expires is ignored", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"sess=x; Expires=not-a-date"})

		c, ok := jar.Get("sess")
		require.True(t, ok)
		assert.True(t, c.ExpiresAt.IsZero())
	})

	t.Run("duplicate names last write wins", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"a=1", "a=2"})

		require.Equal(t, 1, jar.Len())
		c, ok := jar.Get("a")
		require.True(t, ok)
		assert.Equal(t, "2", c.Value)
	})

	t.Run("overwrite preserves first seen position", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"a=1", "b=2", "a=3"})

		assert.Equal(t, "a=3; b=2", jar.Serialize())
	})

	t.Run("never fails on malformed input", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"", ";;;", "bare", "  ; Path=/", "ok=1"})

		// A bare token becomes a name with an empty value.
		c, ok := jar.Get("bare")
		require.True(t, ok)
		assert.Equal(t, "", c.Value)

		c, ok = jar.Get("ok")
		require.True(t, ok)
		assert.Equal(t, "1", c.Value)
	})
}

func TestSerialize(t *testing.T) {
	t.Parallel()

	t.Run("insertion order preserved", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.Parse([]string{"a=1; Path=/", "b=2; Path=/"})
		assert.Equal(t, "a=1; b=2", jar.Serialize())
	})

	t.Run("skips empty and sentinel values", func(t *testing.T) {
		t.Parallel()

		jar := cookiejar.New()
		jar.Set("a", cookiejar.ExpiredValue)
		jar.Set("b", "2")
		jar.Set("c", "")

		assert.Equal(t, "b=2", jar.Serialize())
		assert.Equal(t, 3, jar.Len(), "sentinel entries stay in the jar")
	})

	t.Run("empty jar serializes to empty string", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "", cookiejar.New().Serialize())
	})
}

func TestMerge(t *testing.T) {
	t.Parallel()

	jar := cookiejar.Parse([]string{"uuid=corr; Path=/"})
	jar.Merge([]string{"sess=abc; Path=/; Secure", "uuid=corr2"})

	assert.Equal(t, "uuid=corr2; sess=abc", jar.Serialize())
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	orig := cookiejar.Parse([]string{
		"a=1; Path=/; Expires=Wed, 21 Oct 2026 07:28:00 GMT",
		"b=2; Secure",
	})
	orig.Set("c", cookiejar.ExpiredValue)

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	restored := cookiejar.New()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, "a=1; b=2", restored.Serialize())

	c, ok := restored.Get("a")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 21, 7, 28, 0, 0, time.UTC), c.ExpiresAt.UTC())

	c, ok = restored.Get("c")
	require.True(t, ok)
	assert.Equal(t, cookiejar.ExpiredValue, c.Value)
}
