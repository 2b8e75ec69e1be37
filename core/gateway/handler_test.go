package gateway_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/gateway"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/session"
	"github.com/WanHui888/wechat-article-exporter-sub001/pkg/ratelimiter"
)

// newHandlerFixture wires a synthetic upstream, gateway, and HTTP adapter.
// freqControl makes the /articles endpoint answer with the upstream abuse code.
func newHandlerFixture(t *testing.T, freqControl bool) (*gateway.Handler, *session.Manager, *ratelimiter.Queue) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/bizlogin", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "startlogin":
			w.Header().Add("Set-Cookie", "uuid=corr-1; Path=/")
			w.Header().Add("Set-Cookie", "secret=nope; Path=/")
			fmt.Fprint(w, `{"base_resp":{"ret":0}}`)
		case "login":
			w.Header().Add("Set-Cookie", "sess=abc; Path=/")
			fmt.Fprint(w, `{"base_resp":{"ret":0},"redirect_url":"/home?token=T777"}`)
		}
	})
	mux.HandleFunc("/cgi-bin/account/info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"nickname":"N","head_img":"H"}`)
	})
	mux.HandleFunc("/articles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "sess=rotated; Path=/")
		ret := 0
		if freqControl {
			ret = 200013
		}
		fmt.Fprintf(w, `{"base_resp":{"ret":%d}}`, ret)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mgr := session.NewManager(session.NewMemoryStore())
	queue := ratelimiter.NewQueue(
		ratelimiter.WithBaseInterval(time.Millisecond),
		ratelimiter.WithSlowInterval(50*time.Millisecond),
	)

	cfg := gateway.DefaultConfig()
	cfg.Origin = srv.URL
	cfg.SlowdownWindow = time.Second

	gw, err := gateway.New(mgr, queue, cfg)
	require.NoError(t, err)

	return gateway.NewHandler(gw, queue, nil), mgr, queue
}

func seedSession(t *testing.T, mgr *session.Manager) string {
	t.Helper()
	key, err := session.NewKey()
	require.NoError(t, err)
	require.NoError(t, mgr.CreateOrUpdateSession(context.Background(), key, "T1",
		[]string{"sess=abc; Path=/"}, uuid.New()))
	return key
}

func TestHandlerPassthrough(t *testing.T) {
	t.Parallel()

	t.Run("no upstream set-cookie reaches the client", func(t *testing.T) {
		t.Parallel()

		h, mgr, _ := newHandlerFixture(t, false)
		key := seedSession(t, mgr)

		req := httptest.NewRequest(http.MethodGet, "/api/proxy?path=/articles&json=1", nil)
		req.Header.Set(gateway.SessionKeyHeader, key)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Values("Set-Cookie"))
	})

	t.Run("session key from cookie", func(t *testing.T) {
		t.Parallel()

		h, mgr, _ := newHandlerFixture(t, false)
		key := seedSession(t, mgr)

		req := httptest.NewRequest(http.MethodGet, "/api/proxy?path=/articles", nil)
		req.AddCookie(&http.Cookie{Name: "wae_session", Value: key})
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing key is unauthorized", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newHandlerFixture(t, false)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxy?path=/articles", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown action rejected", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newHandlerFixture(t, false)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxy?action=nuke", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("frequency control triggers slowdown", func(t *testing.T) {
		t.Parallel()

		h, mgr, queue := newHandlerFixture(t, true)
		key := seedSession(t, mgr)

		req := httptest.NewRequest(http.MethodGet, "/api/proxy?path=/articles&json=1", nil)
		req.Header.Set(gateway.SessionKeyHeader, key)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		// The queue now spaces grants by the elevated interval.
		require.NoError(t, queue.Enqueue(context.Background(), "spacing"))
		start := time.Now()
		require.NoError(t, queue.Enqueue(context.Background(), "spacing"))
		assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
	})

	t.Run("frequency control detected without decoded body", func(t *testing.T) {
		t.Parallel()

		h, mgr, queue := newHandlerFixture(t, true)
		key := seedSession(t, mgr)

		// No json=1: the client wants the raw body, but the abuse signal
		// must still reach the rate limiter.
		req := httptest.NewRequest(http.MethodGet, "/api/proxy?path=/articles", nil)
		req.Header.Set(gateway.SessionKeyHeader, key)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		require.NoError(t, queue.Enqueue(context.Background(), "spacing"))
		start := time.Now()
		require.NoError(t, queue.Enqueue(context.Background(), "spacing"))
		assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
	})
}

func TestHandlerStartLogin(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandlerFixture(t, false)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/proxy?action=start_login", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	setCookies := rec.Header().Values("Set-Cookie")
	require.Len(t, setCookies, 1)
	assert.Contains(t, setCookies[0], "uuid=corr-1")
}

func TestHandlerLogin(t *testing.T) {
	t.Parallel()

	t.Run("success sets both cookies", func(t *testing.T) {
		t.Parallel()

		h, mgr, _ := newHandlerFixture(t, false)

		req := httptest.NewRequest(http.MethodPost, "/api/proxy?action=login", nil)
		req.Header.Set("Cookie", "uuid=corr-1")
		req = req.WithContext(gateway.WithUserID(req.Context(), uuid.New()))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 2)
		assert.Equal(t, "wae_session", cookies[0].Name)
		assert.Equal(t, "uuid", cookies[1].Name)
		assert.True(t, cookies[1].Expires.Before(time.Now()))

		cookieHeader, err := mgr.GetCookieString(context.Background(), cookies[0].Value)
		require.NoError(t, err)
		assert.Equal(t, "sess=abc", cookieHeader)
	})

	t.Run("missing user id is unauthorized", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newHandlerFixture(t, false)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/proxy?action=login", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandlerSwitchAccount(t *testing.T) {
	t.Parallel()

	h, mgr, _ := newHandlerFixture(t, false)
	key := seedSession(t, mgr)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy?action=switch_account", nil)
	req.Header.Set(gateway.SessionKeyHeader, key)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "wae_switch_account", cookies[0].Name)
}
