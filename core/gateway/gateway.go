package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/logger"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/session"
	"github.com/WanHui888/wechat-article-exporter-sub001/pkg/ratelimiter"
)

// Gateway proxies requests to one fixed upstream origin, resolving
// credentials from the session manager and admitting every outbound call
// through the shared rate-limit queue.
type Gateway struct {
	cfg      Config
	origin   *url.URL
	client   *http.Client
	sessions *session.Manager
	queue    *ratelimiter.Queue
	logger   *slog.Logger
}

// Option is a functional option for configuring the Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the outbound HTTP client. The configured request
// timeout is not applied to a caller-provided client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithLogger sets the logger for proxy and handshake events.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a gateway bound to the configured upstream origin.
func New(sessions *session.Manager, queue *ratelimiter.Queue, cfg Config, opts ...Option) (*Gateway, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, errors.Join(ErrUpstreamRequest, errors.New("origin must be an absolute URL"))
	}

	g := &Gateway{
		cfg:      cfg,
		origin:   origin,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		sessions: sessions,
		queue:    queue,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ProxyRequest is a steady-state passthrough request.
type ProxyRequest struct {
	// SessionKey is the caller's opaque key; the outbound Cookie header is
	// resolved from it, never from client-supplied cookies.
	SessionKey  string
	Method      string
	Path        string
	Query       url.Values
	Body        io.Reader
	ContentType string
	// DecodeJSON requests the response body parsed as JSON in addition to the
	// raw bytes.
	DecodeJSON bool
}

// ProxyResponse is the sanitized upstream response. Header never contains
// Set-Cookie.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// JSON is populated when DecodeJSON was requested and the body parsed.
	JSON map[string]any

	ret int
}

// Ret reports the upstream's base_resp.ret status code, or 0. It is
// extracted from every JSON response body, whether or not the caller asked
// for a decoded one, so frequency-control signals are never lost.
func (r *ProxyResponse) Ret() int {
	return r.ret
}

// retCode extracts base_resp.ret from a decoded body, or 0.
func retCode(parsed map[string]any) int {
	baseResp, ok := parsed["base_resp"].(map[string]any)
	if !ok {
		return 0
	}
	ret, ok := baseResp["ret"].(float64)
	if !ok {
		return 0
	}
	return int(ret)
}

// Proxy forwards a passthrough request upstream. Transport failures are
// propagated, never masked as success. The response is returned with every
// upstream Set-Cookie header removed.
func (g *Gateway) Proxy(ctx context.Context, req ProxyRequest) (*ProxyResponse, error) {
	start := time.Now()

	cookieHeader, err := g.sessions.GetCookieString(ctx, req.SessionKey)
	if err != nil {
		return nil, err
	}

	if err := g.queue.Enqueue(ctx, req.SessionKey); err != nil {
		return nil, err
	}

	out, err := g.newUpstreamRequest(ctx, req.Method, req.Path, req.Query, req.Body)
	if err != nil {
		return nil, err
	}
	if cookieHeader != "" {
		out.Header.Set("Cookie", cookieHeader)
	}
	if req.ContentType != "" {
		out.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := g.client.Do(out)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}

	result := &ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     sanitizeHeader(resp.Header),
		Body:       body,
	}

	if trimmed := bytes.TrimLeft(body, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '{' {
		var parsed map[string]any
		if err := json.Unmarshal(trimmed, &parsed); err == nil {
			result.ret = retCode(parsed)
			if req.DecodeJSON {
				result.JSON = parsed
			}
		}
	}

	g.logger.DebugContext(ctx, "proxied upstream request",
		logger.Component("gateway"),
		logger.Method(req.Method),
		logger.Path(req.Path),
		logger.StatusCode(resp.StatusCode),
		logger.Elapsed(start))

	return result, nil
}

// BootstrapResult carries the Set-Cookie values a bootstrap step re-emits to
// the client.
type BootstrapResult struct {
	// SetCookies are raw Set-Cookie header values, forwarded verbatim.
	SetCookies []string
	Body       []byte
	StatusCode int
}

// StartLogin performs the unauthenticated login-initiation call and re-emits
// only the transient correlation cookie to the client.
func (g *Gateway) StartLogin(ctx context.Context) (*BootstrapResult, error) {
	if err := g.queue.Enqueue(ctx, "bootstrap:start_login"); err != nil {
		return nil, err
	}

	query := url.Values{"action": {"startlogin"}}
	out, err := g.newUpstreamRequest(ctx, http.MethodPost, g.cfg.BizLoginPath, query, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(out)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}

	// Only the single-purpose correlation cookie may cross the trust
	// boundary here; every other upstream cookie is dropped.
	var forwarded []string
	for _, raw := range resp.Header.Values("Set-Cookie") {
		if cookieName(raw) == g.cfg.CorrelationCookie {
			forwarded = append(forwarded, raw)
		}
	}

	g.logger.InfoContext(ctx, "login handshake initiated",
		logger.Component("gateway"),
		logger.Count("correlation_cookies", len(forwarded)))

	return &BootstrapResult{
		SetCookies: forwarded,
		Body:       body,
		StatusCode: resp.StatusCode,
	}, nil
}

// LoginResult is the outcome of a completed login confirmation.
type LoginResult struct {
	// SessionKey is the freshly minted opaque key.
	SessionKey string
	// SetCookies holds exactly two instructions: the opaque key cookie and a
	// past-dated expiry for the obsolete correlation cookie.
	SetCookies []*http.Cookie
}

// loginResponse is the upstream confirmation payload.
type loginResponse struct {
	BaseResp struct {
		Ret int `json:"ret"`
	} `json:"base_resp"`
	RedirectURL string `json:"redirect_url"`
}

// Login forwards the confirmation call with the client-held correlation
// cookie, parses the access token out of the redirect URL, and mints a new
// session. A missing or unparseable token yields a *LoginError and no session.
func (g *Gateway) Login(ctx context.Context, ownerID uuid.UUID, clientCookie string) (*LoginResult, error) {
	if ownerID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	if err := g.queue.Enqueue(ctx, "bootstrap:login"); err != nil {
		return nil, err
	}

	query := url.Values{"action": {"login"}}
	out, err := g.newUpstreamRequest(ctx, http.MethodPost, g.cfg.BizLoginPath, query, nil)
	if err != nil {
		return nil, err
	}
	// The one path where a client-supplied cookie goes upstream, and only
	// the correlation pair. The internal session cookie must never cross
	// the trust boundary.
	if pair := g.correlationFromClient(clientCookie); pair != "" {
		out.Header.Set("Cookie", pair)
	}

	resp, err := g.client.Do(out)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}

	var payload loginResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &LoginError{Reason: "unparseable confirmation response"}
	}
	if payload.RedirectURL == "" {
		return nil, &LoginError{Reason: "confirmation response carries no redirect URL", Ret: payload.BaseResp.Ret}
	}

	token, err := g.tokenFromRedirect(payload.RedirectURL)
	if err != nil {
		return nil, &LoginError{Reason: err.Error(), Ret: payload.BaseResp.Ret}
	}

	key, err := session.NewKey()
	if err != nil {
		return nil, err
	}

	if err := g.sessions.CreateOrUpdateSession(ctx, key, token, resp.Header.Values("Set-Cookie"), ownerID); err != nil {
		return nil, err
	}

	// Best-effort: login already succeeded, display info only enriches it.
	g.fetchDisplayInfo(ctx, key, token)

	g.logger.InfoContext(ctx, "login completed",
		logger.Component("gateway"),
		logger.ID("owner_user_id", ownerID))

	return &LoginResult{
		SessionKey: key,
		SetCookies: []*http.Cookie{
			{
				Name:     g.cfg.SessionCookie,
				Value:    key,
				Path:     "/",
				MaxAge:   int(g.cfg.SessionCookieTTL.Seconds()),
				Secure:   true,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			},
			{
				Name:    g.cfg.CorrelationCookie,
				Value:   "",
				Path:    "/",
				MaxAge:  -1,
				Expires: time.Unix(0, 0).UTC(),
			},
		},
	}, nil
}

// SwitchAccount returns the non-sensitive marker cookie signalling the
// frontend to re-fetch account display info, or nil when no session key is
// present. No session store interaction happens here.
func (g *Gateway) SwitchAccount(sessionKey string) *http.Cookie {
	if sessionKey == "" {
		return nil
	}
	return &http.Cookie{
		Name:   g.cfg.SwitchAccountCookie,
		Value:  "1",
		Path:   "/",
		MaxAge: 60,
	}
}

// accountInfoResponse is the best-effort display metadata payload.
type accountInfoResponse struct {
	Nickname string `json:"nickname"`
	HeadImg  string `json:"head_img"`
}

// fetchDisplayInfo fetches the upstream account's display name and avatar
// using the new session and patches them into the session record. Failures
// are logged and swallowed; the login stays successful.
func (g *Gateway) fetchDisplayInfo(ctx context.Context, key, token string) {
	if err := g.queue.Enqueue(ctx, "bootstrap:account_info"); err != nil {
		g.logger.WarnContext(ctx, "display info fetch skipped", logger.Component("gateway"), logger.Error(err))
		return
	}

	cookieHeader, err := g.sessions.GetCookieString(ctx, key)
	if err != nil {
		g.logger.WarnContext(ctx, "display info fetch skipped", logger.Component("gateway"), logger.Error(err))
		return
	}

	query := url.Values{g.cfg.TokenParam: {token}, "lang": {"zh_CN"}}
	out, err := g.newUpstreamRequest(ctx, http.MethodGet, g.cfg.AccountInfoPath, query, nil)
	if err != nil {
		g.logger.WarnContext(ctx, "display info fetch failed", logger.Component("gateway"), logger.Error(err))
		return
	}
	if cookieHeader != "" {
		out.Header.Set("Cookie", cookieHeader)
	}

	resp, err := g.client.Do(out)
	if err != nil {
		g.logger.WarnContext(ctx, "display info fetch failed", logger.Component("gateway"), logger.Error(err))
		return
	}
	defer resp.Body.Close()

	var info accountInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		g.logger.WarnContext(ctx, "display info decode failed", logger.Component("gateway"), logger.Error(err))
		return
	}
	if info.Nickname == "" && info.HeadImg == "" {
		return
	}

	g.sessions.UpdateDisplayInfo(ctx, key, info.Nickname, info.HeadImg)
}

// correlationFromClient extracts the correlation cookie pair from a raw
// client Cookie header, dropping everything else.
func (g *Gateway) correlationFromClient(header string) string {
	for _, part := range strings.Split(header, ";") {
		pair := strings.TrimSpace(part)
		if name, _, _ := strings.Cut(pair, "="); name == g.cfg.CorrelationCookie {
			return pair
		}
	}
	return ""
}

// tokenFromRedirect parses the access token query parameter out of the
// upstream redirect URL.
func (g *Gateway) tokenFromRedirect(redirect string) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", errors.New("unparseable redirect URL")
	}
	token := u.Query().Get(g.cfg.TokenParam)
	if token == "" {
		return "", errors.New("redirect URL carries no access token")
	}
	return token, nil
}

// newUpstreamRequest builds an outbound request with the fixed spoofed
// browser headers attached.
func (g *Gateway) newUpstreamRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := *g.origin
	target.Path = path
	if query != nil {
		target.RawQuery = query.Encode()
	}

	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, errors.Join(ErrUpstreamRequest, err)
	}

	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set("Referer", g.origin.String()+"/")
	req.Header.Set("Origin", g.origin.String())
	req.Header.Set("Accept-Encoding", "identity")

	return req, nil
}

// sanitizeHeader clones an upstream response header with every Set-Cookie
// entry removed.
func sanitizeHeader(h http.Header) http.Header {
	clean := h.Clone()
	clean.Del("Set-Cookie")
	return clean
}

// cookieName extracts the cookie name from a raw Set-Cookie header value.
func cookieName(raw string) string {
	first, _, _ := strings.Cut(raw, ";")
	name, _, _ := strings.Cut(first, "=")
	return strings.TrimSpace(name)
}
