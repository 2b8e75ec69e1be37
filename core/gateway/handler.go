package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/logger"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/session"
	"github.com/WanHui888/wechat-article-exporter-sub001/pkg/ratelimiter"
)

// SessionKeyHeader lets API clients pass the opaque key explicitly instead of
// relying on the session cookie.
const SessionKeyHeader = "X-Session-Key"

// Handler adapts the gateway to HTTP. It resolves the session key from the
// inbound request, dispatches on the bootstrap action tag, and feeds upstream
// frequency-control signals back into the rate limiter.
type Handler struct {
	gw     *Gateway
	queue  *ratelimiter.Queue
	logger *slog.Logger
}

// NewHandler creates an HTTP adapter for the gateway.
func NewHandler(gw *Gateway, queue *ratelimiter.Queue, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{gw: gw, queue: queue, logger: log}
}

// ServeHTTP handles /api/proxy requests. The upstream path travels in the
// "path" query parameter, the bootstrap action in "action", and "json=1"
// requests a decoded JSON body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action, err := ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	switch action {
	case ActionNone:
		h.passthrough(w, r)
	case ActionStartLogin:
		h.startLogin(w, r)
	case ActionLogin:
		h.login(w, r)
	case ActionSwitchAccount:
		h.switchAccount(w, r)
	}
}

func (h *Handler) passthrough(w http.ResponseWriter, r *http.Request) {
	key := h.sessionKey(r)
	if key == "" {
		h.writeError(w, http.StatusUnauthorized, ErrMissingSessionKey)
		return
	}

	query := r.URL.Query()
	upstreamPath := query.Get("path")
	decodeJSON := query.Get("json") == "1"

	// Everything except the adapter's own parameters is forwarded upstream.
	forward := url.Values{}
	for k, vs := range query {
		switch k {
		case "path", "action", "json":
			continue
		}
		forward[k] = vs
	}

	resp, err := h.gw.Proxy(r.Context(), ProxyRequest{
		SessionKey:  key,
		Method:      r.Method,
		Path:        upstreamPath,
		Query:       forward,
		Body:        r.Body,
		ContentType: r.Header.Get("Content-Type"),
		DecodeJSON:  decodeJSON,
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.writeError(w, http.StatusUnauthorized, err)
			return
		}
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	if resp.Ret() == RetFreqControl {
		h.logger.Warn("upstream frequency control observed, slowing down",
			logger.Component("gateway"),
			logger.Path(upstreamPath),
			logger.Duration(h.gw.cfg.SlowdownWindow))
		h.queue.Slowdown(h.gw.cfg.SlowdownWindow)
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) startLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.gw.StartLogin(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	for _, raw := range result.SetCookies {
		w.Header().Add("Set-Cookie", raw)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(result.StatusCode)
	_, _ = w.Write(result.Body)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, ErrMissingUserID)
		return
	}

	result, err := h.gw.Login(r.Context(), ownerID, r.Header.Get("Cookie"))
	if err != nil {
		var loginErr *LoginError
		if errors.As(err, &loginErr) {
			h.writeError(w, http.StatusUnprocessableEntity, loginErr)
			return
		}
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	for _, c := range result.SetCookies {
		http.SetCookie(w, c)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) switchAccount(w http.ResponseWriter, r *http.Request) {
	if c := h.gw.SwitchAccount(h.sessionKey(r)); c != nil {
		http.SetCookie(w, c)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// sessionKey resolves the opaque key from the explicit header or the session
// cookie, in that order.
func (h *Handler) sessionKey(r *http.Request) string {
	if key := r.Header.Get(SessionKeyHeader); key != "" {
		return key
	}
	if c, err := r.Cookie(h.gw.cfg.SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed", logger.Component("gateway"), logger.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]any{"error": err.Error()})
}
