package gateway

import "time"

// Upstream result codes surfaced in base_resp.ret.
const (
	// RetFreqControl is the upstream's rate-abuse code. Observing it should
	// trigger a ratelimiter slowdown.
	RetFreqControl = 200013
)

// Config holds gateway configuration with environment variable support. The
// defaults model the WeChat MP admin platform; every value is overridable for
// tests and for pointing at a staging upstream.
type Config struct {
	// Origin is the single upstream origin all calls go to.
	Origin string `env:"UPSTREAM_ORIGIN" envDefault:"https://mp.weixin.qq.com"`

	// Spoofed browser identity. The upstream rejects non-browser clients.
	UserAgent string `env:"UPSTREAM_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"`

	// Handshake endpoints and parameters.
	BizLoginPath    string `env:"UPSTREAM_BIZLOGIN_PATH" envDefault:"/cgi-bin/bizlogin"`
	AccountInfoPath string `env:"UPSTREAM_ACCOUNT_INFO_PATH" envDefault:"/cgi-bin/account/info"`
	TokenParam      string `env:"UPSTREAM_TOKEN_PARAM" envDefault:"token"`

	// CorrelationCookie is the transient cookie the upstream issues during
	// start_login to correlate the handshake steps.
	CorrelationCookie string `env:"LOGIN_CORRELATION_COOKIE" envDefault:"uuid"`

	// Client-visible cookie surface.
	SessionCookie       string        `env:"SESSION_COOKIE_NAME" envDefault:"wae_session"`
	SessionCookieTTL    time.Duration `env:"SESSION_COOKIE_TTL" envDefault:"96h"`
	SwitchAccountCookie string        `env:"SWITCH_ACCOUNT_COOKIE_NAME" envDefault:"wae_switch_account"`

	// RequestTimeout bounds each outbound call so one slow upstream response
	// cannot pin a rate limiter slot indefinitely.
	RequestTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`

	// SlowdownWindow is how long elevated rate-limit spacing stays active
	// after the upstream signals frequency control.
	SlowdownWindow time.Duration `env:"RATELIMIT_SLOWDOWN_WINDOW" envDefault:"5m"`
}

// DefaultConfig returns a Config with the production upstream defaults.
func DefaultConfig() Config {
	return Config{
		Origin:              "https://mp.weixin.qq.com",
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		BizLoginPath:        "/cgi-bin/bizlogin",
		AccountInfoPath:     "/cgi-bin/account/info",
		TokenParam:          "token",
		CorrelationCookie:   "uuid",
		SessionCookie:       "wae_session",
		SessionCookieTTL:    96 * time.Hour,
		SwitchAccountCookie: "wae_switch_account",
		RequestTimeout:      30 * time.Second,
		SlowdownWindow:      5 * time.Minute,
	}
}
