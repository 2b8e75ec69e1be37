// Package gateway forwards logical requests to the upstream content platform
// on behalf of internal users, without ever handing upstream credentials to
// the client.
//
// # Credential indirection
//
// In steady state (ActionNone) the outbound Cookie header is always resolved
// from the session store via the caller's opaque session key. Cookies supplied
// by the client are ignored on this path, so a leaked or replayed client
// cookie cannot impersonate a different upstream session. Upstream Set-Cookie
// headers are stripped from every passthrough response before it reaches the
// client.
//
// # Login handshake
//
// The upstream's only authentication primitive is a browser cookie jar plus a
// URL-embedded access token, obtained through a state-dependent handshake.
// The gateway models the handshake as a closed set of bootstrap actions:
//
//   - ActionStartLogin: one unauthenticated call to the login-initiation
//     endpoint. Only Set-Cookie values for the transient correlation cookie
//     are re-emitted to the client. This is the sole point where a real
//     upstream cookie crosses the trust boundary, and it carries no
//     authentication power by itself.
//   - ActionLogin: forwards the confirmation call with the correlation cookie
//     the client holds. On success the upstream answers with a redirect URL
//     carrying the access token and a full authenticated cookie set; the
//     gateway parses the token, mints a fresh opaque session key, persists the
//     credential set, and answers with exactly two Set-Cookie instructions:
//     the new key and a past-dated expiry for the correlation cookie.
//   - ActionSwitchAccount: emits a non-sensitive marker cookie telling the
//     frontend to re-fetch account display info. No session store interaction.
//
// A missing or unparseable token in the redirect URL is a *LoginError; no
// session is created.
//
// Every outbound call, bootstrap or passthrough, first waits its turn in the
// shared ratelimiter.Queue.
package gateway
