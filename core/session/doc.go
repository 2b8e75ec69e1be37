// Package session maps opaque session keys to upstream credentials.
//
// A Session pairs a randomly minted key with the real upstream state it stands
// in for: the URL access token and the cookie jar obtained from a completed
// login handshake, plus the internal user who owns them. Clients only ever see
// the key; the token and cookies stay server-side.
//
// # Manager
//
// Manager fronts a Store (the durable key-value contract) with a process-local
// read cache. Reads check the cache first and fall back to the store; a stored
// session whose expiry has passed is deleted lazily on read and reported as
// ErrNotFound. There is no background sweep.
//
// Writes update the cache unconditionally, even when the durable upsert fails.
// This is a deliberate availability-over-durability trade-off: a login that
// produced valid upstream credentials stays usable on this instance for its
// lifetime, at the cost of being lost on restart if the store was down. Store
// failures are logged, never surfaced to the login path.
//
// Session keys are freshly minted per login, so two writers never race on the
// same key; last-write-wins is sufficient and the cache needs no per-key
// locking beyond the map mutex.
//
//	store := session.NewMemoryStore()
//	mgr := session.NewManager(store, session.WithTTL(4*24*time.Hour))
//
//	key, _ := session.NewKey()
//	_ = mgr.CreateOrUpdateSession(ctx, key, "TOKEN", rawSetCookies, ownerID)
//	cookieHeader, _ := mgr.GetCookieString(ctx, key)
package session
