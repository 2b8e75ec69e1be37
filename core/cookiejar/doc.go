// Package cookiejar implements a name-keyed, order-preserving cookie collection
// for upstream Set-Cookie headers.
//
// Unlike net/http/cookiejar, which models the full RFC 6265 storage policy of a
// browser, this package keeps exactly what the proxy layer needs: a
// deduplicated set of cookies parsed from raw Set-Cookie values, re-serialized
// as a single Cookie request header. Domain and path scoping are intentionally
// not enforced because every cookie in a jar belongs to one fixed upstream
// origin.
//
// # Parsing
//
// Parse never fails. Each raw header is split on ";"; the first segment is the
// name=value pair (the value may itself contain "="), the remaining segments
// are attributes with lower-cased keys. Valueless attributes such as Secure are
// stored as "true". The expires attribute is additionally parsed into
// Cookie.ExpiresAt on a best-effort basis.
//
// A later cookie with an already-known name overwrites the earlier value and
// attributes in place, keeping the original insertion position. This matches
// how upstream login flows re-issue the same cookie several times during a
// handshake.
//
// # Serialization
//
//	jar := cookiejar.Parse([]string{"a=1; Path=/", "b=2; Secure"})
//	header := jar.Serialize() // "a=1; b=2"
//
// Entries with an empty value or the ExpiredValue sentinel are omitted from
// the output without being removed from the jar. The sentinel marks cookies
// that must no longer be sent upstream (for example an obsolete login
// correlation cookie) while keeping the record of their existence.
package cookiejar
