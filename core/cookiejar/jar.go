package cookiejar

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// ExpiredValue marks a cookie that must be dropped from the serialized Cookie
// header without removing its entry from the jar.
const ExpiredValue = "EXPIRED"

// Cookie is a single named cookie with its raw attributes.
type Cookie struct {
	Name  string
	Value string
	// Attributes holds the remaining Set-Cookie segments keyed by lower-cased
	// attribute name. Valueless attributes (Secure, HttpOnly) map to "true".
	Attributes map[string]string
	// ExpiresAt is the parsed "expires" attribute. Zero when the attribute is
	// absent or unparseable.
	ExpiresAt time.Time
}

// Jar is an ordered-by-first-seen collection of cookies keyed by name.
// At most one cookie exists per name. The zero value is not usable; call New
// or Parse.
type Jar struct {
	order   []string
	cookies map[string]*Cookie
}

// New returns an empty jar.
func New() *Jar {
	return &Jar{cookies: make(map[string]*Cookie)}
}

// Parse builds a jar from raw Set-Cookie header values. It never fails:
// malformed segments are kept as best-effort attributes and unparseable
// expires dates are ignored.
func Parse(rawSetCookie []string) *Jar {
	j := New()
	j.Merge(rawSetCookie)
	return j
}

// Merge parses additional raw Set-Cookie values into the jar. A name already
// present in the jar has its value and attributes replaced in place; the
// original insertion position is preserved.
func (j *Jar) Merge(rawSetCookie []string) {
	for _, raw := range rawSetCookie {
		c, ok := parseSetCookie(raw)
		if !ok {
			continue
		}

		if existing, found := j.cookies[c.Name]; found {
			existing.Value = c.Value
			existing.Attributes = c.Attributes
			existing.ExpiresAt = c.ExpiresAt
			continue
		}

		j.cookies[c.Name] = c
		j.order = append(j.order, c.Name)
	}
}

// Get returns the cookie with the given name.
func (j *Jar) Get(name string) (Cookie, bool) {
	c, ok := j.cookies[name]
	if !ok {
		return Cookie{}, false
	}
	return *c, true
}

// Set stores a bare name=value cookie, overwriting the value of an existing
// entry in place.
func (j *Jar) Set(name, value string) {
	if existing, ok := j.cookies[name]; ok {
		existing.Value = value
		return
	}
	j.cookies[name] = &Cookie{Name: name, Value: value, Attributes: map[string]string{}}
	j.order = append(j.order, name)
}

// Len returns the number of entries in the jar, including sentinel-valued ones.
func (j *Jar) Len() int {
	return len(j.order)
}

// Serialize renders the jar as a Cookie request header value in insertion
// order. Entries with an empty value or the ExpiredValue sentinel are skipped.
func (j *Jar) Serialize() string {
	var b strings.Builder
	for _, name := range j.order {
		c := j.cookies[name]
		if c.Value == "" || c.Value == ExpiredValue {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}

func parseSetCookie(raw string) (*Cookie, bool) {
	segments := strings.Split(raw, ";")
	first := strings.TrimSpace(segments[0])
	if first == "" {
		return nil, false
	}

	name, value, found := strings.Cut(first, "=")
	name = strings.TrimSpace(name)
	if !found {
		// A bare token is treated as a name with an empty value rather than
		// rejected, so one malformed header cannot poison a login response.
		value = ""
	}
	if name == "" {
		return nil, false
	}

	c := &Cookie{Name: name, Value: value, Attributes: make(map[string]string, len(segments)-1)}

	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		key, val, hasVal := strings.Cut(seg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if !hasVal {
			val = "true"
		}
		c.Attributes[key] = val

		if key == "expires" {
			if ts, err := http.ParseTime(val); err == nil {
				c.ExpiresAt = ts
			}
		}
	}

	return c, true
}

// jarEntry is the persisted form of a cookie; the slice ordering carries the
// jar's insertion order across a round trip.
type jarEntry struct {
	Name      string            `json:"name"`
	Value     string            `json:"value"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// MarshalJSON encodes the jar as an ordered array of entries.
func (j *Jar) MarshalJSON() ([]byte, error) {
	entries := make([]jarEntry, 0, len(j.order))
	for _, name := range j.order {
		c := j.cookies[name]
		e := jarEntry{Name: c.Name, Value: c.Value, Attrs: c.Attributes}
		if !c.ExpiresAt.IsZero() {
			t := c.ExpiresAt
			e.ExpiresAt = &t
		}
		entries = append(entries, e)
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the ordered-array form produced by MarshalJSON.
func (j *Jar) UnmarshalJSON(data []byte) error {
	var entries []jarEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	j.order = j.order[:0]
	j.cookies = make(map[string]*Cookie, len(entries))

	for _, e := range entries {
		c := &Cookie{Name: e.Name, Value: e.Value, Attributes: e.Attrs}
		if c.Attributes == nil {
			c.Attributes = map[string]string{}
		}
		if e.ExpiresAt != nil {
			c.ExpiresAt = *e.ExpiresAt
		}
		if _, dup := j.cookies[c.Name]; dup {
			continue
		}
		j.cookies[c.Name] = c
		j.order = append(j.order, c.Name)
	}

	return nil
}
