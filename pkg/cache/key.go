package cache

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Key identifies a cached entry: normalized method plus absolute URL.
// Within one named cache, keys are unique; a Put on an existing key
// overwrites in place and makes the entry newest again.
type Key struct {
	// Method is the uppercased HTTP method (defaults to GET)
	Method string

	// URL is the normalized absolute request URL (no fragment)
	URL string
}

// NewKey builds a cache key for a request. The URL is normalized:
// lowercased scheme and host, fragment stripped, query preserved as-is.
func NewKey(req *http.Request) Key {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	u := *req.URL
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	return Key{Method: method, URL: u.String()}
}

// KeyForURL builds a GET cache key for a raw URL string. Invalid URLs
// still yield a usable key (the raw string), so lookups stay total.
func KeyForURL(rawURL string) Key {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{Method: http.MethodGet, URL: rawURL}
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return Key{Method: http.MethodGet, URL: u.String()}
}

// String generates a deterministic key string.
// Format: METHOD URL
//
// Example:
//
//	GET https://example.org/api/lookup?i=52772
func (k Key) String() string {
	return fmt.Sprintf("%s %s", k.Method, k.URL)
}

// ParseKey parses a key string produced by String.
func ParseKey(s string) (Key, error) {
	method, u, ok := strings.Cut(s, " ")
	if !ok || method == "" || u == "" {
		return Key{}, fmt.Errorf("malformed cache key %q", s)
	}
	return Key{Method: method, URL: u}, nil
}
