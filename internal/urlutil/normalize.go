// Package urlutil provides URL validation and normalization for cache keying.
package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// CacheKeyPrefix namespaces extraction entries in the shared cache store.
const CacheKeyPrefix = "extraction:"

// MaxURLLength is the longest URL accepted by the extraction endpoint.
const MaxURLLength = 2048

// IsValidURL reports whether raw is a well-formed absolute http or https URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Normalize canonicalizes a URL so that trivially different spellings of the
// same address produce the same cache key: a single trailing slash is stripped
// from the path and query parameters are re-serialized sorted by key (values
// unchanged). Normalization is best-effort - on parse failure the input is
// returned unchanged, since validation happens earlier and separately.
// Normalize is idempotent.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	if u.RawQuery != "" {
		u.RawQuery = sortQuery(u.RawQuery)
	}

	return u.String()
}

// CacheKey derives the server cache key for a URL. Two URLs differing only in
// trailing slash or query-parameter order map to the same key.
func CacheKey(raw string) string {
	return CacheKeyPrefix + Normalize(raw)
}

// sortQuery re-encodes a query string with keys in lexicographic order.
// Repeated keys keep their relative value order.
func sortQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
