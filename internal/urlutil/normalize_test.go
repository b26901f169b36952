package urlutil

import "testing"

// ========================================
// IsValidURL Tests
// ========================================

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"https", "https://example.com/page", true},
		{"http", "http://example.com", true},
		{"with query", "https://example.com/a?b=1", true},
		{"not a url", "not-a-valid-url", false},
		{"empty", "", false},
		{"ftp scheme", "ftp://example.com/file", false},
		{"javascript scheme", "javascript:alert(1)", false},
		{"scheme only", "https://", false},
		{"relative path", "/relative/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidURL(tt.url); got != tt.valid {
				t.Errorf("IsValidURL(%q) = %v, want %v", tt.url, got, tt.valid)
			}
		})
	}
}

// ========================================
// Normalize Tests
// ========================================

func TestNormalize_TrailingSlash(t *testing.T) {
	got := Normalize("https://example.com/article/")
	want := "https://example.com/article"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_SortsQueryParams(t *testing.T) {
	got := Normalize("https://example.com/article?b=2&a=1")
	want := "https://example.com/article?a=1&b=2"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_EquivalentURLs(t *testing.T) {
	// Pairs differing only by trailing slash or query order normalize identically.
	pairs := [][2]string{
		{"https://example.com/article/?b=2&a=1", "https://example.com/article?a=1&b=2"},
		{"https://example.com/x/", "https://example.com/x"},
		{"https://example.com/?z=9&a=1&m=5", "https://example.com?a=1&m=5&z=9"},
	}

	for _, p := range pairs {
		if Normalize(p[0]) != Normalize(p[1]) {
			t.Errorf("Normalize(%q) = %q, Normalize(%q) = %q; want equal",
				p[0], Normalize(p[0]), p[1], Normalize(p[1]))
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	urls := []string{
		"https://example.com/article/?b=2&a=1",
		"https://example.com",
		"http://example.com/path?x=1",
		"not-a-valid-url",
		"https://example.com/a?k=v2&k=v1",
	}

	for _, u := range urls {
		once := Normalize(u)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", u, once, twice)
		}
	}
}

func TestNormalize_ParseFailureReturnsInput(t *testing.T) {
	// Control characters make url.Parse fail; input must come back unchanged.
	bad := "https://example.com/\x7f"
	if got := Normalize(bad); got != bad {
		t.Errorf("Normalize(%q) = %q, want input unchanged", bad, got)
	}
}

func TestNormalize_PreservesValues(t *testing.T) {
	got := Normalize("https://example.com/s?q=hello+world&page=2")
	want := "https://example.com/s?page=2&q=hello+world"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

// ========================================
// CacheKey Tests
// ========================================

func TestCacheKey(t *testing.T) {
	k1 := CacheKey("https://example.com/article/?b=2&a=1")
	k2 := CacheKey("https://example.com/article?a=1&b=2")

	if k1 != k2 {
		t.Errorf("equivalent URLs produced different keys: %q vs %q", k1, k2)
	}
	want := "extraction:https://example.com/article?a=1&b=2"
	if k1 != want {
		t.Errorf("CacheKey() = %q, want %q", k1, want)
	}
}
