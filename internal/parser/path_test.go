package parser

import (
	"errors"
	"testing"
)

// TestNormalizePath tests reduction of URLs to their path component.
func TestNormalizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		raw      string
		expected string
	}{
		{"http://host/api/items/42?x=1", "/api/items/42"},
		{"https://host:8443/a/b#frag", "/a/b"},
		{"http://host", "/"},
		{"http://host/", "/"},
		{"/users/{user_id}", "/users/{user_id}"},
		{"/search?q=a%20b", "/search"},
		{"http://host/files/a%2Fb", "/files/a%2Fb"},
		{"  http://host/trim  ", "/trim"},
		{"", "/"},
		{"http://localhost:8080/api/items/%s%n?x=1", "/api/items/%s%n"},
		{"http://host/items/%zz", "/items/%zz"},
		{"http://host/items/a\x01b?q", "/items/a\x01b"},
		{"/redirect?to=http://evil/", "/redirect"},
		{"http://[::1/x", "/x"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()

			got, err := normalizePath(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

// TestNormalizePathInvalid tests that relative targets are malformed input.
func TestNormalizePathInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"api/items", "mailto:someone"} {
		if _, err := normalizePath(raw); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("%q: expected ErrMalformedInput, got %v", raw, err)
		}
	}
}

// TestNormalizeMethod tests method upper-casing.
func TestNormalizeMethod(t *testing.T) {
	t.Parallel()

	if got := normalizeMethod(" patch "); got != "PATCH" {
		t.Errorf("got %q, expected PATCH", got)
	}
}
