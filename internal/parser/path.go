package parser

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// normalizePath reduces a URL or request target to its path component.
//
// Scheme, host, query and fragment are dropped. The path is kept byte for
// byte, including invalid escapes and control characters that fuzzers put
// into path parameters, so "http://h/items/%zz?x=1" becomes "/items/%zz".
// An empty path is reported as "/".
func normalizePath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	rest := raw
	if scheme, afterScheme, ok := strings.Cut(raw, "://"); ok && isURLScheme(scheme) {
		if i := strings.IndexByte(afterScheme, '/'); i >= 0 {
			rest = afterScheme[i:]
		} else {
			rest = ""
		}
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "/", nil
	}
	if rest[0] != '/' {
		return "", malformed("not an absolute url or path %q", raw)
	}
	return rest, nil
}

// isURLScheme reports whether s is an RFC 3986 scheme:
// a letter followed by letters, digits, '+', '-' or '.'.
func isURLScheme(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// normalizeMethod returns the upper-cased HTTP method.
// A Caser is stateful, so one is created per call.
func normalizeMethod(method string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(method))
}
