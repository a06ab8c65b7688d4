package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// credentialKeys are attribute keys whose values are always masked.
// They mirror the request headers and settings that carry credentials
// in fuzzer transcripts.
var credentialKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"api_key":             true,
	"apikey":              true,
	"dsn":                 true,
}

// credentialKeywords mask any key that contains them, e.g. "db_password".
var credentialKeywords = []string{"password", "passwd", "secret", "token", "auth", "credential"}

// secret is a credential embedded in free text such as a transcript
// excerpt quoted in an error. Only the matched part is replaced.
type secret struct {
	pattern     *regexp.Regexp
	replacement string
}

// secrets are applied in order.
var secrets = []secret{
	// PEM private keys, possibly cut off by the excerpt limit.
	{
		pattern:     regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?(?:-----END [A-Z ]*PRIVATE KEY-----|$)`),
		replacement: MaskValue,
	},
	// Cookie headers carry several pairs up to the end of the line.
	{
		pattern:     regexp.MustCompile(`(?i)\b((?:set-)?cookie["']?\s*[:=]\s*["']?)[^\r\n"']+`),
		replacement: "${1}" + MaskValue,
	},
	// Credential headers, including an optional auth scheme.
	{
		pattern:     regexp.MustCompile(`(?i)\b((?:proxy-)?authorization|x-api-key|x-auth-token|api[_-]?key)(["']?\s*[:=]\s*["']?)(?:(?:bearer|basic|token)\s+)?[^\s"',;}]+`),
		replacement: "${1}${2}" + MaskValue,
	},
	{
		pattern:     regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9._~+/=-]{8,}`),
		replacement: "${1} " + MaskValue,
	},
	// JWTs sent as query parameters or bodies.
	{
		pattern:     regexp.MustCompile(`\beyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`),
		replacement: MaskValue,
	},
	{
		pattern:     regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		replacement: MaskValue,
	},
	// User info in URLs: error tracker DSNs, database URLs.
	{
		pattern:     regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://)[^/\s:@]+(?::[^/\s@]*)?@`),
		replacement: "${1}" + MaskValue + "@",
	},
}

// Redact replaces credentials embedded in s with MaskValue.
// Text without credentials is returned unchanged.
func Redact(s string) string {
	for _, sec := range secrets {
		s = sec.pattern.ReplaceAllString(s, sec.replacement)
	}
	return s
}

// isCredentialKey reports whether values logged under key must be masked.
func isCredentialKey(key string) bool {
	key = strings.ToLower(key)
	if credentialKeys[key] {
		return true
	}
	for _, kw := range credentialKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// SecureHandler wraps an slog.Handler and masks credentials before records
// reach it. Messages, string attributes and errors are passed through Redact.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a SecureHandler writing to handler.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	return &SecureHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(redacted)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, ga := range group {
			redacted[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		if isCredentialKey(a.Key) {
			return slog.String(a.Key, MaskValue)
		}
		if s := a.Value.String(); Redact(s) != s {
			return slog.String(a.Key, Redact(s))
		}
	case slog.KindAny:
		if isCredentialKey(a.Key) {
			return slog.String(a.Key, MaskValue)
		}
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Redact(err.Error()))
		}
	default:
		if isCredentialKey(a.Key) {
			return slog.String(a.Key, MaskValue)
		}
	}
	return a
}

// NewSecureLogger returns a text logger writing to w (normally stderr)
// through a SecureHandler. It logs at Warn, or at Debug when verbose is set.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
