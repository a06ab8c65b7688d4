// Package log provides an slog logger that masks credentials.
//
// Fuzzing transcripts routinely contain the credentials a fuzzer was given:
// Authorization and Cookie headers, API keys in curl reproductions, and
// error tracker DSNs printed by the target. Parse errors quote excerpts of
// those transcripts, so everything that reaches the log passes through the
// SecureHandler first. Attributes under credential keys (cookie,
// authorization, dsn, anything containing "token" or "password") are masked
// whole; credentials inside messages, strings and errors are replaced inline
// by Redact.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Error("failed to process run",
//	    "run", "cats-ocvn-0",
//	    "error", err, // "Authorization: Bearer abc" becomes "Authorization: ***REDACTED***"
//	)
package log
