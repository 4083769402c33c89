// Package logging wraps log/slog with the attribute helpers and context
// annotations used throughout the daemon. Loggers are constructed once at
// process start from config and passed down explicitly.
package logging
