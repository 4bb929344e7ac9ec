// Package config loads, normalizes, and validates watchpost configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// a TOML file, and honours WATCHPOST_SMTP_PASSWORD so the mail password can
// stay out of the file. The resulting Config is read-only: the daemon builds
// it once and hands the same pointer to every worker at construction time.
//
// Validation failures wrap services.ErrConfiguration so callers can tell a
// bad file apart from an I/O problem.
package config
