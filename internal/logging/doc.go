// Package logging wires log/slog with the console and JSON handlers used
// throughout turnstile, plus attribute helpers and context-derived fields.
package logging
