// Package config loads, validates, and defaults the TOML configuration
// for the turnstile kiosk.
package config
