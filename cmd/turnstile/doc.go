// Package main hosts the turnstile CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the kiosk session (run), badge
// generation from roster CSVs, spool maintenance, status queries against a
// running session, and configuration scaffolding. It centralizes config
// resolution and logging setup so subcommands stay declarative; the scan
// pipeline itself lives in the internal packages.
package main
