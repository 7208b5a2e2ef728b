// Package spool persists scan records that could not be delivered to the
// sheet. Entries survive restarts and are drained back through the writer
// once connectivity returns.
package spool
