// Package writer drains the in-memory write queue into the remote sheet.
// One worker owns the header cache, evolves the header when records carry
// new columns, retries transient store errors with bounded backoff, and
// hands undeliverable records to the spool.
package writer
