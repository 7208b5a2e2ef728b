// Package sheets abstracts the remote spreadsheet store behind a small
// row-atomic client interface, with a Google Sheets implementation.
package sheets

import "context"

// Client is the outbound surface the writer depends on. Implementations
// must be row-atomic: no partially written row is ever observable.
type Client interface {
	// ReadHeader returns the current header row, empty when the store has
	// no header yet.
	ReadHeader(ctx context.Context) ([]string, error)
	// EnsureHeader replaces the header row with the given columns. Callers
	// only ever extend the header, never reorder or remove columns.
	EnsureHeader(ctx context.Context, columns []string) error
	// AppendRow appends one row of values below the existing data.
	AppendRow(ctx context.Context, values []string) error
}
