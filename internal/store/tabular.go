// Package store defines the tabular record store the bot runs against: a
// row-oriented, non-transactional surface with the exact operations the
// backing spreadsheet offers. There is no compare-and-swap; concurrent
// writers from other processes can race and callers must not assume
// multi-cell atomicity.
package store

import "context"

// RangeUpdate is one range write of a batch, addressed in A1 notation
// relative to the table (e.g. "B7:B7").
type RangeUpdate struct {
	Range  string
	Values [][]string
}

// Tabular is the row-level read/write surface of one spreadsheet-like store.
// Row and column indexes are 1-based, matching sheet addressing; row 1 is the
// header row of every table.
type Tabular interface {
	// GetAllRows returns every row of the table, header included.
	GetAllRows(ctx context.Context, table string) ([][]string, error)

	// GetRow returns the cells of a single row.
	GetRow(ctx context.Context, table string, index int) ([]string, error)

	// UpdateCell writes one cell.
	UpdateCell(ctx context.Context, table string, index, col int, value string) error

	// BatchUpdate applies several range writes in one request. The ranges
	// are written together but the store gives no atomicity guarantee.
	BatchUpdate(ctx context.Context, table string, updates []RangeUpdate) error

	// AppendRow appends a row and returns its 1-based index.
	AppendRow(ctx context.Context, table string, values []string) (int, error)
}
