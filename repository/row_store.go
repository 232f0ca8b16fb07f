package repository

import "context"

// RowStore is a spreadsheet-like table addressed by 1-based row and 0-based
// column. Row 1 holds the header. Rows are never reordered or deleted.
type RowStore interface {
	// Rows returns every row including the header, in row order
	Rows(ctx context.Context) ([][]string, error)

	// Cell returns a single cell value, empty when unset
	Cell(ctx context.Context, row, col int) (string, error)

	// UpdateCell overwrites a single cell
	UpdateCell(ctx context.Context, row, col int, value string) error

	// AppendRow adds a row after the last one and returns its row number
	AppendRow(ctx context.Context, values []string) (int, error)

	// Reset clears the table and writes the header row
	Reset(ctx context.Context, header []string) error
}

// columnLetter converts a 0-based column index to A1 notation
func columnLetter(col int) string {
	letters := ""
	for col >= 0 {
		letters = string(rune('A'+col%26)) + letters
		col = col/26 - 1
	}
	return letters
}
