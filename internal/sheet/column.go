// Package sheet provides column addressing, reference resolution, and a
// Google Sheets source/sink for the row pipeline.
package sheet

import (
	"fmt"
	"unicode"
)

// ColumnIndex maps a single column letter to its 1-based index (A→1 … Z→26).
// Input is case-insensitive. Multi-letter columns (AA, AB, …) are not
// supported; anything that is not exactly one ASCII letter fails with
// ErrInvalidColumn.
func ColumnIndex(label string) (int64, error) {
	if label == "" {
		return 0, fmt.Errorf("%w: empty label", ErrInvalidColumn)
	}

	runes := []rune(label)
	if len(runes) > 1 {
		return 0, fmt.Errorf("%w: %q (multi-letter columns are not supported)", ErrInvalidColumn, label)
	}

	r := unicode.ToUpper(runes[0])
	if r < 'A' || r > 'Z' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, label)
	}

	return int64(r-'A') + 1, nil
}

// ColumnLabel is the reverse of ColumnIndex, used to build A1-notation ranges
// and readable error messages. Indexes outside 1..26 return "?".
func ColumnLabel(index int64) string {
	if index < 1 || index > 26 {
		return "?"
	}
	return string(rune('A' + index - 1))
}
