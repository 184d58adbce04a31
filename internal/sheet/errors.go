package sheet

import (
	"errors"
	"fmt"
)

// Common sheet errors
var (
	// ErrInvalidColumn indicates a column label cannot be mapped to an index
	ErrInvalidColumn = errors.New("invalid column label")

	// ErrInvalidReference indicates a sheet reference cannot be resolved to a
	// spreadsheet ID
	ErrInvalidReference = errors.New("invalid sheet reference")

	// ErrNoWorksheets indicates the spreadsheet contains no worksheets
	ErrNoWorksheets = errors.New("spreadsheet has no worksheets")

	// ErrWriteFailed indicates a cell update failed
	ErrWriteFailed = errors.New("cell write failed")
)

// WriteError carries the cell coordinates of a failed update so callers can
// report which row was left without its URL.
type WriteError struct {
	Row    int64
	Column int64
	Cause  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("writing cell %s%d: %v", ColumnLabel(e.Column), e.Row, e.Cause)
}

// Unwrap returns ErrWriteFailed so errors.Is matches, chained to the cause.
func (e *WriteError) Unwrap() []error {
	return []error{ErrWriteFailed, e.Cause}
}
