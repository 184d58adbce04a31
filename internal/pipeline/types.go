package pipeline

import "time"

// State tracks one run of the pipeline.
type State int

const (
	// StateIdle means no run has started yet
	StateIdle State = iota

	// StateRunning means rows are being processed
	StateRunning

	// StateCompleted means every row was attempted
	StateCompleted

	// StateAborted means the run stopped before attempting every row
	StateAborted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// RowStatus tags the outcome of one data row.
type RowStatus int

const (
	// RowStatusDone means the row's URL was written back
	RowStatusDone RowStatus = iota

	// RowStatusSkipped means the source cell was empty
	RowStatusSkipped

	// RowStatusFailed means synthesis, publish or write-back failed
	RowStatusFailed
)

// String returns the string representation of the row status
func (s RowStatus) String() string {
	switch s {
	case RowStatusDone:
		return "done"
	case RowStatusSkipped:
		return "skipped"
	case RowStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RowResult is the outcome of one data row. URL and Err can both be
// set: a write-back failure after a successful publish leaves the
// object orphaned but reachable.
type RowResult struct {
	Row    int64
	Text   string
	URL    string
	Status RowStatus
	Err    error
}

// Summary aggregates one full run.
type Summary struct {
	Rows          int
	Succeeded     int
	Skipped       int
	Failed        int
	BytesUploaded int64
	Elapsed       time.Duration
	Results       []RowResult
}
