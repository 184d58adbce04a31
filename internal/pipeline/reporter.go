package pipeline

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Reporter receives progress callbacks from a run. Calls arrive in
// row order from a single goroutine.
type Reporter interface {
	RunStarted(rows int)
	RowStarted(row int64, text string)
	RowDone(result RowResult)
	RunDone(summary Summary)
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) RunStarted(int)           {}
func (NopReporter) RowStarted(int64, string) {}
func (NopReporter) RowDone(RowResult)        {}
func (NopReporter) RunDone(Summary)          {}

// LogReporter writes per-row outcomes to the log. It is the reporter
// for plain (non-TUI) runs.
type LogReporter struct{}

// RunStarted implements Reporter.
func (LogReporter) RunStarted(rows int) {
	log.Info("processing sheet", "rows", rows)
}

// RowStarted implements Reporter.
func (LogReporter) RowStarted(row int64, text string) {
	log.Debug("processing row", "row", row, "chars", len(text))
}

// RowDone implements Reporter.
func (LogReporter) RowDone(result RowResult) {
	switch result.Status {
	case RowStatusDone:
		log.Info("row done", "row", result.Row, "url", result.URL)
	case RowStatusSkipped:
		// The orchestrator already warned about the empty cell.
	case RowStatusFailed:
		log.Error("row failed", "row", result.Row, "error", result.Err)
	}
}

// RunDone implements Reporter.
func (LogReporter) RunDone(summary Summary) {
	log.Info("run complete",
		"rows", summary.Rows,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"uploaded", humanize.Bytes(uint64(summary.BytesUploaded)),
		"elapsed", summary.Elapsed.Round(time.Millisecond))
}
