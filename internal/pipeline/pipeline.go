// Package pipeline drives the per-row synthesize, publish, write-back
// loop over one spreadsheet column.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/sheetvox/internal/sheet"
	"github.com/dgnsrekt/sheetvox/internal/store"
)

// Source reads the text column.
type Source interface {
	ReadColumn(ctx context.Context, spreadsheetID string, col int64) ([]string, error)
}

// Sink writes one URL cell per processed row.
type Sink interface {
	WriteCell(ctx context.Context, spreadsheetID string, row, col int64, value string) error
}

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Publisher persists audio under a key and yields a public URL.
type Publisher interface {
	Publish(ctx context.Context, key string, data []byte) (string, error)
}

// Job describes one run.
type Job struct {
	// SheetRef is a spreadsheet ID or a URL carrying ?id=
	SheetRef string

	// SourceColumn and TargetColumn are single letters A-Z
	SourceColumn string
	TargetColumn string
}

// Config holds the pipeline's collaborators.
type Config struct {
	Source      Source
	Sink        Sink
	Synthesizer Synthesizer
	Publisher   Publisher

	// Reporter receives progress; nil means no progress reporting
	Reporter Reporter

	// Keys names the published objects; the zero value uses the
	// tts_audio_row{N}.mp3 scheme
	Keys store.KeyMaker
}

// Pipeline processes rows strictly in ascending order, one at a time.
// Row failures are isolated: a failed row is recorded and the loop
// moves on. Only reference resolution, column mapping and the source
// column read abort the whole run.
type Pipeline struct {
	source    Source
	sink      Sink
	synth     Synthesizer
	publisher Publisher
	reporter  Reporter
	keys      store.KeyMaker

	mu    sync.Mutex
	state State
}

// New creates a pipeline.
func New(config Config) (*Pipeline, error) {
	if config.Source == nil {
		return nil, errors.New("pipeline needs a source")
	}
	if config.Sink == nil {
		return nil, errors.New("pipeline needs a sink")
	}
	if config.Synthesizer == nil {
		return nil, errors.New("pipeline needs a synthesizer")
	}
	if config.Publisher == nil {
		return nil, errors.New("pipeline needs a publisher")
	}

	reporter := config.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	return &Pipeline{
		source:    config.Source,
		sink:      config.Sink,
		synth:     config.Synthesizer,
		publisher: config.Publisher,
		reporter:  reporter,
		keys:      config.Keys,
	}, nil
}

// State returns the current run state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// Run processes every data row of the job's source column. The
// returned error is non-nil only when the run aborted before or
// between rows; per-row failures land in the summary instead.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Summary, error) {
	p.setState(StateRunning)

	summary, err := p.run(ctx, job)
	if err != nil {
		p.setState(StateAborted)
		return nil, err
	}

	p.setState(StateCompleted)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, job Job) (*Summary, error) {
	start := time.Now()

	spreadsheetID, err := sheet.Resolve(job.SheetRef)
	if err != nil {
		return nil, err
	}

	sourceCol, err := sheet.ColumnIndex(job.SourceColumn)
	if err != nil {
		return nil, fmt.Errorf("source column: %w", err)
	}
	targetCol, err := sheet.ColumnIndex(job.TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("target column: %w", err)
	}
	if sourceCol == targetCol {
		return nil, fmt.Errorf("source and target are both column %s", sheet.ColumnLabel(sourceCol))
	}

	log.Debug("starting run",
		"spreadsheet", spreadsheetID,
		"source", sheet.ColumnLabel(sourceCol),
		"target", sheet.ColumnLabel(targetCol))

	cells, err := p.source.ReadColumn(ctx, spreadsheetID, sourceCol)
	if err != nil {
		return nil, fmt.Errorf("failed to read column %s: %w", sheet.ColumnLabel(sourceCol), err)
	}

	p.reporter.RunStarted(max(0, len(cells)-1))

	summary := &Summary{}

	// Row 1 is the header; data rows start at 2.
	for i := 1; i < len(cells); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := int64(i + 1)
		text := cells[i]
		summary.Rows++

		p.reporter.RowStarted(row, text)
		result, uploaded := p.processRow(ctx, spreadsheetID, row, targetCol, text)

		switch result.Status {
		case RowStatusDone:
			summary.Succeeded++
		case RowStatusSkipped:
			summary.Skipped++
		case RowStatusFailed:
			summary.Failed++
		}
		summary.BytesUploaded += uploaded
		summary.Results = append(summary.Results, result)

		p.reporter.RowDone(result)
	}

	summary.Elapsed = time.Since(start)
	p.reporter.RunDone(*summary)

	return summary, nil
}

// processRow runs one row end to end. The second return value is the
// number of audio bytes that actually landed in the object store.
func (p *Pipeline) processRow(ctx context.Context, spreadsheetID string, row, targetCol int64, text string) (RowResult, int64) {
	result := RowResult{Row: row, Text: text}

	if text == "" {
		log.Warn("skipping empty cell", "row", row)
		result.Status = RowStatusSkipped
		return result, 0
	}

	audio, err := p.synth.Synthesize(ctx, text)
	if err != nil {
		result.Status = RowStatusFailed
		result.Err = fmt.Errorf("row %d: %w", row, err)
		return result, 0
	}

	key := p.keys.ObjectKey(row)
	url, err := p.publisher.Publish(ctx, key, audio)
	if err != nil {
		result.Status = RowStatusFailed
		result.Err = fmt.Errorf("row %d: %w", row, err)
		return result, 0
	}
	result.URL = url

	if err := p.sink.WriteCell(ctx, spreadsheetID, row, targetCol, url); err != nil {
		// The object is already published; keep the URL in the result
		// even though the row failed.
		result.Status = RowStatusFailed
		result.Err = err
		return result, int64(len(audio))
	}

	result.Status = RowStatusDone
	return result, int64(len(audio))
}
