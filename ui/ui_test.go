package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/sheetvox/internal/pipeline"
)

func testURL(row int64) string {
	return fmt.Sprintf("https://voice-notes.s3.eu-west-1.amazonaws.com/tts_audio_row%d.mp3", row)
}

// drive applies messages to the model, discarding returned commands.
func drive(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(model)
	}
	return m
}

func TestUpdateRowFlow(t *testing.T) {
	m := newModel(Config{SheetRef: "test-sheet", SourceColumn: "A", TargetColumn: "B"}, nil)
	m.events = make(chan tea.Msg)

	m = drive(t, m,
		tea.WindowSizeMsg{Width: 100, Height: 30},
		rowCountMsg(3),
		rowStartedMsg{row: 2, text: "hello"},
	)

	if m.rows != 3 {
		t.Errorf("rows = %d, want 3", m.rows)
	}
	if m.current != 2 {
		t.Errorf("current = %d, want 2", m.current)
	}
	if view := m.View(); !strings.Contains(view, "row 2: hello") {
		t.Errorf("run view missing in-flight row:\n%s", view)
	}

	m = drive(t, m, rowFinishedMsg(pipeline.RowResult{
		Row:    2,
		Text:   "hello",
		URL:    testURL(2),
		Status: pipeline.RowStatusDone,
	}))

	if m.current != 0 {
		t.Errorf("current = %d, want 0 after the row finished", m.current)
	}
	if m.done != 1 {
		t.Errorf("done = %d, want 1", m.done)
	}
	if m.lastURL != testURL(2) {
		t.Errorf("lastURL = %q, want %q", m.lastURL, testURL(2))
	}
	if view := m.View(); !strings.Contains(view, "✓ row 2") {
		t.Errorf("run view missing finished row:\n%s", view)
	}
}

func TestUpdateTailKeepsRecentRows(t *testing.T) {
	m := newModel(Config{TailSize: 2}, nil)
	m.events = make(chan tea.Msg)

	for row := int64(2); row <= 4; row++ {
		m = drive(t, m, rowFinishedMsg(pipeline.RowResult{
			Row:    row,
			URL:    testURL(row),
			Status: pipeline.RowStatusDone,
		}))
	}

	if len(m.tail) != 2 {
		t.Fatalf("tail has %d rows, want 2", len(m.tail))
	}
	if m.tail[0].Row != 3 || m.tail[1].Row != 4 {
		t.Errorf("tail rows = [%d %d], want [3 4]", m.tail[0].Row, m.tail[1].Row)
	}
}

func TestUpdateSkippedAndFailedRows(t *testing.T) {
	m := newModel(Config{}, nil)
	m.events = make(chan tea.Msg)

	m = drive(t, m,
		rowCountMsg(2),
		rowFinishedMsg(pipeline.RowResult{Row: 2, Status: pipeline.RowStatusSkipped}),
		rowFinishedMsg(pipeline.RowResult{
			Row:    3,
			Status: pipeline.RowStatusFailed,
			Err:    errors.New("row 3: boom"),
		}),
	)

	if m.lastURL != "" {
		t.Errorf("lastURL = %q, want empty", m.lastURL)
	}

	view := m.View()
	if !strings.Contains(view, "− row 2  empty cell") {
		t.Errorf("view missing skipped row:\n%s", view)
	}
	if !strings.Contains(view, "✗ row 3  row 3: boom") {
		t.Errorf("view missing failed row:\n%s", view)
	}
}

func TestRunToCompletion(t *testing.T) {
	summary := &pipeline.Summary{
		Rows:          2,
		Succeeded:     2,
		BytesUploaded: 2048,
		Elapsed:       time.Second,
	}
	runner := func(_ context.Context, r pipeline.Reporter) (*pipeline.Summary, error) {
		r.RunStarted(2)
		for row := int64(2); row <= 3; row++ {
			r.RowStarted(row, "text")
			r.RowDone(pipeline.RowResult{Row: row, URL: testURL(row), Status: pipeline.RowStatusDone})
		}
		r.RunDone(*summary)
		return summary, nil
	}

	m := newModel(Config{}, runner)
	m = drive(t, m, startRun(m.ctx, m.run)())

	for {
		msg, ok := <-m.events
		if !ok {
			break
		}
		m = drive(t, m, msg)
	}

	if m.state != stateSummary {
		t.Fatalf("state = %s, want %s", m.state, stateSummary)
	}
	if m.done != 2 || m.rows != 2 {
		t.Errorf("done/rows = %d/%d, want 2/2", m.done, m.rows)
	}
	if m.lastURL != testURL(3) {
		t.Errorf("lastURL = %q, want %q", m.lastURL, testURL(3))
	}

	view := m.View()
	if !strings.Contains(view, "Processed 2 rows") {
		t.Errorf("summary view missing row count:\n%s", view)
	}
	if !strings.Contains(view, "2.0 kB") {
		t.Errorf("summary view missing upload size:\n%s", view)
	}
}

func TestQuitKeyAbortsRun(t *testing.T) {
	released := make(chan struct{})
	runner := func(ctx context.Context, _ pipeline.Reporter) (*pipeline.Summary, error) {
		<-ctx.Done()
		close(released)
		return nil, ctx.Err()
	}

	m := newModel(Config{SheetRef: "test-sheet"}, runner)
	m = drive(t, m, startRun(m.ctx, m.run)())

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.aborting {
		t.Error("q during a run should set aborting")
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel never reached the runner")
	}

	final, ok := (<-m.events).(runFinishedMsg)
	if !ok {
		t.Fatal("expected a runFinishedMsg after cancelling")
	}
	m = drive(t, m, final)

	if m.state != stateSummary {
		t.Errorf("state = %s, want %s", m.state, stateSummary)
	}
	if m.fatalErr != nil {
		t.Errorf("user abort should not be fatal, got %v", m.fatalErr)
	}
	if err := RunError(m); err != nil {
		t.Errorf("RunError = %v, want nil", err)
	}
	if view := m.View(); !strings.Contains(view, "Run aborted") {
		t.Errorf("summary view missing abort note:\n%s", view)
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := newModel(Config{}, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("ctrl+c command returned %T, want tea.QuitMsg", cmd())
	}

	select {
	case <-next.(model).ctx.Done():
	default:
		t.Error("ctrl+c should cancel the run context")
	}
}

func TestRunFailureIsFatal(t *testing.T) {
	runErr := errors.New("failed to read column A: no worksheets")

	m := newModel(Config{}, nil)
	m = drive(t, m, runFinishedMsg{err: runErr})

	if m.fatalErr == nil {
		t.Fatal("run failure should be fatal")
	}
	if err := RunError(m); !errors.Is(err, runErr) {
		t.Errorf("RunError = %v, want %v", err, runErr)
	}
	if view := m.View(); !strings.Contains(view, "ERROR") || !strings.Contains(view, runErr.Error()) {
		t.Errorf("error view missing failure:\n%s", view)
	}

	// Any key exits once the run has failed.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd == nil {
		t.Fatal("keypress after a fatal error returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("keypress after a fatal error returned %T, want tea.QuitMsg", cmd())
	}
}

func TestBridgeReporterForwardsEvents(t *testing.T) {
	ch := make(chan tea.Msg, 3)
	r := bridgeReporter{ch: ch}

	r.RunStarted(5)
	r.RowStarted(2, "hello")
	r.RowDone(pipeline.RowResult{Row: 2, Status: pipeline.RowStatusDone})

	if msg, ok := (<-ch).(rowCountMsg); !ok || int(msg) != 5 {
		t.Errorf("first message = %#v, want rowCountMsg(5)", msg)
	}
	if msg, ok := (<-ch).(rowStartedMsg); !ok || msg.row != 2 || msg.text != "hello" {
		t.Errorf("second message = %#v", msg)
	}
	if msg, ok := (<-ch).(rowFinishedMsg); !ok || msg.Row != 2 {
		t.Errorf("third message = %#v", msg)
	}
}

func TestCopyKeyWithoutURL(t *testing.T) {
	m := newModel(Config{}, nil)

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if m.statusMessage != "" {
		t.Errorf("statusMessage = %q, want empty with nothing to copy", m.statusMessage)
	}
}

func TestStatusMessageTimesOut(t *testing.T) {
	m := newModel(Config{}, nil)

	cmd := m.showStatusMessage("Copied URL")
	if m.statusMessage != "Copied URL" {
		t.Fatalf("statusMessage = %q", m.statusMessage)
	}
	if cmd == nil {
		t.Fatal("showStatusMessage returned no timeout command")
	}
	if bar := m.statusBarView(); !strings.Contains(bar, "Copied URL") {
		t.Errorf("status bar missing message: %q", bar)
	}

	m = drive(t, m, statusMessageTimeoutMsg{})
	if m.statusMessage != "" {
		t.Errorf("statusMessage = %q, want cleared", m.statusMessage)
	}
}

func TestStateString(t *testing.T) {
	if got := stateRunning.String(); got != "running" {
		t.Errorf("stateRunning = %q", got)
	}
	if got := stateSummary.String(); got != "showing summary" {
		t.Errorf("stateSummary = %q", got)
	}
}
