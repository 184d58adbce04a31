// Package ui provides the terminal UI for a sheetvox run.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sheetvox/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	te "github.com/muesli/termenv"
)

const (
	statusMessageTimeout = time.Second * 2 // how long to show status messages like "Copied URL"
	ellipsis             = "…"
	defaultTailSize      = 8
)

// Runner starts the pipeline with the given reporter. The UI owns the
// run's lifetime: cancelling the context must make the runner return.
type Runner func(ctx context.Context, reporter pipeline.Reporter) (*pipeline.Summary, error)

// NewProgram returns a new Tea program for a pipeline run.
func NewProgram(cfg Config, run Runner) *tea.Program {
	log.Debug(
		"Starting sheetvox",
		"sheet", cfg.SheetRef,
		"source", cfg.SourceColumn,
		"target", cfg.TargetColumn,
	)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	te.SetWindowTitle("sheetvox")
	return tea.NewProgram(newModel(cfg, run), opts...)
}

// RunError reports the failure that ended a finished program, if any.
// A run the user aborted is not a failure.
func RunError(finalModel tea.Model) error {
	m, ok := finalModel.(model)
	if !ok {
		return nil
	}
	return m.fatalErr
}

type (
	runStartedMsg struct {
		ch chan tea.Msg
	}

	rowStartedMsg struct {
		row  int64
		text string
	}

	runFinishedMsg struct {
		summary *pipeline.Summary
		err     error
	}
)

type (
	rowCountMsg             int
	rowFinishedMsg          pipeline.RowResult
	statusMessageTimeoutMsg struct{}
)

// state is the top-level application state.
type state int

const (
	stateRunning state = iota
	stateSummary
)

func (s state) String() string {
	return map[state]string{
		stateRunning: "running",
		stateSummary: "showing summary",
	}[s]
}

// bridgeReporter forwards pipeline progress onto the program's message
// channel. Sends block until the update loop consumes the previous
// message, which keeps row events in order. The final summary arrives
// from the runner itself, so RunDone has nothing to add.
type bridgeReporter struct {
	ch chan<- tea.Msg
}

func (r bridgeReporter) RunStarted(rows int) { r.ch <- rowCountMsg(rows) }

func (r bridgeReporter) RowStarted(row int64, text string) {
	r.ch <- rowStartedMsg{row: row, text: text}
}

func (r bridgeReporter) RowDone(result pipeline.RowResult) {
	r.ch <- rowFinishedMsg(result)
}

func (r bridgeReporter) RunDone(pipeline.Summary) {}

var _ pipeline.Reporter = bridgeReporter{}

type model struct {
	cfg      Config
	state    state
	fatalErr error

	run    Runner
	ctx    context.Context
	cancel context.CancelFunc

	spinner  spinner.Model
	progress progress.Model

	width  int
	height int

	// Run progress. rows stays zero until the pipeline has read the
	// source column and knows how much work there is.
	rows        int
	current     int64
	currentText string
	done        int
	tail        []pipeline.RowResult
	lastURL     string

	summary  *pipeline.Summary
	aborting bool

	statusMessage      string
	statusMessageTimer *time.Timer

	// Channel that receives progress from the pipeline run
	// (via the bridgeReporter).
	events chan tea.Msg
}

func newModel(cfg Config, run Runner) model {
	if cfg.TailSize <= 0 {
		cfg.TailSize = defaultTailSize
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	ctx, cancel := context.WithCancel(context.Background())

	return model{
		cfg:      cfg,
		state:    stateRunning,
		run:      run,
		ctx:      ctx,
		cancel:   cancel,
		spinner:  sp,
		progress: progress.New(progress.WithGradient("#1C8760", "#89F0CB"), progress.WithWidth(40)),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, startRun(m.ctx, m.run))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		// Ctrl+C always quits no matter where in the application you are.
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "q", "esc":
			if m.state == stateSummary {
				return m, tea.Quit
			}
			// Stop feeding the pipeline and wait for it to wind down;
			// the closing summary still arrives as a runFinishedMsg.
			m.aborting = true
			m.cancel()

		case "c":
			if m.lastURL == "" {
				break
			}
			// Copy using OSC 52
			te.Copy(m.lastURL)
			// Copy using native system clipboard
			_ = clipboard.WriteAll(m.lastURL)
			cmds = append(cmds, m.showStatusMessage("Copied URL"))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, min(64, msg.Width-20))

	case runStartedMsg:
		m.events = msg.ch
		cmds = append(cmds, waitForRunEvent(m.events))

	case rowCountMsg:
		m.rows = int(msg)
		cmds = append(cmds, waitForRunEvent(m.events))

	case rowStartedMsg:
		m.current = msg.row
		m.currentText = msg.text
		cmds = append(cmds, waitForRunEvent(m.events))

	case rowFinishedMsg:
		result := pipeline.RowResult(msg)
		m.current = 0
		m.done++
		if result.URL != "" {
			m.lastURL = result.URL
		}
		m.tail = append(m.tail, result)
		if len(m.tail) > m.cfg.TailSize {
			m.tail = m.tail[len(m.tail)-m.cfg.TailSize:]
		}
		if m.rows > 0 {
			cmds = append(cmds, m.progress.SetPercent(float64(m.done)/float64(m.rows)))
		}
		cmds = append(cmds, waitForRunEvent(m.events))

	case runFinishedMsg:
		if msg.err != nil && !m.aborting {
			log.Error("run failed", "error", msg.err)
			m.fatalErr = msg.err
			return m, nil
		}
		m.state = stateSummary
		m.summary = msg.summary

	case spinner.TickMsg:
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case progress.FrameMsg:
		newBar, cmd := m.progress.Update(msg)
		m.progress = newBar.(progress.Model)
		cmds = append(cmds, cmd)

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr)
	}

	var body string
	switch m.state { //nolint:exhaustive
	case stateSummary:
		body = m.summaryView()
	default:
		body = m.runView()
	}

	// Pin the status bar to the bottom of the window.
	if m.height > 0 {
		if pad := m.height - 1 - strings.Count(body, "\n"); pad > 0 {
			body += strings.Repeat("\n", pad)
		}
	}
	return body + m.statusBarView()
}

func (m model) runView() string {
	var b strings.Builder

	b.WriteString("\n")
	if m.rows > 0 {
		fmt.Fprintf(&b, "  %s %d/%d rows\n\n", m.progress.View(), m.done, m.rows)
	} else {
		fmt.Fprintf(&b, "  %s reading sheet…\n\n", m.spinner.View())
	}

	switch {
	case m.aborting:
		b.WriteString("  " + subtleStyle("Aborting, waiting for the current row…") + "\n\n")
	case m.current > 0:
		line := fmt.Sprintf("%s row %d: %s", m.spinner.View(), m.current, m.currentText)
		b.WriteString("  " + truncate.StringWithTail(line, uint(max(0, m.lineWidth()-4)), ellipsis) + "\n\n")
	}

	for _, r := range m.tail {
		b.WriteString("  " + m.tailLine(r) + "\n")
	}

	return b.String()
}

func (m model) summaryView() string {
	var b strings.Builder

	b.WriteString("\n")

	s := m.summary
	if s == nil {
		if m.rows > 0 {
			fmt.Fprintf(&b, "  Run aborted after %d of %d rows.\n", m.done, m.rows)
		} else {
			b.WriteString("  Run aborted.\n")
		}
		return b.String()
	}

	fmt.Fprintf(&b, "  Processed %d rows in %s: %s synthesized, %d skipped, %d failed.\n",
		s.Rows,
		s.Elapsed.Round(time.Millisecond),
		okStyle(fmt.Sprintf("%d", s.Succeeded)),
		s.Skipped,
		s.Failed,
	)
	fmt.Fprintf(&b, "  Uploaded %s of audio.\n\n", humanize.Bytes(uint64(s.BytesUploaded)))

	if s.Failed > 0 {
		b.WriteString("  " + failureStyle("Failed rows") + "\n")
		for _, r := range s.Results {
			if r.Status != pipeline.RowStatusFailed {
				continue
			}
			b.WriteString("  " + m.tailLine(r) + "\n")
		}
		b.WriteString("\n")
	}

	if m.lastURL != "" {
		fmt.Fprintf(&b, "  Last URL: %s\n", truncate.StringWithTail(m.lastURL, uint(max(0, m.lineWidth()-14)), ellipsis))
	}

	return b.String()
}

func (m model) tailLine(r pipeline.RowResult) string {
	var line string
	switch r.Status {
	case pipeline.RowStatusDone:
		line = fmt.Sprintf("%s row %d  %s", okStyle("✓"), r.Row, r.URL)
	case pipeline.RowStatusSkipped:
		line = subtleStyle(fmt.Sprintf("− row %d  empty cell", r.Row))
	default:
		line = fmt.Sprintf("%s row %d  %v", failureStyle("✗"), r.Row, r.Err)
	}
	return truncate.StringWithTail(line, uint(max(0, m.lineWidth()-4)), ellipsis)
}

func (m model) statusBarView() string {
	showStatusMessage := m.statusMessage != ""

	logo := logoStyle(" sheetvox ")

	var help string
	switch {
	case m.state == stateSummary && m.lastURL != "":
		help = " c copy url · q quit "
	case m.state == stateSummary:
		help = " q quit "
	case m.lastURL != "":
		help = " c copy url · q abort "
	default:
		help = " q abort "
	}
	helpNote := statusBarHelpStyle(help)

	note := m.cfg.SheetRef
	if m.cfg.SourceColumn != "" {
		note = fmt.Sprintf("%s  %s → %s", m.cfg.SheetRef, m.cfg.SourceColumn, m.cfg.TargetColumn)
	}
	if showStatusMessage {
		note = m.statusMessage
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.lineWidth()-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	if showStatusMessage {
		note = statusBarMessageStyle(note)
	} else {
		note = statusBarNoteStyle(note)
	}

	// Empty space
	padding := max(0,
		m.lineWidth()-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := strings.Repeat(" ", padding)
	if showStatusMessage {
		emptySpace = statusBarMessageStyle(emptySpace)
	} else {
		emptySpace = statusBarNoteStyle(emptySpace)
	}

	return logo + note + emptySpace + helpNote
}

// lineWidth is the usable terminal width, with a sane fallback for the
// frames before the first WindowSizeMsg.
func (m model) lineWidth() int {
	if m.width > 0 {
		return m.width
	}
	return 80
}

// showStatusMessage sets a transient note in the status bar. The
// returned command clears it after the timeout.
func (m *model) showStatusMessage(text string) tea.Cmd {
	m.statusMessage = text
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func errorView(err error) string {
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle("ERROR"),
		err,
		subtleStyle("press any key to exit"),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

// startRun launches the pipeline in the background and hands its
// progress channel to the update loop.
func startRun(ctx context.Context, run Runner) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan tea.Msg)
		go func() {
			summary, err := run(ctx, bridgeReporter{ch: ch})
			ch <- runFinishedMsg{summary: summary, err: err}
			close(ch)
		}()
		return runStartedMsg{ch: ch}
	}
}

// waitForRunEvent reads a single progress message off the run channel.
// The update loop re-arms it after every message until the run is over.
func waitForRunEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// ETC

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
