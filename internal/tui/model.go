// Package tui is the bubbletea terminal front-end: it subscribes to an
// events.Bus and renders per-file progress bars, a connection status line,
// and a go-pretty summary table once the transfer finishes.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/files"
)

// fileRow tracks one file's live progress for display and for the final
// summary table.
type fileRow struct {
	id        uint32
	name      string
	progress  float64
	done      bool
	startedAt time.Time
	finishAt  time.Time
	speed     files.SpeedCounter
	lastMbps  float64
	bar       progress.Model
}

// Model is the top-level bubbletea model driving the whole-session view.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	bus    *events.Bus

	state    string
	rows     []*fileRow
	index    map[uint32]int
	spinner  spinner.Model
	quitting bool
	fatal    error
	width    int
}

// New builds a Model subscribed to bus. Cancelling ctx (or a
// KindFatalError event) stops the subscription loop.
func New(ctx context.Context, bus *events.Bus) *Model {
	subCtx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	return &Model{
		ctx:     subCtx,
		cancel:  cancel,
		bus:     bus,
		state:   "connecting",
		index:   make(map[uint32]int),
		spinner: s,
		width:   80,
	}
}

type busMsg events.Event
type busClosedMsg struct{}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := m.bus.Next(m.ctx)
		if !ok {
			return busClosedMsg{}
		}
		return busMsg(ev)
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *Model) rowFor(id uint32, name string) *fileRow {
	if i, ok := m.index[id]; ok {
		return m.rows[i]
	}
	row := &fileRow{id: id, name: name, startedAt: time.Now()}
	row.bar = progress.New(
		progress.WithGradient(ProgressStart, ProgressEnd),
		progress.WithWidth(28),
		progress.WithoutPercentage(),
	)
	m.index[id] = len(m.rows)
	m.rows = append(m.rows, row)
	return row
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		for _, r := range m.rows {
			r.bar.Width = min(28, msg.Width-50)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		for _, r := range m.rows {
			updated, cmd := r.bar.Update(msg)
			r.bar = updated.(progress.Model)
			cmds = append(cmds, cmd)
		}

	case busMsg:
		m.handleEvent(events.Event(msg))
		if m.fatal != nil || m.allDone() {
			m.quitting = true
			return m, tea.Quit
		}
		if !m.quitting {
			cmds = append(cmds, m.listen())
		}

	case busClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindHandshakeState:
		m.state = ev.State
	case events.KindChannelOpened:
		m.state = "channel open"
	case events.KindConnected:
		m.state = "connected"
	case events.KindDisconnected:
		m.state = "disconnected"
	case events.KindManualSignalingOutput:
		m.state = "awaiting out-of-band relay"

	case events.KindInputFileNew:
		m.rowFor(ev.FileID, ev.Name)
	case events.KindOutputFileProgress, events.KindInputFileProgress:
		row := m.rowFor(ev.FileID, ev.Name)
		row.progress = ev.Progress
		if ev.Progress >= 1.0 && !row.done {
			row.done = true
			row.finishAt = time.Now()
		}
	case events.KindOutputFileFinished:
		row := m.rowFor(ev.FileID, ev.Name)
		row.done = true
		if row.finishAt.IsZero() {
			row.finishAt = time.Now()
		}
	case events.KindReportFileSpeedOut, events.KindReportFileSpeedIn:
		row := m.rowFor(ev.FileID, ev.Name)
		row.speed.Add(files.SpeedReport{FileID: ev.FileID, Timestamp: time.Now(), Bytes: uint64(ev.Bytes)})
		if mbps, ok := row.speed.Speed(); ok {
			row.lastMbps = mbps
		}

	case events.KindFatalError:
		m.fatal = ev.Err
		m.state = "error"

	case events.KindRoomAdded, events.KindRoomRemoved, events.KindRoomUserAdded, events.KindRoomUserRemoved, events.KindRoomMessageAdded:
		m.state = ev.Text
	}
}

func (m *Model) allDone() bool {
	if len(m.rows) == 0 {
		return false
	}
	for _, r := range m.rows {
		if !r.done {
			return false
		}
	}
	return true
}

// Rows exposes every tracked row, finished or not, sorted by file id, for
// the post-run summary table.
func (m *Model) Rows() []*fileRow {
	out := make([]*fileRow, len(m.rows))
	copy(out, m.rows)
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Fatal is the error reported by the core, if any.
func (m *Model) Fatal() error { return m.fatal }

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), MutedStyle.Render(m.state))

	if m.fatal != nil {
		fmt.Fprintf(&b, "%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(m.fatal.Error()))
		return b.String()
	}

	for _, row := range m.rows {
		icon := IconFile
		nameStyle := lipgloss.NewStyle()
		if row.done {
			icon = IconSuccess
			nameStyle = SuccessStyle
		}

		fmt.Fprintf(&b, "%s %s ", icon, nameStyle.Width(24).Render(truncate(row.name, 22)))
		b.WriteString(row.bar.ViewAs(row.progress))
		fmt.Fprintf(&b, " %5.1f%%", row.progress*100)
		if row.lastMbps > 0 && !row.done {
			b.WriteString(MutedStyle.Render(fmt.Sprintf(" %s", formatSpeed(row.lastMbps))))
		}
		b.WriteString("\n")
	}

	if len(m.rows) > 0 {
		b.WriteString("\n" + MutedStyle.Render("Press q to cancel"))
	}

	return b.String()
}

// Done reports whether every known file has reached completion or a fatal
// error ended the session. The program quits itself once this turns true;
// it's exposed for tests that drive Update directly without a tea.Program.
func (m *Model) Done() bool {
	return m.allDone() || m.fatal != nil
}
