package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	cb "github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"node.town/scribe/capture"
	"node.town/scribe/conn"
	"node.town/scribe/notify"
	"node.town/scribe/transcript"
)

// Controls is what the dashboard needs from the capture controller.
type Controls interface {
	StartMic(ctx context.Context) error
	Stop(ctx context.Context) error
	StartStream(ctx context.Context, src capture.Source, url string) error
	Recording() bool
}

const toastTTL = 5 * time.Second

type recordingMsg bool

type streamStartedMsg struct{ err error }

type toastExpiredMsg struct{ at time.Time }

type Model struct {
	ctx      context.Context
	controls Controls
	bridge   *Bridge
	copyText func(string) error

	viewport viewport.Model
	input    textinput.Model
	ready    bool

	source    capture.Source
	recording bool
	busy      bool
	status    conn.Snapshot
	records   []transcript.Record
	toast     *notify.Notice
}

func New(ctx context.Context, controls Controls, bridge *Bridge, status conn.Snapshot) Model {
	input := textinput.New()
	input.Placeholder = "rtsp://camera.local/stream"
	input.CharLimit = 1024
	input.Prompt = "URL › "

	return Model{
		ctx:      ctx,
		controls: controls,
		bridge:   bridge,
		copyText: cb.WriteAll,
		input:    input,
		source:   capture.Mic,
		status:   status,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.bridge)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.source == capture.Mic {
				return m, tea.Quit
			}
		case "tab":
			m.source = m.source.Next()
			m.input.Placeholder = placeholder(m.source)
			if m.source == capture.Mic {
				m.input.Blur()
			} else {
				cmds = append(cmds, m.input.Focus())
			}
			return m, tea.Batch(cmds...)
		case "r", " ":
			if m.source == capture.Mic {
				cmd = m.toggleRecording()
				return m, cmd
			}
		case "y":
			if m.source == capture.Mic {
				return m, m.copyTranscript()
			}
		case "enter":
			if m.source != capture.Mic {
				cmd = m.startStream()
				return m, cmd
			}
		}

		if m.source != capture.Mic {
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		verticalMarginHeight := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMarginHeight)
			m.viewport.YPosition = headerHeight
			m.viewport.SetContent(m.logView())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMarginHeight
		}
		m.input.Width = max(10, msg.Width-20)

	case RecordMsg:
		m.records = append(m.records, transcript.Record(msg))
		m.viewport.SetContent(m.logView())
		m.viewport.GotoBottom()
		cmds = append(cmds, waitForEvent(m.bridge))

	case StatusMsg:
		m.status = conn.Snapshot(msg)
		// Capture may have been released behind our back.
		m.recording = m.controls.Recording()
		cmds = append(cmds, waitForEvent(m.bridge))

	case NoticeMsg:
		n := notify.Notice(msg)
		m.toast = &n
		cmds = append(cmds, waitForEvent(m.bridge), expireToast(n.At))

	case toastExpiredMsg:
		if m.toast != nil && m.toast.At.Equal(msg.at) {
			m.toast = nil
		}

	case recordingMsg:
		m.busy = false
		m.recording = bool(msg)

	case streamStartedMsg:
		m.busy = false
		if msg.err == nil {
			m.input.SetValue("")
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) toggleRecording() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	ctx, controls, recording := m.ctx, m.controls, m.recording
	return func() tea.Msg {
		if recording {
			_ = controls.Stop(ctx)
		} else {
			_ = controls.StartMic(ctx)
		}
		return recordingMsg(controls.Recording())
	}
}

func (m *Model) startStream() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	ctx, controls, src, url := m.ctx, m.controls, m.source, m.input.Value()
	return func() tea.Msg {
		return streamStartedMsg{err: controls.StartStream(ctx, src, url)}
	}
}

// copyTranscript puts the record contents on the system clipboard, one
// per line.
func (m Model) copyTranscript() tea.Cmd {
	lines := make([]string, len(m.records))
	for i, r := range m.records {
		lines[i] = r.Content
	}
	text, copyText, bridge := strings.Join(lines, "\n"), m.copyText, m.bridge
	return func() tea.Msg {
		if err := copyText(text); err != nil {
			bridge.Notify(notify.Errorf("Copy failed: %v", err))
			return nil
		}
		bridge.Notify(notify.Infof("Copied %d records", len(lines)))
		return nil
	}
}

func expireToast(at time.Time) tea.Cmd {
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{at: at}
	})
}

func placeholder(src capture.Source) string {
	switch src {
	case capture.HLS:
		return "https://example.com/live/index.m3u8"
	default:
		return "rtsp://camera.local/stream"
	}
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf(
		"%s\n%s\n%s",
		m.headerView(),
		m.viewport.View(),
		m.footerView(),
	)
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
)

func (m Model) headerView() string {
	title := titleStyle.Render("Transcription")
	status := " " + StatusView(m.status) + " "
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)-lipgloss.Width(status)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, status, line)
}

func (m Model) footerView() string {
	var b strings.Builder
	b.WriteString(m.sourceView())
	b.WriteString("  ")
	if m.source == capture.Mic {
		b.WriteString(RecordButton(m.recording))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")

	switch {
	case m.toast == nil:
		b.WriteString(dimStyle.Render(m.helpText()))
	case m.toast.Level == notify.Error:
		b.WriteString(errorStyle.Render(m.toast.Text))
	default:
		b.WriteString(infoStyle.Render(m.toast.Text))
	}
	return b.String()
}

func (m Model) helpText() string {
	if m.source == capture.Mic {
		return "tab: input  r/space: record  y: copy  q: quit"
	}
	return "tab: input  enter: start stream  ctrl+c: quit"
}

func (m Model) sourceView() string {
	parts := make([]string, 0, len(capture.Sources))
	for _, src := range capture.Sources {
		if src == m.source {
			parts = append(parts, titleStyle.Render(src.Label()))
		} else {
			parts = append(parts, dimStyle.Render(" "+src.Label()+" "))
		}
	}
	return strings.Join(parts, "")
}

func (m Model) logView() string {
	var content strings.Builder
	for _, r := range m.records {
		content.WriteString(RecordView(r))
		content.WriteString("\n")
	}
	return content.String()
}

var kindStyles = map[transcript.Kind]lipgloss.Style{
	transcript.Unrevised: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	transcript.Revised:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")),
	transcript.Voice:     lipgloss.NewStyle().Foreground(lipgloss.Color("#5FFF87")).Bold(true),
}

var unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AF87FF")).Italic(true)

func kindStyle(k transcript.Kind) lipgloss.Style {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return unknownStyle
}

// RecordView renders one log line: time, kind tag and content.
func RecordView(r transcript.Record) string {
	ts := time.UnixMilli(r.Timestamp).Format("15:04:05")
	style := kindStyle(r.Kind)
	return fmt.Sprintf("%s %s %s",
		dimStyle.Render(ts),
		style.Render(fmt.Sprintf("%-9s", r.Kind.String())),
		style.Render(r.Content))
}

var statusColors = map[conn.Status]lipgloss.Color{
	conn.Connecting:   lipgloss.Color("#FFD75F"),
	conn.Connected:    lipgloss.Color("#5FFF87"),
	conn.Disconnected: lipgloss.Color("#FF5F5F"),
	conn.Polling:      lipgloss.Color("#5FAFFF"),
}

func StatusView(s conn.Snapshot) string {
	lock := "ws"
	if s.Secure {
		lock = "wss 🔒"
	}
	style := lipgloss.NewStyle().Foreground(statusColors[s.Overall()])
	out := style.Render("● "+s.Overall().String()) + " " + dimStyle.Render(lock)
	if s.AudioDegraded() {
		out += " " + dimStyle.Render("(voice "+s.Audio.String()+")")
	}
	return out
}

func RecordButton(recording bool) string {
	if recording {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#D70000")).
			Padding(0, 1).
			Render("■ Stop Recording")
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFDF5")).
		Background(lipgloss.Color("#005FAF")).
		Padding(0, 1).
		Render("● Start Recording")
}
