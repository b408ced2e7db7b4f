// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     monitor
// Description: Bubbletea model showing a running engine's live state
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/signspeak/internal/companion/state"
)

// Config holds monitor configuration
type Config struct {
	ServerAddr     string
	ReconnectDelay time.Duration
	Version        string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		ServerAddr:     "127.0.0.1:8090",
		ReconnectDelay: 2 * time.Second,
		Version:        "dev",
	}
}

// Model is the bubbletea model of the monitor
type Model struct {
	// State
	width  int
	height int
	ready  bool
	online bool
	err    error
	status string

	// Components
	viewport viewport.Model
	spinner  spinner.Model

	snapshot state.Snapshot
	client   *Client
	cfg      Config
}

// New creates a monitor model
func New(cfg Config) Model {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultConfig().ReconnectDelay
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return Model{
		spinner:  sp,
		snapshot: state.Waiting(),
		cfg:      cfg,
	}
}

// Init starts the spinner and the first dial
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.dial)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3 + 7 // title + gesture panel
		footerHeight := 4     // info, status, help
		viewportHeight := msg.Height - headerHeight - footerHeight
		if viewportHeight < 3 {
			viewportHeight = 3
		}

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case spinner.TickMsg:
		if !m.online {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case connectedMsg:
		m.client = msg.client
		m.online = true
		m.err = nil
		m.status = "Connected to " + m.cfg.ServerAddr
		cmds = append(cmds, m.listen)

	case disconnectedMsg:
		if m.client != nil {
			m.client.Close()
			m.client = nil
		}
		wasOnline := m.online
		m.online = false
		m.err = msg.err
		cmds = append(cmds, tea.Tick(m.cfg.ReconnectDelay, func(t time.Time) tea.Msg {
			return reconnectMsg(t)
		}))
		if wasOnline {
			cmds = append(cmds, m.spinner.Tick)
		}

	case reconnectMsg:
		cmds = append(cmds, m.dial)

	case stateMsg:
		m.snapshot = msg.snapshot
		m.updateViewportContent()
		cmds = append(cmds, m.listen)

	case replyMsg:
		if msg.ok {
			m.status = "OK: " + msg.command
		} else {
			m.status = "Error: " + msg.message
		}
		cmds = append(cmds, m.listen)

	case sentMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			return m.quit()
		case "s":
			return m, m.send("speak", nil)
		case "a":
			return m, m.send("settings", map[string]bool{"auto_speak": !m.snapshot.AutoSpeak})
		case "g":
			return m, m.send("settings", map[string]bool{"use_gemini": !m.snapshot.UseGemini})
		case "d":
			return m, m.send("demo", nil)
		case "c":
			return m, m.send("connect", nil)
		case "t":
			return m, m.send("probe", nil)
		}

	case tea.KeyPgUp:
		m.viewport.ViewUp()
	case tea.KeyPgDown:
		m.viewport.ViewDown()
	case tea.KeyUp:
		m.viewport.LineUp(1)
	case tea.KeyDown:
		m.viewport.LineDown(1)
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.client != nil {
		m.client.Close()
	}
	return m, tea.Quit
}

// send returns a command that issues a websocket command, or nil offline
func (m Model) send(command string, payload interface{}) tea.Cmd {
	client := m.client
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		return sentMsg{command: command, err: client.Send(command, payload)}
	}
}

// dial connects to the server
func (m Model) dial() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, m.cfg.ServerAddr)
	if err != nil {
		return disconnectedMsg{err: err}
	}
	return connectedMsg{client: client}
}

// listen waits for the next server message
func (m Model) listen() tea.Msg {
	if m.client == nil {
		return nil
	}
	msg, err := m.client.Next()
	if err != nil {
		return disconnectedMsg{err: err}
	}
	return msg
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Loading monitor..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderGesture())
	b.WriteString("\n")
	b.WriteString(LogPanelStyle.Width(m.width - 2).Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) renderHeader() string {
	var status string
	switch {
	case !m.online:
		status = m.spinner.View() + StatusOfflineStyle.Render(" Engine offline")
	case m.snapshot.Demo:
		status = StatusDemoStyle.Render("Demo mode")
	case m.snapshot.Connected:
		status = StatusOnlineStyle.Render("Backend connected")
	default:
		status = StatusOfflineStyle.Render("Backend disconnected")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		LogoStyle.Render(Logo),
		strings.Repeat(" ", 3),
		status,
	)
	return TitlePanelStyle.Width(m.width - 4).Render(header)
}

func (m Model) renderGesture() string {
	s := m.snapshot
	content := lipgloss.JoinVertical(lipgloss.Center,
		GestureStyle.Render(strings.TrimSpace(s.Icon+" "+s.Gesture)),
		SentenceStyle.Render(s.Sentence),
		DescriptionStyle.Render(s.Description),
	)
	return GesturePanelStyle.Width(m.width - 4).Render(content)
}

func (m Model) renderStatusBar() string {
	s := m.snapshot
	parts := []string{
		fmt.Sprintf("%dms", s.LatencyMS),
		"lang:" + s.Language,
		"addr:" + s.Address,
		RenderFlag("speak", s.AutoSpeak),
		RenderFlag("gemini", s.UseGemini),
		fmt.Sprintf("ax %.2f ay %.2f az %.2f", s.Sensors.AX, s.Sensors.AY, s.Sensors.AZ),
	}
	if s.Failures > 0 {
		parts = append(parts, StatusOfflineStyle.Render(fmt.Sprintf("failures:%d", s.Failures)))
	}
	line := strings.Join(parts, "  ")
	if m.status != "" {
		line += "  " + HelpDescStyle.Render(m.status)
	} else if m.err != nil {
		line += "  " + StatusOfflineStyle.Render(m.err.Error())
	}
	return StatusBarStyle.Width(m.width - 2).Render(line)
}

func (m Model) renderHelpBar() string {
	items := []string{
		RenderKeyHint("s", "Speak"),
		RenderKeyHint("a", "Auto-speak"),
		RenderKeyHint("g", "Gemini"),
		RenderKeyHint("c", "Connect"),
		RenderKeyHint("t", "Test"),
		RenderKeyHint("d", "Demo"),
		RenderKeyHint("q", "Quit"),
		HelpDescStyle.Render("v" + m.cfg.Version),
	}
	return HelpStyle.Render(strings.Join(items, "  "))
}

// updateViewportContent renders the activity log, newest first
func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderLog(m.snapshot))
}

func renderLog(s state.Snapshot) string {
	var content strings.Builder
	for _, e := range s.Log {
		content.WriteString(LogTimestampStyle.Render(e.Timestamp.Format("15:04:05")))
		content.WriteString(" ")
		content.WriteString(logStyle(e.Kind).Render(e.Message))
		content.WriteString("\n")
	}
	return content.String()
}

// Run starts the monitor TUI
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
