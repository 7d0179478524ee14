// Package tui is the interactive terminal client: a transcript of the
// session above a single-line command prompt.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cmdbeacon/cmdbeacon/internal/client"
	"github.com/cmdbeacon/cmdbeacon/internal/theme"
)

// Sender is the part of client.Conn the model needs.
type Sender interface {
	Send(cmd string) (string, error)
	Addr() string
}

// ResponseMsg carries the server's answer to one command.
type ResponseMsg struct {
	Command  string
	Response string
	Err      error
}

// Model is the root Bubble Tea model.
type Model struct {
	conn Sender
	keys KeyMap

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int

	transcript []string
	history    []string
	histIdx    int

	waiting bool
	ended   bool
	reason  string
}

// New creates the root model for an established connection.
func New(conn Sender) Model {
	in := textinput.New()
	in.Placeholder = "TIME, NAME, INFO [1-5], EXIT or any text"
	in.Prompt = theme.SenderBadge("CLIENT") + " --> "
	in.CharLimit = 1024
	in.Focus()

	vp := viewport.New(80, 20)
	vp.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	return Model{
		conn:     conn,
		keys:     DefaultKeyMap(),
		input:    in,
		viewport: vp,
	}
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Ended reports whether the session is over.
func (m Model) Ended() bool {
	return m.ended
}

// Reason explains why the session ended; empty when the user quit.
func (m Model) Reason() string {
	return m.reason
}

func send(conn Sender, cmd string) tea.Cmd {
	return func() tea.Msg {
		resp, err := conn.Send(cmd)
		return ResponseMsg{Command: cmd, Response: resp, Err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		// header, input and help take one line each plus the border
		m.viewport.Height = max(msg.Height-5, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ResponseMsg:
		m.waiting = false
		switch {
		case msg.Err != nil && errors.Is(msg.Err, client.ErrClosed):
			m.ended = true
			m.reason = "Connection closed by server"
			m.appendLine(theme.StyleWarning.Render(m.reason))
			m.refresh()
			return m, tea.Quit
		case msg.Err != nil:
			m.ended = true
			m.reason = msg.Err.Error()
			m.appendLine(theme.StyleError.Render("[ERROR] " + m.reason))
			m.refresh()
			return m, tea.Quit
		case msg.Response == client.ExitResponse:
			m.ended = true
			m.reason = "Disconnect requested by server"
			m.appendLine(theme.SenderBadge("SERVER") + " --> " + theme.StyleWarning.Render(m.reason))
			m.refresh()
			return m, tea.Quit
		}
		for _, line := range strings.Split(msg.Response, "\n") {
			m.appendLine(theme.SenderBadge("SERVER") + " --> " + line)
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Send):
		cmd := m.input.Value()
		if m.waiting || m.ended || strings.TrimSpace(cmd) == "" {
			return m, nil
		}
		m.history = append(m.history, cmd)
		m.histIdx = len(m.history)
		m.input.Reset()
		m.waiting = true
		verb := lipgloss.NewStyle().Foreground(theme.VerbColor(cmd)).Render(cmd)
		m.appendLine(theme.SenderBadge("CLIENT") + " --> " + verb)
		m.refresh()
		return m, send(m.conn, cmd)

	case key.Matches(msg, m.keys.Prev):
		if m.histIdx > 0 {
			m.histIdx--
			m.input.SetValue(m.history[m.histIdx])
			m.input.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, m.keys.Next):
		if m.histIdx < len(m.history)-1 {
			m.histIdx++
			m.input.SetValue(m.history[m.histIdx])
			m.input.CursorEnd()
		} else {
			m.histIdx = len(m.history)
			m.input.Reset()
		}
		return m, nil

	case key.Matches(msg, m.keys.ClearInput):
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) appendLine(line string) {
	m.transcript = append(m.transcript, line)
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	addr := "?"
	if m.conn != nil {
		addr = m.conn.Addr()
	}
	header := theme.StyleHeader.Render("Connected to " + addr)
	if m.ended {
		header = theme.StyleWarning.Render("Session ended: " + m.reason)
	}

	prompt := m.input.View()
	if m.waiting {
		prompt = theme.StyleDimmed.Render("waiting for response...")
	}

	help := theme.StyleDimmed.Render(fmt.Sprintf("  enter:send  ↑/↓:history  pgup/pgdn:scroll  esc:quit  (%d sent)", len(m.history)))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		theme.StyleBorder.Width(max(m.width-2, 10)).Render(m.viewport.View()),
		prompt,
		help,
	)
}
