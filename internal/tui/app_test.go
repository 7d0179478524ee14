package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cmdbeacon/cmdbeacon/internal/client"
)

type fakeConn struct {
	responses map[string]string
	sent      []string
}

func (f *fakeConn) Send(cmd string) (string, error) {
	f.sent = append(f.sent, cmd)
	if r, ok := f.responses[cmd]; ok {
		return r, nil
	}
	return "Hello 127.0.0.1, I received: '" + cmd + "'", nil
}

func (f *fakeConn) Addr() string { return "10.0.0.2:12345" }

func sized(conn Sender) Model {
	m := New(conn)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func typeAndSend(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// roundTrip sends text and feeds the command's result back into the model.
func roundTrip(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m, cmd := typeAndSend(t, m, text)
	if cmd == nil {
		t.Fatalf("sending %q produced no command", text)
	}
	if !m.waiting {
		t.Errorf("model should wait for the response to %q", text)
	}
	next, after := m.Update(cmd())
	return next.(Model), after
}

func TestSendShowsResponse(t *testing.T) {
	conn := &fakeConn{responses: map[string]string{"NAME": "I am the server: lab-01"}}
	m, _ := roundTrip(t, sized(conn), "NAME")

	if m.waiting {
		t.Error("model still waiting after response")
	}
	v := m.View()
	if !strings.Contains(v, "I am the server: lab-01") {
		t.Errorf("view missing response:\n%s", v)
	}
	if len(conn.sent) != 1 || conn.sent[0] != "NAME" {
		t.Errorf("sent = %v", conn.sent)
	}
}

func TestMultiLineResponse(t *testing.T) {
	conn := &fakeConn{responses: map[string]string{"INFO": "Connected clients: 1\nNot available yet\nServer address: 10.0.0.2 | Port: 12345"}}
	m, _ := roundTrip(t, sized(conn), "INFO")

	n := 0
	for _, line := range m.transcript {
		if strings.Contains(line, "[SERVER]") {
			n++
		}
	}
	if n != 3 {
		t.Errorf("got %d server lines, want 3", n)
	}
}

func TestExitResponseEndsSession(t *testing.T) {
	conn := &fakeConn{responses: map[string]string{"EXIT": client.ExitResponse}}
	m, cmd := roundTrip(t, sized(conn), "EXIT")

	if !m.Ended() {
		t.Fatal("session should end on the exit response")
	}
	if m.Reason() != "Disconnect requested by server" {
		t.Errorf("Reason() = %q", m.Reason())
	}
	if cmd == nil {
		t.Fatal("exit response should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit response should return tea.Quit")
	}

	_, again := typeAndSend(t, m, "TIME")
	if again != nil {
		t.Error("no command should be sent after the session ended")
	}
}

func TestSendError(t *testing.T) {
	m := sized(&fakeConn{})
	next, _ := m.Update(ResponseMsg{Command: "TIME", Err: errors.New("broken pipe")})
	m = next.(Model)
	if !m.Ended() || !strings.Contains(m.Reason(), "broken pipe") {
		t.Errorf("Ended() = %v, Reason() = %q", m.Ended(), m.Reason())
	}

	next, _ = sized(&fakeConn{}).Update(ResponseMsg{Err: client.ErrClosed})
	if r := next.(Model).Reason(); r != "Connection closed by server" {
		t.Errorf("closed Reason() = %q", r)
	}
}

func TestBlankInputNotSent(t *testing.T) {
	conn := &fakeConn{}
	m, cmd := typeAndSend(t, sized(conn), "   ")
	if cmd != nil || m.waiting {
		t.Error("blank input should not be sent")
	}
}

func TestNoSendWhileWaiting(t *testing.T) {
	m, first := typeAndSend(t, sized(&fakeConn{}), "TIME")
	if first == nil {
		t.Fatal("first send produced no command")
	}
	if _, second := typeAndSend(t, m, "NAME"); second != nil {
		t.Error("a second command must wait for the first response")
	}
}

func TestHistory(t *testing.T) {
	m := sized(&fakeConn{})
	m, _ = roundTrip(t, m, "TIME")
	m, _ = roundTrip(t, m, "NAME")

	up := func(m Model) Model {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
		return next.(Model)
	}
	down := func(m Model) Model {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
		return next.(Model)
	}

	m = up(m)
	if got := m.input.Value(); got != "NAME" {
		t.Errorf("first ↑ = %q, want NAME", got)
	}
	m = up(m)
	m = up(m)
	if got := m.input.Value(); got != "TIME" {
		t.Errorf("↑ past start = %q, want TIME", got)
	}
	m = down(m)
	m = down(m)
	if got := m.input.Value(); got != "" {
		t.Errorf("↓ past end = %q, want empty", got)
	}
}

func TestViewBeforeSize(t *testing.T) {
	if v := New(&fakeConn{}).View(); v != "Initializing..." {
		t.Errorf("View() before WindowSizeMsg = %q", v)
	}
}

func TestViewShowsAddress(t *testing.T) {
	if v := sized(&fakeConn{}).View(); !strings.Contains(v, "10.0.0.2:12345") {
		t.Errorf("view missing server address:\n%s", v)
	}
}
