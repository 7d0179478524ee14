package session

import (
	"fmt"
	"strings"
	"time"
)

const (
	VerbExit = "EXIT"
	VerbTime = "TIME"
	VerbName = "NAME"
	VerbInfo = "INFO"

	// ExitResponse tells the client the server is closing the session.
	ExitResponse = "-1"

	infoStub = "Not available yet"
)

// Dispatcher maps a command to its response. It only reads State.
type Dispatcher struct {
	state    *State
	hostname string
	now      func() time.Time
}

func NewDispatcher(state *State, hostname string) *Dispatcher {
	return &Dispatcher{state: state, hostname: hostname, now: time.Now}
}

// Dispatch returns the response for cmd sent by sess and whether the
// session must close once the response is delivered.
func (d *Dispatcher) Dispatch(cmd Command, sess *Session) (string, bool) {
	switch cmd.Verb {
	case VerbExit:
		return ExitResponse, true
	case VerbTime:
		t := d.now()
		return fmt.Sprintf("%d:%d:%d", t.Hour(), t.Minute(), t.Second()), false
	case VerbName:
		return "I am the server: " + d.hostname, false
	case VerbInfo:
		return d.info(cmd, sess), false
	default:
		return fmt.Sprintf("Hello %s, I received: '%s'", sess.RemoteHost(), cmd.Raw), false
	}
}

// info answers INFO with all five lines, or only the selected one.
func (d *Dispatcher) info(cmd Command, sess *Session) string {
	snap := d.state.Snapshot()
	lines := []string{
		fmt.Sprintf("Connected clients: %d", snap.Connected),
		infoStub,
		fmt.Sprintf("Server address: %s | Port: %d", snap.Host, snap.Port),
		fmt.Sprintf("Your address: %s", sess.Remote),
		infoStub,
	}
	if !cmd.HasParam {
		return strings.Join(lines, "\n")
	}
	switch cmd.Param {
	case "1", "2", "3", "4", "5":
		return lines[cmd.Param[0]-'1']
	}
	return fmt.Sprintf("Unknown INFO selector %q: expected 1-5", cmd.Param)
}
