package session

import (
	"errors"
	"io"
	"log"
	"net"
	"time"
	"unicode/utf8"

	"github.com/cmdbeacon/cmdbeacon/internal/journal"
	"github.com/google/uuid"
)

// DefaultReadBuffer bounds one read from the connection.
const DefaultReadBuffer = 1024

// Session is the server side of one accepted connection. It is owned by the
// goroutine running Handler.Serve.
type Session struct {
	ID     string
	Remote string // host:port of the peer
	conn   net.Conn
	active bool
	info   Info
}

func newSession(conn net.Conn) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		Remote: conn.RemoteAddr().String(),
		conn:   conn,
		active: true,
	}
	s.info = Info{ID: s.ID, Remote: s.Remote, Phase: Open, StartedAt: time.Now()}
	return s
}

// RemoteHost is the peer's address without the port.
func (s *Session) RemoteHost() string {
	host, _, err := net.SplitHostPort(s.Remote)
	if err != nil {
		return s.Remote
	}
	return host
}

// Handler runs the request/response loop for sessions.
//
// The wire protocol has no framing: each Read is taken to be exactly one
// command. A command split across reads, or two commands coalesced into one
// read, is misinterpreted. Clients must send one short command and wait for
// its response before sending the next.
type Handler struct {
	dispatcher *Dispatcher
	recorder   journal.Recorder
	store      *Store
	readBuffer int
}

func NewHandler(d *Dispatcher, rec journal.Recorder, store *Store, readBuffer int) *Handler {
	if readBuffer <= 0 {
		readBuffer = DefaultReadBuffer
	}
	if store == nil {
		store = NewStore()
	}
	return &Handler{dispatcher: d, recorder: rec, store: store, readBuffer: readBuffer}
}

// Serve owns conn until the peer disconnects, sends EXIT, or an I/O error
// occurs. The connection is always closed on return.
func (h *Handler) Serve(conn net.Conn) {
	sess := newSession(conn)
	log.Printf("session %s: client connected from %s", sess.ID, sess.Remote)
	h.store.Update(EventOpen, &sess.info)

	defer func() {
		sess.active = false
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("session %s: close error: %v", sess.ID, err)
		}
		now := time.Now()
		sess.info.Phase = Closed
		sess.info.ClosedAt = &now
		h.store.Remove(&sess.info)
		log.Printf("session %s: client %s disconnected", sess.ID, sess.Remote)
	}()

	buf := make([]byte, h.readBuffer)
	for sess.active {
		n, err := conn.Read(buf)
		if n > 0 {
			if !h.exchange(sess, buf[:n]) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("session %s: read error: %v", sess.ID, err)
			}
			return
		}
	}
}

// exchange handles one inbound message and reports whether the session
// should keep reading.
func (h *Handler) exchange(sess *Session, data []byte) bool {
	if !utf8.Valid(data) {
		log.Printf("session %s: dropping connection: input is not valid UTF-8", sess.ID)
		return false
	}

	cmd := Parse(string(data))
	h.recorder.Append(journal.Client, sess.Remote, cmd.Raw)
	if cmd.Extra > 0 {
		log.Printf("session %s: ignoring %d extra token(s) after %s", sess.ID, cmd.Extra, cmd.Verb)
		sess.info.IgnoredTokens += cmd.Extra
	}

	resp, closeAfter := h.dispatcher.Dispatch(cmd, sess)
	if closeAfter {
		sess.info.Phase = Closing
	}

	if _, err := sess.conn.Write([]byte(resp)); err != nil {
		log.Printf("session %s: write error: %v", sess.ID, err)
		return false
	}
	h.recorder.Append(journal.Server, sess.Remote, resp)

	sess.info.Requests++
	sess.info.LastVerb = cmd.Verb
	sess.info.LastCommandAt = time.Now()
	h.store.Update(EventCommand, &sess.info)

	if closeAfter {
		sess.active = false
		return false
	}
	return true
}
