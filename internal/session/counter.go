package session

import (
	"net"
	"strconv"
	"sync"
)

// State is the server-wide state every session can read. The connected
// count is cumulative: it is incremented once per accepted connection and
// never decremented.
type State struct {
	mu        sync.Mutex
	connected int
	host      string
	port      int
}

// Snapshot is a consistent copy of State.
type Snapshot struct {
	Connected int    `json:"connected"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
}

func (s Snapshot) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func NewState(host string, port int) *State {
	return &State{host: host, port: port}
}

// Increment records one more accepted connection and returns the new total.
func (s *State) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected++
	return s.connected
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Connected: s.connected, Host: s.host, Port: s.port}
}
