// Package discovery lets clients find the command server on the local
// network. The server broadcasts SERVER_DISCOVERY:<ip>:<port> datagrams on a
// well-known UDP port; a client listens for the first well-formed one.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	// Prefix starts every announcement payload.
	Prefix = "SERVER_DISCOVERY"

	// DefaultPort is the well-known UDP port announcements are sent to.
	DefaultPort = 37020

	maxDatagram = 1024
)

var (
	ErrMalformed = errors.New("discovery: malformed announcement")
	ErrNotFound  = errors.New("discovery: no server found")
)

// Announcement advertises a reachable TCP endpoint.
type Announcement struct {
	IP   string
	Port int
}

func (a Announcement) String() string {
	return fmt.Sprintf("%s:%s:%d", Prefix, a.IP, a.Port)
}

// Addr returns the announced endpoint in host:port form.
func (a Announcement) Addr() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

// ParseAnnouncement decodes a datagram payload. Anything other than exactly
// three colon-separated fields with a valid IPv4 address and port is
// rejected with ErrMalformed.
func ParseAnnouncement(payload []byte) (Announcement, error) {
	parts := strings.Split(string(payload), ":")
	if len(parts) != 3 || parts[0] != Prefix {
		return Announcement{}, ErrMalformed
	}
	ip := net.ParseIP(parts[1])
	if ip == nil || ip.To4() == nil {
		return Announcement{}, fmt.Errorf("%w: bad address %q", ErrMalformed, parts[1])
	}
	port, err := strconv.Atoi(parts[2])
	if err != nil || port <= 0 || port > 65535 {
		return Announcement{}, fmt.Errorf("%w: bad port %q", ErrMalformed, parts[2])
	}
	return Announcement{IP: parts[1], Port: port}, nil
}
