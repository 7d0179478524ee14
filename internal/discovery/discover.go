package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout is how long a client waits for an announcement.
const DefaultTimeout = 10 * time.Second

// Discover binds addr (e.g. ":37020") and waits up to timeout for the first
// well-formed announcement. Every failure, including the timeout, wraps
// ErrNotFound so callers can fall back to manual entry.
func Discover(ctx context.Context, addr string, timeout time.Duration) (Announcement, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return Announcement{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer pc.Close()
	return Listen(ctx, pc, timeout)
}

// Listen waits on an already bound socket. Malformed datagrams are skipped.
func Listen(ctx context.Context, pc net.PacketConn, timeout time.Duration) (Announcement, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := pc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Announcement{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	stop := context.AfterFunc(ctx, func() {
		pc.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return Announcement{}, ErrNotFound
			}
			return Announcement{}, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		a, err := ParseAnnouncement(buf[:n])
		if err != nil {
			continue
		}
		return a, nil
	}
}
