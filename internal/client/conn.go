// Package client is the TCP side of the command protocol as seen by a user:
// dial a server, send one command, read one response.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultPort = 12345

	// ExitResponse is the server's request to end the session.
	ExitResponse = "-1"

	readBuffer  = 1024
	dialTimeout = 5 * time.Second
)

var (
	// ErrClosed is returned by Send after the session has ended.
	ErrClosed = errors.New("client: connection closed")
	// ErrEmptyCommand is returned for a blank command; zero bytes on the
	// wire would leave both sides waiting.
	ErrEmptyCommand = errors.New("client: empty command")
)

// Conn is one session with a command server. Send calls are serialized.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	addr   string
	closed bool
}

// Addr joins an IP and port the way Dial expects.
func Addr(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}

// Dial connects to addr, retrying with exponential backoff up to retries
// extra attempts. A refused connection is retried like any other dial error.
func Dial(ctx context.Context, addr string, retries uint64) (*Conn, error) {
	var (
		d    = net.Dialer{Timeout: dialTimeout}
		conn net.Conn
	)
	op := func() error {
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	// WithMaxRetries treats 0 as unlimited, so zero retries is a single dial.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if retries > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 200 * time.Millisecond
		b.MaxElapsedTime = 30 * time.Second
		policy = backoff.WithMaxRetries(b, retries)
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &Conn{conn: conn, addr: addr}, nil
}

// IsRefused reports whether err means nothing is listening at the address.
func IsRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

func (c *Conn) Addr() string {
	return c.addr
}

func (c *Conn) LocalAddr() string {
	return c.conn.LocalAddr().String()
}

// Send writes cmd as a single message and returns the next read as its
// response. When the server answers ExitResponse the connection is closed
// and the response is returned with a nil error; later calls get ErrClosed.
func (c *Conn) Send(cmd string) (string, error) {
	if cmd == "" {
		return "", ErrEmptyCommand
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}

	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		c.closeLocked()
		return "", fmt.Errorf("sending %q: %w", cmd, err)
	}

	buf := make([]byte, readBuffer)
	n, err := c.conn.Read(buf)
	if n == 0 && err != nil {
		c.closeLocked()
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("reading response: %w", err)
	}

	resp := string(buf[:n])
	if resp == ExitResponse {
		c.closeLocked()
	}
	return resp, nil
}

func (c *Conn) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
