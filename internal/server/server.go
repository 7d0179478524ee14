// Package server runs the TCP command listener and its discovery beacon.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/cmdbeacon/cmdbeacon/internal/discovery"
	"github.com/cmdbeacon/cmdbeacon/internal/journal"
	"github.com/cmdbeacon/cmdbeacon/internal/session"
	"github.com/cmdbeacon/cmdbeacon/internal/sysinfo"
)

type Options struct {
	Addr       string // host:port to bind
	ReadBuffer int
	Hostname   string // reported by NAME; resolved from the OS when empty

	// AdvertiseIP overrides the address put in announcements and INFO.
	AdvertiseIP string

	BeaconTarget   string // empty disables the UDP beacon
	BeaconInterval time.Duration

	MDNSService string // empty disables mDNS registration
}

// Server owns the listener, the shared State and the beacon.
type Server struct {
	opts     Options
	recorder journal.Recorder
	store    *session.Store

	ln      net.Listener
	state   *session.State
	handler *session.Handler
}

func New(opts Options, rec journal.Recorder, store *session.Store) *Server {
	if store == nil {
		store = session.NewStore()
	}
	if opts.Hostname == "" {
		opts.Hostname = sysinfo.Hostname()
	}
	return &Server{opts: opts, recorder: rec, store: store}
}

// Listen binds the TCP listener. A bind failure is fatal to the server and
// is returned as is.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	s.ln = ln

	tcpAddr := ln.Addr().(*net.TCPAddr)
	ip := s.opts.AdvertiseIP
	if ip == "" {
		host, _, _ := net.SplitHostPort(s.opts.Addr)
		ip = sysinfo.AdvertisedIP(host)
	}
	s.state = session.NewState(ip, tcpAddr.Port)
	s.handler = session.NewHandler(session.NewDispatcher(s.state, s.opts.Hostname), s.recorder, s.store, s.opts.ReadBuffer)
	return nil
}

// Serve starts the background announcers and accepts connections until ctx
// is done. In-flight sessions are not waited for.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("server: Serve called before Listen")
	}
	snap := s.state.Snapshot()
	log.Printf("server: listening on %s (advertised as %s)", s.ln.Addr(), snap.Addr())

	if s.opts.BeaconTarget != "" {
		b := discovery.NewBeacon(discovery.Announcement{IP: snap.Host, Port: snap.Port}, s.opts.BeaconTarget, s.opts.BeaconInterval)
		go func() {
			if err := b.Run(ctx); err != nil {
				log.Printf("server: beacon stopped: %v", err)
			}
		}()
	}
	if s.opts.MDNSService != "" {
		go func() {
			if err := discovery.Advertise(ctx, "cmdbeacon-"+s.opts.Hostname, s.opts.MDNSService, snap.Port); err != nil {
				log.Printf("server: mdns stopped: %v", err)
			}
		}()
	}

	stop := context.AfterFunc(ctx, func() { s.ln.Close() })
	defer stop()

	var delay time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// Transient failures such as EMFILE: back off and retry.
			delay = min(max(delay*2, 5*time.Millisecond), time.Second)
			log.Printf("server: accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		n := s.state.Increment()
		log.Printf("server: accepted %s (connection #%d)", conn.RemoteAddr(), n)
		go s.handler.Serve(conn)
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Addr is the bound listener address; nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// State is nil before Listen.
func (s *Server) State() *session.State {
	return s.state
}
