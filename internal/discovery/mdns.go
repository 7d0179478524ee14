package discovery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/grandcat/zeroconf"
)

const mdnsDomain = "local."

// Advertise registers the server as an mDNS service until ctx is done.
func Advertise(ctx context.Context, instance, service string, port int) error {
	server, err := zeroconf.Register(instance, service, mdnsDomain, port, []string{"proto=cmdbeacon"}, nil)
	if err != nil {
		return fmt.Errorf("registering mDNS service: %w", err)
	}
	log.Printf("mdns: registered %s.%s on port %d", instance, service, port)
	<-ctx.Done()
	server.Shutdown()
	return nil
}

// Browse looks up service over mDNS and returns the first instance with an
// IPv4 address. Like Discover, every failure wraps ErrNotFound.
func Browse(ctx context.Context, service string, timeout time.Duration) (Announcement, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Announcement{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, mdnsDomain, entries); err != nil {
		return Announcement{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	for {
		select {
		case <-ctx.Done():
			return Announcement{}, ErrNotFound
		case entry, ok := <-entries:
			if !ok {
				return Announcement{}, ErrNotFound
			}
			if len(entry.AddrIPv4) == 0 || entry.Port <= 0 {
				continue
			}
			return Announcement{IP: entry.AddrIPv4[0].String(), Port: entry.Port}, nil
		}
	}
}
