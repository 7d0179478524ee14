package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// DefaultInterval is how often the beacon re-broadcasts.
const DefaultInterval = 2 * time.Second

// Beacon periodically sends an Announcement to a UDP target, normally the
// limited broadcast address on DefaultPort.
type Beacon struct {
	Announcement Announcement
	Target       string
	Interval     time.Duration
}

func NewBeacon(a Announcement, target string, interval time.Duration) *Beacon {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Beacon{Announcement: a, Target: target, Interval: interval}
}

// Run sends the announcement immediately and then once per interval until
// ctx is done (returns nil) or a send fails (returns the error). There is no
// retry beyond the next tick.
func (b *Beacon) Run(ctx context.Context) error {
	dst, err := net.ResolveUDPAddr("udp4", b.Target)
	if err != nil {
		return fmt.Errorf("resolving beacon target %s: %w", b.Target, err)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return fmt.Errorf("opening beacon socket: %w", err)
	}
	defer conn.Close()

	payload := []byte(b.Announcement.String())
	log.Printf("beacon: announcing %s to %s every %s", b.Announcement.Addr(), dst, b.Interval)

	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()
	for {
		if _, err := conn.WriteToUDP(payload, dst); err != nil {
			return fmt.Errorf("beacon send: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
