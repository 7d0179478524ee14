package feed

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/cmdbeacon/cmdbeacon/internal/journal"
	"github.com/cmdbeacon/cmdbeacon/internal/session"
	"github.com/gorilla/websocket"
)

// StateSource provides the server-wide counters for snapshots.
type StateSource interface {
	Snapshot() session.Snapshot
}

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func newClient(conn *websocket.Conn, b *Broadcaster) *client {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster pushes session changes and journal activity to websocket
// watchers. Session updates are coalesced for throttle; activity records
// are sent as they happen.
type Broadcaster struct {
	mu             sync.RWMutex
	clients        map[*client]bool
	store          *session.Store
	state          StateSource
	throttle       time.Duration
	snapshotTicker *time.Ticker
	stop           chan struct{}
	stopOnce       sync.Once
	pendingUpdates []*session.Info
	pendingRemoved []string
	flushTimer     *time.Timer
	flushMu        sync.Mutex
}

func NewBroadcaster(store *session.Store, state StateSource, throttle, snapshotInterval time.Duration) *Broadcaster {
	b := &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		state:    state,
		throttle: throttle,
		stop:     make(chan struct{}),
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

func (b *Broadcaster) snapshot() WSMessage {
	var st session.Snapshot
	if b.state != nil {
		st = b.state.Snapshot()
	}
	return WSMessage{
		Type: MsgSnapshot,
		Payload: SnapshotPayload{
			State:    st,
			Sessions: b.store.GetAll(),
		},
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn, b)

	// The snapshot is queued before registration so it precedes any delta.
	data, _ := json.Marshal(b.snapshot())
	c.send <- data

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// HandleEvent is a session.Store observer.
func (b *Broadcaster) HandleEvent(ev session.Event) {
	if ev.Type == session.EventClose {
		b.QueueRemoval([]string{ev.Info.ID})
		return
	}
	b.QueueUpdate([]*session.Info{ev.Info})
}

// HandleRecord is a journal observer.
func (b *Broadcaster) HandleRecord(rec journal.Record) {
	b.broadcast(WSMessage{Type: MsgActivity, Payload: ActivityPayload{Record: rec}})
}

func (b *Broadcaster) QueueUpdate(infos []*session.Info) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingUpdates = append(b.pendingUpdates, infos...)

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) QueueRemoval(ids []string) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingRemoved = append(b.pendingRemoved, ids...)

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	updates := b.pendingUpdates
	removed := b.pendingRemoved
	b.pendingUpdates = nil
	b.pendingRemoved = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(updates) == 0 && len(removed) == 0 {
		return
	}

	// A session opened and closed within one window is only reported removed.
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}
	latest := make(map[string]int, len(updates))
	var merged []*session.Info
	for _, info := range updates {
		if gone[info.ID] {
			continue
		}
		if i, ok := latest[info.ID]; ok {
			merged[i] = info
			continue
		}
		latest[info.ID] = len(merged)
		merged = append(merged, info)
	}

	b.broadcast(WSMessage{
		Type: MsgDelta,
		Payload: DeltaPayload{
			Updates: merged,
			Removed: removed,
		},
	})
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.stop:
			return
		case <-b.snapshotTicker.C:
			b.broadcast(b.snapshot())
		}
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	// Sends happen under the read lock so RemoveClient cannot close a
	// channel mid-send.
	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		// Client can't keep up, disconnect it
		log.Printf("ws client too slow, disconnecting")
		b.RemoveClient(c)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stop halts the snapshot loop and disconnects every watcher.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.snapshotTicker.Stop()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			c.close()
		}
		b.mu.Unlock()
	})
}
