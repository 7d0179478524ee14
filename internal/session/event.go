package session

// EventType classifies session lifecycle events.
type EventType int

const (
	EventOpen    EventType = iota // connection accepted
	EventCommand                  // one request/response exchange finished
	EventClose                    // connection closed, either end
)

// Event carries a session snapshot to observers.
type Event struct {
	Type        EventType
	Info        *Info // snapshot (safe to retain)
	ActiveCount int   // open sessions at event time
}
