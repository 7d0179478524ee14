// Package journal records every request/response exchange of the command
// server and renders the collected records as human-readable reports.
package journal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sender identifies which side of a session produced a record.
type Sender int

const (
	Client Sender = iota
	Server
)

var senderNames = map[Sender]string{
	Client: "CLIENT",
	Server: "SERVER",
}

var senderFromName = map[string]Sender{
	"CLIENT": Client,
	"SERVER": Server,
}

func (s Sender) String() string {
	if n, ok := senderNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

func ParseSender(name string) (Sender, error) {
	if s, ok := senderFromName[name]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unknown sender %q", name)
}

func (s Sender) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Sender) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, err := ParseSender(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Record is one side of one protocol exchange. Records are never mutated
// after creation.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Sender    Sender    `json:"sender"`
	Peer      string    `json:"peer"`
	Content   string    `json:"content"`
}

// TimestampLayout is the layout used in the XML journal and reports.
const TimestampLayout = "2006-01-02 15:04:05"
