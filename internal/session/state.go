package session

import (
	"encoding/json"
	"time"
)

type Phase int

const (
	Open Phase = iota
	Closing
	Closed
)

var phaseNames = map[Phase]string{
	Open:    "open",
	Closing: "closing",
	Closed:  "closed",
}

var phaseFromName = map[string]Phase{
	"open":    Open,
	"closing": Closing,
	"closed":  Closed,
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := phaseFromName[s]; ok {
		*p = v
	}
	return nil
}

// Info is the observable view of one session, as published to watchers.
type Info struct {
	ID            string     `json:"id"`
	Remote        string     `json:"remote"`
	Phase         Phase      `json:"phase"`
	StartedAt     time.Time  `json:"startedAt"`
	LastCommandAt time.Time  `json:"lastCommandAt,omitempty"`
	LastVerb      string     `json:"lastVerb,omitempty"`
	Requests      int        `json:"requests"`
	IgnoredTokens int        `json:"ignoredTokens,omitempty"` // tokens after the parameter, dropped
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
}

// Clone returns a deep copy of the Info.
func (i *Info) Clone() *Info {
	c := *i
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

func (i *Info) IsTerminal() bool {
	return i.Phase == Closed
}
