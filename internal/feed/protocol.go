package feed

import (
	"github.com/cmdbeacon/cmdbeacon/internal/journal"
	"github.com/cmdbeacon/cmdbeacon/internal/session"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgDelta    MessageType = "delta"
	MsgActivity MessageType = "activity"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	State    session.Snapshot `json:"state"`
	Sessions []*session.Info  `json:"sessions"`
}

type DeltaPayload struct {
	Updates []*session.Info `json:"updates"`
	Removed []string        `json:"removed,omitempty"`
}

type ActivityPayload struct {
	Record journal.Record `json:"record"`
}
