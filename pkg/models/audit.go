package models

import (
	"encoding/json"
	"time"
)

type RecordKind string

const (
	RecordInboundSignal   RecordKind = "inbound_signal"
	RecordOutboundCommand RecordKind = "outbound_command"
	RecordOutboundFailed  RecordKind = "outbound_failed"
	RecordSoftphoneLog    RecordKind = "softphone_log"
)

// Record is one audit entry: an inbound signal, an outbound attempt or a phone engine log line.
type Record struct {
	ID        string          `json:"id"`
	Time      time.Time       `json:"time"`
	Kind      RecordKind      `json:"kind"`
	Type      string          `json:"type,omitempty"`
	ConfigID  string          `json:"configId,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	DialogID  string          `json:"dialogId,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	TaskID    *int64          `json:"taskId,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SoftphoneLog is posted by the phone engine while dialing.
// Event is {"DialStarted": {}} or {"DialEnded": {"result": ...}}.
type SoftphoneLog struct {
	TaskID    int64           `json:"task_id"`
	Timestamp string          `json:"timestamp"`
	Event     json.RawMessage `json:"event"`
}

// EventName returns the single key of the event object, or "" if it has another shape.
func (l SoftphoneLog) EventName() string {
	var event map[string]json.RawMessage
	if err := json.Unmarshal(l.Event, &event); err != nil || len(event) != 1 {
		return ""
	}
	for name := range event {
		return name
	}
	return ""
}
