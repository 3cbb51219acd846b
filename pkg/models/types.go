package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingSignal   = errors.New("envelope has no signal")
	ErrMalformedSignal = errors.New("signal is not valid JSON")
)

// SignalType tags the inbound signal variants
type SignalType string

const (
	SignalEvent            SignalType = "event"
	SignalNewUserPhrase    SignalType = "new_user_phrase"
	SignalMessageDelivered SignalType = "message_delivered"
	SignalUnknown          SignalType = "unknown"
)

type EventType string

const (
	EventCallStart EventType = "call_start"
	EventCallEnd   EventType = "call_end"
)

type Direction string

const (
	DirectionIncoming Direction = "Incoming"
	DirectionOutgoing Direction = "Outgoing"
)

// Signal is a closed set: EventSignal, UserPhraseSignal, DeliveredSignal, UnknownSignal.
type Signal interface {
	Type() SignalType
	isSignal()
}

// EventSignal drives the dialog lifecycle.
type EventSignal struct {
	Direction Direction `json:"direction,omitempty"`
	EventType EventType `json:"eventType"`
}

// UserPhraseSignal carries one recognized user utterance.
type UserPhraseSignal struct {
	MessageID            string `json:"messageId"`
	Message              string `json:"message"`
	AudioURL             string `json:"audioUrl,omitempty"`
	InterruptedMessageID string `json:"interruptedMessageId,omitempty"`
}

// DeliveredSignal acknowledges that an outbound message was played.
type DeliveredSignal struct {
	MessageID    string         `json:"messageId"`
	DeliveryDate DeliveryWindow `json:"deliveryDate"`
}

type DeliveryWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// UnknownSignal keeps whatever the sender put in a signal we don't understand.
type UnknownSignal struct {
	Kind string
	Raw  json.RawMessage
}

func (EventSignal) Type() SignalType      { return SignalEvent }
func (UserPhraseSignal) Type() SignalType { return SignalNewUserPhrase }
func (DeliveredSignal) Type() SignalType  { return SignalMessageDelivered }

func (s UnknownSignal) Type() SignalType {
	if s.Kind == "" {
		return SignalUnknown
	}
	return SignalType(s.Kind)
}

func (EventSignal) isSignal()      {}
func (UserPhraseSignal) isSignal() {}
func (DeliveredSignal) isSignal()  {}
func (UnknownSignal) isSignal()    {}

func (s EventSignal) MarshalJSON() ([]byte, error) {
	type alias EventSignal
	return json.Marshal(struct {
		Type SignalType `json:"type"`
		alias
	}{SignalEvent, alias(s)})
}

func (s UserPhraseSignal) MarshalJSON() ([]byte, error) {
	type alias UserPhraseSignal
	return json.Marshal(struct {
		Type SignalType `json:"type"`
		alias
	}{SignalNewUserPhrase, alias(s)})
}

func (s DeliveredSignal) MarshalJSON() ([]byte, error) {
	type alias DeliveredSignal
	return json.Marshal(struct {
		Type SignalType `json:"type"`
		alias
	}{SignalMessageDelivered, alias(s)})
}

func (s UnknownSignal) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(map[string]string{"type": s.Kind})
}

// Duration returns end minus start when both bounds parse as RFC 3339 timestamps.
func (w DeliveryWindow) Duration() (time.Duration, bool) {
	start, err := time.Parse(time.RFC3339Nano, w.Start)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse(time.RFC3339Nano, w.End)
	if err != nil || end.Before(start) {
		return 0, false
	}
	return end.Sub(start), true
}

// DecodeSignal picks the variant from the "type" discriminator. Anything that
// does not decode as a known variant comes back as UnknownSignal; only bytes
// that are not JSON at all are an error.
func DecodeSignal(data []byte) (Signal, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid signal: %w", ErrMalformedSignal)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return newUnknownSignal("", data), nil
	}

	var (
		signal Signal
		err    error
	)
	switch SignalType(head.Type) {
	case SignalEvent:
		var s EventSignal
		err = json.Unmarshal(data, &s)
		signal = s
	case SignalNewUserPhrase:
		var s UserPhraseSignal
		err = json.Unmarshal(data, &s)
		signal = s
	case SignalMessageDelivered:
		var s DeliveredSignal
		err = json.Unmarshal(data, &s)
		signal = s
	default:
		return newUnknownSignal(head.Type, data), nil
	}
	if err != nil {
		return newUnknownSignal(head.Type, data), nil
	}
	return signal, nil
}

func newUnknownSignal(kind string, data []byte) UnknownSignal {
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return UnknownSignal{Kind: kind, Raw: raw}
}

// Envelope wraps every inbound signal.
type Envelope struct {
	Date     string `json:"date"`
	ConfigID string `json:"configId"`
	Phone    string `json:"phone"`
	TaskID   *int64 `json:"taskId,omitempty"`
	Signal   Signal `json:"signal"`
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date     string          `json:"date"`
		ConfigID string          `json:"configId"`
		Phone    string          `json:"phone"`
		TaskID   *int64          `json:"taskId"`
		Signal   json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Signal) == 0 || string(raw.Signal) == "null" {
		return ErrMissingSignal
	}

	signal, err := DecodeSignal(raw.Signal)
	if err != nil {
		return err
	}

	*e = Envelope{
		Date:     raw.Date,
		ConfigID: raw.ConfigID,
		Phone:    raw.Phone,
		TaskID:   raw.TaskID,
		Signal:   signal,
	}
	return nil
}

// Key is the dialog session key of the envelope.
func (e Envelope) Key() DialogKey {
	return DialogKey{ConfigID: e.ConfigID, Phone: e.Phone}
}

// Time parses the envelope date, falling back to now.
func (e Envelope) Time() time.Time {
	if t, err := time.Parse(time.RFC3339Nano, e.Date); err == nil {
		return t
	}
	return time.Now().UTC()
}

// SignalResponse is returned to the phone engine for every webhook.
type SignalResponse struct {
	Success  bool   `json:"success"`
	DialogID string `json:"dialogId,omitempty"`
}

// DialogKey identifies a session: one tenant config talking to one phone number.
type DialogKey struct {
	ConfigID string `json:"configId"`
	Phone    string `json:"phone"`
}

func (k DialogKey) String() string {
	return k.ConfigID + "|" + k.Phone
}

// Dialog correlates a tenant config and a phone number across signals.
type Dialog struct {
	DialogID  string    `json:"dialogId"`
	ConfigID  string    `json:"configId"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

func (d Dialog) Key() DialogKey {
	return DialogKey{ConfigID: d.ConfigID, Phone: d.Phone}
}
