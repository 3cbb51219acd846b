package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand    = errors.New("unknown command type")
	ErrUnknownBotMessage = errors.New("unknown bot message shape")
)

// CommandType is the unified (camelCase) outbound vocabulary.
type CommandType string

const (
	CommandSay          CommandType = "say"
	CommandHangUp       CommandType = "hangUp"
	CommandClearQueue   CommandType = "clearQueue"
	CommandDTMF         CommandType = "dtmf"
	CommandTransfer     CommandType = "transfer"
	CommandSetConfig    CommandType = "setConfig"
	CommandRemoveConfig CommandType = "removeConfig"
)

// Command is a closed set of outbound call-control actions.
type Command interface {
	Type() CommandType
	Config() string
	isCommand()
}

type SayCommand struct {
	ConfigID           string              `json:"configId"`
	Phone              string              `json:"phone"`
	Message            BotMessage          `json:"message"`
	MessageID          string              `json:"messageId"`
	TaskID             *int64              `json:"taskId,omitempty"`
	DialogID           string              `json:"dialogId,omitempty"`
	InterruptionWindow *InterruptionWindow `json:"interruptionWindow,omitempty"`
}

type HangUpCommand struct {
	ConfigID string `json:"configId"`
	Phone    string `json:"phone"`
	TaskID   *int64 `json:"taskId,omitempty"`
	DialogID string `json:"dialogId,omitempty"`
}

type ClearQueueCommand struct {
	ConfigID string `json:"configId"`
}

type DTMFCommand struct {
	ConfigID    string `json:"configId"`
	Phone       string `json:"phone"`
	DTMF        string `json:"dtmf"`
	RepeatCount int    `json:"repeatCount"`
}

type TransferCommand struct {
	ConfigID   string `json:"configId"`
	Phone      string `json:"phone"`
	TargetURI  string `json:"targetUri"`
	ReferredBy string `json:"referredBy,omitempty"`
}

type SetConfigCommand struct {
	ConfigID    string          `json:"configId"`
	Credentials SoftphoneConfig `json:"config"`
}

type RemoveConfigCommand struct {
	ConfigID string `json:"configId"`
}

func (SayCommand) Type() CommandType          { return CommandSay }
func (HangUpCommand) Type() CommandType       { return CommandHangUp }
func (ClearQueueCommand) Type() CommandType   { return CommandClearQueue }
func (DTMFCommand) Type() CommandType         { return CommandDTMF }
func (TransferCommand) Type() CommandType     { return CommandTransfer }
func (SetConfigCommand) Type() CommandType    { return CommandSetConfig }
func (RemoveConfigCommand) Type() CommandType { return CommandRemoveConfig }

func (c SayCommand) Config() string          { return c.ConfigID }
func (c HangUpCommand) Config() string       { return c.ConfigID }
func (c ClearQueueCommand) Config() string   { return c.ConfigID }
func (c DTMFCommand) Config() string         { return c.ConfigID }
func (c TransferCommand) Config() string     { return c.ConfigID }
func (c SetConfigCommand) Config() string    { return c.ConfigID }
func (c RemoveConfigCommand) Config() string { return c.ConfigID }

func (SayCommand) isCommand()          {}
func (HangUpCommand) isCommand()       {}
func (ClearQueueCommand) isCommand()   {}
func (DTMFCommand) isCommand()         {}
func (TransferCommand) isCommand()     {}
func (SetConfigCommand) isCommand()    {}
func (RemoveConfigCommand) isCommand() {}

func (c *SayCommand) UnmarshalJSON(data []byte) error {
	type alias SayCommand
	var raw struct {
		alias
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = SayCommand(raw.alias)
	if len(raw.Message) == 0 || string(raw.Message) == "null" {
		return fmt.Errorf("say: %w", ErrUnknownBotMessage)
	}
	msg, err := DecodeBotMessage(raw.Message)
	if err != nil {
		return fmt.Errorf("say: %w", err)
	}
	c.Message = msg
	return nil
}

// DecodeCommand parses a unified command, dispatching on its "type".
func DecodeCommand(data []byte) (Command, error) {
	var head struct {
		Type CommandType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	var cmd Command
	var err error
	switch head.Type {
	case CommandSay:
		var c SayCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandHangUp:
		var c HangUpCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandClearQueue:
		var c ClearQueueCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandDTMF:
		var c DTMFCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandTransfer:
		var c TransferCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandSetConfig:
		var c SetConfigCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case CommandRemoveConfig:
		var c RemoveConfigCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s command: %w", head.Type, err)
	}
	if cmd.Config() == "" {
		return nil, fmt.Errorf("invalid %s command: configId is required", head.Type)
	}
	return cmd, nil
}

// BotMessage is what a say command plays: text, a URL, a template or DTMF tones.
type BotMessage interface {
	isBotMessage()
}

type TextMessage struct {
	Text string `json:"text"`
}

type URLMessage struct {
	URL string `json:"url"`
}

type TemplateMessage struct {
	Template MessageTemplate `json:"template"`
}

type DTMFMessage struct {
	DTMF        string `json:"dtmf"`
	RepeatCount int    `json:"repeatCount"`
}

func (TextMessage) isBotMessage()     {}
func (URLMessage) isBotMessage()      {}
func (TemplateMessage) isBotMessage() {}
func (DTMFMessage) isBotMessage()     {}

type MessageTemplate struct {
	Template               string          `json:"template"`
	OriginalTextVariables  []TextVariable  `json:"originalTextVariables"`
	OriginalAudioVariables []AudioVariable `json:"originalAudioVariables"`
	CurrentTextVariables   []TextVariable  `json:"currentTextVariables"`
	AudioSource            string          `json:"audioSource"`
}

type TextVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AudioVariable struct {
	Name     string `json:"name"`
	StartMs  int64  `json:"startMs"`
	LengthMs int64  `json:"lengthMs"`
}

type InterruptionWindow struct {
	Start WindowBound `json:"start"`
	End   WindowBound `json:"end"`
}

// WindowBound is either an absolute time in ms or a fraction of the message.
type WindowBound struct {
	Time     *int64   `json:"time,omitempty"`
	Fraction *float64 `json:"fraction,omitempty"`
}

// DecodeBotMessage recognizes the message shape by its keys.
func DecodeBotMessage(data []byte) (BotMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid bot message: %w", err)
	}

	var msg BotMessage
	var err error
	switch {
	case fields["dtmf"] != nil:
		var m DTMFMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case fields["template"] != nil:
		var m TemplateMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case fields["url"] != nil:
		var m URLMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case fields["text"] != nil:
		var m TextMessage
		err = json.Unmarshal(data, &m)
		msg = m
	default:
		return nil, ErrUnknownBotMessage
	}
	if err != nil {
		return nil, fmt.Errorf("invalid bot message: %w", err)
	}
	return msg, nil
}
