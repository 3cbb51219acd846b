// Package protocol translates unified commands into the phone engine wire format.
//
// The wire format differs only syntactically: a few command types are
// snake_case and the SIP host is always a single string.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"softphone-governor/pkg/models"
)

var (
	ErrNilCommand     = errors.New("nil command")
	ErrMissingMessage = errors.New("say command has no message")
)

var wireTypes = map[models.CommandType]string{
	models.CommandSetConfig:    "set_config",
	models.CommandRemoveConfig: "remove_config",
	models.CommandClearQueue:   "clear_queue",
	models.CommandHangUp:       "hang_up",
}

// WireType returns the type string the phone engine expects; unmapped types pass through.
func WireType(t models.CommandType) string {
	if wire, ok := wireTypes[t]; ok {
		return wire
	}
	return string(t)
}

type wireSay struct {
	Type string `json:"type"`
	models.SayCommand
}

type wireHangUp struct {
	Type string `json:"type"`
	models.HangUpCommand
}

type wireClearQueue struct {
	Type string `json:"type"`
	models.ClearQueueCommand
}

type wireDTMF struct {
	Type string `json:"type"`
	models.DTMFCommand
}

type wireTransfer struct {
	Type string `json:"type"`
	models.TransferCommand
}

type wireRemoveConfig struct {
	Type string `json:"type"`
	models.RemoveConfigCommand
}

type wireSetConfig struct {
	Type     string     `json:"type"`
	ConfigID string     `json:"configId"`
	Config   wireConfig `json:"config"`
}

// wireConfig mirrors models.SoftphoneConfig with the host flattened to one string.
type wireConfig struct {
	AuthenticationID  string                    `json:"authenticationId"`
	RegisterPassword  string                    `json:"registerPassword"`
	AuthenticationURI string                    `json:"authenticationUri,omitempty"`
	RegisterRefresh   *int                      `json:"registerRefresh,omitempty"`
	CallerID          string                    `json:"callerId,omitempty"`
	HostURI           string                    `json:"hostUri,omitempty"`
	ProxyURI          *models.ProxyURI          `json:"proxyUri,omitempty"`
	Settings          *models.SoftphoneSettings `json:"settings,omitempty"`
}

func newWireConfig(cfg models.SoftphoneConfig) wireConfig {
	wc := wireConfig{
		AuthenticationID:  cfg.AuthenticationID,
		RegisterPassword:  cfg.RegisterPassword,
		AuthenticationURI: cfg.AuthenticationURI,
		RegisterRefresh:   cfg.RegisterRefresh,
		CallerID:          cfg.CallerID,
		ProxyURI:          cfg.ProxyURI,
		Settings:          cfg.Settings,
	}
	if cfg.HostURI != nil {
		wc.HostURI = cfg.HostURI.String()
	}
	return wc
}

// Encode renders cmd as the JSON body of a POST to the phone engine.
func Encode(cmd models.Command) ([]byte, error) {
	if cmd == nil {
		return nil, ErrNilCommand
	}

	wireType := WireType(cmd.Type())

	var body interface{}
	switch c := cmd.(type) {
	case models.SayCommand:
		if c.Message == nil {
			return nil, ErrMissingMessage
		}
		body = wireSay{Type: wireType, SayCommand: c}
	case models.HangUpCommand:
		body = wireHangUp{Type: wireType, HangUpCommand: c}
	case models.ClearQueueCommand:
		body = wireClearQueue{Type: wireType, ClearQueueCommand: c}
	case models.DTMFCommand:
		body = wireDTMF{Type: wireType, DTMFCommand: c}
	case models.TransferCommand:
		body = wireTransfer{Type: wireType, TransferCommand: c}
	case models.SetConfigCommand:
		body = wireSetConfig{Type: wireType, ConfigID: c.ConfigID, Config: newWireConfig(c.Credentials)}
	case models.RemoveConfigCommand:
		body = wireRemoveConfig{Type: wireType, RemoveConfigCommand: c}
	default:
		return nil, fmt.Errorf("%w: %T", models.ErrUnknownCommand, cmd)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", wireType, err)
	}
	return data, nil
}
