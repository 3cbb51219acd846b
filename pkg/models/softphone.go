package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrInvalidHostURI = errors.New("host must be a string, {hostUri} or {domainHost, domainPort}")

// SoftphoneConfig is the SIP credential record of one tenant.
type SoftphoneConfig struct {
	AuthenticationID  string             `json:"authenticationId" yaml:"authenticationId"`
	RegisterPassword  string             `json:"registerPassword" yaml:"registerPassword"`
	AuthenticationURI string             `json:"authenticationUri,omitempty" yaml:"authenticationUri,omitempty"`
	RegisterRefresh   *int               `json:"registerRefresh,omitempty" yaml:"registerRefresh,omitempty"`
	CallerID          string             `json:"callerId,omitempty" yaml:"callerId,omitempty"`
	HostURI           *HostURI           `json:"hostUri,omitempty" yaml:"hostUri,omitempty"`
	ProxyURI          *ProxyURI          `json:"proxyUri,omitempty" yaml:"proxyUri,omitempty"`
	Settings          *SoftphoneSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

type SoftphoneSettings struct {
	MaxConcurrentCalls        *int              `json:"maxConcurrentCalls,omitempty" yaml:"maxConcurrentCalls,omitempty"`
	VAD                       string            `json:"vad,omitempty" yaml:"vad,omitempty"`
	Language                  string            `json:"language,omitempty" yaml:"language,omitempty"`
	SynthesisService          string            `json:"synthesisService,omitempty" yaml:"synthesisService,omitempty"`
	CPS                       *float64          `json:"cps,omitempty" yaml:"cps,omitempty"`
	AdditionalRecognitionTime *int              `json:"additionalRecognitionTime,omitempty" yaml:"additionalRecognitionTime,omitempty"`
	YandexSubaccount          *YandexSubaccount `json:"yandexSubaccount,omitempty" yaml:"yandexSubaccount,omitempty"`
	ElevenlabsVoice           string            `json:"elevenlabsVoice,omitempty" yaml:"elevenlabsVoice,omitempty"`
	PhoneValidationEnabled    *bool             `json:"phoneValidationEnabled,omitempty" yaml:"phoneValidationEnabled,omitempty"`
	Use8InsteadOfPlus7        *bool             `json:"use8InsteadOfPlus7,omitempty" yaml:"use8InsteadOfPlus7,omitempty"`
	Endpoints                 *Endpoints        `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	UseIPTrunk                *bool             `json:"useIpTrunk,omitempty" yaml:"useIpTrunk,omitempty"`
	PortRange                 *PortRange        `json:"portRange,omitempty" yaml:"portRange,omitempty"`
	StunServer                string            `json:"stunServer,omitempty" yaml:"stunServer,omitempty"`
}

type YandexSubaccount struct {
	FolderID            string `json:"folderId" yaml:"folderId"`
	ServiceAccountID    string `json:"serviceAccountId" yaml:"serviceAccountId"`
	ServiceAccountKeyID string `json:"serviceAccountKeyId" yaml:"serviceAccountKeyId"`
	PemKey              string `json:"pemKey" yaml:"pemKey"`
}

type Endpoints struct {
	SchedulerURL string `json:"schedulerUrl" yaml:"schedulerUrl"`
	BackendURL   string `json:"backendUrl" yaml:"backendUrl"`
}

type PortRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// HostURI is either a complete URI or a host/port pair.
type HostURI struct {
	URI  string
	Host string
	Port int
}

type hostURIShape struct {
	HostURI    string `json:"hostUri,omitempty" yaml:"hostUri,omitempty"`
	DomainHost string `json:"domainHost,omitempty" yaml:"domainHost,omitempty"`
	DomainPort int    `json:"domainPort,omitempty" yaml:"domainPort,omitempty"`
}

// String renders the single-string form, appending ":port" when a port is set.
func (h HostURI) String() string {
	if h.URI != "" {
		return h.URI
	}
	if h.Port > 0 {
		return h.Host + ":" + strconv.Itoa(h.Port)
	}
	return h.Host
}

func (h *HostURI) fromShape(s hostURIShape) error {
	switch {
	case s.HostURI != "":
		*h = HostURI{URI: s.HostURI}
	case s.DomainHost != "":
		*h = HostURI{Host: s.DomainHost, Port: s.DomainPort}
	default:
		return ErrInvalidHostURI
	}
	return nil
}

func (h HostURI) MarshalJSON() ([]byte, error) {
	if h.URI != "" {
		return json.Marshal(hostURIShape{HostURI: h.URI})
	}
	return json.Marshal(hostURIShape{DomainHost: h.Host, DomainPort: h.Port})
}

func (h *HostURI) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err == nil {
		if uri == "" {
			return ErrInvalidHostURI
		}
		*h = HostURI{URI: uri}
		return nil
	}
	var shape hostURIShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHostURI, err)
	}
	return h.fromShape(shape)
}

func (h *HostURI) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Value == "" {
			return ErrInvalidHostURI
		}
		*h = HostURI{URI: node.Value}
		return nil
	}
	var shape hostURIShape
	if err := node.Decode(&shape); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHostURI, err)
	}
	return h.fromShape(shape)
}

// ProxyURI is either {proxyUri} or {proxy: {host, port}}; the shape is preserved on the wire.
type ProxyURI struct {
	URI  string
	Host string
	Port int
}

type proxyEndpoint struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

type proxyURIShape struct {
	ProxyURI string         `json:"proxyUri,omitempty" yaml:"proxyUri,omitempty"`
	Proxy    *proxyEndpoint `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

func (p *ProxyURI) fromShape(s proxyURIShape) error {
	switch {
	case s.ProxyURI != "":
		*p = ProxyURI{URI: s.ProxyURI}
	case s.Proxy != nil && s.Proxy.Host != "":
		*p = ProxyURI{Host: s.Proxy.Host, Port: s.Proxy.Port}
	default:
		return errors.New("proxy must be {proxyUri} or {proxy: {host, port}}")
	}
	return nil
}

func (p ProxyURI) MarshalJSON() ([]byte, error) {
	if p.URI != "" {
		return json.Marshal(proxyURIShape{ProxyURI: p.URI})
	}
	return json.Marshal(proxyURIShape{Proxy: &proxyEndpoint{Host: p.Host, Port: p.Port}})
}

func (p *ProxyURI) UnmarshalJSON(data []byte) error {
	var shape proxyURIShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	return p.fromShape(shape)
}

func (p *ProxyURI) UnmarshalYAML(node *yaml.Node) error {
	var shape proxyURIShape
	if err := node.Decode(&shape); err != nil {
		return err
	}
	return p.fromShape(shape)
}
