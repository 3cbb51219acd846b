package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEnvelope_DecodesEachSignalVariant(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Signal
	}{
		{
			name: "call start",
			body: `{"date":"2025-01-01T10:00:00Z","configId":"c1","phone":"+1","signal":{"type":"event","direction":"Incoming","eventType":"call_start"}}`,
			want: EventSignal{Direction: DirectionIncoming, EventType: EventCallStart},
		},
		{
			name: "user phrase",
			body: `{"configId":"c1","phone":"+1","taskId":7,"signal":{"type":"new_user_phrase","messageId":"m1","message":"hello","audioUrl":"http://a/1.wav"}}`,
			want: UserPhraseSignal{MessageID: "m1", Message: "hello", AudioURL: "http://a/1.wav"},
		},
		{
			name: "delivered",
			body: `{"configId":"c1","phone":"+1","signal":{"type":"message_delivered","messageId":"b1","deliveryDate":{"start":"2025-01-01T10:00:00Z","end":"2025-01-01T10:00:02Z"}}}`,
			want: DeliveredSignal{MessageID: "b1", DeliveryDate: DeliveryWindow{Start: "2025-01-01T10:00:00Z", End: "2025-01-01T10:00:02Z"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(tt.body), &env))
			assert.Equal(t, "c1", env.ConfigID)
			assert.Equal(t, "+1", env.Phone)
			assert.Equal(t, tt.want, env.Signal)
		})
	}
}

func TestEnvelope_UnknownSignalIsKept(t *testing.T) {
	var env Envelope
	body := `{"configId":"c1","phone":"+1","signal":{"type":"dtmf_received","digits":"12"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &env))

	unknown, ok := env.Signal.(UnknownSignal)
	require.True(t, ok)
	assert.Equal(t, SignalType("dtmf_received"), unknown.Type())
	assert.JSONEq(t, `{"type":"dtmf_received","digits":"12"}`, string(unknown.Raw))
}

func TestEnvelope_UnrecognisedSignalShapes(t *testing.T) {
	tests := []struct {
		name     string
		signal   string
		wantType SignalType
	}{
		{name: "numeric type", signal: `{"type":42}`, wantType: SignalUnknown},
		{name: "string signal", signal: `"ping"`, wantType: SignalUnknown},
		{name: "array signal", signal: `[1,2]`, wantType: SignalUnknown},
		{name: "event with numeric eventType", signal: `{"type":"event","eventType":7}`, wantType: SignalEvent},
		{name: "phrase with object message", signal: `{"type":"new_user_phrase","message":{}}`, wantType: SignalNewUserPhrase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Envelope
			body := `{"configId":"c1","phone":"+1","signal":` + tt.signal + `}`
			require.NoError(t, json.Unmarshal([]byte(body), &env))

			unknown, ok := env.Signal.(UnknownSignal)
			require.True(t, ok, "got %T", env.Signal)
			assert.Equal(t, tt.wantType, unknown.Type())
			assert.JSONEq(t, tt.signal, string(unknown.Raw))
		})
	}
}

func TestDecodeSignal_InvalidJSON(t *testing.T) {
	_, err := DecodeSignal([]byte(`{"type":`))
	assert.True(t, errors.Is(err, ErrMalformedSignal))
}

func TestEnvelope_Malformed(t *testing.T) {
	var env Envelope
	assert.Error(t, json.Unmarshal([]byte(`{"configId":`), &env))

	err := json.Unmarshal([]byte(`{"configId":"c1","phone":"+1"}`), &env)
	assert.True(t, errors.Is(err, ErrMissingSignal))

	err = json.Unmarshal([]byte(`{"configId":"c1","phone":"+1","signal":null}`), &env)
	assert.True(t, errors.Is(err, ErrMissingSignal))
}

func TestEnvelope_MarshalIncludesSignalType(t *testing.T) {
	taskID := int64(3)
	env := Envelope{ConfigID: "c1", Phone: "+1", TaskID: &taskID, Signal: UserPhraseSignal{MessageID: "m1", Message: "hi"}}

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"","configId":"c1","phone":"+1","taskId":3,"signal":{"type":"new_user_phrase","messageId":"m1","message":"hi"}}`, string(data))
}

func TestEnvelope_Time(t *testing.T) {
	env := Envelope{Date: "2025-03-04T05:06:07Z"}
	assert.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), env.Time())

	before := time.Now().Add(-time.Second)
	env.Date = "yesterday"
	assert.True(t, env.Time().After(before))
}

func TestDeliveryWindow_Duration(t *testing.T) {
	d, ok := DeliveryWindow{Start: "2025-01-01T10:00:00Z", End: "2025-01-01T10:00:02.5Z"}.Duration()
	require.True(t, ok)
	assert.Equal(t, 2500*time.Millisecond, d)

	_, ok = DeliveryWindow{Start: "2025-01-01T10:00:02Z", End: "2025-01-01T10:00:00Z"}.Duration()
	assert.False(t, ok)

	_, ok = DeliveryWindow{Start: "nope"}.Duration()
	assert.False(t, ok)
}

func TestDecodeCommand_Variants(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"say","configId":"c1","phone":"+1","messageId":"x","message":{"text":"hi"}}`))
	require.NoError(t, err)
	say, ok := cmd.(SayCommand)
	require.True(t, ok)
	assert.Equal(t, TextMessage{Text: "hi"}, say.Message)

	cmd, err = DecodeCommand([]byte(`{"type":"say","configId":"c1","phone":"+1","messageId":"x","message":{"dtmf":"123","repeatCount":2}}`))
	require.NoError(t, err)
	assert.Equal(t, DTMFMessage{DTMF: "123", RepeatCount: 2}, cmd.(SayCommand).Message)

	cmd, err = DecodeCommand([]byte(`{"type":"hangUp","configId":"c1","phone":"+1"}`))
	require.NoError(t, err)
	assert.Equal(t, CommandHangUp, cmd.Type())

	cmd, err = DecodeCommand([]byte(`{"type":"setConfig","configId":"c1","config":{"authenticationId":"a","registerPassword":"p","hostUri":{"domainHost":"a.com","domainPort":5060}}}`))
	require.NoError(t, err)
	set := cmd.(SetConfigCommand)
	require.NotNil(t, set.Credentials.HostURI)
	assert.Equal(t, "a.com:5060", set.Credentials.HostURI.String())
}

func TestDecodeCommand_Errors(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"reboot","configId":"c1"}`))
	assert.True(t, errors.Is(err, ErrUnknownCommand))

	_, err = DecodeCommand([]byte(`{"type":"clearQueue"}`))
	assert.Error(t, err)

	_, err = DecodeCommand([]byte(`{"type":"say","configId":"c1","phone":"+1","message":{"volume":3}}`))
	assert.True(t, errors.Is(err, ErrUnknownBotMessage))
}

func TestHostURI_Shapes(t *testing.T) {
	var h HostURI
	require.NoError(t, json.Unmarshal([]byte(`"sip.b.com"`), &h))
	assert.Equal(t, "sip.b.com", h.String())

	require.NoError(t, json.Unmarshal([]byte(`{"hostUri":"sip.c.com:5080"}`), &h))
	assert.Equal(t, "sip.c.com:5080", h.String())

	require.NoError(t, json.Unmarshal([]byte(`{"domainHost":"a.com"}`), &h))
	assert.Equal(t, "a.com", h.String())

	assert.Error(t, json.Unmarshal([]byte(`{}`), &h))
}

func TestSoftphoneConfig_YAML(t *testing.T) {
	doc := `
authenticationId: "7838"
registerPassword: secret
hostUri:
  domainHost: sip.example.net
  domainPort: 5060
proxyUri:
  proxy:
    host: proxy.example.net
    port: 5070
settings:
  maxConcurrentCalls: 2
  language: ru-RU
  portRange:
    start: 50000
    end: 55000
`
	var cfg SoftphoneConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	assert.Equal(t, "7838", cfg.AuthenticationID)
	assert.Equal(t, "sip.example.net:5060", cfg.HostURI.String())
	assert.Equal(t, "proxy.example.net", cfg.ProxyURI.Host)
	require.NotNil(t, cfg.Settings)
	assert.Equal(t, 2, *cfg.Settings.MaxConcurrentCalls)
	assert.Equal(t, 55000, cfg.Settings.PortRange.End)

	var scalar SoftphoneConfig
	require.NoError(t, yaml.Unmarshal([]byte("hostUri: sip.b.com\n"), &scalar))
	assert.Equal(t, "sip.b.com", scalar.HostURI.String())
}

func TestSoftphoneLog_EventName(t *testing.T) {
	var l SoftphoneLog
	require.NoError(t, json.Unmarshal([]byte(`{"task_id":4,"timestamp":"t","event":{"DialEnded":{"result":"Timeout"}}}`), &l))
	assert.Equal(t, "DialEnded", l.EventName())
	assert.Equal(t, int64(4), l.TaskID)

	l.Event = json.RawMessage(`"weird"`)
	assert.Equal(t, "", l.EventName())
}
