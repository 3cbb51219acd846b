package softphone

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"softphone-governor/pkg/metrics"
	"softphone-governor/pkg/models"
)

func newTestClient(t *testing.T, baseURL string, cfg Config) (*Client, *metrics.Metrics) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	cfg.BaseURL = baseURL
	client, err := NewClient(cfg, logger, m)
	require.NoError(t, err)
	return client, m
}

func TestClient_SendPostsWireFormat(t *testing.T) {
	var gotPath, gotSecret, gotAuth, gotContentType string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSecret = r.URL.Query().Get("secret")
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, m := newTestClient(t, srv.URL+"/", Config{Secret: "s&1", Bearer: "tok"})

	err := client.Send(context.Background(), models.HangUpCommand{ConfigID: "c1", Phone: "+1"})
	require.NoError(t, err)

	assert.Equal(t, "/", gotPath)
	assert.Equal(t, "s&1", gotSecret)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "hang_up", gotBody["type"])
	assert.Equal(t, "+1", gotBody["phone"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboundCommands.WithLabelValues("hang_up", "success")))
}

func TestClient_NoSecretNoAuth(t *testing.T) {
	var rawQuery, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, Config{})
	require.NoError(t, client.Send(context.Background(), models.ClearQueueCommand{ConfigID: "c1"}))

	assert.Empty(t, rawQuery)
	assert.Empty(t, auth)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "config not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client, m := newTestClient(t, srv.URL, Config{})
	err := client.Send(context.Background(), models.RemoveConfigCommand{ConfigID: "c1"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "config not found")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboundCommands.WithLabelValues("remove_config", "error")))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, _ := newTestClient(t, srv.URL, Config{Timeout: 50 * time.Millisecond})

	start := time.Now()
	err := client.Send(context.Background(), models.ClearQueueCommand{ConfigID: "c1"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_EncodeErrorIsReturned(t *testing.T) {
	client, _ := newTestClient(t, "http://127.0.0.1:1", Config{})
	err := client.Send(context.Background(), models.SayCommand{ConfigID: "c1"})
	assert.Error(t, err)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"}, logrus.New(), metrics.NewMetrics(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestClient_MaskedURL(t *testing.T) {
	client, _ := newTestClient(t, "http://engine.local", Config{Secret: "abc", Bearer: "xyz"})

	assert.Equal(t, "http://engine.local/?secret=abc", client.targetURL())
	assert.Equal(t, "http://engine.local/?secret=***", client.maskedURL())
	assert.Equal(t, "Bearer ***", client.maskedAuth())
}
