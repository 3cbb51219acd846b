package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"softphone-governor/pkg/metrics"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	client, err := NewClient(context.Background(), DefaultConnectionConfig("redis://"+mr.Addr()), testLogger(), m)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Redis().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RedisOperationDuration))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewClient_Errors(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())

	_, err := NewClient(context.Background(), DefaultConnectionConfig("://bad"), testLogger(), m)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := DefaultConnectionConfig("redis://" + addr)
	cfg.MaxRetries = -1
	_, err = NewClient(context.Background(), cfg, testLogger(), m)
	assert.Error(t, err)
}
