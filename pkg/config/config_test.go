package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DedupBackend)
	assert.Equal(t, 10*time.Second, cfg.OutboundTimeout())
	assert.Equal(t, time.Hour, cfg.DedupTTL())
	assert.Equal(t, 200, cfg.AuditCapacity)
	assert.NotEmpty(t, cfg.PodID)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SOFTPHONE_URL", "http://engine.local/")
	t.Setenv("SOFTPHONE_SECRET", "  s3cret ")
	t.Setenv("OUTBOUND_TIMEOUT_MS", "2500")
	t.Setenv("DEDUP_BACKEND", "REDIS")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUDIT_STREAM_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://engine.local/", cfg.SoftphoneURL)
	assert.Equal(t, "s3cret", cfg.SoftphoneSecret)
	assert.Equal(t, 2500*time.Millisecond, cfg.OutboundTimeout())
	assert.Equal(t, "redis", cfg.DedupBackend)
	assert.True(t, cfg.AuditStreamEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DEDUP_CAPACITY", "lots")
	t.Setenv("OUTBOUND_TIMEOUT_MS", "-5")

	cfg := Load()

	assert.Equal(t, 100000, cfg.DedupCapacity)
	assert.Equal(t, int64(10000), cfg.OutboundTimeoutMS)
}

func TestValidate_RedisRequired(t *testing.T) {
	cfg := Load()
	cfg.DedupBackend = "redis"
	cfg.RedisURL = ""
	assert.Error(t, cfg.Validate())

	cfg.DedupBackend = "memory"
	cfg.AuditStreamEnabled = true
	assert.Error(t, cfg.Validate())

	cfg.AuditStreamEnabled = false
	cfg.DedupBackend = "bogus"
	assert.Error(t, cfg.Validate())
}
