package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"softphone-governor/pkg/constants"
)

type Config struct {
	Port     string
	LogLevel string
	PodID    string

	SoftphoneURL      string
	SoftphoneSecret   string
	SoftphoneBearer   string
	OutboundTimeoutMS int64

	WebhookSecret string

	DedupBackend  string
	DedupCapacity int
	DedupTTLMS    int64
	RedisURL      string

	AuditCapacity      int
	AuditStreamEnabled bool
	AuditStreamMaxLen  int64

	DialogMaxAgeMS  int64
	SweepIntervalMS int64

	TenantsFile   string
	ReplyTemplate string
	ReplyFallback string
}

func Load() *Config {
	config := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		PodID:    getEnv("POD_ID", generatePodID()),

		SoftphoneURL:      getEnv("SOFTPHONE_URL", "http://localhost:8090"),
		SoftphoneSecret:   strings.TrimSpace(os.Getenv("SOFTPHONE_SECRET")),
		SoftphoneBearer:   strings.TrimSpace(os.Getenv("SOFTPHONE_BEARER")),
		OutboundTimeoutMS: getEnvInt64("OUTBOUND_TIMEOUT_MS", constants.DefaultOutboundTimeoutMS),

		WebhookSecret: strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),

		DedupBackend:  strings.ToLower(getEnv("DEDUP_BACKEND", constants.DedupBackendMemory)),
		DedupCapacity: getEnvInt("DEDUP_CAPACITY", constants.DefaultDedupCapacity),
		DedupTTLMS:    getEnvInt64("DEDUP_TTL_MS", constants.DefaultDedupTTLMS),
		RedisURL:      os.Getenv("REDIS_URL"),

		AuditCapacity:      getEnvInt("AUDIT_CAPACITY", constants.DefaultAuditCapacity),
		AuditStreamEnabled: getEnvBool("AUDIT_STREAM_ENABLED", false),
		AuditStreamMaxLen:  getEnvInt64("AUDIT_STREAM_MAXLEN", constants.DefaultAuditStreamMaxLen),

		DialogMaxAgeMS:  getEnvInt64("DIALOG_MAX_AGE_MS", constants.DefaultDialogMaxAgeMS),
		SweepIntervalMS: getEnvInt64("SWEEP_INTERVAL_MS", constants.DefaultSweepIntervalMS),

		TenantsFile:   os.Getenv("TENANTS_FILE"),
		ReplyTemplate: getEnv("REPLY_TEMPLATE", constants.DefaultReplyTemplate),
		ReplyFallback: getEnv("REPLY_FALLBACK", constants.DefaultReplyFallback),
	}

	return config
}

// Validate reports option combinations that cannot work together.
func (c *Config) Validate() error {
	switch c.DedupBackend {
	case constants.DedupBackendMemory, constants.DedupBackendRedis:
	default:
		return fmt.Errorf("unknown DEDUP_BACKEND %q", c.DedupBackend)
	}
	if c.RedisURL == "" && c.NeedsRedis() {
		return fmt.Errorf("REDIS_URL is required when DEDUP_BACKEND=redis or AUDIT_STREAM_ENABLED=true")
	}
	if c.SoftphoneURL == "" {
		return fmt.Errorf("SOFTPHONE_URL is required")
	}
	return nil
}

func (c *Config) NeedsRedis() bool {
	return c.DedupBackend == constants.DedupBackendRedis || c.AuditStreamEnabled
}

func (c *Config) OutboundTimeout() time.Duration {
	return constants.MillisecondsToDuration(c.OutboundTimeoutMS)
}

func (c *Config) DedupTTL() time.Duration {
	return constants.MillisecondsToDuration(c.DedupTTLMS)
}

func (c *Config) DialogMaxAge() time.Duration {
	return constants.MillisecondsToDuration(c.DialogMaxAgeMS)
}

func (c *Config) SweepInterval() time.Duration {
	return constants.MillisecondsToDuration(c.SweepIntervalMS)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func generatePodID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return uuid.New().String()
	}
	return hostname + "-" + uuid.New().String()[:8]
}
