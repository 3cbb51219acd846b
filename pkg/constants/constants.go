package constants

import "time"

// Default configuration values
const (
	// DefaultOutboundTimeoutMS bounds a single call to the phone engine
	DefaultOutboundTimeoutMS = 10000

	// DefaultDedupCapacity - Maximum number of inbound message ids remembered in memory
	DefaultDedupCapacity = 100000

	// DefaultDedupTTLMS - How long an inbound message id stays deduplicated
	DefaultDedupTTLMS = 60 * 60 * 1000

	// DefaultAuditCapacity - Size of the in-memory audit ring buffer
	DefaultAuditCapacity = 200

	// DefaultAuditStreamMaxLen - Approximate trim length of the audit stream
	DefaultAuditStreamMaxLen = 10000

	// DefaultDialogMaxAgeMS - Dialogs older than this are swept as abandoned
	DefaultDialogMaxAgeMS = 4 * 60 * 60 * 1000

	// DefaultSweepIntervalMS - Period of the dialog sweeper
	DefaultSweepIntervalMS = 60 * 1000
)

// Reply texts
const (
	ReplyTextPlaceholder = "{text}"
	DefaultReplyTemplate = "You said: " + ReplyTextPlaceholder
	DefaultReplyFallback = "Sorry, I didn't catch that."
)

// Dedup backends
const (
	DedupBackendMemory = "memory"
	DedupBackendRedis  = "redis"
)

// Redis key prefixes and names
const (
	SeenMessageKeyPrefix = "governor:seen:"
	AuditStream          = "governor:audit"
)

// Audit stream worker tuning
const (
	AuditQueueSize    = 1024
	AuditWriteTimeout = 2 * time.Second
)

// Helper functions for time conversions
func MillisecondsToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
