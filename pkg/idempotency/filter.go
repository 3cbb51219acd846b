// Package idempotency remembers inbound message ids so that a redelivered
// user phrase is acknowledged without being processed again.
package idempotency

import "context"

// Filter decides whether an inbound unit of work has been seen before.
type Filter interface {
	// CheckAndMark records messageID and reports whether it was new.
	// Check and mark are one atomic step.
	CheckAndMark(ctx context.Context, messageID string) (bool, error)
	Backend() string
}
