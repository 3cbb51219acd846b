package audit

import (
	"sync"

	"softphone-governor/pkg/constants"
	"softphone-governor/pkg/models"
)

// Ring holds the most recent records in memory for the /logs endpoint.
type Ring struct {
	mu       sync.Mutex
	records  []models.Record
	next     int
	full     bool
	capacity int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = constants.DefaultAuditCapacity
	}
	return &Ring{
		records:  make([]models.Record, capacity),
		capacity: capacity,
	}
}

func (r *Ring) Append(rec models.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.next] = rec
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns up to limit records, newest first. limit <= 0 means all.
func (r *Ring) Recent(limit int) []models.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = r.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + r.capacity) % r.capacity
		out = append(out, r.records[idx])
	}
	return out
}

func (r *Ring) Capacity() int {
	return r.capacity
}
