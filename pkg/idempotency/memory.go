package idempotency

import (
	"container/list"
	"context"
	"sync"
	"time"

	"softphone-governor/pkg/constants"
)

// MemoryFilter is bounded both by capacity (least recently marked ids are
// evicted first) and by age (ids older than ttl count as new again).
type MemoryFilter struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	entries  map[string]*list.Element
	now      func() time.Time
}

type memoryEntry struct {
	messageID string
	markedAt  time.Time
}

func NewMemoryFilter(capacity int, ttl time.Duration) *MemoryFilter {
	if capacity <= 0 {
		capacity = constants.DefaultDedupCapacity
	}
	if ttl <= 0 {
		ttl = constants.MillisecondsToDuration(constants.DefaultDedupTTLMS)
	}
	return &MemoryFilter{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (f *MemoryFilter) Backend() string {
	return constants.DedupBackendMemory
}

func (f *MemoryFilter) CheckAndMark(_ context.Context, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.expireLocked(now)

	if _, ok := f.entries[messageID]; ok {
		return false, nil
	}

	f.entries[messageID] = f.order.PushFront(&memoryEntry{messageID: messageID, markedAt: now})
	for f.order.Len() > f.capacity {
		f.removeLocked(f.order.Back())
	}
	return true, nil
}

// Len returns the number of remembered ids.
func (f *MemoryFilter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.order.Len()
}

// expireLocked drops entries from the back (oldest first) while they are past ttl.
func (f *MemoryFilter) expireLocked(now time.Time) {
	cutoff := now.Add(-f.ttl)
	for e := f.order.Back(); e != nil; e = f.order.Back() {
		if !e.Value.(*memoryEntry).markedAt.Before(cutoff) {
			return
		}
		f.removeLocked(e)
	}
}

func (f *MemoryFilter) removeLocked(e *list.Element) {
	f.order.Remove(e)
	delete(f.entries, e.Value.(*memoryEntry).messageID)
}
