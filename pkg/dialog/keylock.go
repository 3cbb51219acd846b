package dialog

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"softphone-governor/pkg/models"
)

const DefaultStripes = 64

// KeyLocker serializes work per dialog key using a fixed set of striped mutexes.
// Distinct keys may share a stripe; the same key always maps to the same one.
type KeyLocker struct {
	stripes []sync.Mutex
}

func NewKeyLocker(stripes int) *KeyLocker {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	return &KeyLocker{stripes: make([]sync.Mutex, stripes)}
}

// Lock acquires the stripe for key and returns its unlock function.
func (l *KeyLocker) Lock(key models.DialogKey) func() {
	m := &l.stripes[l.stripe(key)]
	m.Lock()
	return m.Unlock
}

func (l *KeyLocker) stripe(key models.DialogKey) uint64 {
	return xxhash.Sum64String(key.String()) % uint64(len(l.stripes))
}
