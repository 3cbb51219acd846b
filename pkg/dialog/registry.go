// Package dialog owns the in-memory mapping from (configId, phone) to the active Dialog.
package dialog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"softphone-governor/pkg/models"
)

// Registry is safe for concurrent use. Callers only ever receive copies of Dialogs.
type Registry struct {
	mu    sync.RWMutex
	byKey map[models.DialogKey]*models.Dialog
	byID  map[string]*models.Dialog
	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[models.DialogKey]*models.Dialog),
		byID:  make(map[string]*models.Dialog),
		newID: func() string { return uuid.New().String() },
	}
}

// FindByKey returns the active dialog for key, if any.
func (r *Registry) FindByKey(key models.DialogKey) (models.Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byKey[key]
	if !ok {
		return models.Dialog{}, false
	}
	return *d, true
}

// Get returns the dialog with the given id.
func (r *Registry) Get(dialogID string) (models.Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[dialogID]
	if !ok {
		return models.Dialog{}, false
	}
	return *d, true
}

// Start always creates a fresh dialog for key, replacing any active one.
func (r *Registry) Start(key models.DialogKey, createdAt time.Time) models.Dialog {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byKey[key]; ok {
		delete(r.byID, old.DialogID)
	}
	return r.insertLocked(key, createdAt)
}

// CreateOrGet returns the active dialog for key or atomically creates one.
// created reports whether a new dialog was inserted.
func (r *Registry) CreateOrGet(key models.DialogKey, createdAt time.Time) (d models.Dialog, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[key]; ok {
		return *existing, false
	}
	return r.insertLocked(key, createdAt), true
}

func (r *Registry) insertLocked(key models.DialogKey, createdAt time.Time) models.Dialog {
	d := &models.Dialog{
		DialogID:  r.newID(),
		ConfigID:  key.ConfigID,
		Phone:     key.Phone,
		CreatedAt: createdAt,
	}
	r.byKey[key] = d
	r.byID[d.DialogID] = d
	return *d
}

// Remove deletes a dialog by id. It reports whether anything was removed.
func (r *Registry) Remove(dialogID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[dialogID]
	if !ok {
		return false
	}
	delete(r.byID, dialogID)
	if cur, ok := r.byKey[d.Key()]; ok && cur.DialogID == dialogID {
		delete(r.byKey, d.Key())
	}
	return true
}

// RemoveByKey deletes every dialog for key, including orphans left behind
// by an index that no longer points at them. It returns how many were removed.
func (r *Registry) RemoveByKey(key models.DialogKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, d := range r.byID {
		if d.Key() == key {
			delete(r.byID, id)
			removed++
		}
	}
	delete(r.byKey, key)
	return removed
}

// RemoveOlderThan sweeps dialogs created before cutoff (a lost call_end leaves them forever otherwise).
func (r *Registry) RemoveOlderThan(cutoff time.Time) []models.Dialog {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []models.Dialog
	for id, d := range r.byID {
		if d.CreatedAt.Before(cutoff) {
			delete(r.byID, id)
			if cur, ok := r.byKey[d.Key()]; ok && cur.DialogID == id {
				delete(r.byKey, d.Key())
			}
			removed = append(removed, *d)
		}
	}
	return removed
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byKey)
}

// List returns a snapshot of the active dialogs.
func (r *Registry) List() []models.Dialog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Dialog, 0, len(r.byKey))
	for _, d := range r.byKey {
		out = append(out, *d)
	}
	return out
}
