package upload

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/model"
)

// Registry is the single source of truth for tracked uploads. Records are
// ordered newest first. Every mutation publishes the complete list, so any
// listener that misses an event heals on the next one.
type Registry struct {
	mu      sync.RWMutex
	records []model.UploadRecord
	bus     event.Bus
}

func NewRegistry(bus event.Bus) *Registry {
	return &Registry{bus: bus}
}

// Add inserts the record at the head of the list and broadcasts.
func (r *Registry) Add(record model.UploadRecord) {
	r.mu.Lock()
	r.records = append([]model.UploadRecord{record}, r.records...)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.publish(snapshot)
}

// Update applies mutate to the record with the given id and broadcasts.
// Unknown ids are a no-op; a record may already have been removed by the
// countdown while a late status change arrives.
func (r *Registry) Update(id string, mutate func(*model.UploadRecord)) bool {
	r.mu.Lock()
	found := false
	for i := range r.records {
		if r.records[i].ID == id {
			mutate(&r.records[i])
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return false
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.publish(snapshot)
	return true
}

// Remove deletes the record and broadcasts the shortened list.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	found := false
	for i := range r.records {
		if r.records[i].ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return false
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.publish(snapshot)
	return true
}

// Get returns a copy of one record.
func (r *Registry) Get(id string) (model.UploadRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.records {
		if r.records[i].ID == id {
			return r.records[i], true
		}
	}
	return model.UploadRecord{}, false
}

// Snapshot returns a copy of the full list, newest first.
func (r *Registry) Snapshot() []model.UploadRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []model.UploadRecord {
	snapshot := make([]model.UploadRecord, len(r.records))
	copy(snapshot, r.records)
	return snapshot
}

func (r *Registry) publish(snapshot []model.UploadRecord) {
	r.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeUploadState,
		Payload:   snapshot,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
