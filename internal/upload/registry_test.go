package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/model"
)

func TestRegistry_NewestFirst(t *testing.T) {
	r := NewRegistry(event.NewBus())

	r.Add(model.UploadRecord{ID: "a"})
	r.Add(model.UploadRecord{ID: "b"})
	r.Add(model.UploadRecord{ID: "c"})

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "c", snapshot[0].ID)
	assert.Equal(t, "a", snapshot[2].ID)
}

func TestRegistry_UpdateAndRemove(t *testing.T) {
	r := NewRegistry(event.NewBus())
	r.Add(model.UploadRecord{ID: "a", Status: model.StatusStarting})

	ok := r.Update("a", func(rec *model.UploadRecord) {
		rec.Status = model.StatusUploading
	})
	assert.True(t, ok)

	got, found := r.Get("a")
	require.True(t, found)
	assert.Equal(t, model.StatusUploading, got.Status)

	assert.False(t, r.Update("missing", func(*model.UploadRecord) {}))
	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	assert.Empty(t, r.Snapshot())
}

func TestRegistry_SnapshotIsIsolated(t *testing.T) {
	r := NewRegistry(event.NewBus())
	r.Add(model.UploadRecord{ID: "a", Status: model.StatusStarting})

	snapshot := r.Snapshot()
	snapshot[0].Status = model.StatusError

	got, _ := r.Get("a")
	assert.Equal(t, model.StatusStarting, got.Status)
}

func TestRegistry_EveryMutationBroadcastsFullList(t *testing.T) {
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	r := NewRegistry(bus)
	r.Add(model.UploadRecord{ID: "a"})
	r.Add(model.UploadRecord{ID: "b"})
	r.Update("a", func(rec *model.UploadRecord) { rec.Status = model.StatusDone })
	r.Remove("b")

	wantLens := []int{1, 2, 2, 1}
	for i, wantLen := range wantLens {
		e := <-events
		assert.Equal(t, event.TypeUploadState, e.Type)
		list, ok := e.Payload.([]model.UploadRecord)
		require.True(t, ok, "event %d payload must be the full list", i)
		assert.Len(t, list, wantLen)
	}
}
