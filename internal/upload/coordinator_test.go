package upload

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/rules"
	"go-cloud-clipper/internal/settings"
)

// stepClock hands every After call to the test, which fires waits one at a
// time. Receiving from calls doubles as a rendezvous with the pipeline.
type stepClock struct {
	calls chan chan time.Time
}

func newStepClock() *stepClock {
	return &stepClock{calls: make(chan chan time.Time, 16)}
}

func (s *stepClock) Now() time.Time { return time.Unix(1700000000, 0).UTC() }

func (s *stepClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	s.calls <- ch
	return ch
}

func (s *stepClock) fire(t *testing.T) {
	t.Helper()
	select {
	case ch := <-s.calls:
		ch <- time.Time{}
	case <-time.After(2 * time.Second):
		t.Fatal("no pending clock wait")
	}
}

func (s *stepClock) pendingWaits() int { return len(s.calls) }

type fixture struct {
	coordinator *Coordinator
	client      *pcloud.MockClient
	settings    *settings.Service
	clock       *stepClock
	events      <-chan event.Event
	cleanup     func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bus := event.NewBus()
	svc := settings.NewService(settings.NewMemoryStore(), bus)
	client := new(pcloud.MockClient)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := newStepClock()

	coordinator := NewCoordinator(
		NewRegistry(bus),
		client,
		svc,
		rules.NewMatcher(logger),
		NewFolderResolver(client),
		clock,
		NewMetrics(prometheus.NewRegistry()),
		logger,
		500*time.Millisecond,
		3,
	)

	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	return &fixture{
		coordinator: coordinator,
		client:      client,
		settings:    svc,
		clock:       clock,
		events:      events,
	}
}

// waitForRecord reads snapshots until pred accepts the record with the given
// id, returning that record.
func (f *fixture) waitForRecord(t *testing.T, id string, pred func(model.UploadRecord) bool) model.UploadRecord {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-f.events:
			if e.Type != event.TypeUploadState {
				continue
			}
			list := e.Payload.([]model.UploadRecord)
			for _, rec := range list {
				if rec.ID == id && pred(rec) {
					return rec
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for upload record state")
		}
	}
}

// waitForEmptyList reads snapshots until one arrives with no records.
func (f *fixture) waitForEmptyList(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-f.events:
			if e.Type != event.TypeUploadState {
				continue
			}
			if len(e.Payload.([]model.UploadRecord)) == 0 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for empty upload list")
		}
	}
}

func hasStatus(status model.UploadStatus) func(model.UploadRecord) bool {
	return func(r model.UploadRecord) bool { return r.Status == status }
}

func folderPtr(id int64) *int64 { return &id }

func TestCoordinator_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	f.client.On("UploadFile", mock.Anything, "tok", int64(42), "shot.png", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 9, Name: "shot.png", Size: 1}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name:    "shot.png",
		File:    &model.UploadFile{Name: "shot.png", MimeType: "image/png", Data: []byte("x")},
		Options: model.UploadOptions{FolderID: folderPtr(42)},
		Kind:    "image",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusStarting, record.Status)

	// The id leads with the creation-time epoch millis, and the record is
	// born with the full countdown.
	assert.True(t, strings.HasPrefix(record.ID, "1700000000000-"), record.ID)
	assert.Equal(t, 3, record.Countdown)

	uploading := f.waitForRecord(t, record.ID, hasStatus(model.StatusUploading))
	assert.Equal(t, int64(42), uploading.FolderID)

	done := f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	assert.Equal(t, 100, done.Progress)

	// Done lingers briefly, then the countdown starts.
	f.clock.fire(t)
	clearing := f.waitForRecord(t, record.ID, hasStatus(model.StatusClearing))
	assert.Equal(t, 3, clearing.Countdown)

	f.clock.fire(t)
	tick := f.waitForRecord(t, record.ID, func(r model.UploadRecord) bool { return r.Countdown == 2 })
	assert.Equal(t, model.StatusClearing, tick.Status)

	f.clock.fire(t)
	f.waitForRecord(t, record.ID, func(r model.UploadRecord) bool { return r.Countdown == 1 })

	f.clock.fire(t)
	f.waitForEmptyList(t)

	f.coordinator.Wait()
	f.client.AssertExpectations(t)
}

func TestCoordinator_MissingTokenFailsWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name:    "shot.png",
		File:    &model.UploadFile{Name: "shot.png", Data: []byte("x")},
		Options: model.UploadOptions{FolderID: folderPtr(42)},
	})
	require.NoError(t, err)

	failed := f.waitForRecord(t, record.ID, hasStatus(model.StatusError))
	assert.Equal(t, "Not logged in. Connect your account first.", failed.Error)

	f.coordinator.Wait()
	f.client.AssertNotCalled(t, "UploadFile")
	f.client.AssertNotCalled(t, "CreateFolderIfNotExists")

	// Error records stay until explicitly dismissed; no countdown runs.
	assert.Equal(t, 0, f.clock.pendingWaits())
	require.Len(t, f.coordinator.Snapshot(), 1)

	require.NoError(t, f.coordinator.Dismiss(record.ID))
	assert.Empty(t, f.coordinator.Snapshot())
	assert.ErrorIs(t, f.coordinator.Dismiss(record.ID), model.ErrUploadNotFound)
}

func TestCoordinator_RuleDestinationRecomputed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	// The cached folder id 999 is stale; the path must win.
	require.NoError(t, f.settings.SetDomainRules(ctx, []model.DomainRule{
		{ID: "r1", Enabled: true, DomainPattern: "example.com", TargetPath: "/Work/Shots", TargetFolderID: 999},
	}))

	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(0), "Work").
		Return(&pcloud.Folder{FolderID: 10}, nil)
	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(10), "Shots").
		Return(&pcloud.Folder{FolderID: 20}, nil)
	f.client.On("UploadFile", mock.Anything, "tok", int64(20), "shot.png", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 1}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name:    "shot.png",
		File:    &model.UploadFile{Name: "shot.png", Data: []byte("x")},
		Options: model.UploadOptions{SourceURL: "https://example.com/post"},
	})
	require.NoError(t, err)

	done := f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	assert.Equal(t, int64(20), done.FolderID)
	f.client.AssertExpectations(t)
}

func TestCoordinator_FirstMatchingRuleWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	require.NoError(t, f.settings.SetDomainRules(ctx, []model.DomainRule{
		{ID: "first", Enabled: true, DomainPattern: "*.example.com", TargetPath: "/First"},
		{ID: "second", Enabled: true, DomainPattern: "docs.example.com", TargetPath: "/Second"},
	}))

	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(0), "First").
		Return(&pcloud.Folder{FolderID: 11}, nil)
	f.client.On("UploadFile", mock.Anything, "tok", int64(11), "n.txt", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 2}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name:    "n.txt",
		File:    &model.UploadFile{Name: "n.txt", Data: []byte("x")},
		Options: model.UploadOptions{SourceURL: "https://docs.example.com/a"},
	})
	require.NoError(t, err)

	f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	f.client.AssertExpectations(t)
}

func TestCoordinator_DefaultFolderWhenNoRuleMatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	cfg := model.DefaultSettings()
	cfg.DefaultFolderID = 7
	require.NoError(t, f.settings.Update(ctx, cfg))

	f.client.On("UploadFile", mock.Anything, "tok", int64(7), "n.txt", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 3}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name:    "n.txt",
		File:    &model.UploadFile{Name: "n.txt", Data: []byte("x")},
		Options: model.UploadOptions{SourceURL: "https://nomatch.example.org/"},
	})
	require.NoError(t, err)

	f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	f.client.AssertExpectations(t)
}

func TestCoordinator_BrokenRulePathFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	cfg := model.DefaultSettings()
	cfg.DefaultFolderID = 7
	cfg.DomainRules = []model.DomainRule{
		{ID: "r1", Enabled: true, DomainPattern: "example.com", TargetPath: "/Gone"},
	}
	require.NoError(t, f.settings.Update(ctx, cfg))

	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(0), "Gone").
		Return(nil, &pcloud.Error{Result: pcloud.ResultAccessDenied, Message: "access denied"})
	f.client.On("UploadFile", mock.Anything, "tok", int64(7), "n.txt", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 5}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name:    "n.txt",
		File:    &model.UploadFile{Name: "n.txt", Data: []byte("x")},
		Options: model.UploadOptions{SourceURL: "https://example.com/a"},
	})
	require.NoError(t, err)

	done := f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	assert.Equal(t, int64(7), done.FolderID)
	f.client.AssertExpectations(t)
}

func TestCoordinator_SubfolderFailureFallsBackToBase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(7), "My Page").
		Return(nil, &pcloud.Error{Result: pcloud.ResultAccessDenied, Message: "access denied"})
	f.client.On("UploadFile", mock.Anything, "tok", int64(7), "doc.md", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 6}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name: "doc.md",
		File: &model.UploadFile{Name: "doc.md", Data: []byte("x")},
		Options: model.UploadOptions{
			FolderID:   folderPtr(7),
			Subfolders: []string{"My Page"},
		},
	})
	require.NoError(t, err)

	done := f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	assert.Equal(t, int64(7), done.FolderID)
	f.client.AssertExpectations(t)
}

func TestCoordinator_SubfoldersCreatedUnderBase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(7), "My Page").
		Return(&pcloud.Folder{FolderID: 55}, nil)
	f.client.On("UploadFile", mock.Anything, "tok", int64(55), "doc.md", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 4}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name: "doc.md",
		File: &model.UploadFile{Name: "doc.md", Data: []byte("x")},
		Options: model.UploadOptions{
			FolderID:   folderPtr(7),
			Subfolders: []string{"My Page"},
		},
	})
	require.NoError(t, err)

	done := f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	assert.Equal(t, int64(55), done.FolderID)
	f.client.AssertExpectations(t)
}

func TestCoordinator_FetchJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	f.client.On("UploadFile", mock.Anything, "tok", int64(0), "fetched.png", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 5}, nil)

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name: "image",
		Fetch: func(ctx context.Context) (model.UploadFile, error) {
			return model.UploadFile{Name: "fetched.png", MimeType: "image/png", Data: []byte("img")}, nil
		},
		Options: model.UploadOptions{FolderID: folderPtr(0)},
		Kind:    "image",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFetching, record.Status)

	done := f.waitForRecord(t, record.ID, hasStatus(model.StatusDone))
	assert.Equal(t, "fetched.png", done.FileName)
	f.client.AssertExpectations(t)
}

func TestCoordinator_ExpiredSessionMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "stale"))

	f.client.On("UploadFile", mock.Anything, "stale", int64(0), "n.txt", mock.Anything).
		Return(nil, &pcloud.Error{Result: pcloud.ResultInvalidToken, Message: "Invalid 'access_token' provided."})

	record, err := f.coordinator.Enqueue(ctx, Job{
		Name:    "n.txt",
		File:    &model.UploadFile{Name: "n.txt", Data: []byte("x")},
		Options: model.UploadOptions{FolderID: folderPtr(0)},
	})
	require.NoError(t, err)

	failed := f.waitForRecord(t, record.ID, hasStatus(model.StatusError))
	assert.Equal(t, "Session expired. Please log in again.", failed.Error)
}

func TestCoordinator_StoreDirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetAuthToken(ctx, "tok"))

	f.client.On("UploadFile", mock.Anything, "tok", int64(77), "asset.png", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 6}, nil)

	err := f.coordinator.StoreDirect(ctx, 77, model.UploadFile{Name: "asset.png", Data: []byte("x")})
	require.NoError(t, err)

	// Direct stores are invisible to the upload list.
	assert.Empty(t, f.coordinator.Snapshot())
	f.client.AssertExpectations(t)
}

func TestCoordinator_StoreDirectRequiresAuth(t *testing.T) {
	f := newFixture(t)
	err := f.coordinator.StoreDirect(context.Background(), 0, model.UploadFile{Name: "a"})
	assert.ErrorIs(t, err, model.ErrNotAuthenticated)
}

func TestCoordinator_RejectsEmptyJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.coordinator.Enqueue(context.Background(), Job{Name: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
