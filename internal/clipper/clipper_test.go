package clipper

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/license"
	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/rules"
	"go-cloud-clipper/internal/settings"
	"go-cloud-clipper/internal/upload"
)

// instantClock fires every wait immediately so pipelines run to completion
// without real delays. Broadcast history still shows each state.
type instantClock struct{}

func (instantClock) Now() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

type fixture struct {
	service     *Service
	coordinator *upload.Coordinator
	settings    *settings.Service
	client      *pcloud.MockClient
	events      <-chan event.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bus := event.NewBus()
	svc := settings.NewService(settings.NewMemoryStore(), bus)
	client := new(pcloud.MockClient)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := instantClock{}

	coordinator := upload.NewCoordinator(
		upload.NewRegistry(bus),
		client,
		svc,
		rules.NewMatcher(logger),
		upload.NewFolderResolver(client),
		clock,
		upload.NewMetrics(prometheus.NewRegistry()),
		logger,
		time.Millisecond,
		1,
	)

	licenses := license.NewManager(svc, bus, "test-key", "", logger)
	service := NewService(coordinator, svc, licenses, clock, logger, 1<<20, 5*time.Second)

	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	require.NoError(t, svc.SetAuthToken(context.Background(), "tok"))

	return &fixture{
		service:     service,
		coordinator: coordinator,
		settings:    svc,
		client:      client,
		events:      events,
	}
}

func (f *fixture) waitForStatus(t *testing.T, id string, status model.UploadStatus) model.UploadRecord {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-f.events:
			if e.Type != event.TypeUploadState {
				continue
			}
			for _, rec := range e.Payload.([]model.UploadRecord) {
				if rec.ID == id && rec.Status == status {
					return rec
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", status)
		}
	}
}

func TestService_ClipText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var stored []byte
	f.client.On("UploadFile", mock.Anything, "tok", int64(0), "My Page_20260314_092653.md", mock.Anything).
		Run(func(args mock.Arguments) {
			stored, _ = io.ReadAll(args.Get(4).(io.Reader))
		}).
		Return(&pcloud.FileMeta{FileID: 1}, nil)

	record, err := f.service.ClipText(ctx, TextClip{
		Text:      "one\n\n\n\ntwo [![x](https://i/a.png)](https://l)",
		PageURL:   "https://example.com/post",
		PageTitle: "My Page",
	})
	require.NoError(t, err)

	f.waitForStatus(t, record.ID, model.StatusDone)
	f.coordinator.Wait()

	assert.Equal(t, "one\n\ntwo ![x](https://i/a.png)\n", string(stored))
	f.client.AssertExpectations(t)
}

func TestService_ClipText_EmptyInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ClipText(context.Background(), TextClip{})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestService_ClipImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("not-a-real-png"))
	}))
	defer imageServer.Close()

	f.client.On("UploadFile", mock.Anything, "tok", int64(0), mock.MatchedBy(func(name string) bool {
		return strings.HasSuffix(name, ".png")
	}), mock.Anything).Return(&pcloud.FileMeta{FileID: 2}, nil)

	record, err := f.service.ClipImage(ctx, ImageClip{
		ImageURL:  imageServer.URL + "/a.png",
		SourceURL: "https://example.com/",
		PageTitle: "Pics",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFetching, record.Status)

	done := f.waitForStatus(t, record.ID, model.StatusDone)
	assert.True(t, strings.HasSuffix(done.FileName, ".png"))
	f.coordinator.Wait()
	f.client.AssertExpectations(t)
}

func TestService_ClipImage_FetchFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer imageServer.Close()

	record, err := f.service.ClipImage(ctx, ImageClip{ImageURL: imageServer.URL + "/gone.png"})
	require.NoError(t, err)

	failed := f.waitForStatus(t, record.ID, model.StatusError)
	assert.Contains(t, failed.Error, "status 404")
	f.coordinator.Wait()
	f.client.AssertNotCalled(t, "UploadFile")
}

func TestService_ClipImage_RequiresURL(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ClipImage(context.Background(), ImageClip{})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestService_ClipFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	payload := base64.StdEncoding.EncodeToString([]byte("file-bytes"))
	f.client.On("UploadFile", mock.Anything, "tok", int64(0), "report.pdf", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 3}, nil)

	record, err := f.service.ClipFile(ctx, FileClip{
		DataURL: "data:application/pdf;base64," + payload,
		Name:    "report.pdf",
	})
	require.NoError(t, err)

	f.waitForStatus(t, record.ID, model.StatusDone)
	f.coordinator.Wait()
	f.client.AssertExpectations(t)
}

func TestService_ClipFile_BadDataURL(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ClipFile(context.Background(), FileClip{DataURL: "http://not-data"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestService_ClipDocument_PremiumGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.ClipDocument(ctx, DocumentClip{
		Markdown:  "# Page",
		PageTitle: "Page",
	})
	assert.ErrorIs(t, err, model.ErrPremiumRequired)

	// The gate runs before anything else: no record, no network.
	assert.Empty(t, f.coordinator.Snapshot())
	f.client.AssertNotCalled(t, "UploadFile")
	f.client.AssertNotCalled(t, "CreateFolderIfNotExists")
}

func TestService_ClipDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetLicense(ctx, model.LicenseRecord{Status: model.LicensePremium}))

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer imageServer.Close()

	imageURL := imageServer.URL + "/fig.png"

	// Default doc template routes into a page-title subfolder.
	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(0), "Deep Dive").
		Return(&pcloud.Folder{FolderID: 30}, nil)
	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(30), "assets_20260314_092653").
		Return(&pcloud.Folder{FolderID: 31}, nil)
	f.client.On("UploadFile", mock.Anything, "tok", int64(31), "asset_001.png", mock.Anything).
		Return(&pcloud.FileMeta{FileID: 4}, nil)

	var doc []byte
	f.client.On("UploadFile", mock.Anything, "tok", int64(30), "20260314_092653.md", mock.Anything).
		Run(func(args mock.Arguments) {
			doc, _ = io.ReadAll(args.Get(4).(io.Reader))
		}).
		Return(&pcloud.FileMeta{FileID: 5}, nil)

	record, err := f.service.ClipDocument(ctx, DocumentClip{
		Markdown:  fmt.Sprintf("# Deep Dive\n\n![figure](%s)\n", imageURL),
		PageURL:   "https://example.com/deep-dive",
		PageTitle: "Deep Dive",
	})
	require.NoError(t, err)

	f.waitForStatus(t, record.ID, model.StatusDone)
	f.coordinator.Wait()

	body := string(doc)
	assert.Contains(t, body, "(./assets_20260314_092653/asset_001.png)")
	assert.NotContains(t, body, imageURL)
	f.client.AssertExpectations(t)
}

func TestService_ClipDocument_DocxFormat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetLicense(ctx, model.LicenseRecord{Status: model.LicensePremium}))

	cfg := model.DefaultSettings()
	cfg.DocFormat = "docx"
	require.NoError(t, f.settings.Update(ctx, cfg))

	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(0), "Word Page").
		Return(&pcloud.Folder{FolderID: 50}, nil)

	var doc []byte
	f.client.On("UploadFile", mock.Anything, "tok", int64(50), "20260314_092653.docx", mock.Anything).
		Run(func(args mock.Arguments) {
			doc, _ = io.ReadAll(args.Get(4).(io.Reader))
		}).
		Return(&pcloud.FileMeta{FileID: 7}, nil)

	record, err := f.service.ClipDocument(ctx, DocumentClip{
		Markdown:  "# Word Page\n\nbody with <angles> & ampersand",
		PageURL:   "https://example.com/word",
		PageTitle: "Word Page",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(record.FileName, ".docx"), record.FileName)

	f.waitForStatus(t, record.ID, model.StatusDone)
	f.coordinator.Wait()

	reader, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	require.NoError(t, err)
	part, err := reader.Open("word/document.xml")
	require.NoError(t, err)
	xmlBody, err := io.ReadAll(part)
	require.NoError(t, err)
	part.Close()

	assert.Contains(t, string(xmlBody), `<w:pStyle w:val="Heading1"/>`)
	assert.Contains(t, string(xmlBody), "body with &lt;angles&gt; &amp; ampersand")
	f.client.AssertExpectations(t)
}

func TestService_ClipDocument_Frontmatter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.SetLicense(ctx, model.LicenseRecord{Status: model.LicenseMaster}))

	cfg := model.DefaultSettings()
	cfg.DocIncludeMeta = true
	require.NoError(t, f.settings.Update(ctx, cfg))

	f.client.On("CreateFolderIfNotExists", mock.Anything, "tok", int64(0), "Notes").
		Return(&pcloud.Folder{FolderID: 40}, nil)

	var doc []byte
	f.client.On("UploadFile", mock.Anything, "tok", int64(40), "20260314_092653.md", mock.Anything).
		Run(func(args mock.Arguments) {
			doc, _ = io.ReadAll(args.Get(4).(io.Reader))
		}).
		Return(&pcloud.FileMeta{FileID: 6}, nil)

	record, err := f.service.ClipDocument(ctx, DocumentClip{
		Markdown:  "plain text, no images",
		PageURL:   "https://example.com/notes",
		PageTitle: "Notes",
	})
	require.NoError(t, err)

	f.waitForStatus(t, record.ID, model.StatusDone)
	f.coordinator.Wait()

	body := string(doc)
	assert.True(t, strings.HasPrefix(body, "---\n"))
	assert.Contains(t, body, "title: Notes")
	assert.Contains(t, body, "source: https://example.com/notes")
	f.client.AssertExpectations(t)
}
