//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"go-cloud-clipper/internal/clipper"
	"go-cloud-clipper/internal/config"
	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/handler"
	"go-cloud-clipper/internal/license"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/router"
	"go-cloud-clipper/internal/rules"
	"go-cloud-clipper/internal/settings"
	"go-cloud-clipper/internal/upload"
	"go-cloud-clipper/internal/websocket"
)

const (
	validToken = "integration-token"
	signingKey = "integration-signing-key"
)

type storedFile struct {
	FolderID int64
	Name     string
	Data     []byte
}

// fakeCloud is an in-memory stand-in for the storage provider API.
type fakeCloud struct {
	mu       sync.Mutex
	nextID   int64
	folders  map[int64]map[string]int64 // parent id -> name -> id
	uploads  []storedFile
	failNext bool
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{nextID: 100, folders: map[int64]map[string]int64{}}
}

func (f *fakeCloud) folderID(parent int64, name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.folders[parent][name]
}

func (f *fakeCloud) files() []storedFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storedFile, len(f.uploads))
	copy(out, f.uploads)
	return out
}

func (f *fakeCloud) handler() http.Handler {
	mux := http.NewServeMux()

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Query().Get("access_token") != validToken {
			fmt.Fprint(w, `{"result":2094,"error":"Invalid 'access_token' provided."}`)
			return false
		}
		return true
	}

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("getauth") == "1" {
			if q.Get("username") == "user@example.com" && q.Get("password") == "secret" {
				fmt.Fprintf(w, `{"result":0,"auth":%q,"email":"user@example.com"}`, validToken)
				return
			}
			fmt.Fprint(w, `{"result":2000,"error":"Log in failed."}`)
			return
		}
		if !authorized(w, r) {
			return
		}
		fmt.Fprint(w, `{"result":0,"email":"user@example.com","premium":false,"quota":1000,"usedquota":10}`)
	})

	mux.HandleFunc("/createfolderifnotexists", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		parent, _ := strconv.ParseInt(r.URL.Query().Get("folderid"), 10, 64)
		name := r.URL.Query().Get("name")

		f.mu.Lock()
		children, ok := f.folders[parent]
		if !ok {
			children = map[string]int64{}
			f.folders[parent] = children
		}
		id, exists := children[name]
		if !exists {
			f.nextID++
			id = f.nextID
			children[name] = id
		}
		f.mu.Unlock()

		fmt.Fprintf(w, `{"result":0,"metadata":{"folderid":%d,"name":%q}}`, id, name)
	})

	mux.HandleFunc("/listfolder", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		parent, _ := strconv.ParseInt(r.URL.Query().Get("folderid"), 10, 64)

		f.mu.Lock()
		contents := make([]pcloud.Folder, 0)
		for name, id := range f.folders[parent] {
			contents = append(contents, pcloud.Folder{FolderID: id, Name: name})
		}
		f.mu.Unlock()

		payload, _ := json.Marshal(map[string]any{
			"result":   0,
			"metadata": pcloud.Folder{FolderID: parent, Name: "/", Contents: contents},
		})
		w.Write(payload)
	})

	mux.HandleFunc("/uploadfile", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		f.mu.Lock()
		if f.failNext {
			f.failNext = false
			f.mu.Unlock()
			fmt.Fprint(w, `{"result":2008,"error":"User is over quota."}`)
			return
		}
		f.mu.Unlock()

		folderID, _ := strconv.ParseInt(r.URL.Query().Get("folderid"), 10, 64)
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			fmt.Fprint(w, `{"result":5001,"error":"Upload failed."}`)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			fmt.Fprint(w, `{"result":5001,"error":"Upload failed."}`)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		f.mu.Lock()
		f.uploads = append(f.uploads, storedFile{FolderID: folderID, Name: header.Filename, Data: data})
		f.mu.Unlock()

		fmt.Fprintf(w, `{"result":0,"metadata":[{"fileid":1,"name":%q,"size":%d}]}`, header.Filename, len(data))
	})

	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":0}`)
	})

	return mux
}

type env struct {
	server      *httptest.Server
	cloud       *fakeCloud
	settings    *settings.Service
	coordinator *upload.Coordinator
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cloud := newFakeCloud()
	cloudServer := httptest.NewServer(cloud.handler())
	t.Cleanup(cloudServer.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := event.NewBus()
	settingsSvc := settings.NewService(settings.NewMemoryStore(), bus)
	client := pcloud.NewHTTPClient(cloudServer.URL, logger)
	matcher := rules.NewMatcher(logger)
	resolver := upload.NewFolderResolver(client)

	coordinator := upload.NewCoordinator(
		upload.NewRegistry(bus),
		client,
		settingsSvc,
		matcher,
		resolver,
		upload.RealClock(),
		upload.NewMetrics(prometheus.NewRegistry()),
		logger,
		time.Millisecond,
		1,
	)

	licenses := license.NewManager(settingsSvc, bus, signingKey, "", logger)
	clips := clipper.NewService(coordinator, settingsSvc, licenses, upload.RealClock(), logger, 1<<20, 5*time.Second)

	hub := websocket.NewHub(bus, coordinator, clips, logger)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	t.Cleanup(cancelHub)

	cfg := &config.Config{
		ServerPort:       "0",
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
	}

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(client, settingsSvc),
		Account:  handler.NewAccountHandler(client, settingsSvc),
		Folders:  handler.NewFolderHandler(client, settingsSvc, resolver),
		Uploads:  handler.NewUploadHandler(coordinator),
		Clips:    handler.NewClipHandler(clips),
		Settings: handler.NewSettingsHandler(settingsSvc, matcher),
		License:  handler.NewLicenseHandler(licenses),
	}

	server := httptest.NewServer(router.New(cfg, handlers, hub, prometheus.NewRegistry()))
	t.Cleanup(server.Close)

	return &env{server: server, cloud: cloud, settings: settingsSvc, coordinator: coordinator}
}

func (e *env) authenticate(t *testing.T) {
	t.Helper()
	resp := e.postJSON(t, "/api/v1/auth/token", map[string]string{"token": validToken})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (e *env) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func (e *env) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var parsed struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return parsed.Data
}

// waitFor polls cond until it returns true or the timeout lapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
