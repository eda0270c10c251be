// Package upload tracks in-flight uploads and drives each one through its
// lifecycle. The registry broadcasts the complete upload list after every
// change; connected UI surfaces render whatever the latest snapshot says.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/rules"
	"go-cloud-clipper/internal/settings"
)

// Job is one unit of work for the coordinator. Either File or Fetch must be
// set; Fetch is for content that still has to be downloaded, and the record
// shows a fetching status until it resolves.
type Job struct {
	Name    string
	File    *model.UploadFile
	Fetch   func(ctx context.Context) (model.UploadFile, error)
	Options model.UploadOptions
	// BeforeStore runs after the destination folder is known and may mutate
	// the file, for example to upload companion assets and rewrite links.
	// An error fails the whole upload.
	BeforeStore func(ctx context.Context, token string, folderID int64, file *model.UploadFile) error
	// Kind labels metrics: image, text, document or file.
	Kind string
}

// Coordinator owns the upload pipeline. Enqueue returns as soon as the
// record is tracked; the rest of the lifecycle runs in the background and is
// observable only through broadcast snapshots.
type Coordinator struct {
	registry *Registry
	client   pcloud.Client
	settings *settings.Service
	matcher  *rules.Matcher
	folders  *FolderResolver
	clock    Clock
	metrics  *Metrics
	logger   *slog.Logger

	clearDelay     time.Duration
	clearCountdown int

	wg sync.WaitGroup
}

func NewCoordinator(
	registry *Registry,
	client pcloud.Client,
	settingsSvc *settings.Service,
	matcher *rules.Matcher,
	folders *FolderResolver,
	clock Clock,
	metrics *Metrics,
	logger *slog.Logger,
	clearDelay time.Duration,
	clearCountdown int,
) *Coordinator {
	return &Coordinator{
		registry:       registry,
		client:         client,
		settings:       settingsSvc,
		matcher:        matcher,
		folders:        folders,
		clock:          clock,
		metrics:        metrics,
		logger:         logger,
		clearDelay:     clearDelay,
		clearCountdown: clearCountdown,
	}
}

// Enqueue registers the job and starts its pipeline. The returned record is
// the initial snapshot entry; its id is stable for the record's lifetime.
func (c *Coordinator) Enqueue(ctx context.Context, job Job) (model.UploadRecord, error) {
	if job.File == nil && job.Fetch == nil {
		return model.UploadRecord{}, fmt.Errorf("%w: job has no content", model.ErrInvalidInput)
	}
	if job.Kind == "" {
		job.Kind = "file"
	}

	// Ids carry the creation time so records sort naturally even after a
	// surface rebuilds its list from a snapshot.
	record := model.UploadRecord{
		ID:        fmt.Sprintf("%d-%s", c.clock.Now().UnixMilli(), uuid.NewString()),
		FileName:  job.Name,
		Status:    model.StatusStarting,
		Countdown: c.clearCountdown,
		SourceURL: job.Options.SourceURL,
	}
	if job.Fetch != nil {
		record.Status = model.StatusFetching
	}

	c.registry.Add(record)
	c.metrics.Started.WithLabelValues(job.Kind).Inc()

	// The pipeline outlives the HTTP request that queued it.
	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(bg, record.ID, job)
	}()

	return record, nil
}

// StoreDirect uploads a file without tracking it. Used for auxiliary files
// that accompany a primary upload, like a document's image assets.
func (c *Coordinator) StoreDirect(ctx context.Context, folderID int64, file model.UploadFile) error {
	token, err := c.settings.AuthToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return model.ErrNotAuthenticated
	}

	if _, err := c.client.UploadFile(ctx, token, folderID, file.Name, bytes.NewReader(file.Data)); err != nil {
		return err
	}
	c.metrics.Bytes.Add(float64(len(file.Data)))
	return nil
}

// ResolveDestination computes the folder an upload from pageURL would land
// in, honoring an explicit override, then domain rules, then the default.
// Rule target paths are re-resolved on every call; cached folder ids stored
// on a rule may be stale and are ignored.
func (c *Coordinator) ResolveDestination(ctx context.Context, token string, opts model.UploadOptions) (int64, error) {
	base, err := c.baseFolder(ctx, token, opts)
	if err != nil {
		return 0, err
	}
	if len(opts.Subfolders) == 0 {
		return base, nil
	}
	id, err := c.folders.ResolveUnder(ctx, token, base, opts.Subfolders)
	if err != nil {
		c.logger.Warn("subfolder resolution failed, using base folder",
			"base", base, "error", err)
		return base, nil
	}
	return id, nil
}

func (c *Coordinator) baseFolder(ctx context.Context, token string, opts model.UploadOptions) (int64, error) {
	if opts.FolderID != nil {
		return *opts.FolderID, nil
	}

	cfg, err := c.settings.Resolve(ctx)
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}

	if rule := c.matcher.Match(opts.SourceURL, cfg.DomainRules); rule != nil {
		if rule.TargetPath != "" {
			id, err := c.folders.ResolvePath(ctx, token, rule.TargetPath)
			if err == nil {
				return id, nil
			}
			// A broken rule must not sink the upload. Route to the
			// default folder instead.
			c.logger.Warn("rule target path resolution failed, using default folder",
				"path", rule.TargetPath, "error", err)
		} else {
			return rule.TargetFolderID, nil
		}
	}

	return cfg.DefaultFolderID, nil
}

// Dismiss removes a record regardless of its state. This is the only way an
// error record leaves the list.
func (c *Coordinator) Dismiss(id string) error {
	if !c.registry.Remove(id) {
		return model.ErrUploadNotFound
	}
	return nil
}

// Snapshot returns the current upload list, newest first.
func (c *Coordinator) Snapshot() []model.UploadRecord {
	return c.registry.Snapshot()
}

// PublishSnapshot re-broadcasts the current list, used when a new UI surface
// asks for initial state.
func (c *Coordinator) PublishSnapshot() {
	c.registry.publish(c.registry.Snapshot())
}

// Wait blocks until all in-flight pipelines finish. Test hook.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, id string, job Job) {
	token, err := c.settings.AuthToken(ctx)
	if err == nil && token == "" {
		err = model.ErrNotAuthenticated
	}
	if err != nil {
		c.fail(id, job.Kind, err)
		return
	}

	file := job.File
	if file == nil {
		fetched, err := job.Fetch(ctx)
		if err != nil {
			c.fail(id, job.Kind, err)
			return
		}
		file = &fetched
		c.registry.Update(id, func(r *model.UploadRecord) {
			r.FileName = fetched.Name
			r.Status = model.StatusStarting
		})
	}

	folderID, err := c.ResolveDestination(ctx, token, job.Options)
	if err != nil {
		c.fail(id, job.Kind, err)
		return
	}

	if job.BeforeStore != nil {
		if err := job.BeforeStore(ctx, token, folderID, file); err != nil {
			c.fail(id, job.Kind, err)
			return
		}
	}

	c.registry.Update(id, func(r *model.UploadRecord) {
		r.Status = model.StatusUploading
		r.Progress = 25
		r.FolderID = folderID
	})

	if _, err := c.client.UploadFile(ctx, token, folderID, file.Name, bytes.NewReader(file.Data)); err != nil {
		c.fail(id, job.Kind, err)
		return
	}

	c.registry.Update(id, func(r *model.UploadRecord) {
		r.Status = model.StatusDone
		r.Progress = 100
	})
	c.metrics.Completed.WithLabelValues(job.Kind).Inc()
	c.metrics.Bytes.Add(float64(len(file.Data)))
	c.logger.Info("upload stored", "file", file.Name, "folder_id", folderID, "kind", job.Kind)

	c.clearAfterDelay(id)
}

// clearAfterDelay holds the done state briefly, then counts the record down
// to removal one second at a time. A record dismissed mid-countdown simply
// stops ticking.
func (c *Coordinator) clearAfterDelay(id string) {
	<-c.clock.After(c.clearDelay)

	remaining := c.clearCountdown
	if !c.registry.Update(id, func(r *model.UploadRecord) {
		r.Status = model.StatusClearing
		r.Countdown = remaining
	}) {
		return
	}

	for remaining > 0 {
		<-c.clock.After(time.Second)
		remaining--
		if remaining == 0 {
			c.registry.Remove(id)
			return
		}
		left := remaining
		if !c.registry.Update(id, func(r *model.UploadRecord) {
			r.Countdown = left
		}) {
			return
		}
	}
}

func (c *Coordinator) fail(id, kind string, err error) {
	c.metrics.Failed.WithLabelValues(kind).Inc()
	c.logger.Warn("upload failed", "upload_id", id, "error", err)

	message := userMessage(err)
	c.registry.Update(id, func(r *model.UploadRecord) {
		r.Status = model.StatusError
		r.Error = message
	})
}

// userMessage condenses pipeline errors into something a popup can show.
func userMessage(err error) string {
	var apiErr *pcloud.Error
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		return "Not logged in. Connect your account first."
	case errors.As(err, &apiErr) && apiErr.AuthFailure():
		return "Session expired. Please log in again."
	case errors.As(err, &apiErr) && apiErr.Result == pcloud.ResultQuotaExceeded:
		return "Storage quota exceeded."
	default:
		return err.Error()
	}
}
