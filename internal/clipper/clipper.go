// Package clipper turns captured page content into upload jobs: images
// fetched from their source URL, files sent as data URLs, selected text and
// whole-page documents saved as Markdown.
package clipper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-cloud-clipper/internal/filename"
	"go-cloud-clipper/internal/license"
	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/settings"
	"go-cloud-clipper/internal/upload"
)

// Service builds upload jobs from clip requests and hands them to the
// coordinator.
type Service struct {
	coordinator *upload.Coordinator
	settings    *settings.Service
	license     *license.Manager
	clock       upload.Clock
	http        *http.Client
	logger      *slog.Logger

	maxFetchBytes int64
}

func NewService(
	coordinator *upload.Coordinator,
	settingsSvc *settings.Service,
	licenses *license.Manager,
	clock upload.Clock,
	logger *slog.Logger,
	maxFetchBytes int64,
	fetchTimeout time.Duration,
) *Service {
	return &Service{
		coordinator:   coordinator,
		settings:      settingsSvc,
		license:       licenses,
		clock:         clock,
		http:          &http.Client{Timeout: fetchTimeout},
		logger:        logger,
		maxFetchBytes: maxFetchBytes,
	}
}

// ImageClip captures one image by URL. Field names match the
// startUploadFromUrl message payload.
type ImageClip struct {
	ImageURL  string `json:"imageUrl"`
	PageTitle string `json:"pageTitle"`
	SourceURL string `json:"sourceUrl"`
}

// FileClip carries inline content, usually a data URL from the browser.
// Field names match the startUploadFromFile message payload; MimeType
// overrides whatever the data URL declares.
type FileClip struct {
	Name      string `json:"name"`
	MimeType  string `json:"type"`
	DataURL   string `json:"dataUrl"`
	SourceURL string `json:"sourceUrl"`
}

// TextClip captures a text selection already converted to Markdown.
type TextClip struct {
	Text      string `json:"text"`
	PageURL   string `json:"pageUrl"`
	PageTitle string `json:"pageTitle"`
}

// DocumentClip captures a whole page as Markdown. Premium only.
type DocumentClip struct {
	Markdown  string `json:"markdown"`
	PageURL   string `json:"pageUrl"`
	PageTitle string `json:"pageTitle"`
}

// ClipImage queues an image upload. The image is fetched in the background;
// the returned record starts in the fetching state.
func (s *Service) ClipImage(ctx context.Context, clip ImageClip) (model.UploadRecord, error) {
	if clip.ImageURL == "" {
		return model.UploadRecord{}, fmt.Errorf("%w: image url required", model.ErrInvalidInput)
	}

	cfg, err := s.settings.Resolve(ctx)
	if err != nil {
		return model.UploadRecord{}, err
	}

	now := s.clock.Now()
	rendered := filename.Render(cfg.ImageTemplate, filename.Context{
		PageTitle:     clip.PageTitle,
		Now:           now,
		SortingNumber: now.UnixMilli(),
	})

	return s.coordinator.Enqueue(ctx, upload.Job{
		Name: rendered.Basename,
		Fetch: func(ctx context.Context) (model.UploadFile, error) {
			return s.fetchImage(ctx, clip.ImageURL, rendered.Basename)
		},
		Options: model.UploadOptions{
			SourceURL:  clip.SourceURL,
			Subfolders: rendered.Subfolders,
			Fetching:   true,
		},
		Kind: "image",
	})
}

// ClipFile queues an upload of content the browser already holds.
func (s *Service) ClipFile(ctx context.Context, clip FileClip) (model.UploadRecord, error) {
	mimeType, data, err := decodeDataURL(clip.DataURL)
	if err != nil {
		return model.UploadRecord{}, err
	}
	if clip.MimeType != "" {
		mimeType = clip.MimeType
	}

	name := clip.Name
	if name == "" {
		cfg, err := s.settings.Resolve(ctx)
		if err != nil {
			return model.UploadRecord{}, err
		}
		now := s.clock.Now()
		rendered := filename.Render(cfg.ImageTemplate, filename.Context{
			PageTitle:     "Untitled",
			Now:           now,
			SortingNumber: now.UnixMilli(),
		})
		name = rendered.Basename + filename.ExtensionForMime(mimeType)
	}

	return s.coordinator.Enqueue(ctx, upload.Job{
		Name:    name,
		File:    &model.UploadFile{Name: name, MimeType: mimeType, Data: data},
		Options: model.UploadOptions{SourceURL: clip.SourceURL},
		Kind:    "file",
	})
}

// ClipText queues a Markdown upload of selected text.
func (s *Service) ClipText(ctx context.Context, clip TextClip) (model.UploadRecord, error) {
	if clip.Text == "" {
		return model.UploadRecord{}, fmt.Errorf("%w: text required", model.ErrInvalidInput)
	}

	cfg, err := s.settings.Resolve(ctx)
	if err != nil {
		return model.UploadRecord{}, err
	}

	now := s.clock.Now()
	rendered := filename.Render(cfg.TextTemplate, filename.Context{
		PageTitle:     clip.PageTitle,
		Now:           now,
		SortingNumber: now.UnixMilli(),
	})

	body := CleanMarkdown(clip.Text)
	name := rendered.Basename + ".md"

	return s.coordinator.Enqueue(ctx, upload.Job{
		Name:    name,
		File:    &model.UploadFile{Name: name, MimeType: "text/markdown", Data: []byte(body)},
		Options: model.UploadOptions{SourceURL: clip.PageURL, Subfolders: rendered.Subfolders},
		Kind:    "text",
	})
}

// ClipDocument queues a whole-page capture. The premium check runs before
// anything else; free-tier requests cause no uploads and no state changes.
func (s *Service) ClipDocument(ctx context.Context, clip DocumentClip) (model.UploadRecord, error) {
	if !s.license.IsPremium(ctx) {
		return model.UploadRecord{}, model.ErrPremiumRequired
	}
	if clip.Markdown == "" {
		return model.UploadRecord{}, fmt.Errorf("%w: document body required", model.ErrInvalidInput)
	}

	cfg, err := s.settings.Resolve(ctx)
	if err != nil {
		return model.UploadRecord{}, err
	}

	now := s.clock.Now()
	rendered := filename.Render(cfg.DocTemplate, filename.Context{
		PageTitle:     clip.PageTitle,
		Now:           now,
		SortingNumber: now.UnixMilli(),
	})

	body := CleanMarkdown(clip.Markdown)
	job := upload.Job{
		Options: model.UploadOptions{
			SourceURL:  clip.PageURL,
			Subfolders: rendered.Subfolders,
		},
		Kind: "document",
	}

	switch cfg.DocFormat {
	case "doc", "docx":
		data, err := buildDocx(body)
		if err != nil {
			return model.UploadRecord{}, err
		}
		name := rendered.Basename + ".docx"
		job.Name = name
		job.File = &model.UploadFile{Name: name, MimeType: docxMimeType, Data: data}
	default:
		if cfg.DocIncludeMeta {
			body = withFrontmatter(body, clip.PageTitle, clip.PageURL, now)
		}
		name := rendered.Basename + ".md"
		job.Name = name
		job.File = &model.UploadFile{Name: name, MimeType: "text/markdown", Data: []byte(body)}
		// Remote image localization rewrites markdown links, so it only
		// applies to the markdown format.
		job.BeforeStore = func(ctx context.Context, token string, folderID int64, file *model.UploadFile) error {
			return s.localizeAssets(ctx, token, folderID, rendered.Basename, file)
		}
	}

	return s.coordinator.Enqueue(ctx, job)
}
