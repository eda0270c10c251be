package clipper

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"go-cloud-clipper/internal/filename"
	"go-cloud-clipper/internal/model"
)

// fetchImage downloads an image and names it basename plus the extension
// its content type implies.
func (s *Service) fetchImage(ctx context.Context, imageURL, basename string) (model.UploadFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return model.UploadFile{}, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return model.UploadFile{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.UploadFile{}, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxFetchBytes+1))
	if err != nil {
		return model.UploadFile{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > s.maxFetchBytes {
		return model.UploadFile{}, fmt.Errorf("image exceeds %d byte limit", s.maxFetchBytes)
	}
	if len(data) == 0 {
		return model.UploadFile{}, fmt.Errorf("image response was empty")
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}

	// Dimensions are informational; undecodable formats like SVG still pass.
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		s.logger.Debug("image fetched",
			"format", format,
			"width", cfg.Width,
			"height", cfg.Height,
			"bytes", len(data))
	}

	name := basename + filename.ExtensionForMime(mimeType)
	return model.UploadFile{Name: name, MimeType: mimeType, Data: data}, nil
}

// decodeDataURL splits a "data:<mime>;base64,<payload>" URL into its type
// and decoded bytes.
func decodeDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("%w: not a data url", model.ErrInvalidInput)
	}

	meta, payload, found := strings.Cut(dataURL[len("data:"):], ",")
	if !found {
		return "", nil, fmt.Errorf("%w: malformed data url", model.ErrInvalidInput)
	}

	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("%w: bad base64 payload", model.ErrInvalidInput)
		}
		return mimeType, data, nil
	}
	return mimeType, []byte(payload), nil
}
