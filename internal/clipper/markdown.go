package clipper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-cloud-clipper/internal/model"
)

var (
	// [![alt](img)](href) becomes ![alt](img); sites love wrapping images
	// in links and the capture is noise in a saved document.
	linkedImagePattern = regexp.MustCompile(`\[(!\[[^\]]*\]\([^)]*\))\]\([^)]*\)`)

	excessNewlines = regexp.MustCompile(`\n{3,}`)

	remoteImagePattern = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)
)

// CleanMarkdown normalizes captured Markdown: linked images are unwrapped
// and runs of blank lines collapse to one.
func CleanMarkdown(text string) string {
	out := linkedImagePattern.ReplaceAllString(text, "$1")
	out = excessNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out) + "\n"
}

type frontmatter struct {
	Title   string `yaml:"title"`
	Source  string `yaml:"source"`
	Clipped string `yaml:"clipped"`
}

func withFrontmatter(body, title, sourceURL string, now time.Time) string {
	meta, err := yaml.Marshal(frontmatter{
		Title:   title,
		Source:  sourceURL,
		Clipped: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return body
	}
	return "---\n" + string(meta) + "---\n\n" + body
}

// localizeAssets downloads every remote image referenced by the document,
// stores it in an assets folder next to the document, and rewrites the
// references to relative paths. A failed asset keeps its remote link; one
// broken image never sinks the capture.
func (s *Service) localizeAssets(ctx context.Context, token string, folderID int64, basename string, file *model.UploadFile) error {
	body := string(file.Data)
	matches := remoteImagePattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	assetsDir := "assets_" + basename
	assetsFolderID, err := s.coordinator.ResolveDestination(ctx, token, model.UploadOptions{
		FolderID:   &folderID,
		Subfolders: []string{assetsDir},
	})
	if err != nil {
		return fmt.Errorf("create assets folder: %w", err)
	}

	rewrites := make(map[string]string, len(matches))
	index := 0
	for _, match := range matches {
		imageURL := match[1]
		if _, done := rewrites[imageURL]; done {
			continue
		}

		index++
		asset, err := s.fetchImage(ctx, imageURL, fmt.Sprintf("asset_%03d", index))
		if err != nil {
			s.logger.Warn("document asset skipped", "url", imageURL, "error", err)
			continue
		}

		if err := s.coordinator.StoreDirect(ctx, assetsFolderID, asset); err != nil {
			s.logger.Warn("document asset upload failed", "url", imageURL, "error", err)
			continue
		}
		rewrites[imageURL] = "./" + assetsDir + "/" + asset.Name
	}

	for remote, local := range rewrites {
		body = strings.ReplaceAll(body, "("+remote+")", "("+local+")")
	}
	file.Data = []byte(body)
	return nil
}
