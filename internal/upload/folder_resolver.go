package upload

import (
	"context"
	"fmt"
	"strings"

	"go-cloud-clipper/internal/pcloud"
)

// FolderResolver turns folder paths into remote folder ids, creating missing
// folders along the way. Creation is idempotent, so two concurrent uploads
// resolving the same path converge on the same id.
type FolderResolver struct {
	client pcloud.Client
}

func NewFolderResolver(client pcloud.Client) *FolderResolver {
	return &FolderResolver{client: client}
}

// ResolvePath resolves an absolute path like "/Clips/Work" starting from the
// root folder. The root itself is id 0 and needs no network call.
func (f *FolderResolver) ResolvePath(ctx context.Context, token, path string) (int64, error) {
	segments := SplitPath(path)
	return f.ResolveUnder(ctx, token, 0, segments)
}

// ResolveUnder creates each segment in order beneath base and returns the id
// of the deepest folder.
func (f *FolderResolver) ResolveUnder(ctx context.Context, token string, base int64, segments []string) (int64, error) {
	current := base
	for _, segment := range segments {
		folder, err := f.client.CreateFolderIfNotExists(ctx, token, current, segment)
		if err != nil {
			return 0, fmt.Errorf("resolve folder %q: %w", segment, err)
		}
		current = folder.FolderID
	}
	return current, nil
}

// SplitPath normalizes a folder path into its segments: slashes collapse,
// leading and trailing slashes drop. "/" and "" both mean the root.
func SplitPath(path string) []string {
	segments := make([]string, 0, 4)
	for _, segment := range strings.Split(path, "/") {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" {
			continue
		}
		segments = append(segments, trimmed)
	}
	return segments
}
