package filename

import "strings"

var mimeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
}

// ExtensionForMime maps an image content type to a file extension. Unknown
// or parameterized types degrade to .jpg, matching how most clipped images
// without reliable type information end up being JPEGs anyway.
func ExtensionForMime(mimeType string) string {
	base := strings.TrimSpace(mimeType)
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	base = strings.ToLower(strings.TrimSpace(base))

	if ext, ok := mimeExtensions[base]; ok {
		return ext
	}
	return ".jpg"
}
