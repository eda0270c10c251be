// Package filename renders user-configured filename templates into a base
// name plus the subfolder segments encoded by path separators inside the
// rendered string.
package filename

import (
	"strconv"
	"strings"
	"time"

	"go-cloud-clipper/internal/model"
)

// Context supplies the dynamic values template parts draw from. SortingNumber
// is a caller-supplied monotonic integer, typically epoch millis at call time.
type Context struct {
	PageTitle     string
	Now           time.Time
	SortingNumber int64
}

// Rendered is the outcome of a template render: the file's base name (without
// extension) and the subfolder names that preceded it in the rendered string.
type Rendered struct {
	Basename   string
	Subfolders []string
}

// Render walks the enabled parts in order, concatenating each part's value
// and separator, then splits the result on "/". The last non-empty segment
// becomes the base name; everything before it is a subfolder path. When all
// parts are disabled the sorting number stands in as the base name.
func Render(parts []model.TemplatePart, ctx Context) Rendered {
	var acc strings.Builder
	var lastSep string
	for _, part := range parts {
		if !part.Enabled {
			continue
		}

		value := partValue(part, ctx)
		if value == "" {
			continue
		}
		acc.WriteString(value)
		acc.WriteString(part.Separator)
		lastSep = part.Separator
	}

	segments := make([]string, 0, 4)
	for _, segment := range strings.Split(acc.String(), "/") {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" {
			continue
		}
		segments = append(segments, trimmed)
	}

	if len(segments) == 0 {
		return Rendered{Basename: strconv.FormatInt(ctx.SortingNumber, 10)}
	}

	basename := segments[len(segments)-1]
	if lastSep != "" && lastSep != "/" {
		if trimmed := strings.TrimSuffix(basename, lastSep); trimmed != "" {
			basename = trimmed
		}
	}

	return Rendered{
		Basename:   basename,
		Subfolders: segments[:len(segments)-1],
	}
}

func partValue(part model.TemplatePart, ctx Context) string {
	switch part.ID {
	case model.PartSortingNumber:
		return strconv.FormatInt(ctx.SortingNumber, 10)
	case model.PartPageTitle:
		return SanitizeTitle(ctx.PageTitle)
	case model.PartTimestamp:
		return ctx.Now.Format("20060102_150405")
	case model.PartFreeKey:
		if part.CustomValue == "" {
			return "content"
		}
		return part.CustomValue
	case model.PartDate:
		return FormatDate(part.DateFormat, ctx.Now)
	default:
		// Unknown ids from newer configs contribute nothing.
		return ""
	}
}

// dateLayouts maps the supported user-facing formats onto Go layouts.
var dateLayouts = map[string]string{
	"YYYY-MM-DD": "2006-01-02",
	"YYYY_MM_DD": "2006_01_02",
	"YYYYMMDD":   "20060102",
	"MM-DD-YYYY": "01-02-2006",
	"DD-MM-YYYY": "02-01-2006",
}

// FormatDate renders now using the given format, falling back to YYYY-MM-DD
// for formats this version does not know.
func FormatDate(format string, now time.Time) string {
	layout, ok := dateLayouts[format]
	if !ok {
		layout = "2006-01-02"
	}
	return now.Format(layout)
}

var illegalTitleChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_",
	"?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeTitle makes a page title safe for use inside a filename: illegal
// characters become underscores and the result is capped at 100 runes. An
// empty title falls back to "Untitled".
func SanitizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}

	cleaned := illegalTitleChars.Replace(title)
	runes := []rune(cleaned)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	return string(runes)
}

// MergeWithDefaults preserves the user's saved parts and order, then appends
// any parts newer defaults introduce that the saved config has never seen.
func MergeWithDefaults(saved []model.TemplatePart, defaults []model.TemplatePart) []model.TemplatePart {
	if len(saved) == 0 {
		return defaults
	}

	seen := make(map[model.TemplatePartID]struct{}, len(saved))
	merged := make([]model.TemplatePart, 0, len(saved)+len(defaults))
	for _, part := range saved {
		seen[part.ID] = struct{}{}
		merged = append(merged, part)
	}

	for _, part := range defaults {
		if _, exists := seen[part.ID]; exists {
			continue
		}
		merged = append(merged, part)
	}

	return merged
}
