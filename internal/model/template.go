package model

// TemplatePartID is the fixed vocabulary of filename template parts.
type TemplatePartID string

const (
	PartSortingNumber TemplatePartID = "SORTING_NUMBER"
	PartPageTitle     TemplatePartID = "PAGE_TITLE"
	PartTimestamp     TemplatePartID = "TIMESTAMP"
	PartFreeKey       TemplatePartID = "FREE_KEY"
	PartDate          TemplatePartID = "DATE"
)

// TemplatePart is one ordered element of a filename template. Disabled parts
// contribute nothing. Separator is appended after the part's value; the last
// enabled part's trailing separator is stripped before the extension.
type TemplatePart struct {
	ID        TemplatePartID `json:"id"`
	Enabled   bool           `json:"enabled"`
	Separator string         `json:"separator"`
	// CustomValue is used by the FREE_KEY part only.
	CustomValue string `json:"customValue,omitempty"`
	// DateFormat is used by the DATE part only.
	DateFormat string `json:"dateFormat,omitempty"`
}
