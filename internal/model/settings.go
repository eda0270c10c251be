package model

// Settings is the typed view over the synchronized key-value store. Defaults
// are resolved once at the settings-service boundary; consumers never see a
// missing key.
type Settings struct {
	DefaultFolderID   int64          `json:"defaultFolderId"`
	DefaultFolderPath string         `json:"defaultFolderPath"`
	DomainRules       []DomainRule   `json:"domainRules"`
	ImageTemplate     []TemplatePart `json:"imageTemplate"`
	TextTemplate      []TemplatePart `json:"textTemplate"`
	DocTemplate       []TemplatePart `json:"docTemplate"`
	DocFormat         string         `json:"docFormat"`
	DocIncludeMeta    bool           `json:"docIncludeMetadata"`
	Theme             string         `json:"theme"`
}

// DefaultImageTemplate matches the out-of-the-box image filename recipe:
// <epoch-millis>_<page title>_<timestamp>.
func DefaultImageTemplate() []TemplatePart {
	return []TemplatePart{
		{ID: PartSortingNumber, Enabled: true, Separator: "_"},
		{ID: PartPageTitle, Enabled: true, Separator: "_"},
		{ID: PartTimestamp, Enabled: true, Separator: ""},
	}
}

// DefaultTextTemplate is the recipe for selected-text uploads.
func DefaultTextTemplate() []TemplatePart {
	return []TemplatePart{
		{ID: PartPageTitle, Enabled: true, Separator: "_"},
		{ID: PartTimestamp, Enabled: true, Separator: ""},
	}
}

// DefaultDocTemplate routes each captured document into a subfolder named
// after the page title (the "/" separator splits path from basename).
func DefaultDocTemplate() []TemplatePart {
	return []TemplatePart{
		{ID: PartPageTitle, Enabled: true, Separator: "/"},
		{ID: PartTimestamp, Enabled: true, Separator: ""},
	}
}

// DefaultSettings is the configuration used when the store holds nothing.
func DefaultSettings() Settings {
	return Settings{
		DefaultFolderID:   0,
		DefaultFolderPath: "/",
		DomainRules:       nil,
		ImageTemplate:     DefaultImageTemplate(),
		TextTemplate:      DefaultTextTemplate(),
		DocTemplate:       DefaultDocTemplate(),
		DocFormat:         "md",
		DocIncludeMeta:    false,
		Theme:             "theme-googlestyle",
	}
}
