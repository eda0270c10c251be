package model

// DomainRule routes uploads from matching pages into a target folder.
// Rules are evaluated in list order; the first enabled match wins. There is
// no priority field beyond position.
type DomainRule struct {
	ID            string `json:"id"`
	Enabled       bool   `json:"enabled"`
	Title         string `json:"title,omitempty"`
	DomainPattern string `json:"domainPattern"`
	TargetPath    string `json:"targetPath"`
	// TargetFolderID is a cached id from the folder picker. It may be
	// stale; destination resolution recomputes the id from TargetPath and
	// ignores this value.
	TargetFolderID int64 `json:"targetFolderId,omitempty"`
}
